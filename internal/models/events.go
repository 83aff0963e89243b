package models

import "github.com/google/uuid"

// Realtime event types pushed to the admin panel
const (
	EventPersonalizedCreated   = "PERSONALIZED_CREATED"
	EventPersonalizedConfirmed = "PERSONALIZED_CONFIRMED"
	EventPersonalizedPublished = "PERSONALIZED_PUBLISHED"
	EventPersonalizedDeleted   = "PERSONALIZED_DELETED"
	EventPersonalizedExpired   = "PERSONALIZED_EXPIRED"
)

type PersonalizedDeletedEvent struct {
	ID        uuid.UUID `json:"id"`
	DisplayID string    `json:"display_id"`
}

type PersonalizedConfirmedEvent struct {
	IDs   []uuid.UUID `json:"ids"`
	Count int         `json:"count"`
}

type PersonalizedExpiredEvent struct {
	Deleted int `json:"deleted"`
}

// EventReady is sent to an admin panel right after it subscribes.
const EventReady = "READY"

type AdminReadyEvent struct {
	Stickers []*PersonalizedSticker     `json:"stickers"`
	Counts   map[PersonalizedStatus]int `json:"counts"`
}
