package models

import (
	"time"

	"github.com/google/uuid"
)

type PersonalizedStatus string

const (
	// StatusTemporary marks a sticker sitting in a cart that has not been ordered yet.
	StatusTemporary PersonalizedStatus = "temporary"
	// StatusActive marks a confirmed or admin-created sticker awaiting publication.
	StatusActive PersonalizedStatus = "active"
	// StatusPublished is terminal; the record is deleted as soon as it is reached.
	StatusPublished PersonalizedStatus = "published"
)

func (s PersonalizedStatus) Valid() bool {
	switch s {
	case StatusTemporary, StatusActive, StatusPublished:
		return true
	}
	return false
}

type Source string

const (
	SourceUpload    Source = "upload"
	SourcePinterest Source = "pinterest"
)

func (s Source) Valid() bool {
	return s == SourceUpload || s == SourcePinterest
}

// PersonalizedSticker is a customer-supplied image held outside the public
// catalog until it is published or swept.
type PersonalizedSticker struct {
	ID          uuid.UUID          `json:"id" db:"id"`
	DisplayID   string             `json:"display_id" db:"display_id"` // P0001, P0002, ...
	ImagePath   string             `json:"image_path" db:"image_path"`
	Source      Source             `json:"source" db:"source"`
	OriginalURL *string            `json:"original_url,omitempty" db:"original_url"`
	Status      PersonalizedStatus `json:"status" db:"status"`
	ExpiresAt   *time.Time         `json:"expires_at,omitempty" db:"expires_at"`
	CreatedAt   time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" db:"updated_at"`
}

// Request DTOs

type PinterestRequest struct {
	PinterestURL string `json:"pinterestUrl" validate:"required,url,max=2048"`
}

type ConfirmTemporaryRequest struct {
	StickerIDs []string `json:"stickerIds" validate:"required,max=500"`
}

// ConfirmResult reports how many of the requested ids moved to active.
type ConfirmResult struct {
	Requested      int `json:"requested_count"`
	ConfirmedCount int `json:"confirmed_count"`
}

// SweepResult is the outcome of one expiry sweep.
type SweepResult struct {
	Deleted  int           `json:"deleted_count"`
	Errors   []string      `json:"errors,omitempty"`
	Skipped  bool          `json:"skipped,omitempty"`
	Message  string        `json:"message"`
	Duration time.Duration `json:"-"`
}

// PublishResult is returned when a personalized sticker joins the catalog.
type PublishResult struct {
	Sticker    *Sticker `json:"published_sticker"`
	Categories []string `json:"published_with_categories"`
}
