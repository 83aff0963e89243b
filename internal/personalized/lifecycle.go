// Package personalized manages customer-supplied stickers from their
// creation in a cart or by an admin until they are published into the
// catalog, deleted, or swept after expiring.
//
//	create (cart)   -> temporary, expires in one hour
//	create (direct) -> active
//	confirm         temporary -> active
//	publish         temporary|active -> catalog sticker, record deleted
//	expire          temporary past expires_at -> deleted by the sweeper
//	delete          any -> deleted
//
// Active records carry a retention date but are never swept.
package personalized

import (
	"errors"
	"slices"
	"time"

	"github.com/user/avenida-stickers/internal/categories"
	"github.com/user/avenida-stickers/internal/models"
)

// TemporaryTTL is how long an unconfirmed cart sticker lives.
const TemporaryTTL = time.Hour

var (
	ErrNotFound         = errors.New("personalized sticker not found")
	ErrAlreadyPublished = errors.New("personalized sticker already published")
	ErrMissingImage     = errors.New("an image is required")
)

// Entry is the path a sticker was created through. It decides the initial
// status.
type Entry int

const (
	// EntryCart creates a temporary sticker for a cart that has not been ordered yet.
	EntryCart Entry = iota
	// EntryDirect creates an active sticker, used by the admin panel.
	EntryDirect
)

// RetentionDeadline is the retention date for an active sticker.
func RetentionDeadline(now time.Time, days int) time.Time {
	return now.Add(time.Duration(days) * 24 * time.Hour)
}

// InitialState returns the status and expiry a new sticker starts with.
func InitialState(entry Entry, now time.Time, retentionDays int) (models.PersonalizedStatus, time.Time) {
	if entry == EntryDirect {
		return models.StatusActive, RetentionDeadline(now, retentionDays)
	}
	return models.StatusTemporary, now.Add(TemporaryTTL)
}

// IsExpired reports whether the sweeper may remove p. Only temporary
// stickers expire.
func IsExpired(p *models.PersonalizedSticker, now time.Time) bool {
	return p.Status == models.StatusTemporary && p.ExpiresAt != nil && !p.ExpiresAt.After(now)
}

// Visible reports whether p is listed: every active sticker and the
// temporary ones that have not expired yet.
func Visible(p *models.PersonalizedSticker, now time.Time) bool {
	switch p.Status {
	case models.StatusActive:
		return true
	case models.StatusTemporary:
		return !IsExpired(p, now)
	}
	return false
}

// CanPublish checks the publish precondition.
func CanPublish(p *models.PersonalizedSticker) error {
	if p.Status == models.StatusPublished {
		return ErrAlreadyPublished
	}
	return nil
}

// PublishCategories returns the categories of the catalog sticker created
// on publish: "personalizados" first, then the requested ones without
// duplicates.
func PublishCategories(requested []string) []string {
	out := []string{categories.Personalized}
	for _, c := range requested {
		c = categories.Normalize(c)
		if c == "" || slices.Contains(out, c) {
			continue
		}
		out = append(out, c)
	}
	return out
}
