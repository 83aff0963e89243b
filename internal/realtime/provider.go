package realtime

import (
	"context"
	"time"

	"github.com/user/avenida-stickers/internal/models"
)

// PersonalizedSource is the record store the admin snapshot is read from.
type PersonalizedSource interface {
	ListVisible(ctx context.Context, now time.Time) ([]*models.PersonalizedSticker, error)
	CountByStatus(ctx context.Context) (map[models.PersonalizedStatus]int, error)
}

// Provider implements DataProvider
type Provider struct {
	personalized PersonalizedSource
	timeout      time.Duration
	now          func() time.Time
}

func NewProvider(personalized PersonalizedSource) *Provider {
	return &Provider{personalized: personalized, timeout: 5 * time.Second, now: time.Now}
}

func (p *Provider) GetReadyState(ctx context.Context) (*models.AdminReadyEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	stickers, err := p.personalized.ListVisible(ctx, p.now())
	if err != nil {
		return nil, err
	}
	counts, err := p.personalized.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	return &models.AdminReadyEvent{Stickers: stickers, Counts: counts}, nil
}
