package personalized

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/user/avenida-stickers/internal/ids"
	"github.com/user/avenida-stickers/internal/models"
	"github.com/user/avenida-stickers/internal/pinterest"
	"github.com/user/avenida-stickers/internal/storage"
)

// Store is the personalized sticker record store.
type Store interface {
	Create(ctx context.Context, p *models.PersonalizedSticker) (*models.PersonalizedSticker, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.PersonalizedSticker, error)
	ListVisible(ctx context.Context, now time.Time) ([]*models.PersonalizedSticker, error)
	// ConfirmTemporary activates the listed stickers that are still
	// temporary and returns the ids it changed.
	ConfirmTemporary(ctx context.Context, ids []uuid.UUID, expiresAt time.Time) ([]uuid.UUID, error)
	Delete(ctx context.Context, id uuid.UUID) (*models.PersonalizedSticker, error)
	// Publish removes the record and inserts the catalog sticker as one unit.
	Publish(ctx context.Context, id uuid.UUID, categories []string) (*models.Sticker, error)
	CountByStatus(ctx context.Context) (map[models.PersonalizedStatus]int, error)
}

type ImageStore interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
	Delete(ctx context.Context, imagePath string) error
}

type Optimizer interface {
	Optimize(data []byte) ([]byte, error)
}

type Allocator interface {
	Next(ctx context.Context, s ids.Series) (string, error)
}

type Settings interface {
	RetentionDays(ctx context.Context) int
}

type CategoryValidator interface {
	Validate(ctx context.Context, names []string) ([]string, error)
}

type Fetcher interface {
	Fetch(ctx context.Context, pinURL string) ([]byte, string, error)
}

// Notifier pushes lifecycle events to connected admin panels.
type Notifier interface {
	Notify(ctx context.Context, event string, payload any)
}

// CatalogCache is invalidated when a sticker joins the catalog.
type CatalogCache interface {
	Invalidate(ctx context.Context)
}

type Options struct {
	Store      Store
	Images     ImageStore
	Optimizer  Optimizer
	Allocator  Allocator
	Settings   Settings
	Categories CategoryValidator
	Fetcher    Fetcher
	Notifier   Notifier
	Catalog    CatalogCache
	Clock      func() time.Time
}

type Service struct {
	store      Store
	images     ImageStore
	optimizer  Optimizer
	allocator  Allocator
	settings   Settings
	categories CategoryValidator
	fetcher    Fetcher
	notifier   Notifier
	catalog    CatalogCache
	now        func() time.Time
	logger     *slog.Logger
}

func NewService(opts Options, logger *slog.Logger) *Service {
	s := &Service{
		store:      opts.Store,
		images:     opts.Images,
		optimizer:  opts.Optimizer,
		allocator:  opts.Allocator,
		settings:   opts.Settings,
		categories: opts.Categories,
		fetcher:    opts.Fetcher,
		notifier:   opts.Notifier,
		catalog:    opts.Catalog,
		now:        opts.Clock,
		logger:     logger.With(slog.String("component", "personalized")),
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// CreateFromUpload stores an uploaded image as a new personalized sticker.
func (s *Service) CreateFromUpload(ctx context.Context, data []byte, entry Entry) (*models.PersonalizedSticker, error) {
	if len(data) == 0 {
		return nil, ErrMissingImage
	}
	return s.create(ctx, entry, models.SourceUpload, data, nil)
}

// CreateFromPinterest downloads the image behind a pin and stores it as a
// new personalized sticker. The URL is validated before any network call.
func (s *Service) CreateFromPinterest(ctx context.Context, pinURL string, entry Entry) (*models.PersonalizedSticker, error) {
	if !pinterest.IsValidURL(pinURL) {
		return nil, pinterest.ErrInvalidURL
	}
	data, _, err := s.fetcher.Fetch(ctx, pinURL)
	if err != nil {
		return nil, err
	}
	return s.create(ctx, entry, models.SourcePinterest, data, &pinURL)
}

func (s *Service) create(ctx context.Context, entry Entry, source models.Source, data []byte, originalURL *string) (*models.PersonalizedSticker, error) {
	optimized, err := s.optimizer.Optimize(data)
	if err != nil {
		return nil, err
	}

	now := s.now()
	imagePath, err := s.images.Save(ctx, storage.FileName(string(source), now), optimized)
	if err != nil {
		return nil, fmt.Errorf("save image: %w", err)
	}

	displayID, err := s.allocator.Next(ctx, ids.Personalized)
	if err != nil {
		s.rollbackImage(ctx, imagePath)
		return nil, err
	}

	status, expiresAt := InitialState(entry, now, s.retentionDays(ctx, entry))
	created, err := s.store.Create(ctx, &models.PersonalizedSticker{
		DisplayID:   displayID,
		ImagePath:   imagePath,
		Source:      source,
		OriginalURL: originalURL,
		Status:      status,
		ExpiresAt:   &expiresAt,
	})
	if err != nil {
		s.rollbackImage(ctx, imagePath)
		return nil, fmt.Errorf("create personalized sticker: %w", err)
	}

	s.logger.Info("personalized sticker created",
		slog.String("display_id", created.DisplayID),
		slog.String("status", string(created.Status)),
		slog.String("source", string(created.Source)),
	)
	s.notify(ctx, models.EventPersonalizedCreated, created)
	return created, nil
}

func (s *Service) retentionDays(ctx context.Context, entry Entry) int {
	if entry != EntryDirect {
		return 0
	}
	return s.settings.RetentionDays(ctx)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.PersonalizedSticker, error) {
	return s.store.GetByID(ctx, id)
}

// List returns every active sticker and the unexpired temporary ones,
// newest first.
func (s *Service) List(ctx context.Context) ([]*models.PersonalizedSticker, error) {
	return s.store.ListVisible(ctx, s.now())
}

// Confirm moves the temporary stickers among rawIDs to active and resets
// their retention date. Ids that are malformed, unknown or not temporary
// are skipped.
func (s *Service) Confirm(ctx context.Context, rawIDs []string) (*models.ConfirmResult, error) {
	result := &models.ConfirmResult{Requested: len(rawIDs)}

	seen := make(map[uuid.UUID]struct{}, len(rawIDs))
	parsed := make([]uuid.UUID, 0, len(rawIDs))
	for _, raw := range rawIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		parsed = append(parsed, id)
	}
	if len(parsed) == 0 {
		return result, nil
	}

	expiresAt := RetentionDeadline(s.now(), s.settings.RetentionDays(ctx))
	confirmed, err := s.store.ConfirmTemporary(ctx, parsed, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("confirm temporary stickers: %w", err)
	}
	result.ConfirmedCount = len(confirmed)

	if len(confirmed) > 0 {
		s.logger.Info("temporary stickers confirmed",
			slog.Int("requested", result.Requested),
			slog.Int("confirmed", result.ConfirmedCount),
		)
		s.notify(ctx, models.EventPersonalizedConfirmed, models.PersonalizedConfirmedEvent{
			IDs:   confirmed,
			Count: len(confirmed),
		})
	}
	return result, nil
}

// Publish turns the personalized sticker into a catalog sticker with the
// same display id and image, tagged "personalizados" plus the requested
// categories. The personalized record no longer exists afterwards.
func (s *Service) Publish(ctx context.Context, id uuid.UUID, requested []string) (*models.PublishResult, error) {
	p, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := CanPublish(p); err != nil {
		return nil, err
	}

	valid, err := s.categories.Validate(ctx, requested)
	if err != nil {
		return nil, err
	}
	cats := PublishCategories(valid)

	sticker, err := s.store.Publish(ctx, id, cats)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrAlreadyPublished) {
			return nil, err
		}
		return nil, fmt.Errorf("publish %s: %w", p.DisplayID, err)
	}

	if s.catalog != nil {
		s.catalog.Invalidate(ctx)
	}
	s.logger.Info("personalized sticker published",
		slog.String("display_id", sticker.DisplayID),
		slog.Any("categories", sticker.Categories),
	)
	s.notify(ctx, models.EventPersonalizedPublished, sticker)
	return &models.PublishResult{Sticker: sticker, Categories: cats}, nil
}

// Delete removes the record and its image. A missing image file does not
// fail the operation.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	p, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}

	if err := s.images.Delete(ctx, p.ImagePath); err != nil {
		s.logger.Warn("failed to delete personalized image",
			slog.String("display_id", p.DisplayID),
			slog.String("image_path", p.ImagePath),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("personalized sticker deleted", slog.String("display_id", p.DisplayID))
	s.notify(ctx, models.EventPersonalizedDeleted, models.PersonalizedDeletedEvent{
		ID:        p.ID,
		DisplayID: p.DisplayID,
	})
	return nil
}

func (s *Service) CountByStatus(ctx context.Context) (map[models.PersonalizedStatus]int, error) {
	return s.store.CountByStatus(ctx)
}

func (s *Service) rollbackImage(ctx context.Context, imagePath string) {
	if err := s.images.Delete(ctx, imagePath); err != nil {
		s.logger.Warn("failed to roll back image",
			slog.String("image_path", imagePath),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Service) notify(ctx context.Context, event string, payload any) {
	if s.notifier != nil {
		s.notifier.Notify(ctx, event, payload)
	}
}
