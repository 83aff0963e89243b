package stickers

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/user/avenida-stickers/internal/cache"
	"github.com/user/avenida-stickers/internal/categories"
	"github.com/user/avenida-stickers/internal/ids"
	"github.com/user/avenida-stickers/internal/models"
	"github.com/user/avenida-stickers/internal/storage"
)

// Store is the catalog record store.
type Store interface {
	List(ctx context.Context, categories []string) ([]*models.Sticker, error)
	Search(ctx context.Context, q string) ([]*models.Sticker, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Sticker, error)
	Create(ctx context.Context, s *models.Sticker) (*models.Sticker, error)
	Update(ctx context.Context, id uuid.UUID, imagePath string, categories []string) (*models.Sticker, error)
	Delete(ctx context.Context, id uuid.UUID) (*models.Sticker, error)
	RemoveCategory(ctx context.Context, name string) (int64, error)
	Count(ctx context.Context) (int, error)
	CategoryStats(ctx context.Context) ([]models.CategoryCount, error)
	Recent(ctx context.Context, limit int) ([]*models.Sticker, error)
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

type CategoryValidator interface {
	Validate(ctx context.Context, names []string) ([]string, error)
}

// ListCache keeps catalog listings keyed by a version number that every
// write bumps.
type ListCache interface {
	GetJSON(ctx context.Context, key string, dest any) error
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	CatalogVersion(ctx context.Context) (int64, error)
	BumpCatalogVersion(ctx context.Context) error
}

type Service struct {
	store      Store
	images     ImageStore
	optimizer  Optimizer
	allocator  Allocator
	categories CategoryValidator
	cache      ListCache
	now        func() time.Time
	logger     *slog.Logger
}

func NewService(store Store, images ImageStore, optimizer Optimizer, allocator Allocator, categories CategoryValidator, logger *slog.Logger) *Service {
	return &Service{
		store:      store,
		images:     images,
		optimizer:  optimizer,
		allocator:  allocator,
		categories: categories,
		now:        time.Now,
		logger:     logger.With(slog.String("component", "catalog")),
	}
}

// WithCache enables caching of list and search results.
func (s *Service) WithCache(c ListCache) *Service {
	s.cache = c
	return s
}

// List returns stickers tagged with any of the given categories, or the
// whole catalog when none are given.
func (s *Service) List(ctx context.Context, filter []string) ([]*models.Sticker, error) {
	normalized := make([]string, 0, len(filter))
	for _, c := range filter {
		if c = categories.Normalize(c); c != "" && !slices.Contains(normalized, c) {
			normalized = append(normalized, c)
		}
	}
	slices.Sort(normalized)

	return s.cached(ctx, func(v int64) string { return cache.CatalogListKey(v, normalized) }, func() ([]*models.Sticker, error) {
		return s.store.List(ctx, normalized)
	})
}

func (s *Service) Search(ctx context.Context, q string) ([]*models.Sticker, error) {
	q = strings.ToLower(strings.TrimSpace(q))
	return s.cached(ctx, func(v int64) string { return cache.CatalogSearchKey(v, q) }, func() ([]*models.Sticker, error) {
		return s.store.Search(ctx, q)
	})
}

func (s *Service) cached(ctx context.Context, key func(int64) string, load func() ([]*models.Sticker, error)) ([]*models.Sticker, error) {
	if s.cache == nil {
		return load()
	}

	version, err := s.cache.CatalogVersion(ctx)
	if err != nil {
		s.logger.Warn("catalog cache unavailable", slog.String("error", err.Error()))
		return load()
	}

	k := key(version)
	var hit []*models.Sticker
	if err := s.cache.GetJSON(ctx, k, &hit); err == nil {
		return hit, nil
	}

	result, err := load()
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetJSON(ctx, k, result, cache.CatalogListTTL); err != nil {
		s.logger.Warn("failed to cache catalog listing", slog.String("key", k), slog.String("error", err.Error()))
	}
	return result, nil
}

// Invalidate drops every cached listing.
func (s *Service) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.BumpCatalogVersion(ctx); err != nil {
		s.logger.Warn("failed to invalidate catalog cache", slog.String("error", err.Error()))
	}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Sticker, error) {
	return s.store.GetByID(ctx, id)
}

// Create optimizes the image and adds it to the catalog under the next
// numeric display id.
func (s *Service) Create(ctx context.Context, image []byte, cats []string) (*models.Sticker, error) {
	valid, err := s.categories.Validate(ctx, cats)
	if err != nil {
		return nil, err
	}

	imagePath, err := s.saveImage(ctx, image)
	if err != nil {
		return nil, err
	}

	displayID, err := s.allocator.Next(ctx, ids.Catalog)
	if err != nil {
		s.discardImage(ctx, imagePath)
		return nil, err
	}

	created, err := s.store.Create(ctx, &models.Sticker{
		DisplayID:  displayID,
		ImagePath:  imagePath,
		Categories: valid,
	})
	if err != nil {
		s.discardImage(ctx, imagePath)
		return nil, fmt.Errorf("create sticker: %w", err)
	}

	s.Invalidate(ctx)
	s.logger.Info("sticker created", slog.String("display_id", created.DisplayID))
	return created, nil
}

// Update replaces the image when one is given and the categories when cats
// is not nil. A replaced image is deleted once the record points at the new
// one.
func (s *Service) Update(ctx context.Context, id uuid.UUID, image []byte, cats []string) (*models.Sticker, error) {
	current, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	nextCats := current.Categories
	if cats != nil {
		if nextCats, err = s.categories.Validate(ctx, cats); err != nil {
			return nil, err
		}
	}

	nextPath := current.ImagePath
	if len(image) > 0 {
		if nextPath, err = s.saveImage(ctx, image); err != nil {
			return nil, err
		}
	}

	updated, err := s.store.Update(ctx, id, nextPath, nextCats)
	if err != nil {
		if nextPath != current.ImagePath {
			s.discardImage(ctx, nextPath)
		}
		return nil, err
	}
	if nextPath != current.ImagePath {
		s.discardImage(ctx, current.ImagePath)
	}

	s.Invalidate(ctx)
	s.logger.Info("sticker updated", slog.String("display_id", updated.DisplayID))
	return updated, nil
}

// Delete removes the sticker and its image.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) (*models.Sticker, error) {
	deleted, err := s.store.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	s.discardImage(ctx, deleted.ImagePath)
	s.Invalidate(ctx)
	s.logger.Info("sticker deleted", slog.String("display_id", deleted.DisplayID))
	return deleted, nil
}

// RemoveCategory strips a category from every sticker.
func (s *Service) RemoveCategory(ctx context.Context, name string) (int64, error) {
	n, err := s.store.RemoveCategory(ctx, name)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.Invalidate(ctx)
	}
	return n, nil
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.store.Count(ctx)
}

func (s *Service) CategoryStats(ctx context.Context) ([]models.CategoryCount, error) {
	return s.store.CategoryStats(ctx)
}

func (s *Service) Recent(ctx context.Context, limit int) ([]*models.Sticker, error) {
	return s.store.Recent(ctx, limit)
}

func (s *Service) saveImage(ctx context.Context, image []byte) (string, error) {
	optimized, err := s.optimizer.Optimize(image)
	if err != nil {
		return "", err
	}
	imagePath, err := s.images.Save(ctx, storage.FileName("sticker", s.now()), optimized)
	if err != nil {
		return "", fmt.Errorf("save image: %w", err)
	}
	return imagePath, nil
}

func (s *Service) discardImage(ctx context.Context, imagePath string) {
	if err := s.images.Delete(ctx, imagePath); err != nil {
		s.logger.Warn("failed to delete image",
			slog.String("image_path", imagePath),
			slog.String("error", err.Error()),
		)
	}
}
