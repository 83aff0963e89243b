// Package categories keeps the list of valid catalog categories in the
// runtime configuration store.
package categories

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/user/avenida-stickers/internal/configstore"
	"github.com/user/avenida-stickers/internal/models"
)

// Personalized is attached to every sticker published from a personalized
// sticker. It is always registered and cannot be removed.
const Personalized = "personalizados"

var (
	ErrUnknownCategory   = errors.New("unknown category")
	ErrDuplicateCategory = errors.New("category already exists")
	ErrProtectedCategory = errors.New("category cannot be deleted")
	ErrCategoryNotFound  = errors.New("category not found")
	ErrInvalidName       = errors.New("invalid category name")
)

type ConfigStore interface {
	Strings(ctx context.Context, key string, def []string) []string
	Set(ctx context.Context, key string, value any, typ models.ConfigType, description string) (*models.ConfigEntry, error)
}

// CatalogUpdater strips a removed category from catalog stickers.
type CatalogUpdater interface {
	RemoveCategory(ctx context.Context, name string) (int64, error)
}

// CatalogFunc adapts a function to CatalogUpdater.
type CatalogFunc func(ctx context.Context, name string) (int64, error)

func (f CatalogFunc) RemoveCategory(ctx context.Context, name string) (int64, error) {
	return f(ctx, name)
}

type Registry struct {
	cfg     ConfigStore
	catalog CatalogUpdater
	logger  *slog.Logger
	mu      sync.Mutex
}

func NewRegistry(cfg ConfigStore, catalog CatalogUpdater, logger *slog.Logger) *Registry {
	return &Registry{
		cfg:     cfg,
		catalog: catalog,
		logger:  logger.With(slog.String("component", "categories")),
	}
}

// Normalize trims and lower-cases a category name.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// List returns the registered categories, sorted.
func (r *Registry) List(ctx context.Context) []string {
	names := r.cfg.Strings(ctx, configstore.KeyCategories, nil)
	out := make([]string, 0, len(names)+1)
	for _, n := range names {
		n = Normalize(n)
		if n != "" && !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	if !slices.Contains(out, Personalized) {
		out = append(out, Personalized)
	}
	slices.Sort(out)
	return out
}

func (r *Registry) Add(ctx context.Context, name string) ([]string, error) {
	name = Normalize(name)
	if name == "" || len(name) > 64 {
		return nil, ErrInvalidName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.List(ctx)
	if slices.Contains(current, name) {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateCategory, name)
	}
	next := append(current, name)
	slices.Sort(next)

	if err := r.save(ctx, next); err != nil {
		return nil, err
	}
	r.logger.Info("category added", slog.String("category", name))
	return next, nil
}

// Delete unregisters name and removes it from every catalog sticker.
func (r *Registry) Delete(ctx context.Context, name string) ([]string, error) {
	name = Normalize(name)
	if name == Personalized {
		return nil, fmt.Errorf("%w: %s", ErrProtectedCategory, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.List(ctx)
	idx := slices.Index(current, name)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrCategoryNotFound, name)
	}
	next := slices.Delete(slices.Clone(current), idx, idx+1)

	if err := r.save(ctx, next); err != nil {
		return nil, err
	}

	updated, err := r.catalog.RemoveCategory(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("remove %s from catalog: %w", name, err)
	}
	r.logger.Info("category deleted",
		slog.String("category", name),
		slog.Int64("stickers_updated", updated),
	)
	return next, nil
}

// Validate normalizes and deduplicates names, failing on the first one that
// is not registered.
func (r *Registry) Validate(ctx context.Context, names []string) ([]string, error) {
	registered := r.List(ctx)
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = Normalize(n)
		if n == "" || slices.Contains(out, n) {
			continue
		}
		if !slices.Contains(registered, n) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, n)
		}
		out = append(out, n)
	}
	return out, nil
}

func (r *Registry) save(ctx context.Context, names []string) error {
	if _, err := r.cfg.Set(ctx, configstore.KeyCategories, names, models.ConfigArray, "Valid catalog categories"); err != nil {
		return fmt.Errorf("save categories: %w", err)
	}
	return nil
}
