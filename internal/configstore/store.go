// Package configstore is the typed key/value runtime configuration. Reads
// never fail: a missing key or a backend error yields the caller's default.
package configstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/user/avenida-stickers/internal/models"
)

const (
	KeyAutoDeleteDays    = "personalized_stickers_auto_delete_days"
	KeyAutoDeleteEnabled = "enable_auto_delete_personalized"
	KeyCategories        = "sticker_categories"
	KeySizes             = "sticker_sizes"

	DefaultRetentionDays = 15
	DefaultCurrency      = "ARS"
)

var (
	ErrNotFound     = errors.New("config key not found")
	ErrTypeMismatch = errors.New("config value does not match its type")
)

// Backend is the persistence behind the store.
type Backend interface {
	Get(ctx context.Context, key string) (*models.ConfigEntry, error)
	List(ctx context.Context) ([]*models.ConfigEntry, error)
	Upsert(ctx context.Context, entry *models.ConfigEntry) (*models.ConfigEntry, error)
	InsertIfAbsent(ctx context.Context, entry *models.ConfigEntry) (bool, error)
}

type Store struct {
	backend Backend
	cache   *cache.Cache
	logger  *slog.Logger
}

// New wraps backend with a short-lived in-process cache. Writes through the
// store invalidate the cached key immediately.
func New(backend Backend, ttl time.Duration, logger *slog.Logger) *Store {
	return &Store{
		backend: backend,
		cache:   cache.New(ttl, 2*ttl),
		logger:  logger.With(slog.String("component", "configstore")),
	}
}

// Get returns the entry stored under key.
func (s *Store) Get(ctx context.Context, key string) (*models.ConfigEntry, error) {
	if cached, found := s.cache.Get(key); found {
		return cached.(*models.ConfigEntry), nil
	}
	entry, err := s.backend.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, entry, cache.DefaultExpiration)
	return entry, nil
}

func (s *Store) List(ctx context.Context) ([]*models.ConfigEntry, error) {
	return s.backend.List(ctx)
}

// Decode unmarshals the value stored under key into dest.
func (s *Store) Decode(ctx context.Context, key string, dest any) error {
	entry, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal(entry.Value, dest)
}

// Int returns the numeric value under key, or def on any error.
func (s *Store) Int(ctx context.Context, key string, def int) int {
	var v float64
	if err := s.Decode(ctx, key, &v); err != nil {
		s.logFallback(key, err)
		return def
	}
	return int(v)
}

// Bool returns the boolean value under key, or def on any error.
func (s *Store) Bool(ctx context.Context, key string, def bool) bool {
	var v bool
	if err := s.Decode(ctx, key, &v); err != nil {
		s.logFallback(key, err)
		return def
	}
	return v
}

// Strings returns the string array under key, or def on any error.
func (s *Store) Strings(ctx context.Context, key string, def []string) []string {
	var v []string
	if err := s.Decode(ctx, key, &v); err != nil {
		s.logFallback(key, err)
		return def
	}
	return v
}

// RetentionDays is how long confirmed or admin-created personalized
// stickers are kept before their retention date.
func (s *Store) RetentionDays(ctx context.Context) int {
	days := s.Int(ctx, KeyAutoDeleteDays, DefaultRetentionDays)
	if days <= 0 {
		return DefaultRetentionDays
	}
	return days
}

// AutoDeleteEnabled gates the expiry sweeper.
func (s *Store) AutoDeleteEnabled(ctx context.Context) bool {
	return s.Bool(ctx, KeyAutoDeleteEnabled, true)
}

// Set marshals value and stores it under key with the declared type.
func (s *Store) Set(ctx context.Context, key string, value any, typ models.ConfigType, description string) (*models.ConfigEntry, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", key, err)
	}
	return s.SetRaw(ctx, key, raw, typ, description)
}

// SetRaw stores an already encoded JSON value after checking it matches typ.
func (s *Store) SetRaw(ctx context.Context, key string, raw json.RawMessage, typ models.ConfigType, description string) (*models.ConfigEntry, error) {
	if err := CheckType(raw, typ); err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	entry, err := s.backend.Upsert(ctx, &models.ConfigEntry{
		Key:         key,
		Value:       raw,
		Type:        typ,
		Description: description,
	})
	s.cache.Delete(key)
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", key, err)
	}
	return entry, nil
}

type defaultEntry struct {
	key         string
	value       any
	typ         models.ConfigType
	description string
}

var defaults = []defaultEntry{
	{KeyAutoDeleteDays, DefaultRetentionDays, models.ConfigNumber, "Days a confirmed personalized sticker is retained before its retention date"},
	{KeyAutoDeleteEnabled, true, models.ConfigBoolean, "Enable automatic deletion of expired temporary personalized stickers"},
	{KeyCategories, []string{"personalizados"}, models.ConfigArray, "Valid catalog categories"},
	{KeySizes, models.SizesConfig{Sizes: []models.StickerSize{}, Currency: DefaultCurrency}, models.ConfigObject, "Sticker sizes and prices"},
}

// InitializeDefaults seeds every default key that is not present yet and
// returns how many were written. Existing values are never overwritten.
func (s *Store) InitializeDefaults(ctx context.Context) (int, error) {
	seeded := 0
	for _, d := range defaults {
		raw, err := json.Marshal(d.value)
		if err != nil {
			return seeded, err
		}
		inserted, err := s.backend.InsertIfAbsent(ctx, &models.ConfigEntry{
			Key:         d.key,
			Value:       raw,
			Type:        d.typ,
			Description: d.description,
		})
		if err != nil {
			return seeded, fmt.Errorf("seed %s: %w", d.key, err)
		}
		if inserted {
			seeded++
			s.logger.Info("config default initialized",
				slog.String("key", d.key),
				slog.String("value", string(raw)),
			)
		}
	}
	return seeded, nil
}

func (s *Store) logFallback(key string, err error) {
	if errors.Is(err, ErrNotFound) {
		return
	}
	s.logger.Warn("config read failed, using default",
		slog.String("key", key),
		slog.String("error", err.Error()),
	)
}

// CheckType verifies the JSON kind of raw matches typ.
func CheckType(raw json.RawMessage, typ models.ConfigType) error {
	if !typ.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrTypeMismatch, typ)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("%w: %v", ErrTypeMismatch, err)
	}

	ok := false
	switch v.(type) {
	case float64:
		ok = typ == models.ConfigNumber
	case string:
		ok = typ == models.ConfigString
	case bool:
		ok = typ == models.ConfigBoolean
	case map[string]any:
		ok = typ == models.ConfigObject
	case []any:
		ok = typ == models.ConfigArray
	}
	if !ok {
		return fmt.Errorf("%w: value is not a %s", ErrTypeMismatch, typ)
	}
	return nil
}
