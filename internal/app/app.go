// Package app builds the services shared by the HTTP server and the
// operator CLI from one Config.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/user/avenida-stickers/internal/cache"
	"github.com/user/avenida-stickers/internal/categories"
	"github.com/user/avenida-stickers/internal/config"
	"github.com/user/avenida-stickers/internal/configstore"
	"github.com/user/avenida-stickers/internal/database"
	"github.com/user/avenida-stickers/internal/ids"
	"github.com/user/avenida-stickers/internal/imageproc"
	"github.com/user/avenida-stickers/internal/personalized"
	"github.com/user/avenida-stickers/internal/pinterest"
	"github.com/user/avenida-stickers/internal/stickers"
	"github.com/user/avenida-stickers/internal/storage"
	"github.com/user/avenida-stickers/internal/sweeper"
)

// ConfigCacheTTL bounds how stale a runtime configuration read can be.
const ConfigCacheTTL = 30 * time.Second

type App struct {
	Config *config.Config
	DB     *database.DB

	Settings   *configstore.Store
	Images     storage.Store
	Local      *storage.Local // nil with the S3 backend
	Cache      *cache.RedisCache
	Allocator  *ids.Allocator
	Optimizer  *imageproc.Optimizer
	Categories *categories.Registry

	CatalogRepo      *stickers.Repository
	Catalog          *stickers.Service
	PersonalizedRepo *personalized.Repository

	logger *slog.Logger
}

// New connects to the database, applies migrations and builds the catalog.
// The caller must Close the returned App.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(logger); err != nil {
		db.Close()
		return nil, err
	}

	a := &App{
		Config:           cfg,
		DB:               db,
		Settings:         configstore.New(configstore.NewRepository(db.Pool), ConfigCacheTTL, logger),
		Allocator:        ids.NewAllocator(db.Pool),
		Optimizer:        imageproc.New(),
		CatalogRepo:      stickers.NewRepository(db.Pool),
		PersonalizedRepo: personalized.NewRepository(db.Pool),
		logger:           logger,
	}

	if err := a.Allocator.Reconcile(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if err := a.openStorage(); err != nil {
		db.Close()
		return nil, err
	}

	// Redis cache (optional)
	if cfg.RedisEnabled() {
		redisCache, err := cache.NewRedisCache(cfg.RedisAddr)
		if err != nil {
			logger.Warn("redis not available, running without cache", slog.String("error", err.Error()))
		} else {
			a.Cache = redisCache
			logger.Info("redis cache initialized", slog.String("addr", cfg.RedisAddr))
		}
	}

	// The registry strips deleted categories through the catalog service so
	// cached listings are invalidated too.
	a.Categories = categories.NewRegistry(a.Settings, categories.CatalogFunc(func(ctx context.Context, name string) (int64, error) {
		return a.Catalog.RemoveCategory(ctx, name)
	}), logger)

	a.Catalog = stickers.NewService(a.CatalogRepo, a.Images, a.Optimizer, a.Allocator, a.Categories, logger)
	if a.Cache != nil {
		a.Catalog.WithCache(a.Cache)
	}

	return a, nil
}

func (a *App) openStorage() error {
	cfg := a.Config
	switch cfg.StorageBackend {
	case config.StorageS3:
		s3Storage, err := storage.NewS3Storage(storage.Config{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			CDNURL:          cfg.S3CDNURL,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 storage: %w", err)
		}
		a.Images = s3Storage
		a.logger.Info("S3 storage initialized", slog.String("bucket", cfg.S3Bucket))
	default:
		local, err := storage.NewLocal(cfg.ContentDir)
		if err != nil {
			return err
		}
		a.Images = local
		a.Local = local
		a.logger.Info("local storage initialized", slog.String("dir", local.Dir()))
	}
	return nil
}

// InitializeDefaults seeds the runtime configuration keys that are missing.
func (a *App) InitializeDefaults(ctx context.Context) (int, error) {
	return a.Settings.InitializeDefaults(ctx)
}

func (a *App) PinterestClient() *pinterest.Client {
	return pinterest.NewClient(a.Config.PageFetchTimeout, a.Config.ImageFetchTimeout, a.Config.MaxUploadSize, a.logger)
}

// Personalized builds the lifecycle service. notifier may be nil.
func (a *App) Personalized(notifier personalized.Notifier) *personalized.Service {
	return personalized.NewService(personalized.Options{
		Store:      a.PersonalizedRepo,
		Images:     a.Images,
		Optimizer:  a.Optimizer,
		Allocator:  a.Allocator,
		Settings:   a.Settings,
		Categories: a.Categories,
		Fetcher:    a.PinterestClient(),
		Notifier:   notifier,
		Catalog:    a.Catalog,
	}, a.logger)
}

// Sweeper builds the expiry sweeper. notifier may be nil.
func (a *App) Sweeper(notifier sweeper.Notifier) *sweeper.Sweeper {
	sw := sweeper.New(a.PersonalizedRepo, a.Images, a.Settings, a.Config.SweepInterval, a.logger)
	if notifier != nil {
		sw.WithNotifier(notifier)
	}
	return sw
}

func (a *App) Close() {
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.logger.Warn("failed to close redis", slog.String("error", err.Error()))
		}
	}
	a.DB.Close()
}
