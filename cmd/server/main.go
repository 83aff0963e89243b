package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/user/avenida-stickers/internal/app"
	"github.com/user/avenida-stickers/internal/auth"
	"github.com/user/avenida-stickers/internal/config"
	"github.com/user/avenida-stickers/internal/handlers"
	"github.com/user/avenida-stickers/internal/realtime"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	seeded, err := a.InitializeDefaults(ctx)
	if err != nil {
		return err
	}
	logger.Info("runtime configuration ready", slog.Int("defaults_seeded", seeded))

	tokenService := auth.NewTokenService(cfg.AdminKey, cfg.AdminTokenTTL)
	if !tokenService.Enabled() {
		logger.Warn("ADMIN_KEY is empty, admin routes will answer 500")
	}

	// Centrifuge realtime node for the admin panel
	rtNode, err := realtime.NewNode(tokenService, realtime.NewProvider(a.PersonalizedRepo), logger)
	if err != nil {
		return err
	}
	rtNotifier := realtime.NewNotifier(rtNode, logger)

	personalizedSvc := a.Personalized(rtNotifier)
	sweep := a.Sweeper(rtNotifier)
	sweep.Start(ctx)
	defer sweep.Stop()

	uploadsDir := ""
	if a.Local != nil {
		uploadsDir = a.Local.Dir()
	}

	api := &api{
		personalized: handlers.NewPersonalizedHandler(personalizedSvc, a.PinterestClient(), sweep, cfg.MaxUploadSize, logger),
		stickers:     handlers.NewStickersHandler(a.Catalog, cfg.MaxUploadSize, logger),
		categories:   handlers.NewCategoriesHandler(a.Categories, logger),
		admin:        handlers.NewAdminHandler(tokenService, a.Settings, a.Catalog, personalizedSvc, a.Categories, logger),
		health:       handlers.NewHealthHandler(a.DB),
		tokens:       tokenService,
		ws:           rtNode.WebsocketHandler(),
		uploadsDir:   uploadsDir,
		images:       a.Images,
		corsOrigin:   cfg.CORSOrigin,
		logger:       logger,
	}

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     api.routes(),
		ReadTimeout: 15 * time.Second,
		// websocket connections are long lived
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := rtNode.Shutdown(shutdownCtx); err != nil {
		logger.Warn("centrifuge shutdown error", slog.String("error", err.Error()))
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logger.Info("server stopped")
	return nil
}
