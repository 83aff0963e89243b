package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/user/avenida-stickers/internal/auth"
	"github.com/user/avenida-stickers/internal/categories"
	"github.com/user/avenida-stickers/internal/configstore"
	"github.com/user/avenida-stickers/internal/models"
	"github.com/user/avenida-stickers/internal/personalized"
	"github.com/user/avenida-stickers/internal/stickers"
)

const recentStickersLimit = 5

type AdminHandler struct {
	tokens       *auth.TokenService
	config       *configstore.Store
	stickers     *stickers.Service
	personalized *personalized.Service
	categories   *categories.Registry
	validator    *validator.Validate
	logger       *slog.Logger
}

func NewAdminHandler(
	tokens *auth.TokenService,
	config *configstore.Store,
	stickerSvc *stickers.Service,
	personalizedSvc *personalized.Service,
	registry *categories.Registry,
	logger *slog.Logger,
) *AdminHandler {
	return &AdminHandler{
		tokens:       tokens,
		config:       config,
		stickers:     stickerSvc,
		personalized: personalizedSvc,
		categories:   registry,
		validator:    validator.New(),
		logger:       logger.With(slog.String("component", "admin_handler")),
	}
}

// Auth exchanges the admin key for a session token.
func (h *AdminHandler) Auth(w http.ResponseWriter, r *http.Request) {
	var req models.AdminAuthRequest
	if err := decodeJSON(r, h.validator, &req, false); err != nil {
		respondError(w, http.StatusBadRequest, "adminKey is required")
		return
	}

	if err := h.tokens.CheckKey(req.AdminKey); err != nil {
		if errors.Is(err, auth.ErrAdminDisabled) {
			RespondInternalError(w, "Admin access is not configured")
			return
		}
		RespondUnauthorized(w, "Invalid admin key")
		return
	}

	token, expiresAt, err := h.tokens.GenerateAdminToken()
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to issue token")
		return
	}

	respondOK(w, http.StatusOK, "Authenticated", map[string]any{
		"token":     token,
		"expiresAt": expiresAt.UTC().Format(time.RFC3339),
	})
}

func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	total, err := h.stickers.Count(ctx)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to load dashboard")
		return
	}
	byCategory, err := h.stickers.CategoryStats(ctx)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to load dashboard")
		return
	}
	recent, err := h.stickers.Recent(ctx, recentStickersLimit)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to load dashboard")
		return
	}
	byStatus, err := h.personalized.CountByStatus(ctx)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to load dashboard")
		return
	}

	respondOK(w, http.StatusOK, "Dashboard", models.DashboardStats{
		TotalStickers:       total,
		TotalCategories:     len(h.categories.List(ctx)),
		TotalSizes:          len(h.sizes(r).Sizes),
		CategoryStats:       byCategory,
		RecentStickers:      recent,
		PersonalizedByState: byStatus,
	})
}

func (h *AdminHandler) sizes(r *http.Request) models.SizesConfig {
	cfg := models.SizesConfig{Sizes: []models.StickerSize{}, Currency: configstore.DefaultCurrency}
	if err := h.config.Decode(r.Context(), configstore.KeySizes, &cfg); err != nil && !errors.Is(err, configstore.ErrNotFound) {
		h.logger.Warn("failed to read sticker sizes", slog.String("error", err.Error()))
	}
	if cfg.Sizes == nil {
		cfg.Sizes = []models.StickerSize{}
	}
	if cfg.Currency == "" {
		cfg.Currency = configstore.DefaultCurrency
	}
	return cfg
}

func (h *AdminHandler) GetSizes(w http.ResponseWriter, r *http.Request) {
	respondOK(w, http.StatusOK, "Sticker sizes", h.sizes(r))
}

// UpdateSizes replaces the size and price table.
func (h *AdminHandler) UpdateSizes(w http.ResponseWriter, r *http.Request) {
	var req models.SizesConfig
	if err := decodeJSON(r, h.validator, &req, false); err != nil {
		respondErrorDetail(w, http.StatusBadRequest, "Every size needs an id, name, dimensions and a price", err)
		return
	}

	seen := make(map[string]bool, len(req.Sizes))
	for _, s := range req.Sizes {
		if seen[s.ID] {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("Duplicate size id %q", s.ID))
			return
		}
		seen[s.ID] = true
	}
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if req.Currency == "" {
		req.Currency = configstore.DefaultCurrency
	}
	req.UpdatedAt = time.Now().UTC().Format(time.RFC3339)

	if _, err := h.config.Set(r.Context(), configstore.KeySizes, req, models.ConfigObject, "Sticker sizes and prices"); err != nil {
		respondServiceError(w, h.logger, err, "Failed to save sticker sizes")
		return
	}
	respondOK(w, http.StatusOK, "Sticker sizes updated", req)
}

func (h *AdminHandler) ListConfig(w http.ResponseWriter, r *http.Request) {
	entries, err := h.config.List(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to get configuration")
		return
	}
	respondList(w, "Configuration", entries)
}

// SetConfig stores a typed value under the key in the path.
func (h *AdminHandler) SetConfig(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(r.PathValue("key"))
	if key == "" {
		respondError(w, http.StatusBadRequest, "Config key is required")
		return
	}

	var req models.SetConfigRequest
	if err := decodeJSON(r, h.validator, &req, false); err != nil {
		respondErrorDetail(w, http.StatusBadRequest, "value and a valid type are required", err)
		return
	}

	entry, err := h.config.SetRaw(r.Context(), key, req.Value, req.Type, req.Description)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to save configuration")
		return
	}
	respondOK(w, http.StatusOK, "Configuration updated", entry)
}
