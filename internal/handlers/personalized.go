package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/user/avenida-stickers/internal/models"
	"github.com/user/avenida-stickers/internal/personalized"
	"github.com/user/avenida-stickers/internal/pinterest"
)

// PinResolver finds the image behind a pin without downloading it.
type PinResolver interface {
	ResolveImageURL(ctx context.Context, pinURL string) (string, error)
}

// Sweeper runs the expiry sweep on demand.
type Sweeper interface {
	RunOnce(ctx context.Context) *models.SweepResult
}

type PersonalizedHandler struct {
	svc       *personalized.Service
	resolver  PinResolver
	sweeper   Sweeper
	validator *validator.Validate
	maxUpload int64
	logger    *slog.Logger
}

func NewPersonalizedHandler(svc *personalized.Service, resolver PinResolver, sweeper Sweeper, maxUpload int64, logger *slog.Logger) *PersonalizedHandler {
	return &PersonalizedHandler{
		svc:       svc,
		resolver:  resolver,
		sweeper:   sweeper,
		validator: validator.New(),
		maxUpload: maxUpload,
		logger:    logger.With(slog.String("component", "personalized_handler")),
	}
}

// CreateTemporary stores an uploaded image for a cart. It expires in an
// hour unless confirmed.
func (h *PersonalizedHandler) CreateTemporary(w http.ResponseWriter, r *http.Request) {
	h.createFromUpload(w, r, personalized.EntryCart, "Temporary personalized sticker created")
}

// Create stores an uploaded image as an active sticker.
func (h *PersonalizedHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.createFromUpload(w, r, personalized.EntryDirect, "Personalized sticker created")
}

func (h *PersonalizedHandler) CreateTemporaryFromPinterest(w http.ResponseWriter, r *http.Request) {
	h.createFromPinterest(w, r, personalized.EntryCart, "Temporary personalized sticker created from Pinterest")
}

func (h *PersonalizedHandler) CreateFromPinterest(w http.ResponseWriter, r *http.Request) {
	h.createFromPinterest(w, r, personalized.EntryDirect, "Personalized sticker created from Pinterest")
}

func (h *PersonalizedHandler) createFromUpload(w http.ResponseWriter, r *http.Request, entry personalized.Entry, message string) {
	data, err := readImage(w, r, h.maxUpload, false)
	if err != nil {
		respondErrorDetail(w, http.StatusBadRequest, "Invalid image upload", err)
		return
	}

	created, err := h.svc.CreateFromUpload(r.Context(), data, entry)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to create personalized sticker")
		return
	}

	respondOK(w, http.StatusCreated, message, created)
}

func (h *PersonalizedHandler) createFromPinterest(w http.ResponseWriter, r *http.Request, entry personalized.Entry, message string) {
	var req models.PinterestRequest
	if err := decodeJSON(r, h.validator, &req, false); err != nil {
		respondErrorDetail(w, http.StatusBadRequest, "A valid pinterestUrl is required", err)
		return
	}

	created, err := h.svc.CreateFromPinterest(r.Context(), req.PinterestURL, entry)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to create personalized sticker")
		return
	}

	respondOK(w, http.StatusCreated, message, created)
}

// ConfirmTemporary activates the cart stickers of a placed order. Ids that
// cannot be confirmed are skipped and the counts tell how many made it.
func (h *PersonalizedHandler) ConfirmTemporary(w http.ResponseWriter, r *http.Request) {
	var req models.ConfirmTemporaryRequest
	if err := decodeJSON(r, h.validator, &req, false); err != nil || len(req.StickerIDs) == 0 {
		respondError(w, http.StatusBadRequest, "stickerIds must be a non-empty array")
		return
	}

	result, err := h.svc.Confirm(r.Context(), req.StickerIDs)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to confirm stickers")
		return
	}

	respondOK(w, http.StatusOK,
		fmt.Sprintf("%d of %d stickers confirmed", result.ConfirmedCount, result.Requested),
		result,
	)
}

func (h *PersonalizedHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to get personalized stickers")
		return
	}
	respondList(w, "Personalized stickers", list)
}

func (h *PersonalizedHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid sticker ID")
		return
	}

	p, err := h.svc.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to get personalized sticker")
		return
	}
	respondOK(w, http.StatusOK, "Personalized sticker", p)
}

func (h *PersonalizedHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid sticker ID")
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err, "Failed to delete personalized sticker")
		return
	}
	respondOK(w, http.StatusOK, "Personalized sticker deleted", nil)
}

// Publish moves the sticker into the catalog. The body is optional.
func (h *PersonalizedHandler) Publish(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid sticker ID")
		return
	}

	var req models.PublishRequest
	if err := decodeJSON(r, h.validator, &req, true); err != nil {
		respondErrorDetail(w, http.StatusBadRequest, "Invalid categories", err)
		return
	}

	result, err := h.svc.Publish(r.Context(), id, req.Categories)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to publish sticker")
		return
	}

	respondOK(w, http.StatusOK,
		fmt.Sprintf("Sticker %s published to the catalog", result.Sticker.DisplayID),
		result,
	)
}

// CleanupExpired runs a sweep now.
func (h *PersonalizedHandler) CleanupExpired(w http.ResponseWriter, r *http.Request) {
	result := h.sweeper.RunOnce(r.Context())
	respondOK(w, http.StatusOK, result.Message, result)
}

// PreviewPinterest resolves a pin to its image URL without storing
// anything.
func (h *PersonalizedHandler) PreviewPinterest(w http.ResponseWriter, r *http.Request) {
	var req models.PinterestRequest
	if err := decodeJSON(r, h.validator, &req, false); err != nil {
		respondErrorDetail(w, http.StatusBadRequest, "A valid pinterestUrl is required", err)
		return
	}
	if !pinterest.IsValidURL(req.PinterestURL) {
		respondErrorDetail(w, http.StatusBadRequest, "Invalid Pinterest URL", pinterest.ErrInvalidURL)
		return
	}

	imageURL, err := h.resolver.ResolveImageURL(r.Context(), req.PinterestURL)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to resolve Pinterest image")
		return
	}

	respondOK(w, http.StatusOK, "Pinterest image found", map[string]string{
		"pinterestUrl": req.PinterestURL,
		"imageUrl":     imageURL,
	})
}
