package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/user/avenida-stickers/internal/stickers"
)

type StickersHandler struct {
	svc       *stickers.Service
	maxUpload int64
	logger    *slog.Logger
}

func NewStickersHandler(svc *stickers.Service, maxUpload int64, logger *slog.Logger) *StickersHandler {
	return &StickersHandler{
		svc:       svc,
		maxUpload: maxUpload,
		logger:    logger.With(slog.String("component", "stickers_handler")),
	}
}

// List returns the catalog, optionally filtered with ?categories=a,b.
func (h *StickersHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := splitList(append(q["categories"], q["category"]...))

	list, err := h.svc.List(r.Context(), filter)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to get stickers")
		return
	}
	respondList(w, "Stickers", list)
}

// Search matches display ids and categories.
func (h *StickersHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		respondError(w, http.StatusBadRequest, "Search query is required")
		return
	}

	list, err := h.svc.Search(r.Context(), q)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to search stickers")
		return
	}
	respondList(w, "Search results", list)
}

func (h *StickersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid sticker ID")
		return
	}

	s, err := h.svc.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to get sticker")
		return
	}
	respondOK(w, http.StatusOK, "Sticker", s)
}

// Create adds an uploaded image to the catalog. Categories come in the
// "categories" form field as a comma separated list.
func (h *StickersHandler) Create(w http.ResponseWriter, r *http.Request) {
	data, err := readImage(w, r, h.maxUpload, false)
	if err != nil {
		respondErrorDetail(w, http.StatusBadRequest, "Invalid image upload", err)
		return
	}

	created, err := h.svc.Create(r.Context(), data, splitList(r.MultipartForm.Value["categories"]))
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to create sticker")
		return
	}
	respondOK(w, http.StatusCreated, "Sticker created", created)
}

// Update replaces the image and/or the categories. A request without a
// "categories" field keeps the current ones; an empty field clears them.
func (h *StickersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid sticker ID")
		return
	}

	data, err := readImage(w, r, h.maxUpload, true)
	if err != nil {
		respondErrorDetail(w, http.StatusBadRequest, "Invalid image upload", err)
		return
	}

	var cats []string
	if r.MultipartForm != nil {
		if raw, present := r.MultipartForm.Value["categories"]; present {
			cats = splitList(raw)
		}
	}
	if data == nil && cats == nil {
		respondError(w, http.StatusBadRequest, "Nothing to update")
		return
	}

	updated, err := h.svc.Update(r.Context(), id, data, cats)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to update sticker")
		return
	}
	respondOK(w, http.StatusOK, "Sticker updated", updated)
}

func (h *StickersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid sticker ID")
		return
	}

	deleted, err := h.svc.Delete(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to delete sticker")
		return
	}
	respondOK(w, http.StatusOK, "Sticker deleted", deleted)
}
