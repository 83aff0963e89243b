package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/user/avenida-stickers/internal/categories"
	"github.com/user/avenida-stickers/internal/models"
)

type CategoriesHandler struct {
	registry  *categories.Registry
	validator *validator.Validate
	logger    *slog.Logger
}

func NewCategoriesHandler(registry *categories.Registry, logger *slog.Logger) *CategoriesHandler {
	return &CategoriesHandler{
		registry:  registry,
		validator: validator.New(),
		logger:    logger.With(slog.String("component", "categories_handler")),
	}
}

func (h *CategoriesHandler) List(w http.ResponseWriter, r *http.Request) {
	respondList(w, "Categories", h.registry.List(r.Context()))
}

func (h *CategoriesHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req models.AddCategoryRequest
	if err := decodeJSON(r, h.validator, &req, false); err != nil {
		respondErrorDetail(w, http.StatusBadRequest, "Category name is required", err)
		return
	}

	list, err := h.registry.Add(r.Context(), req.Name)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to add category")
		return
	}
	respondOK(w, http.StatusCreated, "Category added", list)
}

// Delete unregisters the category and strips it from every sticker.
func (h *CategoriesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	list, err := h.registry.Delete(r.Context(), r.PathValue("category"))
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to delete category")
		return
	}
	respondOK(w, http.StatusOK, "Category deleted", list)
}
