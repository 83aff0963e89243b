package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/user/avenida-stickers/internal/categories"
	"github.com/user/avenida-stickers/internal/configstore"
	"github.com/user/avenida-stickers/internal/imageproc"
	"github.com/user/avenida-stickers/internal/personalized"
	"github.com/user/avenida-stickers/internal/pinterest"
	"github.com/user/avenida-stickers/internal/stickers"
)

// DefaultMaxUploadSize bounds multipart image uploads.
const DefaultMaxUploadSize = 10 << 20

var (
	errNoImage     = errors.New("no image provided")
	errNotAnImage  = errors.New("only image files are allowed")
	errTooLarge    = errors.New("image is too large")
	errInvalidBody = errors.New("invalid request body")
)

// readImage returns the bytes of the multipart "image" file. When optional
// is set, a request without the file yields nil and no error.
func readImage(w http.ResponseWriter, r *http.Request, maxSize int64, optional bool) ([]byte, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxUploadSize
	}
	// room for the other form fields
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+1<<20)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errTooLarge
		}
		if optional && errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, errInvalidBody
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		if optional && errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, errNoImage
	}
	defer file.Close()

	if header.Size > maxSize {
		return nil, errTooLarge
	}
	if ct := header.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		return nil, errNotAnImage
	}

	data, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		return nil, errInvalidBody
	}
	if int64(len(data)) > maxSize {
		return nil, errTooLarge
	}
	if len(data) == 0 {
		return nil, errNoImage
	}
	return data, nil
}

// decodeJSON reads the body into dst and validates it. An empty body is
// accepted when allowEmpty is set.
func decodeJSON(r *http.Request, v *validator.Validate, dst any, allowEmpty bool) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return errInvalidBody
	}
	if err := v.Struct(dst); err != nil {
		return err
	}
	return nil
}

func parseID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	return id, err == nil
}

// splitList parses "a,b" lists from query strings and form fields.
func splitList(raw []string) []string {
	out := []string{}
	for _, v := range raw {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errNoImage),
		errors.Is(err, errNotAnImage),
		errors.Is(err, errTooLarge),
		errors.Is(err, errInvalidBody),
		errors.Is(err, personalized.ErrMissingImage),
		errors.Is(err, personalized.ErrAlreadyPublished),
		errors.Is(err, pinterest.ErrInvalidURL),
		errors.Is(err, pinterest.ErrImageNotFound),
		errors.Is(err, categories.ErrUnknownCategory),
		errors.Is(err, categories.ErrDuplicateCategory),
		errors.Is(err, categories.ErrProtectedCategory),
		errors.Is(err, categories.ErrInvalidName),
		errors.Is(err, configstore.ErrTypeMismatch):
		return http.StatusBadRequest
	case errors.Is(err, personalized.ErrNotFound),
		errors.Is(err, stickers.ErrStickerNotFound),
		errors.Is(err, categories.ErrCategoryNotFound),
		errors.Is(err, configstore.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, pinterest.ErrFetchFailed),
		errors.Is(err, imageproc.ErrDecode):
		return http.StatusBadGateway
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// respondServiceError answers with the mapped status. Internal failures are
// logged and reported with the generic fallback message only.
func respondServiceError(w http.ResponseWriter, logger *slog.Logger, err error, fallback string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error(fallback, slog.String("error", err.Error()))
		respondError(w, status, fallback)
		return
	}
	respondErrorDetail(w, status, fallback, err)
}
