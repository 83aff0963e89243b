package handlers

import (
	"net/http"

	"github.com/user/avenida-stickers/internal/storage"
)

// ImageLocator resolves an image path to the address it is served from.
type ImageLocator interface {
	URL(imagePath string) string
}

// ImageRedirect sends GET /uploads/{name} to the storage backend, for
// backends that do not keep files on this host.
func ImageRedirect(images ImageLocator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		imagePath, err := storage.ImagePath(r.PathValue("name"))
		if err != nil {
			respondError(w, http.StatusNotFound, "Image not found")
			return
		}
		http.Redirect(w, r, images.URL(imagePath), http.StatusFound)
	}
}
