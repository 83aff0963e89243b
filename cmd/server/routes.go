package main

import (
	"log/slog"
	"net/http"

	"github.com/user/avenida-stickers/internal/auth"
	"github.com/user/avenida-stickers/internal/handlers"
	"github.com/user/avenida-stickers/internal/middleware"
)

type api struct {
	personalized *handlers.PersonalizedHandler
	stickers     *handlers.StickersHandler
	categories   *handlers.CategoriesHandler
	admin        *handlers.AdminHandler
	health       *handlers.HealthHandler

	tokens     *auth.TokenService
	ws         http.Handler
	uploadsDir string                // served under /uploads/ when set
	images     handlers.ImageLocator // otherwise /uploads/ redirects here
	corsOrigin string
	logger     *slog.Logger
}

func (a *api) routes() http.Handler {
	mux := http.NewServeMux()
	admin := middleware.AdminAuth(a.tokens)

	// Personalized stickers - storefront
	mux.HandleFunc("POST /api/personalized-stickers/temporary", a.personalized.CreateTemporary)
	mux.HandleFunc("POST /api/personalized-stickers/temporary/from-pinterest", a.personalized.CreateTemporaryFromPinterest)
	mux.HandleFunc("POST /api/personalized-stickers/confirm-temporary", a.personalized.ConfirmTemporary)
	mux.HandleFunc("POST /api/personalized-stickers/pinterest/preview", a.personalized.PreviewPinterest)
	mux.HandleFunc("POST /api/personalized-stickers/cleanup/expired", a.personalized.CleanupExpired)
	mux.HandleFunc("GET /api/personalized-stickers", a.personalized.List)
	mux.HandleFunc("GET /api/personalized-stickers/{id}", a.personalized.Get)

	// Personalized stickers - admin
	mux.Handle("POST /api/personalized-stickers", admin(http.HandlerFunc(a.personalized.Create)))
	mux.Handle("POST /api/personalized-stickers/from-pinterest", admin(http.HandlerFunc(a.personalized.CreateFromPinterest)))
	mux.Handle("POST /api/personalized-stickers/{id}/publish", admin(http.HandlerFunc(a.personalized.Publish)))
	mux.Handle("DELETE /api/personalized-stickers/{id}", admin(http.HandlerFunc(a.personalized.Delete)))

	// Catalog
	mux.HandleFunc("GET /api/stickers", a.stickers.List)
	mux.HandleFunc("GET /api/stickers/search", a.stickers.Search)
	mux.HandleFunc("GET /api/stickers/{id}", a.stickers.Get)
	mux.Handle("POST /api/stickers", admin(http.HandlerFunc(a.stickers.Create)))
	mux.Handle("PUT /api/stickers/{id}", admin(http.HandlerFunc(a.stickers.Update)))
	mux.Handle("DELETE /api/stickers/{id}", admin(http.HandlerFunc(a.stickers.Delete)))

	// Categories
	mux.HandleFunc("GET /api/categories", a.categories.List)
	mux.Handle("POST /api/categories", admin(http.HandlerFunc(a.categories.Add)))
	mux.Handle("DELETE /api/categories/{category}", admin(http.HandlerFunc(a.categories.Delete)))

	// Admin
	mux.HandleFunc("POST /api/admin/auth", a.admin.Auth)
	mux.Handle("GET /api/admin/dashboard", admin(http.HandlerFunc(a.admin.Dashboard)))
	mux.Handle("GET /api/admin/sizes", admin(http.HandlerFunc(a.admin.GetSizes)))
	mux.Handle("PUT /api/admin/sizes", admin(http.HandlerFunc(a.admin.UpdateSizes)))
	mux.Handle("GET /api/admin/config", admin(http.HandlerFunc(a.admin.ListConfig)))
	mux.Handle("PUT /api/admin/config/{key}", admin(http.HandlerFunc(a.admin.SetConfig)))

	// Static content
	switch {
	case a.uploadsDir != "":
		mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(a.uploadsDir))))
	case a.images != nil:
		mux.HandleFunc("GET /uploads/{name}", handlers.ImageRedirect(a.images))
	}

	mux.HandleFunc("GET /health", a.health.Health)
	mux.HandleFunc("GET /metrics", a.health.Metrics)

	handler := middleware.Chain(mux,
		middleware.RequestLogger(a.logger),
		middleware.Metrics(),
		middleware.CORS(a.corsOrigin),
	)

	// The websocket endpoint bypasses the middleware so the connection can
	// be hijacked. It authenticates with the connect token.
	root := http.NewServeMux()
	if a.ws != nil {
		root.Handle("GET /api/admin/ws", a.ws)
	}
	root.Handle("/", handler)
	return root
}
