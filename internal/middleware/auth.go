package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/user/avenida-stickers/internal/auth"
	"github.com/user/avenida-stickers/internal/handlers"
)

// AdminAuth lets a request through when its bearer credential is the admin
// key or an admin session token.
func AdminAuth(tokenService *auth.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !tokenService.Enabled() {
				handlers.RespondInternalError(w, "Admin access is not configured")
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				handlers.RespondUnauthorized(w, "Missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
				handlers.RespondUnauthorized(w, "Invalid authorization header format")
				return
			}

			if err := tokenService.Authorize(parts[1]); err != nil {
				if errors.Is(err, auth.ErrAdminDisabled) {
					handlers.RespondInternalError(w, "Admin access is not configured")
					return
				}
				handlers.RespondForbidden(w, "Invalid admin credentials")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
