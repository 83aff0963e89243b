package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/avenida-stickers/internal/auth"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
})

func TestAdminAuth(t *testing.T) {
	tokens := auth.NewTokenService("s3cret", time.Hour)
	session, _, err := tokens.GenerateAdminToken()
	require.NoError(t, err)

	tests := []struct {
		name   string
		svc    *auth.TokenService
		header string
		want   int
	}{
		{"raw key", tokens, "Bearer s3cret", http.StatusOK},
		{"session token", tokens, "Bearer " + session, http.StatusOK},
		{"lowercase scheme", tokens, "bearer s3cret", http.StatusOK},
		{"missing header", tokens, "", http.StatusUnauthorized},
		{"wrong scheme", tokens, "Basic s3cret", http.StatusUnauthorized},
		{"empty credential", tokens, "Bearer ", http.StatusUnauthorized},
		{"wrong key", tokens, "Bearer nope", http.StatusForbidden},
		{"not configured", auth.NewTokenService("", time.Hour), "Bearer s3cret", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodDelete, "/api/personalized-stickers/x", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			AdminAuth(tt.svc)(okHandler).ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)

			if tt.want != http.StatusOK {
				var body map[string]any
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, false, body["success"])
			}
		})
	}
}

func TestCORS(t *testing.T) {
	h := CORS("https://avenida.example")(okHandler)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/stickers", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://avenida.example", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stickers", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestRequestLogger_LevelByStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	for status, level := range map[int]string{200: "INFO", 404: "WARN", 502: "ERROR"} {
		buf.Reset()
		h := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, level, entry["level"])
		assert.EqualValues(t, status, entry["status"])
	}
}

func TestMetrics_UsesRoutePattern(t *testing.T) {
	mux := http.NewServeMux()
	mux.Handle("GET /api/stickers/{id}", okHandler)
	h := Chain(mux, Metrics())

	req := httptest.NewRequest(http.MethodGet, "/api/stickers/123", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "GET /api/stickers/{id}", routeLabel(req))

	assert.Equal(t, "unmatched", routeLabel(httptest.NewRequest(http.MethodGet, "/nothing", nil)))
}

func TestChain_Order(t *testing.T) {
	var order []string
	mw := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	Chain(okHandler, mw("a"), mw("b")).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"a", "b"}, order)
}
