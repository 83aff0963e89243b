package handlers_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/avenida-stickers/internal/auth"
	"github.com/user/avenida-stickers/internal/configstore"
	"github.com/user/avenida-stickers/internal/handlers"
	"github.com/user/avenida-stickers/internal/models"
	"github.com/user/avenida-stickers/internal/testutil"
)

func TestAdmin_Auth(t *testing.T) {
	e := newEnv(t)

	status, _ := e.doJSON(t, http.MethodPost, "/api/admin/auth", models.AdminAuthRequest{AdminKey: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = e.doJSON(t, http.MethodPost, "/api/admin/auth", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := e.doJSON(t, http.MethodPost, "/api/admin/auth", models.AdminAuthRequest{AdminKey: testAdminKey})
	require.Equal(t, http.StatusOK, status)

	data := decodeData[map[string]string](t, body)
	require.NotEmpty(t, data["token"])
	assert.NotEmpty(t, data["expiresAt"])

	claims, err := e.tokens.ValidateToken(data["token"])
	require.NoError(t, err)
	assert.Equal(t, auth.AdminSubject, claims.Subject)
}

func TestAdmin_AuthDisabled(t *testing.T) {
	logger := testutil.DiscardLogger()
	h := handlers.NewAdminHandler(auth.NewTokenService("", 0), testutil.NewConfigStore(t), nil, nil, nil, logger)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/auth", jsonBody(t, models.AdminAuthRequest{AdminKey: "anything"}))
	h.Auth(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAdmin_Dashboard(t *testing.T) {
	e := newEnv(t)
	seedCatalog(t, e)
	e.store.Put(&models.PersonalizedSticker{DisplayID: "P0001", Status: models.StatusActive, Source: models.SourceUpload})

	status, body := e.doJSON(t, http.MethodGet, "/api/admin/dashboard", nil)
	require.Equal(t, http.StatusOK, status, body.Message)

	stats := decodeData[models.DashboardStats](t, body)
	assert.Equal(t, 2, stats.TotalStickers)
	assert.Equal(t, 3, stats.TotalCategories) // anime, autos, personalizados
	assert.Len(t, stats.RecentStickers, 2)
	assert.Equal(t, 1, stats.PersonalizedByState[models.StatusActive])
	assert.Contains(t, stats.CategoryStats, models.CategoryCount{Category: "anime", Count: 2})
}

func TestAdmin_Sizes(t *testing.T) {
	e := newEnv(t)

	status, body := e.doJSON(t, http.MethodGet, "/api/admin/sizes", nil)
	require.Equal(t, http.StatusOK, status)
	sizes := decodeData[models.SizesConfig](t, body)
	assert.Empty(t, sizes.Sizes)
	assert.Equal(t, configstore.DefaultCurrency, sizes.Currency)

	update := models.SizesConfig{
		Sizes: []models.StickerSize{
			{ID: "s", Name: "Small", Dimensions: "5x5 cm", Price: 1500},
			{ID: "m", Name: "Medium", Dimensions: "8x8 cm", Price: 2200},
		},
		Currency: "usd",
	}
	status, body = e.doJSON(t, http.MethodPut, "/api/admin/sizes", update)
	require.Equal(t, http.StatusOK, status, body.Message)

	status, body = e.doJSON(t, http.MethodGet, "/api/admin/sizes", nil)
	require.Equal(t, http.StatusOK, status)
	sizes = decodeData[models.SizesConfig](t, body)
	assert.Len(t, sizes.Sizes, 2)
	assert.Equal(t, "USD", sizes.Currency)
	assert.NotEmpty(t, sizes.UpdatedAt)

	t.Run("duplicate id", func(t *testing.T) {
		dup := models.SizesConfig{Sizes: []models.StickerSize{update.Sizes[0], update.Sizes[0]}}
		status, _ := e.doJSON(t, http.MethodPut, "/api/admin/sizes", dup)
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("missing fields", func(t *testing.T) {
		bad := models.SizesConfig{Sizes: []models.StickerSize{{ID: "x"}}}
		status, _ := e.doJSON(t, http.MethodPut, "/api/admin/sizes", bad)
		assert.Equal(t, http.StatusBadRequest, status)
	})
}

func TestAdmin_Config(t *testing.T) {
	e := newEnv(t)

	status, body := e.doJSON(t, http.MethodPut, "/api/admin/config/"+configstore.KeyAutoDeleteDays, models.SetConfigRequest{
		Value: json.RawMessage(`30`),
		Type:  models.ConfigNumber,
	})
	require.Equal(t, http.StatusOK, status, body.Message)
	assert.Equal(t, 30, e.config.RetentionDays(t.Context()))

	status, _ = e.doJSON(t, http.MethodPut, "/api/admin/config/"+configstore.KeyAutoDeleteEnabled, models.SetConfigRequest{
		Value: json.RawMessage(`"yes"`),
		Type:  models.ConfigBoolean,
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.True(t, e.config.AutoDeleteEnabled(t.Context()))

	status, _ = e.doJSON(t, http.MethodPut, "/api/admin/config/x", models.SetConfigRequest{
		Value: json.RawMessage(`1`),
		Type:  "decimal",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = e.doJSON(t, http.MethodGet, "/api/admin/config", nil)
	require.Equal(t, http.StatusOK, status)
	var keys []string
	for _, entry := range decodeData[[]models.ConfigEntry](t, body) {
		keys = append(keys, entry.Key)
	}
	assert.Contains(t, keys, configstore.KeyAutoDeleteDays)
	assert.Contains(t, keys, configstore.KeyCategories)
}

func TestCategories(t *testing.T) {
	e := newEnv(t)

	status, body := e.doJSON(t, http.MethodGet, "/api/categories", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"personalizados"}, decodeData[[]string](t, body))

	status, body = e.doJSON(t, http.MethodPost, "/api/categories", models.AddCategoryRequest{Name: "  Anime "})
	require.Equal(t, http.StatusCreated, status, body.Message)
	assert.Equal(t, []string{"anime", "personalizados"}, decodeData[[]string](t, body))

	status, _ = e.doJSON(t, http.MethodPost, "/api/categories", models.AddCategoryRequest{Name: "anime"})
	assert.Equal(t, http.StatusBadRequest, status, "duplicate")

	status, _ = e.doJSON(t, http.MethodPost, "/api/categories", models.AddCategoryRequest{Name: ""})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = e.doJSON(t, http.MethodDelete, "/api/categories/personalizados", nil)
	assert.Equal(t, http.StatusBadRequest, status, "protected")

	status, _ = e.doJSON(t, http.MethodDelete, "/api/categories/motos", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestCategories_DeleteStripsCatalog(t *testing.T) {
	e := newEnv(t)
	anime, autos := seedCatalog(t, e)

	status, body := e.doJSON(t, http.MethodDelete, "/api/categories/anime", nil)
	require.Equal(t, http.StatusOK, status, body.Message)
	assert.Equal(t, []string{"autos", "personalizados"}, decodeData[[]string](t, body))

	got, err := e.stickers.Get(t.Context(), anime.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Categories)

	got, err = e.stickers.Get(t.Context(), autos.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"autos"}, got.Categories)
}

func TestHealth(t *testing.T) {
	e := newEnv(t)

	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"OK"`)

	e.pinger.err = errors.New("connection refused")
	rec = httptest.NewRecorder()
	e.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"DEGRADED"`)
}
