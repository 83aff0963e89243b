package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/user/avenida-stickers/internal/auth"
	"github.com/user/avenida-stickers/internal/categories"
	"github.com/user/avenida-stickers/internal/configstore"
	"github.com/user/avenida-stickers/internal/handlers"
	"github.com/user/avenida-stickers/internal/models"
	"github.com/user/avenida-stickers/internal/personalized"
	"github.com/user/avenida-stickers/internal/stickers"
	"github.com/user/avenida-stickers/internal/testutil"
)

const testAdminKey = "s3cret-admin-key"

type sweeperStub struct {
	result *models.SweepResult
	calls  int
}

func (s *sweeperStub) RunOnce(context.Context) *models.SweepResult {
	s.calls++
	return s.result
}

type resolverStub struct {
	url string
	err error
}

func (r *resolverStub) ResolveImageURL(context.Context, string) (string, error) {
	return r.url, r.err
}

type pingerStub struct{ err error }

func (p pingerStub) Ping(context.Context) error { return p.err }

type env struct {
	catalog   *testutil.Catalog
	store     *testutil.Personalized
	images    *testutil.Images
	fetcher   *testutil.Fetcher
	notifier  *testutil.Notifier
	config    *configstore.Store
	registry  *categories.Registry
	sweeper   *sweeperStub
	resolver  *resolverStub
	pinger    *pingerStub
	tokens    *auth.TokenService
	stickers  *stickers.Service
	mux       *http.ServeMux
	maxUpload int64
}

func newEnv(t *testing.T) *env {
	t.Helper()
	logger := testutil.DiscardLogger()

	e := &env{
		catalog:   testutil.NewCatalog(),
		images:    testutil.NewImages(),
		fetcher:   &testutil.Fetcher{Data: []byte("pin-image")},
		notifier:  &testutil.Notifier{},
		config:    testutil.NewConfigStore(t),
		sweeper:   &sweeperStub{result: &models.SweepResult{Message: "0 expired temporary stickers deleted"}},
		resolver:  &resolverStub{url: "https://i.pinimg.com/originals/ab/cd.jpg"},
		pinger:    &pingerStub{},
		tokens:    auth.NewTokenService(testAdminKey, 0),
		mux:       http.NewServeMux(),
		maxUpload: 1 << 20,
	}
	e.store = testutil.NewPersonalized(e.catalog)

	_, err := e.config.InitializeDefaults(context.Background())
	require.NoError(t, err)

	e.registry = categories.NewRegistry(e.config, categories.CatalogFunc(func(ctx context.Context, name string) (int64, error) {
		return e.stickers.RemoveCategory(ctx, name)
	}), logger)
	e.stickers = stickers.NewService(e.catalog, e.images, testutil.Optimizer{}, testutil.NewAllocator(), e.registry, logger)

	personalizedSvc := personalized.NewService(personalized.Options{
		Store:      e.store,
		Images:     e.images,
		Optimizer:  testutil.Optimizer{},
		Allocator:  testutil.NewAllocator(),
		Settings:   &testutil.Settings{Days: 15, Enabled: true},
		Categories: e.registry,
		Fetcher:    e.fetcher,
		Notifier:   e.notifier,
		Catalog:    e.stickers,
	}, logger)

	ph := handlers.NewPersonalizedHandler(personalizedSvc, e.resolver, e.sweeper, e.maxUpload, logger)
	e.mux.HandleFunc("POST /api/personalized-stickers/temporary", ph.CreateTemporary)
	e.mux.HandleFunc("POST /api/personalized-stickers/temporary/from-pinterest", ph.CreateTemporaryFromPinterest)
	e.mux.HandleFunc("POST /api/personalized-stickers", ph.Create)
	e.mux.HandleFunc("POST /api/personalized-stickers/from-pinterest", ph.CreateFromPinterest)
	e.mux.HandleFunc("POST /api/personalized-stickers/confirm-temporary", ph.ConfirmTemporary)
	e.mux.HandleFunc("POST /api/personalized-stickers/pinterest/preview", ph.PreviewPinterest)
	e.mux.HandleFunc("POST /api/personalized-stickers/cleanup/expired", ph.CleanupExpired)
	e.mux.HandleFunc("GET /api/personalized-stickers", ph.List)
	e.mux.HandleFunc("GET /api/personalized-stickers/{id}", ph.Get)
	e.mux.HandleFunc("POST /api/personalized-stickers/{id}/publish", ph.Publish)
	e.mux.HandleFunc("DELETE /api/personalized-stickers/{id}", ph.Delete)

	sh := handlers.NewStickersHandler(e.stickers, e.maxUpload, logger)
	e.mux.HandleFunc("GET /api/stickers", sh.List)
	e.mux.HandleFunc("GET /api/stickers/search", sh.Search)
	e.mux.HandleFunc("GET /api/stickers/{id}", sh.Get)
	e.mux.HandleFunc("POST /api/stickers", sh.Create)
	e.mux.HandleFunc("PUT /api/stickers/{id}", sh.Update)
	e.mux.HandleFunc("DELETE /api/stickers/{id}", sh.Delete)

	ch := handlers.NewCategoriesHandler(e.registry, logger)
	e.mux.HandleFunc("GET /api/categories", ch.List)
	e.mux.HandleFunc("POST /api/categories", ch.Add)
	e.mux.HandleFunc("DELETE /api/categories/{category}", ch.Delete)

	ah := handlers.NewAdminHandler(e.tokens, e.config, e.stickers, personalizedSvc, e.registry, logger)
	e.mux.HandleFunc("POST /api/admin/auth", ah.Auth)
	e.mux.HandleFunc("GET /api/admin/dashboard", ah.Dashboard)
	e.mux.HandleFunc("GET /api/admin/sizes", ah.GetSizes)
	e.mux.HandleFunc("PUT /api/admin/sizes", ah.UpdateSizes)
	e.mux.HandleFunc("GET /api/admin/config", ah.ListConfig)
	e.mux.HandleFunc("PUT /api/admin/config/{key}", ah.SetConfig)

	hh := handlers.NewHealthHandler(e.pinger)
	e.mux.HandleFunc("GET /health", hh.Health)

	return e
}

// envelope mirrors handlers.Response with the data left raw.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Count   *int            `json:"count"`
	Error   string          `json:"error"`
}

func (e *env) do(t *testing.T, req *http.Request) (int, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)

	var body envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return rec.Code, body
}

func (e *env) doJSON(t *testing.T, method, target string, payload any) (int, envelope) {
	t.Helper()
	var body io.Reader = http.NoBody
	if payload != nil {
		body = jsonBody(t, payload)
	}
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")
	return e.do(t, req)
}

type upload struct {
	data        []byte
	contentType string
	fields      map[string]string
}

func (e *env) doUpload(t *testing.T, method, target string, u upload) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range u.fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if u.data != nil {
		ct := u.contentType
		if ct == "" {
			ct = "image/png"
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="image"; filename="sticker.png"`)
		h.Set("Content-Type", ct)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(u.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return e.do(t, req)
}

func decodeData[T any](t *testing.T, body envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body.Data, &v), string(body.Data))
	return v
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(raw)
}
