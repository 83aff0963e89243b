package personalized_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/avenida-stickers/internal/categories"
	"github.com/user/avenida-stickers/internal/imageproc"
	"github.com/user/avenida-stickers/internal/models"
	"github.com/user/avenida-stickers/internal/personalized"
	"github.com/user/avenida-stickers/internal/pinterest"
	"github.com/user/avenida-stickers/internal/testutil"
)

var start = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc       *personalized.Service
	store     *testutil.Personalized
	catalog   *testutil.Catalog
	images    *testutil.Images
	allocator *testutil.Allocator
	settings  *testutil.Settings
	fetcher   *testutil.Fetcher
	notifier  *testutil.Notifier
	clock     *testutil.Clock
	registry  *categories.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		catalog:   testutil.NewCatalog(),
		images:    testutil.NewImages(),
		allocator: testutil.NewAllocator(),
		settings:  &testutil.Settings{Days: 15, Enabled: true},
		fetcher:   &testutil.Fetcher{Data: []byte("pin-image")},
		notifier:  &testutil.Notifier{},
		clock:     testutil.NewClock(start),
	}
	f.store = testutil.NewPersonalized(f.catalog)
	f.registry = categories.NewRegistry(testutil.NewConfigStore(t), f.catalog, testutil.DiscardLogger())
	f.svc = personalized.NewService(personalized.Options{
		Store:      f.store,
		Images:     f.images,
		Optimizer:  testutil.Optimizer{},
		Allocator:  f.allocator,
		Settings:   f.settings,
		Categories: f.registry,
		Fetcher:    f.fetcher,
		Notifier:   f.notifier,
		Clock:      f.clock.Now,
	}, testutil.DiscardLogger())
	return f
}

func TestCreate_CartEntryIsTemporaryForOneHour(t *testing.T) {
	f := newFixture(t)

	p, err := f.svc.CreateFromUpload(context.Background(), []byte("png"), personalized.EntryCart)
	require.NoError(t, err)

	assert.Equal(t, models.StatusTemporary, p.Status)
	assert.Equal(t, models.SourceUpload, p.Source)
	assert.Nil(t, p.OriginalURL)
	require.NotNil(t, p.ExpiresAt)
	assert.False(t, p.ExpiresAt.Before(start))
	assert.False(t, p.ExpiresAt.After(start.Add(time.Hour)))
	assert.Equal(t, start.Add(personalized.TemporaryTTL), *p.ExpiresAt)

	assert.Regexp(t, `^uploads/upload_20260110120000_[0-9a-f]{8}\.jpg$`, p.ImagePath)
	assert.True(t, f.images.Has(p.ImagePath))
	assert.Equal(t, []string{models.EventPersonalizedCreated}, f.notifier.Names())
}

func TestCreate_DirectEntryIsActiveWithRetention(t *testing.T) {
	f := newFixture(t)

	p, err := f.svc.CreateFromUpload(context.Background(), []byte("png"), personalized.EntryDirect)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, p.Status)
	require.NotNil(t, p.ExpiresAt)
	assert.Equal(t, start.Add(15*24*time.Hour), *p.ExpiresAt)

	f.settings.Days = 30
	p, err = f.svc.CreateFromUpload(context.Background(), []byte("png"), personalized.EntryDirect)
	require.NoError(t, err)
	assert.Equal(t, start.Add(30*24*time.Hour), *p.ExpiresAt)
}

func TestCreate_DisplayIDsStrictlyIncrease(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var got []string
	for i := 0; i < 3; i++ {
		p, err := f.svc.CreateFromUpload(ctx, []byte("png"), personalized.EntryCart)
		require.NoError(t, err)
		got = append(got, p.DisplayID)
	}
	first, err := f.store.GetByID(ctx, mustList(t, f)[0].ID)
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, first.ID))

	p, err := f.svc.CreateFromUpload(ctx, []byte("png"), personalized.EntryCart)
	require.NoError(t, err)
	got = append(got, p.DisplayID)

	assert.Equal(t, []string{"P0001", "P0002", "P0003", "P0004"}, got)
}

func mustList(t *testing.T, f *fixture) []*models.PersonalizedSticker {
	t.Helper()
	list, err := f.svc.List(context.Background())
	require.NoError(t, err)
	return list
}

func TestCreate_FromPinterest(t *testing.T) {
	f := newFixture(t)
	url := "https://www.pinterest.com/pin/123456/"

	p, err := f.svc.CreateFromPinterest(context.Background(), url, personalized.EntryCart)
	require.NoError(t, err)
	assert.Equal(t, models.SourcePinterest, p.Source)
	require.NotNil(t, p.OriginalURL)
	assert.Equal(t, url, *p.OriginalURL)
	assert.Equal(t, 1, f.fetcher.Calls)
}

func TestCreate_InvalidPinterestURLHasNoSideEffects(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateFromPinterest(context.Background(), "https://example.com/pin/1", personalized.EntryCart)
	assert.ErrorIs(t, err, pinterest.ErrInvalidURL)
	assert.Zero(t, f.fetcher.Calls)
	assert.Zero(t, f.images.Count())
	assert.Zero(t, f.store.Len())
}

func TestCreate_UpstreamFailures(t *testing.T) {
	t.Run("fetch", func(t *testing.T) {
		f := newFixture(t)
		f.fetcher.Err = pinterest.ErrFetchFailed

		_, err := f.svc.CreateFromPinterest(context.Background(), "https://pin.it/abc", personalized.EntryCart)
		assert.ErrorIs(t, err, pinterest.ErrFetchFailed)
		assert.Zero(t, f.images.Count())
	})

	t.Run("decode", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.CreateFromUpload(context.Background(), []byte("bad bytes"), personalized.EntryCart)
		assert.ErrorIs(t, err, imageproc.ErrDecode)
		assert.Zero(t, f.images.Count())
		assert.Zero(t, f.store.Len())
	})

	t.Run("missing image", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.CreateFromUpload(context.Background(), nil, personalized.EntryCart)
		assert.ErrorIs(t, err, personalized.ErrMissingImage)
	})
}

func TestCreate_RollsBackImageOnFailure(t *testing.T) {
	t.Run("allocator", func(t *testing.T) {
		f := newFixture(t)
		f.allocator.Err = testutil.ErrInjected

		_, err := f.svc.CreateFromUpload(context.Background(), []byte("png"), personalized.EntryCart)
		assert.ErrorIs(t, err, testutil.ErrInjected)
		assert.Zero(t, f.images.Count())
	})

	t.Run("insert", func(t *testing.T) {
		f := newFixture(t)
		f.store.CreateErr = testutil.ErrInjected

		_, err := f.svc.CreateFromUpload(context.Background(), []byte("png"), personalized.EntryCart)
		assert.ErrorIs(t, err, testutil.ErrInjected)
		assert.Zero(t, f.images.Count())
		assert.Empty(t, f.notifier.Events())
	})
}

func TestConfirm(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tmp1, err := f.svc.CreateFromUpload(ctx, []byte("a"), personalized.EntryCart)
	require.NoError(t, err)
	tmp2, err := f.svc.CreateFromUpload(ctx, []byte("b"), personalized.EntryCart)
	require.NoError(t, err)
	active, err := f.svc.CreateFromUpload(ctx, []byte("c"), personalized.EntryDirect)
	require.NoError(t, err)

	f.clock.Advance(10 * time.Minute)
	f.settings.Days = 20
	confirmAt := f.clock.Now()

	result, err := f.svc.Confirm(ctx, []string{
		tmp1.ID.String(),
		tmp2.ID.String(),
		tmp1.ID.String(),
		active.ID.String(),
		uuid.NewString(),
		"not-a-uuid",
	})
	require.NoError(t, err)
	assert.Equal(t, 6, result.Requested)
	assert.Equal(t, 2, result.ConfirmedCount)

	for _, id := range []uuid.UUID{tmp1.ID, tmp2.ID} {
		p, err := f.svc.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.StatusActive, p.Status)
		assert.Equal(t, confirmAt.Add(20*24*time.Hour), *p.ExpiresAt)
	}

	unchanged, err := f.svc.Get(ctx, active.ID)
	require.NoError(t, err)
	assert.Equal(t, *active.ExpiresAt, *unchanged.ExpiresAt)

	again, err := f.svc.Confirm(ctx, []string{tmp1.ID.String()})
	require.NoError(t, err)
	assert.Zero(t, again.ConfirmedCount)
}

func TestConfirm_NothingValid(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.Confirm(context.Background(), []string{"x", ""})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Requested)
	assert.Zero(t, result.ConfirmedCount)
	assert.Empty(t, f.notifier.Events())
}

func TestPublish(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.registry.Add(ctx, "anime")
	require.NoError(t, err)

	p := f.store.Put(&models.PersonalizedSticker{
		DisplayID: "P0007",
		ImagePath: "uploads/upload_20260110120000_abcdef12.jpg",
		Source:    models.SourceUpload,
		Status:    models.StatusActive,
	})

	result, err := f.svc.Publish(ctx, p.ID, []string{"anime"})
	require.NoError(t, err)

	assert.Equal(t, "P0007", result.Sticker.DisplayID)
	assert.Equal(t, p.ImagePath, result.Sticker.ImagePath)
	assert.ElementsMatch(t, []string{"personalizados", "anime"}, result.Sticker.Categories)
	assert.Equal(t, result.Sticker.Categories, result.Categories)

	_, err = f.svc.Get(ctx, p.ID)
	assert.ErrorIs(t, err, personalized.ErrNotFound)
	assert.NotNil(t, f.catalog.ByDisplayID("P0007"))
	assert.Contains(t, f.notifier.Names(), models.EventPersonalizedPublished)
}

func TestPublish_TemporaryIsAllowed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.svc.CreateFromUpload(ctx, []byte("png"), personalized.EntryCart)
	require.NoError(t, err)

	result, err := f.svc.Publish(ctx, p.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"personalizados"}, result.Sticker.Categories)
}

func TestPublish_MissingRecordCreatesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Publish(ctx, uuid.New(), []string{"personalizados"})
	assert.ErrorIs(t, err, personalized.ErrNotFound)

	n, err := f.catalog.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPublish_UnknownCategoryKeepsRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.svc.CreateFromUpload(ctx, []byte("png"), personalized.EntryDirect)
	require.NoError(t, err)

	_, err = f.svc.Publish(ctx, p.ID, []string{"deportes"})
	assert.ErrorIs(t, err, categories.ErrUnknownCategory)

	_, err = f.svc.Get(ctx, p.ID)
	assert.NoError(t, err)
}

func TestPublish_DuplicateDisplayIDKeepsRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.catalog.Create(ctx, &models.Sticker{DisplayID: "P0003", ImagePath: "uploads/x.jpg"})
	require.NoError(t, err)
	p := f.store.Put(&models.PersonalizedSticker{
		DisplayID: "P0003",
		ImagePath: "uploads/y.jpg",
		Source:    models.SourceUpload,
		Status:    models.StatusActive,
	})

	_, err = f.svc.Publish(ctx, p.ID, nil)
	assert.Error(t, err)

	_, err = f.svc.Get(ctx, p.ID)
	assert.NoError(t, err, "failed publish must leave the personalized record in place")
}

func TestDelete_ToleratesMissingImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.svc.CreateFromUpload(ctx, []byte("png"), personalized.EntryDirect)
	require.NoError(t, err)
	f.images.Remove(p.ImagePath)

	require.NoError(t, f.svc.Delete(ctx, p.ID))
	_, err = f.svc.Get(ctx, p.ID)
	assert.ErrorIs(t, err, personalized.ErrNotFound)
}

func TestDelete_ImageErrorIsNotFatal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.svc.CreateFromUpload(ctx, []byte("png"), personalized.EntryDirect)
	require.NoError(t, err)
	f.images.DeleteErr = testutil.ErrInjected

	require.NoError(t, f.svc.Delete(ctx, p.ID))
	assert.Zero(t, f.store.Len())
}

func TestDelete_Unknown(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.svc.Delete(context.Background(), uuid.New()), personalized.ErrNotFound)
}

func TestList_HidesExpiredTemporary(t *testing.T) {
	f := newFixture(t)

	past := start.Add(-time.Minute)
	future := start.Add(time.Minute)
	expired := f.store.Put(&models.PersonalizedSticker{DisplayID: "P0001", Status: models.StatusTemporary, ExpiresAt: &past})
	fresh := f.store.Put(&models.PersonalizedSticker{DisplayID: "P0002", Status: models.StatusTemporary, ExpiresAt: &future})
	active := f.store.Put(&models.PersonalizedSticker{DisplayID: "P0003", Status: models.StatusActive, ExpiresAt: &past})

	var got []uuid.UUID
	for _, p := range mustList(t, f) {
		got = append(got, p.ID)
	}
	assert.ElementsMatch(t, []uuid.UUID{fresh.ID, active.ID}, got)
	assert.NotContains(t, got, expired.ID)
}
