package categories_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/avenida-stickers/internal/categories"
	"github.com/user/avenida-stickers/internal/testutil"
)

type catalogSpy struct {
	removed []string
}

func (c *catalogSpy) RemoveCategory(_ context.Context, name string) (int64, error) {
	c.removed = append(c.removed, name)
	return 2, nil
}

func newRegistry(t *testing.T) (*categories.Registry, *catalogSpy) {
	t.Helper()
	spy := &catalogSpy{}
	return categories.NewRegistry(testutil.NewConfigStore(t), spy, testutil.DiscardLogger()), spy
}

func TestRegistry_ListAlwaysHasPersonalized(t *testing.T) {
	r, _ := newRegistry(t)
	assert.Equal(t, []string{categories.Personalized}, r.List(context.Background()))
}

func TestRegistry_AddNormalizesAndSorts(t *testing.T) {
	ctx := context.Background()
	r, _ := newRegistry(t)

	_, err := r.Add(ctx, "  Anime ")
	require.NoError(t, err)
	got, err := r.Add(ctx, "autos")
	require.NoError(t, err)

	assert.Equal(t, []string{"anime", "autos", "personalizados"}, got)
	assert.Equal(t, got, r.List(ctx))
}

func TestRegistry_AddRejectsDuplicatesAndBlank(t *testing.T) {
	ctx := context.Background()
	r, _ := newRegistry(t)

	_, err := r.Add(ctx, "anime")
	require.NoError(t, err)

	_, err = r.Add(ctx, "ANIME")
	assert.ErrorIs(t, err, categories.ErrDuplicateCategory)

	_, err = r.Add(ctx, "   ")
	assert.ErrorIs(t, err, categories.ErrInvalidName)
}

func TestRegistry_Delete(t *testing.T) {
	ctx := context.Background()
	r, spy := newRegistry(t)

	_, err := r.Add(ctx, "anime")
	require.NoError(t, err)

	got, err := r.Delete(ctx, "Anime")
	require.NoError(t, err)
	assert.Equal(t, []string{"personalizados"}, got)
	assert.Equal(t, []string{"anime"}, spy.removed)

	_, err = r.Delete(ctx, "anime")
	assert.ErrorIs(t, err, categories.ErrCategoryNotFound)

	_, err = r.Delete(ctx, categories.Personalized)
	assert.ErrorIs(t, err, categories.ErrProtectedCategory)
}

func TestRegistry_Validate(t *testing.T) {
	ctx := context.Background()
	r, _ := newRegistry(t)

	_, err := r.Add(ctx, "anime")
	require.NoError(t, err)

	got, err := r.Validate(ctx, []string{"Anime", "anime", "", "personalizados"})
	require.NoError(t, err)
	assert.Equal(t, []string{"anime", "personalizados"}, got)

	_, err = r.Validate(ctx, []string{"anime", "deportes"})
	assert.ErrorIs(t, err, categories.ErrUnknownCategory)
}
