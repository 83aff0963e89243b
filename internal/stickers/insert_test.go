package stickers_test

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"

	"github.com/user/avenida-stickers/internal/ids"
	"github.com/user/avenida-stickers/internal/models"
	"github.com/user/avenida-stickers/internal/stickers"
)

type failQuerier struct{ t *testing.T }

func (q failQuerier) QueryRow(context.Context, string, ...any) pgx.Row {
	q.t.Fatal("no query expected")
	return nil
}

func TestInsert_RejectsMalformedDisplayID(t *testing.T) {
	for _, id := range []string{"", "1", "00001", "X0001", "p0001", "P00001"} {
		_, err := stickers.Insert(context.Background(), failQuerier{t}, &models.Sticker{DisplayID: id, ImagePath: "uploads/a.jpg"})
		assert.ErrorIs(t, err, ids.ErrInvalidID, id)
	}
}
