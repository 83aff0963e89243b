package ids

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Allocator hands out identifiers from a counter row per series. The
// increment and read happen in one statement, so concurrent callers never
// receive the same value and deleted identifiers are never handed out again.
type Allocator struct {
	db *pgxpool.Pool
}

func NewAllocator(db *pgxpool.Pool) *Allocator {
	return &Allocator{db: db}
}

// Next allocates the next identifier of the series.
func (a *Allocator) Next(ctx context.Context, s Series) (string, error) {
	var n int
	err := a.db.QueryRow(ctx, `
		INSERT INTO id_sequences (name, value) VALUES ($1, 1)
		ON CONFLICT (name) DO UPDATE SET value = id_sequences.value + 1
		RETURNING value
	`, s.Name).Scan(&n)
	if err != nil {
		return "", fmt.Errorf("allocate %s id: %w", s.Name, err)
	}
	return s.Format(n)
}

// Reconcile raises each counter to the largest identifier stored in its
// series, so rows written without the allocator (restores, manual imports)
// are never handed out again. Counters are never lowered.
func (a *Allocator) Reconcile(ctx context.Context) error {
	_, err := a.db.Exec(ctx, `
		INSERT INTO id_sequences (name, value)
		SELECT $1, COALESCE(MAX(display_id::INTEGER), 0)
		FROM stickers
		WHERE display_id ~ '^\d{4}$'
		ON CONFLICT (name) DO UPDATE SET value = GREATEST(id_sequences.value, EXCLUDED.value)
	`, Catalog.Name)
	if err != nil {
		return fmt.Errorf("reconcile %s sequence: %w", Catalog.Name, err)
	}

	_, err = a.db.Exec(ctx, `
		INSERT INTO id_sequences (name, value)
		SELECT $1, COALESCE(MAX(SUBSTRING(display_id FROM 2)::INTEGER), 0)
		FROM (
			SELECT display_id FROM personalized_stickers
			UNION ALL
			SELECT display_id FROM stickers WHERE display_id ~ '^P\d{4}$'
		) AS p
		ON CONFLICT (name) DO UPDATE SET value = GREATEST(id_sequences.value, EXCLUDED.value)
	`, Personalized.Name)
	if err != nil {
		return fmt.Errorf("reconcile %s sequence: %w", Personalized.Name, err)
	}
	return nil
}
