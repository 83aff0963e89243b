package configstore

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/avenida-stickers/internal/models"
)

// Repository persists configuration entries in the app_config table.
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Get(ctx context.Context, key string) (*models.ConfigEntry, error) {
	e := &models.ConfigEntry{}
	err := r.db.QueryRow(ctx, `
		SELECT key, value, type, description, created_at, updated_at
		FROM app_config WHERE key = $1
	`, key).Scan(&e.Key, &e.Value, &e.Type, &e.Description, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *Repository) List(ctx context.Context) ([]*models.ConfigEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT key, value, type, description, created_at, updated_at
		FROM app_config ORDER BY key
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.ConfigEntry
	for rows.Next() {
		e := &models.ConfigEntry{}
		if err := rows.Scan(&e.Key, &e.Value, &e.Type, &e.Description, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Upsert writes the entry, replacing value, type and description of an
// existing key.
func (r *Repository) Upsert(ctx context.Context, entry *models.ConfigEntry) (*models.ConfigEntry, error) {
	e := &models.ConfigEntry{}
	err := r.db.QueryRow(ctx, `
		INSERT INTO app_config (key, value, type, description)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, type = EXCLUDED.type,
		    description = EXCLUDED.description, updated_at = NOW()
		RETURNING key, value, type, description, created_at, updated_at
	`, entry.Key, entry.Value, entry.Type, entry.Description).Scan(
		&e.Key, &e.Value, &e.Type, &e.Description, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// InsertIfAbsent writes the entry only when the key does not exist yet and
// reports whether it did.
func (r *Repository) InsertIfAbsent(ctx context.Context, entry *models.ConfigEntry) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO app_config (key, value, type, description)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO NOTHING
	`, entry.Key, entry.Value, entry.Type, entry.Description)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
