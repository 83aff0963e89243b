package personalized

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/avenida-stickers/internal/models"
	"github.com/user/avenida-stickers/internal/stickers"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const columns = `id, display_id, image_path, source, original_url, status, expires_at, created_at, updated_at`

func scan(row pgx.Row) (*models.PersonalizedSticker, error) {
	p := &models.PersonalizedSticker{}
	err := row.Scan(&p.ID, &p.DisplayID, &p.ImagePath, &p.Source, &p.OriginalURL, &p.Status, &p.ExpiresAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *Repository) collect(ctx context.Context, sql string, args ...any) ([]*models.PersonalizedSticker, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*models.PersonalizedSticker{}
	for rows.Next() {
		p, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repository) Create(ctx context.Context, p *models.PersonalizedSticker) (*models.PersonalizedSticker, error) {
	return scan(r.db.QueryRow(ctx, `
		INSERT INTO personalized_stickers (display_id, image_path, source, original_url, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+columns,
		p.DisplayID, p.ImagePath, p.Source, p.OriginalURL, p.Status, p.ExpiresAt,
	))
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.PersonalizedSticker, error) {
	return scan(r.db.QueryRow(ctx, `SELECT `+columns+` FROM personalized_stickers WHERE id = $1`, id))
}

func (r *Repository) ListVisible(ctx context.Context, now time.Time) ([]*models.PersonalizedSticker, error) {
	return r.collect(ctx, `
		SELECT `+columns+`
		FROM personalized_stickers
		WHERE status = 'active'
		   OR (status = 'temporary' AND expires_at > $1)
		ORDER BY created_at DESC
	`, now)
}

func (r *Repository) ConfirmTemporary(ctx context.Context, ids []uuid.UUID, expiresAt time.Time) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `
		UPDATE personalized_stickers
		SET status = 'active', expires_at = $2, updated_at = NOW()
		WHERE id = ANY($1) AND status = 'temporary'
		RETURNING id
	`, ids, expiresAt)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (*models.PersonalizedSticker, error) {
	return scan(r.db.QueryRow(ctx, `DELETE FROM personalized_stickers WHERE id = $1 RETURNING `+columns, id))
}

// Publish deletes the personalized record and inserts the catalog sticker
// in one transaction. When the record is already gone nothing is written.
func (r *Repository) Publish(ctx context.Context, id uuid.UUID, categories []string) (*models.Sticker, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin publish: %w", err)
	}
	defer tx.Rollback(ctx)

	p, err := scan(tx.QueryRow(ctx, `DELETE FROM personalized_stickers WHERE id = $1 RETURNING `+columns, id))
	if err != nil {
		return nil, err
	}
	if err := CanPublish(p); err != nil {
		return nil, err
	}

	sticker, err := stickers.Insert(ctx, tx, &models.Sticker{
		DisplayID:  p.DisplayID,
		ImagePath:  p.ImagePath,
		Categories: categories,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit publish: %w", err)
	}
	return sticker, nil
}

// ListExpiredTemporary returns temporary stickers whose expiry has passed.
func (r *Repository) ListExpiredTemporary(ctx context.Context, now time.Time) ([]*models.PersonalizedSticker, error) {
	return r.collect(ctx, `
		SELECT `+columns+`
		FROM personalized_stickers
		WHERE status = 'temporary' AND expires_at <= $1
		ORDER BY expires_at
	`, now)
}

// DeleteExpired removes the sticker only if it is still an expired
// temporary one, so a confirm racing the sweep wins.
func (r *Repository) DeleteExpired(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM personalized_stickers
		WHERE id = $1 AND status = 'temporary' AND expires_at <= $2
	`, id, now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repository) CountByStatus(ctx context.Context) (map[models.PersonalizedStatus]int, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM personalized_stickers GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[models.PersonalizedStatus]int{
		models.StatusTemporary: 0,
		models.StatusActive:    0,
	}
	for rows.Next() {
		var status models.PersonalizedStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (r *Repository) ImagePaths(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT image_path FROM personalized_stickers`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}
