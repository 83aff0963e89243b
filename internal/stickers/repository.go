package stickers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/avenida-stickers/internal/ids"
	"github.com/user/avenida-stickers/internal/models"
)

var (
	ErrStickerNotFound    = errors.New("sticker not found")
	ErrDuplicateDisplayID = errors.New("display id already in use")
)

const uniqueViolation = "23505"

// Querier is satisfied by both the pool and a transaction, so catalog
// inserts can take part in another package's transaction.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const stickerColumns = `id, display_id, image_path, categories, created_at, updated_at`

func scanSticker(row pgx.Row) (*models.Sticker, error) {
	s := &models.Sticker{}
	if err := row.Scan(&s.ID, &s.DisplayID, &s.ImagePath, &s.Categories, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	if s.Categories == nil {
		s.Categories = []string{}
	}
	return s, nil
}

func (r *Repository) collect(ctx context.Context, sql string, args ...any) ([]*models.Sticker, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stickers := []*models.Sticker{}
	for rows.Next() {
		s, err := scanSticker(rows)
		if err != nil {
			return nil, err
		}
		stickers = append(stickers, s)
	}
	return stickers, rows.Err()
}

// List returns catalog stickers, newest first. A non-empty filter keeps
// stickers tagged with at least one of the given categories.
func (r *Repository) List(ctx context.Context, categories []string) ([]*models.Sticker, error) {
	if categories == nil {
		categories = []string{}
	}
	return r.collect(ctx, `
		SELECT `+stickerColumns+`
		FROM stickers
		WHERE cardinality($1::text[]) = 0 OR categories && $1::text[]
		ORDER BY created_at DESC, display_id DESC
	`, categories)
}

// Search matches q case-insensitively against the display id and the
// category names.
func (r *Repository) Search(ctx context.Context, q string) ([]*models.Sticker, error) {
	pattern := "%" + escapeLike(strings.TrimSpace(q)) + "%"
	return r.collect(ctx, `
		SELECT `+stickerColumns+`
		FROM stickers
		WHERE display_id ILIKE $1
		   OR EXISTS (SELECT 1 FROM unnest(categories) c WHERE c ILIKE $1)
		ORDER BY created_at DESC, display_id DESC
	`, pattern)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Sticker, error) {
	s, err := scanSticker(r.db.QueryRow(ctx, `
		SELECT `+stickerColumns+` FROM stickers WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStickerNotFound
		}
		return nil, err
	}
	return s, nil
}

func (r *Repository) Create(ctx context.Context, s *models.Sticker) (*models.Sticker, error) {
	return Insert(ctx, r.db, s)
}

// Insert writes a catalog sticker through q. A display id collision is
// reported as ErrDuplicateDisplayID.
func Insert(ctx context.Context, q Querier, s *models.Sticker) (*models.Sticker, error) {
	if !ids.ValidCatalogID(s.DisplayID) {
		return nil, fmt.Errorf("%w: %q", ids.ErrInvalidID, s.DisplayID)
	}
	categories := s.Categories
	if categories == nil {
		categories = []string{}
	}
	created, err := scanSticker(q.QueryRow(ctx, `
		INSERT INTO stickers (display_id, image_path, categories)
		VALUES ($1, $2, $3)
		RETURNING `+stickerColumns,
		s.DisplayID, s.ImagePath, categories,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrDuplicateDisplayID
		}
		return nil, err
	}
	return created, nil
}

// Update replaces the categories and image path of a sticker.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, imagePath string, categories []string) (*models.Sticker, error) {
	if categories == nil {
		categories = []string{}
	}
	s, err := scanSticker(r.db.QueryRow(ctx, `
		UPDATE stickers
		SET image_path = $2, categories = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING `+stickerColumns,
		id, imagePath, categories,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStickerNotFound
		}
		return nil, err
	}
	return s, nil
}

// Delete removes a sticker and returns what was removed so the caller can
// clean up its image.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (*models.Sticker, error) {
	s, err := scanSticker(r.db.QueryRow(ctx, `
		DELETE FROM stickers WHERE id = $1 RETURNING `+stickerColumns,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStickerNotFound
		}
		return nil, err
	}
	return s, nil
}

// RemoveCategory strips name from every sticker carrying it.
func (r *Repository) RemoveCategory(ctx context.Context, name string) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE stickers
		SET categories = array_remove(categories, $1), updated_at = NOW()
		WHERE $1 = ANY(categories)
	`, name)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM stickers`).Scan(&n)
	return n, err
}

// CategoryStats counts stickers per category, largest first.
func (r *Repository) CategoryStats(ctx context.Context) ([]models.CategoryCount, error) {
	rows, err := r.db.Query(ctx, `
		SELECT c, COUNT(*)
		FROM stickers, unnest(categories) AS c
		GROUP BY c
		ORDER BY COUNT(*) DESC, c
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := []models.CategoryCount{}
	for rows.Next() {
		var cc models.CategoryCount
		if err := rows.Scan(&cc.Category, &cc.Count); err != nil {
			return nil, err
		}
		stats = append(stats, cc)
	}
	return stats, rows.Err()
}

// Recent returns the most recently created stickers.
func (r *Repository) Recent(ctx context.Context, limit int) ([]*models.Sticker, error) {
	return r.collect(ctx, `
		SELECT `+stickerColumns+`
		FROM stickers ORDER BY created_at DESC, display_id DESC LIMIT $1
	`, limit)
}

// ImagePaths lists every image path referenced by the catalog.
func (r *Repository) ImagePaths(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT image_path FROM stickers`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
