package testutil

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/user/avenida-stickers/internal/models"
	"github.com/user/avenida-stickers/internal/personalized"
	"github.com/user/avenida-stickers/internal/stickers"
)

// Catalog is an in-memory catalog record store.
type Catalog struct {
	mu      sync.Mutex
	records map[uuid.UUID]*models.Sticker
	order   map[uuid.UUID]int
	seq     int
	Err     error
}

func NewCatalog() *Catalog {
	return &Catalog{records: map[uuid.UUID]*models.Sticker{}, order: map[uuid.UUID]int{}}
}

func cloneSticker(s *models.Sticker) *models.Sticker {
	cp := *s
	cp.Categories = slices.Clone(s.Categories)
	return &cp
}

// insert requires c.mu to be held.
func (c *Catalog) insert(s *models.Sticker) (*models.Sticker, error) {
	for _, existing := range c.records {
		if existing.DisplayID == s.DisplayID {
			return nil, stickers.ErrDuplicateDisplayID
		}
	}
	now := time.Now()
	rec := cloneSticker(s)
	rec.ID = uuid.New()
	if rec.Categories == nil {
		rec.Categories = []string{}
	}
	rec.CreatedAt, rec.UpdatedAt = now, now
	c.seq++
	c.records[rec.ID] = rec
	c.order[rec.ID] = c.seq
	return cloneSticker(rec), nil
}

// sorted requires c.mu to be held.
func (c *Catalog) sorted(keep func(*models.Sticker) bool) []*models.Sticker {
	out := []*models.Sticker{}
	for _, s := range c.records {
		if keep(s) {
			out = append(out, cloneSticker(s))
		}
	}
	slices.SortFunc(out, func(a, b *models.Sticker) int { return c.order[b.ID] - c.order[a.ID] })
	return out
}

func (c *Catalog) List(_ context.Context, categories []string) ([]*models.Sticker, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	return c.sorted(func(s *models.Sticker) bool {
		if len(categories) == 0 {
			return true
		}
		for _, cat := range categories {
			if s.HasCategory(cat) {
				return true
			}
		}
		return false
	}), nil
}

func (c *Catalog) Search(_ context.Context, q string) ([]*models.Sticker, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	q = strings.ToLower(q)
	return c.sorted(func(s *models.Sticker) bool {
		if strings.Contains(strings.ToLower(s.DisplayID), q) {
			return true
		}
		for _, cat := range s.Categories {
			if strings.Contains(strings.ToLower(cat), q) {
				return true
			}
		}
		return false
	}), nil
}

func (c *Catalog) GetByID(_ context.Context, id uuid.UUID) (*models.Sticker, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.records[id]
	if !ok {
		return nil, stickers.ErrStickerNotFound
	}
	return cloneSticker(s), nil
}

// ByDisplayID finds a sticker by its display id, nil if absent.
func (c *Catalog) ByDisplayID(displayID string) *models.Sticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.records {
		if s.DisplayID == displayID {
			return cloneSticker(s)
		}
	}
	return nil
}

func (c *Catalog) Create(_ context.Context, s *models.Sticker) (*models.Sticker, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	return c.insert(s)
}

func (c *Catalog) Update(_ context.Context, id uuid.UUID, imagePath string, categories []string) (*models.Sticker, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	s, ok := c.records[id]
	if !ok {
		return nil, stickers.ErrStickerNotFound
	}
	s.ImagePath = imagePath
	s.Categories = slices.Clone(categories)
	s.UpdatedAt = time.Now()
	return cloneSticker(s), nil
}

func (c *Catalog) Delete(_ context.Context, id uuid.UUID) (*models.Sticker, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.records[id]
	if !ok {
		return nil, stickers.ErrStickerNotFound
	}
	delete(c.records, id)
	delete(c.order, id)
	return s, nil
}

func (c *Catalog) RemoveCategory(_ context.Context, name string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	for _, s := range c.records {
		if i := slices.Index(s.Categories, name); i >= 0 {
			s.Categories = slices.Delete(s.Categories, i, i+1)
			n++
		}
	}
	return n, nil
}

func (c *Catalog) Count(_ context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records), nil
}

func (c *Catalog) CategoryStats(_ context.Context) ([]models.CategoryCount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	counts := map[string]int{}
	for _, s := range c.records {
		for _, cat := range s.Categories {
			counts[cat]++
		}
	}
	out := []models.CategoryCount{}
	for cat, n := range counts {
		out = append(out, models.CategoryCount{Category: cat, Count: n})
	}
	slices.SortFunc(out, func(a, b models.CategoryCount) int {
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		return strings.Compare(a.Category, b.Category)
	})
	return out, nil
}

func (c *Catalog) Recent(ctx context.Context, limit int) ([]*models.Sticker, error) {
	all, err := c.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (c *Catalog) ImagePaths(_ context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, s := range c.records {
		out = append(out, s.ImagePath)
	}
	return out, nil
}

// Personalized is an in-memory personalized sticker store. Publishing
// writes into the attached Catalog.
type Personalized struct {
	mu        sync.Mutex
	records   map[uuid.UUID]*models.PersonalizedSticker
	catalog   *Catalog
	DeleteErr map[uuid.UUID]error
	CreateErr error
}

func NewPersonalized(catalog *Catalog) *Personalized {
	return &Personalized{
		records:   map[uuid.UUID]*models.PersonalizedSticker{},
		catalog:   catalog,
		DeleteErr: map[uuid.UUID]error{},
	}
}

func clonePersonalized(p *models.PersonalizedSticker) *models.PersonalizedSticker {
	cp := *p
	if p.ExpiresAt != nil {
		t := *p.ExpiresAt
		cp.ExpiresAt = &t
	}
	if p.OriginalURL != nil {
		u := *p.OriginalURL
		cp.OriginalURL = &u
	}
	return &cp
}

func (m *Personalized) Create(_ context.Context, p *models.PersonalizedSticker) (*models.PersonalizedSticker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	for _, existing := range m.records {
		if existing.DisplayID == p.DisplayID {
			return nil, stickers.ErrDuplicateDisplayID
		}
	}
	rec := clonePersonalized(p)
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	now := time.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	m.records[rec.ID] = rec
	return clonePersonalized(rec), nil
}

// Put inserts a record as is, for arranging test state.
func (m *Personalized) Put(p *models.PersonalizedSticker) *models.PersonalizedSticker {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := clonePersonalized(p)
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	m.records[rec.ID] = rec
	return clonePersonalized(rec)
}

func (m *Personalized) GetByID(_ context.Context, id uuid.UUID) (*models.PersonalizedSticker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.records[id]
	if !ok {
		return nil, personalized.ErrNotFound
	}
	return clonePersonalized(p), nil
}

func (m *Personalized) ListVisible(_ context.Context, now time.Time) ([]*models.PersonalizedSticker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.PersonalizedSticker{}
	for _, p := range m.records {
		if personalized.Visible(p, now) {
			out = append(out, clonePersonalized(p))
		}
	}
	slices.SortFunc(out, func(a, b *models.PersonalizedSticker) int {
		return strings.Compare(b.DisplayID, a.DisplayID)
	})
	return out, nil
}

func (m *Personalized) ConfirmTemporary(_ context.Context, ids []uuid.UUID, expiresAt time.Time) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var confirmed []uuid.UUID
	for _, id := range ids {
		p, ok := m.records[id]
		if !ok || p.Status != models.StatusTemporary {
			continue
		}
		p.Status = models.StatusActive
		t := expiresAt
		p.ExpiresAt = &t
		confirmed = append(confirmed, id)
	}
	return confirmed, nil
}

func (m *Personalized) Delete(_ context.Context, id uuid.UUID) (*models.PersonalizedSticker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.records[id]
	if !ok {
		return nil, personalized.ErrNotFound
	}
	delete(m.records, id)
	return p, nil
}

func (m *Personalized) Publish(_ context.Context, id uuid.UUID, categories []string) (*models.Sticker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.records[id]
	if !ok {
		return nil, personalized.ErrNotFound
	}
	if err := personalized.CanPublish(p); err != nil {
		return nil, err
	}

	m.catalog.mu.Lock()
	sticker, err := m.catalog.insert(&models.Sticker{
		DisplayID:  p.DisplayID,
		ImagePath:  p.ImagePath,
		Categories: categories,
	})
	m.catalog.mu.Unlock()
	if err != nil {
		return nil, err
	}

	delete(m.records, id)
	return sticker, nil
}

func (m *Personalized) CountByStatus(_ context.Context) (map[models.PersonalizedStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[models.PersonalizedStatus]int{models.StatusTemporary: 0, models.StatusActive: 0}
	for _, p := range m.records {
		counts[p.Status]++
	}
	return counts, nil
}

func (m *Personalized) ListExpiredTemporary(_ context.Context, now time.Time) ([]*models.PersonalizedSticker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.PersonalizedSticker{}
	for _, p := range m.records {
		if personalized.IsExpired(p, now) {
			out = append(out, clonePersonalized(p))
		}
	}
	slices.SortFunc(out, func(a, b *models.PersonalizedSticker) int {
		return strings.Compare(a.DisplayID, b.DisplayID)
	})
	return out, nil
}

func (m *Personalized) DeleteExpired(_ context.Context, id uuid.UUID, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.DeleteErr[id]; err != nil {
		return false, err
	}
	p, ok := m.records[id]
	if !ok || !personalized.IsExpired(p, now) {
		return false, nil
	}
	delete(m.records, id)
	return true, nil
}

func (m *Personalized) ImagePaths(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, p := range m.records {
		out = append(out, p.ImagePath)
	}
	return out, nil
}

func (m *Personalized) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}
