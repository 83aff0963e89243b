package models

import (
	"time"

	"github.com/google/uuid"
)

// Sticker is a published catalog entry.
type Sticker struct {
	ID         uuid.UUID `json:"id" db:"id"`
	DisplayID  string    `json:"display_id" db:"display_id"` // "0001" or a carried-over "P0001"
	ImagePath  string    `json:"image_path" db:"image_path"`
	Categories []string  `json:"categories" db:"categories"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// HasCategory reports whether the sticker is tagged with name.
func (s *Sticker) HasCategory(name string) bool {
	for _, c := range s.Categories {
		if c == name {
			return true
		}
	}
	return false
}

// CategoryCount is one row of the dashboard's per-category breakdown.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// Request DTOs

type AddCategoryRequest struct {
	Name string `json:"name" validate:"required,max=64"`
}

type PublishRequest struct {
	Categories []string `json:"categories" validate:"omitempty,dive,required,max=64"`
}
