package models

import (
	"encoding/json"
	"time"
)

type ConfigType string

const (
	ConfigNumber  ConfigType = "number"
	ConfigString  ConfigType = "string"
	ConfigBoolean ConfigType = "boolean"
	ConfigObject  ConfigType = "object"
	ConfigArray   ConfigType = "array"
)

func (t ConfigType) Valid() bool {
	switch t {
	case ConfigNumber, ConfigString, ConfigBoolean, ConfigObject, ConfigArray:
		return true
	}
	return false
}

// ConfigEntry is one runtime setting. Value holds the raw JSON so any of the
// supported types round-trips unchanged.
type ConfigEntry struct {
	Key         string          `json:"key" db:"key"`
	Value       json.RawMessage `json:"value" db:"value"`
	Type        ConfigType      `json:"type" db:"type"`
	Description string          `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

type SetConfigRequest struct {
	Value       json.RawMessage `json:"value" validate:"required"`
	Type        ConfigType      `json:"type" validate:"required,oneof=number string boolean object array"`
	Description string          `json:"description" validate:"max=256"`
}

// StickerSize is a printable size offered in the storefront.
type StickerSize struct {
	ID         string  `json:"id" validate:"required"`
	Name       string  `json:"name" validate:"required"`
	Dimensions string  `json:"dimensions" validate:"required"`
	Price      float64 `json:"price" validate:"gte=0"`
}

type SizesConfig struct {
	Sizes     []StickerSize `json:"sizes" validate:"required,dive"`
	Currency  string        `json:"currency"`
	UpdatedAt string        `json:"updatedAt,omitempty"`
}

type AdminAuthRequest struct {
	AdminKey string `json:"adminKey" validate:"required"`
}

type DashboardStats struct {
	TotalStickers       int                        `json:"total_stickers"`
	TotalCategories     int                        `json:"total_categories"`
	TotalSizes          int                        `json:"total_sizes"`
	CategoryStats       []CategoryCount            `json:"category_stats"`
	RecentStickers      []*Sticker                 `json:"recent_stickers"`
	PersonalizedByState map[PersonalizedStatus]int `json:"personalized_by_status"`
}
