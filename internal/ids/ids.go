// Package ids formats and allocates the human-facing display identifiers:
// "0001", "0002", ... for catalog stickers and "P0001", "P0002", ... for
// personalized stickers.
package ids

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Max is the largest number a 4-digit identifier can carry.
const Max = 9999

var (
	ErrSequenceExhausted = errors.New("display identifier sequence exhausted")
	ErrInvalidID         = errors.New("invalid display identifier")
)

// Series names one independent identifier sequence.
type Series struct {
	Name   string
	Prefix string
}

var (
	Catalog      = Series{Name: "sticker", Prefix: ""}
	Personalized = Series{Name: "personalized", Prefix: "P"}
)

var (
	catalogPattern      = regexp.MustCompile(`^\d{4}$`)
	personalizedPattern = regexp.MustCompile(`^P\d{4}$`)
)

// Format renders n in the series, zero padded to 4 digits.
func (s Series) Format(n int) (string, error) {
	if n < 1 {
		return "", fmt.Errorf("%w: %d", ErrInvalidID, n)
	}
	if n > Max {
		return "", fmt.Errorf("%w: %s series reached %d", ErrSequenceExhausted, s.Name, n)
	}
	return fmt.Sprintf("%s%04d", s.Prefix, n), nil
}

// Parse returns the numeric part of an identifier belonging to the series.
func (s Series) Parse(id string) (int, error) {
	if !s.Matches(id) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return strconv.Atoi(strings.TrimPrefix(id, s.Prefix))
}

// Matches reports whether id has the exact shape of the series.
func (s Series) Matches(id string) bool {
	if s.Prefix == Personalized.Prefix {
		return personalizedPattern.MatchString(id)
	}
	return catalogPattern.MatchString(id)
}

// ValidCatalogID reports whether id may appear in the catalog. Published
// personalized stickers keep their P-prefixed identifier there.
func ValidCatalogID(id string) bool {
	return Catalog.Matches(id) || Personalized.Matches(id)
}
