package domain

import (
	"fmt"
	"strings"
	"time"
)

// Category buckets an activity into one of the tracked emission sources.
type Category string

const (
	CategoryTransportation Category = "transportation"
	CategoryFood           Category = "food"
	CategoryEnergy         Category = "energy"
	CategoryWaste          Category = "waste"
	CategoryOther          Category = "other"
)

// Categories lists every accepted category.
var Categories = []Category{
	CategoryTransportation,
	CategoryFood,
	CategoryEnergy,
	CategoryWaste,
	CategoryOther,
}

// ParseCategory normalizes raw input into a Category.
func ParseCategory(raw string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Categories {
		if c == known {
			return known, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, raw)
}

// ActivityRecord is the canonical logged activity stored in PostgreSQL.
// Records are immutable once created.
type ActivityRecord struct {
	ID         string
	UserID     string
	Category   Category
	Subtype    string
	Amount     float64
	Unit       string
	CO2eKg     float64
	OccurredAt time.Time
	CreatedAt  time.Time
}
