package domain

import (
	"strings"
	"time"
)

// ProductCandidate is a catalog product as seen by the engine.
type ProductCandidate struct {
	ID               int       `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	Price            float64   `json:"price"`
	PictureURL       string    `json:"picture_url"`
	ActiveIngredient string    `json:"active_ingredient"`
	ConflictMarkers  []string  `json:"conflict_markers"`
	UpdatedAt        time.Time `json:"updated_at,omitempty"`
}

// ParseConflictMarkers splits the catalog's conflicts column into markers.
// Commas and semicolons both separate markers; blanks are dropped.
func ParseConflictMarkers(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';'
	})
	markers := make([]string, 0, len(fields))
	for _, f := range fields {
		if trimmed := strings.TrimSpace(f); trimmed != "" {
			markers = append(markers, trimmed)
		}
	}
	return markers
}

// JoinConflictMarkers is the inverse of ParseConflictMarkers.
func JoinConflictMarkers(markers []string) string {
	return strings.Join(markers, ", ")
}
