package domain

import (
	"time"
)

// Scores holds the four per-product scores, each in [0, 5].
type Scores struct {
	Safety        float64 `json:"safety_score"`
	Effectiveness float64 `json:"effectiveness_score"`
	Value         float64 `json:"value_score"`
	Final         float64 `json:"final_score"`
}

// MedicationRecommendation is the engine's computed projection for one
// (profile, product) pair. It is created per request and never persisted.
//
// HasConflict is true iff ConflictDetails is non-empty.
type MedicationRecommendation struct {
	ID                   string    `json:"id"`
	ProductID            int       `json:"product_id"`
	ProductName          string    `json:"product_name"`
	ProductDescription   string    `json:"product_description"`
	ProductPrice         float64   `json:"product_price"`
	ProductPictureURL    string    `json:"product_picture_url"`
	ActiveIngredient     string    `json:"active_ingredient"`
	SafetyScore          float64   `json:"safety_score"`
	EffectivenessScore   float64   `json:"effectiveness_score"`
	ValueScore           float64   `json:"value_score"`
	FinalScore           float64   `json:"final_score"`
	HasConflict          bool      `json:"has_conflict"`
	ConflictDetails      string    `json:"conflict_details"`
	RecommendationReason string    `json:"recommendation_reason"`
	CreatedAt            time.Time `json:"created_at"`
}

// Scores returns the score block of the recommendation.
func (r *MedicationRecommendation) Scores() Scores {
	return Scores{
		Safety:        r.SafetyScore,
		Effectiveness: r.EffectivenessScore,
		Value:         r.ValueScore,
		Final:         r.FinalScore,
	}
}

// SafetySummary aggregates a batch of recommendations.
type SafetySummary struct {
	TotalSafe       int    `json:"total_safe_recommendations"`
	TotalConflicted int    `json:"total_conflicted_items"`
	Summary         string `json:"summary"`
}

// Total returns the number of evaluated products.
func (s SafetySummary) Total() int {
	return s.TotalSafe + s.TotalConflicted
}

// ConfidenceLevel qualifies a batch of recommendations.
type ConfidenceLevel string

const (
	ConfidenceVeryHigh ConfidenceLevel = "Very High"
	ConfidenceHigh     ConfidenceLevel = "High"
	ConfidenceModerate ConfidenceLevel = "Moderate"
	ConfidenceLow      ConfidenceLevel = "Low"
)

// String returns the confidence label
func (c ConfidenceLevel) String() string {
	return string(c)
}
