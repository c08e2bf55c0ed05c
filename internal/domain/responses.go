package domain

import (
	"time"
)

// Operation names a public engine operation. It selects incomplete-profile
// copy, cache namespaces and audit records.
type Operation string

const (
	OpRecommendations    Operation = "recommendations"
	OpSafetySummary      Operation = "safety_summary"
	OpProductSafety      Operation = "product_safety"
	OpConflicts          Operation = "conflicting_medications"
	OpMedicalProfile     Operation = "medical_profile"
	OpProfileCompletion  Operation = "profile_completion"
	OpRefreshRecommended Operation = "refresh_recommendations"
)

// Outcome carries either a computed result or the profile-incomplete
// alternate response. Exactly one of the two is set.
type Outcome[T any] struct {
	Incomplete *ProfileIncompleteResponse
	Result     *T
}

// IsComplete reports whether the outcome carries a computed result.
func (o *Outcome[T]) IsComplete() bool {
	return o.Incomplete == nil && o.Result != nil
}

// Payload returns whichever side of the outcome is set, for serialization.
func (o *Outcome[T]) Payload() interface{} {
	if o.Incomplete != nil {
		return o.Incomplete
	}
	return o.Result
}

// ProfileIncompleteResponse guides the user to complete the required
// medical history fields. It is a success path, not an error.
type ProfileIncompleteResponse struct {
	IsProfileComplete bool      `json:"is_profile_complete"`
	Title             string    `json:"title"`
	Message           string    `json:"message"`
	MissingFields     []string  `json:"missing_fields"`
	ActionRequired    string    `json:"action_required"`
	GeneratedAt       time.Time `json:"generated_at"`
}

// RecommendationResponse is the ranked recommendation payload.
type RecommendationResponse struct {
	Recommendations     []MedicationRecommendation `json:"recommendations"`
	Summary             string                     `json:"summary"`
	TotalSafe           int                        `json:"total_safe_recommendations"`
	TotalConflicted     int                        `json:"total_conflicted_items"`
	GeneratedAt         time.Time                  `json:"generated_at"`
	PersonalizedMessage string                     `json:"personalized_message"`
	ConfidenceLevel     ConfidenceLevel            `json:"confidence_level"`
	KeyInsights         []string                   `json:"key_insights"`
	NextStepsAdvice     string                     `json:"next_steps_advice"`
}

// SafetySummaryResponse is the aggregate safety payload.
type SafetySummaryResponse struct {
	TotalSafe             int                       `json:"total_safe_recommendations"`
	TotalConflicted       int                       `json:"total_conflicted_items"`
	Summary               string                    `json:"summary"`
	TopRecommendation     *MedicationRecommendation `json:"top_recommendation,omitempty"`
	GeneratedAt           time.Time                 `json:"generated_at"`
	PersonalizedMessage   string                    `json:"personalized_message"`
	OverallRiskAssessment string                    `json:"overall_risk_assessment"`
	SafetyHighlights      []string                  `json:"safety_highlights"`
	RecommendedAction     string                    `json:"recommended_action"`
}

// ConflictingMedicationsResponse lists the products that conflict with the
// user's chronic conditions.
type ConflictingMedicationsResponse struct {
	ConflictingMedications []MedicationRecommendation `json:"conflicting_medications"`
	TotalConflicting       int                        `json:"total_conflicting_items"`
	Summary                string                     `json:"summary"`
	GeneratedAt            time.Time                  `json:"generated_at"`
	PersonalizedMessage    string                     `json:"personalized_message"`
	ConflictWarnings       []string                   `json:"conflict_warnings"`
	SafetyAdvice           []string                   `json:"safety_advice"`
}

// MedicalProfileView echoes the raw profile with its parsed tags.
type MedicalProfileView struct {
	UserID                       string   `json:"user_id"`
	DisplayName                  string   `json:"display_name"`
	PromptReason                 string   `json:"prompt_reason"`
	HasChronicConditions         string   `json:"has_chronic_conditions"`
	TakesMedicationsOrTreatments string   `json:"takes_medications_or_treatments"`
	CurrentSymptoms              string   `json:"current_symptoms"`
	ParsedConditions             []string `json:"parsed_conditions"`
	IsComplete                   bool     `json:"is_complete"`
}

// ProfileCompletion is the result of a completeness check.
type ProfileCompletion struct {
	IsProfileComplete bool      `json:"is_profile_complete"`
	Title             string    `json:"title"`
	Message           string    `json:"message"`
	MissingFields     []string  `json:"missing_fields,omitempty"`
	ActionRequired    string    `json:"action_required,omitempty"`
	GeneratedAt       time.Time `json:"generated_at"`
}
