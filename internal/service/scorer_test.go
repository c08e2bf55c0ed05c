package service

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmassist-medsafety/internal/domain"
)

func TestScorer_SymptomKeywords(t *testing.T) {
	s := NewScorer(testVocabulary(t))

	tests := []struct {
		symptoms string
		want     []string
	}{
		{"headache and mild fever", []string{"headache", "fever"}},
		{"Cough, cough, COUGH!", []string{"cough"}},
		{"I have a bad ear ache", []string{"bad", "ear", "ache"}},
		{"", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.symptoms, func(t *testing.T) {
			assert.Equal(t, tt.want, s.SymptomKeywords(tt.symptoms))
		})
	}
}

func TestScorer_Safety(t *testing.T) {
	vocab := testVocabulary(t)
	s := NewScorer(vocab)
	product := &domain.ProductCandidate{ID: 1, Price: 1}

	tests := []struct {
		name string
		tags []domain.ConditionTag
		want float64
	}{
		{"no conflict", nil, 5.0},
		{"one tag", []domain.ConditionTag{domain.Asthma}, 3.5},
		{"two tags", []domain.ConditionTag{domain.Asthma, domain.Gout}, 2.0},
		{"three tags", []domain.ConditionTag{domain.Asthma, domain.Gout, domain.COPD}, 0.5},
		{"floor at zero", []domain.ConditionTag{domain.Asthma, domain.Gout, domain.COPD, domain.Diabetes}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conflict := Conflict{Tags: domain.NewConditionSet(vocab.Order(), tt.tags...)}
			conflict.HasConflict = len(tt.tags) > 0
			scores, _, err := s.Score(nil, product, conflict, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, scores.Safety)
		})
	}
}

func TestScorer_Effectiveness(t *testing.T) {
	s := NewScorer(testVocabulary(t))

	tests := []struct {
		name     string
		symptoms string
		product  domain.ProductCandidate
		want     float64
	}{
		{
			name:     "all keywords matched",
			symptoms: "headache fever",
			product:  domain.ProductCandidate{Description: "For headache and fever"},
			want:     5.0,
		},
		{
			name:     "related symptom term",
			symptoms: "headache fever",
			product:  domain.ProductCandidate{Description: "Fast pain relief"},
			want:     2.5,
		},
		{
			name:     "plural keyword matches singular token",
			symptoms: "headaches",
			product:  domain.ProductCandidate{Description: "headache tablets"},
			want:     5.0,
		},
		{
			name:     "plural product token matches singular keyword",
			symptoms: "headache",
			product:  domain.ProductCandidate{Description: "Relief for tension headaches"},
			want:     5.0,
		},
		{
			name:     "ingredient counts as product text",
			symptoms: "heartburn",
			product:  domain.ProductCandidate{Description: "Chewable tablets", ActiveIngredient: "Calcium carbonate antacid"},
			want:     5.0,
		},
		{
			name:     "no match floors at two",
			symptoms: "rash",
			product:  domain.ProductCandidate{Description: "For headache"},
			want:     2.0,
		},
		{
			name:     "no keywords",
			symptoms: "the and",
			product:  domain.ProductCandidate{Description: "For headache"},
			want:     2.0,
		},
		{
			name:     "one of three",
			symptoms: "cough nausea insomnia",
			product:  domain.ProductCandidate{Description: "Cough suppressant"},
			want:     2.0,
		},
		{
			name:     "two of three",
			symptoms: "cough nausea insomnia",
			product:  domain.ProductCandidate{Description: "Night cough relief for better sleep"},
			want:     3.33,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scores, _, err := s.Score(s.SymptomKeywords(tt.symptoms), &tt.product, Conflict{}, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, scores.Effectiveness)
		})
	}
}

func TestScorer_Value(t *testing.T) {
	s := NewScorer(testVocabulary(t))
	catalog := []domain.ProductCandidate{
		{ID: 1, ActiveIngredient: "Ibuprofen", Price: 4},
		{ID: 2, ActiveIngredient: "Naproxen", Price: 8},
		{ID: 3, ActiveIngredient: "Aspirin", Price: 6},
		{ID: 4, ActiveIngredient: "Loratadine", Price: 9},
		{ID: 5, ActiveIngredient: "Cetirizine", Price: 3},
		{ID: 6, ActiveIngredient: "Cetirizine", Price: 3},
		{ID: 7, ActiveIngredient: "", Price: 1},
		{ID: 8, ActiveIngredient: "Ibuprofen", Price: math.NaN()},
	}
	index := s.BuildPriceIndex(catalog)

	tests := []struct {
		name    string
		product domain.ProductCandidate
		want    float64
	}{
		{"cheapest in class", catalog[0], 5.0},
		{"most expensive in class", catalog[1], 0.0},
		{"midpoint in class", catalog[2], 2.5},
		{"single item class", catalog[3], 3.0},
		{"all prices equal", catalog[4], 3.0},
		{"no ingredient forms its own class", catalog[6], 3.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scores, _, err := s.Score(nil, &tt.product, Conflict{}, index)
			require.NoError(t, err)
			assert.Equal(t, tt.want, scores.Value)
		})
	}

	t.Run("invalid price is a scoring error", func(t *testing.T) {
		_, _, err := s.Score(nil, &catalog[7], Conflict{}, index)
		assert.ErrorIs(t, err, ErrInvalidPrice)

		negative := domain.ProductCandidate{ID: 9, Price: -1}
		_, _, err = s.Score(nil, &negative, Conflict{}, index)
		assert.ErrorIs(t, err, ErrInvalidPrice)
	})
}

func TestScorer_FinalAndReason(t *testing.T) {
	vocab := testVocabulary(t)
	s := NewScorer(vocab)

	t.Run("weights", func(t *testing.T) {
		product := &domain.ProductCandidate{ID: 1, Description: "headache", Price: 1}
		scores, reason, err := s.Score([]string{"headache"}, product, Conflict{}, nil)
		require.NoError(t, err)
		// 0.5*5 + 0.3*5 + 0.2*3
		assert.Equal(t, 4.6, scores.Final)
		assert.Equal(t, ReasonEfficacy, reason)
	})

	tests := []struct {
		name          string
		hasConflict   bool
		safety        float64
		effectiveness float64
		value         float64
		want          string
	}{
		{"conflict wins", true, 3.5, 5, 5, ReasonConflict},
		{"efficacy", false, 5, 4, 5, ReasonEfficacy},
		{"value", false, 5, 3.9, 4, ReasonValue},
		{"symptoms", false, 5, 3, 2, ReasonSymptoms},
		{"fallback", false, 5, 2, 3, ReasonSafeFallback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, reasonFor(tt.hasConflict, tt.safety, tt.effectiveness, tt.value))
		})
	}
}
