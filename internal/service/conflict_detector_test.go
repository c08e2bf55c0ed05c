package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pharmassist-medsafety/internal/domain"
)

func TestConflictDetector_Detect(t *testing.T) {
	vocab := testVocabulary(t)
	normalizer := NewProfileNormalizer(vocab)
	detector := NewConflictDetector(vocab, normalizer)

	conditions := func(tags ...domain.ConditionTag) domain.ConditionSet {
		return domain.NewConditionSet(vocab.Order(), tags...)
	}

	tests := []struct {
		name         string
		conditions   domain.ConditionSet
		product      domain.ProductCandidate
		wantConflict bool
		wantTags     []string
		wantDetails  string
	}{
		{
			name:         "interaction route",
			conditions:   conditions(domain.Hypertension, domain.Diabetes),
			product:      domain.ProductCandidate{ID: 1, ActiveIngredient: "Ibuprofen"},
			wantConflict: true,
			wantTags:     []string{"hypertension"},
			wantDetails:  "Hypertension: May raise blood pressure or reduce the effect of blood pressure medication.",
		},
		{
			name:         "marker route via synonyms",
			conditions:   conditions(domain.Diabetes),
			product:      domain.ProductCandidate{ID: 2, ActiveIngredient: "Dextromethorphan", ConflictMarkers: []string{"High blood sugar"}},
			wantConflict: true,
			wantTags:     []string{"diabetes"},
			wantDetails:  "Diabetes: May affect blood sugar control or mask the warning signs of hypoglycemia.",
		},
		{
			name:         "both routes are merged in vocabulary order",
			conditions:   conditions(domain.Asthma, domain.KidneyDisease, domain.Gout),
			product:      domain.ProductCandidate{ID: 3, ActiveIngredient: "Naproxen", ConflictMarkers: []string{"gout"}},
			wantConflict: true,
			wantTags:     []string{"kidney_disease", "asthma", "gout"},
			wantDetails: "Kidney disease: May worsen kidney function or accumulate when renal clearance is reduced.; " +
				"Asthma: May trigger bronchospasm or worsen asthma symptoms.; " +
				"Gout: May raise uric acid levels and trigger gout flares.",
		},
		{
			name:         "marker for a condition the user does not have",
			conditions:   conditions(domain.Diabetes),
			product:      domain.ProductCandidate{ID: 4, ActiveIngredient: "Loratadine", ConflictMarkers: []string{"glaucoma", "asthma"}},
			wantConflict: false,
			wantTags:     []string{},
		},
		{
			name:         "no conditions",
			conditions:   conditions(),
			product:      domain.ProductCandidate{ID: 5, ActiveIngredient: "Ibuprofen", ConflictMarkers: []string{"asthma"}},
			wantConflict: false,
			wantTags:     []string{},
		},
		{
			name:         "combination product hits several classes",
			conditions:   conditions(domain.HeartDisease, domain.LiverDisease),
			product:      domain.ProductCandidate{ID: 6, ActiveIngredient: "Paracetamol + Phenylephrine"},
			wantConflict: true,
			wantTags:     []string{"heart_disease", "liver_disease"},
			wantDetails: "Heart disease: May increase cardiovascular risk or place additional strain on heart function.; " +
				"Liver disease: May cause liver injury or accumulate when liver function is impaired.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := detector.Detect(tt.conditions, &tt.product)
			assert.Equal(t, tt.wantConflict, c.HasConflict)
			assert.Equal(t, tt.wantTags, c.Tags.Strings())
			assert.Equal(t, tt.wantDetails, c.Details)
			assert.Equal(t, c.HasConflict, c.Details != "", "HasConflict iff details are present")
		})
	}
}
