package service

import (
	"strings"

	"github.com/pharmassist-medsafety/internal/domain"
	"github.com/pharmassist-medsafety/internal/vocabulary"
)

// Missing-field labels, reported in this order.
const (
	MissingPromptReason      = "Reason for visit/consultation"
	MissingChronicConditions = "Chronic conditions and medical history"
	MissingMedications       = "Current medications and treatments"
	MissingSymptoms          = "Current symptoms and concerns"

	// ProfileCompleteNotice replaces an otherwise empty missing-fields list.
	ProfileCompleteNotice = "Medical profile appears complete, but may need additional information"
)

// ProfileNormalizer maps free-text medical history onto canonical condition
// tags.
type ProfileNormalizer struct {
	vocab *vocabulary.Table
}

// NewProfileNormalizer creates a normalizer over vocab.
func NewProfileNormalizer(vocab *vocabulary.Table) *ProfileNormalizer {
	return &ProfileNormalizer{vocab: vocab}
}

// Normalize extracts the condition tags of profile and reports whether all
// four required fields are filled in. The profile is not modified.
func (n *ProfileNormalizer) Normalize(profile *domain.MedicalProfile) (domain.ConditionSet, bool) {
	if profile == nil {
		return domain.NewConditionSet(n.vocab.Order()), false
	}

	text := strings.Join([]string{
		profile.HasChronicConditions,
		profile.TakesMedicationsOrTreatments,
		profile.CurrentSymptoms,
	}, " ")
	return n.MatchTags(text), profile.IsComplete()
}

// MatchTags returns every tag with a synonym that occurs in text as a whole
// phrase. Matching ignores case and punctuation.
func (n *ProfileNormalizer) MatchTags(text string) domain.ConditionSet {
	return n.matchNormalized(vocabulary.Normalize(text))
}

func (n *ProfileNormalizer) matchNormalized(normalized string) domain.ConditionSet {
	var matched []domain.ConditionTag
	if normalized != "" {
		for _, tag := range n.vocab.Order() {
			c, _ := n.vocab.Condition(tag)
			for _, phrase := range c.Phrases() {
				if vocabulary.ContainsPhrase(normalized, phrase) {
					matched = append(matched, tag)
					break
				}
			}
		}
	}
	return domain.NewConditionSet(n.vocab.Order(), matched...)
}

// MissingFields lists the labels of the blank required fields. The result is
// never empty.
func MissingFields(profile *domain.MedicalProfile) []string {
	if profile == nil {
		return []string{MissingPromptReason, MissingChronicConditions, MissingMedications, MissingSymptoms}
	}

	var missing []string
	if strings.TrimSpace(profile.PromptReason) == "" {
		missing = append(missing, MissingPromptReason)
	}
	if strings.TrimSpace(profile.HasChronicConditions) == "" {
		missing = append(missing, MissingChronicConditions)
	}
	if strings.TrimSpace(profile.TakesMedicationsOrTreatments) == "" {
		missing = append(missing, MissingMedications)
	}
	if strings.TrimSpace(profile.CurrentSymptoms) == "" {
		missing = append(missing, MissingSymptoms)
	}

	if len(missing) == 0 {
		return []string{ProfileCompleteNotice}
	}
	return missing
}
