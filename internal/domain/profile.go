// Package domain contains the core entities, interfaces and configuration
// types of the medication safety and recommendation engine.
//
// Medical data handled here is supplied by external collaborators (the user
// account store and the product catalog) and is treated as read-only input.
package domain

import (
	"encoding/json"
	"strings"
)

// ConditionTag is a canonical label for a chronic medical condition.
type ConditionTag string

const (
	Diabetes              ConditionTag = "diabetes"
	Hypertension          ConditionTag = "hypertension"
	HeartDisease          ConditionTag = "heart_disease"
	KidneyDisease         ConditionTag = "kidney_disease"
	LiverDisease          ConditionTag = "liver_disease"
	Asthma                ConditionTag = "asthma"
	COPD                  ConditionTag = "copd"
	ThyroidDisease        ConditionTag = "thyroid_disease"
	Arthritis             ConditionTag = "arthritis"
	InflammatoryArthritis ConditionTag = "inflammatory_arthritis"
	Osteoporosis          ConditionTag = "osteoporosis"
	Gout                  ConditionTag = "gout"
	Seizures              ConditionTag = "seizures"
	Depression            ConditionTag = "depression"
	MyastheniaGravis      ConditionTag = "myasthenia_gravis"
	G6PDDeficiency        ConditionTag = "g6pd_deficiency"
	AutoimmuneDiseases    ConditionTag = "autoimmune_diseases"
)

// KnownConditionTags lists every canonical tag in vocabulary order.
var KnownConditionTags = []ConditionTag{
	Diabetes,
	Hypertension,
	HeartDisease,
	KidneyDisease,
	LiverDisease,
	Asthma,
	COPD,
	ThyroidDisease,
	Arthritis,
	InflammatoryArthritis,
	Osteoporosis,
	Gout,
	Seizures,
	Depression,
	MyastheniaGravis,
	G6PDDeficiency,
	AutoimmuneDiseases,
}

// IsValid reports whether the tag is part of the fixed vocabulary.
func (t ConditionTag) IsValid() bool {
	for _, known := range KnownConditionTags {
		if t == known {
			return true
		}
	}
	return false
}

// String returns the tag value
func (t ConditionTag) String() string {
	return string(t)
}

// Phrase returns the tag as plain words, e.g. "heart disease".
func (t ConditionTag) Phrase() string {
	return strings.ReplaceAll(string(t), "_", " ")
}

// ConditionSet is an ordered set of condition tags. Members are always kept
// in vocabulary order so that rendering is deterministic.
type ConditionSet struct {
	order []ConditionTag
	tags  map[ConditionTag]struct{}
}

// NewConditionSet builds a set from tags, ordering members by rank. Tags
// missing from rank are appended in the order given.
func NewConditionSet(rank []ConditionTag, tags ...ConditionTag) ConditionSet {
	present := make(map[ConditionTag]struct{}, len(tags))
	for _, t := range tags {
		present[t] = struct{}{}
	}

	set := ConditionSet{tags: present}
	seen := make(map[ConditionTag]struct{}, len(present))
	for _, t := range rank {
		if _, ok := present[t]; ok {
			set.order = append(set.order, t)
			seen[t] = struct{}{}
		}
	}
	for _, t := range tags {
		if _, ok := seen[t]; !ok {
			set.order = append(set.order, t)
			seen[t] = struct{}{}
		}
	}
	return set
}

// Has reports membership.
func (s ConditionSet) Has(tag ConditionTag) bool {
	_, ok := s.tags[tag]
	return ok
}

// HasAny reports whether any of the tags is a member.
func (s ConditionSet) HasAny(tags ...ConditionTag) bool {
	for _, t := range tags {
		if s.Has(t) {
			return true
		}
	}
	return false
}

// Len returns the number of members.
func (s ConditionSet) Len() int {
	return len(s.order)
}

// IsEmpty reports whether the set has no members.
func (s ConditionSet) IsEmpty() bool {
	return len(s.order) == 0
}

// Tags returns a copy of the members in vocabulary order.
func (s ConditionSet) Tags() []ConditionTag {
	out := make([]ConditionTag, len(s.order))
	copy(out, s.order)
	return out
}

// Strings returns the members as plain strings in vocabulary order.
func (s ConditionSet) Strings() []string {
	out := make([]string, len(s.order))
	for i, t := range s.order {
		out[i] = string(t)
	}
	return out
}

// MarshalJSON renders the set as an ordered array of tag strings.
func (s ConditionSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Strings())
}

// MedicalProfile is the free-text medical history of a user as stored by the
// account store. Its condition tags are derived per request by the
// normalizer and returned alongside it, never stored on it.
type MedicalProfile struct {
	UserID                       string `json:"user_id"`
	DisplayName                  string `json:"display_name"`
	PromptReason                 string `json:"prompt_reason"`
	HasChronicConditions         string `json:"has_chronic_conditions"`
	TakesMedicationsOrTreatments string `json:"takes_medications_or_treatments"`
	CurrentSymptoms              string `json:"current_symptoms"`
}

// IsComplete reports whether all four free-text fields are non-blank.
func (p *MedicalProfile) IsComplete() bool {
	return !isBlank(p.PromptReason) &&
		!isBlank(p.HasChronicConditions) &&
		!isBlank(p.TakesMedicationsOrTreatments) &&
		!isBlank(p.CurrentSymptoms)
}

// GreetingName returns the display name, or "there" when none is set.
func (p *MedicalProfile) GreetingName() string {
	if isBlank(p.DisplayName) {
		return "there"
	}
	return p.DisplayName
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
