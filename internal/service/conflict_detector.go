package service

import (
	"fmt"
	"strings"

	"github.com/pharmassist-medsafety/internal/domain"
	"github.com/pharmassist-medsafety/internal/vocabulary"
)

// Conflict is the outcome of checking one product against a user's
// conditions. HasConflict is true iff Details is non-empty.
type Conflict struct {
	HasConflict bool
	Details     string
	Tags        domain.ConditionSet
}

// ConflictDetector matches products against parsed condition tags through
// the product's conflict markers and active-ingredient interaction classes.
type ConflictDetector struct {
	vocab      *vocabulary.Table
	normalizer *ProfileNormalizer
}

// NewConflictDetector creates a detector over vocab.
func NewConflictDetector(vocab *vocabulary.Table, normalizer *ProfileNormalizer) *ConflictDetector {
	return &ConflictDetector{vocab: vocab, normalizer: normalizer}
}

// Detect reports which of conditions the product conflicts with.
func (d *ConflictDetector) Detect(conditions domain.ConditionSet, product *domain.ProductCandidate) Conflict {
	order := d.vocab.Order()
	if conditions.IsEmpty() || product == nil {
		return Conflict{Tags: domain.NewConditionSet(order)}
	}

	var hits []domain.ConditionTag

	// Marker route.
	for _, marker := range product.ConflictMarkers {
		for _, tag := range d.normalizer.MatchTags(marker).Tags() {
			if conditions.Has(tag) {
				hits = append(hits, tag)
			}
		}
	}

	// Interaction route.
	for _, class := range d.vocab.ClassesFor(vocabulary.Normalize(product.ActiveIngredient)) {
		for _, tag := range class.Conditions {
			if conditions.Has(tag) {
				hits = append(hits, tag)
			}
		}
	}

	matched := domain.NewConditionSet(order, hits...)
	if matched.IsEmpty() {
		return Conflict{Tags: matched}
	}

	return Conflict{
		HasConflict: true,
		Details:     d.renderDetails(matched),
		Tags:        matched,
	}
}

func (d *ConflictDetector) renderDetails(tags domain.ConditionSet) string {
	parts := make([]string, 0, tags.Len())
	for _, tag := range tags.Tags() {
		c, ok := d.vocab.Condition(tag)
		if !ok {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", c.Display, c.Rationale))
	}
	return strings.Join(parts, "; ")
}
