package service

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pharmassist-medsafety/internal/domain"
	"github.com/pharmassist-medsafety/internal/vocabulary"
)

// Scoring policy. These are placeholder weights pending clinical review.
const (
	maxScore             = 5.0
	conflictPenalty      = 1.5
	minEffectiveness     = 2.0
	neutralValue         = 3.0
	safetyWeight         = 0.5
	effectivenessWeight  = 0.3
	valueWeight          = 0.2
	minKeywordRunes      = 3
	strongScoreThreshold = 4.0
	fairScoreThreshold   = 3.0
)

// Recommendation reasons, first matching row wins.
const (
	ReasonConflict     = "Requires medical supervision due to potential conflicts with your medical profile"
	ReasonEfficacy     = "Recommended primarily for safety and established efficacy for your symptoms"
	ReasonValue        = "A cost-effective option with no known conflicts"
	ReasonSymptoms     = "A safe option that addresses several of your reported symptoms"
	ReasonSafeFallback = "A safe option with no known conflicts for your medical profile"
)

// ErrInvalidPrice is returned when a product's price cannot be scored.
var ErrInvalidPrice = errors.New("invalid product price")

type priceRange struct {
	min   float64
	max   float64
	count int
}

// PriceIndex holds the price range of every value class in a catalog. It is
// built once per request and read concurrently.
type PriceIndex struct {
	classes map[string]priceRange
}

// Scorer computes safety, effectiveness, value and final scores.
type Scorer struct {
	vocab *vocabulary.Table
}

// NewScorer creates a scorer over vocab.
func NewScorer(vocab *vocabulary.Table) *Scorer {
	return &Scorer{vocab: vocab}
}

// ValueClass returns the class a product's price is compared within: the
// first interaction class of its ingredient, else the normalized ingredient,
// else the product itself.
func (s *Scorer) ValueClass(product *domain.ProductCandidate) string {
	ingredient := vocabulary.Normalize(product.ActiveIngredient)
	if ingredient == "" {
		return "product:" + strconv.Itoa(product.ID)
	}
	if classes := s.vocab.ClassesFor(ingredient); len(classes) > 0 {
		return "class:" + classes[0].Class
	}
	return "ingredient:" + ingredient
}

// BuildPriceIndex indexes the valid prices in catalog by value class.
func (s *Scorer) BuildPriceIndex(catalog []domain.ProductCandidate) *PriceIndex {
	idx := &PriceIndex{classes: make(map[string]priceRange)}
	for i := range catalog {
		p := &catalog[i]
		if !validPrice(p.Price) {
			continue
		}
		class := s.ValueClass(p)
		r, ok := idx.classes[class]
		if !ok {
			idx.classes[class] = priceRange{min: p.Price, max: p.Price, count: 1}
			continue
		}
		r.min = math.Min(r.min, p.Price)
		r.max = math.Max(r.max, p.Price)
		r.count++
		idx.classes[class] = r
	}
	return idx
}

// SymptomKeywords returns the unique normalized tokens of symptoms that are
// long enough and not stopwords, in order of first appearance.
func (s *Scorer) SymptomKeywords(symptoms string) []string {
	tokens := strings.Fields(vocabulary.Normalize(symptoms))
	seen := make(map[string]struct{}, len(tokens))
	keywords := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if utf8.RuneCountInString(tok) < minKeywordRunes || s.vocab.IsStopword(tok) {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		keywords = append(keywords, tok)
	}
	return keywords
}

// Score computes all scores for one product and selects its reason.
func (s *Scorer) Score(keywords []string, product *domain.ProductCandidate, conflict Conflict, index *PriceIndex) (domain.Scores, string, error) {
	if !validPrice(product.Price) {
		return domain.Scores{}, "", fmt.Errorf("product %d: %w: %v", product.ID, ErrInvalidPrice, product.Price)
	}

	safety := s.safety(conflict)
	effectiveness := s.effectiveness(keywords, product)
	value := s.value(product, index)
	final := clamp(safetyWeight*safety+effectivenessWeight*effectiveness+valueWeight*value, 0, maxScore)

	scores := domain.Scores{
		Safety:        round2(safety),
		Effectiveness: round2(effectiveness),
		Value:         round2(value),
		Final:         round2(final),
	}
	return scores, reasonFor(conflict.HasConflict, safety, effectiveness, value), nil
}

func (s *Scorer) safety(conflict Conflict) float64 {
	if !conflict.HasConflict {
		return maxScore
	}
	return math.Max(0, maxScore-conflictPenalty*float64(conflict.Tags.Len()))
}

func (s *Scorer) effectiveness(keywords []string, product *domain.ProductCandidate) float64 {
	if len(keywords) == 0 {
		return minEffectiveness
	}

	tokens := make(map[string]struct{})
	for _, tok := range strings.Fields(vocabulary.Normalize(product.Description + " " + product.ActiveIngredient)) {
		tokens[tok] = struct{}{}
		tokens[singular(tok)] = struct{}{}
	}
	has := func(tok string) bool {
		_, ok := tokens[tok]
		return ok
	}

	matched := 0
	for _, kw := range keywords {
		if has(kw) || has(singular(kw)) {
			matched++
			continue
		}
		for _, related := range s.vocab.RelatedTerms(kw) {
			if has(related) {
				matched++
				break
			}
		}
	}
	return math.Max(minEffectiveness, maxScore*float64(matched)/float64(len(keywords)))
}

func (s *Scorer) value(product *domain.ProductCandidate, index *PriceIndex) float64 {
	if index == nil {
		return neutralValue
	}
	r, ok := index.classes[s.ValueClass(product)]
	if !ok || r.count < 2 || r.max == r.min {
		return neutralValue
	}
	return clamp(maxScore*(r.max-product.Price)/(r.max-r.min), 0, maxScore)
}

func reasonFor(hasConflict bool, safety, effectiveness, value float64) string {
	switch {
	case hasConflict:
		return ReasonConflict
	case safety == maxScore && effectiveness >= strongScoreThreshold:
		return ReasonEfficacy
	case safety == maxScore && value >= strongScoreThreshold:
		return ReasonValue
	case safety == maxScore && effectiveness >= fairScoreThreshold:
		return ReasonSymptoms
	default:
		return ReasonSafeFallback
	}
}

func singular(word string) string {
	if len(word) > minKeywordRunes && strings.HasSuffix(word, "s") {
		return strings.TrimSuffix(word, "s")
	}
	return word
}

func validPrice(p float64) bool {
	return !math.IsNaN(p) && !math.IsInf(p, 0) && p >= 0
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
