package service

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pharmassist-medsafety/internal/domain"
	"github.com/pharmassist-medsafety/internal/vocabulary"
)

const (
	defaultMaxWorkers         = 8
	defaultMaxResults         = 10
	defaultConflictMaxResults = 50
)

// Recommender evaluates a catalog against a medical profile and ranks the
// results. It performs no I/O and holds no per-request state.
type Recommender struct {
	vocab      *vocabulary.Table
	normalizer *ProfileNormalizer
	detector   *ConflictDetector
	scorer     *Scorer
	logger     *logrus.Logger

	maxWorkers         int
	maxResults         int
	conflictMaxResults int
	now                func() time.Time
	newID              func(productID int) string
}

// RecommenderOption configures a Recommender.
type RecommenderOption func(*Recommender)

// WithMaxWorkers bounds the number of products evaluated concurrently.
func WithMaxWorkers(n int) RecommenderOption {
	return func(r *Recommender) {
		if n > 0 {
			r.maxWorkers = n
		}
	}
}

// WithResultDefaults sets the result limits used when callers pass a
// non-positive maxResults.
func WithResultDefaults(maxResults, conflictMaxResults int) RecommenderOption {
	return func(r *Recommender) {
		if maxResults > 0 {
			r.maxResults = maxResults
		}
		if conflictMaxResults > 0 {
			r.conflictMaxResults = conflictMaxResults
		}
	}
}

// WithClock replaces the time source used for CreatedAt.
func WithClock(now func() time.Time) RecommenderOption {
	return func(r *Recommender) { r.now = now }
}

// WithIDGenerator replaces the recommendation id generator.
func WithIDGenerator(gen func(productID int) string) RecommenderOption {
	return func(r *Recommender) { r.newID = gen }
}

// NewRecommender creates a recommender over vocab.
func NewRecommender(vocab *vocabulary.Table, logger *logrus.Logger, opts ...RecommenderOption) *Recommender {
	normalizer := NewProfileNormalizer(vocab)
	r := &Recommender{
		vocab:              vocab,
		normalizer:         normalizer,
		detector:           NewConflictDetector(vocab, normalizer),
		scorer:             NewScorer(vocab),
		logger:             logger,
		maxWorkers:         defaultMaxWorkers,
		maxResults:         defaultMaxResults,
		conflictMaxResults: defaultConflictMaxResults,
		now:                func() time.Time { return time.Now().UTC() },
		newID:              func(int) string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Normalizer returns the profile normalizer shared by the pipeline.
func (r *Recommender) Normalizer() *ProfileNormalizer {
	return r.normalizer
}

// Now returns the current time from the configured clock.
func (r *Recommender) Now() time.Time {
	return r.now()
}

// Recommend ranks catalog for profile. Conflicted products are dropped unless
// includeConflicted is set. The profile is expected to be complete.
func (r *Recommender) Recommend(ctx context.Context, profile *domain.MedicalProfile, catalog []domain.ProductCandidate, includeConflicted bool, maxResults int) ([]domain.MedicationRecommendation, error) {
	all, err := r.EvaluateCatalog(ctx, profile, catalog)
	if err != nil {
		return nil, err
	}
	return r.Select(all, includeConflicted, maxResults), nil
}

// Select keeps the first maxResults of a ranked list, dropping conflicted
// items unless includeConflicted is set.
func (r *Recommender) Select(ranked []domain.MedicationRecommendation, includeConflicted bool, maxResults int) []domain.MedicationRecommendation {
	if maxResults <= 0 {
		maxResults = r.maxResults
	}

	out := make([]domain.MedicationRecommendation, 0, min(len(ranked), maxResults))
	for _, rec := range ranked {
		if rec.HasConflict && !includeConflicted {
			continue
		}
		out = append(out, rec)
		if len(out) == maxResults {
			break
		}
	}
	return out
}

// ConflictingMedications returns only the conflicted products, ranked.
func (r *Recommender) ConflictingMedications(ctx context.Context, profile *domain.MedicalProfile, catalog []domain.ProductCandidate, maxResults int) ([]domain.MedicationRecommendation, error) {
	all, err := r.EvaluateCatalog(ctx, profile, catalog)
	if err != nil {
		return nil, err
	}
	if maxResults <= 0 {
		maxResults = r.conflictMaxResults
	}

	out := make([]domain.MedicationRecommendation, 0)
	for _, rec := range all {
		if !rec.HasConflict {
			continue
		}
		out = append(out, rec)
		if len(out) == maxResults {
			break
		}
	}
	return out, nil
}

// AnalyzeProductSafety evaluates a single product. The value score is taken
// against the price index of catalog, so scores match Recommend.
func (r *Recommender) AnalyzeProductSafety(profile *domain.MedicalProfile, product *domain.ProductCandidate, catalog []domain.ProductCandidate) (*domain.MedicationRecommendation, error) {
	conditions, _ := r.normalizer.Normalize(profile)
	keywords := r.scorer.SymptomKeywords(profile.CurrentSymptoms)
	index := r.scorer.BuildPriceIndex(catalog)

	rec, err := r.evaluate(conditions, keywords, product, index)
	if err != nil {
		return nil, err
	}
	r.stamp(rec)
	return rec, nil
}

// Summarize evaluates the whole catalog, conflicted items included, and
// counts the outcome.
func (r *Recommender) Summarize(ctx context.Context, profile *domain.MedicalProfile, catalog []domain.ProductCandidate) (domain.SafetySummary, []domain.MedicationRecommendation, error) {
	all, err := r.EvaluateCatalog(ctx, profile, catalog)
	if err != nil {
		return domain.SafetySummary{}, nil, err
	}

	var summary domain.SafetySummary
	for _, rec := range all {
		if rec.HasConflict {
			summary.TotalConflicted++
		} else {
			summary.TotalSafe++
		}
	}
	summary.Summary = SummaryText(summary.TotalSafe, summary.TotalConflicted)
	return summary, all, nil
}

// EvaluateCatalog scores every product of catalog and returns them ranked.
// Products that fail evaluation are logged and skipped.
func (r *Recommender) EvaluateCatalog(ctx context.Context, profile *domain.MedicalProfile, catalog []domain.ProductCandidate) ([]domain.MedicationRecommendation, error) {
	if profile == nil {
		return nil, fmt.Errorf("profile is required")
	}
	start := time.Now()

	conditions, _ := r.normalizer.Normalize(profile)
	keywords := r.scorer.SymptomKeywords(profile.CurrentSymptoms)
	index := r.scorer.BuildPriceIndex(catalog)

	results := make([]*domain.MedicationRecommendation, len(catalog))
	semaphore := make(chan struct{}, r.maxWorkers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	failed := 0

dispatch:
	for i := range catalog {
		select {
		case semaphore <- struct{}{}:
		case <-ctx.Done():
			break dispatch
		}

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-semaphore }()
			defer func() {
				if rec := recover(); rec != nil {
					r.logger.WithFields(logrus.Fields{
						"product_id": catalog[i].ID,
						"panic":      rec,
						"stack":      string(debug.Stack()),
					}).Error("Product evaluation panicked, skipping product")
					mu.Lock()
					failed++
					mu.Unlock()
				}
			}()

			rec, err := r.evaluate(conditions, keywords, &catalog[i], index)
			if err != nil {
				r.logger.WithError(err).WithField("product_id", catalog[i].ID).Warn("Failed to evaluate product, skipping")
				mu.Lock()
				failed++
				mu.Unlock()
				return
			}
			results[i] = rec
		}(i)
	}

	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ranked := make([]domain.MedicationRecommendation, 0, len(results))
	for _, rec := range results {
		if rec != nil {
			ranked = append(ranked, *rec)
		}
	}
	sortRecommendations(ranked)
	for i := range ranked {
		r.stamp(&ranked[i])
	}

	r.logger.WithFields(logrus.Fields{
		"user_id":      profile.UserID,
		"catalog_size": len(catalog),
		"evaluated":    len(ranked),
		"failed":       failed,
		"conditions":   conditions.Strings(),
		"duration_ms":  time.Since(start).Milliseconds(),
	}).Debug("Completed catalog evaluation")

	return ranked, nil
}

func (r *Recommender) evaluate(conditions domain.ConditionSet, keywords []string, product *domain.ProductCandidate, index *PriceIndex) (*domain.MedicationRecommendation, error) {
	if product == nil {
		return nil, fmt.Errorf("product is required")
	}

	conflict := r.detector.Detect(conditions, product)
	scores, reason, err := r.scorer.Score(keywords, product, conflict, index)
	if err != nil {
		return nil, err
	}

	return &domain.MedicationRecommendation{
		ProductID:            product.ID,
		ProductName:          product.Name,
		ProductDescription:   product.Description,
		ProductPrice:         product.Price,
		ProductPictureURL:    product.PictureURL,
		ActiveIngredient:     product.ActiveIngredient,
		SafetyScore:          scores.Safety,
		EffectivenessScore:   scores.Effectiveness,
		ValueScore:           scores.Value,
		FinalScore:           scores.Final,
		HasConflict:          conflict.HasConflict,
		ConflictDetails:      conflict.Details,
		RecommendationReason: reason,
	}, nil
}

func (r *Recommender) stamp(rec *domain.MedicationRecommendation) {
	rec.ID = r.newID(rec.ProductID)
	rec.CreatedAt = r.now()
}

// sortRecommendations orders by final score, then safety score, both
// descending, then product id ascending.
func sortRecommendations(recs []domain.MedicationRecommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.FinalScore != b.FinalScore {
			return a.FinalScore > b.FinalScore
		}
		if a.SafetyScore != b.SafetyScore {
			return a.SafetyScore > b.SafetyScore
		}
		return a.ProductID < b.ProductID
	})
}
