package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pharmassist-medsafety/internal/cache"
	"github.com/pharmassist-medsafety/internal/domain"
	"github.com/pharmassist-medsafety/internal/vocabulary"
)

// SafetyService is the public face of the engine. It fetches profiles and
// catalog data through the injected sources, gates on profile completeness
// and assembles the narrative responses.
type SafetyService struct {
	profiles domain.ProfileSource
	catalog  domain.CatalogSource
	engine   *Recommender
	narrator *Narrator
	vocab    *vocabulary.Table
	logger   *logrus.Logger

	cache    domain.ResponseCache
	cacheTTL time.Duration
	audit    domain.AuditRecorder
}

// ServiceOption configures a SafetyService.
type ServiceOption func(*SafetyService)

// WithResponseCache enables response caching for recommendations and safety
// summaries.
func WithResponseCache(c domain.ResponseCache, ttl time.Duration) ServiceOption {
	return func(s *SafetyService) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// WithAuditRecorder records a summary of every computed evaluation.
func WithAuditRecorder(rec domain.AuditRecorder) ServiceOption {
	return func(s *SafetyService) { s.audit = rec }
}

// NewSafetyService wires the facade.
func NewSafetyService(
	profiles domain.ProfileSource,
	catalog domain.CatalogSource,
	engine *Recommender,
	vocab *vocabulary.Table,
	logger *logrus.Logger,
	opts ...ServiceOption,
) *SafetyService {
	s := &SafetyService{
		profiles: profiles,
		catalog:  catalog,
		engine:   engine,
		narrator: NewNarrator(vocab),
		vocab:    vocab,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// VocabularyVersion returns the version of the loaded condition vocabulary.
func (s *SafetyService) VocabularyVersion() string {
	return s.vocab.Version
}

// GetRecommendations returns ranked recommendations for userID, or the
// incomplete-profile guidance.
func (s *SafetyService) GetRecommendations(ctx context.Context, userID string, includeConflicted bool, maxResults int) (out *domain.Outcome[domain.RecommendationResponse], err error) {
	defer s.recoverPanic(domain.OpRecommendations, userID, &err)
	return s.recommendations(ctx, domain.OpRecommendations, userID, includeConflicted, maxResults, true)
}

// RefreshRecommendations recomputes recommendations, bypassing any cached
// response and replacing it.
func (s *SafetyService) RefreshRecommendations(ctx context.Context, userID string, includeConflicted bool, maxResults int) (out *domain.Outcome[domain.RecommendationResponse], err error) {
	defer s.recoverPanic(domain.OpRefreshRecommended, userID, &err)
	return s.recommendations(ctx, domain.OpRefreshRecommended, userID, includeConflicted, maxResults, false)
}

func (s *SafetyService) recommendations(ctx context.Context, op domain.Operation, userID string, includeConflicted bool, maxResults int, readCache bool) (*domain.Outcome[domain.RecommendationResponse], error) {
	profile, err := s.loadProfile(ctx, op, userID)
	if err != nil {
		return nil, err
	}
	if !profile.IsComplete() {
		return &domain.Outcome[domain.RecommendationResponse]{Incomplete: s.incomplete(op, profile)}, nil
	}

	key := s.cacheKey(ctx, domain.OpRecommendations, profile,
		strconv.FormatBool(includeConflicted), strconv.Itoa(maxResults))
	if readCache {
		var cached domain.RecommendationResponse
		if s.cacheGet(ctx, key, &cached) {
			return &domain.Outcome[domain.RecommendationResponse]{Result: &cached}, nil
		}
	}

	catalog, err := s.loadCatalog(ctx, op)
	if err != nil {
		return nil, err
	}

	summary, all, err := s.engine.Summarize(ctx, profile, catalog)
	if err != nil {
		return nil, s.internal(ctx, op, userID, err)
	}
	recs := s.engine.Select(all, includeConflicted, maxResults)

	conditions, _ := s.engine.Normalizer().Normalize(profile)
	totalSafe, totalConflicted := summary.TotalSafe, summary.TotalConflicted
	resp := &domain.RecommendationResponse{
		Recommendations:     recs,
		Summary:             summary.Summary,
		TotalSafe:           totalSafe,
		TotalConflicted:     totalConflicted,
		GeneratedAt:         s.engine.Now(),
		PersonalizedMessage: Greeting(profile.GreetingName(), totalSafe),
		ConfidenceLevel:     Confidence(recs),
		KeyInsights:         s.narrator.KeyInsights(recs, conditions),
		NextStepsAdvice:     NextSteps(totalSafe),
	}

	s.cacheSet(ctx, key, resp)
	s.record(ctx, op, profile, len(catalog), totalSafe, totalConflicted)

	s.logger.WithFields(logrus.Fields{
		"operation":        op,
		"user_id":          userID,
		"returned":         len(recs),
		"total_safe":       totalSafe,
		"total_conflicted": totalConflicted,
	}).Info("Generated medication recommendations")

	return &domain.Outcome[domain.RecommendationResponse]{Result: resp}, nil
}

// GetSafetySummary returns the aggregate safety picture of the catalog for
// userID, or the incomplete-profile guidance.
func (s *SafetyService) GetSafetySummary(ctx context.Context, userID string) (out *domain.Outcome[domain.SafetySummaryResponse], err error) {
	const op = domain.OpSafetySummary
	defer s.recoverPanic(op, userID, &err)

	profile, err := s.loadProfile(ctx, op, userID)
	if err != nil {
		return nil, err
	}
	if !profile.IsComplete() {
		return &domain.Outcome[domain.SafetySummaryResponse]{Incomplete: s.incomplete(op, profile)}, nil
	}

	key := s.cacheKey(ctx, op, profile)
	var cached domain.SafetySummaryResponse
	if s.cacheGet(ctx, key, &cached) {
		return &domain.Outcome[domain.SafetySummaryResponse]{Result: &cached}, nil
	}

	catalog, err := s.loadCatalog(ctx, op)
	if err != nil {
		return nil, err
	}

	summary, all, err := s.engine.Summarize(ctx, profile, catalog)
	if err != nil {
		return nil, s.internal(ctx, op, userID, err)
	}

	resp := &domain.SafetySummaryResponse{
		TotalSafe:             summary.TotalSafe,
		TotalConflicted:       summary.TotalConflicted,
		Summary:               summary.Summary,
		TopRecommendation:     topSafe(all),
		GeneratedAt:           s.engine.Now(),
		PersonalizedMessage:   SafetyMessage(profile.GreetingName(), summary.TotalSafe),
		OverallRiskAssessment: RiskAssessment(summary.TotalSafe, summary.TotalConflicted),
		SafetyHighlights:      SafetyHighlights(profile, summary.TotalSafe, summary.TotalConflicted),
		RecommendedAction:     RecommendedAction(summary.TotalSafe),
	}

	s.cacheSet(ctx, key, resp)
	s.record(ctx, op, profile, len(catalog), summary.TotalSafe, summary.TotalConflicted)

	return &domain.Outcome[domain.SafetySummaryResponse]{Result: resp}, nil
}

// CheckProductSafety evaluates one product for userID. The product is looked
// up before the profile. The value score is relative to the full catalog.
func (s *SafetyService) CheckProductSafety(ctx context.Context, userID string, productID int) (out *domain.MedicationRecommendation, err error) {
	const op = domain.OpProductSafety
	defer s.recoverPanic(op, userID, &err)

	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			return nil, fmt.Errorf("product %d: %w", productID, domain.ErrProductNotFound)
		}
		return nil, s.internal(ctx, op, userID, err)
	}

	profile, err := s.loadProfile(ctx, op, userID)
	if err != nil {
		return nil, err
	}

	catalog, err := s.loadCatalog(ctx, op)
	if err != nil {
		return nil, err
	}

	rec, err := s.engine.AnalyzeProductSafety(profile, product, catalog)
	if err != nil {
		return nil, s.internal(ctx, op, userID, err)
	}

	conflicted := 0
	if rec.HasConflict {
		conflicted = 1
	}
	s.record(ctx, op, profile, 1, 1-conflicted, conflicted)
	return rec, nil
}

// GetConflictingMedications lists the catalog products that conflict with
// the chronic conditions of userID.
func (s *SafetyService) GetConflictingMedications(ctx context.Context, userID string, maxResults int) (out *domain.Outcome[domain.ConflictingMedicationsResponse], err error) {
	const op = domain.OpConflicts
	defer s.recoverPanic(op, userID, &err)

	profile, err := s.loadProfile(ctx, op, userID)
	if err != nil {
		return nil, err
	}
	if !profile.IsComplete() {
		return &domain.Outcome[domain.ConflictingMedicationsResponse]{Incomplete: s.incomplete(op, profile)}, nil
	}

	conditions, _ := s.engine.Normalizer().Normalize(profile)
	conflicts := []domain.MedicationRecommendation{}
	evaluated := 0

	if !conditions.IsEmpty() {
		catalog, err := s.loadCatalog(ctx, op)
		if err != nil {
			return nil, err
		}
		evaluated = len(catalog)
		conflicts, err = s.engine.ConflictingMedications(ctx, profile, catalog, maxResults)
		if err != nil {
			return nil, s.internal(ctx, op, userID, err)
		}
	}

	narrative := s.narrator.Conflicts(profile.GreetingName(), conditions, len(conflicts))
	resp := &domain.ConflictingMedicationsResponse{
		ConflictingMedications: conflicts,
		TotalConflicting:       len(conflicts),
		Summary:                narrative.Summary,
		GeneratedAt:            s.engine.Now(),
		PersonalizedMessage:    narrative.Message,
		ConflictWarnings:       narrative.Warnings,
		SafetyAdvice:           narrative.Advice,
	}

	s.record(ctx, op, profile, evaluated, 0, len(conflicts))
	return &domain.Outcome[domain.ConflictingMedicationsResponse]{Result: resp}, nil
}

// GetMedicalProfile echoes the stored profile of userID with its parsed
// condition tags.
func (s *SafetyService) GetMedicalProfile(ctx context.Context, userID string) (out *domain.MedicalProfileView, err error) {
	const op = domain.OpMedicalProfile
	defer s.recoverPanic(op, userID, &err)

	profile, err := s.loadProfile(ctx, op, userID)
	if err != nil {
		return nil, err
	}
	return s.NormalizeProfile(profile), nil
}

// NormalizeProfile parses an arbitrary profile without touching any source.
func (s *SafetyService) NormalizeProfile(profile *domain.MedicalProfile) *domain.MedicalProfileView {
	conditions, complete := s.engine.Normalizer().Normalize(profile)
	return &domain.MedicalProfileView{
		UserID:                       profile.UserID,
		DisplayName:                  profile.DisplayName,
		PromptReason:                 profile.PromptReason,
		HasChronicConditions:         profile.HasChronicConditions,
		TakesMedicationsOrTreatments: profile.TakesMedicationsOrTreatments,
		CurrentSymptoms:              profile.CurrentSymptoms,
		ParsedConditions:             conditions.Strings(),
		IsComplete:                   complete,
	}
}

// CheckProfileCompletion reports whether the profile of userID has every
// required field, and which are missing.
func (s *SafetyService) CheckProfileCompletion(ctx context.Context, userID string) (out *domain.ProfileCompletion, err error) {
	const op = domain.OpProfileCompletion
	defer s.recoverPanic(op, userID, &err)

	profile, err := s.loadProfile(ctx, op, userID)
	if err != nil {
		return nil, err
	}

	if profile.IsComplete() {
		return &domain.ProfileCompletion{
			IsProfileComplete: true,
			Title:             ProfileCompleteTitle,
			Message:           ProfileCompleteMessage,
			GeneratedAt:       s.engine.Now(),
		}, nil
	}

	text := IncompleteCopyFor(op)
	return &domain.ProfileCompletion{
		IsProfileComplete: false,
		Title:             text.Title,
		Message:           text.Message,
		MissingFields:     MissingFields(profile),
		ActionRequired:    text.Action,
		GeneratedAt:       s.engine.Now(),
	}, nil
}

func (s *SafetyService) loadProfile(ctx context.Context, op domain.Operation, userID string) (*domain.MedicalProfile, error) {
	profile, err := s.profiles.GetMedicalProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, fmt.Errorf("user %s: %w", userID, domain.ErrUserNotFound)
		}
		return nil, s.internal(ctx, op, userID, err)
	}
	if profile == nil {
		return nil, fmt.Errorf("user %s: %w", userID, domain.ErrUserNotFound)
	}
	return profile, nil
}

func (s *SafetyService) loadCatalog(ctx context.Context, op domain.Operation) ([]domain.ProductCandidate, error) {
	catalog, err := s.catalog.ListAllProducts(ctx)
	if err != nil {
		return nil, s.internal(ctx, op, "", err)
	}
	return catalog, nil
}

func (s *SafetyService) incomplete(op domain.Operation, profile *domain.MedicalProfile) *domain.ProfileIncompleteResponse {
	text := IncompleteCopyFor(op)
	return &domain.ProfileIncompleteResponse{
		IsProfileComplete: false,
		Title:             text.Title,
		Message:           text.Message,
		MissingFields:     MissingFields(profile),
		ActionRequired:    text.Action,
		GeneratedAt:       s.engine.Now(),
	}
}

// internal logs a source or engine failure and hides it behind
// ErrInternalComputation.
func (s *SafetyService) internal(ctx context.Context, op domain.Operation, userID string, err error) error {
	s.logger.WithError(err).WithFields(logrus.Fields{
		"operation":      op,
		"user_id":        userID,
		"correlation_id": domain.CorrelationIDFromContext(ctx),
	}).Error("Medication safety operation failed")
	return fmt.Errorf("%s: %w", op, domain.ErrInternalComputation)
}

func (s *SafetyService) recoverPanic(op domain.Operation, userID string, err *error) {
	if r := recover(); r != nil {
		s.logger.WithFields(logrus.Fields{
			"operation": op,
			"user_id":   userID,
			"panic":     r,
			"stack":     string(debug.Stack()),
		}).Error("Recovered from panic in medication safety operation")
		*err = fmt.Errorf("%s: %w", op, domain.ErrInternalComputation)
	}
}

// cacheKey covers everything a cached response depends on: the operation and
// its parameters, the user, every profile field, the catalog version and the
// vocabulary version. It returns "" when caching is off or the catalog
// version is unavailable.
func (s *SafetyService) cacheKey(ctx context.Context, op domain.Operation, profile *domain.MedicalProfile, params ...string) string {
	if s.cache == nil {
		return ""
	}
	version, err := s.catalog.CatalogVersion(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("Catalog version unavailable, bypassing response cache")
		return ""
	}

	parts := append([]string{
		profile.UserID,
		profile.DisplayName,
		profile.PromptReason,
		profile.HasChronicConditions,
		profile.TakesMedicationsOrTreatments,
		profile.CurrentSymptoms,
		version,
		s.vocab.Version,
	}, params...)
	return cache.BuildKey(string(op), parts...)
}

func (s *SafetyService) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if key == "" {
		return false
	}
	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.WithError(err).Warn("Response cache read failed, recomputing")
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		s.logger.WithError(err).Warn("Discarding unreadable cached response")
		return false
	}
	return true
}

func (s *SafetyService) cacheSet(ctx context.Context, key string, value interface{}) {
	if key == "" {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to serialize response for cache")
		return
	}
	if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
		s.logger.WithError(err).Warn("Response cache write failed")
	}
}

func (s *SafetyService) record(ctx context.Context, op domain.Operation, profile *domain.MedicalProfile, evaluated, safe, conflicted int) {
	if s.audit == nil {
		return
	}
	version := ""
	if v, err := s.catalog.CatalogVersion(ctx); err == nil {
		version = v
	}
	err := s.audit.RecordEvaluation(ctx, domain.EvaluationRecord{
		UserID:             profile.UserID,
		Operation:          op,
		ProfileFingerprint: Fingerprint(profile),
		CatalogVersion:     version,
		TotalEvaluated:     evaluated,
		TotalSafe:          safe,
		TotalConflicted:    conflicted,
		CorrelationID:      domain.CorrelationIDFromContext(ctx),
	})
	if err != nil {
		s.logger.WithError(err).WithField("operation", op).Warn("Failed to record evaluation audit entry")
	}
}

// Fingerprint hashes the profile fields that drive an evaluation.
func Fingerprint(profile *domain.MedicalProfile) string {
	h := sha256.New()
	for _, field := range []string{
		profile.DisplayName,
		profile.PromptReason,
		profile.HasChronicConditions,
		profile.TakesMedicationsOrTreatments,
		profile.CurrentSymptoms,
	} {
		h.Write([]byte(field))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func topSafe(ranked []domain.MedicationRecommendation) *domain.MedicationRecommendation {
	for i := range ranked {
		if !ranked[i].HasConflict {
			top := ranked[i]
			return &top
		}
	}
	return nil
}
