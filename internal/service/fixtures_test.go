package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pharmassist-medsafety/internal/domain"
	"github.com/pharmassist-medsafety/internal/vocabulary"
)

var fixedNow = time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

// MockProfileSource is a mock implementation of domain.ProfileSource
type MockProfileSource struct {
	mock.Mock
}

func (m *MockProfileSource) GetMedicalProfile(ctx context.Context, userID string) (*domain.MedicalProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MedicalProfile), args.Error(1)
}

// MockCatalogSource is a mock implementation of domain.CatalogSource
type MockCatalogSource struct {
	mock.Mock
}

func (m *MockCatalogSource) GetProduct(ctx context.Context, productID int) (*domain.ProductCandidate, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProductCandidate), args.Error(1)
}

func (m *MockCatalogSource) ListAllProducts(ctx context.Context) ([]domain.ProductCandidate, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ProductCandidate), args.Error(1)
}

func (m *MockCatalogSource) CatalogVersion(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// MockAuditRecorder is a mock implementation of domain.AuditRecorder
type MockAuditRecorder struct {
	mock.Mock
}

func (m *MockAuditRecorder) RecordEvaluation(ctx context.Context, record domain.EvaluationRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress logs during testing
	return logger
}

func testVocabulary(t *testing.T) *vocabulary.Table {
	t.Helper()
	vocab, err := vocabulary.Default()
	require.NoError(t, err)
	return vocab
}

func testRecommender(t *testing.T, opts ...RecommenderOption) *Recommender {
	t.Helper()
	base := []RecommenderOption{
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func(productID int) string { return fmt.Sprintf("rec-%d", productID) }),
	}
	return NewRecommender(testVocabulary(t), testLogger(), append(base, opts...)...)
}

// diabeticProfile has diabetes and high blood pressure, taking metformin,
// with headache and fever.
func diabeticProfile() *domain.MedicalProfile {
	return &domain.MedicalProfile{
		UserID:                       "user-42",
		DisplayName:                  "Maria",
		PromptReason:                 "Headache relief",
		HasChronicConditions:         "Type 2 diabetes and high blood pressure",
		TakesMedicationsOrTreatments: "Metformin",
		CurrentSymptoms:              "headache and mild fever",
	}
}

// healthyProfile is complete but has no chronic conditions.
func healthyProfile() *domain.MedicalProfile {
	return &domain.MedicalProfile{
		UserID:                       "user-7",
		DisplayName:                  "Sam",
		PromptReason:                 "Seasonal allergies",
		HasChronicConditions:         "None",
		TakesMedicationsOrTreatments: "None",
		CurrentSymptoms:              "sneezing",
	}
}

// testCatalog ranks as 2, 1, 4, 7, 5, 6, 3 for diabeticProfile. Products 1,
// 3, 5 and 6 conflict.
func testCatalog() []domain.ProductCandidate {
	return []domain.ProductCandidate{
		{ID: 1, Name: "Ibuprofen 200mg", Description: "Pain reliever and fever reducer for headache", ActiveIngredient: "Ibuprofen", Price: 8.0},
		{ID: 2, Name: "Paracetamol 500mg", Description: "Relieves headache and reduces fever", ActiveIngredient: "Paracetamol", Price: 5.0},
		{ID: 3, Name: "Naproxen 220mg", Description: "Long lasting pain relief", ActiveIngredient: "Naproxen Sodium", Price: 12.0},
		{ID: 4, Name: "Acetaminophen Extra", Description: "Extra strength pain and fever relief", ActiveIngredient: "Acetaminophen", Price: 7.0},
		{ID: 5, Name: "Honey Cough Syrup", Description: "Cough syrup with sucrose", ActiveIngredient: "Dextromethorphan", Price: 9.0, ConflictMarkers: []string{"diabetes"}},
		{ID: 6, Name: "Nasal Decongestant", Description: "Nasal decongestant", ActiveIngredient: "Pseudoephedrine", Price: 6.0, ConflictMarkers: []string{"High Blood Pressure", "Heart Disease"}},
		{ID: 7, Name: "Loratadine 10mg", Description: "Non-drowsy allergy relief", ActiveIngredient: "Loratadine", Price: 10.0},
	}
}

func productIDs(recs []domain.MedicationRecommendation) []int {
	ids := make([]int, len(recs))
	for i, r := range recs {
		ids[i] = r.ProductID
	}
	return ids
}

func findRecommendation(recs []domain.MedicationRecommendation, productID int) *domain.MedicationRecommendation {
	for i := range recs {
		if recs[i].ProductID == productID {
			return &recs[i]
		}
	}
	return nil
}
