package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmassist-medsafety/internal/domain"
)

func TestRecommender_DiabetesHypertensionScenario(t *testing.T) {
	ctx := context.Background()
	r := testRecommender(t)

	recs, err := r.Recommend(ctx, diabeticProfile(), testCatalog(), true, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1, 4, 7, 5, 6, 3}, productIDs(recs))

	paracetamol := findRecommendation(recs, 2)
	require.NotNil(t, paracetamol)
	assert.False(t, paracetamol.HasConflict)
	assert.Equal(t, domain.Scores{Safety: 5, Effectiveness: 5, Value: 5, Final: 5}, paracetamol.Scores())
	assert.Equal(t, ReasonEfficacy, paracetamol.RecommendationReason)

	ibuprofen := findRecommendation(recs, 1)
	require.NotNil(t, ibuprofen)
	assert.True(t, ibuprofen.HasConflict)
	assert.Equal(t, "Hypertension: May raise blood pressure or reduce the effect of blood pressure medication.", ibuprofen.ConflictDetails)
	assert.Equal(t, domain.Scores{Safety: 3.5, Effectiveness: 5, Value: 5, Final: 4.25}, ibuprofen.Scores())
	assert.Equal(t, ReasonConflict, ibuprofen.RecommendationReason)

	syrup := findRecommendation(recs, 5)
	require.NotNil(t, syrup)
	assert.True(t, syrup.HasConflict, "conflict marker matches the user's diabetes")
	assert.Contains(t, syrup.ConflictDetails, "Diabetes:")

	naproxen := findRecommendation(recs, 3)
	require.NotNil(t, naproxen)
	assert.Equal(t, domain.Scores{Safety: 3.5, Effectiveness: 2.5, Value: 0, Final: 2.5}, naproxen.Scores())

	for _, rec := range recs {
		assert.Equal(t, rec.HasConflict, rec.ConflictDetails != "", "product %d", rec.ProductID)
		assert.Equal(t, fmt.Sprintf("rec-%d", rec.ProductID), rec.ID)
		assert.Equal(t, fixedNow, rec.CreatedAt)
	}

	safe, err := r.Recommend(ctx, diabeticProfile(), testCatalog(), false, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4, 7}, productIDs(safe))
	assert.Equal(t, domain.ConfidenceVeryHigh, Confidence(safe))
}

func TestRecommender_MonotonicExclusion(t *testing.T) {
	ctx := context.Background()
	r := testRecommender(t)

	all, err := r.Recommend(ctx, diabeticProfile(), testCatalog(), true, 100)
	require.NoError(t, err)
	safe, err := r.Recommend(ctx, diabeticProfile(), testCatalog(), false, 100)
	require.NoError(t, err)

	allIDs := productIDs(all)
	for _, id := range productIDs(safe) {
		assert.Contains(t, allIDs, id)
	}
	for _, rec := range safe {
		assert.False(t, rec.HasConflict)
	}
}

func TestRecommender_MaxResults(t *testing.T) {
	ctx := context.Background()
	r := testRecommender(t)

	catalog := make([]domain.ProductCandidate, 0, 10)
	for i := 1; i <= 10; i++ {
		catalog = append(catalog, domain.ProductCandidate{
			ID:               i,
			Name:             fmt.Sprintf("Antacid %d", i),
			Description:      "Heartburn relief",
			ActiveIngredient: "Calcium carbonate",
			Price:            float64(i),
		})
	}
	profile := healthyProfile()
	profile.CurrentSymptoms = "heartburn"

	recs, err := r.Recommend(ctx, profile, catalog, false, 3)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, []int{1, 2, 3}, productIDs(recs), "cheapest products have the best value")

	t.Run("non-positive means ten", func(t *testing.T) {
		more := append(catalog, domain.ProductCandidate{ID: 11, Description: "Heartburn relief", ActiveIngredient: "Calcium carbonate", Price: 11})
		recs, err := r.Recommend(ctx, profile, more, false, -1)
		require.NoError(t, err)
		assert.Len(t, recs, 10)
	})
}

func TestRecommender_EmptyCatalog(t *testing.T) {
	ctx := context.Background()
	r := testRecommender(t)

	recs, err := r.Recommend(ctx, diabeticProfile(), nil, true, 0)
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.NotNil(t, recs)

	summary, _, err := r.Summarize(ctx, diabeticProfile(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Total())
	assert.Equal(t, templates[tplSummaryEmpty], summary.Summary)
}

func TestRecommender_Determinism(t *testing.T) {
	ctx := context.Background()

	var outputs [][]byte
	for i := 0; i < 5; i++ {
		r := testRecommender(t, WithMaxWorkers(i+1))
		recs, err := r.Recommend(ctx, diabeticProfile(), testCatalog(), true, 0)
		require.NoError(t, err)
		data, err := json.Marshal(recs)
		require.NoError(t, err)
		outputs = append(outputs, data)
	}

	for i := 1; i < len(outputs); i++ {
		assert.Equal(t, string(outputs[0]), string(outputs[i]))
	}
}

func TestRecommender_ConsistencyWithProductSafety(t *testing.T) {
	ctx := context.Background()
	r := testRecommender(t)
	catalog := testCatalog()

	recs, err := r.Recommend(ctx, diabeticProfile(), catalog, true, 0)
	require.NoError(t, err)

	for i := range catalog {
		single, err := r.AnalyzeProductSafety(diabeticProfile(), &catalog[i], catalog)
		require.NoError(t, err)

		ranked := findRecommendation(recs, catalog[i].ID)
		require.NotNil(t, ranked)
		assert.Equal(t, ranked.Scores(), single.Scores(), "product %d", catalog[i].ID)
		assert.Equal(t, ranked.ConflictDetails, single.ConflictDetails)
		assert.Equal(t, ranked.RecommendationReason, single.RecommendationReason)
	}
}

func TestRecommender_SafetyDominance(t *testing.T) {
	ctx := context.Background()
	r := testRecommender(t)

	catalog := []domain.ProductCandidate{
		{ID: 1, Name: "A", Description: "headache relief", ActiveIngredient: "Herbal blend", Price: 5, ConflictMarkers: []string{"diabetes"}},
		{ID: 2, Name: "B", Description: "headache relief", ActiveIngredient: "Herbal blend", Price: 5},
	}

	recs, err := r.Recommend(ctx, diabeticProfile(), catalog, true, 0)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, []int{2, 1}, productIDs(recs))
	assert.GreaterOrEqual(t, recs[0].FinalScore, recs[1].FinalScore)
}

func TestRecommender_ConflictingMedications(t *testing.T) {
	ctx := context.Background()
	r := testRecommender(t)

	conflicts, err := r.ConflictingMedications(ctx, diabeticProfile(), testCatalog(), 0)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 5, 6, 3}, productIDs(conflicts))

	limited, err := r.ConflictingMedications(ctx, diabeticProfile(), testCatalog(), 2)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 5}, productIDs(limited))
}

func TestRecommender_Summarize(t *testing.T) {
	r := testRecommender(t)

	summary, all, err := r.Summarize(context.Background(), diabeticProfile(), testCatalog())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.TotalSafe)
	assert.Equal(t, 4, summary.TotalConflicted)
	assert.Equal(t, "Found 3 safe medication(s) and 4 requiring medical supervision out of 7 evaluated.", summary.Summary)
	assert.Len(t, all, 7)
}

func TestRecommender_PartialResults(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid price is skipped", func(t *testing.T) {
		r := testRecommender(t)
		catalog := append(testCatalog(), domain.ProductCandidate{ID: 99, Name: "Broken", ActiveIngredient: "Ibuprofen", Price: math.NaN()})

		recs, err := r.Recommend(ctx, diabeticProfile(), catalog, true, 0)
		require.NoError(t, err)
		assert.Equal(t, []int{2, 1, 4, 7, 5, 6, 3}, productIDs(recs))
	})

	t.Run("panicking evaluation is recovered", func(t *testing.T) {
		r := testRecommender(t)
		r.detector = nil

		recs, err := r.Recommend(ctx, diabeticProfile(), testCatalog(), true, 0)
		require.NoError(t, err)
		assert.Empty(t, recs)
	})
}

func TestRecommender_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := testRecommender(t)
	_, err := r.Recommend(ctx, diabeticProfile(), testCatalog(), true, 0)
	assert.ErrorIs(t, err, context.Canceled)
}
