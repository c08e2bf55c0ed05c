package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pharmassist-medsafety/internal/domain"
)

func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNewSQLiteStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "audit.db")

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "Database file should exist")
}

func TestSQLiteStore_RecordAndList(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	for i, op := range []domain.Operation{domain.OpRecommendations, domain.OpSafetySummary, domain.OpConflicts} {
		require.NoError(t, store.Record(ctx, &Entry{
			UserID:             "user-42",
			Operation:          op,
			ProfileFingerprint: "fp",
			CatalogVersion:     "v1",
			TotalEvaluated:     7,
			TotalSafe:          3,
			TotalConflicted:    4,
			CreatedAt:          base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, store.Record(ctx, &Entry{UserID: "user-7", Operation: domain.OpRecommendations, ProfileFingerprint: "other"}))

	entries, err := store.ListByUser(ctx, "user-42", 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.OpConflicts, entries[0].Operation, "newest first")
	assert.Equal(t, domain.OpSafetySummary, entries[1].Operation)
	assert.True(t, entries[0].CreatedAt.Equal(base.Add(2*time.Minute)))
	assert.Equal(t, 7, entries[0].TotalEvaluated)
	assert.NotEmpty(t, entries[0].ID)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
}

func TestSQLiteStore_Purge(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()
	old := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Record(ctx, &Entry{UserID: "u", Operation: domain.OpRecommendations, ProfileFingerprint: "a", CreatedAt: old}))
	require.NoError(t, store.Record(ctx, &Entry{UserID: "u", Operation: domain.OpRecommendations, ProfileFingerprint: "b", CreatedAt: recent}))

	purged, err := store.Purge(ctx, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	entries, err := store.ListByUser(ctx, "u", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "b", entries[0].ProfileFingerprint)
}

func TestSQLiteStore_ExportJSON(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Record(ctx, &Entry{UserID: "u", Operation: domain.OpProductSafety, ProfileFingerprint: "fp", TotalEvaluated: 1, TotalSafe: 1}))

	var buf bytes.Buffer
	require.NoError(t, store.ExportJSON(ctx, &buf))

	var export Export
	require.NoError(t, json.Unmarshal(buf.Bytes(), &export))
	assert.Equal(t, 1, export.Count)
	assert.Equal(t, domain.OpProductSafety, export.Entries[0].Operation)
}

// MockStore is a mock implementation of Store
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Record(ctx context.Context, entry *Entry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *MockStore) ListByUser(ctx context.Context, userID string, limit int) ([]*Entry, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Entry), args.Error(1)
}

func (m *MockStore) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	return m.Called(ctx, writer).Error(0)
}

func (m *MockStore) Close() error {
	return m.Called().Error(0)
}

func TestRecorder_RecordEvaluation(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	store := createTestStore(t)
	recorder := NewRecorder(store, logger)
	ctx := context.Background()

	err := recorder.RecordEvaluation(ctx, domain.EvaluationRecord{
		UserID:             "user-42",
		Operation:          domain.OpRecommendations,
		ProfileFingerprint: "fp",
		CatalogVersion:     "v1",
		TotalEvaluated:     7,
		TotalSafe:          3,
		TotalConflicted:    4,
		CorrelationID:      "corr-1",
	})
	require.NoError(t, err)

	history, err := recorder.History(ctx, "user-42", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "corr-1", history[0].CorrelationID)
	assert.Equal(t, 4, history[0].TotalConflicted)
}

func TestRecorder_StoreFailure(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	store := new(MockStore)
	store.On("Record", mock.Anything, mock.AnythingOfType("*audit.Entry")).Return(errors.New("disk full"))

	err := NewRecorder(store, logger).RecordEvaluation(context.Background(), domain.EvaluationRecord{UserID: "u"})
	assert.EqualError(t, err, "disk full")
	store.AssertExpectations(t)
}
