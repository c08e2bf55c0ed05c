package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmassist-medsafety/internal/domain"
)

var auditColumns = []string{
	"id", "user_id", "operation", "profile_fingerprint", "catalog_version",
	"total_evaluated", "total_safe", "total_conflicted", "correlation_id", "created_at",
}

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	store, err := NewPostgresStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return store, mock
}

func TestNewPostgresStore_RequiresDB(t *testing.T) {
	_, err := NewPostgresStore(nil)
	assert.Error(t, err)
}

func TestPostgresStore_Record(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()
	createdAt := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

	entry := &Entry{
		ID:                 "0b8f3c1e-1111-4a7e-9a51-6d3f2b9e0001",
		UserID:             "user-42",
		Operation:          domain.OpRecommendations,
		ProfileFingerprint: "abc123",
		CatalogVersion:     "7:2025-06-01T09:00:00Z",
		TotalEvaluated:     7,
		TotalSafe:          3,
		TotalConflicted:    4,
		CorrelationID:      "corr-1",
		CreatedAt:          createdAt,
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO evaluation_audit")).
		WithArgs(entry.ID, "user-42", "recommendations", "abc123", "7:2025-06-01T09:00:00Z", 7, 3, 4, "corr-1", createdAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Record(ctx, entry))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RecordFillsDefaults(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO evaluation_audit")).
		WithArgs(sqlmock.AnyArg(), "user-7", "safety_summary", "fp", "", 0, 0, 0, "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	entry := &Entry{UserID: "user-7", Operation: domain.OpSafetySummary, ProfileFingerprint: "fp"}
	require.NoError(t, store.Record(context.Background(), entry))
	assert.Len(t, entry.ID, 36)
	assert.False(t, entry.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RecordError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO evaluation_audit")).
		WillReturnError(errors.New("relation does not exist"))

	err := store.Record(context.Background(), &Entry{UserID: "u"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to record audit entry")
}

func TestPostgresStore_ListByUser(t *testing.T) {
	store, mock := newMockStore(t)
	newer := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	older := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(auditColumns).
		AddRow("id-2", "user-42", "conflicting_medications", "fp", "v2", 7, 0, 4, "corr-2", newer).
		AddRow("id-1", "user-42", "recommendations", "fp", "v1", 7, 3, 4, nil, older)

	mock.ExpectQuery("SELECT (.+) FROM evaluation_audit WHERE user_id = \\$1").
		WithArgs("user-42", 10).
		WillReturnRows(rows)

	entries, err := store.ListByUser(context.Background(), "user-42", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.OpConflicts, entries[0].Operation)
	assert.Equal(t, "corr-2", entries[0].CorrelationID)
	assert.Equal(t, "", entries[1].CorrelationID)
	assert.Equal(t, 3, entries[1].TotalSafe)
	assert.Equal(t, older, entries[1].CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListByUserDefaultLimit(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM evaluation_audit WHERE user_id = \\$1").
		WithArgs("nobody", DefaultListLimit).
		WillReturnRows(sqlmock.NewRows(auditColumns))

	entries, err := store.ListByUser(context.Background(), "nobody", 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NotNil(t, entries)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CountAndPurge(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()
	cutoff := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM evaluation_audit")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM evaluation_audit WHERE created_at < $1")).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 5))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(12), count)

	purged, err := store.Purge(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(5), purged)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ExportJSON(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM evaluation_audit ORDER BY created_at DESC").
		WillReturnRows(sqlmock.NewRows(auditColumns).
			AddRow("id-1", "user-42", "recommendations", "fp", "v1", 7, 3, 4, "corr-1", created))

	var buf bytes.Buffer
	require.NoError(t, store.ExportJSON(context.Background(), &buf))

	var export Export
	require.NoError(t, json.Unmarshal(buf.Bytes(), &export))
	assert.Equal(t, "1.0", export.Version)
	assert.Equal(t, 1, export.Count)
	require.Len(t, export.Entries, 1)
	assert.Equal(t, "user-42", export.Entries[0].UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
