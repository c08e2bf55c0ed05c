// Package audit records which evaluations were performed, for whom and
// against which catalog version. Entries carry counts only; scores and
// narrative are never persisted.
package audit

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pharmassist-medsafety/internal/domain"
)

// Entry is one completed engine operation.
type Entry struct {
	ID                 string           `json:"id"`
	UserID             string           `json:"user_id"`
	Operation          domain.Operation `json:"operation"`
	ProfileFingerprint string           `json:"profile_fingerprint"`
	CatalogVersion     string           `json:"catalog_version"`
	TotalEvaluated     int              `json:"total_evaluated"`
	TotalSafe          int              `json:"total_safe"`
	TotalConflicted    int              `json:"total_conflicted"`
	CorrelationID      string           `json:"correlation_id,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
}

// Store defines the interface for audit storage operations.
type Store interface {
	// Record appends an entry. A missing ID or CreatedAt is filled in.
	Record(ctx context.Context, entry *Entry) error

	// ListByUser returns the most recent entries of a user, newest first.
	ListByUser(ctx context.Context, userID string, limit int) ([]*Entry, error)

	// Count returns the total number of entries.
	Count(ctx context.Context) (int64, error)

	// Purge deletes entries created before olderThan and returns how many
	// were removed.
	Purge(ctx context.Context, olderThan time.Time) (int64, error)

	// ExportJSON writes every entry to writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// Close closes the store and releases resources.
	Close() error
}

// Export represents the JSON export format.
type Export struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	Count      int       `json:"count"`
	Entries    []*Entry  `json:"entries"`
}

// DefaultListLimit applies when a caller passes a non-positive limit.
const DefaultListLimit = 50

const maxExportLimit = 1000000

func prepare(entry *Entry) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
}

func listLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}

// Recorder adapts a Store to domain.AuditRecorder.
type Recorder struct {
	store  Store
	logger *logrus.Logger
}

// NewRecorder creates a recorder writing to store.
func NewRecorder(store Store, logger *logrus.Logger) *Recorder {
	return &Recorder{store: store, logger: logger}
}

// RecordEvaluation implements domain.AuditRecorder.
func (r *Recorder) RecordEvaluation(ctx context.Context, record domain.EvaluationRecord) error {
	entry := &Entry{
		UserID:             record.UserID,
		Operation:          record.Operation,
		ProfileFingerprint: record.ProfileFingerprint,
		CatalogVersion:     record.CatalogVersion,
		TotalEvaluated:     record.TotalEvaluated,
		TotalSafe:          record.TotalSafe,
		TotalConflicted:    record.TotalConflicted,
		CorrelationID:      record.CorrelationID,
	}
	if err := r.store.Record(ctx, entry); err != nil {
		return err
	}

	r.logger.WithFields(logrus.Fields{
		"audit_id":  entry.ID,
		"user_id":   entry.UserID,
		"operation": entry.Operation,
	}).Debug("Recorded evaluation audit entry")
	return nil
}

// History returns the recent entries of userID.
func (r *Recorder) History(ctx context.Context, userID string, limit int) ([]*Entry, error) {
	return r.store.ListByUser(ctx, userID, limit)
}
