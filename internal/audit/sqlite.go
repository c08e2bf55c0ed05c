package audit

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite audit store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS evaluation_audit (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		operation TEXT NOT NULL,
		profile_fingerprint TEXT NOT NULL,
		catalog_version TEXT NOT NULL DEFAULT '',
		total_evaluated INTEGER NOT NULL DEFAULT 0,
		total_safe INTEGER NOT NULL DEFAULT 0,
		total_conflicted INTEGER NOT NULL DEFAULT 0,
		correlation_id TEXT DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audit_user_created ON evaluation_audit(user_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_audit_created_at ON evaluation_audit(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// Record appends an audit entry.
func (s *SQLiteStore) Record(ctx context.Context, entry *Entry) error {
	prepare(entry)
	entry.CreatedAt = entry.CreatedAt.UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO evaluation_audit (
			id, user_id, operation, profile_fingerprint, catalog_version,
			total_evaluated, total_safe, total_conflicted, correlation_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.ID,
		entry.UserID,
		string(entry.Operation),
		entry.ProfileFingerprint,
		entry.CatalogVersion,
		entry.TotalEvaluated,
		entry.TotalSafe,
		entry.TotalConflicted,
		entry.CorrelationID,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}
	return nil
}

// ListByUser returns the most recent entries of a user.
func (s *SQLiteStore) ListByUser(ctx context.Context, userID string, limit int) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, operation, profile_fingerprint, catalog_version,
			total_evaluated, total_safe, total_conflicted, correlation_id, created_at
		FROM evaluation_audit
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, userID, listLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	return collect(rows)
}

// Count returns the total number of entries.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM evaluation_audit").Scan(&count)
	return count, err
}

// Purge removes entries older than olderThan.
func (s *SQLiteStore) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM evaluation_audit WHERE created_at < ?", olderThan.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge: %w", err)
	}
	return result.RowsAffected()
}

// ExportJSON exports all entries to a JSON writer.
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, operation, profile_fingerprint, catalog_version,
			total_evaluated, total_safe, total_conflicted, correlation_id, created_at
		FROM evaluation_audit
		ORDER BY created_at DESC
		LIMIT ?
	`, maxExportLimit)
	if err != nil {
		return fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	all, err := collect(rows)
	if err != nil {
		return err
	}
	return writeExport(writer, all)
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
