package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"time"

	_ "github.com/lib/pq"

	"github.com/pharmassist-medsafety/internal/domain"
)

// PostgresStore implements the Store interface using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL audit store.
// It expects the schema to already exist (created via migrations).
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromURL creates a new PostgreSQL audit store from a connection URL.
func NewPostgresStoreFromURL(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// Record appends an audit entry.
func (s *PostgresStore) Record(ctx context.Context, entry *Entry) error {
	prepare(entry)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO evaluation_audit (
			id, user_id, operation, profile_fingerprint, catalog_version,
			total_evaluated, total_safe, total_conflicted, correlation_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
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
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}

// ListByUser returns the most recent entries of a user.
func (s *PostgresStore) ListByUser(ctx context.Context, userID string, limit int) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, operation, profile_fingerprint, catalog_version,
			total_evaluated, total_safe, total_conflicted, correlation_id, created_at
		FROM evaluation_audit
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, listLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	return collect(rows)
}

func (s *PostgresStore) listAll(ctx context.Context) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, operation, profile_fingerprint, catalog_version,
			total_evaluated, total_safe, total_conflicted, correlation_id, created_at
		FROM evaluation_audit
		ORDER BY created_at DESC
		LIMIT $1
	`, maxExportLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	return collect(rows)
}

// Count returns the total number of entries.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM evaluation_audit").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count audit entries: %w", err)
	}
	return count, nil
}

// Purge removes entries older than olderThan.
func (s *PostgresStore) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM evaluation_audit WHERE created_at < $1", olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to purge audit entries: %w", err)
	}
	return result.RowsAffected()
}

// ExportJSON exports all entries to a JSON writer.
func (s *PostgresStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	all, err := s.listAll(ctx)
	if err != nil {
		return err
	}
	return writeExport(writer, all)
}

// Close closes the store and releases resources.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(s scanner) (*Entry, error) {
	e := &Entry{}
	var op string
	var correlationID sql.NullString

	err := s.Scan(
		&e.ID, &e.UserID, &op, &e.ProfileFingerprint, &e.CatalogVersion,
		&e.TotalEvaluated, &e.TotalSafe, &e.TotalConflicted, &correlationID, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Operation = domain.Operation(op)
	e.CorrelationID = correlationID.String
	return e, nil
}

func collect(rows *sql.Rows) ([]*Entry, error) {
	result := []*Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func writeExport(writer io.Writer, entries []*Entry) error {
	export := &Export{
		Version:    "1.0",
		ExportedAt: time.Now().UTC(),
		Count:      len(entries),
		Entries:    entries,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}
