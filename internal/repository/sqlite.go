package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/pharmassist-medsafety/internal/domain"
)

// timestampLayout is fixed width so that MAX() over the text column orders
// the same way as the instants it encodes.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore keeps profiles and the product catalog in a single SQLite file.
// It backs the lite server and MCP binaries where postgres is unavailable.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
	log    *logrus.Logger
	now    func() time.Time
}

// NewSQLiteStore opens (creating if needed) the SQLite database at dbPath.
func NewSQLiteStore(dbPath string, logger *logrus.Logger) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createLiteSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
		log:    logger,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func createLiteSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT '',
		prompt_reason TEXT NOT NULL DEFAULT '',
		has_chronic_conditions TEXT NOT NULL DEFAULT '',
		takes_medications_or_treatments TEXT NOT NULL DEFAULT '',
		current_symptoms TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS products (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		price REAL NOT NULL CHECK (price >= 0),
		picture_url TEXT NOT NULL DEFAULT '',
		active_ingredient TEXT NOT NULL DEFAULT '',
		conflicts TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_products_updated_at ON products(updated_at);
	`
	_, err := db.Exec(schema)
	return err
}

// GetMedicalProfile implements domain.ProfileSource.
func (s *SQLiteStore) GetMedicalProfile(ctx context.Context, userID string) (*domain.MedicalProfile, error) {
	query := `
		SELECT id, display_name, prompt_reason, has_chronic_conditions,
			   takes_medications_or_treatments, current_symptoms
		FROM users WHERE id = ?`

	var p domain.MedicalProfile
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&p.UserID,
		&p.DisplayName,
		&p.PromptReason,
		&p.HasChronicConditions,
		&p.TakesMedicationsOrTreatments,
		&p.CurrentSymptoms,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", userID, domain.ErrUserNotFound)
		}
		return nil, fmt.Errorf("getting medical profile: %w", err)
	}
	return &p, nil
}

// UpsertProfile creates or replaces a user's profile fields.
func (s *SQLiteStore) UpsertProfile(ctx context.Context, email string, p *domain.MedicalProfile) error {
	ts := s.now().Format(timestampLayout)
	query := `
		INSERT INTO users (
			id, email, display_name, prompt_reason, has_chronic_conditions,
			takes_medications_or_treatments, current_symptoms, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			email = excluded.email,
			display_name = excluded.display_name,
			prompt_reason = excluded.prompt_reason,
			has_chronic_conditions = excluded.has_chronic_conditions,
			takes_medications_or_treatments = excluded.takes_medications_or_treatments,
			current_symptoms = excluded.current_symptoms,
			updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, query,
		p.UserID, email, p.DisplayName, p.PromptReason, p.HasChronicConditions,
		p.TakesMedicationsOrTreatments, p.CurrentSymptoms, ts, ts,
	)
	if err != nil {
		return fmt.Errorf("upserting medical profile: %w", err)
	}
	return nil
}

const liteProductColumns = `id, name, description, price, picture_url, active_ingredient, conflicts, updated_at`

func scanLiteProduct(row interface{ Scan(dest ...any) error }) (*domain.ProductCandidate, error) {
	var p domain.ProductCandidate
	var conflicts, updated string
	if err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.PictureURL,
		&p.ActiveIngredient, &conflicts, &updated,
	); err != nil {
		return nil, err
	}
	p.ConflictMarkers = domain.ParseConflictMarkers(conflicts)
	if t, err := time.Parse(timestampLayout, updated); err == nil {
		p.UpdatedAt = t
	}
	return &p, nil
}

// GetProduct implements domain.CatalogSource.
func (s *SQLiteStore) GetProduct(ctx context.Context, productID int) (*domain.ProductCandidate, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+liteProductColumns+` FROM products WHERE id = ?`, productID)
	p, err := scanLiteProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("product %d: %w", productID, domain.ErrProductNotFound)
		}
		return nil, fmt.Errorf("getting product: %w", err)
	}
	return p, nil
}

// ListAllProducts implements domain.CatalogSource.
func (s *SQLiteStore) ListAllProducts(ctx context.Context) ([]domain.ProductCandidate, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+liteProductColumns+` FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	defer rows.Close()

	products := []domain.ProductCandidate{}
	for rows.Next() {
		p, err := scanLiteProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// CatalogVersion implements domain.CatalogSource.
func (s *SQLiteStore) CatalogVersion(ctx context.Context) (string, error) {
	var count int64
	var latest sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*), MAX(updated_at) FROM products`).Scan(&count, &latest)
	if err != nil {
		return "", fmt.Errorf("reading catalog version: %w", err)
	}
	if !latest.Valid {
		return versionToken(count, nil), nil
	}
	t, err := time.Parse(timestampLayout, latest.String)
	if err != nil {
		return "", fmt.Errorf("parsing catalog timestamp: %w", err)
	}
	return versionToken(count, &t), nil
}

// UpsertProduct creates or replaces a catalog product. A zero ID lets SQLite
// assign one, which is written back to p.
func (s *SQLiteStore) UpsertProduct(ctx context.Context, p *domain.ProductCandidate) error {
	now := s.now()
	ts := now.Format(timestampLayout)
	conflicts := domain.JoinConflictMarkers(p.ConflictMarkers)

	if p.ID == 0 {
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO products (name, description, price, picture_url, active_ingredient, conflicts, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			p.Name, p.Description, p.Price, p.PictureURL, p.ActiveIngredient, conflicts, ts, ts)
		if err != nil {
			return fmt.Errorf("inserting product: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading product id: %w", err)
		}
		p.ID = int(id)
		p.UpdatedAt = now
		return nil
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, description, price, picture_url, active_ingredient, conflicts, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			price = excluded.price,
			picture_url = excluded.picture_url,
			active_ingredient = excluded.active_ingredient,
			conflicts = excluded.conflicts,
			updated_at = excluded.updated_at`,
		p.ID, p.Name, p.Description, p.Price, p.PictureURL, p.ActiveIngredient, conflicts, ts, ts)
	if err != nil {
		return fmt.Errorf("upserting product: %w", err)
	}
	p.UpdatedAt = now
	return nil
}

// DeleteProduct removes a product from the catalog.
func (s *SQLiteStore) DeleteProduct(ctx context.Context, productID int) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, productID)
	if err != nil {
		return fmt.Errorf("deleting product: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting product: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("product %d: %w", productID, domain.ErrProductNotFound)
	}
	return nil
}

// Health pings the database.
func (s *SQLiteStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.dbPath
}
