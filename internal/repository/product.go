package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/pharmassist-medsafety/internal/domain"
)

// ProductRepository reads the product catalog.
type ProductRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *pgxpool.Pool, logger *logrus.Logger) *ProductRepository {
	return &ProductRepository{
		db:  db,
		log: logger,
	}
}

const productColumns = `id, name, description, price::float8, picture_url, active_ingredient, conflicts, updated_at`

func scanProduct(row pgx.Row) (*domain.ProductCandidate, error) {
	var p domain.ProductCandidate
	var conflicts string
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.PictureURL,
		&p.ActiveIngredient,
		&conflicts,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.ConflictMarkers = domain.ParseConflictMarkers(conflicts)
	return &p, nil
}

// GetProduct implements domain.CatalogSource.
func (r *ProductRepository) GetProduct(ctx context.Context, productID int) (*domain.ProductCandidate, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	p, err := scanProduct(r.db.QueryRow(ctx, query, productID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("product %d: %w", productID, domain.ErrProductNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"product_id": productID,
			"error":      err,
		}).Error("Failed to get product")
		return nil, fmt.Errorf("getting product: %w", err)
	}
	return p, nil
}

// ListAllProducts implements domain.CatalogSource.
func (r *ProductRepository) ListAllProducts(ctx context.Context) ([]domain.ProductCandidate, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.log.WithError(err).Error("Failed to list products")
		return nil, fmt.Errorf("listing products: %w", err)
	}
	defer rows.Close()

	products := []domain.ProductCandidate{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating products: %w", err)
	}
	return products, nil
}

// CatalogVersion implements domain.CatalogSource. The token combines the
// product count with the latest modification time, so inserts, deletes and
// updates all change it.
func (r *ProductRepository) CatalogVersion(ctx context.Context) (string, error) {
	var count int64
	var latest *time.Time
	err := r.db.QueryRow(ctx, `SELECT COUNT(*), MAX(updated_at) FROM products`).Scan(&count, &latest)
	if err != nil {
		return "", fmt.Errorf("reading catalog version: %w", err)
	}
	return versionToken(count, latest), nil
}

// UpsertProduct creates or replaces a catalog product by id. A zero ID lets
// the serial assign one, which is written back to p.
func (r *ProductRepository) UpsertProduct(ctx context.Context, p *domain.ProductCandidate) error {
	if p.ID == 0 {
		err := r.db.QueryRow(ctx, `
			INSERT INTO products (name, description, price, picture_url, active_ingredient, conflicts)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, updated_at`,
			p.Name, p.Description, p.Price, p.PictureURL, p.ActiveIngredient,
			domain.JoinConflictMarkers(p.ConflictMarkers),
		).Scan(&p.ID, &p.UpdatedAt)
		if err != nil {
			return fmt.Errorf("inserting product: %w", err)
		}
		return nil
	}

	query := `
		INSERT INTO products (id, name, description, price, picture_url, active_ingredient, conflicts)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			price = EXCLUDED.price,
			picture_url = EXCLUDED.picture_url,
			active_ingredient = EXCLUDED.active_ingredient,
			conflicts = EXCLUDED.conflicts,
			updated_at = NOW()`

	_, err := r.db.Exec(ctx, query,
		p.ID,
		p.Name,
		p.Description,
		p.Price,
		p.PictureURL,
		p.ActiveIngredient,
		domain.JoinConflictMarkers(p.ConflictMarkers),
	)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"product_id": p.ID,
			"error":      err,
		}).Error("Failed to upsert product")
		return fmt.Errorf("upserting product: %w", err)
	}

	// Keep the serial ahead of explicitly assigned ids.
	if _, err := r.db.Exec(ctx,
		`SELECT setval(pg_get_serial_sequence('products', 'id'), GREATEST((SELECT MAX(id) FROM products), 1))`); err != nil {
		return fmt.Errorf("advancing product id sequence: %w", err)
	}
	return nil
}

// DeleteProduct removes a product from the catalog.
func (r *ProductRepository) DeleteProduct(ctx context.Context, productID int) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, productID)
	if err != nil {
		return fmt.Errorf("deleting product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("product %d: %w", productID, domain.ErrProductNotFound)
	}
	return nil
}

func versionToken(count int64, latest *time.Time) string {
	if latest == nil {
		return fmt.Sprintf("%d:empty", count)
	}
	return fmt.Sprintf("%d:%s", count, latest.UTC().Format(time.RFC3339Nano))
}
