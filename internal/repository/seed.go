package repository

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/pharmassist-medsafety/internal/domain"
)

// SeedData is the fixture file format accepted by medsafetyctl seed.
type SeedData struct {
	Users    []SeedUser    `yaml:"users"`
	Products []SeedProduct `yaml:"products"`
}

// SeedUser is one user account with its medical profile.
type SeedUser struct {
	ID                           string `yaml:"id"`
	Email                        string `yaml:"email"`
	DisplayName                  string `yaml:"display_name"`
	PromptReason                 string `yaml:"prompt_reason"`
	HasChronicConditions         string `yaml:"has_chronic_conditions"`
	TakesMedicationsOrTreatments string `yaml:"takes_medications_or_treatments"`
	CurrentSymptoms              string `yaml:"current_symptoms"`
}

// SeedProduct is one catalog product.
type SeedProduct struct {
	ID               int      `yaml:"id"`
	Name             string   `yaml:"name"`
	Description      string   `yaml:"description"`
	Price            float64  `yaml:"price"`
	PictureURL       string   `yaml:"picture_url"`
	ActiveIngredient string   `yaml:"active_ingredient"`
	Conflicts        []string `yaml:"conflicts"`
}

// Profile converts the seed entry into a domain profile.
func (u SeedUser) Profile() *domain.MedicalProfile {
	return &domain.MedicalProfile{
		UserID:                       u.ID,
		DisplayName:                  u.DisplayName,
		PromptReason:                 u.PromptReason,
		HasChronicConditions:         u.HasChronicConditions,
		TakesMedicationsOrTreatments: u.TakesMedicationsOrTreatments,
		CurrentSymptoms:              u.CurrentSymptoms,
	}
}

// Product converts the seed entry into a domain product.
func (p SeedProduct) Product() *domain.ProductCandidate {
	return &domain.ProductCandidate{
		ID:               p.ID,
		Name:             p.Name,
		Description:      p.Description,
		Price:            p.Price,
		PictureURL:       p.PictureURL,
		ActiveIngredient: p.ActiveIngredient,
		ConflictMarkers:  p.Conflicts,
	}
}

// ParseSeed decodes seed YAML and checks required fields.
func ParseSeed(r io.Reader) (*SeedData, error) {
	var data SeedData
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&data); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decoding seed data: %w", err)
	}

	for i, u := range data.Users {
		if u.ID == "" || u.Email == "" {
			return nil, fmt.Errorf("users[%d]: id and email are required", i)
		}
	}
	for i, p := range data.Products {
		if p.Name == "" {
			return nil, fmt.Errorf("products[%d]: name is required", i)
		}
		if p.Price < 0 {
			return nil, fmt.Errorf("products[%d]: price must be non-negative", i)
		}
	}
	return &data, nil
}

// LoadSeedFile reads a seed YAML file from disk.
func LoadSeedFile(path string) (*SeedData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening seed file: %w", err)
	}
	defer f.Close()
	return ParseSeed(f)
}

// Seeder is a writable profile and catalog store.
type Seeder interface {
	UpsertProfile(ctx context.Context, email string, p *domain.MedicalProfile) error
	UpsertProduct(ctx context.Context, p *domain.ProductCandidate) error
}

// SeedResult counts what Seed wrote.
type SeedResult struct {
	Users    int
	Products int
}

// Seed upserts every user and product in data.
func Seed(ctx context.Context, store Seeder, data *SeedData, logger *logrus.Logger) (SeedResult, error) {
	var res SeedResult
	for _, u := range data.Users {
		if err := store.UpsertProfile(ctx, u.Email, u.Profile()); err != nil {
			return res, fmt.Errorf("seeding user %s: %w", u.ID, err)
		}
		res.Users++
	}
	for _, p := range data.Products {
		if err := store.UpsertProduct(ctx, p.Product()); err != nil {
			return res, fmt.Errorf("seeding product %q: %w", p.Name, err)
		}
		res.Products++
	}

	logger.WithFields(logrus.Fields{
		"users":    res.Users,
		"products": res.Products,
	}).Info("Seed data applied")
	return res, nil
}

// PostgresStore combines the pgx profile and product repositories into one
// profile source, catalog source and Seeder.
type PostgresStore struct {
	*ProfileRepository
	*ProductRepository
}

// NewPostgresStore creates both repositories over the same pool.
func NewPostgresStore(db *pgxpool.Pool, logger *logrus.Logger) *PostgresStore {
	return &PostgresStore{
		ProfileRepository: NewProfileRepository(db, logger),
		ProductRepository: NewProductRepository(db, logger),
	}
}
