package repository

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/pharmassist-medsafety/internal/database"
	"github.com/pharmassist-medsafety/internal/domain"
)

// generateTestPassword creates a secure random password for test databases
func generateTestPassword() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "test_fallback_password_123"
	}
	return "test_" + hex.EncodeToString(bytes)
}

func setupTestDB(t *testing.T) (*database.DB, func()) {
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	ctx := context.Background()

	testPassword := generateTestPassword()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword(testPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}

	host, err := pgContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	config := database.Config{
		Host:        host,
		Port:        port.Int(),
		Database:    "testdb",
		Username:    "testuser",
		Password:    testPassword,
		MaxConns:    10,
		MinConns:    2,
		MaxConnLife: time.Hour,
		MaxConnIdle: time.Minute * 30,
		SSLMode:     "disable",
	}

	logger := testLogger()

	db, err := database.NewConnection(ctx, config, logger)
	if err != nil {
		t.Fatalf("Failed to create database connection: %v", err)
	}

	migrationRunner, err := database.NewMigrationRunner(config.URL(), "../../migrations", logger)
	if err != nil {
		t.Fatalf("Failed to create migration runner: %v", err)
	}
	if err := migrationRunner.Up(ctx); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	migrationRunner.Close()

	cleanup := func() {
		db.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate PostgreSQL container: %v", err)
		}
	}

	return db, cleanup
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

func TestPostgresStore(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPostgresStore(db.Pool, testLogger())

	t.Run("profile round trip", func(t *testing.T) {
		profile := &domain.MedicalProfile{
			UserID:                       "user-42",
			DisplayName:                  "Maria",
			PromptReason:                 "Headache relief",
			HasChronicConditions:         "Type 2 diabetes",
			TakesMedicationsOrTreatments: "Metformin",
			CurrentSymptoms:              "headache",
		}
		require.NoError(t, store.UpsertProfile(ctx, "maria@example.com", profile))

		got, err := store.GetMedicalProfile(ctx, "user-42")
		require.NoError(t, err)
		assert.Equal(t, profile, got)

		profile.CurrentSymptoms = "fever"
		require.NoError(t, store.UpsertProfile(ctx, "maria@example.com", profile))
		got, err = store.GetMedicalProfile(ctx, "user-42")
		require.NoError(t, err)
		assert.Equal(t, "fever", got.CurrentSymptoms)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := store.GetMedicalProfile(ctx, "nobody")
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("catalog", func(t *testing.T) {
		emptyVersion, err := store.CatalogVersion(ctx)
		require.NoError(t, err)
		assert.Equal(t, "0:empty", emptyVersion)

		require.NoError(t, store.UpsertProduct(ctx, &domain.ProductCandidate{
			ID: 2, Name: "Paracetamol 500mg", Price: 5.25, ActiveIngredient: "Paracetamol",
		}))
		require.NoError(t, store.UpsertProduct(ctx, &domain.ProductCandidate{
			ID: 1, Name: "Cough Syrup", Price: 9, ConflictMarkers: []string{"diabetes", "Heart Disease"},
		}))

		products, err := store.ListAllProducts(ctx)
		require.NoError(t, err)
		require.Len(t, products, 2)
		assert.Equal(t, 1, products[0].ID)
		assert.Equal(t, 2, products[1].ID)
		assert.Equal(t, []string{"diabetes", "Heart Disease"}, products[0].ConflictMarkers)
		assert.InDelta(t, 5.25, products[1].Price, 0.0001)

		v1, err := store.CatalogVersion(ctx)
		require.NoError(t, err)
		assert.NotEqual(t, emptyVersion, v1)

		added := &domain.ProductCandidate{Name: "Loratadine", Price: 10}
		require.NoError(t, store.UpsertProduct(ctx, added))
		assert.Equal(t, 3, added.ID, "serial continues after explicit ids")

		v2, err := store.CatalogVersion(ctx)
		require.NoError(t, err)
		assert.NotEqual(t, v1, v2)

		got, err := store.GetProduct(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, "Paracetamol 500mg", got.Name)

		require.NoError(t, store.DeleteProduct(ctx, 3))
		_, err = store.GetProduct(ctx, 3)
		assert.ErrorIs(t, err, domain.ErrProductNotFound)
		assert.ErrorIs(t, store.DeleteProduct(ctx, 3), domain.ErrProductNotFound)
	})
}
