// Package repository implements the profile and catalog sources over
// postgres (pgx) and an embedded SQLite store, plus circuit-breaking
// wrappers around either.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/pharmassist-medsafety/internal/domain"
)

// ProfileRepository reads medical profiles from the users table.
type ProfileRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *pgxpool.Pool, logger *logrus.Logger) *ProfileRepository {
	return &ProfileRepository{
		db:  db,
		log: logger,
	}
}

// GetMedicalProfile implements domain.ProfileSource.
func (r *ProfileRepository) GetMedicalProfile(ctx context.Context, userID string) (*domain.MedicalProfile, error) {
	query := `
		SELECT id, display_name, prompt_reason, has_chronic_conditions,
			   takes_medications_or_treatments, current_symptoms
		FROM users
		WHERE id = $1`

	var p domain.MedicalProfile
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&p.UserID,
		&p.DisplayName,
		&p.PromptReason,
		&p.HasChronicConditions,
		&p.TakesMedicationsOrTreatments,
		&p.CurrentSymptoms,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", userID, domain.ErrUserNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"user_id": userID,
			"error":   err,
		}).Error("Failed to get medical profile")
		return nil, fmt.Errorf("getting medical profile: %w", err)
	}

	return &p, nil
}

// UpsertProfile creates or replaces a user's profile fields.
func (r *ProfileRepository) UpsertProfile(ctx context.Context, email string, p *domain.MedicalProfile) error {
	query := `
		INSERT INTO users (
			id, email, display_name, prompt_reason, has_chronic_conditions,
			takes_medications_or_treatments, current_symptoms
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			display_name = EXCLUDED.display_name,
			prompt_reason = EXCLUDED.prompt_reason,
			has_chronic_conditions = EXCLUDED.has_chronic_conditions,
			takes_medications_or_treatments = EXCLUDED.takes_medications_or_treatments,
			current_symptoms = EXCLUDED.current_symptoms,
			updated_at = NOW()`

	_, err := r.db.Exec(ctx, query,
		p.UserID,
		email,
		p.DisplayName,
		p.PromptReason,
		p.HasChronicConditions,
		p.TakesMedicationsOrTreatments,
		p.CurrentSymptoms,
	)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"user_id": p.UserID,
			"error":   err,
		}).Error("Failed to upsert medical profile")
		return fmt.Errorf("upserting medical profile: %w", err)
	}

	r.log.WithField("user_id", p.UserID).Debug("Medical profile upserted")
	return nil
}
