package repository

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/pharmassist-medsafety/internal/domain"
)

// newBreaker builds a named circuit breaker from config. Not-found results
// and caller cancellation are answers, not source failures, so they never
// count toward tripping.
func newBreaker(name string, cfg domain.CircuitBreakerConfig, logger *logrus.Logger) *gobreaker.CircuitBreaker {
	maxRequests := cfg.MaxRequests
	if maxRequests == 0 {
		maxRequests = 5
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	minRequests := cfg.MinRequests
	if minRequests == 0 {
		minRequests = 3
	}
	ratio := cfg.FailureRatio
	if ratio <= 0 {
		ratio = 0.6
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: maxRequests,
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= minRequests && failureRatio >= ratio
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, domain.ErrNotFound) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})
}

// ResilientProfiles guards a profile source with a circuit breaker.
type ResilientProfiles struct {
	next    domain.ProfileSource
	breaker *gobreaker.CircuitBreaker
}

// NewResilientProfiles wraps next.
func NewResilientProfiles(next domain.ProfileSource, cfg domain.CircuitBreakerConfig, logger *logrus.Logger) *ResilientProfiles {
	return &ResilientProfiles{
		next:    next,
		breaker: newBreaker("profiles", cfg, logger),
	}
}

// GetMedicalProfile implements domain.ProfileSource.
func (r *ResilientProfiles) GetMedicalProfile(ctx context.Context, userID string) (*domain.MedicalProfile, error) {
	out, err := r.breaker.Execute(func() (interface{}, error) {
		return r.next.GetMedicalProfile(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	return out.(*domain.MedicalProfile), nil
}

// State reports the breaker state.
func (r *ResilientProfiles) State() gobreaker.State {
	return r.breaker.State()
}

// ResilientCatalog guards a catalog source with a circuit breaker.
type ResilientCatalog struct {
	next    domain.CatalogSource
	breaker *gobreaker.CircuitBreaker
}

// NewResilientCatalog wraps next.
func NewResilientCatalog(next domain.CatalogSource, cfg domain.CircuitBreakerConfig, logger *logrus.Logger) *ResilientCatalog {
	return &ResilientCatalog{
		next:    next,
		breaker: newBreaker("catalog", cfg, logger),
	}
}

// GetProduct implements domain.CatalogSource.
func (r *ResilientCatalog) GetProduct(ctx context.Context, productID int) (*domain.ProductCandidate, error) {
	out, err := r.breaker.Execute(func() (interface{}, error) {
		return r.next.GetProduct(ctx, productID)
	})
	if err != nil {
		return nil, err
	}
	return out.(*domain.ProductCandidate), nil
}

// ListAllProducts implements domain.CatalogSource.
func (r *ResilientCatalog) ListAllProducts(ctx context.Context) ([]domain.ProductCandidate, error) {
	out, err := r.breaker.Execute(func() (interface{}, error) {
		return r.next.ListAllProducts(ctx)
	})
	if err != nil {
		return nil, err
	}
	return out.([]domain.ProductCandidate), nil
}

// CatalogVersion implements domain.CatalogSource.
func (r *ResilientCatalog) CatalogVersion(ctx context.Context) (string, error) {
	out, err := r.breaker.Execute(func() (interface{}, error) {
		return r.next.CatalogVersion(ctx)
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

// State reports the breaker state.
func (r *ResilientCatalog) State() gobreaker.State {
	return r.breaker.State()
}
