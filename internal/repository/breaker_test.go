package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pharmassist-medsafety/internal/domain"
)

type mockProfiles struct {
	mock.Mock
}

func (m *mockProfiles) GetMedicalProfile(ctx context.Context, userID string) (*domain.MedicalProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MedicalProfile), args.Error(1)
}

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) GetProduct(ctx context.Context, productID int) (*domain.ProductCandidate, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProductCandidate), args.Error(1)
}

func (m *mockCatalog) ListAllProducts(ctx context.Context) ([]domain.ProductCandidate, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ProductCandidate), args.Error(1)
}

func (m *mockCatalog) CatalogVersion(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

var testBreakerConfig = domain.CircuitBreakerConfig{
	MaxRequests:  1,
	Interval:     time.Minute,
	Timeout:      time.Minute,
	FailureRatio: 0.5,
	MinRequests:  2,
}

func TestResilientCatalog_TripsOnFailures(t *testing.T) {
	ctx := context.Background()
	next := &mockCatalog{}
	next.On("ListAllProducts", ctx).Return(nil, errors.New("connection refused")).Twice()

	catalog := NewResilientCatalog(next, testBreakerConfig, testLogger())

	for i := 0; i < 2; i++ {
		_, err := catalog.ListAllProducts(ctx)
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, catalog.State())

	_, err := catalog.ListAllProducts(ctx)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	next.AssertNumberOfCalls(t, "ListAllProducts", 2)
}

func TestResilientCatalog_NotFoundIsNotAFailure(t *testing.T) {
	ctx := context.Background()
	next := &mockCatalog{}
	notFound := fmt.Errorf("product 9: %w", domain.ErrProductNotFound)
	next.On("GetProduct", ctx, 9).Return(nil, notFound)

	catalog := NewResilientCatalog(next, testBreakerConfig, testLogger())

	for i := 0; i < 5; i++ {
		_, err := catalog.GetProduct(ctx, 9)
		assert.ErrorIs(t, err, domain.ErrProductNotFound)
	}
	assert.Equal(t, gobreaker.StateClosed, catalog.State())
	next.AssertNumberOfCalls(t, "GetProduct", 5)
}

func TestResilientCatalog_PassesResults(t *testing.T) {
	ctx := context.Background()
	next := &mockCatalog{}
	products := []domain.ProductCandidate{{ID: 1, Name: "A"}}
	next.On("ListAllProducts", ctx).Return(products, nil)
	next.On("GetProduct", ctx, 1).Return(&products[0], nil)
	next.On("CatalogVersion", ctx).Return("1:empty", nil)

	catalog := NewResilientCatalog(next, domain.CircuitBreakerConfig{}, testLogger())

	got, err := catalog.ListAllProducts(ctx)
	require.NoError(t, err)
	assert.Equal(t, products, got)

	product, err := catalog.GetProduct(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "A", product.Name)

	version, err := catalog.CatalogVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1:empty", version)
}

func TestResilientProfiles(t *testing.T) {
	ctx := context.Background()
	next := &mockProfiles{}
	profile := &domain.MedicalProfile{UserID: "user-1"}
	next.On("GetMedicalProfile", ctx, "user-1").Return(profile, nil)
	next.On("GetMedicalProfile", ctx, "ghost").Return(nil, fmt.Errorf("user ghost: %w", domain.ErrUserNotFound))
	next.On("GetMedicalProfile", ctx, "broken").Return(nil, errors.New("timeout"))

	profiles := NewResilientProfiles(next, testBreakerConfig, testLogger())

	got, err := profiles.GetMedicalProfile(ctx, "user-1")
	require.NoError(t, err)
	assert.Same(t, profile, got)

	_, err = profiles.GetMedicalProfile(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	assert.Equal(t, gobreaker.StateClosed, profiles.State())

	for i := 0; i < 4; i++ {
		_, _ = profiles.GetMedicalProfile(ctx, "broken")
	}
	assert.Equal(t, gobreaker.StateOpen, profiles.State())
}
