package domain

import (
	"context"
	"time"
)

// ProfileSource supplies raw medical profiles from the user account store.
type ProfileSource interface {
	// GetMedicalProfile returns the unparsed profile, or an error wrapping
	// ErrUserNotFound.
	GetMedicalProfile(ctx context.Context, userID string) (*MedicalProfile, error)
}

// CatalogSource supplies read-only product data from the catalog.
type CatalogSource interface {
	// GetProduct returns a product, or an error wrapping ErrProductNotFound.
	GetProduct(ctx context.Context, productID int) (*ProductCandidate, error)

	// ListAllProducts returns the complete catalog ordered by product id.
	ListAllProducts(ctx context.Context) ([]ProductCandidate, error)

	// CatalogVersion returns an opaque token that changes whenever any
	// product is added, removed or modified.
	CatalogVersion(ctx context.Context) (string, error)
}

// ResponseCache stores serialized responses under opaque keys.
type ResponseCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// EvaluationRecord summarizes one completed engine operation for the audit
// trail. It never carries scores or narrative.
type EvaluationRecord struct {
	UserID             string
	Operation          Operation
	ProfileFingerprint string
	CatalogVersion     string
	TotalEvaluated     int
	TotalSafe          int
	TotalConflicted    int
	CorrelationID      string
}

// AuditRecorder persists evaluation records.
type AuditRecorder interface {
	RecordEvaluation(ctx context.Context, record EvaluationRecord) error
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetDatabaseConfig() *DatabaseConfig
	GetServerConfig() *ServerConfig
	GetEngineConfig() *EngineConfig
	Reload() error
	Validate() error
	GetDatabaseConnectionString() string
	GetDatabaseURL() string
	GetRedisConnectionString() string
	IsProduction() bool
	IsDevelopment() bool
}
