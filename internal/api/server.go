// Package api exposes the medication safety operations over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pharmassist-medsafety/internal/audit"
	"github.com/pharmassist-medsafety/internal/domain"
	"github.com/pharmassist-medsafety/internal/middleware"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

const shutdownTimeout = 30 * time.Second

// SafetyAPI is the engine surface served by the HTTP layer.
type SafetyAPI interface {
	GetRecommendations(ctx context.Context, userID string, includeConflicted bool, maxResults int) (*domain.Outcome[domain.RecommendationResponse], error)
	RefreshRecommendations(ctx context.Context, userID string, includeConflicted bool, maxResults int) (*domain.Outcome[domain.RecommendationResponse], error)
	GetSafetySummary(ctx context.Context, userID string) (*domain.Outcome[domain.SafetySummaryResponse], error)
	CheckProductSafety(ctx context.Context, userID string, productID int) (*domain.MedicationRecommendation, error)
	GetConflictingMedications(ctx context.Context, userID string, maxResults int) (*domain.Outcome[domain.ConflictingMedicationsResponse], error)
	GetMedicalProfile(ctx context.Context, userID string) (*domain.MedicalProfileView, error)
	CheckProfileCompletion(ctx context.Context, userID string) (*domain.ProfileCompletion, error)
	VocabularyVersion() string
}

// HistoryProvider lists the audit trail of a user.
type HistoryProvider interface {
	History(ctx context.Context, userID string, limit int) ([]*audit.Entry, error)
}

// HealthCheck reports the liveness of one dependency.
type HealthCheck func(ctx context.Context) error

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	safety        SafetyAPI
	auth          *middleware.Authenticator
	logger        *logrus.Logger

	history      HistoryProvider
	checks       map[string]HealthCheck
	checkOrder   []string
	pictureBase  string
	router       *gin.Engine
	server       *http.Server
	shutdownWait time.Duration
}

// Option configures optional server collaborators.
type Option func(*Server)

// WithHistory enables the /history route.
func WithHistory(h HistoryProvider) Option {
	return func(s *Server) { s.history = h }
}

// WithHealthCheck adds a named dependency to /health.
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(s *Server) {
		if _, exists := s.checks[name]; !exists {
			s.checkOrder = append(s.checkOrder, name)
		}
		s.checks[name] = check
	}
}

// NewServer creates a new HTTP server instance
func NewServer(configManager domain.ConfigManager, safety SafetyAPI, auth *middleware.Authenticator, logger *logrus.Logger, opts ...Option) *Server {
	cfg := configManager.GetConfig()

	if gin.Mode() != gin.TestMode {
		if cfg.Logging.Level == "debug" {
			gin.SetMode(gin.DebugMode)
		} else {
			gin.SetMode(gin.ReleaseMode)
		}
	}

	s := &Server{
		configManager: configManager,
		safety:        safety,
		auth:          auth,
		logger:        logger,
		checks:        make(map[string]HealthCheck),
		pictureBase:   cfg.Server.APIBaseURL,
		shutdownWait:  shutdownTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	router := gin.New()
	router.Use(
		middleware.Recovery(logger),
		middleware.CorrelationID(),
		middleware.SecurityHeaders(),
		middleware.AuditLogger(logger),
		cors.New(corsConfig(cfg.Server.AllowedOrigins)),
		middleware.BodyLimit(cfg.Server.MaxBodyBytes),
		middleware.RateLimit(cfg.RateLimit),
		middleware.RequestTimeout(cfg.Server.RequestTimeout),
	)
	router.NoRoute(func(c *gin.Context) {
		middleware.Abort(c, http.StatusNotFound, domain.CodeInvalidInput, "Route not found")
	})
	s.router = router

	s.setupRoutes()
	return s
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middleware.CorrelationIDHeader},
		ExposeHeaders: []string{middleware.CorrelationIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cfg
}

// Router returns the gin engine, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownWait)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	recs := v1.Group("/recommendations", s.auth.RequireAuth())
	{
		recs.GET("", s.handleGetRecommendations)
		recs.GET("/safety-summary", s.handleGetSafetySummary)
		recs.GET("/products/:productId/safety", s.handleCheckProductSafety)
		recs.GET("/conflicts", s.handleGetConflicts)
		recs.GET("/profile", s.handleGetProfile)
		recs.GET("/profile/completion", s.handleProfileCompletion)
		recs.POST("/refresh", s.handleRefresh)
		recs.GET("/history", s.handleHistory)
	}
}

// handleHealth reports liveness of the server and each registered
// dependency. Failure details stay in the log.
func (s *Server) handleHealth(c *gin.Context) {
	status := http.StatusOK
	overall := "healthy"
	checks := make(map[string]string, len(s.checks))

	for _, name := range s.checkOrder {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		err := s.checks[name](ctx)
		cancel()
		if err != nil {
			s.logger.WithError(err).WithField("check", name).Warn("Health check failed")
			checks[name] = "unavailable"
			status = http.StatusServiceUnavailable
			overall = "degraded"
			continue
		}
		checks[name] = "ok"
	}

	c.JSON(status, gin.H{
		"status":             overall,
		"timestamp":          time.Now().UTC(),
		"version":            Version,
		"vocabulary_version": s.safety.VocabularyVersion(),
		"checks":             checks,
	})
}
