package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/pharmassist-medsafety/internal/api"
	"github.com/pharmassist-medsafety/internal/audit"
	"github.com/pharmassist-medsafety/internal/cache"
	"github.com/pharmassist-medsafety/internal/config"
	"github.com/pharmassist-medsafety/internal/database"
	"github.com/pharmassist-medsafety/internal/domain"
	"github.com/pharmassist-medsafety/internal/middleware"
	"github.com/pharmassist-medsafety/internal/repository"
	"github.com/pharmassist-medsafety/internal/service"
	"github.com/pharmassist-medsafety/internal/vocabulary"
)

func main() {
	configFile := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Ignoring .env: %v", err)
	}

	configManager, err := config.NewManager(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := config.NewLogger(cfg.Logging)
	logger.WithFields(logrus.Fields{
		"host":        cfg.Server.Host,
		"port":        cfg.Server.Port,
		"environment": cfg.Environment,
	}).Info("Starting PharmAssist medication safety server")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, configManager, logger); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}
	logger.Info("Server stopped")
}

func run(ctx context.Context, configManager *config.Manager, logger *logrus.Logger) error {
	cfg := configManager.GetConfig()

	db, err := database.NewConnection(ctx, database.FromDatabaseConfig(cfg.Database), logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		runner, err := database.NewMigrationRunner(configManager.GetDatabaseURL(), cfg.Database.MigrationsPath, logger)
		if err != nil {
			return err
		}
		err = runner.Up(ctx)
		runner.Close()
		if err != nil {
			return err
		}
	}

	vocab, err := loadVocabulary(cfg.Engine.VocabularyPath)
	if err != nil {
		return err
	}

	store := repository.NewPostgresStore(db.Pool, logger)
	profiles := repository.NewResilientProfiles(store.ProfileRepository, cfg.CircuitBreaker, logger)
	catalog := repository.NewResilientCatalog(store.ProductRepository, cfg.CircuitBreaker, logger)

	responseCache := cache.New(cfg.Cache, logger)
	defer responseCache.Close()

	serviceOpts := []service.ServiceOption{}
	if cfg.Cache.Enabled {
		serviceOpts = append(serviceOpts, service.WithResponseCache(responseCache, cfg.Cache.DefaultTTL))
	}

	var apiOpts []api.Option
	recorder, closeAudit, err := openAudit(cfg, configManager.GetDatabaseURL(), logger)
	if err != nil {
		return err
	}
	defer closeAudit()
	if recorder != nil {
		serviceOpts = append(serviceOpts, service.WithAuditRecorder(recorder))
		apiOpts = append(apiOpts, api.WithHistory(recorder))
	}

	engine := service.NewRecommender(vocab, logger,
		service.WithMaxWorkers(cfg.Engine.MaxWorkers),
		service.WithResultDefaults(cfg.Engine.DefaultMaxResults, cfg.Engine.DefaultConflictMaxResults),
	)
	safety := service.NewSafetyService(profiles, catalog, engine, vocab, logger, serviceOpts...)

	auth, err := middleware.NewAuthenticator(cfg.Auth)
	if err != nil {
		return err
	}

	apiOpts = append(apiOpts,
		api.WithHealthCheck("database", db.Health),
		api.WithHealthCheck("cache", func(ctx context.Context) error {
			_, err := responseCache.Health(ctx)
			return err
		}),
	)
	server := api.NewServer(configManager, safety, auth, logger, apiOpts...)
	return server.Start(ctx)
}

func loadVocabulary(path string) (*vocabulary.Table, error) {
	if path == "" {
		return vocabulary.Default()
	}
	return vocabulary.LoadFile(path)
}

// openAudit returns a nil recorder when the trail is disabled.
func openAudit(cfg *domain.Config, databaseURL string, logger *logrus.Logger) (*audit.Recorder, func(), error) {
	if !cfg.Audit.Enabled || cfg.Audit.Driver == "none" {
		return nil, func() {}, nil
	}

	var (
		store audit.Store
		err   error
	)
	switch cfg.Audit.Driver {
	case "sqlite":
		store, err = audit.NewSQLiteStore(cfg.Audit.SQLitePath)
	default:
		store, err = audit.NewPostgresStoreFromURL(databaseURL)
	}
	if err != nil {
		return nil, nil, err
	}

	closeFn := func() {
		if err := store.Close(); err != nil {
			logger.WithError(err).Error("Failed to close audit store")
		}
	}
	return audit.NewRecorder(store, logger), closeFn, nil
}
