// Package lite assembles the database-free stack shared by server-lite and
// mcp-server-lite: a SQLite profile and catalog store, an in-memory response
// cache and a SQLite audit trail under one data directory.
package lite

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/pharmassist-medsafety/internal/audit"
	"github.com/pharmassist-medsafety/internal/cache"
	"github.com/pharmassist-medsafety/internal/config"
	"github.com/pharmassist-medsafety/internal/repository"
	"github.com/pharmassist-medsafety/internal/service"
	"github.com/pharmassist-medsafety/internal/vocabulary"
)

// Stack holds the opened lite components.
type Stack struct {
	Config   *config.LiteConfig
	Store    *repository.SQLiteStore
	Cache    *cache.Tiered
	Recorder *audit.Recorder
	Safety   *service.SafetyService

	AuditStore *audit.SQLiteStore
}

// Open creates the data directory and every store inside it.
func Open(cfg *config.LiteConfig, logger *logrus.Logger) (*Stack, error) {
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	vocab, err := vocabulary.Default()
	if err != nil {
		return nil, fmt.Errorf("failed to load vocabulary: %w", err)
	}

	store, err := repository.NewSQLiteStore(cfg.StoreDBPath(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	auditStore, err := audit.NewSQLiteStore(cfg.AuditDBPath())
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to open audit store: %w", err)
	}

	s := &Stack{
		Config:     cfg,
		Store:      store,
		Cache:      cache.NewTiered(cache.NewMemoryCache(cfg.CacheMaxItems, cfg.CacheTTL), nil, logger),
		Recorder:   audit.NewRecorder(auditStore, logger),
		AuditStore: auditStore,
	}

	engine := service.NewRecommender(vocab, logger)
	s.Safety = service.NewSafetyService(store, store, engine, vocab, logger,
		service.WithResponseCache(s.Cache, cfg.CacheTTL),
		service.WithAuditRecorder(s.Recorder),
	)

	logger.WithFields(logrus.Fields{
		"data_dir":           cfg.DataDir,
		"vocabulary_version": vocab.Version,
	}).Info("Lite stack initialized")
	return s, nil
}

// Health reports whether the SQLite store answers.
func (s *Stack) Health(ctx context.Context) error {
	return s.Store.Health(ctx)
}

// Close releases every store.
func (s *Stack) Close() error {
	return errors.Join(s.Store.Close(), s.AuditStore.Close())
}
