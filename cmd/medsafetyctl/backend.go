package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/pharmassist-medsafety/internal/audit"
	"github.com/pharmassist-medsafety/internal/config"
	"github.com/pharmassist-medsafety/internal/database"
	"github.com/pharmassist-medsafety/internal/domain"
	"github.com/pharmassist-medsafety/internal/lite"
	"github.com/pharmassist-medsafety/internal/repository"
	"github.com/pharmassist-medsafety/internal/service"
	"github.com/pharmassist-medsafety/internal/vocabulary"
)

// backend is the set of stores one command invocation works on.
type backend struct {
	safety *service.SafetyService
	seeder repository.Seeder
	audit  audit.Store // nil when the trail is disabled

	closers []func() error
}

func (b *backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i]())
	}
	return errors.Join(errs...)
}

// loadConfig returns the full configuration for the selected mode.
func (o *rootOptions) loadConfig() (*domain.Config, *config.Manager, error) {
	if o.lite {
		return config.LoadLiteConfig().ToConfig(), nil, nil
	}
	manager, err := config.NewManager(o.configFile)
	if err != nil {
		return nil, nil, err
	}
	return manager.GetConfig(), manager, nil
}

func (o *rootOptions) openBackend(ctx context.Context) (*backend, error) {
	if o.lite {
		stack, err := lite.Open(config.LoadLiteConfig(), o.logger)
		if err != nil {
			return nil, err
		}
		return &backend{
			safety:  stack.Safety,
			seeder:  stack.Store,
			audit:   stack.AuditStore,
			closers: []func() error{stack.Close},
		}, nil
	}

	cfg, manager, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	db, err := database.NewConnection(ctx, database.FromDatabaseConfig(cfg.Database), o.logger)
	if err != nil {
		return nil, err
	}
	b := &backend{closers: []func() error{func() error { db.Close(); return nil }}}

	vocab, err := vocabulary.Default()
	if cfg.Engine.VocabularyPath != "" {
		vocab, err = vocabulary.LoadFile(cfg.Engine.VocabularyPath)
	}
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("loading vocabulary: %w", err)
	}

	store := repository.NewPostgresStore(db.Pool, o.logger)
	b.seeder = store

	var serviceOpts []service.ServiceOption
	if cfg.Audit.Enabled && cfg.Audit.Driver != "none" {
		var auditStore audit.Store
		if cfg.Audit.Driver == "sqlite" {
			auditStore, err = audit.NewSQLiteStore(cfg.Audit.SQLitePath)
		} else {
			auditStore, err = audit.NewPostgresStoreFromURL(manager.GetDatabaseURL())
		}
		if err != nil {
			b.Close()
			return nil, err
		}
		b.audit = auditStore
		b.closers = append(b.closers, auditStore.Close)
		serviceOpts = append(serviceOpts, service.WithAuditRecorder(audit.NewRecorder(auditStore, o.logger)))
	}

	engine := service.NewRecommender(vocab, o.logger,
		service.WithMaxWorkers(cfg.Engine.MaxWorkers),
		service.WithResultDefaults(cfg.Engine.DefaultMaxResults, cfg.Engine.DefaultConflictMaxResults),
	)
	b.safety = service.NewSafetyService(store.ProfileRepository, store.ProductRepository, engine, vocab, o.logger, serviceOpts...)
	return b, nil
}
