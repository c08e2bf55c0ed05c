// Package main runs the HTTP API over the database-free lite stack.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/pharmassist-medsafety/internal/api"
	"github.com/pharmassist-medsafety/internal/config"
	"github.com/pharmassist-medsafety/internal/lite"
	"github.com/pharmassist-medsafety/internal/middleware"
)

func main() {
	liteCfg := config.LoadLiteConfig()
	if liteCfg.SigningKey == "" {
		log.Fatal("MEDSAFETY_SIGNING_KEY is required")
	}

	cfg := liteCfg.ToConfig()
	logger := config.NewLogger(cfg.Logging)
	logger.WithField("data_dir", liteCfg.DataDir).Info("Starting PharmAssist server (lite)")

	stack, err := lite.Open(liteCfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open lite stack")
	}
	defer stack.Close()

	auth, err := middleware.NewAuthenticator(cfg.Auth)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create authenticator")
	}

	server := api.NewServer(config.NewStaticManager(cfg), stack.Safety, auth, logger,
		api.WithHistory(stack.Recorder),
		api.WithHealthCheck("store", stack.Health),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Error("Server failed")
		return
	}
	logger.Info("Server stopped")
}
