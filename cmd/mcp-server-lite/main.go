// Package main provides the MCP stdio entry point over the lite stack.
// It requires no external databases.
package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/pharmassist-medsafety/internal/config"
	"github.com/pharmassist-medsafety/internal/lite"
	"github.com/pharmassist-medsafety/internal/mcpserver"
)

func main() {
	liteCfg := config.LoadLiteConfig()

	// stdout carries the protocol, so logs always go to stderr.
	logger := config.NewLogger(liteCfg.ToConfig().Logging)
	logger.WithField("data_dir", liteCfg.DataDir).Info("Starting PharmAssist MCP server (lite)")

	stack, err := lite.Open(liteCfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open lite stack")
	}
	defer stack.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := mcpserver.NewServer(stack.Safety, logger)
	if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Error("MCP server failed")
		return
	}
	logger.Info("MCP server stopped")
}
