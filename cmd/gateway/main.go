package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samvad-hq/data-api-gateway/internal/app"
	"github.com/samvad-hq/data-api-gateway/internal/config"
	"github.com/samvad-hq/data-api-gateway/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "gateway start failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	logger.InfoObj("gateway starting", "config", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gw, err := app.NewGateway(ctx, cfg, log, app.Options{})
	if err != nil {
		logger.ErrorObj("failed to initialize gateway", "error", err)
		return err
	}

	if err := gw.Run(ctx); err != nil {
		return fmt.Errorf("gateway run: %w", err)
	}

	return nil
}
