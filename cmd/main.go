package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/mkessler/crate/internal/services"
	"github.com/mkessler/crate/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		loadedConfig, err := shared.LoadConfig("config.toml")
		if err != nil {
			logger.Fatalf("failed to load config.toml: %v", err)
		}
		config = loadedConfig
	}

	catalog := services.NewITunesService(
		config.Catalog.BaseURL,
		time.Duration(config.Catalog.TimeoutSeconds)*time.Second,
	)

	var backend services.TodoBackend
	if config.Backend.URL != "" && config.Backend.APIKey != "" {
		if svc, err := services.NewBackendService(config.Backend.URL, config.Backend.APIKey, nil); err == nil {
			backend = svc
		}
	}

	runner := NewRunner(RunnerOpts{
		Config:  config,
		Catalog: catalog,
		Backend: backend,
		Logger:  logger,
	})

	app := &cli.Command{
		Name:     "crate",
		Usage:    "Build a song library from the public catalog & manage a hosted to-do list",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrNotConfirmed) {
			logger.Warn("aborted")
			os.Exit(0)
		}
		logger.Fatalf("application error: %v", err)
	}
}
