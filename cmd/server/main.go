// Package main implements the entry point for the synthetic CCTV image
// generation server: a single-worker job queue in front of an image
// diffusion pipeline, plus introspection and result-delivery endpoints.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/zxia545/object-detection-analytic-image-gen/internal/config"
	"github.com/zxia545/object-detection-analytic-image-gen/internal/platform/logger"
)

func main() {
	app, err := initializeApp()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	if err := app.startHTTPServer(context.Background()); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// initializeApp loads configuration, sets up logging, and wires the
// application components.
func initializeApp() (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	slog.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"output_dir", cfg.Output.Dir,
		"pipeline_backend", cfg.Pipeline.Backend,
		"archive_enabled", cfg.Database.URL != "")

	app, err := newApplication(cfg, appLogger, prometheus.DefaultRegisterer)
	if err != nil {
		return nil, fmt.Errorf("failed to build application: %w", err)
	}

	return app, nil
}
