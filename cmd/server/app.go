package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/zxia545/object-detection-analytic-image-gen/internal/api"
	"github.com/zxia545/object-detection-analytic-image-gen/internal/config"
	"github.com/zxia545/object-detection-analytic-image-gen/internal/diskguard"
	"github.com/zxia545/object-detection-analytic-image-gen/internal/pipeline"
	"github.com/zxia545/object-detection-analytic-image-gen/internal/platform/postgres"
	"github.com/zxia545/object-detection-analytic-image-gen/internal/registry"
	"github.com/zxia545/object-detection-analytic-image-gen/internal/worker"
)

// application holds the wired components of the running server.
type application struct {
	config   *config.Config
	logger   *slog.Logger
	registry *registry.Registry
	executor *worker.Executor
	db       *sql.DB // nil when no archive database is configured

	generationHandler *api.GenerationHandler
	inspectionHandler *api.InspectionHandler
}

// newApplication wires every component from configuration. The diffusion
// pipeline itself is constructed lazily by the executor on the first task.
// Metrics are registered on the given registerer so independent application
// instances never collide.
func newApplication(cfg *config.Config, appLogger *slog.Logger, metricsReg prometheus.Registerer) (*application, error) {
	taskRegistry := registry.New(appLogger)

	guard, err := diskguard.New(cfg.Output.Dir, cfg.Output.MinFreeGB, appLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create disk guard: %w", err)
	}

	var db *sql.DB
	var archiver worker.Archiver
	var archiveReader api.ArchiveReader
	if cfg.Database.URL != "" {
		db, err = setupAppDatabase(cfg, appLogger)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(db); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		store := postgres.NewArchiveStore(db, appLogger)
		archiver = store
		archiveReader = store
	}

	executor, err := worker.NewExecutor(
		taskRegistry,
		guard,
		pipelineLoader(cfg.Pipeline, appLogger),
		worker.NewNotifier(appLogger),
		archiver,
		worker.NewMetrics(metricsReg),
		appLogger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create task executor: %w", err)
	}

	return &application{
		config:            cfg,
		logger:            appLogger,
		registry:          taskRegistry,
		executor:          executor,
		db:                db,
		generationHandler: api.NewGenerationHandler(executor, cfg.Output.Dir, appLogger),
		inspectionHandler: api.NewInspectionHandler(taskRegistry, archiveReader,
			cfg.Output.Dir, cfg.Server.HistoryPageSize, appLogger),
	}, nil
}

// pipelineLoader returns the lazy constructor for the configured diffusion
// backend.
func pipelineLoader(cfg config.PipelineConfig, appLogger *slog.Logger) worker.PipelineLoader {
	return func() (pipeline.Pipeline, error) {
		switch cfg.Backend {
		case "gemini":
			return pipeline.NewGeminiBackend(context.Background(), appLogger, cfg)
		default:
			return pipeline.NewRemoteClient(cfg.RemoteURL, appLogger)
		}
	}
}

// cleanup releases application resources after the HTTP server has stopped.
// In-flight tasks are drained first so their terminal states still reach
// the archive.
func (app *application) cleanup() {
	app.logger.Info("draining in-flight tasks")
	app.executor.Wait()

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("failed to close database connection", "error", err)
		}
	}
}
