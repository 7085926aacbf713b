package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/zxia545/object-detection-analytic-image-gen/internal/diskguard"
	"github.com/zxia545/object-detection-analytic-image-gen/internal/domain"
	"github.com/zxia545/object-detection-analytic-image-gen/internal/pipeline"
	"github.com/zxia545/object-detection-analytic-image-gen/internal/registry"
)

// Common errors returned by the Executor
var (
	ErrNilDependency = errors.New("executor dependency cannot be nil")
)

// PipelineLoader constructs the diffusion pipeline on first use. Loading a
// model is expensive, so it is deferred until the first task needs it; a
// failed load is retried on the next task rather than cached.
type PipelineLoader func() (pipeline.Pipeline, error)

// Archiver records terminal tasks in durable storage. Archiving is
// best-effort: failures are logged and never affect task status.
type Archiver interface {
	RecordTask(ctx context.Context, task domain.Task) error
}

// Executor runs submitted tasks. Each task gets its own goroutine, and all
// pipeline calls are serialized behind a single inference mutex so at most
// one render touches the GPU at a time.
type Executor struct {
	registry *registry.Registry
	guard    *diskguard.Guard
	loader   PipelineLoader
	notifier *Notifier
	archiver Archiver // optional, may be nil
	metrics  *Metrics
	logger   *slog.Logger

	// inferenceMu serializes pipeline calls. It is never held together
	// with the registry's internal lock.
	inferenceMu sync.Mutex

	// loadMu guards lazy pipeline construction.
	loadMu sync.Mutex
	pipe   pipeline.Pipeline

	wg sync.WaitGroup
}

// NewExecutor creates an Executor. The archiver may be nil when no database
// is configured; every other dependency is required.
func NewExecutor(
	reg *registry.Registry,
	guard *diskguard.Guard,
	loader PipelineLoader,
	notifier *Notifier,
	archiver Archiver,
	metrics *Metrics,
	logger *slog.Logger,
) (*Executor, error) {
	if reg == nil || guard == nil || loader == nil || notifier == nil || metrics == nil || logger == nil {
		return nil, ErrNilDependency
	}

	return &Executor{
		registry: reg,
		guard:    guard,
		loader:   loader,
		notifier: notifier,
		archiver: archiver,
		metrics:  metrics,
		logger:   logger.With("component", "task_executor"),
	}, nil
}

// Submit registers the task and starts its goroutine. The disk guard runs
// before admission so a full volume is reclaimed rather than rejected.
// Returns registry.ErrDuplicateTask if the ID was already submitted.
func (e *Executor) Submit(task *domain.Task, req domain.GenerationRequest) error {
	if err := e.guard.Ensure(); err != nil {
		// Cleanup trouble is not an admission error.
		e.logger.Warn("disk space check failed, admitting task anyway",
			"task_id", task.ID,
			"error", err)
	}

	if err := e.registry.Create(task); err != nil {
		return err
	}

	e.metrics.TasksSubmitted.Inc()
	e.metrics.QueueDepth.Inc()

	e.wg.Add(1)
	go e.run(task.ID, task.OutputFile, task.CallbackURL, req)

	e.logger.Info("task submitted",
		"task_id", task.ID,
		"aspect_ratio", req.AspectRatio,
		"seed", req.Seed)
	return nil
}

// Wait blocks until all in-flight tasks have finished. Used during
// graceful shutdown.
func (e *Executor) Wait() {
	e.wg.Wait()
}

// run drives one task from pending to a terminal state.
func (e *Executor) run(taskID, outputFile, callbackURL string, req domain.GenerationRequest) {
	defer e.wg.Done()
	defer e.metrics.QueueDepth.Dec()

	if err := e.render(taskID, outputFile, req); err != nil {
		e.metrics.TasksFailed.Inc()
		e.logger.Error("task failed",
			"task_id", taskID,
			"error", err)
		if markErr := e.registry.MarkFailed(taskID, err.Error()); markErr != nil {
			e.logger.Error("failed to record task failure",
				"task_id", taskID,
				"error", markErr)
		}
	} else {
		resultURL := "/result/" + path.Base(filepath.ToSlash(outputFile))
		e.metrics.TasksCompleted.Inc()
		if markErr := e.registry.MarkDone(taskID, resultURL); markErr != nil {
			e.logger.Error("failed to record task completion",
				"task_id", taskID,
				"error", markErr)
		}
	}

	e.finalize(taskID, callbackURL)
}

// render acquires the inference lock and runs the pipeline. The task stays
// pending while parked on the lock; it turns running only once the GPU is
// actually working on it.
func (e *Executor) render(taskID, outputFile string, req domain.GenerationRequest) error {
	e.inferenceMu.Lock()
	defer e.inferenceMu.Unlock()

	if err := e.registry.SetStatus(taskID, domain.TaskStatusRunning); err != nil {
		return fmt.Errorf("failed to mark task running: %w", err)
	}

	pipe, err := e.pipeline()
	if err != nil {
		return fmt.Errorf("failed to load pipeline: %w", err)
	}

	start := time.Now()
	err = pipe.Generate(context.Background(), req.RenderSpec(), outputFile)
	e.metrics.InferenceDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return err
	}

	e.logger.Info("render finished",
		"task_id", taskID,
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

// pipeline returns the lazily constructed pipeline, building it on first
// call.
func (e *Executor) pipeline() (pipeline.Pipeline, error) {
	e.loadMu.Lock()
	defer e.loadMu.Unlock()

	if e.pipe != nil {
		return e.pipe, nil
	}

	e.logger.Info("loading diffusion pipeline")
	pipe, err := e.loader()
	if err != nil {
		return nil, err
	}
	e.pipe = pipe
	return pipe, nil
}

// finalize archives the terminal task and fires its callback, both
// best-effort.
func (e *Executor) finalize(taskID, callbackURL string) {
	task, err := e.registry.Get(taskID)
	if err != nil {
		e.logger.Error("terminal task missing from registry",
			"task_id", taskID,
			"error", err)
		return
	}

	if e.archiver != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.archiver.RecordTask(ctx, task); err != nil {
			e.logger.Warn("failed to archive terminal task",
				"task_id", taskID,
				"error", err)
		}
	}

	if callbackURL != "" {
		e.notifier.Notify(callbackURL, task)
	}
}
