// Package main implements the dataset generation CLI: it reads a JSONL
// file of synthetic test cases and drives the generation server through
// them one at a time, skipping cases whose output image already exists.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/zxia545/object-detection-analytic-image-gen/internal/config"
	"github.com/zxia545/object-detection-analytic-image-gen/internal/dataset"
	"github.com/zxia545/object-detection-analytic-image-gen/internal/platform/logger"
)

func main() {
	var (
		jsonlPath   = flag.String("jsonl", "od_synth_cases.jsonl", "path to the JSONL dataset file")
		outDir      = flag.String("out", "gen_images", "directory rendered PNGs are written to")
		serverURL   = flag.String("server", "http://localhost:6006", "base URL of the generation server")
		steps       = flag.Int("steps", 30, "diffusion inference steps per image")
		aspectRatio = flag.String("aspect-ratio", "16:9", "aspect ratio preset for every case")
		logLevel    = flag.String("log-level", "info", "log level (debug, info, warn, error)")
	)
	flag.Parse()

	appLogger, err := logger.Setup(config.ServerConfig{LogLevel: *logLevel})
	if err != nil {
		log.Fatalf("Failed to set up logger: %v", err)
	}

	cases, err := dataset.ReadCasesFile(*jsonlPath)
	if err != nil {
		appLogger.Error("failed to read dataset", "path", *jsonlPath, "error", err)
		os.Exit(1)
	}
	appLogger.Info("dataset loaded", "path", *jsonlPath, "cases", len(cases))

	submitter, err := dataset.NewSubmitter(*serverURL, *outDir, dataset.SubmitterOptions{
		AspectRatio:       *aspectRatio,
		NumInferenceSteps: *steps,
	}, appLogger)
	if err != nil {
		appLogger.Error("failed to create submitter", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, err := submitter.Run(ctx, cases)
	if err != nil {
		appLogger.Error("dataset run aborted",
			"error", err,
			"completed", summary.Completed,
			"skipped", summary.Skipped,
			"failed", summary.Failed)
		os.Exit(1)
	}

	slog.Info("dataset run complete",
		"completed", summary.Completed,
		"skipped", summary.Skipped,
		"failed", summary.Failed)
	if summary.Failed > 0 {
		os.Exit(1)
	}
}
