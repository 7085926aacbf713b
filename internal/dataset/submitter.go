package dataset

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zxia545/object-detection-analytic-image-gen/internal/domain"
)

// Common errors returned by the Submitter
var (
	ErrNilLogger     = errors.New("logger cannot be nil")
	ErrEmptyServer   = errors.New("server URL cannot be empty")
	ErrCaseRejected  = errors.New("server rejected dataset case")
	ErrCaseFailed    = errors.New("generation failed for dataset case")
	ErrDownloadImage = errors.New("failed to download result image")
)

// SubmitterOptions tune how cases are rendered and polled.
type SubmitterOptions struct {
	// AspectRatio applied to every case. Defaults to 16:9.
	AspectRatio string
	// NumInferenceSteps applied to every case. Defaults to 30.
	NumInferenceSteps int
	// PollInterval between status checks. Defaults to 1s.
	PollInterval time.Duration
}

// Summary reports the outcome of one Run.
type Summary struct {
	Completed int
	Skipped   int
	Failed    int
}

// Submitter feeds dataset cases to a generation server one at a time,
// waiting for each to finish before moving on. The server serializes
// inference anyway, so client-side concurrency would buy nothing.
type Submitter struct {
	serverURL string
	outDir    string
	opts      SubmitterOptions
	client    *http.Client
	logger    *slog.Logger
}

// NewSubmitter creates a Submitter targeting serverURL and writing images
// into outDir, which is created if absent.
func NewSubmitter(serverURL, outDir string, opts SubmitterOptions, logger *slog.Logger) (*Submitter, error) {
	if serverURL == "" {
		return nil, ErrEmptyServer
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", outDir, err)
	}

	if opts.AspectRatio == "" {
		opts.AspectRatio = string(domain.DefaultAspectRatio)
	}
	if opts.NumInferenceSteps <= 0 {
		opts.NumInferenceSteps = 30
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}

	return &Submitter{
		serverURL: strings.TrimRight(serverURL, "/"),
		outDir:    outDir,
		opts:      opts,
		client:    &http.Client{},
		logger:    logger.With("component", "dataset_submitter"),
	}, nil
}

// Run processes every case in order. Per-case failures are counted and
// logged but do not stop the run; only context cancellation aborts it.
func (s *Submitter) Run(ctx context.Context, cases []domain.DatasetCase) (Summary, error) {
	var summary Summary
	for _, c := range cases {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		switch err := s.processCase(ctx, c); {
		case err == nil:
			summary.Completed++
		case errors.Is(err, errCaseExists):
			summary.Skipped++
			s.logger.Info("skipping case, image already exists", "test_case_id", c.TestCaseID)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return summary, err
		default:
			summary.Failed++
			s.logger.Error("case failed",
				"test_case_id", c.TestCaseID,
				"error", err)
		}
	}

	s.logger.Info("dataset run finished",
		"completed", summary.Completed,
		"skipped", summary.Skipped,
		"failed", summary.Failed)
	return summary, nil
}

// errCaseExists marks a case skipped because its PNG is already on disk or
// the server reported a duplicate.
var errCaseExists = errors.New("case output already exists")

// processCase drives one case from submission to a PNG on disk.
func (s *Submitter) processCase(ctx context.Context, c domain.DatasetCase) error {
	imgPath := filepath.Join(s.outDir, c.TestCaseID+".png")
	if _, err := os.Stat(imgPath); err == nil {
		return errCaseExists
	}

	taskID, err := s.submitCase(ctx, c)
	if err != nil {
		return err
	}

	if err := s.waitForResult(ctx, taskID); err != nil {
		return err
	}

	// The server may share a filesystem with us, in which case the PNG is
	// already in place and no download is needed.
	if _, err := os.Stat(imgPath); err == nil {
		return nil
	}
	return s.downloadResult(ctx, taskID, imgPath)
}

// caseSubmission is the body posted to /generate_case.
type caseSubmission struct {
	TestCaseID        string  `json:"test_case_id"`
	Prompt            string  `json:"prompt"`
	NegativePrompt    string  `json:"negative_prompt"`
	AspectRatio       string  `json:"aspect_ratio"`
	NumInferenceSteps int     `json:"num_inference_steps"`
	TrueCFGScale      float64 `json:"true_cfg_scale"`
	Seed              *int64  `json:"seed,omitempty"`
	Language          string  `json:"language"`
}

// submitCase posts the case and returns the task ID assigned by the server.
func (s *Submitter) submitCase(ctx context.Context, c domain.DatasetCase) (string, error) {
	body, err := json.Marshal(caseSubmission{
		TestCaseID:        c.TestCaseID,
		Prompt:            c.Prompt,
		NegativePrompt:    c.NegativePrompt,
		AspectRatio:       s.opts.AspectRatio,
		NumInferenceSteps: s.opts.NumInferenceSteps,
		TrueCFGScale:      4.0,
		Seed:              c.Seed,
		Language:          "en",
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode case submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.serverURL+"/generate_case", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build submission request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to submit case: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		return "", errCaseExists
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: %s", ErrCaseRejected, readDetail(resp.Body, resp.StatusCode))
	}

	var accepted struct {
		TaskID string `json:"task_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&accepted); err != nil {
		return "", fmt.Errorf("failed to decode submission response: %w", err)
	}
	return accepted.TaskID, nil
}

// waitForResult polls /status/{task_id} until the task is terminal.
func (s *Submitter) waitForResult(ctx context.Context, taskID string) error {
	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	for {
		status, detail, err := s.fetchStatus(ctx, taskID)
		if err != nil {
			return err
		}

		switch status {
		case "done":
			return nil
		case "failed":
			return fmt.Errorf("%w: %s", ErrCaseFailed, detail)
		}

		s.logger.Debug("waiting for task", "task_id", taskID, "status", status)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// fetchStatus reads one status snapshot.
func (s *Submitter) fetchStatus(ctx context.Context, taskID string) (status, detail string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		s.serverURL+"/status/"+taskID, nil)
	if err != nil {
		return "", "", fmt.Errorf("failed to build status request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("failed to fetch task status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("status endpoint returned %d for task %s", resp.StatusCode, taskID)
	}

	var body struct {
		Status string `json:"status"`
		Detail string `json:"detail"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", "", fmt.Errorf("failed to decode status response: %w", err)
	}
	return body.Status, body.Detail, nil
}

// downloadResult streams /result/{task_id}.png to imgPath.
func (s *Submitter) downloadResult(ctx context.Context, taskID, imgPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		s.serverURL+"/result/"+taskID+".png", nil)
	if err != nil {
		return fmt.Errorf("failed to build download request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDownloadImage, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: server returned %d", ErrDownloadImage, resp.StatusCode)
	}

	out, err := os.Create(imgPath)
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		_ = os.Remove(imgPath)
		return fmt.Errorf("%w: %v", ErrDownloadImage, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to finalize image file: %w", err)
	}

	s.logger.Info("image saved", "test_case_id", taskID, "path", imgPath)
	return nil
}

// readDetail extracts the JSON error detail, falling back to the status
// code.
func readDetail(r io.Reader, statusCode int) string {
	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.NewDecoder(r).Decode(&body); err == nil && body.Detail != "" {
		return body.Detail
	}
	return fmt.Sprintf("status %d", statusCode)
}
