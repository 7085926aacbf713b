package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/zxia545/object-detection-analytic-image-gen/internal/domain"
)

// RemoteClient implements Pipeline against a diffusion sidecar that accepts
// a JSON render spec on POST /render and answers with the PNG bytes.
// A hung render blocks the calling task indefinitely: no request deadline
// is imposed beyond context cancellation, because inference time is
// unbounded and there is no resume semantics for a partial render.
type RemoteClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewRemoteClient creates a RemoteClient for the given base URL.
func NewRemoteClient(baseURL string, logger *slog.Logger) (*RemoteClient, error) {
	if logger == nil {
		return nil, fmt.Errorf("%w: logger cannot be nil", ErrInvalidConfig)
	}

	if baseURL == "" {
		return nil, fmt.Errorf("%w: remote backend URL cannot be empty", ErrInvalidConfig)
	}

	return &RemoteClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		// Only the dial/response-header phase is bounded; the body read
		// (the render itself) is not.
		httpClient: &http.Client{
			Transport: &http.Transport{
				ResponseHeaderTimeout: 0,
			},
		},
		logger: logger.With("component", "remote_pipeline"),
	}, nil
}

// Generate posts the render spec to the sidecar and streams the PNG
// response to outputPath.
func (c *RemoteClient) Generate(ctx context.Context, spec domain.RenderSpec, outputPath string) error {
	body, err := json.Marshal(spec)
	if err != nil {
		return fmt.Errorf("failed to marshal render spec: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/render", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build render request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("failed to close render response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		// The sidecar reports render errors as JSON; surface the body text
		// since the task stores only the error string.
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: backend returned %d: %s",
			ErrRenderFailed, resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/png") {
		return fmt.Errorf("%w: unexpected content type %q", ErrInvalidResponse, ct)
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	written, err := io.Copy(out, resp.Body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		// Remove the partial file so a failed task never leaves an output
		// behind that would block resubmission.
		if rmErr := os.Remove(outputPath); rmErr != nil {
			c.logger.Warn("failed to remove partial output file",
				"path", outputPath,
				"error", rmErr)
		}
		return fmt.Errorf("failed to write output file: %w", err)
	}

	c.logger.Info("render completed",
		"output_file", outputPath,
		"bytes", written,
		"width", spec.Width,
		"height", spec.Height,
		"elapsed", time.Since(start))
	return nil
}
