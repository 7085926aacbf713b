package pipeline

import (
	"context"
	"errors"

	"github.com/zxia545/object-detection-analytic-image-gen/internal/domain"
)

// Common errors returned by pipeline implementations
var (
	// ErrInvalidConfig is returned when a backend configuration is invalid
	ErrInvalidConfig = errors.New("invalid pipeline configuration")

	// ErrRenderFailed is returned when the backend fails to render an image
	ErrRenderFailed = errors.New("image rendering failed")

	// ErrInvalidResponse is returned when the backend response cannot be used
	ErrInvalidResponse = errors.New("invalid response from diffusion backend")
)

// Pipeline renders one image per call. Implementations are not required to
// be safe for concurrent use: the worker serializes all calls behind its
// inference lock, so at most one Generate runs at any instant.
type Pipeline interface {
	// Generate renders the given spec and writes a PNG to outputPath.
	Generate(ctx context.Context, spec domain.RenderSpec, outputPath string) error
}
