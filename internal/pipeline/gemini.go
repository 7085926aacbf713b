package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"

	"google.golang.org/genai"

	"github.com/zxia545/object-detection-analytic-image-gen/internal/config"
	"github.com/zxia545/object-detection-analytic-image-gen/internal/domain"
)

// GeminiBackend implements Pipeline using Google's Gemini image API, for
// environments without a GPU sidecar. Gemini does not accept explicit
// pixel dimensions, step counts, or CFG scale; the requested dimensions
// are passed as a prompt hint and the output is best-effort with respect
// to them. The remote backend is the one that honors the presets exactly.
type GeminiBackend struct {
	logger *slog.Logger
	client *genai.Client
	model  string
}

// NewGeminiBackend creates a GeminiBackend from the pipeline configuration.
func NewGeminiBackend(ctx context.Context, logger *slog.Logger, cfg config.PipelineConfig) (*GeminiBackend, error) {
	if logger == nil {
		return nil, fmt.Errorf("%w: logger cannot be nil", ErrInvalidConfig)
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", ErrInvalidConfig)
	}

	if cfg.GeminiModel == "" {
		return nil, fmt.Errorf("%w: gemini model name cannot be empty", ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", ErrInvalidConfig, err)
	}

	return &GeminiBackend{
		logger: logger.With("component", "gemini_pipeline"),
		client: client,
		model:  cfg.GeminiModel,
	}, nil
}

// Generate renders the spec via the Gemini image model and writes the first
// returned image to outputPath.
func (g *GeminiBackend) Generate(ctx context.Context, spec domain.RenderSpec, outputPath string) error {
	prompt := fmt.Sprintf("%s. Render as a single photorealistic image, %dx%d pixels.",
		spec.Prompt, spec.Width, spec.Height)
	if spec.NegativePrompt != "" {
		prompt += " Avoid: " + spec.NegativePrompt + "."
	}

	seed := geminiSeed(spec.Seed)
	if int64(seed) != spec.Seed {
		g.logger.Warn("seed outside the range accepted by Gemini, clamping",
			"requested_seed", spec.Seed,
			"clamped_seed", seed)
	}

	g.logger.Debug("calling Gemini image API",
		"model", g.model,
		"prompt_length", len(prompt))

	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			ResponseModalities: []string{"TEXT", "IMAGE"},
			Seed:               genai.Ptr(seed),
		},
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return fmt.Errorf("%w: no content generated", ErrInvalidResponse)
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		if part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}
		if err := os.WriteFile(outputPath, part.InlineData.Data, 0o644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		g.logger.Info("render completed",
			"output_file", outputPath,
			"bytes", len(part.InlineData.Data),
			"mime_type", part.InlineData.MIMEType)
		return nil
	}

	return fmt.Errorf("%w: response contained no image data", ErrInvalidResponse)
}

// geminiSeed clamps a request seed to the int32 range the Gemini API
// accepts.
func geminiSeed(seed int64) int32 {
	switch {
	case seed > math.MaxInt32:
		return math.MaxInt32
	case seed < math.MinInt32:
		return math.MinInt32
	default:
		return int32(seed)
	}
}
