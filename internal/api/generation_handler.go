package api

import (
	"errors"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/zxia545/object-detection-analytic-image-gen/internal/api/shared"
	"github.com/zxia545/object-detection-analytic-image-gen/internal/domain"
	"github.com/zxia545/object-detection-analytic-image-gen/internal/registry"
)

// Submitter accepts a new task for asynchronous execution.
type Submitter interface {
	Submit(task *domain.Task, req domain.GenerationRequest) error
}

// Request defaults, matching the upstream diffusion service contract.
const (
	defaultAspectRatio = domain.DefaultAspectRatio
	defaultLanguage    = "en"
	defaultCFGScale    = 4.0
	defaultStepsAdHoc  = 35
	defaultStepsCase   = 10
	defaultSeedAdHoc   = 42
	maxRandomSeed      = 100
)

// GenerateRequest is the body for POST /generate.
type GenerateRequest struct {
	Prompt            string   `json:"prompt" validate:"required,min=1"`
	NegativePrompt    string   `json:"negative_prompt"`
	AspectRatio       string   `json:"aspect_ratio"`
	NumInferenceSteps *int     `json:"num_inference_steps" validate:"omitempty,min=1"`
	TrueCFGScale      *float64 `json:"true_cfg_scale" validate:"omitempty,gt=0"`
	Seed              *int64   `json:"seed"`
	Language          string   `json:"language"`
	CallbackURL       string   `json:"callback_url" validate:"omitempty,url"`
}

// GenerateCaseRequest is the body for POST /generate_case. The test case ID
// doubles as the task ID and the output filename stem.
type GenerateCaseRequest struct {
	TestCaseID        string   `json:"test_case_id" validate:"required,min=1"`
	Prompt            string   `json:"prompt" validate:"required,min=1"`
	NegativePrompt    string   `json:"negative_prompt"`
	AspectRatio       string   `json:"aspect_ratio"`
	NumInferenceSteps *int     `json:"num_inference_steps" validate:"omitempty,min=1"`
	TrueCFGScale      *float64 `json:"true_cfg_scale" validate:"omitempty,gt=0"`
	Seed              *int64   `json:"seed"`
	Language          string   `json:"language"`
}

// TaskAcceptedResponse is returned for successful submissions.
type TaskAcceptedResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// GenerationHandler handles the two task-submission endpoints.
type GenerationHandler struct {
	submitter Submitter
	outputDir string
	logger    *slog.Logger
}

// NewGenerationHandler creates a GenerationHandler writing PNGs into
// outputDir.
func NewGenerationHandler(submitter Submitter, outputDir string, logger *slog.Logger) *GenerationHandler {
	return &GenerationHandler{
		submitter: submitter,
		outputDir: outputDir,
		logger:    logger.With("component", "generation_handler"),
	}
}

// Generate handles POST /generate: an ad-hoc render with a server-generated
// task ID.
func (h *GenerationHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	taskID := uuid.New().String()
	genReq := domain.GenerationRequest{
		Prompt:            req.Prompt,
		NegativePrompt:    req.NegativePrompt,
		AspectRatio:       aspectRatioOrDefault(req.AspectRatio),
		NumInferenceSteps: intOrDefault(req.NumInferenceSteps, defaultStepsAdHoc),
		TrueCFGScale:      floatOrDefault(req.TrueCFGScale, defaultCFGScale),
		Seed:              seedOrDefault(req.Seed, defaultSeedAdHoc),
		Language:          languageOrDefault(req.Language),
		CallbackURL:       req.CallbackURL,
	}

	h.submit(w, r, taskID, genReq)
}

// GenerateCase handles POST /generate_case: a dataset-case render keyed by
// its test case ID. Resubmitting a case whose task or output PNG already
// exists is rejected with 409.
func (h *GenerationHandler) GenerateCase(w http.ResponseWriter, r *http.Request) {
	var req GenerateCaseRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	if !safeFilenameStem(req.TestCaseID) {
		shared.RespondWithError(w, r, http.StatusBadRequest, "test_case_id must be a plain filename stem")
		return
	}

	if _, err := os.Stat(filepath.Join(h.outputDir, req.TestCaseID+".png")); err == nil {
		shared.RespondWithError(w, r, http.StatusConflict,
			"Output image for this test_case_id already exists")
		return
	}

	genReq := domain.GenerationRequest{
		Prompt:            req.Prompt,
		NegativePrompt:    req.NegativePrompt,
		AspectRatio:       aspectRatioOrDefault(req.AspectRatio),
		NumInferenceSteps: intOrDefault(req.NumInferenceSteps, defaultStepsCase),
		TrueCFGScale:      floatOrDefault(req.TrueCFGScale, defaultCFGScale),
		Seed:              seedOrDefault(req.Seed, rand.Int64N(maxRandomSeed+1)),
		Language:          languageOrDefault(req.Language),
	}

	h.submit(w, r, req.TestCaseID, genReq)
}

// submit creates the task record and hands it to the executor.
func (h *GenerationHandler) submit(w http.ResponseWriter, r *http.Request, taskID string, req domain.GenerationRequest) {
	task, err := domain.NewTask(taskID, filepath.Join(h.outputDir, taskID+".png"))
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to create task", err)
		return
	}
	task.CallbackURL = req.CallbackURL

	if err := h.submitter.Submit(task, req); err != nil {
		if errors.Is(err, registry.ErrDuplicateTask) {
			shared.RespondWithError(w, r, http.StatusConflict,
				"A task with this ID already exists")
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to submit task", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, TaskAcceptedResponse{
		TaskID: taskID,
		Status: string(domain.TaskStatusPending),
	})
}

// safeFilenameStem reports whether id can safely become "<id>.png" inside
// the output directory.
func safeFilenameStem(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	return !strings.ContainsAny(id, "/\\")
}

func aspectRatioOrDefault(raw string) domain.AspectRatio {
	if raw == "" {
		return defaultAspectRatio
	}
	return domain.AspectRatio(raw)
}

func languageOrDefault(raw string) string {
	if raw == "" {
		return defaultLanguage
	}
	return raw
}

func intOrDefault(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func floatOrDefault(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func seedOrDefault(v *int64, def int64) int64 {
	if v == nil {
		return def
	}
	return *v
}
