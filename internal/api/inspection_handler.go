package api

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zxia545/object-detection-analytic-image-gen/internal/api/shared"
	"github.com/zxia545/object-detection-analytic-image-gen/internal/domain"
	"github.com/zxia545/object-detection-analytic-image-gen/internal/registry"
)

// TaskStatusResponse is the body for GET /status/{task_id}.
type TaskStatusResponse struct {
	TaskID    string `json:"task_id"`
	Status    string `json:"status"`
	ResultURL string `json:"result_url,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

// HealthResponse is the body for GET /healthz.
type HealthResponse struct {
	Status      string `json:"status"`
	QueueLength int    `json:"queue_length"`
}

// QueueResponse is the body for GET /queue.
type QueueResponse struct {
	Count int           `json:"count"`
	Tasks []domain.Task `json:"tasks"`
}

// HistoryResponse is the body for GET /history.
type HistoryResponse struct {
	Total int           `json:"total"`
	Skip  int           `json:"skip"`
	Limit int           `json:"limit"`
	Tasks []domain.Task `json:"tasks"`
}

// ArchiveReader reads terminal tasks recorded in durable storage.
type ArchiveReader interface {
	ListFinished(ctx context.Context, skip, limit int) ([]domain.Task, error)
	Count(ctx context.Context) (int, error)
}

// InspectionHandler serves the read-only endpoints: task status, result
// files, health, queue, and history.
type InspectionHandler struct {
	registry        *registry.Registry
	archive         ArchiveReader // optional, may be nil
	outputDir       string
	historyPageSize int
	logger          *slog.Logger
}

// NewInspectionHandler creates an InspectionHandler serving PNGs from
// outputDir. archive may be nil when no database is configured.
func NewInspectionHandler(reg *registry.Registry, archive ArchiveReader, outputDir string, historyPageSize int, logger *slog.Logger) *InspectionHandler {
	return &InspectionHandler{
		registry:        reg,
		archive:         archive,
		outputDir:       outputDir,
		historyPageSize: historyPageSize,
		logger:          logger.With("component", "inspection_handler"),
	}
}

// Status handles GET /status/{task_id}.
func (h *InspectionHandler) Status(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "task_id")

	task, err := h.registry.Get(taskID)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusNotFound, "Task not found")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, TaskStatusResponse{
		TaskID:    task.ID,
		Status:    string(task.Status),
		ResultURL: task.ResultURL,
		Detail:    task.Detail,
	})
}

// Result handles GET /result/{filename}, streaming the rendered PNG. The
// filename must be a plain name inside the output directory.
func (h *InspectionHandler) Result(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	if !safeFilenameStem(filename) {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid filename")
		return
	}

	path := filepath.Join(h.outputDir, filename)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		shared.RespondWithError(w, r, http.StatusNotFound, "Result file not found")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	http.ServeFile(w, r, path)
}

// Healthz handles GET /healthz.
func (h *InspectionHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{
		Status:      "ok",
		QueueLength: h.registry.ActiveCount(),
	})
}

// Queue handles GET /queue, listing pending and running tasks oldest first.
func (h *InspectionHandler) Queue(w http.ResponseWriter, r *http.Request) {
	tasks := h.registry.Active()
	shared.RespondWithJSON(w, r, http.StatusOK, QueueResponse{
		Count: len(tasks),
		Tasks: tasks,
	})
}

// History handles GET /history: finished tasks newest first by output-file
// modification time, with skip/limit paging.
func (h *InspectionHandler) History(w http.ResponseWriter, r *http.Request) {
	skip := queryInt(r, "skip", 0)
	limit := queryInt(r, "limit", h.historyPageSize)
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = h.historyPageSize
	}

	tasks := h.registry.Finished()
	sort.SliceStable(tasks, func(i, j int) bool {
		return h.finishedAt(tasks[i]).After(h.finishedAt(tasks[j]))
	})

	total := len(tasks)
	if skip > total {
		skip = total
	}
	end := skip + limit
	if end > total {
		end = total
	}

	shared.RespondWithJSON(w, r, http.StatusOK, HistoryResponse{
		Total: total,
		Skip:  skip,
		Limit: limit,
		Tasks: tasks[skip:end],
	})
}

// HistoryArchive handles GET /history/archive: finished tasks from the
// durable archive, surviving restarts. Responds 404 when no archive
// database is configured.
func (h *InspectionHandler) HistoryArchive(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		shared.RespondWithError(w, r, http.StatusNotFound, "Task archive is not configured")
		return
	}

	skip := queryInt(r, "skip", 0)
	limit := queryInt(r, "limit", h.historyPageSize)
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = h.historyPageSize
	}

	total, err := h.archive.Count(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to read task archive", err)
		return
	}

	tasks, err := h.archive.ListFinished(r.Context(), skip, limit)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to read task archive", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, HistoryResponse{
		Total: total,
		Skip:  skip,
		Limit: limit,
		Tasks: tasks,
	})
}

// finishedAt orders history entries by when their output file landed on
// disk, falling back to the task's last status change for failed tasks
// with no file.
func (h *InspectionHandler) finishedAt(task domain.Task) time.Time {
	if info, err := os.Stat(task.OutputFile); err == nil {
		return info.ModTime()
	}
	return task.UpdatedAt
}

// queryInt parses an integer query parameter, returning def when absent or
// malformed.
func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
