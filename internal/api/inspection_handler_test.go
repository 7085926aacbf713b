package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zxia545/object-detection-analytic-image-gen/internal/domain"
	"github.com/zxia545/object-detection-analytic-image-gen/internal/registry"
)

func newInspectionRouter(h *InspectionHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/status/{task_id}", h.Status)
	r.Get("/result/{filename}", h.Result)
	r.Get("/healthz", h.Healthz)
	r.Get("/queue", h.Queue)
	r.Get("/history", h.History)
	r.Get("/history/archive", h.HistoryArchive)
	return r
}

// fakeArchive serves canned terminal tasks.
type fakeArchive struct {
	tasks []domain.Task
}

func (f *fakeArchive) ListFinished(_ context.Context, skip, limit int) ([]domain.Task, error) {
	if skip > len(f.tasks) {
		skip = len(f.tasks)
	}
	end := skip + limit
	if end > len(f.tasks) {
		end = len(f.tasks)
	}
	return f.tasks[skip:end], nil
}

func (f *fakeArchive) Count(_ context.Context) (int, error) {
	return len(f.tasks), nil
}

func addTask(t *testing.T, reg *registry.Registry, id, outputFile string) *domain.Task {
	t.Helper()
	task, err := domain.NewTask(id, outputFile)
	require.NoError(t, err)
	require.NoError(t, reg.Create(task))
	return task
}

func get(router http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestStatus(t *testing.T) {
	reg := registry.New(testLogger())
	dir := t.TempDir()
	addTask(t, reg, "task-1", filepath.Join(dir, "task-1.png"))
	require.NoError(t, reg.SetStatus("task-1", domain.TaskStatusRunning))

	router := newInspectionRouter(NewInspectionHandler(reg, nil, dir, 30, testLogger()))

	w := get(router, "/status/task-1")
	require.Equal(t, http.StatusOK, w.Code)

	var resp TaskStatusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "task-1", resp.TaskID)
	assert.Equal(t, "running", resp.Status)

	w = get(router, "/status/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestResult(t *testing.T) {
	reg := registry.New(testLogger())
	dir := t.TempDir()
	png := []byte("\x89PNG\r\n\x1a\nfake")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "task-1.png"), png, 0o644))

	router := newInspectionRouter(NewInspectionHandler(reg, nil, dir, 30, testLogger()))

	w := get(router, "/result/task-1.png")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, png, w.Body.Bytes())

	w = get(router, "/result/missing.png")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = get(router, "/result/..")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthz(t *testing.T) {
	reg := registry.New(testLogger())
	dir := t.TempDir()
	addTask(t, reg, "a", filepath.Join(dir, "a.png"))
	addTask(t, reg, "b", filepath.Join(dir, "b.png"))
	require.NoError(t, reg.MarkDone("b", "/result/b.png"))

	router := newInspectionRouter(NewInspectionHandler(reg, nil, dir, 30, testLogger()))

	w := get(router, "/healthz")
	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.QueueLength)
}

func TestQueue(t *testing.T) {
	reg := registry.New(testLogger())
	dir := t.TempDir()
	addTask(t, reg, "a", filepath.Join(dir, "a.png"))
	addTask(t, reg, "b", filepath.Join(dir, "b.png"))
	require.NoError(t, reg.MarkFailed("a", "boom"))

	router := newInspectionRouter(NewInspectionHandler(reg, nil, dir, 30, testLogger()))

	w := get(router, "/queue")
	require.Equal(t, http.StatusOK, w.Code)

	var resp QueueResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.Tasks, 1)
	assert.Equal(t, "b", resp.Tasks[0].ID)
}

func TestHistory_NewestFirstWithPaging(t *testing.T) {
	reg := registry.New(testLogger())
	dir := t.TempDir()

	// Three finished tasks whose output files landed at distinct times.
	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"old", "mid", "new"} {
		path := filepath.Join(dir, id+".png")
		require.NoError(t, os.WriteFile(path, []byte("png"), 0o644))
		mtime := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, os.Chtimes(path, mtime, mtime))

		addTask(t, reg, id, path)
		require.NoError(t, reg.MarkDone(id, "/result/"+id+".png"))
	}
	addTask(t, reg, "active", filepath.Join(dir, "active.png"))

	router := newInspectionRouter(NewInspectionHandler(reg, nil, dir, 30, testLogger()))

	w := get(router, "/history")
	require.Equal(t, http.StatusOK, w.Code)

	var resp HistoryResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 3, resp.Total)
	require.Len(t, resp.Tasks, 3)
	assert.Equal(t, "new", resp.Tasks[0].ID)
	assert.Equal(t, "mid", resp.Tasks[1].ID)
	assert.Equal(t, "old", resp.Tasks[2].ID)

	w = get(router, "/history?skip=1&limit=1")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 3, resp.Total)
	require.Len(t, resp.Tasks, 1)
	assert.Equal(t, "mid", resp.Tasks[0].ID)

	w = get(router, "/history?skip=99")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Empty(t, resp.Tasks)
}

func TestHistoryArchive(t *testing.T) {
	reg := registry.New(testLogger())
	dir := t.TempDir()

	archive := &fakeArchive{tasks: []domain.Task{
		{ID: "new", Status: domain.TaskStatusDone, ResultURL: "/result/new.png", OutputFile: "new.png"},
		{ID: "old", Status: domain.TaskStatusFailed, Detail: "boom", OutputFile: "old.png"},
	}}

	router := newInspectionRouter(NewInspectionHandler(reg, archive, dir, 30, testLogger()))

	w := get(router, "/history/archive")
	require.Equal(t, http.StatusOK, w.Code)

	var resp HistoryResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Total)
	require.Len(t, resp.Tasks, 2)
	assert.Equal(t, "new", resp.Tasks[0].ID)

	w = get(router, "/history/archive?skip=1&limit=1")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Len(t, resp.Tasks, 1)
	assert.Equal(t, "old", resp.Tasks[0].ID)
}

func TestHistoryArchive_NotConfigured(t *testing.T) {
	reg := registry.New(testLogger())
	router := newInspectionRouter(NewInspectionHandler(reg, nil, t.TempDir(), 30, testLogger()))

	w := get(router, "/history/archive")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
