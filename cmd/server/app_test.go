package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zxia545/object-detection-analytic-image-gen/internal/config"
	"github.com/zxia545/object-detection-analytic-image-gen/internal/platform/logger"
)

// TestApplication_GenerateCaseRoundTrip wires the full application against
// a fake diffusion sidecar and drives one case from submission to a
// downloadable result.
func TestApplication_GenerateCaseRoundTrip(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\nfake")
	sidecar := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}))
	defer sidecar.Close()

	outputDir := t.TempDir()
	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:            6006,
			LogLevel:        "debug",
			HistoryPageSize: 30,
		},
		Output: config.OutputConfig{
			Dir:       outputDir,
			MinFreeGB: 0,
		},
		Pipeline: config.PipelineConfig{
			Backend:   "remote",
			RemoteURL: sidecar.URL,
		},
	}

	appLogger, err := logger.Setup(cfg.Server)
	require.NoError(t, err)

	app, err := newApplication(cfg, appLogger, prometheus.NewRegistry())
	require.NoError(t, err)
	router := app.setupRouter()

	// Submit a case
	body, err := json.Marshal(map[string]interface{}{
		"test_case_id": "case_0001",
		"prompt":       "warehouse loading bay at night",
		"seed":         3,
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/generate_case", bytes.NewReader(body)))
	require.Equal(t, http.StatusAccepted, w.Code)

	// Wait until the task reports done
	require.Eventually(t, func() bool {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status/case_0001", nil))
		if w.Code != http.StatusOK {
			return false
		}
		var status struct {
			Status    string `json:"status"`
			ResultURL string `json:"result_url"`
		}
		if err := json.NewDecoder(w.Body).Decode(&status); err != nil {
			return false
		}
		return status.Status == "done" && status.ResultURL == "/result/case_0001.png"
	}, 5*time.Second, 20*time.Millisecond)

	// The PNG landed in the output dir and is served back
	assert.FileExists(t, filepath.Join(outputDir, "case_0001.png"))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/result/case_0001.png", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, png, w.Body.Bytes())

	// Resubmission of the same case is rejected
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/generate_case", bytes.NewReader(body)))
	assert.Equal(t, http.StatusConflict, w.Code)

	// History shows the finished case
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/history", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var history struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&history))
	assert.Equal(t, 1, history.Total)
}

// TestNewApplication_IndependentInstances builds two applications in one
// process; each registers its metrics on its own registry, so neither
// construction panics on duplicate registration.
func TestNewApplication_IndependentInstances(t *testing.T) {
	for i := 0; i < 2; i++ {
		cfg := &config.Config{
			Server: config.ServerConfig{
				Port:            6006,
				LogLevel:        "error",
				HistoryPageSize: 30,
			},
			Output: config.OutputConfig{
				Dir: t.TempDir(),
			},
			Pipeline: config.PipelineConfig{
				Backend:   "remote",
				RemoteURL: "http://127.0.0.1:8000",
			},
		}

		appLogger, err := logger.Setup(cfg.Server)
		require.NoError(t, err)

		app, err := newApplication(cfg, appLogger, prometheus.NewRegistry())
		require.NoError(t, err)
		require.NotNil(t, app.executor)
	}
}
