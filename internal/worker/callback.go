package worker

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/zxia545/object-detection-analytic-image-gen/internal/domain"
)

// callbackPayload is the JSON body posted to a task's callback URL once it
// reaches a terminal state.
type callbackPayload struct {
	TaskID    string `json:"task_id"`
	Status    string `json:"status"`
	ResultURL string `json:"result_url,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

// Notifier delivers terminal-state callbacks. Delivery is best-effort:
// failures are logged and never retried.
type Notifier struct {
	client *http.Client
	logger *slog.Logger
}

// NewNotifier creates a Notifier with a bounded request timeout so a dead
// callback endpoint cannot pin a worker goroutine.
func NewNotifier(logger *slog.Logger) *Notifier {
	return &Notifier{
		client: &http.Client{Timeout: 15 * time.Second},
		logger: logger.With("component", "callback_notifier"),
	}
}

// Notify posts the task's terminal state to url.
func (n *Notifier) Notify(url string, task domain.Task) {
	payload := callbackPayload{
		TaskID:    task.ID,
		Status:    string(task.Status),
		ResultURL: task.ResultURL,
		Detail:    task.Detail,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		n.logger.Error("failed to encode callback payload",
			"task_id", task.ID,
			"error", err)
		return
	}

	resp, err := n.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		n.logger.Warn("callback delivery failed",
			"task_id", task.ID,
			"callback_url", url,
			"error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		n.logger.Warn("callback endpoint returned non-success status",
			"task_id", task.ID,
			"callback_url", url,
			"status", resp.StatusCode)
		return
	}

	n.logger.Info("callback delivered",
		"task_id", task.ID,
		"callback_url", url)
}
