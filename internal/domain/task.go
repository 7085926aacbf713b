package domain

import (
	"errors"
	"time"
)

// TaskStatus represents the processing state of a generation task
type TaskStatus string

// Possible task status values. Transitions are one-directional:
// pending -> running -> done or failed. There is no retry state.
const (
	TaskStatusPending TaskStatus = "pending"
	TaskStatusRunning TaskStatus = "running"
	TaskStatusDone    TaskStatus = "done"
	TaskStatusFailed  TaskStatus = "failed"
)

// Common validation errors for Task
var (
	ErrEmptyTaskID       = errors.New("task ID cannot be empty")
	ErrEmptyOutputFile   = errors.New("task output file cannot be empty")
	ErrInvalidTaskStatus = errors.New("invalid task status")
	ErrInvalidTransition = errors.New("invalid task status transition")
)

// Task represents one submitted generation job and its mutable status
// record. A task is created on submission, mutated in place by the worker,
// and kept in the registry for the process lifetime.
type Task struct {
	ID          string     `json:"task_id"`
	Status      TaskStatus `json:"status"`
	ResultURL   string     `json:"result_url,omitempty"`
	Detail      string     `json:"detail,omitempty"`
	CallbackURL string     `json:"-"`
	OutputFile  string     `json:"output_file"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewTask creates a new pending Task with the given ID and output file path.
// Returns an error if validation fails.
func NewTask(id, outputFile string) (*Task, error) {
	task := &Task{
		ID:         id,
		Status:     TaskStatusPending,
		OutputFile: outputFile,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
// Returns an error if any field fails validation.
func (t *Task) Validate() error {
	if t.ID == "" {
		return ErrEmptyTaskID
	}

	if t.OutputFile == "" {
		return ErrEmptyOutputFile
	}

	if !isValidTaskStatus(t.Status) {
		return ErrInvalidTaskStatus
	}

	return nil
}

// Terminal reports whether the task has reached a final state.
func (t *Task) Terminal() bool {
	return t.Status == TaskStatusDone || t.Status == TaskStatusFailed
}

// UpdateStatus moves the task to a new status and bumps UpdatedAt.
// Transitions out of a terminal state are rejected.
func (t *Task) UpdateStatus(status TaskStatus) error {
	if !isValidTaskStatus(status) {
		return ErrInvalidTaskStatus
	}

	if t.Terminal() {
		return ErrInvalidTransition
	}

	t.Status = status
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// isValidTaskStatus checks if the given status is a valid TaskStatus.
func isValidTaskStatus(status TaskStatus) bool {
	switch status {
	case TaskStatusPending, TaskStatusRunning, TaskStatusDone, TaskStatusFailed:
		return true
	default:
		return false
	}
}
