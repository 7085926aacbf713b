package registry

import (
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/zxia545/object-detection-analytic-image-gen/internal/domain"
)

// Common errors returned by the Registry
var (
	ErrTaskNotFound  = errors.New("task not found")
	ErrDuplicateTask = errors.New("task with this ID already exists")
)

// Registry is the mutex-guarded map of all submitted tasks. The single
// mutex is the only concurrency-correctness guarantee offered: no two
// mutations interleave.
type Registry struct {
	mu     sync.Mutex
	tasks  map[string]*domain.Task
	logger *slog.Logger
}

// New creates an empty Registry.
func New(logger *slog.Logger) *Registry {
	return &Registry{
		tasks:  make(map[string]*domain.Task),
		logger: logger.With("component", "task_registry"),
	}
}

// Create registers a new task. Returns ErrDuplicateTask if a task with the
// same ID was already submitted.
func (r *Registry) Create(task *domain.Task) error {
	if err := task.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tasks[task.ID]; exists {
		return ErrDuplicateTask
	}

	r.tasks[task.ID] = task
	r.logger.Debug("task registered",
		"task_id", task.ID,
		"registry_size", len(r.tasks))
	return nil
}

// Get returns a copy of the task with the given ID, or ErrTaskNotFound.
// A copy is returned so callers can read fields without holding the lock.
func (r *Registry) Get(id string) (domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok {
		return domain.Task{}, ErrTaskNotFound
	}
	return *task, nil
}

// Exists reports whether a task with the given ID has been submitted.
func (r *Registry) Exists(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.tasks[id]
	return ok
}

// SetStatus transitions the task to the given status.
func (r *Registry) SetStatus(id string, status domain.TaskStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok {
		return ErrTaskNotFound
	}
	return task.UpdateStatus(status)
}

// MarkDone transitions the task to done and records its result URL.
func (r *Registry) MarkDone(id, resultURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok {
		return ErrTaskNotFound
	}
	if err := task.UpdateStatus(domain.TaskStatusDone); err != nil {
		return err
	}
	task.ResultURL = resultURL
	return nil
}

// MarkFailed transitions the task to failed and records the error detail.
// Only the error's string representation is kept; there is no structured
// error taxonomy.
func (r *Registry) MarkFailed(id, detail string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok {
		return ErrTaskNotFound
	}
	if err := task.UpdateStatus(domain.TaskStatusFailed); err != nil {
		return err
	}
	task.Detail = detail
	return nil
}

// Active returns copies of all pending or running tasks, oldest first.
func (r *Registry) Active() []domain.Task {
	return r.snapshot(func(t *domain.Task) bool { return !t.Terminal() })
}

// Finished returns copies of all done or failed tasks, oldest first.
// Callers sort for presentation.
func (r *Registry) Finished() []domain.Task {
	return r.snapshot(func(t *domain.Task) bool { return t.Terminal() })
}

// ActiveCount returns the number of pending or running tasks.
func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, t := range r.tasks {
		if !t.Terminal() {
			n++
		}
	}
	return n
}

// snapshot copies all tasks matching the filter under the lock.
func (r *Registry) snapshot(keep func(*domain.Task) bool) []domain.Task {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		if keep(t) {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
