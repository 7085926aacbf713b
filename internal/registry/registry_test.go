package registry

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zxia545/object-detection-analytic-image-gen/internal/domain"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

func newTestTask(t *testing.T, id string) *domain.Task {
	t.Helper()
	task, err := domain.NewTask(id, "/data/out/"+id+".png")
	require.NoError(t, err)
	return task
}

func TestCreateAndGet(t *testing.T) {
	reg := New(setupTestLogger())

	task := newTestTask(t, "task-1")
	require.NoError(t, reg.Create(task))

	got, err := reg.Get("task-1")
	require.NoError(t, err)
	assert.Equal(t, "task-1", got.ID)
	assert.Equal(t, domain.TaskStatusPending, got.Status)

	_, err = reg.Get("task-2")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestCreate_Duplicate(t *testing.T) {
	reg := New(setupTestLogger())

	require.NoError(t, reg.Create(newTestTask(t, "task-1")))
	err := reg.Create(newTestTask(t, "task-1"))
	assert.ErrorIs(t, err, ErrDuplicateTask)
}

func TestLifecycleMutations(t *testing.T) {
	reg := New(setupTestLogger())
	require.NoError(t, reg.Create(newTestTask(t, "task-1")))

	require.NoError(t, reg.SetStatus("task-1", domain.TaskStatusRunning))
	got, err := reg.Get("task-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusRunning, got.Status)

	require.NoError(t, reg.MarkDone("task-1", "/result/task-1.png"))
	got, err = reg.Get("task-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusDone, got.Status)
	assert.Equal(t, "/result/task-1.png", got.ResultURL)

	// Terminal tasks reject further transitions
	err = reg.SetStatus("task-1", domain.TaskStatusRunning)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestMarkFailed(t *testing.T) {
	reg := New(setupTestLogger())
	require.NoError(t, reg.Create(newTestTask(t, "task-1")))

	require.NoError(t, reg.MarkFailed("task-1", "inference raised: CUDA out of memory"))
	got, err := reg.Get("task-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusFailed, got.Status)
	assert.NotEmpty(t, got.Detail)
}

func TestSnapshots(t *testing.T) {
	reg := New(setupTestLogger())

	for i := 0; i < 5; i++ {
		require.NoError(t, reg.Create(newTestTask(t, fmt.Sprintf("task-%d", i))))
	}
	require.NoError(t, reg.MarkDone("task-0", "/result/task-0.png"))
	require.NoError(t, reg.MarkFailed("task-1", "boom"))

	active := reg.Active()
	assert.Len(t, active, 3)
	for _, task := range active {
		assert.False(t, task.Terminal())
	}

	finished := reg.Finished()
	assert.Len(t, finished, 2)

	assert.Equal(t, 3, reg.ActiveCount())
}

func TestConcurrentMutations(t *testing.T) {
	reg := New(setupTestLogger())

	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("task-%d", i)
			task, err := domain.NewTask(id, "/data/out/"+id+".png")
			assert.NoError(t, err)
			assert.NoError(t, reg.Create(task))
			assert.NoError(t, reg.SetStatus(id, domain.TaskStatusRunning))
			assert.NoError(t, reg.MarkDone(id, "/result/"+id+".png"))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, reg.ActiveCount())
	assert.Len(t, reg.Finished(), n)
}
