package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/grind-api/internal/domain"
	"github.com/phrazzld/grind-api/internal/store"
	"github.com/phrazzld/grind-api/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// failingQueue simulates a broker outage on the enqueue path.
type failingQueue struct{}

func (q *failingQueue) Enqueue(ctx context.Context, msg task.Message) error {
	return task.ErrQueueUnavailable
}

func (q *failingQueue) Close() error { return nil }

func newTestService(t *testing.T) (TaskService, *task.MockTaskStore, *task.MemoryQueue) {
	t.Helper()

	taskStore := task.NewMockTaskStore()
	queue := task.NewMemoryQueue(10, setupTestLogger())

	svc, err := NewTaskService(taskStore, queue, nil, setupTestLogger())
	require.NoError(t, err)

	return svc, taskStore, queue
}

func TestNewTaskServiceValidatesDependencies(t *testing.T) {
	queue := task.NewMemoryQueue(1, setupTestLogger())

	_, err := NewTaskService(nil, queue, nil, setupTestLogger())
	assert.Error(t, err)

	_, err = NewTaskService(task.NewMockTaskStore(), nil, nil, setupTestLogger())
	assert.Error(t, err)
}

func TestSubmitPersistsBeforeEnqueue(t *testing.T) {
	svc, taskStore, queue := newTestService(t)
	ctx := context.Background()

	submitted, err := svc.Submit(ctx, json.RawMessage(`{"operation":"compute","input":42}`))
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusPending, submitted.Status)

	// The record is resolvable the moment Submit returns
	stored, err := taskStore.GetByID(ctx, submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusPending, stored.Status)

	// And exactly one message references it
	msg, err := queue.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, submitted.ID, msg.TaskID)
}

func TestSubmitReturnsImmediatelyRegardlessOfWorkers(t *testing.T) {
	// No worker pool is running at all, and the queue would park any
	// consumer: Submit must still return promptly because it never
	// waits on the computation.
	svc, _, _ := newTestService(t)

	start := time.Now()
	_, err := svc.Submit(context.Background(), json.RawMessage(`{"operation":"compute","input":42}`))
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Less(t, elapsed, 50*time.Millisecond)
}

func TestSubmitTwiceCreatesTwoTasks(t *testing.T) {
	svc, taskStore, _ := newTestService(t)
	ctx := context.Background()
	payload := json.RawMessage(`{"input":1}`)

	first, err := svc.Submit(ctx, payload)
	require.NoError(t, err)
	second, err := svc.Submit(ctx, payload)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)

	pending, err := taskStore.ListByStatus(ctx, domain.TaskStatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestSubmitRejectsInvalidPayload(t *testing.T) {
	svc, _, queue := newTestService(t)

	_, err := svc.Submit(context.Background(), json.RawMessage(`{broken`))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidTaskPayload)

	// Nothing was enqueued
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = queue.Dequeue(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSubmitStoreFailureReturnsNoID(t *testing.T) {
	taskStore := task.NewMockTaskStore()
	taskStore.CreateErr = store.ErrStoreUnavailable
	queue := task.NewMemoryQueue(10, setupTestLogger())

	svc, err := NewTaskService(taskStore, queue, nil, setupTestLogger())
	require.NoError(t, err)

	submitted, err := svc.Submit(context.Background(), json.RawMessage(`{"input":1}`))
	assert.Nil(t, submitted)
	assert.ErrorIs(t, err, store.ErrStoreUnavailable)
}

func TestSubmitEnqueueFailureLeavesOrphanedPendingRecord(t *testing.T) {
	taskStore := task.NewMockTaskStore()

	svc, err := NewTaskService(taskStore, &failingQueue{}, nil, setupTestLogger())
	require.NoError(t, err)

	submitted, err := svc.Submit(context.Background(), json.RawMessage(`{"input":1}`))
	assert.Nil(t, submitted)
	assert.ErrorIs(t, err, task.ErrQueueUnavailable)

	// The pending row stays behind for an external sweeper; the core
	// does not roll it back or silently retry.
	pending, listErr := taskStore.ListByStatus(context.Background(), domain.TaskStatusPending)
	require.NoError(t, listErr)
	assert.Len(t, pending, 1)
}

func TestGetReturnsRecordVerbatim(t *testing.T) {
	svc, taskStore, _ := newTestService(t)
	ctx := context.Background()

	submitted, err := svc.Submit(ctx, json.RawMessage(`{"input":5}`))
	require.NoError(t, err)

	got, err := svc.Get(ctx, submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, submitted.ID, got.ID)
	assert.Equal(t, domain.TaskStatusPending, got.Status)
	assert.Nil(t, got.Result)
	assert.Nil(t, got.ErrorMessage)
	assert.Nil(t, got.CompletedAt)

	// After the worker finishes, Get reflects the terminal record
	require.NoError(t, taskStore.Complete(ctx, submitted.ID, 10))

	done, err := svc.Get(ctx, submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, done.Status)
	require.NotNil(t, done.Result)
	assert.Equal(t, int64(10), *done.Result)
	assert.NotNil(t, done.CompletedAt)
}

func TestGetTerminalRecordIsStable(t *testing.T) {
	svc, taskStore, _ := newTestService(t)
	ctx := context.Background()

	submitted, err := svc.Submit(ctx, json.RawMessage(`{"input":5}`))
	require.NoError(t, err)
	require.NoError(t, taskStore.Fail(ctx, submitted.ID, "computation failed"))

	first, err := svc.Get(ctx, submitted.ID)
	require.NoError(t, err)

	// Further terminal writes are rejected and the record never changes
	assert.Error(t, taskStore.Complete(ctx, submitted.ID, 99))

	second, err := svc.Get(ctx, submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, *first.ErrorMessage, *second.ErrorMessage)
	assert.Equal(t, first.CompletedAt.UnixNano(), second.CompletedAt.UnixNano())
}

func TestGetUnknownIDReturnsNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrTaskNotFound)
}
