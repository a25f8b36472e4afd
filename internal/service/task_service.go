package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/grind-api/internal/domain"
	"github.com/phrazzld/grind-api/internal/store"
	"github.com/phrazzld/grind-api/internal/task"
)

// TaskService exposes the submission and status-query operations.
type TaskService interface {
	// Submit accepts a unit of work, persists an initial pending record,
	// enqueues a reference to it, and returns the new task immediately.
	// It never waits on the computation itself. Calling Submit twice
	// with the same payload creates two independent tasks.
	Submit(ctx context.Context, payload json.RawMessage) (*domain.Task, error)

	// Get returns the current record for the given task ID verbatim,
	// or ErrTaskNotFound. It never blocks on worker progress and never
	// mutates anything.
	Get(ctx context.Context, id uuid.UUID) (*domain.Task, error)
}

// Common sentinel errors for TaskService.
var (
	// ErrTaskNotFound indicates that the task does not exist.
	ErrTaskNotFound = errors.New("task not found")
)

// TaskServiceError wraps errors from the task service with context.
type TaskServiceError struct {
	// Operation is the operation that failed (e.g., "submit_task").
	Operation string
	// Message is a human-readable description of the error.
	Message string
	// Err is the underlying error that caused the failure.
	Err error
}

// Error implements the error interface for TaskServiceError.
func (e *TaskServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("task service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("task service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *TaskServiceError) Unwrap() error {
	return e.Err
}

// NewTaskServiceError creates a new TaskServiceError.
// It returns known sentinel errors directly without wrapping.
func NewTaskServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrTaskNotFound) || errors.Is(err, store.ErrTaskNotFound) {
		return ErrTaskNotFound
	}

	return &TaskServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// taskServiceImpl implements the TaskService interface.
type taskServiceImpl struct {
	taskStore store.TaskStore
	queue     task.QueueWriter
	db        *sql.DB
	logger    *slog.Logger
}

// NewTaskService creates a new TaskService. db may be nil when the
// store manages its own atomicity (in-memory fakes in tests); when
// present, the initial record is persisted inside a transaction.
// Returns an error if any required dependency is nil.
func NewTaskService(
	taskStore store.TaskStore,
	queue task.QueueWriter,
	db *sql.DB,
	logger *slog.Logger,
) (TaskService, error) {
	if taskStore == nil {
		return nil, &TaskServiceError{
			Operation: "create_service",
			Message:   "taskStore cannot be nil",
		}
	}
	if queue == nil {
		return nil, &TaskServiceError{
			Operation: "create_service",
			Message:   "queue cannot be nil",
		}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &taskServiceImpl{
		taskStore: taskStore,
		queue:     queue,
		db:        db,
		logger:    logger.With("component", "task_service"),
	}, nil
}

// Submit creates the task record and then enqueues a reference to it,
// in that order: persistence must complete before enqueue so no worker
// can dequeue a task the store cannot yet resolve. If the enqueue
// fails after the record was written, the error is surfaced and the
// orphaned pending row is left for an external sweeper; the core never
// silently retries it.
func (s *taskServiceImpl) Submit(ctx context.Context, payload json.RawMessage) (*domain.Task, error) {
	newTask, err := domain.NewTask(payload)
	if err != nil {
		s.logger.Error("failed to create task object", "error", err)
		return nil, NewTaskServiceError("submit_task", "failed to create task object", err)
	}

	if err := s.createRecord(ctx, newTask); err != nil {
		s.logger.Error("failed to persist task record",
			"error", err,
			"task_id", newTask.ID)
		return nil, NewTaskServiceError("submit_task", "failed to persist task record", err)
	}

	msg := task.Message{TaskID: newTask.ID, Payload: newTask.Payload}
	if err := s.queue.Enqueue(ctx, msg); err != nil {
		s.logger.Error("failed to enqueue task after persisting record",
			"error", err,
			"task_id", newTask.ID)
		return nil, NewTaskServiceError("submit_task", "failed to enqueue task", err)
	}

	s.logger.Info("task submitted", "task_id", newTask.ID)
	return newTask, nil
}

// createRecord persists the initial pending row, transactionally when
// a database handle is available.
func (s *taskServiceImpl) createRecord(ctx context.Context, t *domain.Task) error {
	if s.db == nil {
		return s.taskStore.Create(ctx, t)
	}

	return store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.taskStore.WithTx(tx).Create(ctx, t)
	})
}

// Get performs one lookup against the store and returns the record as
// stored, including partial state while pending or in progress.
func (s *taskServiceImpl) Get(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	t, err := s.taskStore.GetByID(ctx, id)
	if err != nil {
		if store.IsNotFoundError(err) {
			// An unknown identifier is a normal outcome, not an error
			// condition worth logging.
			return nil, ErrTaskNotFound
		}
		s.logger.Error("failed to read task record",
			"error", err,
			"task_id", id)
		return nil, NewTaskServiceError("get_task", "failed to read task record", err)
	}

	return t, nil
}
