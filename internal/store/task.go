package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/grind-api/internal/domain"
)

// TaskStore defines the persistence contract for task records. The
// store is the single source of truth read by both the worker pool
// (for retry bookkeeping) and the status query path.
//
// Implementations must make every write to a given record atomic: no
// reader may ever observe a partially updated record, and once a task
// reaches a terminal status no operation may mutate it again. A reader
// therefore never sees a task regress from a terminal state.
type TaskStore interface {
	// Create persists a new task record. The record must be visible to
	// GetByID as soon as Create returns.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves the current task record verbatim.
	// Returns ErrTaskNotFound if no record exists for the ID.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// MarkInProgress claims a pending task for execution by
	// transitioning it to in_progress. Returns ErrTaskTerminal if the
	// task already reached a terminal state (redelivery of a finished
	// task), ErrTaskClaimed if another worker holds it, and
	// ErrTaskNotFound if the record does not exist.
	MarkInProgress(ctx context.Context, id uuid.UUID) error

	// MarkPending resets a non-terminal task to pending. Used when a
	// task is re-enqueued for another attempt and when recovering
	// in_progress tasks orphaned by a crash.
	MarkPending(ctx context.Context, id uuid.UUID) error

	// RecordAttempt atomically increments the task's attempt count and
	// returns the new value. Attempt accounting is persisted so retry
	// decisions survive worker crashes.
	RecordAttempt(ctx context.Context, id uuid.UUID) (int, error)

	// Complete atomically writes the terminal completed state: status,
	// result, and completion timestamp in a single update. A no-op
	// returning ErrTaskTerminal if the task is already terminal.
	Complete(ctx context.Context, id uuid.UUID, result int64) error

	// Fail atomically writes the terminal failed state: status, error
	// message, and completion timestamp in a single update. A no-op
	// returning ErrTaskTerminal if the task is already terminal.
	Fail(ctx context.Context, id uuid.UUID, errorMessage string) error

	// ListByStatus retrieves all tasks with the given status, oldest
	// first. Used at startup to recover work that never finished.
	ListByStatus(ctx context.Context, status domain.TaskStatus) ([]*domain.Task, error)

	// WithTx returns a new TaskStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller.
	WithTx(tx *sql.Tx) TaskStore
}
