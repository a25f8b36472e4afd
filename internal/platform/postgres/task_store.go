package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/grind-api/internal/domain"
	"github.com/phrazzld/grind-api/internal/platform/logger"
	"github.com/phrazzld/grind-api/internal/store"
)

// PostgresTaskStore implements the store.TaskStore interface using PostgreSQL.
//
// Terminal-state immutability is enforced in SQL: every mutating
// statement carries a `status NOT IN ('completed', 'failed')` guard,
// so a redelivered or racing write against a finished task affects
// zero rows and surfaces as store.ErrTaskTerminal.
type PostgresTaskStore struct {
	db store.DBTX
}

// Compile-time check that PostgresTaskStore satisfies store.TaskStore.
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// NewPostgresTaskStore creates a new PostgresTaskStore.
func NewPostgresTaskStore(db store.DBTX) *PostgresTaskStore {
	return &PostgresTaskStore{
		db: db,
	}
}

// taskColumns is the column list shared by every SELECT against tasks.
const taskColumns = "id, status, payload, result, error_message, attempt_count, created_at, completed_at"

// Create persists a new task record.
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContext(ctx)

	if err := task.Validate(); err != nil {
		return fmt.Errorf("invalid task: %w", err)
	}

	query := `
		INSERT INTO tasks (id, status, payload, attempt_count, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	// An absent payload is stored as NULL; jsonb rejects empty input.
	var payload []byte
	if len(task.Payload) > 0 {
		payload = []byte(task.Payload)
	}

	_, err := s.db.ExecContext(ctx, query,
		task.ID,
		task.Status,
		payload,
		task.AttemptCount,
		task.CreatedAt.UTC(),
	)

	if err != nil {
		if IsUniqueViolation(err) {
			// Random 128-bit IDs colliding means something is badly
			// wrong upstream; surface it loudly.
			log.Error("task ID collision on insert",
				"task_id", task.ID,
				"error", err)
		} else {
			log.Error("failed to create task record",
				"task_id", task.ID,
				"error", err)
		}
		return fmt.Errorf("failed to create task record: %w", MapError(err))
	}

	return nil
}

// GetByID retrieves the current task record verbatim.
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	query := fmt.Sprintf("SELECT %s FROM tasks WHERE id = $1", taskColumns)

	row := s.db.QueryRowContext(ctx, query, id)

	task, err := scanTask(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", MapError(err))
	}

	return task, nil
}

// MarkInProgress claims a pending task for execution. The claim is a
// conditional update from pending, so of two workers holding duplicate
// deliveries exactly one wins.
func (s *PostgresTaskStore) MarkInProgress(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContext(ctx)

	query := `
		UPDATE tasks
		SET status = 'in_progress'
		WHERE id = $1 AND status = 'pending'
	`

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		log.Error("failed to claim task",
			"task_id", id,
			"error", err)
		return fmt.Errorf("failed to claim task: %w", MapError(err))
	}

	return s.checkGuardedUpdate(ctx, result, id)
}

// MarkPending resets a non-terminal task to pending for another attempt.
func (s *PostgresTaskStore) MarkPending(ctx context.Context, id uuid.UUID) error {
	return s.setStatus(ctx, id, domain.TaskStatusPending)
}

// setStatus updates the status of a non-terminal task. Affecting zero
// rows distinguishes a missing record from one that already finished.
func (s *PostgresTaskStore) setStatus(ctx context.Context, id uuid.UUID, status domain.TaskStatus) error {
	log := logger.FromContext(ctx)

	query := `
		UPDATE tasks
		SET status = $1
		WHERE id = $2 AND status NOT IN ('completed', 'failed')
	`

	result, err := s.db.ExecContext(ctx, query, status, id)
	if err != nil {
		log.Error("failed to update task status",
			"task_id", id,
			"status", status,
			"error", err)
		return fmt.Errorf("failed to update task status: %w", MapError(err))
	}

	return s.checkGuardedUpdate(ctx, result, id)
}

// RecordAttempt atomically increments the task's attempt count and
// returns the new value.
func (s *PostgresTaskStore) RecordAttempt(ctx context.Context, id uuid.UUID) (int, error) {
	log := logger.FromContext(ctx)

	query := `
		UPDATE tasks
		SET attempt_count = attempt_count + 1
		WHERE id = $1 AND status NOT IN ('completed', 'failed')
		RETURNING attempt_count
	`

	var attempts int
	err := s.db.QueryRowContext(ctx, query, id).Scan(&attempts)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, s.classifyZeroRows(ctx, id)
		}
		log.Error("failed to record task attempt",
			"task_id", id,
			"error", err)
		return 0, fmt.Errorf("failed to record task attempt: %w", MapError(err))
	}

	return attempts, nil
}

// Complete atomically writes the terminal completed state. Status,
// result, and completion timestamp land in a single update so no
// reader ever observes a partially finished record.
func (s *PostgresTaskStore) Complete(ctx context.Context, id uuid.UUID, result int64) error {
	log := logger.FromContext(ctx)

	query := `
		UPDATE tasks
		SET status = 'completed', result = $1, completed_at = $2
		WHERE id = $3 AND status NOT IN ('completed', 'failed')
	`

	res, err := s.db.ExecContext(ctx, query, result, time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to complete task",
			"task_id", id,
			"error", err)
		return fmt.Errorf("failed to complete task: %w", MapError(err))
	}

	return s.checkGuardedUpdate(ctx, res, id)
}

// Fail atomically writes the terminal failed state.
func (s *PostgresTaskStore) Fail(ctx context.Context, id uuid.UUID, errorMessage string) error {
	log := logger.FromContext(ctx)

	query := `
		UPDATE tasks
		SET status = 'failed', error_message = $1, completed_at = $2
		WHERE id = $3 AND status NOT IN ('completed', 'failed')
	`

	res, err := s.db.ExecContext(ctx, query, errorMessage, time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to mark task failed",
			"task_id", id,
			"error", err)
		return fmt.Errorf("failed to mark task failed: %w", MapError(err))
	}

	return s.checkGuardedUpdate(ctx, res, id)
}

// ListByStatus retrieves all tasks with the given status, oldest first.
func (s *PostgresTaskStore) ListByStatus(ctx context.Context, status domain.TaskStatus) ([]*domain.Task, error) {
	log := logger.FromContext(ctx)

	query := fmt.Sprintf(
		"SELECT %s FROM tasks WHERE status = $1 ORDER BY created_at ASC",
		taskColumns,
	)

	rows, err := s.db.QueryContext(ctx, query, status)
	if err != nil {
		log.Error("failed to query tasks by status",
			"status", status,
			"error", err)
		return nil, fmt.Errorf("failed to query tasks by status: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task rows: %w", MapError(err))
	}

	return tasks, nil
}

// WithTx returns a new TaskStore instance that uses the provided transaction.
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{
		db: tx,
	}
}

// checkGuardedUpdate interprets a guarded UPDATE's affected row count:
// one row means success, zero rows means the record either does not
// exist or is already terminal.
func (s *PostgresTaskStore) checkGuardedUpdate(ctx context.Context, result sql.Result, id uuid.UUID) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return s.classifyZeroRows(ctx, id)
	}

	return nil
}

// classifyZeroRows distinguishes why a guarded update matched nothing:
// the record is missing, already terminal, or held by another worker.
func (s *PostgresTaskStore) classifyZeroRows(ctx context.Context, id uuid.UUID) error {
	var status domain.TaskStatus
	err := s.db.QueryRowContext(ctx, "SELECT status FROM tasks WHERE id = $1", id).Scan(&status)
	if err != nil {
		if err == sql.ErrNoRows {
			return store.ErrTaskNotFound
		}
		return fmt.Errorf("failed to classify guarded update: %w", MapError(err))
	}

	switch status {
	case domain.TaskStatusCompleted, domain.TaskStatusFailed:
		return fmt.Errorf("%w: status=%s", store.ErrTaskTerminal, status)
	case domain.TaskStatusInProgress:
		return store.ErrTaskClaimed
	default:
		return fmt.Errorf("%w: task %s in status %s", store.ErrUpdateFailed, id, status)
	}
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanTask maps one tasks row onto a domain.Task.
func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task         domain.Task
		payload      []byte
		result       sql.NullInt64
		errorMessage sql.NullString
		completedAt  sql.NullTime
	)

	err := row.Scan(
		&task.ID,
		&task.Status,
		&payload,
		&result,
		&errorMessage,
		&task.AttemptCount,
		&task.CreatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	task.Payload = payload
	if result.Valid {
		task.Result = &result.Int64
	}
	if errorMessage.Valid {
		task.ErrorMessage = &errorMessage.String
	}
	if completedAt.Valid {
		t := completedAt.Time
		task.CompletedAt = &t
	}

	return &task, nil
}
