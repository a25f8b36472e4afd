package task

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/grind-api/internal/domain"
	"github.com/phrazzld/grind-api/internal/store"
)

// MockTaskStore implements the store.TaskStore interface in memory for
// testing. It honors the same atomicity and terminal-immutability
// semantics as the PostgreSQL implementation: all mutations happen
// under one lock, and a task that reached a terminal state is never
// changed again.
type MockTaskStore struct {
	mutex sync.RWMutex
	tasks map[uuid.UUID]*domain.Task

	// CreateErr, when set, is returned by Create to simulate store
	// failures on the submission path.
	CreateErr error

	// GetErr, when set, is returned by GetByID.
	GetErr error
}

var _ store.TaskStore = (*MockTaskStore)(nil)

// NewMockTaskStore creates an empty MockTaskStore.
func NewMockTaskStore() *MockTaskStore {
	return &MockTaskStore{
		tasks: make(map[uuid.UUID]*domain.Task),
	}
}

// Create persists a copy of the task record.
func (s *MockTaskStore) Create(ctx context.Context, t *domain.Task) error {
	if s.CreateErr != nil {
		return s.CreateErr
	}
	if err := t.Validate(); err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	cp := *t
	s.tasks[t.ID] = &cp
	return nil
}

// GetByID returns a copy of the current record.
func (s *MockTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	if s.GetErr != nil {
		return nil, s.GetErr
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	cp := *t
	return &cp, nil
}

// MarkInProgress claims a pending task.
func (s *MockTaskStore) MarkInProgress(ctx context.Context, id uuid.UUID) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return store.ErrTaskNotFound
	}
	if t.IsTerminal() {
		return fmt.Errorf("%w: status=%s", store.ErrTaskTerminal, t.Status)
	}
	if t.Status == domain.TaskStatusInProgress {
		return store.ErrTaskClaimed
	}

	t.Status = domain.TaskStatusInProgress
	return nil
}

// MarkPending resets a non-terminal task to pending.
func (s *MockTaskStore) MarkPending(ctx context.Context, id uuid.UUID) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return store.ErrTaskNotFound
	}
	if t.IsTerminal() {
		return fmt.Errorf("%w: status=%s", store.ErrTaskTerminal, t.Status)
	}

	t.Status = domain.TaskStatusPending
	return nil
}

// RecordAttempt increments and returns the attempt count.
func (s *MockTaskStore) RecordAttempt(ctx context.Context, id uuid.UUID) (int, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return 0, store.ErrTaskNotFound
	}
	if t.IsTerminal() {
		return 0, fmt.Errorf("%w: status=%s", store.ErrTaskTerminal, t.Status)
	}

	t.AttemptCount++
	return t.AttemptCount, nil
}

// Complete writes the terminal completed state in one step.
func (s *MockTaskStore) Complete(ctx context.Context, id uuid.UUID, result int64) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return store.ErrTaskNotFound
	}
	if t.IsTerminal() {
		return fmt.Errorf("%w: status=%s", store.ErrTaskTerminal, t.Status)
	}

	now := time.Now().UTC()
	t.Status = domain.TaskStatusCompleted
	t.Result = &result
	t.CompletedAt = &now
	return nil
}

// Fail writes the terminal failed state in one step.
func (s *MockTaskStore) Fail(ctx context.Context, id uuid.UUID, errorMessage string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return store.ErrTaskNotFound
	}
	if t.IsTerminal() {
		return fmt.Errorf("%w: status=%s", store.ErrTaskTerminal, t.Status)
	}

	now := time.Now().UTC()
	t.Status = domain.TaskStatusFailed
	t.ErrorMessage = &errorMessage
	t.CompletedAt = &now
	return nil
}

// ListByStatus returns copies of all tasks with the given status,
// oldest first, matching the SQL implementation's ordering.
func (s *MockTaskStore) ListByStatus(ctx context.Context, status domain.TaskStatus) ([]*domain.Task, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var tasks []*domain.Task
	for _, t := range s.tasks {
		if t.Status == status {
			cp := *t
			tasks = append(tasks, &cp)
		}
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks, nil
}

// WithTx returns the store itself; the mock has no transactions.
func (s *MockTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return s
}
