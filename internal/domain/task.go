package domain

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the processing state of a task
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Common validation errors for Task
var (
	ErrEmptyTaskID         = errors.New("task ID cannot be empty")
	ErrInvalidTaskStatus   = errors.New("invalid task status")
	ErrInvalidTaskPayload  = errors.New("task payload must be valid JSON")
	ErrTaskAlreadyTerminal = errors.New("task is already in a terminal state")
	ErrInconsistentTaskRow = errors.New("task record violates status/outcome invariants")
)

// Task represents one unit of submitted work tracked through its
// lifecycle. The payload is opaque to the engine: it is stored and
// handed to the executor verbatim, never interpreted here.
//
// Exactly one of Result and ErrorMessage is set once the task reaches
// a terminal status; both are nil before that. CompletedAt is set
// exactly once, when the task becomes terminal.
type Task struct {
	ID           uuid.UUID       `json:"id"`
	Status       TaskStatus      `json:"status"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	Result       *int64          `json:"result"`
	ErrorMessage *string         `json:"error_message"`
	AttemptCount int             `json:"-"`
	CreatedAt    time.Time       `json:"created_at"`
	CompletedAt  *time.Time      `json:"completed_at"`
}

// NewTask creates a new pending Task with the given payload.
// It generates a new UUID for the task ID and sets the creation
// timestamp. Returns an error if validation fails.
func NewTask(payload json.RawMessage) (*Task, error) {
	task := &Task{
		ID:        uuid.New(),
		Status:    TaskStatusPending,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
// Returns an error if any field fails validation.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTaskID
	}

	if !IsValidTaskStatus(t.Status) {
		return ErrInvalidTaskStatus
	}

	if len(t.Payload) > 0 && !json.Valid(t.Payload) {
		return ErrInvalidTaskPayload
	}

	return t.validateOutcome()
}

// validateOutcome enforces the terminal-state invariants: completed
// tasks carry a result and no error, failed tasks carry an error and
// no result, non-terminal tasks carry neither and no completion time.
func (t *Task) validateOutcome() error {
	switch t.Status {
	case TaskStatusCompleted:
		if t.Result == nil || t.ErrorMessage != nil || t.CompletedAt == nil {
			return ErrInconsistentTaskRow
		}
	case TaskStatusFailed:
		if t.ErrorMessage == nil || t.Result != nil || t.CompletedAt == nil {
			return ErrInconsistentTaskRow
		}
	default:
		if t.Result != nil || t.ErrorMessage != nil || t.CompletedAt != nil {
			return ErrInconsistentTaskRow
		}
	}
	return nil
}

// IsTerminal reports whether the task has reached a terminal status.
// Terminal tasks are never mutated again.
func (t *Task) IsTerminal() bool {
	return t.Status == TaskStatusCompleted || t.Status == TaskStatusFailed
}

// IsValidTaskStatus checks if the given status is a valid TaskStatus.
func IsValidTaskStatus(status TaskStatus) bool {
	switch status {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusFailed:
		return true
	default:
		return false
	}
}
