package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTask(t *testing.T) {
	payload := json.RawMessage(`{"operation":"compute","input":42}`)

	task, err := NewTask(payload)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, task.ID)
	assert.Equal(t, TaskStatusPending, task.Status)
	assert.Equal(t, payload, task.Payload)
	assert.Nil(t, task.Result)
	assert.Nil(t, task.ErrorMessage)
	assert.Nil(t, task.CompletedAt)
	assert.Zero(t, task.AttemptCount)
	assert.False(t, task.CreatedAt.IsZero())
}

func TestNewTaskUniqueIDs(t *testing.T) {
	// Two submissions of the same payload are independent tasks
	payload := json.RawMessage(`{"input":1}`)

	first, err := NewTask(payload)
	require.NoError(t, err)
	second, err := NewTask(payload)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
}

func TestNewTaskRejectsInvalidJSON(t *testing.T) {
	_, err := NewTask(json.RawMessage(`{not json`))
	assert.ErrorIs(t, err, ErrInvalidTaskPayload)
}

func TestNewTaskAllowsEmptyPayload(t *testing.T) {
	task, err := NewTask(nil)
	require.NoError(t, err)
	assert.Equal(t, TaskStatusPending, task.Status)
}

func TestTaskValidateOutcomeInvariants(t *testing.T) {
	now := time.Now().UTC()
	result := int64(861)
	errMsg := "computation failed"

	tests := []struct {
		name    string
		mutate  func(*Task)
		wantErr error
	}{
		{
			name:   "valid pending",
			mutate: func(task *Task) {},
		},
		{
			name: "valid completed",
			mutate: func(task *Task) {
				task.Status = TaskStatusCompleted
				task.Result = &result
				task.CompletedAt = &now
			},
		},
		{
			name: "valid failed",
			mutate: func(task *Task) {
				task.Status = TaskStatusFailed
				task.ErrorMessage = &errMsg
				task.CompletedAt = &now
			},
		},
		{
			name: "completed without result",
			mutate: func(task *Task) {
				task.Status = TaskStatusCompleted
				task.CompletedAt = &now
			},
			wantErr: ErrInconsistentTaskRow,
		},
		{
			name: "completed with both outcomes",
			mutate: func(task *Task) {
				task.Status = TaskStatusCompleted
				task.Result = &result
				task.ErrorMessage = &errMsg
				task.CompletedAt = &now
			},
			wantErr: ErrInconsistentTaskRow,
		},
		{
			name: "failed without error message",
			mutate: func(task *Task) {
				task.Status = TaskStatusFailed
				task.CompletedAt = &now
			},
			wantErr: ErrInconsistentTaskRow,
		},
		{
			name: "pending with result",
			mutate: func(task *Task) {
				task.Result = &result
			},
			wantErr: ErrInconsistentTaskRow,
		},
		{
			name: "pending with completion time",
			mutate: func(task *Task) {
				task.CompletedAt = &now
			},
			wantErr: ErrInconsistentTaskRow,
		},
		{
			name: "missing ID",
			mutate: func(task *Task) {
				task.ID = uuid.Nil
			},
			wantErr: ErrEmptyTaskID,
		},
		{
			name: "invalid status",
			mutate: func(task *Task) {
				task.Status = TaskStatus("bogus")
			},
			wantErr: ErrInvalidTaskStatus,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			task := &Task{
				ID:        uuid.New(),
				Status:    TaskStatusPending,
				CreatedAt: now,
			}
			tc.mutate(task)

			err := task.Validate()
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTaskIsTerminal(t *testing.T) {
	task := &Task{ID: uuid.New(), Status: TaskStatusPending}
	assert.False(t, task.IsTerminal())

	task.Status = TaskStatusInProgress
	assert.False(t, task.IsTerminal())

	task.Status = TaskStatusCompleted
	assert.True(t, task.IsTerminal())

	task.Status = TaskStatusFailed
	assert.True(t, task.IsTerminal())
}

func TestIsValidTaskStatus(t *testing.T) {
	for _, status := range []TaskStatus{
		TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusFailed,
	} {
		assert.True(t, IsValidTaskStatus(status))
	}
	assert.False(t, IsValidTaskStatus(TaskStatus("processing")))
	assert.False(t, IsValidTaskStatus(TaskStatus("")))
}
