package task

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/phrazzld/grind-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockTaskStoreListByStatusOldestFirst(t *testing.T) {
	taskStore := NewMockTaskStore()
	ctx := context.Background()

	base := time.Now().UTC()
	var ordered []*domain.Task
	for i := 0; i < 5; i++ {
		task, err := domain.NewTask(json.RawMessage(`{"input":1}`))
		require.NoError(t, err)
		// Spread creation times out of insertion order
		task.CreatedAt = base.Add(time.Duration((i*3)%5) * time.Second)
		require.NoError(t, taskStore.Create(ctx, task))
		ordered = append(ordered, task)
	}

	listed, err := taskStore.ListByStatus(ctx, domain.TaskStatusPending)
	require.NoError(t, err)
	require.Len(t, listed, 5)

	for i := 1; i < len(listed); i++ {
		assert.False(t, listed[i].CreatedAt.Before(listed[i-1].CreatedAt),
			"tasks not ordered oldest first at index %d", i)
	}
	assert.NotEqual(t, ordered[1].CreatedAt, listed[1].CreatedAt,
		"insertion order should not survive when creation times differ")
}
