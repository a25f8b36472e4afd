package task

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeExecutorSumBelowInput(t *testing.T) {
	executor := &ComputeExecutor{}

	tests := []struct {
		name    string
		payload string
		want    int64
	}{
		{name: "sum below 42", payload: `{"operation":"compute","input":42}`, want: 861},
		{name: "sum below 10", payload: `{"operation":"compute","input":10}`, want: 45},
		{name: "zero input", payload: `{"operation":"compute","input":0}`, want: 0},
		{name: "one input", payload: `{"operation":"compute","input":1}`, want: 0},
		{name: "empty payload defaults to zero", payload: ``, want: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result, err := executor.Execute(context.Background(), json.RawMessage(tc.payload))
			require.NoError(t, err)
			assert.Equal(t, tc.want, result)
		})
	}
}

func TestComputeExecutorRejectsNegativeInput(t *testing.T) {
	executor := &ComputeExecutor{}

	_, err := executor.Execute(context.Background(), json.RawMessage(`{"input":-5}`))
	assert.ErrorIs(t, err, ErrNegativeInput)
}

func TestComputeExecutorHonorsContextDuringDelay(t *testing.T) {
	executor := &ComputeExecutor{Delay: 10 * time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := executor.Execute(ctx, json.RawMessage(`{"input":42}`))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFailExecutorAlwaysFails(t *testing.T) {
	executor := &FailExecutor{}

	_, err := executor.Execute(context.Background(), json.RawMessage(`{"operation":"fail"}`))
	assert.Error(t, err)
}

func TestRegistryDispatch(t *testing.T) {
	registry := DefaultRegistry(0)

	result, err := registry.Execute(context.Background(), json.RawMessage(`{"operation":"compute","input":42}`))
	require.NoError(t, err)
	assert.Equal(t, int64(861), result)

	_, err = registry.Execute(context.Background(), json.RawMessage(`{"operation":"fail"}`))
	assert.Error(t, err)
}

func TestRegistryDefaultsToCompute(t *testing.T) {
	registry := DefaultRegistry(0)

	result, err := registry.Execute(context.Background(), json.RawMessage(`{"input":10}`))
	require.NoError(t, err)
	assert.Equal(t, int64(45), result)
}

func TestRegistryUnknownOperation(t *testing.T) {
	registry := DefaultRegistry(0)

	_, err := registry.Execute(context.Background(), json.RawMessage(`{"operation":"transmogrify"}`))
	assert.ErrorIs(t, err, ErrUnknownOperation)
}

func TestRegistryMalformedPayload(t *testing.T) {
	registry := DefaultRegistry(0)

	_, err := registry.Execute(context.Background(), json.RawMessage(`{broken`))
	assert.Error(t, err)
}

func TestRegistryCustomExecutor(t *testing.T) {
	registry := NewRegistry()
	registry.Register("answer", ExecutorFunc(
		func(ctx context.Context, payload json.RawMessage) (int64, error) {
			return 42, nil
		},
	))

	result, err := registry.Execute(context.Background(), json.RawMessage(`{"operation":"answer"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(42), result)
}
