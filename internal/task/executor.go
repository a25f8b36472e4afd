package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Operation names understood by the default registry.
const (
	OperationCompute = "compute"
	OperationFail    = "fail"
)

// Common executor errors.
var (
	ErrUnknownOperation = errors.New("unknown operation")
	ErrNegativeInput    = errors.New("input must be non-negative")
)

// Executor is the opaque computation a worker runs against a task's
// payload: a possibly-failing function from payload to an integer
// result. Implementations may take an unbounded amount of wall-clock
// time but must honor context cancellation.
type Executor interface {
	Execute(ctx context.Context, payload json.RawMessage) (int64, error)
}

// ExecutorFunc adapts a plain function to the Executor interface.
type ExecutorFunc func(ctx context.Context, payload json.RawMessage) (int64, error)

// Execute runs the function.
func (f ExecutorFunc) Execute(ctx context.Context, payload json.RawMessage) (int64, error) {
	return f(ctx, payload)
}

// payloadEnvelope is the conventional shape of a task payload. The
// engine itself never requires it; only the registry peeks at the
// operation field to dispatch, and individual executors interpret the
// rest.
type payloadEnvelope struct {
	Operation string `json:"operation"`
	Input     int64  `json:"input"`
}

// Registry dispatches payloads to named executors, letting the worker
// pool be written once and parameterized over arbitrary task kinds.
type Registry struct {
	executors map[string]Executor
}

var _ Executor = (*Registry)(nil)

// NewRegistry creates an empty executor registry.
func NewRegistry() *Registry {
	return &Registry{
		executors: make(map[string]Executor),
	}
}

// Register binds an operation name to an executor. Re-registering a
// name replaces the previous binding.
func (r *Registry) Register(operation string, executor Executor) {
	r.executors[operation] = executor
}

// Execute parses the payload envelope and delegates to the executor
// registered for its operation. A missing operation field dispatches
// to OperationCompute. Unknown operations fail like any other
// computation failure and are subject to the retry policy.
func (r *Registry) Execute(ctx context.Context, payload json.RawMessage) (int64, error) {
	operation := OperationCompute
	if len(payload) > 0 {
		var env payloadEnvelope
		if err := json.Unmarshal(payload, &env); err != nil {
			return 0, fmt.Errorf("failed to parse task payload: %w", err)
		}
		if env.Operation != "" {
			operation = env.Operation
		}
	}

	executor, ok := r.executors[operation]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownOperation, operation)
	}

	return executor.Execute(ctx, payload)
}

// ComputeExecutor is the built-in heavy computation: the sum of all
// integers below the payload's input value. The optional delay
// simulates real processing time so the asynchronous behavior of the
// pipeline is observable end to end.
type ComputeExecutor struct {
	// Delay is slept before computing. Zero disables the delay.
	Delay time.Duration
}

var _ Executor = (*ComputeExecutor)(nil)

// Execute computes the sum of the integers in [0, input).
func (e *ComputeExecutor) Execute(ctx context.Context, payload json.RawMessage) (int64, error) {
	var env payloadEnvelope
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &env); err != nil {
			return 0, fmt.Errorf("failed to parse compute payload: %w", err)
		}
	}

	if env.Input < 0 {
		return 0, fmt.Errorf("%w: got %d", ErrNegativeInput, env.Input)
	}

	if e.Delay > 0 {
		select {
		case <-time.After(e.Delay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}

	// Sum of 0..n-1 in closed form.
	n := env.Input
	return n * (n - 1) / 2, nil
}

// FailExecutor always fails. Registered under OperationFail so the
// retry-to-terminal-failure path can be driven deliberately, mirroring
// how a flaky downstream dependency behaves.
type FailExecutor struct{}

var _ Executor = (*FailExecutor)(nil)

// Execute returns an error unconditionally.
func (e *FailExecutor) Execute(ctx context.Context, payload json.RawMessage) (int64, error) {
	return 0, errors.New("computation failed: operation configured to fail")
}

// DefaultRegistry returns a registry with the built-in executors
// registered: compute (with the given simulated delay) and fail.
func DefaultRegistry(computeDelay time.Duration) *Registry {
	r := NewRegistry()
	r.Register(OperationCompute, &ComputeExecutor{Delay: computeDelay})
	r.Register(OperationFail, &FailExecutor{})
	return r
}
