package task

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
)

// Common errors returned by queue implementations.
var (
	ErrQueueClosed      = errors.New("task queue is closed")
	ErrQueueFull        = errors.New("task queue is full")
	ErrQueueUnavailable = errors.New("task queue unavailable")
)

// Message is the unit handed off through the work queue: a reference
// to a task already persisted in the store. The payload rides along so
// brokers can redeliver without a store read, but the store remains the
// source of truth for execution.
type Message struct {
	TaskID  uuid.UUID       `json:"task_id"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// QueueWriter provides write access to the work queue, allowing
// services to enqueue task references for processing.
type QueueWriter interface {
	// Enqueue adds a message to the queue. The message must already be
	// persisted; a worker may dequeue it the moment Enqueue returns.
	Enqueue(ctx context.Context, msg Message) error

	// Close closes the queue, preventing further submission.
	Close() error
}

// QueueReader provides consume access to the work queue. Each message
// is delivered to exactly one consumer at a time; redelivery after a
// consumer crash is possible and workers must tolerate it.
type QueueReader interface {
	// Dequeue blocks until a message is available or the context is
	// done, in which case it returns the context's error.
	Dequeue(ctx context.Context) (Message, error)
}

// Queue combines both sides of the work-queue hand-off.
type Queue interface {
	QueueReader
	QueueWriter
}
