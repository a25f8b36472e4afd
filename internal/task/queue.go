package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// MemoryQueue implements Queue with a buffered in-process channel.
//
// A channel alone is not durable: messages die with the process. The
// worker pool compensates at startup by re-enqueuing every unfinished
// task found in the store, which restores at-least-once visibility of
// all submitted work.
type MemoryQueue struct {
	messages chan Message
	logger   *slog.Logger
	mu       sync.Mutex
	closed   bool
}

var _ Queue = (*MemoryQueue)(nil)

// NewMemoryQueue creates a new in-process queue with the specified buffer size.
func NewMemoryQueue(size int, logger *slog.Logger) *MemoryQueue {
	return &MemoryQueue{
		messages: make(chan Message, size),
		logger:   logger.With("component", "memory_queue"),
	}
}

// Enqueue adds a message to the queue. It never blocks and ignores the
// context: the send either succeeds immediately or returns ErrQueueFull
// when the buffer is at capacity. The lock is held across the send so a
// concurrent Close cannot close the channel between the closed check
// and the send.
func (q *MemoryQueue) Enqueue(ctx context.Context, msg Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.messages <- msg:
		q.logger.Debug("message enqueued",
			"task_id", msg.TaskID,
			"queue_len", len(q.messages),
			"queue_cap", cap(q.messages))
		return nil
	default:
		return fmt.Errorf("%w: queue capacity %d reached", ErrQueueFull, cap(q.messages))
	}
}

// Dequeue blocks until a message is available or the context is done.
func (q *MemoryQueue) Dequeue(ctx context.Context) (Message, error) {
	select {
	case msg, ok := <-q.messages:
		if !ok {
			return Message{}, ErrQueueClosed
		}
		return msg, nil
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

// Close closes the queue, preventing further task submission.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.messages)
		q.logger.Info("task queue closed")
	}
	return nil
}
