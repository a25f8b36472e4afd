package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/phrazzld/grind-api/internal/domain"
	"github.com/phrazzld/grind-api/internal/platform/logger"
	"github.com/phrazzld/grind-api/internal/store"
)

// WorkerPoolConfig holds configuration options for the worker pool.
type WorkerPoolConfig struct {
	// WorkerCount determines how many concurrent worker goroutines to
	// start. If zero or negative, defaults to 1.
	WorkerCount int

	// MaxAttempts bounds the retry policy. A task whose computation
	// fails is re-enqueued until this many attempts have been made,
	// then marked failed. If zero or negative, defaults to 3.
	MaxAttempts int

	// Recover controls the startup recovery pass that re-enqueues
	// unfinished tasks from the store. Required for the in-process
	// queue, whose buffer dies with the process; a broker-backed queue
	// retains its own messages, so recovery there only resets orphaned
	// in_progress rows without re-enqueuing pending ones.
	Recover bool
}

// DefaultWorkerPoolConfig returns a WorkerPoolConfig with reasonable defaults.
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		WorkerCount: 2,
		MaxAttempts: 3,
		Recover:     true,
	}
}

// WorkerPool runs the worker execution engine: a fixed set of
// goroutines, each driving an independent sequential loop of dequeue,
// claim, execute, finalize. Coordination across workers happens solely
// through the queue's single-delivery hand-off and the store's atomic
// conditional writes; no other locking is involved because each task
// is owned by exactly one worker at a time.
type WorkerPool struct {
	queue    Queue
	store    store.TaskStore
	executor Executor
	config   WorkerPoolConfig

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger
}

// NewWorkerPool creates a new worker pool with the specified configuration.
func NewWorkerPool(
	queue Queue,
	taskStore store.TaskStore,
	executor Executor,
	config WorkerPoolConfig,
	log *slog.Logger,
) *WorkerPool {
	if config.WorkerCount <= 0 {
		log.Warn("invalid worker count specified, using default",
			"specified_count", config.WorkerCount,
			"default_count", 1)
		config.WorkerCount = 1
	}
	if config.MaxAttempts <= 0 {
		log.Warn("invalid max attempts specified, using default",
			"specified_attempts", config.MaxAttempts,
			"default_attempts", 3)
		config.MaxAttempts = 3
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		queue:    queue,
		store:    taskStore,
		executor: executor,
		config:   config,
		ctx:      ctx,
		cancel:   cancel,
		logger:   log.With("component", "worker_pool"),
	}
}

// Start recovers unfinished tasks and launches the worker goroutines.
func (p *WorkerPool) Start() error {
	if err := p.recoverUnfinished(); err != nil {
		return fmt.Errorf("failed to recover unfinished tasks: %w", err)
	}

	for i := 0; i < p.config.WorkerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	p.logger.Info("worker pool started",
		"worker_count", p.config.WorkerCount,
		"max_attempts", p.config.MaxAttempts)
	return nil
}

// Stop signals all workers to finish and waits for them to exit. A
// worker mid-execution completes its current task before stopping.
func (p *WorkerPool) Stop() {
	p.cancel()
	p.wg.Wait()
	p.logger.Info("worker pool stopped")
}

// recoverUnfinished restores at-least-once visibility of work that
// never reached a terminal state before the last shutdown: orphaned
// in_progress rows are reset to pending, and (for the in-process
// queue) pending rows are re-enqueued.
func (p *WorkerPool) recoverUnfinished() error {
	ctx := logger.WithLogger(context.Background(), p.logger)

	inProgress, err := p.store.ListByStatus(ctx, domain.TaskStatusInProgress)
	if err != nil {
		return fmt.Errorf("failed to list in_progress tasks: %w", err)
	}

	for _, t := range inProgress {
		if err := p.store.MarkPending(ctx, t.ID); err != nil {
			p.logger.Error("failed to reset orphaned task",
				"task_id", t.ID,
				"error", err)
		}
	}

	if !p.config.Recover {
		if len(inProgress) > 0 {
			p.logger.Info("reset orphaned in_progress tasks", "count", len(inProgress))
		}
		return nil
	}

	pending, err := p.store.ListByStatus(ctx, domain.TaskStatusPending)
	if err != nil {
		return fmt.Errorf("failed to list pending tasks: %w", err)
	}

	p.logger.Info("recovering unfinished tasks",
		"pending_count", len(pending),
		"reset_count", len(inProgress))

	for _, t := range pending {
		msg := Message{TaskID: t.ID, Payload: t.Payload}
		if err := p.queue.Enqueue(ctx, msg); err != nil {
			p.logger.Error("failed to requeue unfinished task",
				"task_id", t.ID,
				"error", err)
		}
	}

	return nil
}

// worker is one sequential dequeue-process loop.
func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	log := p.logger.With("worker_id", id)
	log.Debug("starting worker")

	for {
		msg, err := p.queue.Dequeue(p.ctx)
		if err != nil {
			if p.ctx.Err() != nil || errors.Is(err, ErrQueueClosed) {
				log.Debug("stopping worker")
				return
			}
			log.Error("failed to dequeue message", "error", err)
			continue
		}

		p.processMessage(msg, log)
	}
}

// processMessage drives one delivered message through the per-task
// state machine: claim, execute, then complete, re-enqueue, or fail.
func (p *WorkerPool) processMessage(msg Message, log *slog.Logger) {
	taskLog := log.With("task_id", msg.TaskID)
	ctx := logger.WithLogger(context.Background(), taskLog)

	// Defensive read: redelivery of an already-finished task is normal
	// under at-least-once semantics and must be a silent skip.
	current, err := p.store.GetByID(ctx, msg.TaskID)
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			taskLog.Warn("dequeued message references unknown task, dropping")
			return
		}
		taskLog.Error("failed to read task record, requeuing", "error", err)
		p.requeue(ctx, msg, taskLog)
		return
	}
	if current.IsTerminal() {
		taskLog.Debug("skipping redelivery of terminal task", "status", current.Status)
		return
	}

	if err := p.store.MarkInProgress(ctx, msg.TaskID); err != nil {
		switch {
		case errors.Is(err, store.ErrTaskTerminal), errors.Is(err, store.ErrTaskClaimed):
			taskLog.Debug("task not claimable, skipping", "reason", err)
		default:
			taskLog.Error("failed to claim task, requeuing", "error", err)
			p.requeue(ctx, msg, taskLog)
		}
		return
	}

	attempts, err := p.store.RecordAttempt(ctx, msg.TaskID)
	if err != nil {
		taskLog.Error("failed to record attempt", "error", err)
		attempts = current.AttemptCount + 1
	}

	taskLog.Info("processing task", "attempt", attempts)

	// Execute against the store's copy of the payload, not the queue's:
	// the record is the source of truth.
	result, execErr := p.executor.Execute(ctx, current.Payload)

	if execErr == nil {
		if err := p.store.Complete(ctx, msg.TaskID, result); err != nil {
			taskLog.Error("failed to write completed state", "error", err)
			return
		}
		taskLog.Info("task completed", "result", result, "attempt", attempts)
		return
	}

	taskLog.Error("task execution failed",
		"error", execErr,
		"attempt", attempts,
		"max_attempts", p.config.MaxAttempts)

	if attempts < p.config.MaxAttempts {
		if err := p.store.MarkPending(ctx, msg.TaskID); err != nil {
			taskLog.Error("failed to reset task for retry", "error", err)
			return
		}
		p.requeue(ctx, msg, taskLog)
		return
	}

	if err := p.store.Fail(ctx, msg.TaskID, execErr.Error()); err != nil {
		taskLog.Error("failed to write failed state", "error", err)
		return
	}
	taskLog.Info("task failed permanently", "attempts", attempts)
}

// requeue puts a message back on the queue for another delivery.
func (p *WorkerPool) requeue(ctx context.Context, msg Message, log *slog.Logger) {
	if err := p.queue.Enqueue(ctx, msg); err != nil {
		// The task stays pending in the store; the next recovery pass
		// picks it up.
		log.Error("failed to requeue task", "error", err)
	}
}
