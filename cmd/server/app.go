package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/grind-api/internal/config"
	"github.com/phrazzld/grind-api/internal/platform/postgres"
	"github.com/phrazzld/grind-api/internal/service"
	"github.com/phrazzld/grind-api/internal/store"
	"github.com/phrazzld/grind-api/internal/task"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	taskStore  store.TaskStore
	queue      task.Queue
	workerPool *task.WorkerPool

	taskService service.TaskService
}

// newApplication wires the task pipeline: store, queue, executor
// registry, worker pool, and the submission/query service. Every
// component receives explicit handles rather than reaching for
// ambient globals, so each can be substituted in tests.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	taskStore := postgres.NewPostgresTaskStore(db)

	queue, err := setupQueue(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to set up work queue: %w", err)
	}

	registry := task.DefaultRegistry(time.Duration(cfg.Worker.ComputeDelayMs) * time.Millisecond)

	workerPool := task.NewWorkerPool(
		queue,
		taskStore,
		registry,
		task.WorkerPoolConfig{
			WorkerCount: cfg.Worker.Count,
			MaxAttempts: cfg.Worker.MaxAttempts,
			// The broker holds its own copy of pending messages; only
			// the in-process queue needs them re-enqueued after a
			// restart.
			Recover: cfg.Queue.Backend == config.QueueBackendMemory,
		},
		logger,
	)

	taskService, err := service.NewTaskService(taskStore, queue, db, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}

	return &application{
		config:      cfg,
		logger:      logger,
		db:          db,
		taskStore:   taskStore,
		queue:       queue,
		workerPool:  workerPool,
		taskService: taskService,
	}, nil
}

// setupQueue creates the configured work queue backend.
func setupQueue(cfg *config.Config, logger *slog.Logger) (task.Queue, error) {
	switch cfg.Queue.Backend {
	case config.QueueBackendRedis:
		if cfg.Queue.RedisURL == "" {
			return nil, fmt.Errorf("queue backend %q requires queue.redis_url", cfg.Queue.Backend)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return task.NewRedisQueueFromURL(ctx, cfg.Queue.RedisURL, logger)
	case config.QueueBackendMemory:
		return task.NewMemoryQueue(cfg.Queue.Size, logger), nil
	default:
		return nil, fmt.Errorf("unknown queue backend: %q", cfg.Queue.Backend)
	}
}

// startWorkerPool runs the recovery pass and launches the workers.
func (app *application) startWorkerPool() error {
	return app.workerPool.Start()
}

// cleanup releases application resources in reverse dependency order:
// drain the workers first so no retry re-enqueues against a closing
// queue, then close the queue and the database.
func (app *application) cleanup() {
	app.workerPool.Stop()

	if err := app.queue.Close(); err != nil {
		app.logger.Error("Failed to close work queue", "error", err)
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("Failed to close database connection", "error", err)
	}
}
