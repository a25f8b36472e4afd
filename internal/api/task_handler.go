package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/grind-api/internal/api/shared"
	"github.com/phrazzld/grind-api/internal/domain"
	"github.com/phrazzld/grind-api/internal/service"
)

// SubmitTaskResponse represents the response data for a newly accepted task.
type SubmitTaskResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// TaskStatusResponse represents the full current record of a task.
// Result and ErrorMessage serialize as null until the task reaches the
// corresponding terminal state.
type TaskStatusResponse struct {
	ID           string     `json:"id"`
	Status       string     `json:"status"`
	Result       *int64     `json:"result"`
	ErrorMessage *string    `json:"error_message"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at"`
}

// TaskHandler handles task-related HTTP requests.
type TaskHandler struct {
	taskService service.TaskService
	logger      *slog.Logger
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(taskService service.TaskService, logger *slog.Logger) *TaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskHandler{
		taskService: taskService,
		logger:      logger.With("component", "task_handler"),
	}
}

// SubmitTask handles POST /api/tasks requests. The entire request body
// is the task payload and is treated as opaque: it must be valid JSON
// but its content is never interpreted here. An empty body submits a
// task with no payload.
func (h *TaskHandler) SubmitTask(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Failed to read request body")
		return
	}

	if len(body) > 0 && !json.Valid(body) {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Request body must be valid JSON")
		return
	}

	task, err := h.taskService.Submit(r.Context(), body)
	if err != nil {
		shared.RespondWithErrorAndLog(
			w, r,
			MapErrorToStatusCode(err),
			GetSafeErrorMessage(err),
			err,
		)
		return
	}

	response := SubmitTaskResponse{
		ID:      task.ID.String(),
		Status:  string(task.Status),
		Message: "Task queued for processing",
	}

	// 202 Accepted: processing happens asynchronously
	shared.RespondWithJSON(w, r, http.StatusAccepted, response)
}

// GetTask handles GET /api/tasks/{id} requests. It returns the current
// record verbatim, including partial state while the task is pending or
// in progress, and never blocks on worker progress.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	idParam := chi.URLParam(r, "id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}

	task, err := h.taskService.Get(r.Context(), id)
	if err != nil {
		shared.RespondWithErrorAndLog(
			w, r,
			MapErrorToStatusCode(err),
			GetSafeErrorMessage(err),
			err,
		)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToStatusResponse(task))
}

// taskToStatusResponse converts a domain.Task to a TaskStatusResponse.
func taskToStatusResponse(task *domain.Task) TaskStatusResponse {
	return TaskStatusResponse{
		ID:           task.ID.String(),
		Status:       string(task.Status),
		Result:       task.Result,
		ErrorMessage: task.ErrorMessage,
		CreatedAt:    task.CreatedAt,
		CompletedAt:  task.CompletedAt,
	}
}
