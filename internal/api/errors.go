package api

import (
	"errors"
	"net/http"

	"github.com/phrazzld/grind-api/internal/service"
	"github.com/phrazzld/grind-api/internal/store"
	"github.com/phrazzld/grind-api/internal/task"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status
// codes based on the error type. This prevents leaking internal error
// types or messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, store.ErrTaskNotFound):
		return http.StatusNotFound

	// Transient infrastructure failures: the caller may retry
	case errors.Is(err, store.ErrStoreUnavailable),
		errors.Is(err, task.ErrQueueUnavailable),
		errors.Is(err, task.ErrQueueFull):
		return http.StatusServiceUnavailable

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, store.ErrTaskNotFound):
		return "Task not found"

	case errors.Is(err, store.ErrStoreUnavailable):
		return "Storage temporarily unavailable, please retry"

	case errors.Is(err, task.ErrQueueUnavailable),
		errors.Is(err, task.ErrQueueFull):
		return "Task queue temporarily unavailable, please retry"

	default:
		return "An unexpected error occurred"
	}
}
