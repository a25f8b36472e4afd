package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist
	// in the store. This is the generic form of the entity-specific
	// not found errors.
	ErrNotFound = errors.New("entity not found")

	// ErrUpdateFailed is returned when an update operation fails, for
	// example because the entity does not exist or the update violates
	// constraints.
	ErrUpdateFailed = errors.New("update failed")

	// ErrStoreUnavailable is returned when the underlying storage is
	// transiently unreachable. The immediate caller may retry; the
	// error is never silently swallowed.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrTaskNotFound indicates that the requested task does not exist
	// in the store. A query for an identifier that was never issued is
	// a normal outcome, not an error condition worth logging.
	ErrTaskNotFound = fmt.Errorf("%w: task", ErrNotFound)

	// ErrTaskTerminal indicates that a mutating operation was rejected
	// because the task is already in a terminal state. Terminal records
	// are immutable; callers treating redelivery defensively can check
	// for this sentinel and skip.
	ErrTaskTerminal = errors.New("task already in terminal state")

	// ErrTaskClaimed indicates that a claim was rejected because another
	// worker already holds the task in_progress. The losing worker skips
	// the delivery; the owning worker finishes or the task is recovered.
	ErrTaskClaimed = errors.New("task claimed by another worker")
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
