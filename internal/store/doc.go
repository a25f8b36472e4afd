// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying storage mechanism from the
// task lifecycle logic, allowing the submission, worker, and query
// layers to remain independent of the specific database technology.
package store
