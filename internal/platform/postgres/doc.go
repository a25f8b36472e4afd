// Package postgres provides the PostgreSQL implementation of the storage
// interfaces defined in the internal/store package. It handles query
// execution and mapping between domain entities and database records,
// and enforces the single-atomic-write discipline the task lifecycle
// relies on.
package postgres
