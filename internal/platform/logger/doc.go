// Package logger provides structured logging functionality for the application.
//
// It utilizes Go's standard library log/slog package to implement structured
// JSON logging with configurable log levels, plus context helpers for carrying
// a request- or task-scoped logger through call chains.
package logger
