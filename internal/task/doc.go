// Package task manages background work queuing, execution, and lifecycle.
// It defines the work-queue hand-off contracts, the opaque computation
// interface workers dispatch to, and the worker pool that drives tasks
// from dequeue through bounded retry to a terminal state, ensuring
// long-running computations never block request handling and unfinished
// work survives application restarts.
package task
