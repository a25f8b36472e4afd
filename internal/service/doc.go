// Package service contains the application use cases that sit between
// the HTTP layer and the task engine: accepting a submission (persist
// then enqueue, in that order) and answering status queries with a
// single read. Services receive their queue and store handles through
// constructor injection so tests can substitute in-memory fakes.
package service
