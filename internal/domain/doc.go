// Package domain contains the core business entities and domain logic of
// the task processing system: the Task entity, its status lifecycle, and
// the invariants that hold across that lifecycle. It is independent of any
// specific infrastructure or delivery mechanism.
package domain
