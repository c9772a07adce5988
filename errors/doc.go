// Package errors provides structured error types for the linear library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: the handle identity, its creation site,
// and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseConsume, errors.KindAlreadyConsumed).
//		Handle(id).
//		Site("conn.go:42").
//		Detail("handle was finalized").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.AlreadyConsumed(errors.PhaseConsume, id)
//	err := errors.DuplicateResource(errors.PhasePool, id)
//
// All errors implement the standard error interface and support errors.Is/As.
// Is matches on Phase and Kind together; use IsKind when only the category
// matters (callers recovering from already_consumed do not care which
// operation tripped it).
package errors
