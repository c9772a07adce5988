package errors

import (
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
)

// Phase indicates which operation the error occurred in
type Phase string

const (
	PhaseCreate    Phase = "create"    // handle registration
	PhaseConsume   Phase = "consume"   // normal-path consumption
	PhaseAbort     Phase = "abort"     // abort-path finalization
	PhaseDecompose Phase = "decompose" // composite decomposition
	PhasePool      Phase = "pool"      // unit pool operations
	PhaseAudit     Phase = "audit"     // registry audit/teardown
	PhaseTrace     Phase = "trace"     // trace replay (linmon)
)

// Kind categorizes the error
type Kind string

const (
	KindAlreadyConsumed   Kind = "already_consumed"
	KindDuplicateResource Kind = "duplicate_resource"
	KindCanceled          Kind = "canceled"
	KindClosed            Kind = "closed"
	KindDiscarded         Kind = "discarded"
	KindInsufficient      Kind = "insufficient_units"
	KindNotFound          Kind = "not_found"
	KindInvalidInput      Kind = "invalid_input"
)

// Error is the structured error type used throughout the library
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Site   string
	Detail string
	Handle uint64
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Handle != 0 {
		b.WriteString(": handle ")
		b.WriteString(strconv.FormatUint(e.Handle, 10))
		if e.Site != "" {
			b.WriteString(" (created at ")
			b.WriteString(e.Site)
			b.WriteByte(')')
		}
	} else if e.Site != "" {
		b.WriteString(" at ")
		b.WriteString(e.Site)
	}

	if e.Detail != "" {
		if e.Handle != 0 || e.Site != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// IsKind reports whether err (or anything it wraps) is an Error of the given
// kind, regardless of phase.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Handle sets the handle identity
func (b *Builder) Handle(id uint64) *Builder {
	b.err.Handle = id
	return b
}

// Site sets the handle's creation site
func (b *Builder) Site(site string) *Builder {
	b.err.Site = site
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// AlreadyConsumed creates an error for an operation on a non-Active handle.
// This is the use-after-move analogue: the handle has been consumed or
// finalized and can never return to Active.
func AlreadyConsumed(phase Phase, id uint64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAlreadyConsumed,
		Handle: id,
		Detail: "handle is not active",
	}
}

// DuplicateResource creates an error for an identity that is already registered.
func DuplicateResource(phase Phase, id uint64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindDuplicateResource,
		Handle: id,
		Detail: "identity already registered",
	}
}

// Canceled creates an error for a consumption interrupted by context cancellation.
func Canceled(id uint64, cause error) *Error {
	return &Error{
		Phase:  PhaseConsume,
		Kind:   KindCanceled,
		Handle: id,
		Detail: "consumption canceled, abort finalizer ran",
		Cause:  cause,
	}
}

// Closed creates an error for an operation on a closed registry.
func Closed(phase Phase) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindClosed,
		Detail: "registry closed",
	}
}

// Discarded creates an error for an operation on an already-discarded composite.
func Discarded(detail string) *Error {
	return &Error{
		Phase:  PhaseDecompose,
		Kind:   KindDiscarded,
		Detail: detail,
	}
}

// Insufficient creates an error for a pool slot that cannot supply the
// requested number of units.
func Insufficient(slot string, want, have int) *Error {
	return &Error{
		Phase:  PhasePool,
		Kind:   KindInsufficient,
		Detail: fmt.Sprintf("slot %q holds %d unit(s), need %d", slot, have, want),
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
