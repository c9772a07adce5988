package handle

import (
	"context"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/strictmode/linear"
	"github.com/strictmode/linear/errors"
	"github.com/strictmode/linear/registry"
)

// AbortFunc is the abnormal-path finalizer for a payload of type T.
// It must not block and must not fail; a panic inside one is treated as
// fatal and propagates after registry bookkeeping completes.
type AbortFunc[T any] func(T)

// Handle wraps a payload that must be consumed exactly once.
// Handles have pointer semantics and must not be copied.
type Handle[T any] struct {
	reg     *registry.Registry
	payload T
	id      registry.ID
}

var _ linear.Member = (*Handle[struct{}])(nil)

// New registers payload as a linear resource in reg and returns its handle.
// If reg is nil the process-wide default registry is used. The abort
// finalizer runs if the handle takes the abnormal path; it is required.
func New[T any](reg *registry.Registry, payload T, abort AbortFunc[T]) (*Handle[T], error) {
	if reg == nil {
		reg = registry.Default()
	}
	if abort == nil {
		return nil, errors.InvalidInput(errors.PhaseCreate, "nil abort finalizer")
	}

	id, err := reg.Register(func() { abort(payload) }, callSite(1))
	if err != nil {
		return nil, err
	}

	h := &Handle[T]{reg: reg, id: id, payload: payload}

	// GC backstop: a handle unreachable while still Active takes the abort
	// path. Cleared on Consume and Abandon. Non-deterministic; the
	// deterministic teardown is registry.Close.
	runtime.SetFinalizer(h, func(h *Handle[T]) { h.reg.Abort(h.id) })

	return h, nil
}

// Consume extinguishes the handle through its normal path: the state pins
// to Consumed, the consumer runs on the owned payload, and the handle
// finalizes and deregisters. The consumer may block; ctx is passed through
// for cancellation. Cancellation that stops the graceful work - observed
// before the consumer runs, or a consumer failing under a canceled context -
// is an abnormal exit: the abort finalizer runs and the leak is recorded.
// A consumer that completes successfully has finished the graceful path;
// the handle finalizes normally even if ctx was canceled along the way.
//
// Consume is a package function rather than a method so the consumer can
// return a typed result.
func Consume[T, R any](ctx context.Context, h *Handle[T], consumer func(context.Context, T) (R, error)) (R, error) {
	var zero R
	if h == nil {
		return zero, errors.InvalidInput(errors.PhaseConsume, "nil handle")
	}
	if consumer == nil {
		return zero, errors.InvalidInput(errors.PhaseConsume, "nil consumer")
	}

	if err := h.reg.BeginConsume(h.id); err != nil {
		return zero, err
	}
	runtime.SetFinalizer(h, nil)

	if err := ctx.Err(); err != nil {
		h.reg.FinishConsume(h.id, true)
		h.clear()
		return zero, errors.Canceled(uint64(h.id), err)
	}

	result, err := consumer(ctx, h.payload)

	if err != nil && ctx.Err() != nil {
		// The consumer failed under a canceled context: the graceful work
		// did not complete, so the handle takes the abort branch.
		h.reg.FinishConsume(h.id, true)
		h.clear()
		return result, errors.Canceled(uint64(h.id), err)
	}

	h.reg.FinishConsume(h.id, false)
	h.clear()
	return result, err
}

// Consume is the no-result form of the package-level Consume.
func (h *Handle[T]) Consume(ctx context.Context, consumer func(context.Context, T) error) error {
	if consumer == nil {
		return errors.InvalidInput(errors.PhaseConsume, "nil consumer")
	}
	_, err := Consume(ctx, h, func(ctx context.Context, v T) (struct{}, error) {
		return struct{}{}, consumer(ctx, v)
	})
	return err
}

// Abandon explicitly discards the handle without consuming it: the abort
// finalizer runs synchronously and a leak event is recorded. Idempotent -
// under concurrent abandonment exactly one abort finalization happens.
// Returns the number of abort finalizers that ran (0 or 1), satisfying
// linear.Member.
func (h *Handle[T]) Abandon() int {
	if !h.reg.Abort(h.id) {
		return 0
	}
	runtime.SetFinalizer(h, nil)
	h.clear()
	return 1
}

// ID returns the handle's process-unique identity.
func (h *Handle[T]) ID() registry.ID {
	return h.id
}

// State returns the handle's current consumption state.
func (h *Handle[T]) State() registry.State {
	s, ok := h.reg.State(h.id)
	if !ok {
		return registry.StateFinalized
	}
	return s
}

// clear drops the payload reference once the handle is finalized, so the
// handle does not keep the resource reachable.
func (h *Handle[T]) clear() {
	var zero T
	h.payload = zero
}

func callSite(skip int) string {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return "unknown"
	}
	return filepath.Base(file) + ":" + strconv.Itoa(line)
}
