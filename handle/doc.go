// Package handle provides the linear handle value type.
//
// A Handle[T] owns exactly one payload of type T. Ownership never
// duplicates: the type has pointer semantics, the payload field is
// unexported, and no accessor exists - the only way to read the payload is
// to consume the handle. This is deliberate; a peek operation would allow
// partial extraction that skips finalization.
//
// # Two Finalization Paths
//
// Every handle carries two cleanup paths:
//
//   - The normal finalizer is the consumer callback passed to Consume. It
//     receives a context, may block on I/O or asynchronous teardown, and
//     may fail; its result and error go back to the caller.
//   - The abort finalizer is supplied at construction. It takes no context
//     and returns nothing: it may run during teardown where blocking is
//     impossible and failure has nowhere to propagate. Release a lock,
//     decrement a counter, mark a connection dead - best effort only.
//
// Exactly one of the two runs over a handle's lifetime.
//
//	h, err := handle.New(reg, conn, func(c *Conn) { c.MarkDead() })
//	...
//	reply, err := handle.Consume(ctx, h, func(ctx context.Context, c *Conn) (string, error) {
//	    return c.CloseGracefully(ctx)
//	})
//
// A second Consume, or any operation after finalization, fails with an
// already_consumed error - the runtime analogue of use-after-move.
//
// Consumer errors are ordinary results: they propagate to the caller and do
// not trigger the abort path, because the normal finalizer did run. Context
// cancellation is different only while it prevents the graceful work: a
// consumption canceled before the consumer runs, or a consumer failing
// under a canceled context, is an abnormal exit, so the abort finalizer
// runs (exactly once) and a leak event is recorded. A consumer that returns
// successfully has completed the normal path regardless of ctx state.
//
// # Discard Detection
//
// Go has no destructors, so "discarded without consuming" is detected two
// ways: Abandon runs the abort path explicitly and deterministically, and a
// runtime.SetFinalizer backstop fires if a still-Active handle becomes
// unreachable. The backstop depends on garbage collection timing; rely on
// Abandon and registry.Close for determinism.
package handle
