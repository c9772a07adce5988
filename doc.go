// Package linear provides a runtime-enforced linear-resource consumption
// contract: every tracked handle must be explicitly consumed exactly once,
// and a handle that would otherwise be silently discarded takes a fallback
// abort path that is detected and reported.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	linear/            Root package with the shared Member contract
//	├── registry/      Process-wide handle bookkeeping and state transitions
//	├── handle/        The Handle[T] value type and consumption operations
//	├── composite/     Member-by-member decomposition of handle containers
//	├── pool/          Fixed-capacity pools of interchangeable unit handles
//	├── report/        Leak event accumulation and severity policies
//	├── errors/        Structured error types for debugging
//	└── cmd/linmon/    Trace replay and leak inspection tool
//
// # Quick Start
//
// Wrap a resource in a handle, then consume it exactly once:
//
//	reg := registry.New()
//
//	h, err := handle.New(reg, conn, func(c *Conn) {
//	    c.MarkDead() // emergency cleanup, must not block
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := handle.Consume(ctx, h, func(ctx context.Context, c *Conn) (string, error) {
//	    return c.CloseGracefully(ctx) // may block, may fail
//	})
//
// A handle that never reaches Consume is a protocol violation. Calling
// Abandon (or letting the registry's Close sweep find it) runs the abort
// finalizer and records a leak event:
//
//	h.Abandon()                         // abort path, exactly once
//	n := reg.Reporter().Count()         // leak events so far
//	reg.SetLeakPolicy(report.PolicyLog) // or PolicyAbort to fail loudly
//
// # Consumption Contract
//
// Each handle moves through a one-way state machine:
//
//	Active ──Consume──> Consumed ──finalizer returns──> Finalized
//	Active ──Abandon/sweep──────────(abort branch)────> Finalized
//
// Exactly one of the two finalizers runs over a handle's lifetime. Any
// operation on a Finalized handle fails with an already_consumed error,
// mirroring use-after-move detection. There is no way to read the payload
// without consuming the handle.
//
// # Composites
//
// A structure holding handles cannot be discarded in bulk. Attach its
// members to a Composite and either decompose it member by member or accept
// one abort finalization and one leak event per contained handle:
//
//	c := composite.New()
//	c.Attach("reader", rh)
//	c.Attach("writer", wh)
//
//	err := c.Decompose(func(name string, m linear.Member) error {
//	    // each member must independently reach Finalized
//	    return nil
//	})
//
// # Determinism
//
// The deterministic teardown point is registry.Close, which walks every
// still-active entry through the abort path. A runtime.SetFinalizer backstop
// also fires for handles that become unreachable while Active, but garbage
// collection timing is not deterministic; treat it as a last resort, not as
// the enforcement mechanism.
package linear
