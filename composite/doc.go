// Package composite enforces member-by-member destruction of structures
// that contain linear handles.
//
// A structure holding one or more linear handles is itself non-discardable:
// it must never be destroyed in bulk, because bulk destruction silently
// skips the consumption contract of every handle inside it. A Composite
// makes the rule operational - members are attached under names, and the
// composite can only end its life in one of two ways:
//
//   - Decompose enumerates every member in declaration order and hands each
//     one to the caller, who is responsible for bringing it to Finalized
//     individually. Per-member errors are aggregated.
//   - Abandon is the bulk-discard escape hatch: every remaining member takes
//     the abort path, producing one abort finalization and one leak event
//     per contained handle, in declaration order.
//
// Members are anything implementing linear.Member: single handles, unit
// pools, or nested composites - decomposition is recursive, since abandoning
// a nested composite abandons its members in turn.
//
//	c := composite.New()
//	c.Attach("reader", rh)
//	c.Attach("writer", wh)
//
//	err := c.Decompose(func(name string, m linear.Member) error {
//	    ...
//	})
//
// A decomposed or abandoned composite rejects all further operations.
package composite
