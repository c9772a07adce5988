// Package registry provides process-wide bookkeeping of live linear handles.
//
// Every handle is backed by a registry entry keyed by a monotonically
// allocated identity that is never reused. An entry records the handle's
// consumption state, its creation site, and a reference to its abort
// finalizer; it exists from registration until the handle reaches the
// Finalized state, at which point it is removed.
//
// # State Machine
//
// Entries move through a one-way state machine:
//
//	Active ──BeginConsume──> Consumed ──FinishConsume──> Finalized
//	Active ──Abort──────────────────────(abort branch)─> Finalized
//
// Every transition is a compare-and-swap on the entry's state word, so
// concurrent transitions on the same identity serialize without a global
// lock: the registry map is only locked briefly for insert, lookup and
// delete. Different identities never contend.
//
// While a normal consumption is in flight the state is pinned to Consumed;
// a second consumer observes Consumed and fails fast instead of invoking
// the finalizer twice.
//
// # Teardown
//
// Close is the deterministic teardown point: every still-Active entry takes
// the abort path, in creation order. Abort finalizers run synchronously and
// must not block; a panic inside one propagates after bookkeeping completes,
// since there is no safe recovery path during teardown.
//
// Lifecycle observers receive one event per transition (created, consumed,
// aborted). Leaks - entries that took the abort path - additionally go to
// the attached report.Reporter.
package registry
