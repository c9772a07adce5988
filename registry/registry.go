package registry

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/strictmode/linear/errors"
	"github.com/strictmode/linear/report"
)

// ID is the process-unique identity of a linear handle.
// IDs are allocated monotonically and never reused. ID 0 is invalid.
type ID uint64

// State is the consumption state of a registry entry.
type State uint32

const (
	// StateActive means the handle owns its payload and has not been consumed.
	StateActive State = iota
	// StateConsumed is the transient state while a normal finalizer runs.
	StateConsumed
	// StateFinalized is terminal; exactly one finalizer has run.
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateConsumed:
		return "consumed"
	case StateFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// Event types for handle lifecycle notifications.
type EventType uint8

const (
	EventCreated EventType = iota
	EventConsumed
	EventAborted
)

// Event represents a handle lifecycle event.
type Event struct {
	Site string
	ID   ID
	Type EventType
}

// Observer receives notifications about handle lifecycle events.
type Observer interface {
	OnHandleEvent(Event)
}

// Info is a read-only snapshot of a live entry, for diagnostics.
type Info struct {
	Created time.Time
	Site    string
	State   State
}

type entry struct {
	created time.Time
	abort   func()
	site    string
	state   atomic.Uint32
}

// Registry tracks all live linear handles and arbitrates their state
// transitions. Safe for concurrent use.
type Registry struct {
	entries   map[ID]*entry
	reporter  *report.Reporter
	observers []Observer
	nextID    atomic.Uint64
	mu        sync.RWMutex
	obsMu     sync.RWMutex
	closed    bool
}

// New creates an empty registry with its own leak reporter.
func New() *Registry {
	return &Registry{
		entries:  make(map[ID]*entry),
		reporter: report.NewReporter(),
	}
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// Default returns the process-wide registry.
func Default() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = New()
	})
	return defaultRegistry
}

// Register creates an Active entry holding the abort finalizer and creation
// site, and returns its identity. The abort finalizer must be non-nil; it is
// stored as a plain func so the registry can run it without knowing the
// payload type.
func (r *Registry) Register(abort func(), site string) (ID, error) {
	if abort == nil {
		return 0, errors.InvalidInput(errors.PhaseCreate, "nil abort finalizer")
	}

	id := ID(r.nextID.Add(1))

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return 0, errors.Closed(errors.PhaseCreate)
	}
	if _, exists := r.entries[id]; exists {
		// Identities are allocated monotonically, so this indicates
		// corrupted registry state rather than caller error.
		r.mu.Unlock()
		return 0, errors.DuplicateResource(errors.PhaseCreate, uint64(id))
	}
	r.entries[id] = &entry{
		abort:   abort,
		site:    site,
		created: time.Now(),
	}
	r.mu.Unlock()

	Logger().Debug("handle registered", zap.Uint64("handle", uint64(id)), zap.String("site", site))
	r.notify(Event{Type: EventCreated, ID: id, Site: site})
	return id, nil
}

// BeginConsume pins the entry to Consumed. It fails with already_consumed
// if the entry is not Active - including entries already finalized and
// removed, which is the use-after-move case.
func (r *Registry) BeginConsume(id ID) error {
	e := r.lookup(id)
	if e == nil {
		return errors.AlreadyConsumed(errors.PhaseConsume, uint64(id))
	}
	if !e.state.CompareAndSwap(uint32(StateActive), uint32(StateConsumed)) {
		return errors.AlreadyConsumed(errors.PhaseConsume, uint64(id))
	}
	return nil
}

// FinishConsume completes a consumption started with BeginConsume,
// transitioning Consumed to Finalized and removing the entry. If abnormal
// is true - the consumer was interrupted by cancellation - the abort
// finalizer runs and a leak event is recorded, so the handle still
// receives exactly one finalization.
func (r *Registry) FinishConsume(id ID, abnormal bool) bool {
	e := r.lookup(id)
	if e == nil {
		return false
	}
	if !e.state.CompareAndSwap(uint32(StateConsumed), uint32(StateFinalized)) {
		return false
	}

	if abnormal {
		r.finalizeAbort(id, e)
		return true
	}

	r.remove(id)
	r.notify(Event{Type: EventConsumed, ID: id, Site: e.site})
	return true
}

// Abort runs the abort path for an Active entry: the abort finalizer fires
// synchronously, the entry transitions directly to Finalized and is removed,
// and a leak event is recorded. Returns false if the entry was not Active,
// so concurrent abandonment attempts finalize exactly once.
func (r *Registry) Abort(id ID) bool {
	e := r.lookup(id)
	if e == nil {
		return false
	}
	if !e.state.CompareAndSwap(uint32(StateActive), uint32(StateFinalized)) {
		return false
	}
	r.finalizeAbort(id, e)
	return true
}

// finalizeAbort runs the abort finalizer while the identity is still
// registered, then removes the entry and reports the leak. The caller must
// have already won the CAS to Finalized. The abort finalizer must not fail;
// a panic inside it propagates after the registry is left consistent.
func (r *Registry) finalizeAbort(id ID, e *entry) {
	defer func() {
		r.remove(id)
		r.reporter.Record(report.Event{
			ID:      uint64(id),
			Site:    e.site,
			Created: e.created,
		})
		r.notify(Event{Type: EventAborted, ID: id, Site: e.site})
	}()

	Logger().Debug("handle aborted", zap.Uint64("handle", uint64(id)), zap.String("site", e.site))
	e.abort()
}

// State returns the entry's current state. ok is false when the identity
// is not registered (never existed, or already finalized).
func (r *Registry) State(id ID) (State, bool) {
	e := r.lookup(id)
	if e == nil {
		return StateFinalized, false
	}
	return State(e.state.Load()), true
}

// PendingCount returns the number of entries that have not yet finalized.
func (r *Registry) PendingCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Reporter returns the registry's leak reporter.
func (r *Registry) Reporter() *report.Reporter {
	return r.reporter
}

// SetLeakPolicy configures how recorded leaks are surfaced.
func (r *Registry) SetLeakPolicy(p report.Policy) {
	r.reporter.SetPolicy(p)
}

// Each iterates over all live entries.
func (r *Registry) Each(fn func(ID, Info) bool) {
	r.mu.RLock()
	snapshot := make(map[ID]*entry, len(r.entries))
	for id, e := range r.entries {
		snapshot[id] = e
	}
	r.mu.RUnlock()

	ids := make([]ID, 0, len(snapshot))
	for id := range snapshot {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		e := snapshot[id]
		if !fn(id, Info{State: State(e.state.Load()), Site: e.site, Created: e.created}) {
			break
		}
	}
}

// Subscribe adds an observer for lifecycle events.
func (r *Registry) Subscribe(o Observer) {
	r.obsMu.Lock()
	defer r.obsMu.Unlock()
	r.observers = append(r.observers, o)
}

// Unsubscribe removes an observer.
func (r *Registry) Unsubscribe(o Observer) {
	r.obsMu.Lock()
	defer r.obsMu.Unlock()
	for i, obs := range r.observers {
		if obs == o {
			r.observers = append(r.observers[:i], r.observers[i+1:]...)
			return
		}
	}
}

// Close sweeps every still-Active entry through the abort path in creation
// order and stops accepting registrations. Entries pinned in Consumed are
// left for their in-flight consumption to finalize. Safe to call more than
// once.
func (r *Registry) Close() error {
	r.mu.Lock()
	r.closed = true
	ids := make([]ID, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	slices.Sort(ids)
	for _, id := range ids {
		r.Abort(id)
	}
	return nil
}

func (r *Registry) lookup(id ID) *entry {
	if id == 0 {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[id]
}

func (r *Registry) remove(id ID) {
	r.mu.Lock()
	delete(r.entries, id)
	r.mu.Unlock()
}

func (r *Registry) notify(e Event) {
	r.obsMu.RLock()
	defer r.obsMu.RUnlock()
	for _, o := range r.observers {
		o.OnHandleEvent(e)
	}
}
