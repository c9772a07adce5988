package pool

import (
	"context"
	"slices"
	"sync"

	"go.uber.org/multierr"

	"github.com/strictmode/linear"
	"github.com/strictmode/linear/errors"
	"github.com/strictmode/linear/handle"
	"github.com/strictmode/linear/registry"
)

// Pool holds a fixed set of interchangeable unit handles distributed across
// named slots. Units move between slots by ownership transfer; the total
// never changes except through Take/Put and final consumption. Safe for
// concurrent use.
type Pool[T any] struct {
	slots    map[string][]*handle.Handle[T]
	inside   map[registry.ID]struct{}
	taken    map[registry.ID]struct{}
	mu       sync.Mutex
	capacity int
}

var _ linear.Member = (*Pool[struct{}])(nil)

// New creates the pool's unit handles once, all in the initial slot.
// Capacity is fixed at len(units). Each unit gets the same abort finalizer.
func New[T any](reg *registry.Registry, slot string, units []T, abort handle.AbortFunc[T]) (*Pool[T], error) {
	if len(units) == 0 {
		return nil, errors.InvalidInput(errors.PhasePool, "empty unit set")
	}
	if slot == "" {
		return nil, errors.InvalidInput(errors.PhasePool, "empty slot name")
	}

	p := &Pool[T]{
		slots:    make(map[string][]*handle.Handle[T]),
		inside:   make(map[registry.ID]struct{}, len(units)),
		taken:    make(map[registry.ID]struct{}),
		capacity: len(units),
	}

	handles := make([]*handle.Handle[T], 0, len(units))
	for _, u := range units {
		h, err := handle.New(reg, u, abort)
		if err != nil {
			// Unwind the units created so far; they would leak silently
			// otherwise.
			for _, created := range handles {
				created.Abandon()
			}
			return nil, err
		}
		handles = append(handles, h)
		p.inside[h.ID()] = struct{}{}
	}
	p.slots[slot] = handles

	return p, nil
}

// Capacity returns the fixed number of units the pool was created with.
func (p *Pool[T]) Capacity() int {
	return p.capacity
}

// Count returns the number of units currently in a slot.
func (p *Pool[T]) Count(slot string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.slots[slot])
}

// Pooled returns the total number of units across all slots.
func (p *Pool[T]) Pooled() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pooledLocked()
}

// Outstanding returns the number of units transferred out via Take and not
// yet returned or consumed.
func (p *Pool[T]) Outstanding() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.taken)
}

// Move transfers n units from one slot to another. Units are
// interchangeable, so which n move is unspecified. Fails with
// insufficient_units if the source slot is short.
func (p *Pool[T]) Move(from, to string, n int) error {
	if n <= 0 {
		return errors.InvalidInput(errors.PhasePool, "unit count must be positive")
	}
	if from == to {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	src := p.slots[from]
	if len(src) < n {
		return errors.Insufficient(from, n, len(src))
	}

	moved := src[len(src)-n:]
	p.slots[from] = src[:len(src)-n]
	p.slots[to] = append(p.slots[to], moved...)
	return nil
}

// Take transfers one unit handle out of the slot to the caller, who now
// owns it and must bring it to Finalized - or return it with Put.
func (p *Pool[T]) Take(slot string) (*handle.Handle[T], error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	src := p.slots[slot]
	if len(src) == 0 {
		return nil, errors.Insufficient(slot, 1, 0)
	}

	h := src[len(src)-1]
	p.slots[slot] = src[:len(src)-1]
	delete(p.inside, h.ID())
	p.taken[h.ID()] = struct{}{}
	return h, nil
}

// Put returns a previously taken unit to a slot. Conservation is enforced:
// a handle already pooled fails with duplicate_resource, a handle that did
// not come from this pool is rejected, and a handle finalized while outside
// fails with already_consumed.
func (p *Pool[T]) Put(slot string, h *handle.Handle[T]) error {
	if h == nil {
		return errors.InvalidInput(errors.PhasePool, "nil handle")
	}
	if slot == "" {
		return errors.InvalidInput(errors.PhasePool, "empty slot name")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	id := h.ID()
	if _, ok := p.inside[id]; ok {
		return errors.DuplicateResource(errors.PhasePool, uint64(id))
	}
	if _, ok := p.taken[id]; !ok {
		return errors.InvalidInput(errors.PhasePool, "handle does not belong to this pool")
	}
	if h.State() != registry.StateActive {
		return errors.AlreadyConsumed(errors.PhasePool, uint64(id))
	}

	delete(p.taken, id)
	p.inside[id] = struct{}{}
	p.slots[slot] = append(p.slots[slot], h)
	return nil
}

// Drain consumes every pooled unit through its normal path. Consumer errors
// are aggregated; every unit is finalized regardless. Outstanding taken
// units are untouched - their owners consume them.
func (p *Pool[T]) Drain(ctx context.Context, consumer func(context.Context, T) error) error {
	if consumer == nil {
		return errors.InvalidInput(errors.PhasePool, "nil consumer")
	}

	var errs error
	for _, h := range p.takeAll() {
		errs = multierr.Append(errs, h.Consume(ctx, consumer))
	}
	return errs
}

// Abandon aborts every pooled unit, one abort finalization and one leak
// event each. Outstanding taken units are untouched. Implements
// linear.Member.
func (p *Pool[T]) Abandon() int {
	n := 0
	for _, h := range p.takeAll() {
		n += h.Abandon()
	}
	return n
}

// takeAll claims every pooled handle, emptying all slots.
func (p *Pool[T]) takeAll() []*handle.Handle[T] {
	p.mu.Lock()
	defer p.mu.Unlock()

	names := make([]string, 0, len(p.slots))
	for slot := range p.slots {
		names = append(names, slot)
	}
	slices.Sort(names)

	var all []*handle.Handle[T]
	for _, slot := range names {
		all = append(all, p.slots[slot]...)
		delete(p.slots, slot)
	}
	for _, h := range all {
		delete(p.inside, h.ID())
	}
	return all
}

func (p *Pool[T]) pooledLocked() int {
	total := 0
	for _, handles := range p.slots {
		total += len(handles)
	}
	return total
}
