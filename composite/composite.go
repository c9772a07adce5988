package composite

import (
	"sync"

	"go.uber.org/multierr"

	"github.com/strictmode/linear"
	"github.com/strictmode/linear/errors"
)

type member struct {
	v    linear.Member
	name string
}

// Composite is a named collection of linear members that can only be
// destroyed by decomposition or by an explicit, leak-reported bulk discard.
// Safe for concurrent use.
type Composite struct {
	members []member
	mu      sync.Mutex
	done    bool
}

var _ linear.Member = (*Composite)(nil)

// New creates an empty composite.
func New() *Composite {
	return &Composite{}
}

// Attach adds a member under a unique name. Declaration order is the
// attach order; it determines decomposition and discard order.
func (c *Composite) Attach(name string, m linear.Member) error {
	if m == nil {
		return errors.InvalidInput(errors.PhaseDecompose, "nil member")
	}
	if name == "" {
		return errors.InvalidInput(errors.PhaseDecompose, "empty member name")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.done {
		return errors.Discarded("composite already decomposed")
	}
	for _, existing := range c.members {
		if existing.name == name {
			return errors.New(errors.PhaseDecompose, errors.KindDuplicateResource).
				Detail("member %q already attached", name).
				Build()
		}
	}

	c.members = append(c.members, member{name: name, v: m})
	return nil
}

// Detach removes the named member and transfers ownership to the caller,
// who must bring it to Finalized independently.
func (c *Composite) Detach(name string) (linear.Member, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.done {
		return nil, errors.Discarded("composite already decomposed")
	}
	for i, m := range c.members {
		if m.name == name {
			c.members = append(c.members[:i], c.members[i+1:]...)
			return m.v, nil
		}
	}
	return nil, errors.NotFound(errors.PhaseDecompose, "member", name)
}

// Len returns the number of attached members.
func (c *Composite) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.members)
}

// Names returns the member names in declaration order.
func (c *Composite) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, len(c.members))
	for i, m := range c.members {
		names[i] = m.name
	}
	return names
}

// Decompose destroys the composite structurally and totally: every member
// is visited in declaration order and handed to fn, which must bring it to
// Finalized. All members are visited even when some fn calls fail; the
// errors are aggregated. The composite is done afterwards regardless.
func (c *Composite) Decompose(fn func(name string, m linear.Member) error) error {
	if fn == nil {
		return errors.InvalidInput(errors.PhaseDecompose, "nil decompose func")
	}

	members, err := c.takeAll()
	if err != nil {
		return err
	}

	var errs error
	for _, m := range members {
		errs = multierr.Append(errs, fn(m.name, m.v))
	}
	return errs
}

// Abandon is the bulk discard: every remaining member takes the abort path
// in declaration order. A composite of N handles yields N abort
// finalizations and N leak events. Returns the total abort count; 0 if the
// composite was already done.
func (c *Composite) Abandon() int {
	members, err := c.takeAll()
	if err != nil {
		return 0
	}

	n := 0
	for _, m := range members {
		n += m.v.Abandon()
	}
	return n
}

// takeAll atomically claims all members and marks the composite done.
func (c *Composite) takeAll() ([]member, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.done {
		return nil, errors.Discarded("composite already decomposed")
	}
	c.done = true
	members := c.members
	c.members = nil
	return members, nil
}
