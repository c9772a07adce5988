package report

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Policy selects how the reporter reacts to a leak event.
type Policy uint8

const (
	// PolicyReport accumulates events for later inspection. Default.
	PolicyReport Policy = iota
	// PolicyLog accumulates events and logs each one at warn level.
	PolicyLog
	// PolicyAbort logs the event at fatal level, terminating the process.
	PolicyAbort
)

func (p Policy) String() string {
	switch p {
	case PolicyReport:
		return "report"
	case PolicyLog:
		return "log"
	case PolicyAbort:
		return "abort"
	default:
		return "unknown"
	}
}

// Event describes a single abort-path finalization.
type Event struct {
	Created time.Time // when the handle was registered
	Site    string    // creation site, file:line
	ID      uint64    // handle identity
}

// Observer receives leak events as they are recorded.
type Observer interface {
	OnLeak(Event)
}

// Reporter accumulates leak events and applies the configured policy.
// Safe for concurrent use.
type Reporter struct {
	observers []Observer
	events    []Event
	mu        sync.RWMutex
	policy    Policy
}

// NewReporter creates a reporter with PolicyReport.
func NewReporter() *Reporter {
	return &Reporter{}
}

// SetPolicy changes the severity policy for subsequent events.
func (r *Reporter) SetPolicy(p Policy) {
	r.mu.Lock()
	r.policy = p
	r.mu.Unlock()
}

// Policy returns the current severity policy.
func (r *Reporter) Policy() Policy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.policy
}

// Record stores a leak event and applies the policy.
func (r *Reporter) Record(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	policy := r.policy
	observers := make([]Observer, len(r.observers))
	copy(observers, r.observers)
	r.mu.Unlock()

	for _, o := range observers {
		o.OnLeak(e)
	}

	fields := []zap.Field{
		zap.Uint64("handle", e.ID),
		zap.String("site", e.Site),
		zap.Time("created", e.Created),
	}

	switch policy {
	case PolicyLog:
		Logger().Warn("linear handle leaked", fields...)
	case PolicyAbort:
		Logger().Fatal("linear handle leaked", fields...)
	}
}

// Count returns the number of recorded leak events.
func (r *Reporter) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.events)
}

// Events returns a copy of all recorded leak events in record order.
func (r *Reporter) Events() []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Subscribe adds an observer for leak events.
func (r *Reporter) Subscribe(o Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, o)
}

// Unsubscribe removes an observer.
func (r *Reporter) Unsubscribe(o Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, obs := range r.observers {
		if obs == o {
			r.observers = append(r.observers[:i], r.observers[i+1:]...)
			return
		}
	}
}
