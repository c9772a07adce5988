package registry

import (
	"sync"
	"testing"

	"github.com/strictmode/linear/errors"
)

type testObserver struct {
	mu     sync.Mutex
	events []Event
}

func (o *testObserver) OnHandleEvent(e Event) {
	o.mu.Lock()
	o.events = append(o.events, e)
	o.mu.Unlock()
}

func (o *testObserver) snapshot() []Event {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Event, len(o.events))
	copy(out, o.events)
	return out
}

func TestRegistry_RegisterAndConsume(t *testing.T) {
	r := New()

	id, err := r.Register(func() {}, "here.go:1")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero id")
	}
	if r.PendingCount() != 1 {
		t.Fatalf("PendingCount = %d, want 1", r.PendingCount())
	}

	s, ok := r.State(id)
	if !ok || s != StateActive {
		t.Fatalf("State = %v, %v; want active", s, ok)
	}

	if err := r.BeginConsume(id); err != nil {
		t.Fatalf("BeginConsume failed: %v", err)
	}
	s, _ = r.State(id)
	if s != StateConsumed {
		t.Fatalf("State = %v, want consumed", s)
	}

	if !r.FinishConsume(id, false) {
		t.Fatal("FinishConsume should succeed")
	}
	if r.PendingCount() != 0 {
		t.Fatal("entry should be removed after Finalized")
	}
	if _, ok := r.State(id); ok {
		t.Fatal("finalized entry should not be found")
	}
	if r.Reporter().Count() != 0 {
		t.Fatal("normal consumption must not record a leak")
	}
}

func TestRegistry_MonotonicIdentity(t *testing.T) {
	r := New()

	id1, _ := r.Register(func() {}, "a")
	r.Abort(id1)
	id2, _ := r.Register(func() {}, "b")

	if id2 <= id1 {
		t.Fatalf("identities must be monotonic, got %d then %d", id1, id2)
	}
}

func TestRegistry_BeginConsumeTwice(t *testing.T) {
	r := New()
	id, _ := r.Register(func() {}, "x")

	if err := r.BeginConsume(id); err != nil {
		t.Fatalf("first BeginConsume failed: %v", err)
	}
	err := r.BeginConsume(id)
	if !errors.IsKind(err, errors.KindAlreadyConsumed) {
		t.Fatalf("second BeginConsume = %v, want already_consumed", err)
	}
}

func TestRegistry_OperationsAfterFinalized(t *testing.T) {
	r := New()
	id, _ := r.Register(func() {}, "x")
	r.BeginConsume(id)
	r.FinishConsume(id, false)

	if err := r.BeginConsume(id); !errors.IsKind(err, errors.KindAlreadyConsumed) {
		t.Fatalf("BeginConsume after finalize = %v, want already_consumed", err)
	}
	if r.Abort(id) {
		t.Fatal("Abort after finalize should be a no-op")
	}
	if r.FinishConsume(id, false) {
		t.Fatal("FinishConsume after finalize should be a no-op")
	}
}

func TestRegistry_AbortRunsFinalizerWhileRegistered(t *testing.T) {
	r := New()

	var pendingDuringAbort int
	var id ID
	id, _ = r.Register(func() {
		// Identity must still be registered while the abort finalizer runs.
		pendingDuringAbort = r.PendingCount()
	}, "x")

	if !r.Abort(id) {
		t.Fatal("Abort should succeed on an active entry")
	}
	if pendingDuringAbort != 1 {
		t.Fatalf("entry was removed before the abort finalizer ran (pending=%d)", pendingDuringAbort)
	}
	if r.PendingCount() != 0 {
		t.Fatal("entry should be removed after abort")
	}
	if r.Reporter().Count() != 1 {
		t.Fatalf("leak count = %d, want 1", r.Reporter().Count())
	}

	ev := r.Reporter().Events()[0]
	if ev.ID != uint64(id) || ev.Site != "x" {
		t.Fatalf("unexpected leak event %+v", ev)
	}
}

func TestRegistry_AbortIdempotentUnderConcurrency(t *testing.T) {
	r := New()

	var aborts int32
	var mu sync.Mutex
	id, _ := r.Register(func() {
		mu.Lock()
		aborts++
		mu.Unlock()
	}, "x")

	var wg sync.WaitGroup
	wins := make(chan bool, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			wins <- r.Abort(id)
		}()
	}
	wg.Wait()
	close(wins)

	won := 0
	for w := range wins {
		if w {
			won++
		}
	}
	if won != 1 {
		t.Fatalf("%d concurrent aborts succeeded, want exactly 1", won)
	}
	if aborts != 1 {
		t.Fatalf("abort finalizer ran %d times, want exactly 1", aborts)
	}
	if r.Reporter().Count() != 1 {
		t.Fatalf("leak events = %d, want 1", r.Reporter().Count())
	}
}

func TestRegistry_ConcurrentConsumeRace(t *testing.T) {
	r := New()
	id, _ := r.Register(func() {}, "x")

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- r.BeginConsume(id)
		}()
	}
	wg.Wait()
	close(results)

	okCount, failCount := 0, 0
	for err := range results {
		if err == nil {
			okCount++
		} else if errors.IsKind(err, errors.KindAlreadyConsumed) {
			failCount++
		} else {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if okCount != 1 || failCount != 1 {
		t.Fatalf("ok=%d fail=%d, want exactly one of each", okCount, failCount)
	}
}

func TestRegistry_FinishConsumeAbnormal(t *testing.T) {
	r := New()

	aborted := false
	id, _ := r.Register(func() { aborted = true }, "x")

	r.BeginConsume(id)
	if !r.FinishConsume(id, true) {
		t.Fatal("abnormal FinishConsume should succeed")
	}
	if !aborted {
		t.Fatal("abort finalizer should run on abnormal completion")
	}
	if r.Reporter().Count() != 1 {
		t.Fatal("abnormal completion should record a leak")
	}
	if r.PendingCount() != 0 {
		t.Fatal("entry should be removed")
	}
}

func TestRegistry_CloseSweepsActiveEntries(t *testing.T) {
	r := New()

	var order []string
	if _, err := r.Register(func() { order = append(order, "a") }, "a"); err != nil {
		t.Fatal(err)
	}
	b, _ := r.Register(func() { order = append(order, "b") }, "b")
	if _, err := r.Register(func() { order = append(order, "c") }, "c"); err != nil {
		t.Fatal(err)
	}

	// b is consumed normally before teardown.
	r.BeginConsume(b)
	r.FinishConsume(b, false)

	if err := r.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if len(order) != 2 || order[0] != "a" || order[1] != "c" {
		t.Fatalf("sweep order = %v, want [a c] (creation order)", order)
	}
	if r.Reporter().Count() != 2 {
		t.Fatalf("leaks = %d, want 2", r.Reporter().Count())
	}
	if r.PendingCount() != 0 {
		t.Fatal("no entries should remain after Close")
	}

	if _, err := r.Register(func() {}, "late"); !errors.IsKind(err, errors.KindClosed) {
		t.Fatalf("Register after Close = %v, want closed", err)
	}
}

func TestRegistry_CloseLeavesConsumedPinned(t *testing.T) {
	r := New()

	aborted := false
	id, _ := r.Register(func() { aborted = true }, "x")
	r.BeginConsume(id)

	r.Close()

	if aborted {
		t.Fatal("Close must not abort an entry pinned in Consumed")
	}

	// The in-flight consumption still finalizes normally.
	if !r.FinishConsume(id, false) {
		t.Fatal("in-flight consumption should complete after Close")
	}
	if r.Reporter().Count() != 0 {
		t.Fatal("no leak expected")
	}
}

func TestRegistry_Observers(t *testing.T) {
	r := New()
	o := &testObserver{}
	r.Subscribe(o)

	id, _ := r.Register(func() {}, "s")
	r.BeginConsume(id)
	r.FinishConsume(id, false)

	id2, _ := r.Register(func() {}, "s2")
	r.Abort(id2)

	events := o.snapshot()
	want := []EventType{EventCreated, EventConsumed, EventCreated, EventAborted}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d", len(events), len(want))
	}
	for i, e := range events {
		if e.Type != want[i] {
			t.Fatalf("event %d = %v, want %v", i, e.Type, want[i])
		}
	}

	r.Unsubscribe(o)
	id3, _ := r.Register(func() {}, "s3")
	r.Abort(id3)
	if len(o.snapshot()) != len(want) {
		t.Fatal("unsubscribed observer should not receive events")
	}
}

func TestRegistry_Each(t *testing.T) {
	r := New()
	r.Register(func() {}, "one")
	r.Register(func() {}, "two")

	var sites []string
	r.Each(func(id ID, info Info) bool {
		sites = append(sites, info.Site)
		return true
	})

	if len(sites) != 2 || sites[0] != "one" || sites[1] != "two" {
		t.Fatalf("Each visited %v, want [one two] in creation order", sites)
	}

	// Early stop.
	visits := 0
	r.Each(func(ID, Info) bool {
		visits++
		return false
	})
	if visits != 1 {
		t.Fatalf("Each should stop when fn returns false, visited %d", visits)
	}
}

func TestRegistry_RegisterNilAbort(t *testing.T) {
	r := New()
	if _, err := r.Register(nil, "x"); !errors.IsKind(err, errors.KindInvalidInput) {
		t.Fatalf("Register with nil abort = %v, want invalid_input", err)
	}
}

func TestRegistry_Default(t *testing.T) {
	if Default() == nil {
		t.Fatal("Default registry should exist")
	}
	if Default() != Default() {
		t.Fatal("Default should return the same registry")
	}
}
