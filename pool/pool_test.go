package pool

import (
	"context"
	"fmt"
	"testing"

	"github.com/strictmode/linear/errors"
	"github.com/strictmode/linear/registry"
)

type unit struct {
	n int
}

func newPool(t *testing.T, reg *registry.Registry, size int) *Pool[unit] {
	t.Helper()
	units := make([]unit, size)
	for i := range units {
		units[i] = unit{n: i}
	}
	p, err := New(reg, "free", units, func(unit) {})
	if err != nil {
		t.Fatalf("pool.New failed: %v", err)
	}
	return p
}

func TestPool_CreateOnceAtInit(t *testing.T) {
	reg := registry.New()
	p := newPool(t, reg, 10)

	if p.Capacity() != 10 {
		t.Fatalf("Capacity = %d, want 10", p.Capacity())
	}
	if p.Count("free") != 10 {
		t.Fatalf(`Count("free") = %d, want 10`, p.Count("free"))
	}
	if reg.PendingCount() != 10 {
		t.Fatalf("registry pending = %d, want 10", reg.PendingCount())
	}
}

func TestPool_MoveConservesUnits(t *testing.T) {
	reg := registry.New()
	p := newPool(t, reg, 10)

	if err := p.Move("free", "shields", 4); err != nil {
		t.Fatalf("Move failed: %v", err)
	}
	if err := p.Move("free", "engines", 6); err != nil {
		t.Fatalf("Move failed: %v", err)
	}

	if p.Count("free") != 0 || p.Count("shields") != 4 || p.Count("engines") != 6 {
		t.Fatalf("counts free=%d shields=%d engines=%d", p.Count("free"), p.Count("shields"), p.Count("engines"))
	}
	if p.Pooled() != 10 {
		t.Fatalf("Pooled = %d, want 10 (conservation)", p.Pooled())
	}
	if reg.PendingCount() != 10 {
		t.Fatal("moving units must not create or destroy handles")
	}

	// Divert power: shields -> engines.
	if err := p.Move("shields", "engines", 2); err != nil {
		t.Fatalf("Move failed: %v", err)
	}
	if p.Count("shields") != 2 || p.Count("engines") != 8 {
		t.Fatal("divert did not conserve units")
	}
}

func TestPool_MoveInsufficient(t *testing.T) {
	reg := registry.New()
	p := newPool(t, reg, 3)

	err := p.Move("free", "shields", 5)
	if !errors.IsKind(err, errors.KindInsufficient) {
		t.Fatalf("Move = %v, want insufficient_units", err)
	}
	if p.Count("free") != 3 || p.Count("shields") != 0 {
		t.Fatal("failed move must not transfer anything")
	}

	if err := p.Move("free", "shields", 0); !errors.IsKind(err, errors.KindInvalidInput) {
		t.Fatalf("Move of 0 = %v, want invalid_input", err)
	}
	if err := p.Move("free", "free", 2); err != nil {
		t.Fatalf("Move to same slot should be a no-op, got %v", err)
	}
}

func TestPool_TakeAndPut(t *testing.T) {
	reg := registry.New()
	p := newPool(t, reg, 2)

	h, err := p.Take("free")
	if err != nil {
		t.Fatalf("Take failed: %v", err)
	}
	if p.Pooled() != 1 || p.Outstanding() != 1 {
		t.Fatalf("pooled=%d outstanding=%d, want 1/1", p.Pooled(), p.Outstanding())
	}

	if err := p.Put("free", h); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if p.Pooled() != 2 || p.Outstanding() != 0 {
		t.Fatal("Put should restore the unit")
	}

	// Double Put: the handle is already pooled.
	if err := p.Put("free", h); !errors.IsKind(err, errors.KindDuplicateResource) {
		t.Fatalf("double Put = %v, want duplicate_resource", err)
	}
}

func TestPool_PutForeignHandle(t *testing.T) {
	reg := registry.New()
	p := newPool(t, reg, 1)
	other := newPool(t, reg, 1)

	h, _ := other.Take("free")
	if err := p.Put("free", h); !errors.IsKind(err, errors.KindInvalidInput) {
		t.Fatalf("Put of foreign handle = %v, want invalid_input", err)
	}
	h.Abandon()
}

func TestPool_PutConsumedHandle(t *testing.T) {
	reg := registry.New()
	p := newPool(t, reg, 1)

	h, _ := p.Take("free")
	if err := h.Consume(context.Background(), func(context.Context, unit) error { return nil }); err != nil {
		t.Fatalf("Consume failed: %v", err)
	}

	if err := p.Put("free", h); !errors.IsKind(err, errors.KindAlreadyConsumed) {
		t.Fatalf("Put of consumed handle = %v, want already_consumed", err)
	}
	if p.Pooled() != 0 {
		t.Fatal("consumed unit must not re-enter the pool")
	}
}

func TestPool_TakeEmptySlot(t *testing.T) {
	reg := registry.New()
	p := newPool(t, reg, 1)

	if _, err := p.Take("shields"); !errors.IsKind(err, errors.KindInsufficient) {
		t.Fatalf("Take from empty slot = %v, want insufficient_units", err)
	}
}

func TestPool_DrainConsumesEverything(t *testing.T) {
	reg := registry.New()
	p := newPool(t, reg, 5)
	p.Move("free", "shields", 2)

	consumed := 0
	err := p.Drain(context.Background(), func(_ context.Context, u unit) error {
		consumed++
		return nil
	})
	if err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if consumed != 5 {
		t.Fatalf("consumed %d units, want 5", consumed)
	}
	if reg.PendingCount() != 0 {
		t.Fatal("all units should be finalized")
	}
	if reg.Reporter().Count() != 0 {
		t.Fatal("drain is the normal path; no leaks expected")
	}
}

func TestPool_DrainAggregatesErrors(t *testing.T) {
	reg := registry.New()
	p := newPool(t, reg, 3)

	err := p.Drain(context.Background(), func(_ context.Context, u unit) error {
		if u.n%2 == 0 {
			return fmt.Errorf("unit %d failed", u.n)
		}
		return nil
	})
	if err == nil {
		t.Fatal("expected aggregated error")
	}
	if reg.PendingCount() != 0 {
		t.Fatal("every unit must be finalized even when some consumers fail")
	}
}

func TestPool_AbandonAbortsPooledUnits(t *testing.T) {
	reg := registry.New()

	aborts := 0
	units := []unit{{1}, {2}, {3}}
	p, err := New(reg, "free", units, func(unit) { aborts++ })
	if err != nil {
		t.Fatalf("pool.New failed: %v", err)
	}

	h, _ := p.Take("free")

	if n := p.Abandon(); n != 2 {
		t.Fatalf("Abandon = %d, want 2 (outstanding unit untouched)", n)
	}
	if aborts != 2 {
		t.Fatalf("abort finalizers ran %d times, want 2", aborts)
	}
	if reg.Reporter().Count() != 2 {
		t.Fatalf("leak events = %d, want 2", reg.Reporter().Count())
	}

	// The outstanding unit is still the caller's responsibility.
	if err := h.Consume(context.Background(), func(context.Context, unit) error { return nil }); err != nil {
		t.Fatalf("outstanding unit should still be consumable: %v", err)
	}
	if reg.PendingCount() != 0 {
		t.Fatal("all handles should be finalized")
	}
}

func TestPool_NewValidation(t *testing.T) {
	reg := registry.New()

	if _, err := New(reg, "free", []unit{}, func(unit) {}); !errors.IsKind(err, errors.KindInvalidInput) {
		t.Fatalf("empty units = %v, want invalid_input", err)
	}
	if _, err := New(reg, "", []unit{{1}}, func(unit) {}); !errors.IsKind(err, errors.KindInvalidInput) {
		t.Fatalf("empty slot = %v, want invalid_input", err)
	}
	if _, err := New[unit](reg, "free", []unit{{1}}, nil); !errors.IsKind(err, errors.KindInvalidInput) {
		t.Fatalf("nil abort = %v, want invalid_input", err)
	}
}

func TestPool_NewOnClosedRegistryUnwinds(t *testing.T) {
	reg := registry.New()
	reg.Close()

	if _, err := New(reg, "free", []unit{{1}, {2}}, func(unit) {}); !errors.IsKind(err, errors.KindClosed) {
		t.Fatalf("New on closed registry = %v, want closed", err)
	}
	if reg.PendingCount() != 0 {
		t.Fatal("no handles should survive a failed pool construction")
	}
}
