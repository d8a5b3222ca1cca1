package chain

import (
	"context"
	"testing"
	"time"
)

func newTestGovernor(ceiling int) (*Governor, *[]time.Duration) {
	var slept []time.Duration
	g := NewGovernor(ceiling, time.Second)
	g.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return g, &slept
}

func TestGovernorCooldownAtCeiling(t *testing.T) {
	g, slept := newTestGovernor(3)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := g.Guard(ctx); err != nil {
			t.Fatalf("guard: %v", err)
		}
	}
	if len(*slept) != 0 {
		t.Fatalf("unexpected cooldown before ceiling: %v", *slept)
	}

	if err := g.Guard(ctx); err != nil {
		t.Fatalf("guard: %v", err)
	}
	if len(*slept) != 1 || (*slept)[0] != time.Second {
		t.Fatalf("expected one 1s cooldown, got %v", *slept)
	}
	if g.Calls() != 0 {
		t.Fatalf("counter not reset after cooldown: %d", g.Calls())
	}

	for i := 0; i < 3; i++ {
		_ = g.Guard(ctx)
	}
	if len(*slept) != 2 {
		t.Fatalf("expected second cooldown, got %v", *slept)
	}
}

func TestGovernorReset(t *testing.T) {
	g, slept := newTestGovernor(3)
	ctx := context.Background()

	_ = g.Guard(ctx)
	_ = g.Guard(ctx)
	g.Reset()
	if g.Calls() != 0 {
		t.Fatalf("reset did not zero counter: %d", g.Calls())
	}
	_ = g.Guard(ctx)
	_ = g.Guard(ctx)
	if len(*slept) != 0 {
		t.Fatalf("cooldown should not trigger after reset: %v", *slept)
	}
}

func TestGovernorDisabled(t *testing.T) {
	g, slept := newTestGovernor(0)
	for i := 0; i < 100; i++ {
		_ = g.Guard(context.Background())
	}
	if len(*slept) != 0 {
		t.Fatalf("disabled governor slept: %v", *slept)
	}

	var nilGovernor *Governor
	if err := nilGovernor.Guard(context.Background()); err != nil {
		t.Fatalf("nil governor guard: %v", err)
	}
}

func TestGovernorCooldownCancelled(t *testing.T) {
	g := NewGovernor(1, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := g.Guard(ctx); err == nil {
		t.Fatalf("expected context error")
	}
}
