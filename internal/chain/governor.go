package chain

import (
	"context"
	"sync"
	"time"
)

// DefaultCooldown is the pause applied once the call ceiling is reached.
const DefaultCooldown = time.Second

// Governor bounds the number of outbound queries issued between cooldowns.
// A Governor is created once per process and reset at the start of each cycle.
type Governor struct {
	mu       sync.Mutex
	ceiling  int
	cooldown time.Duration
	calls    int
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewGovernor returns a Governor that pauses for cooldown every ceiling calls.
// A ceiling <= 0 disables throttling.
func NewGovernor(ceiling int, cooldown time.Duration) *Governor {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Governor{
		ceiling:  ceiling,
		cooldown: cooldown,
		sleep:    sleepContext,
	}
}

// Guard must be called before every outbound query. When the number of calls
// since the last reset reaches the ceiling, Guard blocks for the cooldown and
// starts a new count.
func (g *Governor) Guard(ctx context.Context) error {
	if g == nil {
		return nil
	}

	g.mu.Lock()
	g.calls++
	wait := g.ceiling > 0 && g.calls >= g.ceiling
	if wait {
		g.calls = 0
	}
	g.mu.Unlock()

	if !wait {
		return nil
	}
	return g.sleep(ctx, g.cooldown)
}

// Reset zeroes the call counter.
func (g *Governor) Reset() {
	if g == nil {
		return
	}
	g.mu.Lock()
	g.calls = 0
	g.mu.Unlock()
}

// Calls returns the number of calls since the last reset or cooldown.
func (g *Governor) Calls() int {
	if g == nil {
		return 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
