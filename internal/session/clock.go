// Package session implements the interview lifecycle: the reload-surviving
// countdown clock, the append-only conversation log, the decision resolver,
// and the orchestrator that composes them.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wangxuanyi/hireloop/client/internal/model/interview"
	"github.com/wangxuanyi/hireloop/client/internal/store"
)

// Clock is the session countdown. The budget and start instant are persisted
// so a restart resumes from the true remaining time instead of resetting to
// the full budget; the live ticker is just a projection of that pair.
type Clock struct {
	store store.Store
	now   func() time.Time

	mu       sync.Mutex
	resumeID string
	cancel   context.CancelFunc
	ticks    chan int
	expired  chan struct{}
	signaled bool
}

// NewClock builds a clock over the persisted store.
func NewClock(st store.Store) *Clock {
	return &Clock{
		store:   st,
		now:     time.Now,
		ticks:   make(chan int, 8),
		expired: make(chan struct{}),
	}
}

// Initialize starts (or resumes) the countdown for a resume id and returns
// the remaining seconds. First call persists (now, budget); later calls
// derive remaining from the stored pair and never reset to the full budget.
func (c *Clock) Initialize(ctx context.Context, resumeID string, budgetSeconds int) (int, error) {
	rec, ok, err := c.store.GetClock(ctx, resumeID)
	if err != nil {
		return 0, err
	}
	if !ok {
		rec = interview.ClockRecord{
			StartTime:     c.now().UTC(),
			BudgetSeconds: budgetSeconds,
		}
		if err := c.store.SetClock(ctx, resumeID, rec); err != nil {
			return 0, err
		}
	}

	remaining := rec.Remaining(c.now())

	c.mu.Lock()
	c.resumeID = resumeID
	if c.cancel != nil {
		c.cancel()
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	if remaining == 0 {
		c.signalExpired(ctx)
		return 0, nil
	}

	go c.run(runCtx, remaining)
	return remaining, nil
}

// Ticks emits the remaining seconds once per second while the countdown
// runs. Slow consumers miss ticks rather than stalling the clock.
func (c *Clock) Ticks() <-chan int { return c.ticks }

// Expired is closed exactly once, when the countdown reaches zero. Reaching
// zero also clears the persisted pair.
func (c *Clock) Expired() <-chan struct{} { return c.expired }

// Stop cancels the live countdown without touching persisted state.
func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Clock) run(ctx context.Context, remaining int) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			remaining--
			if remaining <= 0 {
				c.signalExpired(context.Background())
				return
			}
			select {
			case c.ticks <- remaining:
			default:
			}
		}
	}
}

func (c *Clock) signalExpired(ctx context.Context) {
	c.mu.Lock()
	resumeID := c.resumeID
	already := c.signaled
	if !already {
		c.signaled = true
	}
	c.mu.Unlock()

	if already {
		return
	}
	if err := c.store.ClearClock(ctx, resumeID); err != nil {
		log.Debug().Str("component", "clock").Err(err).Msg("failed to clear expired clock")
	}
	close(c.expired)
}
