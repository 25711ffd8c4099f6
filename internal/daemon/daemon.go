// Package daemon runs the unattended inventory cycle on a fixed interval.
package daemon

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"time"
)

// Cycle is one unattended inventory pass, typically scan, store and sync.
type Cycle func(ctx context.Context) error

// Config holds agent-mode scheduling.
type Config struct {
	// Interval between successful cycles.
	Interval time.Duration
	// BaseBackoff and MaxBackoff bound the retry delay after a failed
	// cycle. The delay never exceeds Interval.
	BaseBackoff time.Duration
	MaxBackoff  time.Duration

	// After is the timer used between cycles. Defaults to time.After.
	After func(time.Duration) <-chan time.Time
}

const (
	DefaultInterval    = 24 * time.Hour
	DefaultBaseBackoff = 1 * time.Minute
	DefaultMaxBackoff  = 1 * time.Hour
)

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = DefaultBaseBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = DefaultMaxBackoff
	}
	if c.After == nil {
		c.After = time.After
	}
	return c
}

// Run performs a cycle immediately and then one per interval until ctx is
// cancelled. A failed cycle is retried with exponential backoff; the first
// success resets it. Run returns nil on cancellation.
func Run(ctx context.Context, cfg Config, cycle Cycle) error {
	cfg = cfg.withDefaults()
	log.Printf("Agent started; inventory every %s", cfg.Interval)

	failures := 0
	for {
		err := runCycle(ctx, cycle)
		if ctx.Err() != nil {
			log.Println("Agent shutting down")
			return nil
		}

		wait := cfg.Interval
		if err != nil {
			failures++
			wait = min(calcBackoff(failures, cfg.BaseBackoff, cfg.MaxBackoff), cfg.Interval)
			log.Printf("Inventory cycle failed (attempt %d): %v; retrying in %s", failures, err, wait)
		} else {
			failures = 0
			log.Printf("Inventory cycle complete; next run in %s", wait)
		}

		select {
		case <-ctx.Done():
			log.Println("Agent shutting down")
			return nil
		case <-cfg.After(wait):
		}
	}
}

func runCycle(ctx context.Context, cycle Cycle) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("panic: %v\n%s", v, debug.Stack())
		}
	}()
	return cycle(ctx)
}

func calcBackoff(attempt int, base, maxDelay time.Duration) time.Duration {
	d := base
	for i := 1; i < attempt && d < maxDelay; i++ {
		d *= 2
	}
	return min(d, maxDelay)
}
