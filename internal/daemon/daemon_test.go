package daemon

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock fires immediately and records each requested delay.
type fakeClock struct {
	waits []time.Duration
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.waits = append(c.waits, d)
	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return ch
}

func TestRunBacksOffAndResets(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := &fakeClock{}
	results := []error{errors.New("offline"), errors.New("offline"), nil, errors.New("offline")}
	calls := 0
	cycle := func(context.Context) error {
		err := results[calls]
		calls++
		if calls == len(results) {
			cancel()
		}
		return err
	}

	err := Run(ctx, Config{
		Interval:    time.Hour,
		BaseBackoff: time.Minute,
		MaxBackoff:  30 * time.Minute,
		After:       clock.After,
	}, cycle)
	require.NoError(t, err)

	assert.Equal(t, 4, calls)
	assert.Equal(t, []time.Duration{time.Minute, 2 * time.Minute, time.Hour}, clock.waits)
}

func TestRunRecoversPanickingCycle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := &fakeClock{}
	calls := 0
	cycle := func(context.Context) error {
		calls++
		if calls == 1 {
			panic("boom")
		}
		cancel()
		return nil
	}

	require.NoError(t, Run(ctx, Config{BaseBackoff: time.Second, After: clock.After}, cycle))
	assert.Equal(t, 2, calls)
	assert.Equal(t, []time.Duration{time.Second}, clock.waits)
}

func TestRunStopsWhileWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	never := func(time.Duration) <-chan time.Time {
		cancel()
		return nil
	}

	calls := 0
	err := Run(ctx, Config{After: never}, func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestCalcBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{5, 16 * time.Second},
		{10, time.Minute},
		{200, time.Minute},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, calcBackoff(tt.attempt, time.Second, time.Minute), "attempt %d", tt.attempt)
	}
}

func TestConfigDefaults(t *testing.T) {
	c := Config{}.withDefaults()
	assert.Equal(t, DefaultInterval, c.Interval)
	assert.Equal(t, DefaultBaseBackoff, c.BaseBackoff)
	assert.Equal(t, DefaultMaxBackoff, c.MaxBackoff)
	assert.NotNil(t, c.After)
}
