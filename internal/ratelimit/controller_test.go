package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openGovernor() *Governor {
	// Ceiling high enough that admission never interferes with the
	// concurrency behavior under test.
	return NewGovernor(1_000_000, time.Minute)
}

func TestControllerDefaults(t *testing.T) {
	c := NewController(openGovernor(), ControllerConfig{})
	assert.Equal(t, 3, c.Budget())

	c = NewController(openGovernor(), ControllerConfig{Initial: 50, Ceiling: 10})
	assert.Equal(t, 10, c.Budget())
}

func TestControllerBoundNeverExceeded(t *testing.T) {
	c := NewController(openGovernor(), ControllerConfig{Initial: 3, Ceiling: 3})

	var (
		mu      sync.Mutex
		current int
		peak    int
	)

	var wg sync.WaitGroup
	for range 30 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, c.Acquire(context.Background()))

			mu.Lock()
			current++
			if current > peak {
				peak = current
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			current--
			mu.Unlock()
			c.Release(1)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak, 3)
	assert.Equal(t, 0, c.InFlight())
}

func TestControllerAcquireCancelled(t *testing.T) {
	c := NewController(openGovernor(), ControllerConfig{Initial: 1, Ceiling: 1})
	require.NoError(t, c.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := c.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	// The failed acquire holds no slot.
	assert.Equal(t, 1, c.InFlight())

	c.Release(0)
	assert.Equal(t, 0, c.InFlight())
}

func TestControllerAcquireCancelledDuringAdmission(t *testing.T) {
	gov := NewGovernor(10, time.Hour)
	gov.Record(10) // window saturated, admission will block
	c := NewController(gov, ControllerConfig{Initial: 2, Ceiling: 2})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := c.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	// The slot taken before the admission wait is rolled back.
	assert.Equal(t, 0, c.InFlight())
}

func TestControllerAdaptGrows(t *testing.T) {
	// Ceiling 30, items averaging 2 units: optimal 15 exceeds the current
	// budget, so the budget steps up by one per batch.
	gov := NewGovernor(30, time.Minute)
	c := NewController(gov, ControllerConfig{Initial: 3, Ceiling: 10, AdaptEvery: 10})

	for range 10 {
		c.Release(2)
	}
	assert.Equal(t, 4, c.Budget())

	for range 10 {
		c.Release(2)
	}
	assert.Equal(t, 5, c.Budget())
}

func TestControllerAdaptRespectsCeiling(t *testing.T) {
	gov := NewGovernor(1000, time.Minute)
	c := NewController(gov, ControllerConfig{Initial: 4, Ceiling: 5, AdaptEvery: 5})

	for range 20 {
		c.Release(1)
	}
	assert.Equal(t, 5, c.Budget())
}

func TestControllerAdaptShrinksWhenStarved(t *testing.T) {
	gov := NewGovernor(10, time.Hour)
	c := NewController(gov, ControllerConfig{Initial: 3, Floor: 1, Ceiling: 10, AdaptEvery: 10})

	// Saturate the window and provoke a refusal so the batch reads as
	// starved.
	gov.Record(10)
	gov.MayAdmit(1)

	for range 10 {
		c.Release(1)
	}
	assert.Equal(t, 2, c.Budget())
}

func TestControllerAdaptShrinksTowardOptimal(t *testing.T) {
	// Ceiling 30, items averaging 30 units: only one can run per window,
	// well below the current budget, so the budget steps down.
	gov := NewGovernor(30, time.Minute)
	c := NewController(gov, ControllerConfig{Initial: 3, Floor: 1, Ceiling: 10, AdaptEvery: 10})

	for range 10 {
		c.Release(30)
	}
	assert.Equal(t, 2, c.Budget())
}

func TestControllerAdaptNeverBelowFloor(t *testing.T) {
	gov := NewGovernor(10, time.Minute)
	c := NewController(gov, ControllerConfig{Initial: 1, Floor: 1, Ceiling: 10, AdaptEvery: 5})

	for range 25 {
		c.Release(50)
	}
	assert.Equal(t, 1, c.Budget())
}

func TestControllerRecordUsage(t *testing.T) {
	gov := NewGovernor(30, time.Minute)
	c := NewController(gov, ControllerConfig{})

	c.RecordUsage(4)
	c.RecordUsage(6)
	assert.Equal(t, 10, gov.WindowUnits())
}

func TestControllerGrowthWakesWaiters(t *testing.T) {
	gov := NewGovernor(1000, time.Minute)
	c := NewController(gov, ControllerConfig{Initial: 1, Ceiling: 2, AdaptEvery: 1})

	require.NoError(t, c.Acquire(context.Background()))

	acquired := make(chan struct{})
	go func() {
		if err := c.Acquire(context.Background()); err == nil {
			close(acquired)
		}
	}()

	// Give the waiter time to block, then trigger a growth adaptation
	// without releasing the held slot.
	time.Sleep(10 * time.Millisecond)
	c.Release(1) // frees the waiter's slot and grows the budget

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiter not woken after budget growth")
	}
}
