package ratelimit

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// ControllerConfig bounds and tunes the adaptive concurrency budget.
type ControllerConfig struct {
	// Initial is the starting budget. Default: 3.
	Initial int
	// Floor is the minimum budget. Default: 1.
	Floor int
	// Ceiling is the maximum budget. Default: 10.
	Ceiling int
	// AdaptEvery is how many releases trigger a budget re-evaluation.
	// Default: 10.
	AdaptEvery int
}

func (c ControllerConfig) withDefaults() ControllerConfig {
	if c.Initial <= 0 {
		c.Initial = 3
	}
	if c.Floor <= 0 {
		c.Floor = 1
	}
	if c.Ceiling <= 0 {
		c.Ceiling = 10
	}
	if c.AdaptEvery <= 0 {
		c.AdaptEvery = 10
	}
	if c.Initial < c.Floor {
		c.Initial = c.Floor
	}
	if c.Initial > c.Ceiling {
		c.Initial = c.Ceiling
	}
	return c
}

// Controller bounds simultaneously in-flight work and adapts the bound from
// observed per-item consumption. Acquire is the single blocking point the
// pipeline exposes: it waits for both a free slot under the current budget
// and the governor's admission.
type Controller struct {
	gov *Governor
	cfg ControllerConfig

	mu       sync.Mutex
	cond     *sync.Cond
	limit    int
	inflight int

	sinceAdapt   int
	batchUnits   int
	lastRefusals int64
}

// NewController creates a controller backed by the given governor.
func NewController(gov *Governor, cfg ControllerConfig) *Controller {
	c := &Controller{
		gov:   gov,
		cfg:   cfg.withDefaults(),
		limit: cfg.withDefaults().Initial,
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Acquire blocks until a slot is free under the current budget and the
// governor admits the estimated consumption. Returns ctx.Err() on
// cancellation, in which case no slot is held.
func (c *Controller) Acquire(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		c.mu.Lock()
		c.cond.Broadcast()
		c.mu.Unlock()
	})
	defer stop()

	c.mu.Lock()
	for c.inflight >= c.limit && ctx.Err() == nil {
		c.cond.Wait()
	}
	if err := ctx.Err(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.inflight++
	c.mu.Unlock()

	// Admission check happens outside the lock: governor waits can span
	// most of a window and must not block releases.
	if err := c.gov.Wait(ctx, c.gov.Estimate()); err != nil {
		c.mu.Lock()
		c.inflight--
		c.cond.Signal()
		c.mu.Unlock()
		return err
	}
	return nil
}

// Release returns a slot and feeds the observed per-item consumption into
// budget adaptation. units is the item's total consumption across attempts.
func (c *Controller) Release(units int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inflight > 0 {
		c.inflight--
	}
	c.batchUnits += units
	c.sinceAdapt++
	if c.sinceAdapt >= c.cfg.AdaptEvery {
		c.adapt()
	}
	c.cond.Signal()
}

// RecordUsage reports consumption from one completed API attempt to the
// governor's window accounting. Called per attempt, unlike Release which is
// per item.
func (c *Controller) RecordUsage(units int) {
	c.gov.Record(units)
}

// Budget returns the current concurrency budget.
func (c *Controller) Budget() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.limit
}

// InFlight returns the number of currently held slots.
func (c *Controller) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight
}

// adapt re-evaluates the budget after a batch of releases. Callers must hold
// c.mu.
//
// Policy: size the budget toward ceiling/avg — the number of items that can
// run per window without exceeding it — moving one step at a time. If the
// governor refused admissions during the batch, the estimate is already
// outrunning the window, so step down instead.
func (c *Controller) adapt() {
	avg := float64(c.batchUnits) / float64(c.sinceAdapt)
	refusals := c.gov.Refusals()
	starved := refusals > c.lastRefusals
	c.lastRefusals = refusals
	c.sinceAdapt = 0
	c.batchUnits = 0

	prev := c.limit
	switch {
	case starved && c.limit > c.cfg.Floor:
		c.limit--
	case !starved:
		if avg < 1 {
			avg = 1
		}
		optimal := int(float64(c.gov.ceiling) / avg)
		if optimal > c.limit && c.limit < c.cfg.Ceiling {
			c.limit++
		} else if optimal < c.limit-1 && c.limit > c.cfg.Floor {
			c.limit--
		}
	}

	if c.limit != prev {
		zap.L().Info("concurrency budget adjusted",
			zap.Int("from", prev),
			zap.Int("to", c.limit),
			zap.Float64("avg_units_per_item", avg),
			zap.Bool("starved", starved),
		)
		if c.limit > prev {
			c.cond.Broadcast()
		}
	}
}
