// Package ratelimit implements admission control for the research pipeline:
// a sliding-window governor over web-search consumption and an adaptive
// concurrency controller on top of it.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// defaultEstimate seeds the per-item consumption estimate before any real
// observations exist. Deliberately conservative: over-estimating delays
// admission, under-estimating risks blowing the window ceiling.
const defaultEstimate = 7

// estimateSampleSize bounds the number of recent observations the running
// average is computed over.
const estimateSampleSize = 20

type event struct {
	at    time.Time
	units int
}

// Governor tracks consumption of a metered resource (web search requests)
// over a trailing window and decides whether new work may be admitted.
// Admission is advisory — it uses an estimate, since actual consumption is
// only known after a call completes — but window accounting of recorded
// consumption is authoritative. In-flight work is never aborted for
// exceeding its estimate; the governor only delays new admissions.
type Governor struct {
	mu      sync.Mutex
	ceiling int
	window  time.Duration
	events  []event

	totalRequests int64
	totalUnits    int64
	recent        []int

	refusals int64

	now func() time.Time // injectable for tests
}

// GovernorStats is a snapshot of governor counters.
type GovernorStats struct {
	TotalRequests int64
	TotalUnits    int64
	WindowUnits   int
	AvgUnits      float64
}

// NewGovernor creates a governor with the given consumption ceiling per
// trailing window.
func NewGovernor(ceiling int, window time.Duration) *Governor {
	return &Governor{
		ceiling: ceiling,
		window:  window,
		now:     time.Now,
	}
}

// Record appends a timestamped consumption event. Called once per completed
// API attempt with the actual units consumed.
func (g *Governor) Record(units int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.prune()
	g.events = append(g.events, event{at: g.now(), units: units})
	g.totalRequests++
	g.totalUnits += int64(units)
	g.recent = append(g.recent, units)
	if len(g.recent) > estimateSampleSize {
		g.recent = g.recent[1:]
	}
}

// MayAdmit reports whether admitting work expected to consume estimate units
// keeps cumulative window consumption at or below the ceiling.
func (g *Governor) MayAdmit(estimate int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.prune()
	ok := g.windowUnits()+estimate <= g.ceiling
	if !ok {
		g.refusals++
	}
	return ok
}

// Wait blocks until MayAdmit(estimate) holds or ctx is cancelled. The sleep
// is sized to the expiry of the oldest window event rather than a fixed poll
// interval.
func (g *Governor) Wait(ctx context.Context, estimate int) error {
	for {
		g.mu.Lock()
		g.prune()
		if g.windowUnits()+estimate <= g.ceiling {
			g.mu.Unlock()
			return nil
		}
		g.refusals++

		sleep := 100 * time.Millisecond
		if len(g.events) > 0 {
			until := g.events[0].at.Add(g.window).Sub(g.now())
			if until > 0 {
				sleep = until + 100*time.Millisecond
			}
		}
		g.mu.Unlock()

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Estimate returns the expected per-item consumption: the running average of
// recent observations, or the conservative seed before enough data exists.
func (g *Governor) Estimate() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.recent) < 5 {
		return defaultEstimate
	}
	sum := 0
	for _, u := range g.recent {
		sum += u
	}
	est := (sum + len(g.recent) - 1) / len(g.recent) // round up
	if est < 1 {
		est = 1
	}
	return est
}

// WindowUnits returns the recorded consumption currently inside the window.
func (g *Governor) WindowUnits() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prune()
	return g.windowUnits()
}

// Refusals returns the cumulative number of refused admission checks. The
// controller samples this to detect starvation.
func (g *Governor) Refusals() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.refusals
}

// Stats returns a snapshot of governor counters.
func (g *Governor) Stats() GovernorStats {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.prune()
	s := GovernorStats{
		TotalRequests: g.totalRequests,
		TotalUnits:    g.totalUnits,
		WindowUnits:   g.windowUnits(),
	}
	if g.totalRequests > 0 {
		s.AvgUnits = float64(g.totalUnits) / float64(g.totalRequests)
	}
	return s
}

// prune drops events older than the window. Callers must hold g.mu.
func (g *Governor) prune() {
	cutoff := g.now().Add(-g.window)
	i := 0
	for i < len(g.events) && g.events[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		g.events = append(g.events[:0], g.events[i:]...)
	}
}

// windowUnits sums units inside the window. Callers must hold g.mu and have
// pruned first.
func (g *Governor) windowUnits() int {
	sum := 0
	for _, e := range g.events {
		sum += e.units
	}
	return sum
}
