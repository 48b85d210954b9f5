package pipeline

import (
	"fmt"
	"sync"
	"time"

	"github.com/sells-group/screener-cli/internal/model"
)

// progress tracks run counters. Safe for concurrent observe calls.
type progress struct {
	mu        sync.Mutex
	total     int
	processed int
	qualified int
	failed    int // disqualified but succeeded
	errors    int // terminal failures
	searches  int
	started   time.Time
}

func newProgress(total int) *progress {
	return &progress{total: total, started: time.Now()}
}

func (p *progress) observe(o *model.Outcome) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.processed++
	p.searches += o.Meta.Usage.WebSearchRequests
	switch {
	case o.Status != model.StatusSucceeded:
		p.errors++
	case o.Qualified():
		p.qualified++
	default:
		p.failed++
	}
}

// line formats a single-line progress summary with an ETA estimate.
func (p *progress) line() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	pct := 0.0
	if p.total > 0 {
		pct = float64(p.processed) / float64(p.total) * 100
	}

	eta := "calculating..."
	if p.processed > 0 {
		elapsed := time.Since(p.started)
		remaining := time.Duration(float64(elapsed) / float64(p.processed) * float64(p.total-p.processed))
		eta = fmt.Sprintf("%dm %ds", int(remaining.Minutes()), int(remaining.Seconds())%60)
	}

	avg := 0.0
	if p.processed > 0 {
		avg = float64(p.searches) / float64(p.processed)
	}

	return fmt.Sprintf("%d/%d (%.1f%%) | qualified: %d | disqualified: %d | errors: %d | searches: %d (avg %.1f) | eta: %s",
		p.processed, p.total, pct, p.qualified, p.failed, p.errors, p.searches, avg, eta)
}

func (p *progress) snapshot() (processed, qualified, disqualified, errors, searches int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.processed, p.qualified, p.failed, p.errors, p.searches
}
