// Package pipeline drives the batch run: it enumerates pending work,
// acquires admission per item, dispatches to the executor, and persists
// outcomes so an interrupted run resumes without re-billing completed work.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/screener-cli/internal/ledger"
	"github.com/sells-group/screener-cli/internal/model"
	"github.com/sells-group/screener-cli/internal/outcomes"
	"github.com/sells-group/screener-cli/internal/ratelimit"
)

// ItemExecutor processes one company to a terminal outcome.
type ItemExecutor interface {
	Execute(ctx context.Context, company model.Company) *model.Outcome
}

// Summary reports what a run did.
type Summary struct {
	RunID        string        `json:"run_id"`
	Total        int           `json:"total"`
	Skipped      int           `json:"skipped"`
	Processed    int           `json:"processed"`
	Qualified    int           `json:"qualified"`
	Disqualified int           `json:"disqualified"`
	Errors       int           `json:"errors"`
	WebSearches  int           `json:"web_searches"`
	Elapsed      time.Duration `json:"elapsed"`
}

// Driver wires the controller, executor, outcome store and ledger together.
type Driver struct {
	exec   ItemExecutor
	ctrl   *ratelimit.Controller
	store  *outcomes.Store
	ledger *ledger.Ledger
	force  bool
	limit  int
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithForce disables resume filtering: every enumerated company is processed
// even if the ledger already has a terminal entry for it. Outcome files and
// ledger entries are overwritten in place.
func WithForce() DriverOption {
	return func(d *Driver) {
		d.force = true
	}
}

// WithLimit caps how many companies one run processes. The cap applies to the
// pending set, after resume filtering, so a limited run on a partly-done work
// list still makes progress.
func WithLimit(n int) DriverOption {
	return func(d *Driver) {
		d.limit = n
	}
}

// NewDriver creates a driver.
func NewDriver(exec ItemExecutor, ctrl *ratelimit.Controller, store *outcomes.Store, l *ledger.Ledger, opts ...DriverOption) *Driver {
	d := &Driver{exec: exec, ctrl: ctrl, store: store, ledger: l}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Pending returns the companies that still need processing: everything whose
// identity key has no terminal ledger entry (or everything, under WithForce),
// capped by WithLimit.
func (d *Driver) Pending(ctx context.Context, companies []model.Company) ([]model.Company, error) {
	pending := companies
	if !d.force {
		done, err := d.ledger.TerminalKeys(ctx)
		if err != nil {
			return nil, err
		}

		pending = make([]model.Company, 0, len(companies))
		for _, c := range companies {
			if _, ok := done[c.Key()]; ok {
				continue
			}
			pending = append(pending, c)
		}
	}

	if d.limit > 0 && len(pending) > d.limit {
		pending = pending[:d.limit]
	}
	return pending, nil
}

// Run processes every company not already terminal in the ledger.
//
// ctx governs admission: when it is cancelled, no new slots are acquired,
// but items already in flight run to completion (each API attempt carries
// its own timeout) and their outcomes are persisted, so the store stays
// consistent and resumable. Per-item failures are recorded and never abort
// the run; only persistence failures do.
func (d *Driver) Run(ctx context.Context, companies []model.Company) (*Summary, error) {
	start := time.Now()
	runID := uuid.New().String()
	log := zap.L().With(zap.String("run_id", runID))

	pending, err := d.Pending(ctx, companies)
	if err != nil {
		return nil, err
	}
	skipped := len(companies) - len(pending)

	log.Info("starting run",
		zap.Int("companies", len(companies)),
		zap.Int("pending", len(pending)),
		zap.Int("skipped", skipped),
		zap.Int("concurrency", d.ctrl.Budget()),
	)

	prog := newProgress(len(pending))

	// In-flight work and persistence outlive admission cancellation.
	finishCtx := context.WithoutCancel(ctx)

	// The first item runs sequentially so the cached system prompt is warm
	// before the concurrent fan-out.
	if len(pending) > 0 {
		if err := d.processOne(ctx, finishCtx, pending[0], prog, log); err != nil {
			return nil, err
		}
		pending = pending[1:]
	}

	g := new(errgroup.Group)
	for _, c := range pending {
		g.Go(func() error {
			return d.processOne(ctx, finishCtx, c, prog, log)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	processed, qualified, disqualified, errors, searches := prog.snapshot()
	summary := &Summary{
		RunID:        runID,
		Total:        len(companies),
		Skipped:      skipped,
		Processed:    processed,
		Qualified:    qualified,
		Disqualified: disqualified,
		Errors:       errors,
		WebSearches:  searches,
		Elapsed:      time.Since(start),
	}

	log.Info("run complete",
		zap.Int("processed", summary.Processed),
		zap.Int("qualified", summary.Qualified),
		zap.Int("disqualified", summary.Disqualified),
		zap.Int("errors", summary.Errors),
		zap.Int("web_searches", summary.WebSearches),
		zap.Duration("elapsed", summary.Elapsed),
		zap.Bool("interrupted", ctx.Err() != nil),
	)
	return summary, nil
}

// processOne runs a single company through acquire → execute → persist.
// admitCtx gates admission only; finishCtx covers execution and persistence.
func (d *Driver) processOne(admitCtx, finishCtx context.Context, c model.Company, prog *progress, log *zap.Logger) error {
	if err := d.ctrl.Acquire(admitCtx); err != nil {
		// Run-level cancellation: stop quietly, the item stays pending.
		return nil
	}

	out := d.exec.Execute(finishCtx, c)
	d.ctrl.Release(out.Meta.Usage.WebSearchRequests)

	if err := d.persist(finishCtx, out); err != nil {
		log.Error("failed to persist outcome", zap.String("company", c.Name), zap.Error(err))
		return err
	}

	prog.observe(out)
	log.Info("company processed",
		zap.String("company", c.Name),
		zap.String("status", string(out.Status)),
		zap.Int("web_searches", out.Meta.Usage.WebSearchRequests),
		zap.String("progress", prog.line()),
	)
	return nil
}

// persist writes the outcome file first, then the ledger entry. The
// ordering matters: a crash between the two steps leaves an outcome file the
// next reconciliation picks up, never a ledger entry without a file.
func (d *Driver) persist(ctx context.Context, out *model.Outcome) error {
	name, err := d.store.Write(out)
	if err != nil {
		return err
	}
	return d.ledger.Put(ctx, ledger.Entry{
		Key:     out.Key,
		Company: out.Input.Name,
		Status:  out.Status,
		File:    name,
	})
}
