// Package aggregate consolidates persisted outcomes into reports: combined
// and filtered JSON collections, flattened CSV/XLSX projections, and summary
// statistics. It is read-only with respect to the outcome store and can be
// run repeatedly, independently of the pipeline.
package aggregate

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/screener-cli/internal/model"
	"github.com/sells-group/screener-cli/internal/outcomes"
)

// UsageTotals sums resource consumption across all outcomes.
type UsageTotals struct {
	TotalWebSearches      int     `json:"total_web_searches"`
	AvgSearchesPerCompany float64 `json:"avg_searches_per_company"`
	TotalInputTokens      int64   `json:"total_input_tokens"`
	TotalOutputTokens     int64   `json:"total_output_tokens"`
	TotalCacheReadTokens  int64   `json:"total_cache_read_tokens"`
}

// Stats is the run-level summary the aggregator produces.
type Stats struct {
	Total             int         `json:"total"`
	Qualified         int         `json:"qualified"`
	Disqualified      int         `json:"disqualified"`
	Errors            int         `json:"errors"`
	QualificationRate string      `json:"qualification_rate"`
	Usage             UsageTotals `json:"usage"`
}

// Aggregator reads the outcome store and writes report files to outDir.
type Aggregator struct {
	store  *outcomes.Store
	outDir string
}

// New creates an aggregator writing into outDir.
func New(store *outcomes.Store, outDir string) (*Aggregator, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "aggregate: mkdir %s", outDir)
	}
	return &Aggregator{store: store, outDir: outDir}, nil
}

// Run scans all outcomes, partitions them by qualification, and writes the
// report files. Unreadable outcome files are logged and skipped.
func (a *Aggregator) Run(ctx context.Context) (*Stats, error) {
	names, err := a.store.List()
	if err != nil {
		return nil, err
	}

	var all, qualified, disqualified, failed []*model.Outcome
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "aggregate: cancelled")
		}

		o, err := a.store.Read(name)
		if err != nil {
			zap.L().Warn("skipping unreadable outcome file",
				zap.String("file", name),
				zap.Error(err),
			)
			continue
		}

		all = append(all, o)
		switch {
		case o.Status != model.StatusSucceeded:
			failed = append(failed, o)
		case o.Qualified():
			qualified = append(qualified, o)
		default:
			disqualified = append(disqualified, o)
		}
	}

	if err := a.writeJSON("full_results.json", all); err != nil {
		return nil, err
	}
	if err := a.writeJSON("qualified.json", qualified); err != nil {
		return nil, err
	}
	if err := a.writeJSON("disqualified.json", disqualified); err != nil {
		return nil, err
	}
	if len(failed) > 0 {
		if err := a.writeJSON("errors.json", failed); err != nil {
			return nil, err
		}
	}

	if len(qualified) > 0 {
		if err := a.writeCSV("qualified.csv", qualified); err != nil {
			return nil, err
		}
		if err := a.writeXLSX("qualified.xlsx", qualified); err != nil {
			return nil, err
		}
	}
	if len(all) > 0 {
		if err := a.writeCSV("all_results.csv", all); err != nil {
			return nil, err
		}
	}

	stats := buildStats(all, qualified, disqualified, failed)
	if err := a.writeJSON("statistics.json", stats); err != nil {
		return nil, err
	}

	zap.L().Info("aggregation complete",
		zap.Int("total", stats.Total),
		zap.Int("qualified", stats.Qualified),
		zap.Int("disqualified", stats.Disqualified),
		zap.Int("errors", stats.Errors),
		zap.String("qualification_rate", stats.QualificationRate),
	)
	return stats, nil
}

func buildStats(all, qualified, disqualified, failed []*model.Outcome) *Stats {
	stats := &Stats{
		Total:             len(all),
		Qualified:         len(qualified),
		Disqualified:      len(disqualified),
		Errors:            len(failed),
		QualificationRate: "0%",
	}
	if stats.Total > 0 {
		stats.QualificationRate = fmt.Sprintf("%.1f%%", float64(stats.Qualified)/float64(stats.Total)*100)
	}

	for _, o := range all {
		u := o.Meta.Usage
		stats.Usage.TotalWebSearches += u.WebSearchRequests
		stats.Usage.TotalInputTokens += u.InputTokens
		stats.Usage.TotalOutputTokens += u.OutputTokens
		stats.Usage.TotalCacheReadTokens += u.CacheReadTokens
	}
	if stats.Total > 0 {
		stats.Usage.AvgSearchesPerCompany = float64(stats.Usage.TotalWebSearches) / float64(stats.Total)
	}
	return stats
}

// writeJSON writes v atomically: temp file in the output directory, then
// rename over the final name.
func (a *Aggregator) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrapf(err, "aggregate: marshal %s", name)
	}

	tmp, err := os.CreateTemp(a.outDir, ".tmp-*")
	if err != nil {
		return eris.Wrap(err, "aggregate: create temp file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return eris.Wrapf(err, "aggregate: write %s", name)
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrapf(err, "aggregate: close %s", name)
	}
	return eris.Wrapf(os.Rename(tmpName, filepath.Join(a.outDir, name)), "aggregate: rename %s", name)
}

func (a *Aggregator) writeCSV(name string, outs []*model.Outcome) error {
	f, err := os.Create(filepath.Join(a.outDir, name))
	if err != nil {
		return eris.Wrapf(err, "aggregate: create %s", name)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(headerRow()); err != nil {
		return eris.Wrapf(err, "aggregate: write header %s", name)
	}
	for _, o := range outs {
		if err := w.Write(flattenRow(o)); err != nil {
			return eris.Wrapf(err, "aggregate: write row %s", name)
		}
	}
	w.Flush()
	return eris.Wrapf(w.Error(), "aggregate: flush %s", name)
}
