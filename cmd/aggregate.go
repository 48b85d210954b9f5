package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/screener-cli/internal/aggregate"
	"github.com/sells-group/screener-cli/internal/outcomes"
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Aggregate persisted outcomes into reports",
	Long:  "Reads all persisted outcome files and writes the combined, qualified-only, and disqualified-only collections, the flattened CSV/XLSX exports, and summary statistics. Safe to run repeatedly.",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := outcomes.NewStore(cfg.Paths.RawDir)
		if err != nil {
			return err
		}
		return runAggregation(cmd.Context(), store)
	},
}

func init() {
	rootCmd.AddCommand(aggregateCmd)
}

func runAggregation(ctx context.Context, store *outcomes.Store) error {
	agg, err := aggregate.New(store, cfg.Paths.OutputDir)
	if err != nil {
		return err
	}

	stats, err := agg.Run(ctx)
	if err != nil {
		return err
	}

	printStats(stats)
	return nil
}

func printStats(stats *aggregate.Stats) {
	fmt.Println()
	fmt.Println("==================================================")
	fmt.Println("AGGREGATION COMPLETE")
	fmt.Println("==================================================")
	fmt.Printf("Total companies processed: %d\n", stats.Total)
	fmt.Printf("Qualified: %d (%s)\n", stats.Qualified, stats.QualificationRate)
	fmt.Printf("Disqualified: %d\n", stats.Disqualified)
	fmt.Printf("Errors: %d\n", stats.Errors)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Printf("  Total web searches: %d\n", stats.Usage.TotalWebSearches)
	fmt.Printf("  Avg searches/company: %.2f\n", stats.Usage.AvgSearchesPerCompany)
	fmt.Printf("  Total input tokens: %d\n", stats.Usage.TotalInputTokens)
	fmt.Printf("  Total output tokens: %d\n", stats.Usage.TotalOutputTokens)
	fmt.Printf("  Cache read tokens: %d\n", stats.Usage.TotalCacheReadTokens)
	fmt.Println("==================================================")
}
