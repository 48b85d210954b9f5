package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/screener-cli/internal/ledger"
	"github.com/sells-group/screener-cli/internal/model"
	"github.com/sells-group/screener-cli/internal/outcomes"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show ledger progress counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, err := outcomes.NewStore(cfg.Paths.RawDir)
		if err != nil {
			return err
		}

		led, err := ledger.Open(ctx, cfg.Paths.Ledger)
		if err != nil {
			return err
		}
		defer led.Close()

		if _, _, err := ledger.Reconcile(ctx, led, store); err != nil {
			return err
		}

		counts, err := led.Counts(ctx)
		if err != nil {
			return err
		}

		total := 0
		for _, n := range counts {
			total += n
		}

		fmt.Printf("Processed: %d\n", total)
		fmt.Printf("  succeeded:          %d\n", counts[model.StatusSucceeded])
		fmt.Printf("  failed validation:  %d\n", counts[model.StatusFailedValidation])
		fmt.Printf("  failed transient:   %d\n", counts[model.StatusFailedTransient])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
