package main

import (
	"context"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/screener-cli/internal/executor"
	"github.com/sells-group/screener-cli/internal/input"
	"github.com/sells-group/screener-cli/internal/ledger"
	"github.com/sells-group/screener-cli/internal/model"
	"github.com/sells-group/screener-cli/internal/outcomes"
	"github.com/sells-group/screener-cli/internal/pipeline"
	"github.com/sells-group/screener-cli/internal/ratelimit"
	"github.com/sells-group/screener-cli/internal/resilience"
	"github.com/sells-group/screener-cli/pkg/anthropic"
)

var (
	processLimit       int
	processCompanies   string
	processDryRun      bool
	processNoResume    bool
	processConcurrency int
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process pending companies through the research pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.ValidateRun(); err != nil {
			return err
		}

		companies, err := loadWorkList()
		if err != nil {
			return err
		}
		if len(companies) == 0 {
			zap.L().Info("no companies to process")
			return nil
		}

		env, err := initRun(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		driverOpts := []pipeline.DriverOption{}
		if processNoResume {
			driverOpts = append(driverOpts, pipeline.WithForce())
		}
		if processLimit > 0 {
			driverOpts = append(driverOpts, pipeline.WithLimit(processLimit))
		}
		driver := pipeline.NewDriver(env.Executor, env.Controller, env.Store, env.Ledger, driverOpts...)

		if processDryRun {
			pending, err := driver.Pending(ctx, companies)
			if err != nil {
				return err
			}
			for _, c := range pending {
				zap.L().Info("would process", zap.String("company", c.Name))
			}
			zap.L().Info("dry run complete", zap.Int("pending", len(pending)))
			return nil
		}

		summary, err := driver.Run(ctx, companies)
		if err != nil {
			return eris.Wrap(err, "process: run")
		}

		if summary.Processed == 0 && summary.Skipped == summary.Total {
			zap.L().Info("all companies already processed; use --no-resume to start fresh")
		}

		// Aggregation runs on whatever is in the store, including results
		// from earlier interrupted runs.
		return runAggregation(context.WithoutCancel(ctx), env.Store)
	},
}

func init() {
	processCmd.Flags().IntVar(&processLimit, "limit", 0, "process only the first N pending companies")
	processCmd.Flags().StringVar(&processCompanies, "companies", "", "comma-separated list of company names to process")
	processCmd.Flags().BoolVar(&processDryRun, "dry-run", false, "list what would be processed without calling the API")
	processCmd.Flags().BoolVar(&processNoResume, "no-resume", false, "reprocess companies that already have a terminal outcome")
	processCmd.Flags().IntVar(&processConcurrency, "concurrency", 0, "override the initial concurrency budget")
	rootCmd.AddCommand(processCmd)
}

// loadWorkList reads and filters the input CSV.
func loadWorkList() ([]model.Company, error) {
	companies, err := input.LoadCSV(cfg.Paths.Input)
	if err != nil {
		return nil, err
	}
	zap.L().Info("loaded companies", zap.Int("count", len(companies)), zap.String("input", cfg.Paths.Input))

	if processCompanies != "" {
		wanted := make(map[string]struct{})
		for _, name := range strings.Split(processCompanies, ",") {
			wanted[strings.TrimSpace(name)] = struct{}{}
		}
		filtered := companies[:0]
		for _, c := range companies {
			if _, ok := wanted[c.Name]; ok {
				filtered = append(filtered, c)
			}
		}
		companies = filtered
		zap.L().Info("filtered to requested companies", zap.Int("count", len(companies)))
	}

	return input.Dedupe(companies), nil
}

// runEnv holds the long-lived pieces of a processing run.
type runEnv struct {
	Store      *outcomes.Store
	Ledger     *ledger.Ledger
	Controller *ratelimit.Controller
	Executor   *executor.Executor
}

func (e *runEnv) Close() {
	if err := e.Ledger.Close(); err != nil {
		zap.L().Warn("closing ledger", zap.Error(err))
	}
}

// initRun opens the outcome store and ledger, reconciles them, and builds
// the controller and executor from config.
func initRun(ctx context.Context) (*runEnv, error) {
	store, err := outcomes.NewStore(cfg.Paths.RawDir)
	if err != nil {
		return nil, err
	}

	led, err := ledger.Open(ctx, cfg.Paths.Ledger)
	if err != nil {
		return nil, err
	}

	if _, _, err := ledger.Reconcile(ctx, led, store); err != nil {
		led.Close()
		return nil, err
	}

	gov := ratelimit.NewGovernor(
		cfg.RateLimit.SearchCeiling,
		time.Duration(cfg.RateLimit.WindowSecs)*time.Second,
	)

	initial := cfg.Concurrency.Initial
	if processConcurrency > 0 {
		initial = processConcurrency
	}
	ctrl := ratelimit.NewController(gov, ratelimit.ControllerConfig{
		Initial:    initial,
		Floor:      cfg.Concurrency.Floor,
		Ceiling:    cfg.Concurrency.Ceiling,
		AdaptEvery: cfg.Concurrency.AdaptEvery,
	})

	prompt, err := cfg.LoadSystemPrompt()
	if err != nil {
		led.Close()
		return nil, err
	}

	client := anthropic.NewClient(cfg.Anthropic.Key, anthropic.WithRequestRate(cfg.Anthropic.RequestRate))
	exec := executor.New(client, ctrl, executor.Config{
		Model:            cfg.Anthropic.Model,
		MaxTokens:        cfg.Anthropic.MaxTokens,
		SystemPrompt:     prompt,
		WebSearchMaxUses: cfg.Anthropic.WebSearchMaxUses,
		MaxRepairs:       cfg.Repair.MaxAttempts,
		RequestTimeout:   time.Duration(cfg.Anthropic.TimeoutSecs) * time.Second,
		Retry: resilience.RetryConfig{
			MaxAttempts:    cfg.Retry.MaxAttempts,
			InitialBackoff: time.Duration(cfg.Retry.InitialBackoffMs) * time.Millisecond,
			MaxBackoff:     time.Duration(cfg.Retry.MaxBackoffMs) * time.Millisecond,
			Multiplier:     cfg.Retry.Multiplier,
			JitterFraction: cfg.Retry.JitterFraction,
		},
	})

	return &runEnv{
		Store:      store,
		Ledger:     led,
		Controller: ctrl,
		Executor:   exec,
	}, nil
}
