// Package executor performs one end-to-end research request per company:
// dispatch with transient retries, response validation, and bounded repair
// attempts for malformed payloads.
package executor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/screener-cli/internal/model"
	"github.com/sells-group/screener-cli/internal/resilience"
	"github.com/sells-group/screener-cli/pkg/anthropic"
)

// rawResponseLimit caps how much unparseable response text is retained on a
// failed outcome.
const rawResponseLimit = 5000

// UsageRecorder receives the web-search consumption of each completed API
// attempt, success or not. Implemented by ratelimit.Controller.
type UsageRecorder interface {
	RecordUsage(units int)
}

// Config tunes a single research request.
type Config struct {
	Model            string
	MaxTokens        int64
	SystemPrompt     string
	WebSearchMaxUses int

	// MaxRepairs bounds corrective follow-up requests after an invalid
	// response. Default: 2.
	MaxRepairs int

	// RequestTimeout bounds each API attempt. Web search calls routinely
	// run minutes. Default: 3m.
	RequestTimeout time.Duration

	// Retry controls transient retries per request.
	Retry resilience.RetryConfig
}

func (c Config) withDefaults() Config {
	if c.MaxRepairs <= 0 {
		c.MaxRepairs = 2
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 3 * time.Minute
	}
	return c
}

// Executor runs the per-company request state machine.
type Executor struct {
	client   anthropic.Client
	recorder UsageRecorder
	cfg      Config
	system   []anthropic.SystemBlock
}

// New creates an executor. recorder may be nil when consumption accounting
// is not needed (dry runs, tests).
func New(client anthropic.Client, recorder UsageRecorder, cfg Config) *Executor {
	cfg = cfg.withDefaults()
	return &Executor{
		client:   client,
		recorder: recorder,
		cfg:      cfg,
		system:   anthropic.BuildCachedSystemBlocks(cfg.SystemPrompt),
	}
}

// Execute processes one company to a terminal outcome. It never returns an
// error: every failure mode is encoded in the outcome status so one
// company's failure cannot abort its siblings.
func (e *Executor) Execute(ctx context.Context, company model.Company) *model.Outcome {
	start := time.Now()
	log := zap.L().With(zap.String("company", company.Name))

	var (
		usage       model.Usage
		report      *model.Report
		lastErrs    []string
		lastRaw     string
		lastSendErr error
	)

	messages := []anthropic.Message{{Role: "user", Content: buildPrompt(company)}}
	p := phaseDispatch
	repairsLeft := e.cfg.MaxRepairs

	for !p.terminal() {
		resp, err := e.send(ctx, messages)

		var ev machineEvent
		switch {
		case err != nil:
			lastSendErr = err
			ev = eventTransientExhausted

		default:
			attempt := model.Usage{
				InputTokens:       resp.Usage.InputTokens,
				OutputTokens:      resp.Usage.OutputTokens,
				CacheReadTokens:   resp.Usage.CacheReadInputTokens,
				CacheCreateTokens: resp.Usage.CacheCreationInputTokens,
				WebSearchRequests: resp.Usage.WebSearchRequests,
			}
			usage.Add(attempt)
			if e.recorder != nil {
				e.recorder.RecordUsage(attempt.WebSearchRequests)
			}

			lastRaw = resp.Text()
			if raw, ok := extractJSON(lastRaw); ok {
				rpt, errs := validateReport(raw)
				if len(errs) == 0 {
					report = rpt
					ev = eventValid
				} else {
					lastErrs = errs
					ev = eventInvalid
				}
			} else {
				lastErrs = []string{"Could not extract JSON from response"}
				ev = eventInvalid
			}
		}

		np := next(p, ev, repairsLeft)
		if np == phaseRepair {
			repairsLeft--
			log.Warn("response invalid, attempting repair",
				zap.Strings("errors", lastErrs),
				zap.Int("repairs_left", repairsLeft),
			)
			messages = []anthropic.Message{
				{Role: "user", Content: buildPrompt(company)},
				{Role: "assistant", Content: lastRaw},
				{Role: "user", Content: buildRepairPrompt(company.Name, lastErrs)},
			}
		}
		p = np
	}

	out := &model.Outcome{
		Key:   company.Key(),
		Input: company,
		Meta: model.Meta{
			ProcessedAt:    time.Now().UTC(),
			Model:          e.cfg.Model,
			ProcessingSecs: time.Since(start).Seconds(),
			Usage:          usage,
		},
	}

	switch p {
	case phaseSucceeded:
		out.Status = model.StatusSucceeded
		out.Report = report

	case phaseFailedValidation:
		out.Status = model.StatusFailedValidation
		out.Error = "response failed validation after repair attempts: " + joinErrs(lastErrs)
		out.RawResponse = truncate(lastRaw, rawResponseLimit)
		log.Error("validation failed terminally", zap.Strings("errors", lastErrs))

	case phaseFailedTransient:
		out.Status = model.StatusFailedTransient
		// A non-transient send error is not retried at all, so only claim
		// exhausted retries when that is what happened.
		switch {
		case lastSendErr == nil:
			out.Error = "request failed without a response"
		case resilience.IsTransient(lastSendErr):
			out.Error = "transient retries exhausted: " + lastSendErr.Error()
		default:
			out.Error = "request failed: " + lastSendErr.Error()
		}
		log.Error("request failed without a valid response", zap.Error(lastSendErr))
	}

	return out
}

// send performs one logical request with transient retries. Each attempt
// gets its own timeout.
func (e *Executor) send(ctx context.Context, messages []anthropic.Message) (*anthropic.MessageResponse, error) {
	cfg := e.cfg.Retry
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger("anthropic.create_message")
	}

	return resilience.Do(ctx, cfg, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
		defer cancel()

		return e.client.CreateMessage(attemptCtx, anthropic.MessageRequest{
			Model:            e.cfg.Model,
			MaxTokens:        e.cfg.MaxTokens,
			System:           e.system,
			Messages:         messages,
			WebSearchMaxUses: e.cfg.WebSearchMaxUses,
		})
	})
}

func joinErrs(errs []string) string {
	out := ""
	for i, e := range errs {
		if i > 0 {
			out += "; "
		}
		out += e
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
