package model

import "time"

// Status is the terminal state of processing one company.
type Status string

const (
	// StatusSucceeded means a validated report was produced.
	StatusSucceeded Status = "succeeded"
	// StatusFailedValidation means the API never produced a structurally
	// valid report within the repair budget. The last malformed response is
	// retained for diagnostics.
	StatusFailedValidation Status = "failed_validation"
	// StatusFailedTransient means transient retries were exhausted without a
	// response ever reaching validation.
	StatusFailedTransient Status = "failed_transient"
)

// Terminal reports whether the status means the company should be skipped on
// resume. Transient exhaustion is tracked separately from validation failure
// so that the two can be treated differently by a future retry policy, but
// both are terminal for resume purposes.
func (s Status) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailedValidation, StatusFailedTransient:
		return true
	}
	return false
}

// Usage tallies resource consumption reported by the API across all attempts
// for one company, including repair attempts.
type Usage struct {
	InputTokens       int64 `json:"input_tokens"`
	OutputTokens      int64 `json:"output_tokens"`
	CacheReadTokens   int64 `json:"cache_read_tokens"`
	CacheCreateTokens int64 `json:"cache_creation_tokens"`
	WebSearchRequests int   `json:"web_search_requests"`
}

// Add accumulates usage from one attempt into the total.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.CacheReadTokens += other.CacheReadTokens
	u.CacheCreateTokens += other.CacheCreateTokens
	u.WebSearchRequests += other.WebSearchRequests
}

// Meta records how an outcome was produced.
type Meta struct {
	ProcessedAt    time.Time `json:"processed_at"`
	Model          string    `json:"model"`
	ProcessingSecs float64   `json:"processing_time_sec"`
	Usage          Usage     `json:"usage"`
}

// Outcome is the durable result of processing one company. It is written
// exactly once per company under normal operation and is immutable after
// write; a rerun after interruption may overwrite an incomplete file but
// never leaves two complete files for one key.
type Outcome struct {
	Key    string  `json:"key"`
	Status Status  `json:"status"`
	Meta   Meta    `json:"meta"`
	Input  Company `json:"input"`
	Report *Report `json:"result"`
	Error  string  `json:"error,omitempty"`

	// RawResponse keeps the (truncated) unparseable response text when
	// validation failed, for offline diagnosis.
	RawResponse string `json:"raw_response,omitempty"`
}

// Qualified reports whether the outcome carries a qualified report.
func (o *Outcome) Qualified() bool {
	return o.Status == StatusSucceeded && o.Report != nil && o.Report.Qualification.Qualified()
}
