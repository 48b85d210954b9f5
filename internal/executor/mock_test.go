package executor

import (
	"context"
	"sync"

	"github.com/sells-group/screener-cli/pkg/anthropic"
)

// mockClient implements anthropic.Client with a scripted sequence of
// responses. Once the script runs out, the last step repeats.
type mockClient struct {
	mu    sync.Mutex
	steps []mockStep
	calls []anthropic.MessageRequest
}

type mockStep struct {
	resp *anthropic.MessageResponse
	err  error
}

func (m *mockClient) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, req)
	i := len(m.calls) - 1
	if i >= len(m.steps) {
		i = len(m.steps) - 1
	}
	return m.steps[i].resp, m.steps[i].err
}

func (m *mockClient) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockClient) call(i int) anthropic.MessageRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[i]
}

// textResponse builds a response with a single text block and the given
// web-search consumption.
func textResponse(text string, searches int) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
		Usage: anthropic.TokenUsage{
			InputTokens:       100,
			OutputTokens:      50,
			WebSearchRequests: searches,
		},
	}
}

// recordingRecorder captures per-attempt usage reports.
type recordingRecorder struct {
	mu    sync.Mutex
	units []int
}

func (r *recordingRecorder) RecordUsage(units int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.units = append(r.units, units)
}

func (r *recordingRecorder) recorded() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.units...)
}
