package resilience

import (
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("bad request"), false},
		{"transient error", NewTransientError(errors.New("overloaded"), 529), true},
		{"wrapped transient", fmt.Errorf("call failed: %w", NewTransientError(errors.New("429"), 429)), true},
		{"connection reset", syscall.ECONNRESET, true},
		{"connection refused", syscall.ECONNREFUSED, true},
		{"reset by message", errors.New("read tcp: connection reset by peer"), true},
		{"dns failure", errors.New("dial tcp: lookup api.anthropic.com: no such host"), true},
		{"attempt timeout", errors.New("context deadline exceeded"), true},
		{"auth failure", errors.New("401 unauthorized"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.transient, IsTransient(tt.err))
		})
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504, 529} {
		assert.True(t, IsTransientHTTPStatus(code), "status %d", code)
	}
	for _, code := range []int{200, 400, 401, 403, 404, 422} {
		assert.False(t, IsTransientHTTPStatus(code), "status %d", code)
	}
}

func TestTransientErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	te := NewTransientError(inner, 500)
	assert.ErrorIs(t, te, inner)
	assert.Equal(t, "boom", te.Error())
}
