package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompanyKey(t *testing.T) {
	a := Company{Name: "Acme Games", Website: "acme.com"}
	b := Company{Name: "Acme Games", Website: "acme.io"}
	c := Company{Name: "Acme Games", Website: "acme.com"}

	// Same name, different website: distinct keys with a shared readable prefix.
	assert.NotEqual(t, a.Key(), b.Key())
	assert.True(t, strings.HasPrefix(a.Key(), "Acme_Games_"))
	assert.True(t, strings.HasPrefix(b.Key(), "Acme_Games_"))

	// Keys are deterministic.
	assert.Equal(t, a.Key(), c.Key())
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Acme Games", "Acme_Games"},
		{"unsafe chars", `Acme <Games>: "The/Best\One"?*`, "Acme_Games_The_Best_One"},
		{"repeated separators", "Acme   Games___Ltd", "Acme_Games_Ltd"},
		{"leading and trailing junk", "_Acme Games._", "Acme_Games"},
		{"empty", "", "unnamed"},
		{"only junk", `/\<>`, "unnamed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeName(tt.in))
		})
	}
}

func TestSanitizeNameLength(t *testing.T) {
	long := strings.Repeat("a", 150)
	assert.Len(t, sanitizeName(long), 100)
}

func TestNormalizedWebsite(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare domain", "acme.com", "https://acme.com"},
		{"already https", "https://acme.com", "https://acme.com"},
		{"already http", "http://acme.com", "http://acme.com"},
		{"whitespace", "  acme.com  ", "https://acme.com"},
		{"mailto", "mailto:info@acme.com", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Company{Website: tt.in}.NormalizedWebsite())
		})
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusSucceeded.Terminal())
	assert.True(t, StatusFailedValidation.Terminal())
	assert.True(t, StatusFailedTransient.Terminal())
	assert.False(t, Status("").Terminal())
	assert.False(t, Status("in_progress").Terminal())
}

func TestUsageAdd(t *testing.T) {
	u := Usage{InputTokens: 100, OutputTokens: 50, WebSearchRequests: 3}
	u.Add(Usage{InputTokens: 10, OutputTokens: 5, CacheReadTokens: 7, WebSearchRequests: 2})

	assert.EqualValues(t, 110, u.InputTokens)
	assert.EqualValues(t, 55, u.OutputTokens)
	assert.EqualValues(t, 7, u.CacheReadTokens)
	assert.Equal(t, 5, u.WebSearchRequests)
}

func TestOutcomeQualified(t *testing.T) {
	yes := true
	no := false

	qualified := &Outcome{
		Status: StatusSucceeded,
		Report: &Report{Qualification: Qualification{OverallQualified: &yes}},
	}
	assert.True(t, qualified.Qualified())

	disqualified := &Outcome{
		Status: StatusSucceeded,
		Report: &Report{Qualification: Qualification{OverallQualified: &no}},
	}
	assert.False(t, disqualified.Qualified())

	failed := &Outcome{Status: StatusFailedValidation}
	assert.False(t, failed.Qualified())
}
