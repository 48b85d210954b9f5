package executor

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	codeFenceRe     = regexp.MustCompile("(?s)```(?:json)?\\s*\\n(.*?)\\n```")
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
	lineCommentRe   = regexp.MustCompile(`(?m)//.*?$`)
	blockCommentRe  = regexp.MustCompile(`(?s)/\*.*?\*/`)
)

// extractJSON pulls a JSON object out of a model response. Responses are
// supposed to be a bare JSON object, but in practice arrive wrapped in
// markdown fences, prefixed with commentary, or with trailing commas and
// comments. Several strategies are tried in order; returns false when none
// yields a parseable object.
func extractJSON(text string) (json.RawMessage, bool) {
	if text == "" {
		return nil, false
	}

	candidate := ""
	if m := codeFenceRe.FindStringSubmatch(text); m != nil {
		candidate = strings.TrimSpace(m[1])
	}

	if candidate == "" {
		first := strings.Index(text, "{")
		last := strings.LastIndex(text, "}")
		if first == -1 || last <= first {
			return nil, false
		}
		candidate = text[first : last+1]
	}

	if raw, ok := tryParse(candidate); ok {
		return raw, true
	}
	if raw, ok := tryParse(cleanJSON(candidate)); ok {
		return raw, true
	}

	// Last resort: take the first balanced-brace span. Helps when the model
	// appends commentary after the closing brace.
	if span := balancedSpan(candidate); span != "" {
		if raw, ok := tryParse(cleanJSON(span)); ok {
			return raw, true
		}
	}

	return nil, false
}

func tryParse(s string) (json.RawMessage, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, false
	}
	return json.RawMessage(s), true
}

// cleanJSON strips trailing commas and JavaScript-style comments.
func cleanJSON(s string) string {
	s = blockCommentRe.ReplaceAllString(s, "")
	s = lineCommentRe.ReplaceAllString(s, "")
	s = trailingCommaRe.ReplaceAllString(s, "$1")
	return s
}

// balancedSpan returns the substring from the first '{' to its matching '}',
// or "" if braces never balance. Brace characters inside JSON strings are
// rare enough in this payload that a plain depth count suffices.
func balancedSpan(s string) string {
	first := strings.Index(s, "{")
	if first == -1 {
		return ""
	}
	depth := 0
	for i := first; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[first : i+1]
			}
		}
	}
	return ""
}
