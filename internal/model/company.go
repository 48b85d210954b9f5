// Package model defines the core data types shared across the pipeline:
// companies to research, validated research reports, and per-company outcomes.
package model

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"strings"
)

// Company is a single entity to research. Fields beyond Name are optional
// hints passed through to the research prompt; the website also
// disambiguates companies that share a name.
type Company struct {
	Name        string `json:"company_name"`
	Website     string `json:"website,omitempty"`
	LinkedInURL string `json:"linkedin_url,omitempty"`

	// Context columns carried from the input CSV.
	BusinessType string `json:"type_of_business,omitempty"`
	Sector       string `json:"sector,omitempty"`
	Regions      string `json:"regions_of_operation,omitempty"`
}

var (
	unsafeChars  = regexp.MustCompile(`[<>:"/\\|?*]`)
	squeezeChars = regexp.MustCompile(`[\s_]+`)
)

// Key returns the stable identity key for the company: the sanitized name
// plus a short hash of name+website so that two companies with the same name
// but different websites never collide on one key.
func (c Company) Key() string {
	sum := md5.Sum([]byte(c.Name + "_" + c.Website))
	return sanitizeName(c.Name) + "_" + hex.EncodeToString(sum[:])[:8]
}

// sanitizeName makes a company name safe for use in filenames and keys.
func sanitizeName(name string) string {
	s := unsafeChars.ReplaceAllString(name, "_")
	s = squeezeChars.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_.")
	if len(s) > 100 {
		s = s[:100]
	}
	if s == "" {
		return "unnamed"
	}
	return s
}

// NormalizedWebsite returns the website with an https scheme prefixed when
// missing. Mailto links are not usable as websites and come back empty.
func (c Company) NormalizedWebsite() string {
	w := strings.TrimSpace(c.Website)
	if w == "" || strings.HasPrefix(w, "mailto:") {
		return ""
	}
	if !strings.HasPrefix(w, "http://") && !strings.HasPrefix(w, "https://") {
		w = "https://" + w
	}
	return w
}
