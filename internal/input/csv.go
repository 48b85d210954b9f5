// Package input loads the work list of companies from a CSV file.
package input

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/screener-cli/internal/model"
)

// columnAliases maps accepted header spellings (lowercased) to canonical
// fields. The export this pipeline consumes uses camelCase for the context
// columns; snake_case is accepted too.
var columnAliases = map[string]string{
	"company_name":       "name",
	"companyname":        "name",
	"name":               "name",
	"website":            "website",
	"url":                "website",
	"linkedin_url":       "linkedin",
	"linkedinurl":        "linkedin",
	"linkedin":           "linkedin",
	"typeofbusiness":     "business_type",
	"type_of_business":   "business_type",
	"sector":             "sector",
	"regionsofoperation": "regions",
	"regions":            "regions",
}

// LoadCSV reads companies from a CSV file. The delimiter is sniffed from the
// header row, a UTF-8 BOM is tolerated, and rows without a company name are
// skipped. Column order is free; headers are matched case-insensitively
// against known aliases.
func LoadCSV(path string) ([]model.Company, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "input: open %s", path)
	}
	defer f.Close()

	return parseCSV(f)
}

func parseCSV(r io.Reader) ([]model.Company, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "input: read")
	}
	text := strings.TrimPrefix(string(data), "\ufeff")

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = sniffDelimiter(text)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, eris.Wrap(err, "input: read header")
	}

	// header position -> canonical field
	cols := make(map[int]string, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if field, ok := columnAliases[key]; ok {
			cols[i] = field
		}
	}

	var companies []model.Company
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "input: read row")
		}

		var c model.Company
		for i, val := range record {
			val = strings.TrimSpace(val)
			switch cols[i] {
			case "name":
				c.Name = val
			case "website":
				c.Website = val
			case "linkedin":
				c.LinkedInURL = val
			case "business_type":
				c.BusinessType = val
			case "sector":
				c.Sector = val
			case "regions":
				c.Regions = val
			}
		}
		if c.Name == "" {
			continue
		}
		companies = append(companies, c)
	}

	return companies, nil
}

// sniffDelimiter picks the most frequent candidate delimiter in the header
// line. Comma wins ties.
func sniffDelimiter(text string) rune {
	line := text
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		line = text[:i]
	}

	best := ','
	bestCount := strings.Count(line, ",")
	for _, cand := range []rune{'\t', ';', '|'} {
		if n := strings.Count(line, string(cand)); n > bestCount {
			best = cand
			bestCount = n
		}
	}
	return best
}

// Dedupe drops companies whose identity key was already seen, keeping the
// first occurrence.
func Dedupe(companies []model.Company) []model.Company {
	seen := make(map[string]struct{}, len(companies))
	out := companies[:0:0]
	for _, c := range companies {
		key := c.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}
