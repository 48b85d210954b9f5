package executor

import (
	"encoding/json"

	"github.com/sells-group/screener-cli/internal/model"
)

// validateReport checks the structural contract a research payload must
// satisfy before it is accepted:
//
//   - identity and date fields present
//   - classification block with a type
//   - qualification block with an explicit overall flag
//   - qualified companies must carry a profile block, unless classified
//     NOT_RELEVANT
//
// Returns the parsed report and the list of violations. The error list
// doubles as the content of the repair prompt, so messages name the missing
// field the way the output contract spells it.
func validateReport(raw json.RawMessage) (*model.Report, []string) {
	var report model.Report
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, []string{"Response is not a valid JSON object: " + err.Error()}
	}

	var errs []string
	if report.CompanyName == "" {
		errs = append(errs, "Missing required field: company_name")
	}
	if report.ResearchDate == "" {
		errs = append(errs, "Missing required field: research_date")
	}
	if report.Classification.Type == "" {
		errs = append(errs, "Missing company_classification.type")
	}
	if report.Qualification.OverallQualified == nil {
		errs = append(errs, "Missing qualification.overall_qualified")
	}

	notRelevant := report.Classification.Type == model.ClassificationNotRelevant
	if report.Qualification.Qualified() && report.Profile == nil && !notRelevant {
		errs = append(errs, "Qualified company missing profile_data")
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return &report, nil
}
