package aggregate

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/screener-cli/internal/model"
)

// column is one field of the flattened tabular projection: a stable key and
// an accessor that pulls the (possibly nested) value out of an outcome.
type column struct {
	key   string
	value func(o *model.Outcome) string
}

// columns defines the flattened export, one row per company, nested report
// fields pulled to the top level and list fields joined with ", ".
var columns = []column{
	{"company_name", func(o *model.Outcome) string { return reportStr(o, func(r *model.Report) string { return r.CompanyName }) }},
	{"website", func(o *model.Outcome) string { return reportStr(o, func(r *model.Report) string { return r.Website }) }},
	{"linkedin_url", func(o *model.Outcome) string { return reportStr(o, func(r *model.Report) string { return r.LinkedInURL }) }},
	{"company_type", func(o *model.Outcome) string { return reportStr(o, func(r *model.Report) string { return r.Classification.Type }) }},
	{"classification_details", func(o *model.Outcome) string { return reportStr(o, func(r *model.Report) string { return r.Classification.Details }) }},
	{"legal_status", func(o *model.Outcome) string { return checkStatus(o, func(q model.Qualification) *model.Check { return q.LegalStanding }) }},
	{"legal_details", func(o *model.Outcome) string { return checkDetails(o, func(q model.Qualification) *model.Check { return q.LegalStanding }) }},
	{"portfolio_status", func(o *model.Outcome) string { return checkStatus(o, func(q model.Qualification) *model.Check { return q.GamePortfolio }) }},
	{"game_portfolio_details", func(o *model.Outcome) string { return checkDetails(o, func(q model.Qualification) *model.Check { return q.GamePortfolio }) }},
	{"game_types", func(o *model.Outcome) string {
		return reportStr(o, func(r *model.Report) string {
			if r.Qualification.GamePortfolio == nil {
				return ""
			}
			return strings.Join(r.Qualification.GamePortfolio.GameTypesFound, ", ")
		})
	}},
	{"overall_qualified", func(o *model.Outcome) string {
		return reportStr(o, func(r *model.Report) string { return yesNo(r.Qualification.OverallQualified) })
	}},
	{"total_games", func(o *model.Outcome) string {
		return profileStr(o, func(p *model.Profile) string {
			if p.PortfolioSize == nil {
				return ""
			}
			return intStr(p.PortfolioSize.TotalGames)
		})
	}},
	{"total_games_description", func(o *model.Outcome) string {
		return profileStr(o, func(p *model.Profile) string {
			if p.PortfolioSize == nil {
				return ""
			}
			return p.PortfolioSize.TotalGamesDescription
		})
	}},
	{"games_last_2_years", func(o *model.Outcome) string {
		return profileStr(o, func(p *model.Profile) string {
			if p.ReleaseFrequency == nil {
				return ""
			}
			return intStr(p.ReleaseFrequency.GamesLast2Years)
		})
	}},
	{"release_frequency_description", func(o *model.Outcome) string {
		return profileStr(o, func(p *model.Profile) string {
			if p.ReleaseFrequency == nil {
				return ""
			}
			return p.ReleaseFrequency.Description
		})
	}},
	{"recent_titles", func(o *model.Outcome) string {
		return profileStr(o, func(p *model.Profile) string {
			if p.ReleaseFrequency == nil {
				return ""
			}
			return p.ReleaseFrequency.RecentTitles
		})
	}},
	{"employee_count", func(o *model.Outcome) string {
		return profileStr(o, func(p *model.Profile) string {
			if p.CompanySize == nil {
				return ""
			}
			return p.CompanySize.EmployeeCount
		})
	}},
	{"revenue_usd", func(o *model.Outcome) string {
		return profileStr(o, func(p *model.Profile) string {
			if p.Revenue == nil {
				return ""
			}
			return p.Revenue.Amount
		})
	}},
	{"revenue_details", func(o *model.Outcome) string {
		return profileStr(o, func(p *model.Profile) string {
			if p.Revenue == nil {
				return ""
			}
			return p.Revenue.Details
		})
	}},
	{"works_with_external_studios", func(o *model.Outcome) string {
		return profileStr(o, func(p *model.Profile) string {
			if p.ExternalPartnerships == nil {
				return ""
			}
			return yesNo(p.ExternalPartnerships.WorksWithExternalStudios)
		})
	}},
	{"eu_based_studios", func(o *model.Outcome) string {
		return profileStr(o, func(p *model.Profile) string {
			if p.ExternalPartnerships == nil {
				return ""
			}
			return yesNo(p.ExternalPartnerships.EUBasedStudios)
		})
	}},
	{"has_external_funding", func(o *model.Outcome) string {
		return profileStr(o, func(p *model.Profile) string {
			if p.Funding == nil {
				return ""
			}
			return yesNo(p.Funding.HasExternalFunding)
		})
	}},
	{"funding_rounds", func(o *model.Outcome) string {
		return profileStr(o, func(p *model.Profile) string {
			if p.Funding == nil {
				return ""
			}
			return p.Funding.FundingRounds
		})
	}},
	{"public_company", func(o *model.Outcome) string {
		return profileStr(o, func(p *model.Profile) string {
			if p.Funding == nil {
				return ""
			}
			return yesNo(p.Funding.PublicCompany)
		})
	}},
	{"has_art_team", func(o *model.Outcome) string {
		return profileStr(o, func(p *model.Profile) string {
			if p.InHouseCreative == nil {
				return ""
			}
			return yesNo(p.InHouseCreative.HasArtTeam)
		})
	}},
	{"has_video_production", func(o *model.Outcome) string {
		return profileStr(o, func(p *model.Profile) string {
			if p.InHouseCreative == nil {
				return ""
			}
			return yesNo(p.InHouseCreative.HasVideoProduction)
		})
	}},
	{"art_team_size", func(o *model.Outcome) string {
		return profileStr(o, func(p *model.Profile) string {
			if p.InHouseCreative == nil {
				return ""
			}
			return p.InHouseCreative.TeamSizeEstimate
		})
	}},
	{"in_house_creative_evidence", func(o *model.Outcome) string {
		return profileStr(o, func(p *model.Profile) string {
			if p.InHouseCreative == nil {
				return ""
			}
			return p.InHouseCreative.Evidence
		})
	}},
	{"research_date", func(o *model.Outcome) string { return reportStr(o, func(r *model.Report) string { return r.ResearchDate }) }},
	{"research_notes", func(o *model.Outcome) string { return reportStr(o, func(r *model.Report) string { return r.ResearchNotes }) }},
	{"data_gaps", func(o *model.Outcome) string {
		return reportStr(o, func(r *model.Report) string { return strings.Join(r.DataGaps, ", ") })
	}},
	{"status", func(o *model.Outcome) string { return string(o.Status) }},
	{"error", func(o *model.Outcome) string { return o.Error }},
	{"processed_at", func(o *model.Outcome) string { return o.Meta.ProcessedAt.Format("2006-01-02T15:04:05Z07:00") }},
	{"processing_time_sec", func(o *model.Outcome) string { return fmt.Sprintf("%.2f", o.Meta.ProcessingSecs) }},
	{"web_searches_used", func(o *model.Outcome) string { return fmt.Sprintf("%d", o.Meta.Usage.WebSearchRequests) }},
	{"input_tokens", func(o *model.Outcome) string { return fmt.Sprintf("%d", o.Meta.Usage.InputTokens) }},
	{"output_tokens", func(o *model.Outcome) string { return fmt.Sprintf("%d", o.Meta.Usage.OutputTokens) }},
}

// headerOverrides maps column keys whose display name can't be derived by
// title-casing alone.
var headerOverrides = map[string]string{
	"linkedin_url":        "LinkedIn URL",
	"revenue_usd":         "Revenue (USD)",
	"eu_based_studios":    "EU Based Studios",
	"processing_time_sec": "Processing Time (sec)",
}

var titleCaser = cases.Title(language.English)

// headerFor derives a readable column header from a key.
func headerFor(key string) string {
	if h, ok := headerOverrides[key]; ok {
		return h
	}
	return titleCaser.String(strings.ReplaceAll(key, "_", " "))
}

// headerRow returns the header cells for the flattened export.
func headerRow() []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = headerFor(c.key)
	}
	return out
}

// flattenRow projects one outcome onto the flat column set.
func flattenRow(o *model.Outcome) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = c.value(o)
	}
	return out
}

func reportStr(o *model.Outcome, f func(*model.Report) string) string {
	if o.Report == nil {
		return ""
	}
	return f(o.Report)
}

func profileStr(o *model.Outcome, f func(*model.Profile) string) string {
	if o.Report == nil || o.Report.Profile == nil {
		return ""
	}
	return f(o.Report.Profile)
}

func checkStatus(o *model.Outcome, pick func(model.Qualification) *model.Check) string {
	return reportStr(o, func(r *model.Report) string {
		if c := pick(r.Qualification); c != nil {
			return c.Status
		}
		return ""
	})
}

func checkDetails(o *model.Outcome, pick func(model.Qualification) *model.Check) string {
	return reportStr(o, func(r *model.Report) string {
		if c := pick(r.Qualification); c != nil {
			return c.Details
		}
		return ""
	})
}

func yesNo(b *bool) string {
	if b == nil {
		return ""
	}
	if *b {
		return "Yes"
	}
	return "No"
}

func intStr(n *int) string {
	if n == nil {
		return ""
	}
	return fmt.Sprintf("%d", *n)
}
