package model

// Report is the structured research payload returned by the API for one
// company. The shape mirrors the research prompt's output contract: identity
// and date fields at the top level, a classification block, a qualification
// block with the overall pass/fail flag, and a profile block that is only
// required for qualified companies.
type Report struct {
	CompanyName    string         `json:"company_name"`
	Website        string         `json:"website,omitempty"`
	LinkedInURL    string         `json:"linkedin_url,omitempty"`
	ResearchDate   string         `json:"research_date"`
	Classification Classification `json:"company_classification"`
	Qualification  Qualification  `json:"qualification"`
	Profile        *Profile       `json:"profile_data,omitempty"`
	ResearchNotes  string         `json:"research_notes,omitempty"`
	DataGaps       []string       `json:"data_gaps,omitempty"`
}

// Classification describes what kind of business the company is.
type Classification struct {
	Type             string `json:"type"`
	SubType          string `json:"sub_type,omitempty"`
	Details          string `json:"details,omitempty"`
	ServiceRelevance string `json:"service_relevance,omitempty"`
}

// ClassificationNotRelevant marks companies outside the target market; a
// not-relevant company is exempt from the profile requirement even when the
// qualification flag is set.
const ClassificationNotRelevant = "NOT_RELEVANT"

// Qualification holds the pass/fail screening checks. OverallQualified is a
// pointer so a missing flag is distinguishable from an explicit false.
type Qualification struct {
	LegalStanding    *Check `json:"legal_standing,omitempty"`
	GamePortfolio    *Check `json:"game_portfolio,omitempty"`
	OverallQualified *bool  `json:"overall_qualified"`
}

// Qualified reports the overall qualification flag, treating missing as false.
func (q Qualification) Qualified() bool {
	return q.OverallQualified != nil && *q.OverallQualified
}

// Check is a single qualification criterion result.
type Check struct {
	Status         string   `json:"status,omitempty"`
	Details        string   `json:"details,omitempty"`
	GameTypesFound []string `json:"game_types_found,omitempty"`
	Sources        []string `json:"sources,omitempty"`
}

// Profile holds the detailed data gathered for qualified companies.
type Profile struct {
	PortfolioSize        *PortfolioSize        `json:"portfolio_size,omitempty"`
	ReleaseFrequency     *ReleaseFrequency     `json:"release_frequency,omitempty"`
	CompanySize          *CompanySize          `json:"company_size,omitempty"`
	Revenue              *Revenue              `json:"revenue,omitempty"`
	ExternalPartnerships *ExternalPartnerships `json:"external_partnerships,omitempty"`
	Funding              *Funding              `json:"funding,omitempty"`
	InHouseCreative      *InHouseCreative      `json:"in_house_creative,omitempty"`
}

// PortfolioSize estimates the size of the company's game catalog.
type PortfolioSize struct {
	TotalGames            *int   `json:"total_games,omitempty"`
	TotalGamesDescription string `json:"total_games_description,omitempty"`
	Confidence            string `json:"confidence,omitempty"`
	Source                string `json:"source,omitempty"`
}

// ReleaseFrequency describes recent release cadence.
type ReleaseFrequency struct {
	GamesLast2Years *int   `json:"games_last_2_years,omitempty"`
	Description     string `json:"description,omitempty"`
	RecentTitles    string `json:"recent_titles,omitempty"`
	Confidence      string `json:"confidence,omitempty"`
	Source          string `json:"source,omitempty"`
}

// CompanySize holds headcount data.
type CompanySize struct {
	EmployeeCount string `json:"employee_count,omitempty"`
	Source        string `json:"source,omitempty"`
}

// Revenue holds revenue estimates.
type Revenue struct {
	Amount  string `json:"amount,omitempty"`
	Details string `json:"details,omitempty"`
	Source  string `json:"source,omitempty"`
}

// ExternalPartnerships describes work with outside studios.
type ExternalPartnerships struct {
	WorksWithExternalStudios *bool    `json:"works_with_external_studios,omitempty"`
	EUBasedStudios           *bool    `json:"eu_based_studios,omitempty"`
	Details                  string   `json:"details,omitempty"`
	Sources                  []string `json:"sources,omitempty"`
}

// Funding describes ownership and funding history.
type Funding struct {
	HasExternalFunding *bool    `json:"has_external_funding,omitempty"`
	FundingRounds      string   `json:"funding_rounds,omitempty"`
	PublicCompany      *bool    `json:"public_company,omitempty"`
	Sources            []string `json:"sources,omitempty"`
}

// InHouseCreative describes internal creative capacity.
type InHouseCreative struct {
	HasArtTeam                 *bool    `json:"has_art_team,omitempty"`
	HasVideoProduction         *bool    `json:"has_video_production,omitempty"`
	TeamSizeEstimate           string   `json:"team_size_estimate,omitempty"`
	LikelyNeedsExternalSupport *bool    `json:"likely_needs_external_support,omitempty"`
	Evidence                   string   `json:"evidence,omitempty"`
	Sources                    []string `json:"sources,omitempty"`
}
