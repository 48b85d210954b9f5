package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/screener-cli/internal/model"
)

func TestBuildPrompt(t *testing.T) {
	c := model.Company{
		Name:         "Test Corp",
		Website:      "testcorp.com",
		LinkedInURL:  "https://linkedin.com/company/testcorp",
		BusinessType: "Publisher",
		Sector:       "Casual Games",
		Regions:      "EU, NA",
	}

	p := buildPrompt(c)
	assert.Contains(t, p, "**Company Name:** Test Corp")
	assert.Contains(t, p, "**Website:** https://testcorp.com")
	assert.Contains(t, p, "**LinkedIn:** https://linkedin.com/company/testcorp")
	assert.Contains(t, p, "Business Type: Publisher")
	assert.Contains(t, p, "Sector: Casual Games")
	assert.Contains(t, p, "Operating Regions: EU, NA")
	assert.Contains(t, p, "ONLY the raw JSON object")
}

func TestBuildPromptMinimal(t *testing.T) {
	p := buildPrompt(model.Company{Name: "Bare Co"})
	assert.Contains(t, p, "**Company Name:** Bare Co")
	assert.NotContains(t, p, "**Website:**")
	assert.NotContains(t, p, "**Additional Context:**")
}

func TestBuildRepairPrompt(t *testing.T) {
	p := buildRepairPrompt("Test Corp", []string{
		"Missing required field: company_name",
		"Missing qualification.overall_qualified",
	})
	assert.Contains(t, p, "- Missing required field: company_name")
	assert.Contains(t, p, "- Missing qualification.overall_qualified")
	assert.Contains(t, p, "Return ONLY the raw JSON object for Test Corp")
}
