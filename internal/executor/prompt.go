package executor

import (
	"fmt"
	"strings"

	"github.com/sells-group/screener-cli/internal/model"
)

// buildPrompt formats the company block sent as the user message. The
// research instructions themselves live in the system prompt; this block
// only carries the entity identity and whatever CSV hints exist.
func buildPrompt(c model.Company) string {
	parts := []string{fmt.Sprintf("## Company to Analyze\n\n**Company Name:** %s", c.Name)}

	if w := c.NormalizedWebsite(); w != "" {
		parts = append(parts, fmt.Sprintf("**Website:** %s", w))
	}
	if c.LinkedInURL != "" {
		parts = append(parts, fmt.Sprintf("**LinkedIn:** %s", c.LinkedInURL))
	}

	var hints []string
	if c.BusinessType != "" {
		hints = append(hints, "Business Type: "+c.BusinessType)
	}
	if c.Sector != "" {
		hints = append(hints, "Sector: "+c.Sector)
	}
	if c.Regions != "" {
		hints = append(hints, "Operating Regions: "+c.Regions)
	}
	if len(hints) > 0 {
		parts = append(parts, "**Additional Context:** "+strings.Join(hints, "; "))
	}

	parts = append(parts, "\nConduct the analysis and return ONLY the raw JSON object. No text before or after.")
	return strings.Join(parts, "\n")
}

// buildRepairPrompt asks for a corrected JSON object, naming the validation
// errors from the previous attempt.
func buildRepairPrompt(companyName string, errs []string) string {
	var b strings.Builder
	b.WriteString("Your previous response could not be accepted.\n\nIssues found:\n")
	for _, e := range errs {
		b.WriteString("- " + e + "\n")
	}
	b.WriteString(fmt.Sprintf(`
IMPORTANT: Return ONLY the raw JSON object for %s.
- Start directly with { (opening brace)
- End with } (closing brace)
- NO markdown code blocks
- NO text before or after the JSON
- Ensure all strings are properly quoted
- No trailing commas before } or ]
`, companyName))
	return b.String()
}
