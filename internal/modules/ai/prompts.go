package ai

import (
	"encoding/json"
	"strings"
)

// UserProfile carries the onboarding answers used to personalize the
// welcome message.
type UserProfile struct {
	Country           string
	InvestmentGoals   string
	RiskTolerance     string
	PreferredIndustry string
}

const welcomeIntroTemplate = `Generate a highly personalized introductory paragraph for a welcome email to a new user of a stock market tracking app called Signalist.

The paragraph should:
- Be warm and welcoming
- Reference their specific profile where it helps
- Be 2-3 sentences long
- Not use any placeholders

User profile:
{{profile}}

Return only the paragraph text, no quotes and no markdown.`

const newsSummaryTemplate = `Summarize the following market news for an investor in a short, friendly HTML digest.

Rules:
- Group related stories together
- Keep it scannable: short paragraphs, simple formatting
- Link each story to its source URL
- Return only the HTML fragment, no <html> or <body> tags

Articles:
{{articles}}`

// WelcomeIntroPrompt renders the prompt that produces the
// personalized welcome paragraph.
func WelcomeIntroPrompt(profile UserProfile) string {
	lines := []string{
		"- Country: " + orUnspecified(profile.Country),
		"- Investment goals: " + orUnspecified(profile.InvestmentGoals),
		"- Risk tolerance: " + orUnspecified(profile.RiskTolerance),
		"- Preferred industry: " + orUnspecified(profile.PreferredIndustry),
	}

	return strings.Replace(welcomeIntroTemplate, "{{profile}}", strings.Join(lines, "\n"), 1)
}

// NewsSummaryPrompt renders the prompt that turns a user's articles
// into an HTML digest body. Articles are embedded as indented JSON so
// the model sees every field.
func NewsSummaryPrompt(articles interface{}) string {
	encoded, err := json.MarshalIndent(articles, "", "  ")
	if err != nil {
		encoded = []byte("[]")
	}

	return strings.Replace(newsSummaryTemplate, "{{articles}}", string(encoded), 1)
}

func orUnspecified(v string) string {
	if strings.TrimSpace(v) == "" {
		return "not specified"
	}
	return v
}
