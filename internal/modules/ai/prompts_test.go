package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWelcomeIntroPrompt(t *testing.T) {
	prompt := WelcomeIntroPrompt(UserProfile{
		Country:         "Germany",
		InvestmentGoals: "Long-term growth",
		RiskTolerance:   "Medium",
	})

	assert.Contains(t, prompt, "Country: Germany")
	assert.Contains(t, prompt, "Investment goals: Long-term growth")
	assert.Contains(t, prompt, "Risk tolerance: Medium")
	assert.Contains(t, prompt, "Preferred industry: not specified")
	assert.NotContains(t, prompt, "{{profile}}")
}

func TestNewsSummaryPrompt(t *testing.T) {
	type article struct {
		Headline string `json:"headline"`
		URL      string `json:"url"`
	}

	prompt := NewsSummaryPrompt([]article{
		{Headline: "Markets rally", URL: "https://example.com/rally"},
	})

	assert.Contains(t, prompt, `"headline": "Markets rally"`)
	assert.Contains(t, prompt, "https://example.com/rally")
	assert.NotContains(t, prompt, "{{articles}}")
}

func TestNewsSummaryPromptUnserializableInput(t *testing.T) {
	prompt := NewsSummaryPrompt(func() {})

	assert.Contains(t, prompt, "[]")
	assert.NotContains(t, prompt, "{{articles}}")
}
