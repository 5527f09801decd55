package mailer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderWelcome(t *testing.T) {
	html := RenderWelcome("Ada", "Welcome to your growth journey!")

	assert.Contains(t, html, "Welcome aboard, Ada!")
	assert.Contains(t, html, "Welcome to your growth journey!")
	assert.NotContains(t, html, "{{name}}")
	assert.NotContains(t, html, "{{intro}}")
}

func TestRenderNewsSummary(t *testing.T) {
	html := RenderNewsSummary("January 2, 2026", "<p>Markets rallied.</p>")

	assert.Contains(t, html, "January 2, 2026")
	assert.Contains(t, html, "<p>Markets rallied.</p>")
	assert.NotContains(t, html, "{{date}}")
	assert.NotContains(t, html, "{{newsContent}}")
}
