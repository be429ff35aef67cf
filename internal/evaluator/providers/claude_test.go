package providers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"job-agent-core/internal/config"
	"job-agent-core/pkg/models"
)

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain json untouched",
			input:    `{"relevant": true}`,
			expected: `{"relevant": true}`,
		},
		{
			name:     "json fence stripped",
			input:    "```json\n{\"relevant\": true}\n```",
			expected: `{"relevant": true}`,
		},
		{
			name:     "bare fence stripped",
			input:    "```\n{\"relevant\": false}\n```",
			expected: `{"relevant": false}`,
		},
		{
			name:     "surrounding whitespace trimmed",
			input:    "  {\"skills\": []}  \n",
			expected: `{"skills": []}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, stripCodeFences(tt.input))
		})
	}
}

func TestRelevancePromptIncludesJobAndProfile(t *testing.T) {
	cfg := config.DefaultConfig()
	provider := NewClaudeProvider(cfg)

	job := models.JobListing{
		Title:          "Backend Engineer",
		Company:        "Initech",
		Location:       "Remote",
		EmploymentType: "full-time",
		Description:    "Go services on Kubernetes",
	}

	prompt := provider.buildRelevancePrompt(job, "Senior Go developer, 8 years")

	assert.True(t, strings.Contains(prompt, "Backend Engineer"))
	assert.True(t, strings.Contains(prompt, "Initech"))
	assert.True(t, strings.Contains(prompt, "Senior Go developer"))
	assert.True(t, strings.Contains(prompt, `"relevant"`))
}

func TestSanitizePromptExcludesPIIRules(t *testing.T) {
	cfg := config.DefaultConfig()
	provider := NewClaudeProvider(cfg)

	prompt := provider.buildSanitizePrompt("some cv text")

	assert.True(t, strings.Contains(prompt, "PII"))
	assert.True(t, strings.Contains(prompt, "some cv text"))
}
