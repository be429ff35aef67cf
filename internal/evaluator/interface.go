package evaluator

import (
	"context"

	"job-agent-core/pkg/models"
)

// Provider defines the interface for AI evaluation providers
type Provider interface {
	// Sanitize strips personally identifiable information from raw CV text
	// and returns a structured professional profile suitable for matching
	Sanitize(ctx context.Context, rawCV string) (string, error)

	// EvaluateRelevance judges whether a job listing fits the candidate profile
	EvaluateRelevance(ctx context.Context, job models.JobListing, sanitizedCV string) (*models.RelevanceResult, error)

	// ExtractSkills pulls the skills a job listing asks for
	ExtractSkills(ctx context.Context, job models.JobListing) ([]string, error)

	// IsHealthy checks if the provider is healthy and available
	IsHealthy(ctx context.Context) error

	// GetProviderName returns the name of the provider
	GetProviderName() string
}
