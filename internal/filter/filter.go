// Package filter applies the deterministic hard constraints to scraped
// jobs before the expensive AI evaluation stage.
package filter

import (
	"strings"

	"job-agent-core/pkg/models"
)

// Service is the deterministic pre-filter. Apply is pure: identical inputs
// always yield identical output, and the output is an order-preserving
// subsequence of the input.
type Service struct{}

// NewService creates a new filter service.
func NewService() *Service {
	return &Service{}
}

// Apply removes jobs violating the hard constraints: salary floor,
// employment type and posted-date cutoff.
func (s *Service) Apply(criteria models.SearchCriteria, jobs []models.JobListing) []models.JobListing {
	filtered := make([]models.JobListing, 0, len(jobs))
	for _, job := range jobs {
		if s.passes(criteria, job) {
			filtered = append(filtered, job)
		}
	}
	return filtered
}

func (s *Service) passes(criteria models.SearchCriteria, job models.JobListing) bool {
	if criteria.MinSalary > 0 && job.Salary < criteria.MinSalary {
		return false
	}

	if criteria.EmploymentType != "" &&
		!strings.EqualFold(job.EmploymentType, criteria.EmploymentType) {
		return false
	}

	if criteria.PostedAfter != nil && job.PostedAt.Before(*criteria.PostedAfter) {
		return false
	}

	return true
}
