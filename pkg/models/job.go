package models

import "time"

// JobListing represents a single scraped job posting. It is an immutable
// value object: once parsed from a scrape reply it is never mutated.
type JobListing struct {
	SourceID       string    `json:"source_id"`
	Title          string    `json:"title"`
	Company        string    `json:"company"`
	Salary         int       `json:"salary"`
	Location       string    `json:"location"`
	EmploymentType string    `json:"employment_type"`
	PostedAt       time.Time `json:"posted_at"`
	URL            string    `json:"url"`
	Description    string    `json:"description"`
}

// StoredJob is a JobListing as persisted by the JobStore, carrying the
// store-assigned identifier and bookkeeping timestamps. Skills is backfilled
// asynchronously by the enrichment task and stays nil until then.
type StoredJob struct {
	ID        string     `json:"id"`
	Listing   JobListing `json:"listing"`
	Relevance string     `json:"relevance,omitempty"`
	Skills    []string   `json:"skills,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// RelevanceResult is the outcome of a single AI relevance evaluation.
type RelevanceResult struct {
	Relevant bool   `json:"relevant"`
	Reason   string `json:"reason"`
}
