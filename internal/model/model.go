package model

import "time"

// JobStatus represents the current state of a phone-enrichment job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether the status will never change again.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Company is a company descriptor submitted for enrichment, as produced by
// the Exa search step or supplied directly by the caller.
type Company struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Contact is a resolved person record. Phone is empty until phone enrichment
// delivers a number via webhook; an empty phone means "not yet available",
// not a failure.
type Contact struct {
	ID               string `json:"id,omitempty"`
	Name             string `json:"name"`
	Email            string `json:"email,omitempty"`
	Phone            string `json:"phone,omitempty"`
	Title            string `json:"title,omitempty"`
	LinkedInURL      string `json:"linkedin_url,omitempty"`
	OrganizationName string `json:"organization_name,omitempty"`
}

// CompanyResult is one entry in the enrichment response. A company yields
// either contacts or an error, never both silently empty.
type CompanyResult struct {
	Company    string    `json:"company"`
	Contacts   []Contact `json:"contacts"`
	PhoneJobID string    `json:"phoneJobId,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// Job is a tracked unit of asynchronous phone-enrichment work, keyed by its
// correlation id. Created by the orchestrator, mutated only by the webhook
// path, read by the status path.
type Job struct {
	JobID            string     `json:"jobId"`
	CompanyURL       string     `json:"companyUrl"`
	CompanyName      string     `json:"companyName"`
	ContactIDs       []string   `json:"contactIds"`
	Status           JobStatus  `json:"status"`
	EnrichedContacts []Contact  `json:"enrichedContacts"`
	CreatedAt        time.Time  `json:"createdAt"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`
}
