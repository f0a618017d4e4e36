package enrich

import (
	"context"
	"time"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/store"
)

// Status is the client-facing projection of a job for polling.
type Status struct {
	Status      model.JobStatus `json:"status"`
	Contacts    []model.Contact `json:"contacts"`
	CompanyName string          `json:"companyName"`
	CompanyURL  string          `json:"companyUrl"`
	CreatedAt   time.Time       `json:"createdAt"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}

// ReadStatus looks up a job and projects it. Never mutates; an unknown id
// surfaces store.ErrJobNotFound for the caller to map to a 404.
func ReadStatus(ctx context.Context, jobs store.Store, jobID string) (*Status, error) {
	job, err := jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	contacts := job.EnrichedContacts
	if contacts == nil {
		contacts = []model.Contact{}
	}
	return &Status{
		Status:      job.Status,
		Contacts:    contacts,
		CompanyName: job.CompanyName,
		CompanyURL:  job.CompanyURL,
		CreatedAt:   job.CreatedAt,
		CompletedAt: job.CompletedAt,
	}, nil
}
