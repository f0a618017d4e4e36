package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/model"
)

// ErrJobNotFound is returned by GetJob and UpdateJob for an unknown or
// expired job id. Callers treat it as an expected outcome, not a fault.
var ErrJobNotFound = eris.New("job not found")

// ErrDuplicateJob is returned by CreateJob when the job id already exists.
var ErrDuplicateJob = eris.New("duplicate job id")

// Store defines the persistence interface for phone-enrichment jobs.
//
// A job is written by exactly one path after creation (the webhook), so
// implementations only need per-key write serialization, not transactions.
type Store interface {
	// CreateJob inserts a new pending job. The caller generates the id;
	// an existing id yields ErrDuplicateJob.
	CreateJob(ctx context.Context, job *model.Job) error

	// GetJob returns the job for the given id, or ErrJobNotFound.
	GetJob(ctx context.Context, jobID string) (*model.Job, error)

	// UpdateJob sets the enriched contacts and status, stamping CompletedAt.
	// An empty status defaults to completed. Unknown ids yield ErrJobNotFound.
	UpdateJob(ctx context.Context, jobID string, contacts []model.Contact, status model.JobStatus) error

	// DeleteExpired evicts jobs created before now-olderThan and returns the
	// number removed. This is the retention extension point; callers decide
	// whether and how often to sweep.
	DeleteExpired(ctx context.Context, olderThan time.Duration) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
