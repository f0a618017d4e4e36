package enrich

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/store"
	"github.com/sells-group/prospect-cli/pkg/apollo"
)

// WebhookPayload is the body Apollo delivers to the phone-enrichment
// callback endpoint. Matches may be empty; that still completes the job.
type WebhookPayload struct {
	Matches []apollo.Person `json:"matches"`
}

// WebhookResolver applies asynchronous phone-enrichment callbacks to the
// job store. It is the only writer of a job after creation.
type WebhookResolver struct {
	jobs store.Store
}

// NewWebhookResolver creates a resolver over the given job store.
func NewWebhookResolver(jobs store.Store) *WebhookResolver {
	return &WebhookResolver{jobs: jobs}
}

// Resolve normalizes the payload's matches and completes the job. Repeat
// delivery for the same job id replaces the previous contacts. The returned
// error is informational: the webhook endpoint acknowledges delivery
// regardless, so the provider never retries.
func (r *WebhookResolver) Resolve(ctx context.Context, jobID string, payload WebhookPayload) error {
	contacts := ContactsFromPeople(payload.Matches)
	if err := r.jobs.UpdateJob(ctx, jobID, contacts, ""); err != nil {
		return eris.Wrapf(err, "webhook: update job %s", jobID)
	}
	return nil
}
