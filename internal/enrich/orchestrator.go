// Package enrich implements the contact-enrichment flow: resolving companies
// to contacts through Apollo, starting asynchronous phone-enrichment jobs,
// resolving webhook callbacks, and projecting job status for polling clients.
package enrich

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/store"
	"github.com/sells-group/prospect-cli/pkg/apollo"
)

var (
	// ErrAPIKeyMissing aborts a whole request when no Apollo credential is
	// configured. Distinct from per-company failures.
	ErrAPIKeyMissing = eris.New("Apollo API key not configured")

	// ErrMissingCompanies rejects a request without the companies field.
	ErrMissingCompanies = eris.New("companies field is required")
)

// invalidURLError is the per-company error for URLs no domain can be
// extracted from. The exact string is part of the API contract.
const invalidURLError = "Invalid URL - could not extract domain"

// Request is the body of an enrichment call.
type Request struct {
	Companies     []model.Company `json:"companies"`
	Limit         int             `json:"limit"`
	IncludePhones bool            `json:"includePhones"`
}

// Response carries one CompanyResult per requested company, in input order.
type Response struct {
	Results []model.CompanyResult `json:"results"`
}

// Config tunes the orchestrator.
type Config struct {
	// APIKeyConfigured gates the whole flow; checked once per request
	// before any per-company work.
	APIKeyConfigured bool

	// WebhookBaseURL is the public base URL phone-enrichment callbacks
	// are delivered to.
	WebhookBaseURL string

	MaxConcurrentCompanies int
	DefaultLimit           int
}

// Orchestrator resolves companies to enriched contacts and manages the
// phone-enrichment job lifecycle.
type Orchestrator struct {
	apollo apollo.Client
	jobs   store.Store
	cfg    Config
}

// NewOrchestrator creates an orchestrator over the given Apollo client and
// job store.
func NewOrchestrator(client apollo.Client, jobs store.Store, cfg Config) *Orchestrator {
	if cfg.MaxConcurrentCompanies <= 0 {
		cfg.MaxConcurrentCompanies = 5
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 10
	}
	return &Orchestrator{apollo: client, jobs: jobs, cfg: cfg}
}

// Enrich processes all companies in the request and returns one result per
// company in input order. Companies are processed concurrently; a failure for
// one company never aborts the batch. Only validation and configuration
// problems produce an error.
func (o *Orchestrator) Enrich(ctx context.Context, req Request) (*Response, error) {
	if !o.cfg.APIKeyConfigured {
		return nil, ErrAPIKeyMissing
	}
	if len(req.Companies) == 0 {
		return nil, ErrMissingCompanies
	}

	limit := req.Limit
	if limit <= 0 {
		limit = o.cfg.DefaultLimit
	}

	results := make([]model.CompanyResult, len(req.Companies))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.MaxConcurrentCompanies)
	for i, company := range req.Companies {
		g.Go(func() error {
			results[i] = o.enrichCompany(gctx, company, limit, req.IncludePhones)
			return nil
		})
	}
	// Workers never return errors; per-company failures land in the results.
	_ = g.Wait()

	return &Response{Results: results}, nil
}

// enrichCompany runs the full flow for a single company: domain extraction,
// people search, bulk enrichment, and the optional phone-enrichment job.
func (o *Orchestrator) enrichCompany(ctx context.Context, company model.Company, limit int, includePhones bool) model.CompanyResult {
	log := zap.L().With(zap.String("company", company.Title), zap.String("url", company.URL))
	result := model.CompanyResult{Company: company.Title, Contacts: []model.Contact{}}

	domain, err := ExtractDomain(company.URL)
	if err != nil {
		log.Warn("invalid company url")
		result.Error = invalidURLError
		return result
	}

	people, err := o.apollo.SearchPeople(ctx, domain, limit)
	if err != nil {
		log.Error("people search failed", zap.Error(err))
		result.Error = "contact search failed"
		return result
	}
	if len(people) == 0 {
		// A company with no discoverable contacts is a valid outcome.
		return result
	}

	ids := make([]string, 0, len(people))
	for _, p := range people {
		if p.ID != "" {
			ids = append(ids, p.ID)
		}
	}

	enriched, err := o.apollo.BulkEnrichPeople(ctx, ids)
	if err != nil {
		log.Error("bulk enrichment failed", zap.Error(err))
		result.Error = "contact enrichment failed"
		return result
	}
	result.Contacts = ContactsFromPeople(enriched)

	if includePhones && len(result.Contacts) > 0 {
		if jobID, ok := o.startPhoneEnrichment(ctx, company, ids, log); ok {
			result.PhoneJobID = jobID
		}
	}

	return result
}

// startPhoneEnrichment registers a pending job and asks Apollo to deliver
// phone numbers to the webhook endpoint, carrying the job id as the
// correlation token. The provider's results are not awaited; if the request
// itself is rejected the job is marked failed so pollers are not left
// pending forever.
func (o *Orchestrator) startPhoneEnrichment(ctx context.Context, company model.Company, contactIDs []string, log *zap.Logger) (string, bool) {
	// Without a public base URL the callback URL would be relative and the
	// provider could never deliver; skip rather than strand a pending job.
	if o.cfg.WebhookBaseURL == "" {
		log.Warn("phone enrichment skipped: webhook base URL not configured")
		return "", false
	}

	jobID := uuid.New().String()

	err := o.jobs.CreateJob(ctx, &model.Job{
		JobID:       jobID,
		CompanyURL:  company.URL,
		CompanyName: company.Title,
		ContactIDs:  contactIDs,
		Status:      model.JobStatusPending,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		log.Error("create phone job failed", zap.String("job_id", jobID), zap.Error(err))
		return "", false
	}

	if err := o.apollo.BulkEnrichPhonesWithWebhook(ctx, contactIDs, o.webhookURL(jobID)); err != nil {
		log.Error("phone enrichment request failed", zap.String("job_id", jobID), zap.Error(err))
		if uerr := o.jobs.UpdateJob(ctx, jobID, nil, model.JobStatusFailed); uerr != nil {
			log.Error("mark phone job failed", zap.String("job_id", jobID), zap.Error(uerr))
		}
	}

	// The job id is returned even when the provider rejected the request:
	// the client polls it and observes the failed status.
	return jobID, true
}

func (o *Orchestrator) webhookURL(jobID string) string {
	return strings.TrimSuffix(o.cfg.WebhookBaseURL, "/") + "/enrich-webhook?jobId=" + url.QueryEscape(jobID)
}

// ExtractDomain returns the bare lookup domain for a company URL. URLs
// without a parsable host yield an error; bad input for one company must
// never abort a batch, so callers map this to a per-company error.
func ExtractDomain(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Hostname() == "" {
		return "", eris.Errorf("no domain in %q", raw)
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www."), nil
}
