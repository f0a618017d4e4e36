// Package apollo is a client for the Apollo.io people search and enrichment
// API. Phone enrichment is asynchronous: the request carries a webhook URL
// and Apollo delivers matches to it later, out of band.
package apollo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/prospect-cli/internal/resilience"
)

// Default base URL for the Apollo.io API.
const defaultBaseURL = "https://api.apollo.io"

// Client defines the Apollo.io operations used by the enrichment flow.
type Client interface {
	// SearchPeople finds people at the given company domain, bounded by limit.
	SearchPeople(ctx context.Context, domain string, limit int) ([]Person, error)

	// BulkEnrichPeople resolves canonical contact fields for the given person ids.
	BulkEnrichPeople(ctx context.Context, ids []string) ([]Person, error)

	// BulkEnrichPhonesWithWebhook requests phone numbers for the given person
	// ids. Results are not returned; Apollo calls webhookURL when they are
	// ready. The caller correlates the callback via a token embedded in the URL.
	BulkEnrichPhonesWithWebhook(ctx context.Context, ids []string, webhookURL string) error
}

// Person is a person record as returned by Apollo search, enrichment, and
// webhook payloads. Which fields are populated depends on the endpoint.
type Person struct {
	ID               string        `json:"id,omitempty"`
	FirstName        string        `json:"first_name,omitempty"`
	LastName         string        `json:"last_name,omitempty"`
	Name             string        `json:"name,omitempty"`
	Email            string        `json:"email,omitempty"`
	Title            string        `json:"title,omitempty"`
	LinkedInURL      string        `json:"linkedin_url,omitempty"`
	OrganizationName string        `json:"organization_name,omitempty"`
	Organization     *Organization `json:"organization,omitempty"`
	PhoneNumbers     []PhoneNumber `json:"phone_numbers,omitempty"`
}

// Organization is the nested company reference on a person record.
type Organization struct {
	Name string `json:"name"`
}

// PhoneNumber is one phone record on an enriched person.
type PhoneNumber struct {
	RawNumber       string `json:"raw_number"`
	SanitizedNumber string `json:"sanitized_number"`
}

// DisplayName returns the composed full name: the provided name when present,
// otherwise first and last joined with a single space.
func (p Person) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// OrgName returns the flat organization name, falling back to the nested
// organization reference used in webhook payloads.
func (p Person) OrgName() string {
	if p.OrganizationName != "" {
		return p.OrganizationName
	}
	if p.Organization != nil {
		return p.Organization.Name
	}
	return ""
}

type searchRequest struct {
	OrganizationDomains []string `json:"q_organization_domains"`
	Page                int      `json:"page"`
	PerPage             int      `json:"per_page"`
}

type searchResponse struct {
	People []Person `json:"people"`
}

type bulkMatchRequest struct {
	Details           []matchDetail `json:"details"`
	RevealPhoneNumber bool          `json:"reveal_phone_number,omitempty"`
	WebhookURL        string        `json:"webhook_url,omitempty"`
}

type matchDetail struct {
	ID string `json:"id"`
}

type bulkMatchResponse struct {
	Matches []Person `json:"matches"`
}

// APIError is returned when Apollo responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("apollo: HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the default base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimSuffix(url, "/")
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps outgoing request rate (requests per second).
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithRetry overrides the default retry policy.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

// httpClient implements Client using net/http.
type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// NewClient creates a new Apollo client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(5), 2),
		retry:   resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) SearchPeople(ctx context.Context, domain string, limit int) ([]Person, error) {
	if limit <= 0 {
		limit = 10
	}
	var resp searchResponse
	err := c.post(ctx, "/v1/mixed_people/search", searchRequest{
		OrganizationDomains: []string{domain},
		Page:                1,
		PerPage:             limit,
	}, &resp)
	if err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("apollo: search people at %s", domain))
	}
	return resp.People, nil
}

func (c *httpClient) BulkEnrichPeople(ctx context.Context, ids []string) ([]Person, error) {
	var resp bulkMatchResponse
	err := c.post(ctx, "/v1/people/bulk_match", bulkMatchRequest{
		Details: matchDetails(ids),
	}, &resp)
	if err != nil {
		return nil, eris.Wrap(err, "apollo: bulk enrich people")
	}
	return resp.Matches, nil
}

func (c *httpClient) BulkEnrichPhonesWithWebhook(ctx context.Context, ids []string, webhookURL string) error {
	// Fire-and-forget: Apollo acknowledges the request here and delivers the
	// actual phone matches to webhookURL later.
	err := c.post(ctx, "/v1/people/bulk_match", bulkMatchRequest{
		Details:           matchDetails(ids),
		RevealPhoneNumber: true,
		WebhookURL:        webhookURL,
	}, &struct{}{})
	if err != nil {
		return eris.Wrap(err, "apollo: request phone enrichment")
	}
	return nil
}

func matchDetails(ids []string) []matchDetail {
	details := make([]matchDetail, len(ids))
	for i, id := range ids {
		details[i] = matchDetail{ID: id}
	}
	return details
}

func (c *httpClient) post(ctx context.Context, path string, body any, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return eris.Wrap(err, "marshal request")
	}

	return resilience.Do(ctx, c.withRetryCheck(), func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "rate limiter")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
		if err != nil {
			return eris.Wrap(err, "create request")
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Api-Key", c.apiKey)

		return c.do(req, out)
	})
}

// withRetryCheck retries transport errors and retryable HTTP statuses, but
// never 4xx responses other than 429.
func (c *httpClient) withRetryCheck() resilience.RetryConfig {
	cfg := c.retry
	if cfg.ShouldRetry == nil {
		cfg.ShouldRetry = func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return resilience.IsTransientHTTPStatus(apiErr.StatusCode)
			}
			return resilience.IsTransient(err)
		}
	}
	return cfg
}

func (c *httpClient) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "execute request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Body:       string(data),
		}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return eris.Wrap(err, "decode response")
	}
	return nil
}
