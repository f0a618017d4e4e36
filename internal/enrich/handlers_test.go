package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/store"
	"github.com/sells-group/prospect-cli/pkg/apollo"
	"github.com/sells-group/prospect-cli/pkg/exa"
)

type handlerFixture struct {
	apollo *mockApolloClient
	exa    *mockExaClient
	jobs   store.Store
	srv    *httptest.Server
}

func newHandlerFixture(t *testing.T, keyConfigured bool) *handlerFixture {
	t.Helper()
	apolloMock := &mockApolloClient{}
	exaMock := &mockExaClient{}
	jobs := store.NewMemory()

	orch := NewOrchestrator(apolloMock, jobs, Config{
		APIKeyConfigured:       keyConfigured,
		WebhookBaseURL:         "https://app.example.com",
		MaxConcurrentCompanies: 2,
		DefaultLimit:           10,
	})

	var search exa.Client = exaMock
	h := NewHandler(orch, jobs, search)
	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)

	return &handlerFixture{apollo: apolloMock, exa: exaMock, jobs: jobs, srv: srv}
}

func (f *handlerFixture) post(t *testing.T, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(f.srv.URL+path, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func (f *handlerFixture) get(t *testing.T, path string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Get(f.srv.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func TestHandleHealth(t *testing.T) {
	f := newHandlerFixture(t, true)
	resp, body := f.get(t, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestHandleEnrich_OK(t *testing.T) {
	f := newHandlerFixture(t, true)
	f.apollo.On("SearchPeople", mock.Anything, "example.com", 10).Return([]apollo.Person{johnDoe()}, nil)
	f.apollo.On("BulkEnrichPeople", mock.Anything, []string{"1"}).Return([]apollo.Person{johnDoe()}, nil)

	resp, body := f.post(t, "/enrich", `{"companies":[{"title":"Example Corp","url":"https://example.com"}]}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	results, ok := body["results"].([]any)
	require.True(t, ok)
	require.Len(t, results, 1)

	first := results[0].(map[string]any)
	assert.Equal(t, "Example Corp", first["company"])
	contacts := first["contacts"].([]any)
	require.Len(t, contacts, 1)
	assert.Equal(t, "John Doe", contacts[0].(map[string]any)["name"])
	assert.NotContains(t, first, "phoneJobId")
}

func TestHandleEnrich_MissingCompanies(t *testing.T) {
	f := newHandlerFixture(t, true)
	resp, body := f.post(t, "/enrich", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "companies field is required", body["error"])
}

func TestHandleEnrich_NoAPIKey(t *testing.T) {
	f := newHandlerFixture(t, false)
	resp, body := f.post(t, "/enrich", `{"companies":[{"title":"Example Corp","url":"https://example.com"}]}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Apollo API key not configured", body["error"])
}

func TestHandleEnrich_BadJSON(t *testing.T) {
	f := newHandlerFixture(t, true)
	resp, _ := f.post(t, "/enrich", `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleEnrich_WithPhones(t *testing.T) {
	f := newHandlerFixture(t, true)
	f.apollo.On("SearchPeople", mock.Anything, "example.com", 10).Return([]apollo.Person{johnDoe()}, nil)
	f.apollo.On("BulkEnrichPeople", mock.Anything, []string{"1"}).Return([]apollo.Person{johnDoe()}, nil)
	f.apollo.On("BulkEnrichPhonesWithWebhook", mock.Anything, []string{"1"}, mock.MatchedBy(func(u string) bool {
		return strings.Contains(u, "/enrich-webhook?jobId=")
	})).Return(nil)

	resp, body := f.post(t, "/enrich", `{"companies":[{"title":"Example Corp","url":"https://example.com"}],"includePhones":true}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	first := body["results"].([]any)[0].(map[string]any)
	jobID, _ := first["phoneJobId"].(string)
	require.NotEmpty(t, jobID)

	// The job is pollable immediately, before the webhook arrives.
	statusResp, statusBody := f.get(t, "/enrich-status/"+jobID)
	assert.Equal(t, http.StatusOK, statusResp.StatusCode)
	assert.Equal(t, "pending", statusBody["status"])
	assert.Equal(t, []any{}, statusBody["contacts"])
}

func TestHandleWebhook_MissingJobID(t *testing.T) {
	f := newHandlerFixture(t, true)
	resp, body := f.post(t, "/enrich-webhook", `{"matches":[]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Missing jobId parameter", body["error"])
}

func TestHandleWebhook_CompletesJob(t *testing.T) {
	f := newHandlerFixture(t, true)
	seedPendingJob(t, f.jobs, "job-1")

	resp, body := f.post(t, "/enrich-webhook?jobId=job-1",
		`{"matches":[{"id":"p1","name":"John Doe","phone_numbers":[{"raw_number":"+1 555-0100"}]}]}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])

	job, err := f.jobs.GetJob(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, job.Status)
	require.Len(t, job.EnrichedContacts, 1)
	assert.Equal(t, "+1 555-0100", job.EnrichedContacts[0].Phone)
}

func TestHandleWebhook_UnknownJobStillAcknowledged(t *testing.T) {
	f := newHandlerFixture(t, true)
	resp, body := f.post(t, "/enrich-webhook?jobId=missing", `{"matches":[]}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
}

func TestHandleStatus_NotFound(t *testing.T) {
	f := newHandlerFixture(t, true)
	resp, body := f.get(t, "/enrich-status/missing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Job not found", body["error"])
}

func TestHandleStatus_Completed(t *testing.T) {
	f := newHandlerFixture(t, true)
	seedPendingJob(t, f.jobs, "job-1")
	require.NoError(t, f.jobs.UpdateJob(context.Background(), "job-1",
		[]model.Contact{{ID: "p1", Name: "John Doe", Phone: "+1 555-0100"}}, ""))

	resp, body := f.get(t, "/enrich-status/job-1")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "completed", body["status"])
	assert.Equal(t, "Example Corp", body["companyName"])
	assert.Equal(t, "https://example.com", body["companyUrl"])
	assert.NotEmpty(t, body["completedAt"])

	contacts := body["contacts"].([]any)
	require.Len(t, contacts, 1)
	assert.Equal(t, "+1 555-0100", contacts[0].(map[string]any)["phone"])
}

func TestHandleSearch_OK(t *testing.T) {
	f := newHandlerFixture(t, true)
	f.exa.On("SearchCompanies", mock.Anything, "fintech startups", 5).Return([]exa.Result{
		{ID: "r1", Title: "Acme Fintech", URL: "https://acmefintech.com"},
	}, nil)

	resp, body := f.post(t, "/search", `{"query":"fintech startups","numResults":5}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	results := body["results"].([]any)
	require.Len(t, results, 1)
	assert.Equal(t, "Acme Fintech", results[0].(map[string]any)["title"])
}

func TestHandleSearch_MissingQuery(t *testing.T) {
	f := newHandlerFixture(t, true)
	resp, body := f.post(t, "/search", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "query is required", body["error"])
}

func TestHandleSearch_NotConfigured(t *testing.T) {
	apolloMock := &mockApolloClient{}
	jobs := store.NewMemory()
	orch := NewOrchestrator(apolloMock, jobs, Config{APIKeyConfigured: true})
	srv := httptest.NewServer(NewHandler(orch, jobs, nil).Routes())
	t.Cleanup(srv.Close)

	resp, err := http.Post(srv.URL+"/search", "application/json", strings.NewReader(`{"query":"x"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Exa API key not configured", body["error"])
}

func TestHandleSearch_UpstreamFailure(t *testing.T) {
	f := newHandlerFixture(t, true)
	f.exa.On("SearchCompanies", mock.Anything, "x", 0).Return(nil, eris.New("exa: HTTP 500"))

	resp, body := f.post(t, "/search", `{"query":"x"}`)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "search failed", body["error"])
}
