package enrich

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/store"
	"github.com/sells-group/prospect-cli/pkg/exa"
)

// Handler exposes the enrichment flow over HTTP. The search client is
// optional; a nil client turns /search into a configuration error.
type Handler struct {
	orch   *Orchestrator
	jobs   store.Store
	search exa.Client
}

// NewHandler wires the HTTP handlers.
func NewHandler(orch *Orchestrator, jobs store.Store, search exa.Client) *Handler {
	return &Handler{orch: orch, jobs: jobs, search: search}
}

// Routes returns the chi router for all enrichment endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/health", h.handleHealth)
	r.Post("/search", h.handleSearch)
	r.Post("/enrich", h.handleEnrich)
	r.Post("/enrich-webhook", h.handleWebhook)
	r.Get("/enrich-status/{jobID}", h.handleStatus)
	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleEnrich(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.orch.Enrich(r.Context(), req)
	switch {
	case errors.Is(err, ErrMissingCompanies):
		writeError(w, http.StatusBadRequest, "companies field is required")
		return
	case errors.Is(err, ErrAPIKeyMissing):
		writeError(w, http.StatusInternalServerError, "Apollo API key not configured")
		return
	case err != nil:
		zap.L().Error("enrich request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "enrichment failed")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	jobID := r.URL.Query().Get("jobId")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "Missing jobId parameter")
		return
	}

	var payload WebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resolver := NewWebhookResolver(h.jobs)
	if err := resolver.Resolve(r.Context(), jobID, payload); err != nil {
		// Delivery must always be acknowledged; an unknown job id is logged
		// and swallowed so the provider has no reason to retry.
		if errors.Is(err, store.ErrJobNotFound) {
			zap.L().Warn("webhook for unknown job", zap.String("job_id", jobID))
		} else {
			zap.L().Error("webhook update failed", zap.String("job_id", jobID), zap.Error(err))
		}
	} else {
		zap.L().Info("phone enrichment delivered",
			zap.String("job_id", jobID),
			zap.Int("matches", len(payload.Matches)),
		)
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	status, err := ReadStatus(r.Context(), h.jobs, jobID)
	if err != nil {
		if errors.Is(err, store.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "Job not found")
			return
		}
		zap.L().Error("status read failed", zap.String("job_id", jobID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "status read failed")
		return
	}

	writeJSON(w, http.StatusOK, status)
}

type searchRequest struct {
	Query      string `json:"query"`
	NumResults int    `json:"numResults"`
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	if h.search == nil {
		writeError(w, http.StatusInternalServerError, "Exa API key not configured")
		return
	}

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	results, err := h.search.SearchCompanies(r.Context(), req.Query, req.NumResults)
	if err != nil {
		zap.L().Error("company search failed", zap.String("query", req.Query), zap.Error(err))
		writeError(w, http.StatusBadGateway, "search failed")
		return
	}
	if results == nil {
		results = []exa.Result{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("write response failed", zap.Error(eris.Wrap(err, "encode json")))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
