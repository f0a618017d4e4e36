package main

import (
	"github.com/sells-group/prospect-cli/internal/enrich"
	"github.com/sells-group/prospect-cli/internal/store"
	"github.com/sells-group/prospect-cli/pkg/apollo"
	"github.com/sells-group/prospect-cli/pkg/exa"
)

func initOrchestrator(jobs store.Store) *enrich.Orchestrator {
	client := apollo.NewClient(cfg.Apollo.Key,
		apollo.WithBaseURL(cfg.Apollo.BaseURL),
		apollo.WithRateLimit(cfg.Apollo.RateLimit),
	)
	return enrich.NewOrchestrator(client, jobs, enrich.Config{
		APIKeyConfigured:       cfg.Apollo.Key != "",
		WebhookBaseURL:         cfg.Enrich.WebhookBaseURL,
		MaxConcurrentCompanies: cfg.Enrich.MaxConcurrentCompanies,
		DefaultLimit:           cfg.Enrich.DefaultLimit,
	})
}

// initExa returns nil when no key is configured; handlers and commands treat
// a nil client as "search not configured".
func initExa() exa.Client {
	if cfg.Exa.Key == "" {
		return nil
	}
	return exa.NewClient(cfg.Exa.Key, exa.WithBaseURL(cfg.Exa.BaseURL))
}
