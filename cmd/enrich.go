package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/prospect-cli/internal/enrich"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/store"
)

var (
	enrichInputPath string
	enrichLimit     int
	enrichPhones    bool
	enrichWait      time.Duration
)

// enrichInput is the YAML shape accepted by --input.
type enrichInput struct {
	Companies []model.Company `yaml:"companies"`
}

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Enrich companies with contacts from Apollo",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		data, err := os.ReadFile(enrichInputPath)
		if err != nil {
			return eris.Wrap(err, "read input file")
		}
		var input enrichInput
		if err := yaml.Unmarshal(data, &input); err != nil {
			return eris.Wrap(err, "parse input file")
		}

		jobs, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer jobs.Close()

		orch := initOrchestrator(jobs)
		resp, err := orch.Enrich(ctx, enrich.Request{
			Companies:     input.Companies,
			Limit:         enrichLimit,
			IncludePhones: enrichPhones,
		})
		if err != nil {
			return eris.Wrap(err, "enrich")
		}

		if enrichPhones && enrichWait > 0 {
			waitForPhones(ctx, jobs, resp, enrichWait)
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	},
}

// waitForPhones polls the phone jobs started by the request until all are
// terminal or the deadline passes, folding delivered phone numbers back into
// the response contacts.
func waitForPhones(ctx context.Context, jobs store.Store, resp *enrich.Response, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	interval := 2 * time.Second

	for i := range resp.Results {
		jobID := resp.Results[i].PhoneJobID
		if jobID == "" {
			continue
		}

		for {
			job, err := jobs.GetJob(ctx, jobID)
			if err != nil {
				zap.L().Warn("phone job poll failed", zap.String("job_id", jobID), zap.Error(err))
				break
			}
			if job.Status.Terminal() {
				if job.Status == model.JobStatusCompleted {
					resp.Results[i].Contacts = job.EnrichedContacts
				}
				break
			}
			if time.Now().After(deadline) {
				zap.L().Warn("phone job still pending at deadline", zap.String("job_id", jobID))
				break
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(interval):
			}
			if interval < 15*time.Second {
				interval *= 2
			}
		}
	}
}

func init() {
	enrichCmd.Flags().StringVar(&enrichInputPath, "input", "", "path to YAML file with companies (required)")
	enrichCmd.Flags().IntVar(&enrichLimit, "limit", 0, "contacts per company (default from config)")
	enrichCmd.Flags().BoolVar(&enrichPhones, "phones", false, "request phone enrichment")
	enrichCmd.Flags().DurationVar(&enrichWait, "wait", 0, "how long to wait for phone delivery (0 = don't wait)")
	_ = enrichCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(enrichCmd)
}
