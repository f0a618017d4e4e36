package main

import (
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/enrich"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect and maintain phone-enrichment jobs",
}

var jobsStatusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Show the status of a phone-enrichment job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		jobs, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer jobs.Close()

		status, err := enrich.ReadStatus(ctx, jobs, args[0])
		if err != nil {
			return eris.Wrapf(err, "job %s", args[0])
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	},
}

var jobsExpireOlderThan time.Duration

var jobsExpireCmd = &cobra.Command{
	Use:   "expire",
	Short: "Delete jobs older than the retention window",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		retention := jobsExpireOlderThan
		if retention == 0 {
			if cfg.Enrich.RetentionHours == 0 {
				return eris.New("no retention window: set --older-than or enrich.retention_hours")
			}
			retention = time.Duration(cfg.Enrich.RetentionHours) * time.Hour
		}

		jobs, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer jobs.Close()

		n, err := jobs.DeleteExpired(ctx, retention)
		if err != nil {
			return eris.Wrap(err, "delete expired jobs")
		}

		zap.L().Info("expired jobs deleted",
			zap.Int("deleted", n),
			zap.Duration("older_than", retention),
		)
		return nil
	},
}

func init() {
	jobsExpireCmd.Flags().DurationVar(&jobsExpireOlderThan, "older-than", 0, "delete jobs older than this (default from config)")
	jobsCmd.AddCommand(jobsStatusCmd, jobsExpireCmd)
	rootCmd.AddCommand(jobsCmd)
}
