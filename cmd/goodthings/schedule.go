package main

import (
	"context"

	"github.com/japaniel/goodthings/pkg/period"
	"github.com/japaniel/goodthings/pkg/schedule"
	"github.com/spf13/cobra"
)

func (a *app) scheduleCmd() *cobra.Command {
	var spec string
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Stay running and analyse the previous month on a cron schedule (JST)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if spec == "" {
				spec = a.cfg.Schedule.Cron
			}
			s, err := schedule.New(spec, a.scheduledRun, a.logger)
			if err != nil {
				return err
			}
			return s.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&spec, "cron", "", "cron expression in JST (default: schedule.cron)")
	return cmd
}

// scheduledRun analyses one month for a cron tick.
func (a *app) scheduledRun(ctx context.Context, p period.Period) error {
	res, err := a.analyse(ctx, p, 0)
	if err != nil {
		return err
	}
	st := a.analyzers.Stats()
	a.logger.Info("stored keywords",
		"month", res.TargetMonth.Format("2006-01"),
		"keywords", len(res.Ranked),
		"run_id", res.RunID,
		"analyzer_cache_hits", st.Hits,
		"analyzer_cache_misses", st.Misses,
	)
	return nil
}
