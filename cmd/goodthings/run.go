package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/japaniel/goodthings/pkg/period"
	"github.com/japaniel/goodthings/pkg/pipeline"
	"github.com/spf13/cobra"
)

type runOptions struct {
	recent int
	topN   int
	json   bool
}

func (a *app) runCmd() *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run [YYYY-MM]",
		Short: "Analyse one month, or the newest entries when no month is given",
		Example: `  goodthings run 2025-01
  goodthings run --recent 50 --top 10`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAnalysis(cmd.Context(), args, opts)
		},
	}
	cmd.Flags().IntVar(&opts.recent, "recent", 0, "number of newest entries to analyse when no month is given (default: pipeline.recent_limit)")
	cmd.Flags().IntVar(&opts.topN, "top", 0, "number of keywords to keep (default: pipeline.top_n)")
	cmd.Flags().BoolVar(&opts.json, "json", false, "also write the ranking to output.dir as JSON")
	return cmd
}

func (a *app) selectPeriod(args []string, recent int) (period.Period, error) {
	if len(args) == 1 {
		return period.Parse(args[0])
	}
	if recent <= 0 {
		recent = a.cfg.Pipeline.RecentLimit
	}
	if recent > 100 {
		return period.Period{}, fmt.Errorf("--recent must be at most 100, got %d", recent)
	}
	return period.Recent(recent), nil
}

func (a *app) runAnalysis(ctx context.Context, args []string, opts runOptions) error {
	p, err := a.selectPeriod(args, opts.recent)
	if err != nil {
		return err
	}
	if opts.json {
		a.cfg.Output.JSON = true
	}
	res, err := a.analyse(ctx, p, opts.topN)
	if err != nil {
		return err
	}
	a.printResult(res)
	return nil
}

// analyse runs the pipeline once for the configured user.
func (a *app) analyse(ctx context.Context, p period.Period, topN int) (*pipeline.Result, error) {
	userID, err := a.userID()
	if err != nil {
		return nil, err
	}
	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	pl, err := a.newPipeline(ctx, store, topN)
	if err != nil {
		return nil, err
	}
	return pl.Run(ctx, pipeline.Request{UserID: userID, Period: p})
}

func (a *app) printResult(res *pipeline.Result) {
	fmt.Fprintln(a.out, headerStyle.Render(res.Period.Label(time.Now())))
	if res.Empty {
		fmt.Fprintf(a.out, "no data for %s\n", res.TargetMonth.Format("2006-01"))
		return
	}
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tWORD\tCOUNT")
	for i, tc := range res.Ranked {
		fmt.Fprintf(tw, "%d\t%s\t%d\n", i+1, tc.Term, tc.Count)
	}
	tw.Flush()
}
