package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/japaniel/goodthings/pkg/db"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func (a *app) historyCmd() *cobra.Command {
	var (
		format string
		months int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show stored keywords of past months",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := a.userID()
			if err != nil {
				return err
			}
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			rows, err := store.History(cmd.Context(), userID, months)
			if err != nil {
				return err
			}
			return a.printHistory(rows, format)
		},
	}
	cmd.Flags().StringVar(&format, "format", "table", "output format (table, json, yaml)")
	cmd.Flags().IntVar(&months, "months", 12, "number of most recent months to show (0 for all)")
	return cmd
}

func (a *app) printHistory(rows []db.MonthlyKeyword, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if rows == nil {
			rows = []db.MonthlyKeyword{}
		}
		return enc.Encode(rows)
	case "yaml":
		enc := yaml.NewEncoder(a.out)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(rows)
	case "table", "":
		if len(rows) == 0 {
			fmt.Fprintln(a.out, "no keywords stored yet")
			return nil
		}
		tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, headerStyle.Render("MONTH")+"\tRANK\tWORD\tCOUNT")
		for _, r := range rows {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%d\n", r.Month(), r.Rank, r.Word, r.Count)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown format %q (want table, json or yaml)", format)
	}
}
