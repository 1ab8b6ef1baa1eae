package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/japaniel/goodthings/pkg/db"
	"github.com/japaniel/goodthings/pkg/dictionary"
	"github.com/spf13/cobra"
)

func (a *app) dictCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dict",
		Short: "Manage the personal dictionary",
		Long: `Words registered here are recognised as single nouns, for example
"朝活" instead of "朝" and "活".`,
	}

	var pos string
	add := &cobra.Command{
		Use:     "add WORD READING",
		Short:   "Register a word with its katakana reading",
		Example: "  goodthings dict add 朝活 アサカツ",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := managedEntry(dictionary.Entry{Surface: args[0], POS: pos, Reading: args[1]})
			if err != nil {
				return err
			}
			return a.withStore(cmd, func(store *db.Store, userID string) error {
				if err := store.AddEntry(cmd.Context(), userID, e); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "added %s (%s)\n", e.Surface, e.Reading)
				return nil
			})
		},
	}
	add.Flags().StringVar(&pos, "pos", dictionary.NounPOS, "part of speech")

	var header bool
	imp := &cobra.Command{
		Use:   "import FILE",
		Short: "Register every entry of a CSV file (word,pos,reading[,pronunciation])",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := dictionary.LoadEntriesCSV(args[0], header)
			if err != nil {
				return err
			}
			for i, e := range entries {
				if entries[i], err = managedEntry(e); err != nil {
					return fmt.Errorf("%s entry %d (%s): %w", args[0], i+1, e.Surface, err)
				}
			}
			return a.withStore(cmd, func(store *db.Store, userID string) error {
				var added, skipped int
				for _, e := range entries {
					err := store.AddEntry(cmd.Context(), userID, e)
					if errors.Is(err, db.ErrExists) {
						skipped++
						continue
					}
					if err != nil {
						return err
					}
					added++
				}
				fmt.Fprintf(a.out, "imported %d entries, %d already present\n", added, skipped)
				return nil
			})
		},
	}
	imp.Flags().BoolVar(&header, "header", false, "skip the first line of the file")

	cmd.AddCommand(
		add,
		imp,
		&cobra.Command{
			Use:     "remove WORD",
			Aliases: []string{"rm"},
			Short:   "Remove every reading of a word",
			Args:    cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withStore(cmd, func(store *db.Store, userID string) error {
					n, err := store.RemoveEntry(cmd.Context(), userID, args[0])
					if err != nil {
						return err
					}
					if n == 0 {
						fmt.Fprintf(a.out, "%s is not in the dictionary\n", args[0])
						return nil
					}
					fmt.Fprintf(a.out, "removed %s (%d entries)\n", args[0], n)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:     "list",
			Aliases: []string{"ls"},
			Short:   "List dictionary entries",
			Args:    cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.withStore(cmd, func(store *db.Store, userID string) error {
					entries, err := store.Entries(cmd.Context(), userID)
					if err != nil {
						return err
					}
					tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
					fmt.Fprintln(tw, "WORD\tREADING\tPOS")
					for _, e := range entries {
						fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Surface, e.Reading, e.POS)
					}
					return tw.Flush()
				})
			},
		},
	)
	return cmd
}

// managedEntry normalises the reading to full-width katakana and rejects
// entries that cannot be stored.
func managedEntry(e dictionary.Entry) (dictionary.Entry, error) {
	e.Reading = dictionary.NormalizeReading(e.Reading)
	if err := dictionary.ValidateReading(e.Reading); err != nil {
		return e, err
	}
	if e.Pronunciation != "" {
		e.Pronunciation = dictionary.NormalizeReading(e.Pronunciation)
	} else {
		e.Pronunciation = e.Reading
	}
	return e, e.Validate()
}
