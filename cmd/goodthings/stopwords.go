package main

import (
	"errors"
	"fmt"

	"github.com/japaniel/goodthings/pkg/db"
	"github.com/spf13/cobra"
)

func (a *app) stopWordsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "stopwords",
		Aliases: []string{"stop"},
		Short:   "Manage words that are never counted",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add WORD...",
			Short: "Exclude words from the ranking",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withStore(cmd, func(store *db.Store, userID string) error {
					for _, w := range args {
						err := store.AddStopWord(cmd.Context(), userID, w)
						if errors.Is(err, db.ErrExists) {
							fmt.Fprintf(a.out, "%s is already a stop word\n", w)
							continue
						}
						if err != nil {
							return err
						}
						fmt.Fprintf(a.out, "added %s\n", w)
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:     "remove WORD...",
			Aliases: []string{"rm"},
			Short:   "Count words again",
			Args:    cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withStore(cmd, func(store *db.Store, userID string) error {
					for _, w := range args {
						ok, err := store.RemoveStopWord(cmd.Context(), userID, w)
						if err != nil {
							return err
						}
						if !ok {
							fmt.Fprintf(a.out, "%s is not a stop word\n", w)
							continue
						}
						fmt.Fprintf(a.out, "removed %s\n", w)
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:     "list",
			Aliases: []string{"ls"},
			Short:   "List stop words",
			Args:    cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.withStore(cmd, func(store *db.Store, userID string) error {
					words, err := store.StopWords(cmd.Context(), userID)
					if err != nil {
						return err
					}
					for _, w := range words {
						fmt.Fprintln(a.out, w)
					}
					return nil
				})
			},
		},
	)
	return cmd
}

// withStore resolves the user and opens a migrated store around fn.
func (a *app) withStore(cmd *cobra.Command, fn func(store *db.Store, userID string) error) error {
	userID, err := a.userID()
	if err != nil {
		return err
	}
	store, err := a.openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store, userID)
}
