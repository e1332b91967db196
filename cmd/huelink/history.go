package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newHistoryCmd(c *cli) *cobra.Command {
	var (
		limit int
		prune time.Duration
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent discovery and pairing activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if prune > 0 {
				deleted, err := c.app.PruneHistory(prune)
				if err != nil {
					return err
				}
				fmt.Printf("Removed %d entries\n", deleted)
				return nil
			}

			entries, err := c.app.History(limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tEVENT\tBRIDGE\tRUN\tDETAILS")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%v\n",
					e.Timestamp.Format(time.RFC3339), e.EventType, e.BridgeID, e.RunID, e.Payload)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show")
	cmd.Flags().DurationVar(&prune, "prune", 0, "Delete entries older than this instead of listing")
	return cmd
}
