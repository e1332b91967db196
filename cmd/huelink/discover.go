package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dokzlo13/huelink/internal/discovery"
)

func newDiscoverCmd(c *cli) *cobra.Command {
	var (
		timeout time.Duration
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Find bridges via the cloud registry, SSDP and mDNS",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			result, err := c.app.Discover(ctx)
			if asJSON {
				if encErr := printResultJSON(result); encErr != nil {
					return encErr
				}
			} else {
				printResult(result)
			}
			return err
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Bound discovery more tightly than the configured timeout")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")
	return cmd
}

func printResult(result *discovery.Result) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tADDRESS\tSOURCE\tALTERNATES")
	for _, cand := range result.Candidates() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", cand.ID, cand.Address(), cand.Source, strings.Join(cand.Alternates, ","))
	}
	w.Flush()

	if result.Len() == 0 {
		fmt.Println("No bridges found.")
	}
	for name, err := range result.Failures {
		fmt.Fprintf(os.Stderr, "transport %s failed: %v\n", name, err)
	}
}

func printResultJSON(result *discovery.Result) error {
	failures := make(map[string]string, len(result.Failures))
	for name, err := range result.Failures {
		failures[name] = err.Error()
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Bridges  []discovery.Candidate `json:"bridges"`
		Failures map[string]string     `json:"failures,omitempty"`
	}{
		Bridges:  result.Candidates(),
		Failures: failures,
	})
}
