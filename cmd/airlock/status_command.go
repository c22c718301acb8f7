package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"airlock/internal/airlock"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show database location and queue counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStores(func(s *stores) error {
				health, err := s.store.Health(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Database: %s\n", s.store.Path())
				fmt.Fprintf(out, "Blobs:    %s\n", s.blobs.Root())

				rows := [][]string{
					{string(airlock.StatusQueued), strconv.Itoa(health.Queued)},
					{string(airlock.StatusProcessing), strconv.Itoa(health.Processing)},
					{string(airlock.StatusReviewNeeded), strconv.Itoa(health.ReviewNeeded)},
					{string(airlock.StatusError), strconv.Itoa(health.Errored)},
					{string(airlock.StatusCommitted), strconv.Itoa(health.Committed)},
					{"TOTAL", strconv.Itoa(health.Total)},
				}
				table := renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
				fmt.Fprintln(out, table)
				return nil
			})
		},
	}
}
