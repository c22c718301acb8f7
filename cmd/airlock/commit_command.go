package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"airlock/internal/commit"
	"airlock/internal/logging"
	"airlock/internal/notifications"
)

func newCommitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "commit ID",
		Short: "Commit a reviewed item into the ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid item id %q", args[0])
			}
			return ctx.withStores(func(s *stores) error {
				svc := commit.NewService(s.cfg, s.store, s.ledger, nil, notifications.NewService(s.cfg), logging.NewNop())
				outcome, err := svc.Commit(cmd.Context(), id)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				txn := outcome.Transaction
				fmt.Fprintf(out, "Committed item %d as transaction %d (%s)\n", id, txn.ID, txn.Date)
				for _, line := range txn.Lines {
					fmt.Fprintf(out, "  %-16s %s\n", line.AssetID, formatAmount(line.Amount, line.Currency))
				}
				if outcome.MatchedCount > 0 {
					fmt.Fprintf(out, "Matched %d expected entries\n", outcome.MatchedCount)
				}
				for _, matchErr := range outcome.MatchErrors {
					fmt.Fprintf(out, "warn: %s\n", matchErr)
				}
				return nil
			})
		},
	}
}
