package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"airlock/internal/api"
	"airlock/internal/ledger"
)

func newGhostsCommand(ctx *commandContext) *cobra.Command {
	ghostsCmd := &cobra.Command{
		Use:   "ghosts",
		Short: "Track expected ledger movements",
	}

	ghostsCmd.AddCommand(newGhostsListCommand(ctx))
	ghostsCmd.AddCommand(newGhostsAddCommand(ctx))
	ghostsCmd.AddCommand(newGhostsOverdueCommand(ctx))
	ghostsCmd.AddCommand(newGhostsVoidCommand(ctx))

	return ghostsCmd
}

func newGhostsListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List expected entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			var statuses []ledger.GhostStatus
			for _, value := range listStatuses {
				status, ok := ledger.ParseGhostStatus(value)
				if !ok {
					return fmt.Errorf("unknown ghost status %q", value)
				}
				statuses = append(statuses, status)
			}
			return ctx.withStores(func(s *stores) error {
				ghosts, err := s.queueService().ListGhosts(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if len(ghosts) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No expected entries")
					return nil
				}

				rows := make([][]string, 0, len(ghosts))
				for _, ghost := range ghosts {
					transaction := "-"
					if ghost.TransactionID != 0 {
						transaction = strconv.FormatInt(ghost.TransactionID, 10)
					}
					rows = append(rows, []string{
						strconv.FormatInt(ghost.ID, 10),
						ghost.AssetID,
						ghost.ExpectedDate,
						formatAmount(ghost.ExpectedAmount, ""),
						dash(ghost.Description),
						ghost.Status,
						transaction,
					})
				}
				table := renderTable(
					[]string{"ID", "Asset", "Expected", "Amount", "Description", "Status", "Transaction"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignRight},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by ghost status (repeatable)")
	return cmd
}

func newGhostsAddCommand(ctx *commandContext) *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "add ASSET AMOUNT DATE",
		Short: "Register an expected entry",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid amount %q", args[1])
			}
			return ctx.withStores(func(s *stores) error {
				ghost, err := s.queueService().CreateGhost(cmd.Context(), api.GhostCreateRequest{
					AssetID:        args[0],
					ExpectedAmount: amount,
					ExpectedDate:   args[2],
					Description:    description,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Registered ghost %d for %s on %s\n", ghost.ID, ghost.AssetID, ghost.ExpectedDate)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Free-form note for the expected entry")
	return cmd
}

func newGhostsOverdueCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "overdue",
		Short: "Flag pending entries that are past their grace period",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStores(func(s *stores) error {
				updated, err := s.ledger.MarkOverdue(cmd.Context(), time.Now().UTC())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Marked %d entries overdue\n", updated)
				return nil
			})
		},
	}
}

func newGhostsVoidCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "void ID",
		Short: "Cancel an expected entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid ghost id %q", args[0])
			}
			return ctx.withStores(func(s *stores) error {
				if err := s.ledger.VoidGhost(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Voided ghost %d\n", id)
				return nil
			})
		},
	}
}
