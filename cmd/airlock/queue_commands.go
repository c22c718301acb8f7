package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"airlock/internal/airlock"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the ingestion queue",
	}

	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueShowCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))

	return queueCmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue status summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStores(func(s *stores) error {
				stats, err := s.queueService().Stats(cmd.Context())
				if err != nil {
					return err
				}

				rows := make([][]string, 0, len(airlock.AllStatuses()))
				total := 0
				for _, status := range airlock.AllStatuses() {
					count := stats[string(status)]
					total += count
					if count == 0 {
						continue
					}
					rows = append(rows, []string{string(status), strconv.Itoa(count)})
				}
				if total == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				rows = append(rows, []string{"TOTAL", strconv.Itoa(total)})
				table := renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := parseStatuses(listStatuses)
			if err != nil {
				return err
			}
			return ctx.withStores(func(s *stores) error {
				items, err := s.queueService().List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}

				colorize := shouldColorize(cmd.OutOrStdout())
				rows := make([][]string, 0, len(items))
				for _, item := range items {
					rows = append(rows, []string{
						strconv.FormatInt(item.ID, 10),
						dash(item.OriginalName),
						dash(item.AssetID),
						item.Status,
						colorizeTrust(item.TrustLevel, colorize),
						fmt.Sprintf("%.2f", item.Confidence),
						truncate(item.ErrorMessage, 48),
					})
				}
				table := renderTable(
					[]string{"ID", "Document", "Asset", "Status", "Trust", "Confidence", "Error"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by status (repeatable)")
	return cmd
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one queue item with its extracted rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid item id %q", args[0])
			}
			return ctx.withStores(func(s *stores) error {
				item, err := s.store.GetByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				if item == nil {
					return fmt.Errorf("item %d not found", id)
				}

				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				fmt.Fprintf(out, "Item %d\n", item.ID)
				fmt.Fprintf(out, "  Document:   %s\n", dash(item.OriginalName))
				fmt.Fprintf(out, "  Asset:      %s\n", dash(item.AssetID))
				fmt.Fprintf(out, "  Status:     %s\n", item.Status)
				fmt.Fprintf(out, "  Trust:      %s\n", colorizeTrust(string(item.TrustLevel), colorize))
				fmt.Fprintf(out, "  Confidence: %.2f\n", item.Confidence)
				if item.ErrorMessage != "" {
					fmt.Fprintf(out, "  Error:      %s\n", item.ErrorMessage)
				}

				payload, err := airlock.DecodePayload(item.PayloadJSON)
				if err != nil {
					return err
				}
				if payload == nil || len(payload.Transactions) == 0 {
					return nil
				}

				rows := make([][]string, 0, len(payload.Transactions))
				for _, tx := range payload.Transactions {
					rows = append(rows, []string{
						tx.Date,
						formatAmount(tx.Amount, tx.Currency),
						dash(tx.Description),
						dash(tx.Counterparty),
						fmt.Sprintf("%.2f", tx.Confidence),
					})
				}
				table := renderTable(
					[]string{"Date", "Amount", "Description", "Counterparty", "Confidence"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignRight},
				)
				fmt.Fprintln(out, table)
				return nil
			})
		},
	}
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [ID...]",
		Short: "Requeue errored items for another ingestion attempt",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStores(func(s *stores) error {
				out := cmd.OutOrStdout()
				if len(args) == 0 {
					count, err := s.store.RequeueErrored(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Requeued %d errored item(s)\n", count)
					return nil
				}
				for _, arg := range args {
					id, err := strconv.ParseInt(arg, 10, 64)
					if err != nil {
						return fmt.Errorf("invalid item id %q", arg)
					}
					if err := s.store.Requeue(cmd.Context(), id); err != nil {
						return err
					}
					fmt.Fprintf(out, "Requeued item %d\n", id)
				}
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var clearStatuses []string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := parseStatuses(clearStatuses)
			if err != nil {
				return err
			}
			return ctx.withStores(func(s *stores) error {
				count, err := s.store.Clear(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d item(s)\n", count)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&clearStatuses, "status", "s", nil, "Only remove items in these statuses (repeatable)")
	return cmd
}

func parseStatuses(values []string) ([]airlock.Status, error) {
	var statuses []airlock.Status
	for _, value := range values {
		status, ok := airlock.ParseStatus(value)
		if !ok {
			return nil, fmt.Errorf("unknown status %q", value)
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}
