package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"airlock/internal/api"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var assetID string
	var userID string

	cmd := &cobra.Command{
		Use:   "upload FILE",
		Short: "Stage a document for ingestion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read document: %w", err)
			}

			return ctx.withStores(func(s *stores) error {
				item, err := s.queueService().Upload(cmd.Context(), api.UploadRequest{
					FileName: filepath.Base(path),
					Content:  string(data),
					AssetID:  assetID,
					UserID:   userID,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued item %d (%s)\n", item.ID, item.SourcePath)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&assetID, "asset", "a", "", "Asset the document belongs to")
	cmd.Flags().StringVarP(&userID, "user", "u", "", "User recorded as the uploader")
	return cmd
}
