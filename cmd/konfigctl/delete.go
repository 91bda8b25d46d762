package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/codec404/Konfig/internal/apiclient"
)

func newDeleteCommand() *cobra.Command {
	var (
		force  bool
		server string
	)

	cmd := &cobra.Command{
		Use:   "delete [config-id]",
		Short: "Delete a configuration",
		Long: `Delete a configuration by ID. This cannot be undone.

Examples:
  konfigctl delete my-service-v5
  konfigctl delete my-service-v5 --force`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configID := args[0]

			if !force {
				fmt.Printf("delete %s? (yes/no): ", configID)
				var confirm string
				fmt.Scanln(&confirm)
				if confirm != "yes" {
					fmt.Println("cancelled")
					return nil
				}
			}

			client := apiclient.New(serverAddr(server))
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			resp, err := client.DeleteConfig(ctx, configID)
			if err != nil {
				return fmt.Errorf("delete failed: %w", err)
			}
			if !resp.Deleted {
				return fmt.Errorf("delete failed: %s", resp.Message)
			}
			fmt.Printf("deleted %s\n", configID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Skip confirmation")
	cmd.Flags().StringVar(&server, "server", "", "API server base URL")

	return cmd
}
