package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/codec404/Konfig/internal/apiclient"
	"github.com/codec404/Konfig/internal/model"
)

func newRollbackCommand() *cobra.Command {
	var (
		toVersion int64
		server    string
	)

	cmd := &cobra.Command{
		Use:   "rollback [service-name]",
		Short: "Rollback a service's configuration to a previous version",
		Long: `Rollback service configuration to a previous version.

Examples:
  konfigctl rollback my-service --to-version 4
  konfigctl rollback my-service --to-version 0  # one version back`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			serviceName := args[0]

			client := apiclient.New(serverAddr(server))
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			resp, err := client.Rollback(ctx, model.RollbackRequest{ServiceName: serviceName, TargetVersion: toVersion})
			if err != nil {
				return fmt.Errorf("rollback failed: %w", err)
			}
			if !resp.Success {
				return fmt.Errorf("rollback failed: %s", resp.Message)
			}
			fmt.Printf("rolled back to %s: %s\n", resp.ConfigID, resp.Message)
			return nil
		},
	}

	cmd.Flags().Int64Var(&toVersion, "to-version", 0, "Target version (0 = one version back)")
	cmd.Flags().StringVar(&server, "server", "", "API server base URL")

	return cmd
}
