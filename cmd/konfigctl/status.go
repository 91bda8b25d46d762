package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/codec404/Konfig/internal/apiclient"
)

func newStatusCommand() *cobra.Command {
	var server string

	cmd := &cobra.Command{
		Use:   "status [config-id]",
		Short: "Show rollout status for a configuration",
		Long:  `Display the rollout status of a configuration.

Examples:
  konfigctl status my-service-v5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configID := args[0]

			client := apiclient.New(serverAddr(server))
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			resp, err := client.GetRolloutStatus(ctx, configID)
			if err != nil {
				return fmt.Errorf("status query failed: %w", err)
			}
			rollout := resp.Rollout

			fmt.Printf("Config ID:  %s\n", rollout.ConfigID)
			fmt.Printf("Strategy:   %d\n", rollout.Strategy)
			fmt.Printf("Progress:   %d%% / %d%%\n", rollout.CurrentPercentage, rollout.TargetPercentage)
			fmt.Printf("Status:     %s\n", rollout.Status)
			fmt.Printf("Started:    %s\n", time.Unix(rollout.StartedAt, 0).Format(time.RFC3339))
			if rollout.CompletedAt > 0 {
				fmt.Printf("Completed:  %s\n", time.Unix(rollout.CompletedAt, 0).Format(time.RFC3339))
			}

			if len(resp.Instances) > 0 {
				fmt.Println()
				fmt.Printf("%-30s %-10s %-15s\n", "INSTANCE ID", "VERSION", "STATUS")
				for _, inst := range resp.Instances {
					fmt.Printf("%-30s %-10d %-15s\n", truncate(inst.InstanceID, 30), inst.CurrentVersion, inst.Status)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "API server base URL")

	return cmd
}
