package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/codec404/Konfig/internal/apiclient"
)

func newListCommand() *cobra.Command {
	var (
		service string
		limit   int
		offset  int
		server  string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configurations",
		Long: `List all configurations or filter by service name.

Examples:
  konfigctl list
  konfigctl list --service my-service
  konfigctl list --limit 10`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := apiclient.New(serverAddr(server))
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			resp, err := client.ListConfigs(ctx, service, limit, offset)
			if err != nil {
				return fmt.Errorf("list failed: %w", err)
			}
			if len(resp.Items) == 0 {
				fmt.Println("no configurations found")
				return nil
			}

			fmt.Printf("%-30s %-20s %-8s %-20s %s\n", "CONFIG ID", "SERVICE", "VERSION", "CREATED BY", "CREATED AT")
			for _, cfg := range resp.Items {
				createdAt := time.Unix(cfg.CreatedAt, 0).Format("2006-01-02 15:04")
				fmt.Printf("%-30s %-20s %-8d %-20s %s\n",
					truncate(cfg.ConfigID, 30), truncate(cfg.ServiceName, 20), cfg.Version, truncate(cfg.CreatedBy, 20), createdAt)
			}
			fmt.Printf("\ntotal: %d\n", resp.TotalCount)
			return nil
		},
	}

	cmd.Flags().StringVarP(&service, "service", "s", "", "Filter by service name")
	cmd.Flags().IntVarP(&limit, "limit", "l", 50, "Maximum number of results")
	cmd.Flags().IntVar(&offset, "offset", 0, "Pagination offset")
	cmd.Flags().StringVar(&server, "server", "", "API server base URL")

	return cmd
}
