package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/codec404/Konfig/internal/apiclient"
)

func newGetCommand() *cobra.Command {
	var (
		output string
		server string
	)

	cmd := &cobra.Command{
		Use:   "get [config-id]",
		Short: "Get a configuration by ID",
		Long: `Retrieve a configuration by its ID.

Examples:
  konfigctl get my-service-v1
  konfigctl get my-service-v5 -o json
  konfigctl get my-service-v3 -o yaml > config.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configID := args[0]

			client := apiclient.New(serverAddr(server))
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			resp, err := client.GetConfig(ctx, configID)
			if err != nil {
				return fmt.Errorf("get failed: %w", err)
			}
			if !resp.Found {
				return fmt.Errorf("config not found: %s", configID)
			}
			cfg := resp.Config

			switch output {
			case "json":
				data, _ := json.MarshalIndent(cfg, "", "  ")
				fmt.Println(string(data))
			case "yaml":
				data, _ := yaml.Marshal(cfg)
				fmt.Print(string(data))
			case "content":
				fmt.Println(string(cfg.Content))
			default:
				fmt.Println("Configuration Details")
				fmt.Printf("Config ID:   %s\n", cfg.ConfigID)
				fmt.Printf("Service:     %s\n", cfg.ServiceName)
				fmt.Printf("Version:     %d\n", cfg.Version)
				fmt.Printf("Format:      %s\n", cfg.Format)
				fmt.Printf("Created By:  %s\n", cfg.CreatedBy)
				fmt.Printf("Created At:  %s\n", time.Unix(cfg.CreatedAt, 0).Format(time.RFC3339))
				fmt.Println()
				fmt.Println("Content:")
				fmt.Println(string(cfg.Content))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format (table|json|yaml|content)")
	cmd.Flags().StringVar(&server, "server", "", "API server base URL")

	return cmd
}
