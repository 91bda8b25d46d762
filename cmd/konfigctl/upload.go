package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/codec404/Konfig/internal/apiclient"
	"github.com/codec404/Konfig/internal/model"
	"github.com/codec404/Konfig/internal/validationsvc/syntax"
)

func newUploadCommand() *cobra.Command {
	var (
		serviceName string
		format      string
		description string
		createdBy   string
		dryRun      bool
		server      string
	)

	cmd := &cobra.Command{
		Use:   "upload [config-file]",
		Short: "Upload a configuration file",
		Long: `Upload a configuration file to the control plane.

The file is validated, versioned, and stored. Clients subscribed to this
service will receive the update.

Examples:
  konfigctl upload config.json --service my-service
  konfigctl upload config.yaml --service my-service --format yaml
  konfigctl upload config.json --service my-service --dry-run`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configFile := args[0]

			content, err := os.ReadFile(configFile)
			if err != nil {
				return fmt.Errorf("read config file: %w", err)
			}

			if format == "" {
				format = detectFormat(configFile)
			}

			if dryRun {
				var errs []model.ValidationError
				if format == "yaml" {
					_, errs = syntax.ValidateYAML(content)
				} else {
					_, errs = syntax.ValidateJSON(content)
				}
				if len(errs) > 0 {
					fmt.Println("invalid")
					for _, e := range errs {
						fmt.Printf("  - %s: %s\n", e.Field, e.Message)
					}
					return fmt.Errorf("syntax validation failed")
				}
				fmt.Println("dry run: no changes made")
				fmt.Printf("  service: %s\n  format:  %s\n  size:    %d bytes\n", serviceName, format, len(content))
				return nil
			}

			if createdBy == "" {
				createdBy = os.Getenv("USER")
				if createdBy == "" {
					createdBy = "konfigctl"
				}
			}

			client := apiclient.New(serverAddr(server))
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			resp, err := client.UploadConfig(ctx, model.UploadConfigRequest{
				ServiceName: serviceName,
				Content:     content,
				Format:      format,
				CreatedBy:   createdBy,
				Description: description,
				Validate:    true,
			})
			if err != nil {
				return fmt.Errorf("upload failed: %w", err)
			}
			if !resp.Success {
				fmt.Printf("upload rejected: %s\n", resp.Message)
				for _, e := range resp.ValidationErrors {
					fmt.Printf("  - %s: %s\n", e.Field, e.Message)
				}
				return fmt.Errorf("upload rejected")
			}

			fmt.Printf("uploaded %s version %d\n", resp.ConfigID, resp.Version)
			return nil
		},
	}

	cmd.Flags().StringVarP(&serviceName, "service", "s", "", "Service name (required)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "Config format (json|yaml)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Configuration description")
	cmd.Flags().StringVar(&createdBy, "created-by", "", "Who is uploading (default: $USER)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate locally without uploading")
	cmd.Flags().StringVar(&server, "server", "", "API server base URL (default: $KONFIG_API_URL or http://localhost:8081)")
	cmd.MarkFlagRequired("service")

	return cmd
}
