package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/codec404/Konfig/internal/model"
	"github.com/codec404/Konfig/internal/validationsvc/syntax"
)

func newValidateCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "validate [config-file]",
		Short: "Validate a configuration file's syntax locally",
		Long: `Check configuration file syntax without contacting the control plane
or validation service, the same syntactic check internal/validationsvc
runs before the schema/custom-rule layers.

Examples:
  konfigctl validate config.json
  konfigctl validate config.yaml --format yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configFile := args[0]

			content, err := os.ReadFile(configFile)
			if err != nil {
				return fmt.Errorf("read file: %w", err)
			}
			if format == "" {
				format = detectFormat(configFile)
			}

			var doc map[string]any
			var errs []model.ValidationError

			switch format {
			case "yaml":
				doc, errs = syntax.ValidateYAML(content)
			default:
				doc, errs = syntax.ValidateJSON(content)
			}

			if len(errs) > 0 {
				fmt.Println("invalid")
				for _, e := range errs {
					fmt.Printf("  - %s: %s\n", e.Field, e.Message)
				}
				return fmt.Errorf("syntax validation failed")
			}

			fmt.Println("valid")
			for _, w := range syntax.ValidateStructure(doc) {
				fmt.Printf("  warning: %s: %s\n", w.Field, w.Message)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "Config format (json|yaml)")

	return cmd
}
