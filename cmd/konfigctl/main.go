// Command konfigctl is the operator CLI over the control-plane write path
// and validation service, grounded line-for-line on
// _examples/original_source/internal/commands (upload/get/list/delete/
// rollback/status/validate/version), rewired from the original's gRPC
// stub onto internal/apiclient's HTTP/JSON calls.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:     "konfigctl",
		Short:   "Operator CLI for the Konfig control plane",
		Version: version,
	}

	root.AddCommand(
		newUploadCommand(),
		newGetCommand(),
		newListCommand(),
		newDeleteCommand(),
		newRollbackCommand(),
		newStatusCommand(),
		newValidateCommand(),
		newVersionCommand(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serverAddr(flagVal string) string {
	if flagVal != "" {
		return flagVal
	}
	if v := os.Getenv("KONFIG_API_URL"); v != "" {
		return v
	}
	return "http://localhost:8081"
}

func detectFormat(filename string) string {
	switch filepath.Ext(filename) {
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
