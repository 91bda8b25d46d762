// Command konfig-api runs the control-plane write path's HTTP API:
// upload, get, list, delete, rollout, and rollback.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/codec404/Konfig/internal/config"
	"github.com/codec404/Konfig/internal/controlplane"
	"github.com/codec404/Konfig/internal/distnotifier"
	"github.com/codec404/Konfig/internal/events"
	"github.com/codec404/Konfig/internal/metrics"
	httpserver "github.com/codec404/Konfig/internal/server/http"
	"github.com/codec404/Konfig/internal/store"
	"github.com/codec404/Konfig/internal/validatorclient"
	"github.com/codec404/Konfig/pkg/log"
)

func main() {
	var configPath string
	var distributionURL, validationURL string

	root := &cobra.Command{
		Use:   "konfig-api",
		Short: "Konfig control-plane write path: upload, list, rollout, rollback",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				configPath = args[0]
			}
			return run(configPath, distributionURL, validationURL)
		},
		Args: cobra.MaximumNArgs(1),
	}
	root.Flags().StringVar(&configPath, "config", os.Getenv("KONFIG_CONFIG_FILE"), "path to config file (JSON or YAML)")
	root.Flags().StringVar(&distributionURL, "distribution-url", envOr("KONFIG_DISTRIBUTION_URL", "http://konfig-distribution:8083"), "base URL of the distribution engine's internal push endpoint")
	root.Flags().StringVar(&validationURL, "validation-url", envOr("KONFIG_VALIDATION_URL", "http://konfig-validation:8084"), "base URL of the validation service")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func run(configPath, distributionURL, validationURL string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	config.FromEnv(&cfg)

	logger := log.NewLogger(log.WithLevel(log.InfoLevel)).WithComponent("konfig-api")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	s, err := store.Open(ctx, store.DSN(cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.Database, cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.ConnectTimeoutSeconds))
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	defer s.Close()

	var emitter events.Emitter = events.NoopEmitter{}
	if len(cfg.Kafka.Brokers) > 0 {
		ke, err := events.NewKafka(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			logger.Warnf("kafka unavailable, running without event emission: %v", err)
		} else {
			emitter = ke
			defer ke.Shutdown(context.Background())
		}
	}

	m := metrics.New(cfg.Statsd.Host, cfg.Statsd.Port, cfg.Statsd.Prefix)
	defer m.Close()

	validator := validatorclient.New(validationURL)
	notifier := distnotifier.New(distributionURL, logger)

	cp := controlplane.New(s, validator, notifier, emitter, m, logger)

	srv := httpserver.NewAPIServer(cp, logger)
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Infof("control-plane API listening on %s", addr)
	return srv.ListenAndServe(ctx, addr)
}
