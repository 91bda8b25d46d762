// Command konfig-validation runs the validation service's HTTP surface:
// syntax/schema/custom-rule checks for uploaded configs, plus schema
// registration and lookup.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/codec404/Konfig/internal/cache"
	"github.com/codec404/Konfig/internal/config"
	"github.com/codec404/Konfig/internal/metrics"
	httpserver "github.com/codec404/Konfig/internal/server/http"
	"github.com/codec404/Konfig/internal/store"
	"github.com/codec404/Konfig/internal/validationsvc"
	"github.com/codec404/Konfig/pkg/log"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:   "konfig-validation",
		Short: "Konfig validation service: syntax, schema, and custom-rule checks",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				configPath = args[0]
			}
			return run(configPath)
		},
		Args: cobra.MaximumNArgs(1),
	}
	root.Flags().StringVar(&configPath, "config", os.Getenv("KONFIG_CONFIG_FILE"), "path to config file (JSON or YAML)")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	config.FromEnv(&cfg)

	logger := log.NewLogger(log.WithLevel(log.InfoLevel)).WithComponent("konfig-validation")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	dsn := store.DSN(cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.Database, cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.ConnectTimeoutSeconds)
	vstore, err := validationsvc.OpenPostgres(ctx, dsn)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	defer vstore.Close()

	var c cache.Cache = cache.NoopCache{}
	if cfg.Validation.EnableCaching && cfg.Redis.Host != "" {
		rc, err := cache.NewRedis(ctx, cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.DB)
		if err != nil {
			logger.Warnf("redis unavailable, running cacheless: %v", err)
		} else {
			c = rc
			defer rc.Close()
		}
	}

	m := metrics.New(cfg.Statsd.Host, cfg.Statsd.Port, cfg.Statsd.Prefix)
	defer m.Close()

	svc := validationsvc.New(vstore, c, m, logger, validationsvc.Config{
		MaxConfigSize: cfg.Validation.MaxConfigSize,
		EnableCaching: cfg.Validation.EnableCaching,
		CacheTTL:      time.Duration(cfg.Redis.CacheTTLSeconds) * time.Second,
	})

	srv := httpserver.NewValidationServer(svc, logger)
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Infof("validation server listening on %s", addr)
	return srv.ListenAndServe(ctx, addr)
}
