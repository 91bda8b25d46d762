// Command konfig-distribution runs the distribution engine's WebSocket
// fan-out server: subscribers connect, receive the latest config for their
// service, and get pushed every subsequent update until evicted by the
// heartbeat watchdog or they disconnect.
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
	"github.com/codec404/Konfig/internal/distribution"
	"github.com/codec404/Konfig/internal/events"
	"github.com/codec404/Konfig/internal/metrics"
	httpserver "github.com/codec404/Konfig/internal/server/http"
	"github.com/codec404/Konfig/internal/store"
	"github.com/codec404/Konfig/pkg/log"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:   "konfig-distribution",
		Short: "Konfig distribution engine: WebSocket fan-out of config updates",
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

	level := log.InfoLevel
	if parsed, ok := parseLevel(cfg.Logging.Level); ok {
		level = parsed
	}
	logger := log.NewLogger(log.WithLevel(level)).WithComponent("konfig-distribution")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	s, err := store.Open(ctx, store.DSN(cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.Database, cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.ConnectTimeoutSeconds))
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	defer s.Close()

	var c cache.Cache = cache.NoopCache{}
	if cfg.Redis.Host != "" {
		rc, err := cache.NewRedis(ctx, cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.DB)
		if err != nil {
			logger.Warnf("redis unavailable, running cacheless: %v", err)
		} else {
			c = rc
			defer rc.Close()
		}
	}

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

	engine := distribution.New(s, c, emitter, m, logger, distribution.Config{
		HeartbeatInterval: time.Duration(cfg.Monitoring.HeartbeatIntervalSeconds) * time.Second,
		HeartbeatTimeout:  time.Duration(cfg.Monitoring.HeartbeatTimeoutSeconds) * time.Second,
		CacheTTL:          time.Duration(cfg.Redis.CacheTTLSeconds) * time.Second,
	})
	engine.Start()
	defer engine.Stop()

	srv := httpserver.NewDistServer(engine, logger)
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Infof("distribution server listening on %s", addr)
	return srv.ListenAndServe(ctx, addr)
}

func parseLevel(s string) (log.Level, bool) {
	switch s {
	case "debug":
		return log.DebugLevel, true
	case "info":
		return log.InfoLevel, true
	case "warn", "warning":
		return log.WarnLevel, true
	case "error":
		return log.ErrorLevel, true
	case "fatal":
		return log.FatalLevel, true
	default:
		return log.InfoLevel, false
	}
}
