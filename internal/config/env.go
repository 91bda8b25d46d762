package config

import (
	"os"
	"strconv"
	"strings"
)

// FromEnv overlays KONFIG_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("KONFIG_SERVER_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("KONFIG_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("KONFIG_POSTGRES_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = n
		}
	}
	if v := os.Getenv("KONFIG_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("KONFIG_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("KONFIG_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("KONFIG_REDIS_HOST"); v != "" {
		cfg.Redis.Host = v
	}
	if v := os.Getenv("KONFIG_REDIS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Redis.Port = n
		}
	}
	if v := os.Getenv("KONFIG_KAFKA_BROKERS"); v != "" {
		var brokers []string
		for _, p := range strings.Split(v, ",") {
			p = strings.TrimSpace(p)
			if p != "" {
				brokers = append(brokers, p)
			}
		}
		if len(brokers) > 0 {
			cfg.Kafka.Brokers = brokers
		}
	}
	if v := os.Getenv("KONFIG_KAFKA_TOPIC"); v != "" {
		cfg.Kafka.Topic = v
	}
	if v := os.Getenv("KONFIG_STATSD_HOST"); v != "" {
		cfg.Statsd.Host = v
	}
	if v := os.Getenv("KONFIG_STATSD_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Statsd.Port = n
		}
	}
	if v := os.Getenv("KONFIG_STATSD_PREFIX"); v != "" {
		cfg.Statsd.Prefix = v
	}
	if v := os.Getenv("KONFIG_HEARTBEAT_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Monitoring.HeartbeatIntervalSeconds = n
		}
	}
	if v := os.Getenv("KONFIG_HEARTBEAT_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Monitoring.HeartbeatTimeoutSeconds = n
		}
	}
	if v := os.Getenv("KONFIG_VALIDATION_MAX_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Validation.MaxConfigSize = n
		}
	}
	if v := os.Getenv("KONFIG_VALIDATION_STRICT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Validation.StrictMode = b
		}
	}
	if v := os.Getenv("KONFIG_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("KONFIG_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
