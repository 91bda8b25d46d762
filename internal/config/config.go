package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration loaded from file/env, shared by
// the three server binaries. Each binary only reads the sections it needs.
type Config struct {
	Server     ServerConfig     `json:"server" yaml:"server"`
	Postgres   PostgresConfig   `json:"postgres" yaml:"postgres"`
	Redis      RedisConfig      `json:"redis" yaml:"redis"`
	Kafka      KafkaConfig      `json:"kafka" yaml:"kafka"`
	Statsd     StatsdConfig     `json:"statsd" yaml:"statsd"`
	Monitoring MonitoringConfig `json:"monitoring" yaml:"monitoring"`
	Validation ValidationConfig `json:"validation" yaml:"validation"`
	Logging    LoggingConfig    `json:"logging" yaml:"logging"`
}

type ServerConfig struct {
	Port          int `json:"port" yaml:"port"`
	MaxConnections int `json:"max_connections" yaml:"max_connections"`
}

type PostgresConfig struct {
	Host                  string `json:"host" yaml:"host"`
	Port                  int    `json:"port" yaml:"port"`
	Database              string `json:"database" yaml:"database"`
	User                  string `json:"user" yaml:"user"`
	Password              string `json:"password" yaml:"password"`
	MaxConnections        int    `json:"max_connections" yaml:"max_connections"`
	ConnectTimeoutSeconds int    `json:"connect_timeout_seconds" yaml:"connect_timeout_seconds"`
}

type RedisConfig struct {
	Host            string `json:"host" yaml:"host"`
	Port            int    `json:"port" yaml:"port"`
	DB              int    `json:"db" yaml:"db"`
	CacheTTLSeconds int    `json:"cache_ttl" yaml:"cache_ttl"`
}

type KafkaConfig struct {
	Brokers []string `json:"brokers" yaml:"brokers"`
	Topic   string   `json:"topic" yaml:"topic"`
}

type StatsdConfig struct {
	Host   string `json:"host" yaml:"host"`
	Port   int    `json:"port" yaml:"port"`
	Prefix string `json:"prefix" yaml:"prefix"`
}

type MonitoringConfig struct {
	HeartbeatIntervalSeconds int `json:"heartbeat_interval" yaml:"heartbeat_interval"`
	HeartbeatTimeoutSeconds  int `json:"heartbeat_timeout" yaml:"heartbeat_timeout"`
}

type ValidationConfig struct {
	MaxConfigSize  int  `json:"max_config_size" yaml:"max_config_size"`
	TimeoutSeconds int  `json:"timeout_seconds" yaml:"timeout_seconds"`
	EnableCaching  bool `json:"enable_caching" yaml:"enable_caching"`
	StrictMode     bool `json:"strict_mode" yaml:"strict_mode"`
}

type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// Default returns built-in defaults, matching the original service defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{Port: 8082, MaxConnections: 1000},
		Postgres: PostgresConfig{
			Host:                  "postgres",
			Port:                  5432,
			Database:              "configservice",
			User:                  "configuser",
			Password:              "configpass",
			MaxConnections:        25,
			ConnectTimeoutSeconds: 10,
		},
		Redis: RedisConfig{
			Host:            "redis",
			Port:            6379,
			DB:              0,
			CacheTTLSeconds: 300,
		},
		Kafka: KafkaConfig{
			Brokers: []string{"kafka:9092"},
			Topic:   "config.updates",
		},
		Statsd: StatsdConfig{
			Host:   "statsd-exporter",
			Port:   9125,
			Prefix: "distribution",
		},
		Monitoring: MonitoringConfig{
			HeartbeatIntervalSeconds: 30,
			HeartbeatTimeoutSeconds:  90,
		},
		Validation: ValidationConfig{
			MaxConfigSize:  1 << 20,
			TimeoutSeconds: 10,
			EnableCaching:  true,
			StrictMode:     false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration from a JSON or YAML file (by extension). If path
// is empty, returns defaults. On parse failure, the caller is left with
// built-in defaults (see original config.cpp's LoadDefaults fallback);
// callers that want a hard failure should check err.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	ext := filepath.Ext(path)
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse yaml config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse json config: %w", err)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config (unrecognized extension %q, tried json): %w", ext, err)
		}
	}
	return cfg, nil
}
