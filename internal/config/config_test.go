package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Server.Port != 8082 {
		t.Fatalf("default server port")
	}
	if cfg.Postgres.Database != "configservice" {
		t.Fatalf("default postgres database")
	}
	if cfg.Monitoring.HeartbeatIntervalSeconds != 30 {
		t.Fatalf("default heartbeat interval")
	}
	if !cfg.Validation.EnableCaching {
		t.Fatalf("default validation caching should be enabled")
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "konfig.yaml")
	data := []byte("server:\n  port: 9001\npostgres:\n  host: db.internal\n  port: 5555\nmonitoring:\n  heartbeat_interval: 15\n  heartbeat_timeout: 45\n")
	if err := os.WriteFile(file, data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9001 {
		t.Fatalf("expected port 9001, got %d", cfg.Server.Port)
	}
	if cfg.Postgres.Host != "db.internal" || cfg.Postgres.Port != 5555 {
		t.Fatalf("expected overridden postgres host/port, got %+v", cfg.Postgres)
	}
	// Fields not present in the file retain defaults.
	if cfg.Postgres.Database != "configservice" {
		t.Fatalf("expected default database to survive partial override")
	}
	if cfg.Monitoring.HeartbeatIntervalSeconds != 15 || cfg.Monitoring.HeartbeatTimeoutSeconds != 45 {
		t.Fatalf("expected overridden monitoring settings, got %+v", cfg.Monitoring)
	}
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "konfig.json")
	data := []byte(`{"server":{"port":9500},"kafka":{"brokers":["a:9092","b:9092"],"topic":"custom.topic"}}`)
	if err := os.WriteFile(file, data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9500 {
		t.Fatalf("expected port 9500")
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Topic != "custom.topic" {
		t.Fatalf("expected overridden kafka config, got %+v", cfg.Kafka)
	}
}

func TestLoadMalformedYAMLReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "konfig.yaml")
	if err := os.WriteFile(file, []byte("server:\n  port: [this is not valid\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(file)
	if err == nil {
		t.Fatalf("expected parse error")
	}
	want := Default()
	if cfg.Server.Port != want.Server.Port || cfg.Postgres.Database != want.Postgres.Database {
		t.Fatalf("expected defaults on parse failure, got %+v", cfg)
	}
}

func TestFromEnv(t *testing.T) {
	cfg := Default()
	os.Setenv("KONFIG_SERVER_PORT", "7000")
	os.Setenv("KONFIG_POSTGRES_HOST", "pg.internal")
	os.Setenv("KONFIG_KAFKA_BROKERS", "a:9092, b:9092")
	t.Cleanup(func() {
		os.Unsetenv("KONFIG_SERVER_PORT")
		os.Unsetenv("KONFIG_POSTGRES_HOST")
		os.Unsetenv("KONFIG_KAFKA_BROKERS")
	})
	FromEnv(&cfg)
	if cfg.Server.Port != 7000 {
		t.Fatalf("env override port")
	}
	if cfg.Postgres.Host != "pg.internal" {
		t.Fatalf("env override postgres host")
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[0] != "a:9092" {
		t.Fatalf("env override kafka brokers: %+v", cfg.Kafka.Brokers)
	}
}
