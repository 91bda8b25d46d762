// Package store implements the relational store adapter collaborator over
// PostgreSQL: typed read/write over config_metadata/config_data/rollouts/
// service_instances/audit_log, next-version allocation, and audit append.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/codec404/Konfig/internal/apierr"
	"github.com/codec404/Konfig/internal/model"
)

// Store is the contract consumed by the control-plane write path and the
// distribution engine's read-through fetch.
type Store interface {
	InsertConfig(ctx context.Context, doc model.ConfigDocument, description string) error
	NextVersion(ctx context.Context, serviceName string) (int64, error)
	GetByID(ctx context.Context, configID string) (model.ConfigDocument, error)
	GetLatest(ctx context.Context, serviceName string) (model.ConfigDocument, error)
	GetByVersion(ctx context.Context, serviceName string, version int64) (model.ConfigDocument, error)
	ListMetadata(ctx context.Context, serviceName string, limit, offset int) ([]model.ConfigMetadata, int, error)
	DeleteByID(ctx context.Context, configID string) (bool, string, error)
	UpsertRollout(ctx context.Context, configID string, strategy model.RolloutStrategy, targetPercentage int) error
	GetRolloutState(ctx context.Context, configID string) (model.Rollout, error)
	ListInstances(ctx context.Context, serviceName string) ([]model.ServiceInstance, error)
	UpdateInstanceStatus(ctx context.Context, serviceName, instanceID string, version int64, status model.InstanceStatus) error
	RecordDelivery(ctx context.Context, serviceName, instanceID string, version int64) error
	AppendAudit(ctx context.Context, serviceName, configID, action, performedBy string, details map[string]any) error
}

// PostgresStore is the production Store.
type PostgresStore struct {
	db *sql.DB
}

// Open connects to Postgres via pgx's database/sql driver and ensures the
// schema described in spec §6 exists, matching the original's "CREATE TABLE
// IF NOT EXISTS"-free but idempotent intent (the original assumes a
// pre-provisioned schema; we make it self-provisioning for a Go-native
// rewrite, since there's no separate migration tool in scope here).
func Open(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}
	s := &PostgresStore{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// DSN builds a libpq-style connection string, mirroring
// DatabaseManager::BuildConnectionString.
func DSN(host string, port int, database, user, password string, connectTimeoutSeconds int) string {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s connect_timeout=%d",
		host, port, database, user, password, connectTimeoutSeconds)
}

func (s *PostgresStore) Close() error { return s.db.Close() }

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS config_metadata (
			config_id TEXT PRIMARY KEY,
			service_name TEXT NOT NULL,
			version BIGINT NOT NULL,
			format TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT now(),
			created_by TEXT NOT NULL,
			description TEXT,
			is_active BOOLEAN NOT NULL DEFAULT true,
			UNIQUE (service_name, version)
		)`,
		`CREATE TABLE IF NOT EXISTS config_data (
			config_id TEXT PRIMARY KEY REFERENCES config_metadata(config_id) ON DELETE CASCADE,
			content BYTEA NOT NULL,
			content_hash TEXT NOT NULL,
			size_bytes BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS rollouts (
			config_id TEXT PRIMARY KEY,
			strategy INT NOT NULL,
			target_percentage INT NOT NULL,
			current_percentage INT NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			started_at BIGINT NOT NULL,
			completed_at BIGINT
		)`,
		`CREATE TABLE IF NOT EXISTS service_instances (
			service_name TEXT NOT NULL,
			instance_id TEXT NOT NULL,
			current_config_version BIGINT NOT NULL DEFAULT 0,
			last_heartbeat BIGINT NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			PRIMARY KEY (service_name, instance_id)
		)`,
		`CREATE TABLE IF NOT EXISTS audit_log (
			id BIGSERIAL PRIMARY KEY,
			config_id TEXT NOT NULL,
			action TEXT NOT NULL,
			performed_by TEXT NOT NULL,
			details JSONB,
			created_at TIMESTAMP NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS validation_schemas (
			schema_id TEXT PRIMARY KEY,
			service_name TEXT NOT NULL,
			schema_type TEXT NOT NULL,
			schema_content TEXT NOT NULL,
			description TEXT,
			created_by TEXT,
			created_at BIGINT NOT NULL,
			updated_at BIGINT,
			is_active BOOLEAN NOT NULL DEFAULT true
		)`,
		`CREATE TABLE IF NOT EXISTS validation_rules (
			rule_id BIGSERIAL PRIMARY KEY,
			service_name TEXT NOT NULL,
			rule_type TEXT NOT NULL,
			field_path TEXT NOT NULL,
			rule_config TEXT,
			cel_expression TEXT,
			error_message TEXT,
			is_active BOOLEAN NOT NULL DEFAULT true
		)`,
		`CREATE TABLE IF NOT EXISTS validation_history (
			id BIGSERIAL PRIMARY KEY,
			service_name TEXT NOT NULL,
			config_content TEXT,
			validation_result BOOLEAN NOT NULL,
			errors TEXT,
			warnings TEXT,
			validated_at BIGINT NOT NULL,
			validated_by TEXT
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) NextVersion(ctx context.Context, serviceName string) (int64, error) {
	var v int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) + 1 FROM config_metadata WHERE service_name = $1`,
		serviceName).Scan(&v)
	if err != nil {
		return 0, apierr.Wrap(apierr.CollaboratorUnavailable, "next_version query failed", err)
	}
	return v, nil
}

func (s *PostgresStore) InsertConfig(ctx context.Context, doc model.ConfigDocument, description string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apierr.Wrap(apierr.CollaboratorUnavailable, "begin tx", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO config_metadata (config_id, service_name, version, format, created_by, description, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, true)`,
		doc.ConfigID, doc.ServiceName, doc.Version, doc.Format, doc.CreatedBy, description)
	if err != nil {
		return apierr.Wrap(apierr.Conflict, "insert config_metadata failed", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO config_data (config_id, content, content_hash, size_bytes)
		 VALUES ($1, $2, $3, $4)`,
		doc.ConfigID, doc.Content, doc.ContentHash, len(doc.Content))
	if err != nil {
		return apierr.Wrap(apierr.Internal, "insert config_data failed", err)
	}

	if err := tx.Commit(); err != nil {
		return apierr.Wrap(apierr.CollaboratorUnavailable, "commit insert config", err)
	}
	return nil
}

const configRowQuery = `SELECT m.config_id, m.service_name, m.version, d.content, m.format,
	COALESCE(d.content_hash, ''), m.created_at, m.created_by
	FROM config_metadata m JOIN config_data d ON m.config_id = d.config_id`

func (s *PostgresStore) scanConfigRow(row *sql.Row) (model.ConfigDocument, error) {
	var doc model.ConfigDocument
	var createdAt time.Time
	if err := row.Scan(&doc.ConfigID, &doc.ServiceName, &doc.Version, &doc.Content, &doc.Format, &doc.ContentHash, &createdAt, &doc.CreatedBy); err != nil {
		if err == sql.ErrNoRows {
			return model.ConfigDocument{}, nil
		}
		return model.ConfigDocument{}, apierr.Wrap(apierr.Internal, "scan config row", err)
	}
	doc.CreatedAt = createdAt.Unix()
	return doc, nil
}

func (s *PostgresStore) GetByID(ctx context.Context, configID string) (model.ConfigDocument, error) {
	row := s.db.QueryRowContext(ctx, configRowQuery+" WHERE m.config_id = $1", configID)
	return s.scanConfigRow(row)
}

func (s *PostgresStore) GetLatest(ctx context.Context, serviceName string) (model.ConfigDocument, error) {
	row := s.db.QueryRowContext(ctx, configRowQuery+" WHERE m.service_name = $1 ORDER BY m.version DESC LIMIT 1", serviceName)
	return s.scanConfigRow(row)
}

func (s *PostgresStore) GetByVersion(ctx context.Context, serviceName string, version int64) (model.ConfigDocument, error) {
	row := s.db.QueryRowContext(ctx, configRowQuery+" WHERE m.service_name = $1 AND m.version = $2", serviceName, version)
	return s.scanConfigRow(row)
}

func (s *PostgresStore) ListMetadata(ctx context.Context, serviceName string, limit, offset int) ([]model.ConfigMetadata, int, error) {
	var rows *sql.Rows
	var err error
	var total int

	if serviceName == "" {
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM config_metadata`).Scan(&total); err != nil {
			return nil, 0, apierr.Wrap(apierr.Internal, "count config_metadata", err)
		}
		rows, err = s.db.QueryContext(ctx,
			`SELECT config_id, service_name, version, format, created_at, created_by, COALESCE(description,''), is_active
			 FROM config_metadata ORDER BY service_name, version DESC LIMIT $1 OFFSET $2`, limit, offset)
	} else {
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM config_metadata WHERE service_name = $1`, serviceName).Scan(&total); err != nil {
			return nil, 0, apierr.Wrap(apierr.Internal, "count config_metadata for service", err)
		}
		rows, err = s.db.QueryContext(ctx,
			`SELECT config_id, service_name, version, format, created_at, created_by, COALESCE(description,''), is_active
			 FROM config_metadata WHERE service_name = $1 ORDER BY version DESC LIMIT $2 OFFSET $3`, serviceName, limit, offset)
	}
	if err != nil {
		return nil, 0, apierr.Wrap(apierr.Internal, "list config_metadata", err)
	}
	defer rows.Close()

	var items []model.ConfigMetadata
	for rows.Next() {
		var m model.ConfigMetadata
		var createdAt time.Time
		if err := rows.Scan(&m.ConfigID, &m.ServiceName, &m.Version, &m.Format, &createdAt, &m.CreatedBy, &m.Description, &m.IsActive); err != nil {
			return nil, 0, apierr.Wrap(apierr.Internal, "scan metadata row", err)
		}
		m.CreatedAt = createdAt.Unix()
		items = append(items, m)
	}
	return items, total, rows.Err()
}

func (s *PostgresStore) DeleteByID(ctx context.Context, configID string) (bool, string, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM config_metadata WHERE config_id = $1`, configID)
	if err != nil {
		return false, err.Error(), apierr.Wrap(apierr.Internal, "delete config", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return false, "Config not found: " + configID, nil
	}
	return true, "Deleted successfully", nil
}

func (s *PostgresStore) UpsertRollout(ctx context.Context, configID string, strategy model.RolloutStrategy, targetPercentage int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rollouts (config_id, strategy, target_percentage, current_percentage, status, started_at)
		 VALUES ($1, $2, $3, 0, 'IN_PROGRESS', $4)
		 ON CONFLICT (config_id) DO UPDATE
		 SET strategy = $2, target_percentage = $3, status = 'IN_PROGRESS', started_at = $4`,
		configID, int(strategy), targetPercentage, time.Now().Unix())
	if err != nil {
		return apierr.Wrap(apierr.Internal, "upsert rollout", err)
	}
	return nil
}

func (s *PostgresStore) GetRolloutState(ctx context.Context, configID string) (model.Rollout, error) {
	var r model.Rollout
	var status string
	var completedAt sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT config_id, strategy, target_percentage, current_percentage, status, started_at, completed_at
		 FROM rollouts WHERE config_id = $1`, configID).
		Scan(&r.ConfigID, &r.Strategy, &r.TargetPercentage, &r.CurrentPercentage, &status, &r.StartedAt, &completedAt)
	if err == sql.ErrNoRows {
		return model.Rollout{ConfigID: configID, Status: model.RolloutPending}, nil
	}
	if err != nil {
		return model.Rollout{}, apierr.Wrap(apierr.Internal, "get rollout state", err)
	}
	r.Status = model.RolloutStatus(status)
	r.CompletedAt = completedAt.Int64
	return r, nil
}

func (s *PostgresStore) ListInstances(ctx context.Context, serviceName string) ([]model.ServiceInstance, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT service_name, instance_id, current_config_version, last_heartbeat, status
		 FROM service_instances WHERE service_name = $1 ORDER BY instance_id`, serviceName)
	if err != nil {
		return nil, apierr.Wrap(apierr.Internal, "list instances", err)
	}
	defer rows.Close()
	var out []model.ServiceInstance
	for rows.Next() {
		var inst model.ServiceInstance
		var status string
		if err := rows.Scan(&inst.ServiceName, &inst.InstanceID, &inst.CurrentVersion, &inst.LastHeartbeat, &status); err != nil {
			return nil, apierr.Wrap(apierr.Internal, "scan instance row", err)
		}
		inst.Status = model.InstanceStatus(status)
		out = append(out, inst)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateInstanceStatus(ctx context.Context, serviceName, instanceID string, version int64, status model.InstanceStatus) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO service_instances (service_name, instance_id, current_config_version, last_heartbeat, status)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (service_name, instance_id) DO UPDATE
		 SET current_config_version = $3, last_heartbeat = $4, status = $5`,
		serviceName, instanceID, version, time.Now().Unix(), string(status))
	if err != nil {
		return apierr.Wrap(apierr.Internal, "update instance status", err)
	}
	return nil
}

func (s *PostgresStore) RecordDelivery(ctx context.Context, serviceName, instanceID string, version int64) error {
	return s.AppendAudit(ctx, serviceName, fmt.Sprintf("%s-v%d", serviceName, version), "delivered", instanceID, map[string]any{"instance_id": instanceID})
}

func (s *PostgresStore) AppendAudit(ctx context.Context, serviceName, configID, action, performedBy string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	details["service_name"] = serviceName
	b, err := json.Marshal(details)
	if err != nil {
		return apierr.Wrap(apierr.Internal, "marshal audit details", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audit_log (config_id, action, performed_by, details) VALUES ($1, $2, $3, $4)`,
		configID, action, performedBy, b)
	if err != nil {
		return apierr.Wrap(apierr.Internal, "append audit", err)
	}
	return nil
}
