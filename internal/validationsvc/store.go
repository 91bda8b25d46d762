package validationsvc

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/codec404/Konfig/internal/model"
)

// Store is the validation service's own persistence boundary: schemas,
// custom rules, and the validation history audit trail. Kept separate
// from internal/store.Store so the validation service deploys
// independently, mirroring the original's separate DatabaseManager for
// validation-service. internal/store's schema setup also creates these
// three tables, with the same column definitions as ensureSchema below.
type Store interface {
	RegisterSchema(ctx context.Context, schema model.ValidationSchema) error
	GetSchema(ctx context.Context, schemaID string) (model.ValidationSchema, error)
	ListSchemas(ctx context.Context, serviceName string, limit, offset int) ([]model.ValidationSchema, int, error)
	RulesForService(ctx context.Context, serviceName string) ([]model.ValidationRule, error)
	RecordValidation(ctx context.Context, serviceName, content string, result bool, errorsJSON, warningsJSON, validatedBy string) error
}

// PostgresStore is the production Store, grounded on validation-service's
// database_manager.cpp query shapes.
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgres opens a pgx-backed connection and self-provisions schema.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
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

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	stmts := []string{
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
			field_path TEXT NOT NULL,
			rule_type TEXT NOT NULL,
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
			return err
		}
	}
	return nil
}

func (s *PostgresStore) RegisterSchema(ctx context.Context, schema model.ValidationSchema) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO validation_schemas
			(schema_id, service_name, schema_type, schema_content, description, created_by, created_at, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (schema_id) DO UPDATE
		 SET schema_content = $4, description = $5, updated_at = $7, is_active = $8`,
		schema.SchemaID, schema.ServiceName, schema.SchemaType, schema.SchemaContent,
		schema.Description, schema.CreatedBy, schema.CreatedAt, schema.IsActive)
	return err
}

const schemaRowQuery = `SELECT schema_id, service_name, schema_type, schema_content,
	COALESCE(description, ''), COALESCE(created_by, ''), created_at, is_active
	FROM validation_schemas`

func scanSchema(row *sql.Row) (model.ValidationSchema, error) {
	var sc model.ValidationSchema
	err := row.Scan(&sc.SchemaID, &sc.ServiceName, &sc.SchemaType, &sc.SchemaContent,
		&sc.Description, &sc.CreatedBy, &sc.CreatedAt, &sc.IsActive)
	return sc, err
}

func (s *PostgresStore) GetSchema(ctx context.Context, schemaID string) (model.ValidationSchema, error) {
	row := s.db.QueryRowContext(ctx, schemaRowQuery+" WHERE schema_id = $1", schemaID)
	sc, err := scanSchema(row)
	if err == sql.ErrNoRows {
		return model.ValidationSchema{}, nil
	}
	return sc, err
}

func (s *PostgresStore) ListSchemas(ctx context.Context, serviceName string, limit, offset int) ([]model.ValidationSchema, int, error) {
	var rows *sql.Rows
	var err error
	var total int

	if serviceName == "" {
		if err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM validation_schemas").Scan(&total); err != nil {
			return nil, 0, err
		}
		rows, err = s.db.QueryContext(ctx, schemaRowQuery+" ORDER BY created_at DESC LIMIT $1 OFFSET $2", limit, offset)
	} else {
		if err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM validation_schemas WHERE service_name = $1", serviceName).Scan(&total); err != nil {
			return nil, 0, err
		}
		rows, err = s.db.QueryContext(ctx, schemaRowQuery+" WHERE service_name = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3", serviceName, limit, offset)
	}
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []model.ValidationSchema
	for rows.Next() {
		var sc model.ValidationSchema
		if err := rows.Scan(&sc.SchemaID, &sc.ServiceName, &sc.SchemaType, &sc.SchemaContent,
			&sc.Description, &sc.CreatedBy, &sc.CreatedAt, &sc.IsActive); err != nil {
			return nil, 0, err
		}
		out = append(out, sc)
	}
	return out, total, rows.Err()
}

func (s *PostgresStore) RulesForService(ctx context.Context, serviceName string) ([]model.ValidationRule, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT rule_id, service_name, field_path, rule_type,
			COALESCE(rule_config, ''), COALESCE(cel_expression, ''), COALESCE(error_message, '')
		 FROM validation_rules
		 WHERE service_name = $1 AND is_active = true
		 ORDER BY field_path`, serviceName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ValidationRule
	for rows.Next() {
		var r model.ValidationRule
		if err := rows.Scan(&r.ID, &r.ServiceName, &r.FieldPath, &r.RuleType, &r.RuleConfig, &r.CELExpr, &r.ErrorMessage); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) RecordValidation(ctx context.Context, serviceName, content string, result bool, errorsJSON, warningsJSON, validatedBy string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO validation_history
			(service_name, config_content, validation_result, errors, warnings, validated_at, validated_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		serviceName, content, result, errorsJSON, warningsJSON, time.Now().Unix(), validatedBy)
	return err
}

func (s *PostgresStore) Close() error { return s.db.Close() }
