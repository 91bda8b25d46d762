// Package model defines the domain types shared by the store, cache,
// distribution engine, control plane, and subscriber SDK.
package model

// ConfigDocument is the versioned, immutable record describing one
// configuration for one service. Immutable once created.
type ConfigDocument struct {
	ConfigID    string `json:"config_id"`
	ServiceName string `json:"service_name"`
	Version     int64  `json:"version"`
	Content     []byte `json:"content"`
	Format      string `json:"format"`
	ContentHash string `json:"content_hash"`
	CreatedAt   int64  `json:"created_at"`
	CreatedBy   string `json:"created_by"`
}

// Empty reports whether this is the empty sentinel (version 0).
func (d ConfigDocument) Empty() bool { return d.Version <= 0 }

// ConfigMetadata is a projection of ConfigDocument without Content.
type ConfigMetadata struct {
	ConfigID    string `json:"config_id"`
	ServiceName string `json:"service_name"`
	Version     int64  `json:"version"`
	Format      string `json:"format"`
	CreatedAt   int64  `json:"created_at"`
	CreatedBy   string `json:"created_by"`
	Description string `json:"description"`
	IsActive    bool   `json:"is_active"`
}

// RolloutStrategy enumerates the supported rollout strategies.
type RolloutStrategy int

const (
	RolloutStrategyImmediate RolloutStrategy = iota
	RolloutStrategyCanary
	RolloutStrategyBlueGreen
)

// RolloutStatus enumerates rollout lifecycle states.
type RolloutStatus string

const (
	RolloutPending    RolloutStatus = "PENDING"
	RolloutInProgress RolloutStatus = "IN_PROGRESS"
	RolloutCompleted  RolloutStatus = "COMPLETED"
	RolloutFailed     RolloutStatus = "FAILED"
	RolloutRolledBack RolloutStatus = "ROLLED_BACK"
)

// Rollout is keyed by ConfigID; at most one row per ConfigID.
type Rollout struct {
	ConfigID          string          `json:"config_id"`
	Strategy          RolloutStrategy `json:"strategy"`
	TargetPercentage  int             `json:"target_percentage"`
	CurrentPercentage int             `json:"current_percentage"`
	Status            RolloutStatus   `json:"status"`
	StartedAt         int64           `json:"started_at"`
	CompletedAt       int64           `json:"completed_at"`
}

// InstanceStatus enumerates service instance connection states.
type InstanceStatus string

const (
	InstanceConnected    InstanceStatus = "connected"
	InstanceDisconnected InstanceStatus = "disconnected"
)

// ServiceInstance is keyed by (ServiceName, InstanceID).
type ServiceInstance struct {
	ServiceName    string         `json:"service_name"`
	InstanceID     string         `json:"instance_id"`
	CurrentVersion int64          `json:"current_config_version"`
	LastHeartbeat  int64          `json:"last_heartbeat"`
	Status         InstanceStatus `json:"status"`
}

// AuditEntry is append-only.
type AuditEntry struct {
	ConfigID    string         `json:"config_id"`
	Action      string         `json:"action"`
	PerformedBy string         `json:"performed_by"`
	Details     map[string]any `json:"details"`
	CreatedAt   int64          `json:"created_at"`
}

// ValidationError carries one field-level validation failure.
type ValidationError struct {
	Field     string `json:"field"`
	ErrorType string `json:"error_type"`
	Message   string `json:"message"`
}

// ValidationWarning carries one field-level validation warning.
type ValidationWarning struct {
	Field       string `json:"field"`
	WarningType string `json:"warning_type"`
	Message     string `json:"message"`
}

// ValidationSchema is a registered schema document for a service.
type ValidationSchema struct {
	SchemaID      string `json:"schema_id"`
	ServiceName   string `json:"service_name"`
	SchemaType    string `json:"schema_type"`
	SchemaContent string `json:"schema_content"`
	Description   string `json:"description"`
	CreatedBy     string `json:"created_by"`
	CreatedAt     int64  `json:"created_at"`
	IsActive      bool   `json:"is_active"`
}

// ValidationRule is a custom per-service field constraint.
type ValidationRule struct {
	ID           int64  `json:"id"`
	ServiceName  string `json:"service_name"`
	RuleType     string `json:"rule_type"` // "required", "range", "cel"
	FieldPath    string `json:"field_path"`
	RuleConfig   string `json:"rule_config"`   // JSON blob, e.g. {"min":1,"max":1000}
	CELExpr      string `json:"cel_expression"` // used when RuleType == "cel"
	ErrorMessage string `json:"error_message"`
}
