package model

// UpdateType enumerates ConfigUpdate.UpdateType values.
type UpdateType string

const (
	UpdateNewConfig    UpdateType = "NEW_CONFIG"
	UpdateHeartbeatAck UpdateType = "HEARTBEAT_ACK"
)

// SubscribeRequest is the inbound message on the distribution stream. The
// first frame a subscriber sends carries ServiceName/InstanceID/CurrentVersion;
// every subsequent frame is an (empty) heartbeat and only Heartbeat need be set.
type SubscribeRequest struct {
	ServiceName    string `json:"service_name"`
	InstanceID     string `json:"instance_id"`
	CurrentVersion int64  `json:"current_version"`
	Heartbeat      bool   `json:"heartbeat,omitempty"`
}

// ConfigUpdate is the outbound message on the distribution stream.
type ConfigUpdate struct {
	UpdateType  UpdateType      `json:"update_type"`
	Config      *ConfigDocument `json:"config,omitempty"`
	ForceReload bool            `json:"force_reload,omitempty"`
}

// UploadConfigRequest is the ConfigAPIService.UploadConfig request.
type UploadConfigRequest struct {
	ServiceName string `json:"service_name"`
	Content     []byte `json:"content"`
	Format      string `json:"format"`
	CreatedBy   string `json:"created_by"`
	Description string `json:"description"`
	Validate    bool   `json:"validate"`
}

// UploadConfigResponse is the ConfigAPIService.UploadConfig response.
type UploadConfigResponse struct {
	Success           bool              `json:"success"`
	ConfigID          string            `json:"config_id"`
	Version           int64             `json:"version"`
	Message           string            `json:"message"`
	ValidationErrors  []ValidationError `json:"validation_errors,omitempty"`
}

// GetConfigResponse is the ConfigAPIService.GetConfig response.
type GetConfigResponse struct {
	Found  bool           `json:"found"`
	Config ConfigDocument `json:"config"`
}

// ListConfigsResponse is the ConfigAPIService.ListConfigs response.
type ListConfigsResponse struct {
	Items      []ConfigMetadata `json:"items"`
	TotalCount int              `json:"total_count"`
}

// DeleteConfigResponse is the ConfigAPIService.DeleteConfig response.
type DeleteConfigResponse struct {
	Deleted bool   `json:"deleted"`
	Message string `json:"message"`
}

// StartRolloutRequest is the ConfigAPIService.StartRollout request.
type StartRolloutRequest struct {
	ConfigID         string          `json:"config_id"`
	Strategy         RolloutStrategy `json:"strategy"`
	TargetPercentage int             `json:"target_percentage"`
}

// RolloutStatusResponse is the ConfigAPIService.GetRolloutStatus response.
type RolloutStatusResponse struct {
	Rollout   Rollout           `json:"rollout"`
	Instances []ServiceInstance `json:"instances"`
}

// RollbackRequest is the ConfigAPIService.Rollback request.
type RollbackRequest struct {
	ServiceName   string `json:"service_name"`
	TargetVersion int64  `json:"target_version"`
}

// RollbackResponse is the ConfigAPIService.Rollback response.
type RollbackResponse struct {
	Success  bool   `json:"success"`
	ConfigID string `json:"config_id"`
	Message  string `json:"message"`
}

// ValidateConfigRequest is the ValidationService.ValidateConfig request.
type ValidateConfigRequest struct {
	ServiceName string `json:"service_name"`
	Content     []byte `json:"content"`
	Format      string `json:"format"`
	SchemaID    string `json:"schema_id,omitempty"`
	Strict      bool   `json:"strict,omitempty"`
}

// ValidateConfigResponse is the ValidationService.ValidateConfig response.
type ValidateConfigResponse struct {
	Valid    bool                `json:"valid"`
	Message  string              `json:"message"`
	Errors   []ValidationError   `json:"errors,omitempty"`
	Warnings []ValidationWarning `json:"warnings,omitempty"`
}

// RegisterSchemaRequest is the ValidationService.RegisterSchema request.
type RegisterSchemaRequest struct {
	SchemaID      string `json:"schema_id"`
	ServiceName   string `json:"service_name"`
	SchemaType    string `json:"schema_type"`
	SchemaContent string `json:"schema_content"`
	Description   string `json:"description"`
	CreatedBy     string `json:"created_by"`
}

// RegisterSchemaResponse is the ValidationService.RegisterSchema response.
type RegisterSchemaResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	SchemaID string `json:"schema_id,omitempty"`
}

// GetSchemaResponse is the ValidationService.GetSchema response.
type GetSchemaResponse struct {
	Success bool             `json:"success"`
	Message string           `json:"message,omitempty"`
	Schema  ValidationSchema `json:"schema,omitempty"`
}

// ListSchemasResponse is the ValidationService.ListSchemas response.
type ListSchemasResponse struct {
	Schemas    []ValidationSchema `json:"schemas"`
	TotalCount int                `json:"total_count"`
}

// PushUpdateRequest is sent by the control plane to the distribution
// engine's internal push endpoint to announce a newly written config to
// already-connected subscribers.
type PushUpdateRequest struct {
	ServiceName string         `json:"service_name"`
	Config      ConfigDocument `json:"config"`
}

// EventRecord is the opaque JSON record written to the event bus topic.
type EventRecord struct {
	EventType   string `json:"event_type"`
	ServiceName string `json:"service_name"`
	InstanceID  string `json:"instance_id,omitempty"`
	Version     int64  `json:"version,omitempty"`
	PerformedBy string `json:"performed_by,omitempty"`
	Timestamp   int64  `json:"timestamp"`
}

// Event type constants emitted by the core.
const (
	EventConfigUploaded      = "config.uploaded"
	EventConfigDeleted       = "config.deleted"
	EventConfigRolledBack    = "config.rolled_back"
	EventConfigRolloutStart  = "config.rollout_started"
	EventConfigUpdate        = "config_update"
	EventClientConnect       = "client_connect"
	EventClientDisconnect    = "client_disconnect"
)
