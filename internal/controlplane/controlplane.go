// Package controlplane implements the control-plane write path: upload,
// get, list, delete, rollout, and rollback. Grounded line-for-line on
// api_service.cpp, with the original's ad-hoc bracket-depth JSON check
// replaced by encoding/json.Valid, ComputeHash's std::hash swapped for
// internal/contenthash's SHA-256 (the spec's mandated hash resolution),
// and "always validate" kept exactly as the original's "|| true" makes
// explicit.
package controlplane

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/codec404/Konfig/internal/apierr"
	"github.com/codec404/Konfig/internal/contenthash"
	"github.com/codec404/Konfig/internal/events"
	"github.com/codec404/Konfig/internal/metrics"
	"github.com/codec404/Konfig/internal/model"
	"github.com/codec404/Konfig/internal/store"
	"github.com/codec404/Konfig/pkg/log"
)

const maxContentSize = 1 << 20

// Validator is the control plane's view of the validation service: a
// single call that never returns a transport error, matching
// internal/validatorclient.Client.
type Validator interface {
	ValidateConfig(ctx context.Context, req model.ValidateConfigRequest) model.ValidateConfigResponse
}

// Notifier is the control plane's view of the distribution engine: push
// a freshly written version out to connected subscribers.
type Notifier interface {
	Push(ctx context.Context, serviceName string, config model.ConfigDocument)
}

// ControlPlane is the write path's core logic, independent of its HTTP
// transport.
type ControlPlane struct {
	store     store.Store
	validator Validator
	notifier  Notifier
	events    events.Emitter
	metrics   *metrics.Client
	logger    log.Logger
}

func New(s store.Store, v Validator, n Notifier, e events.Emitter, m *metrics.Client, logger log.Logger) *ControlPlane {
	return &ControlPlane{store: s, validator: v, notifier: n, events: e, metrics: m, logger: logger}
}

func generateConfigID(serviceName string, version int64) string {
	return fmt.Sprintf("%s-v%d", serviceName, version)
}

// syntaxCheck is the control plane's own cheap gate before calling out to
// the validation service — grounded on ApiServiceImpl::ValidateContent.
func syntaxCheck(format string, content []byte) []string {
	var errs []string
	if len(content) == 0 {
		return []string{"content cannot be empty"}
	}
	if len(content) > maxContentSize {
		return []string{"content exceeds 1MB limit"}
	}
	if format == "" || format == "json" {
		if !json.Valid(content) {
			errs = append(errs, "invalid JSON content")
		}
	}
	return errs
}

// Upload implements steps 1-9 of the write path: validate required
// fields, syntax-check, call the validation service (always, regardless
// of the request's Validate flag), assign the next version, hash and
// persist, audit, and announce.
func (cp *ControlPlane) Upload(ctx context.Context, req model.UploadConfigRequest) (model.UploadConfigResponse, error) {
	cp.metrics.Increment("upload.request")

	if req.ServiceName == "" {
		return model.UploadConfigResponse{Success: false, Message: "service_name is required"}, nil
	}
	if len(req.Content) == 0 {
		return model.UploadConfigResponse{Success: false, Message: "content is required"}, nil
	}

	if syntaxErrs := syntaxCheck(req.Format, req.Content); len(syntaxErrs) > 0 {
		cp.metrics.Increment("upload.validation_failed")
		var verrs []model.ValidationError
		for _, e := range syntaxErrs {
			verrs = append(verrs, model.ValidationError{ErrorType: "syntax", Message: e})
		}
		return model.UploadConfigResponse{Success: false, Message: "Validation failed", ValidationErrors: verrs}, nil
	}

	if cp.validator != nil {
		valResp := cp.validator.ValidateConfig(ctx, model.ValidateConfigRequest{
			ServiceName: req.ServiceName, Content: req.Content, Format: req.Format, Strict: false,
		})
		if !valResp.Valid {
			cp.metrics.Increment("upload.validation_service_failed")
			return model.UploadConfigResponse{Success: false, Message: "Validation service rejected config", ValidationErrors: valResp.Errors}, nil
		}
		for _, w := range valResp.Warnings {
			cp.logger.Warnf("validation warning for %s: %s: %s", req.ServiceName, w.Field, w.Message)
		}
	}

	nextVersion, err := cp.store.NextVersion(ctx, req.ServiceName)
	if err != nil {
		return model.UploadConfigResponse{}, apierr.Wrap(apierr.Internal, "failed to assign next version", err)
	}

	format := req.Format
	if format == "" {
		format = "json"
	}
	createdBy := req.CreatedBy
	if createdBy == "" {
		createdBy = "api"
	}

	configID := generateConfigID(req.ServiceName, nextVersion)
	doc := model.ConfigDocument{
		ConfigID: configID, ServiceName: req.ServiceName, Version: nextVersion,
		Content: req.Content, Format: format, ContentHash: contenthash.Compute(req.Content),
		CreatedAt: time.Now().Unix(), CreatedBy: createdBy,
	}

	if err := cp.store.InsertConfig(ctx, doc, req.Description); err != nil {
		cp.metrics.Increment("upload.db_failed")
		return model.UploadConfigResponse{Success: false, Message: "Failed to store: " + err.Error()}, nil
	}

	if err := cp.store.AppendAudit(ctx, req.ServiceName, configID, "uploaded", createdBy, map[string]any{
		"version": nextVersion,
	}); err != nil {
		cp.logger.Warnf("audit log append failed: %v", err)
	}

	cp.events.Publish(model.EventConfigUploaded, req.ServiceName, "", nextVersion, createdBy)
	if cp.notifier != nil {
		cp.notifier.Push(ctx, req.ServiceName, doc)
	}

	cp.metrics.Increment("upload.success")
	cp.logger.Infof("uploaded %s v%d", configID, nextVersion)

	return model.UploadConfigResponse{Success: true, ConfigID: configID, Version: nextVersion, Message: "Uploaded successfully"}, nil
}

// Get fetches one config document by ID.
func (cp *ControlPlane) Get(ctx context.Context, configID string) (model.GetConfigResponse, error) {
	cp.metrics.Increment("get.request")
	if configID == "" {
		return model.GetConfigResponse{}, apierr.New(apierr.InvalidArgument, "config_id is required")
	}

	doc, err := cp.store.GetByID(ctx, configID)
	if err != nil {
		cp.metrics.Increment("get.error")
		return model.GetConfigResponse{}, apierr.Wrap(apierr.Internal, "get config failed", err)
	}
	if doc.Empty() {
		cp.metrics.Increment("get.not_found")
		return model.GetConfigResponse{Found: false}, nil
	}
	cp.metrics.Increment("get.success")
	return model.GetConfigResponse{Found: true, Config: doc}, nil
}

// List paginates a service's config metadata, or every service's when
// serviceName is empty.
func (cp *ControlPlane) List(ctx context.Context, serviceName string, limit, offset int) (model.ListConfigsResponse, error) {
	cp.metrics.Increment("list.request")
	if limit <= 0 {
		limit = 50
	}
	items, total, err := cp.store.ListMetadata(ctx, serviceName, limit, offset)
	if err != nil {
		cp.metrics.Increment("list.error")
		return model.ListConfigsResponse{}, apierr.Wrap(apierr.Internal, "list configs failed", err)
	}
	cp.metrics.Increment("list.success")
	return model.ListConfigsResponse{Items: items, TotalCount: total}, nil
}

// Delete removes a config document by ID.
func (cp *ControlPlane) Delete(ctx context.Context, configID string) (model.DeleteConfigResponse, error) {
	cp.metrics.Increment("delete.request")
	if configID == "" {
		return model.DeleteConfigResponse{}, apierr.New(apierr.InvalidArgument, "config_id is required")
	}

	deleted, message, err := cp.store.DeleteByID(ctx, configID)
	if err != nil {
		return model.DeleteConfigResponse{}, apierr.Wrap(apierr.Internal, "delete config failed", err)
	}
	if !deleted {
		cp.metrics.Increment("delete.failed")
		return model.DeleteConfigResponse{Deleted: false, Message: message}, nil
	}

	if err := cp.store.AppendAudit(ctx, "", configID, "deleted", "api", nil); err != nil {
		cp.logger.Warnf("audit log append failed: %v", err)
	}
	cp.events.Publish(model.EventConfigDeleted, "", "", 0, "api")
	cp.metrics.Increment("delete.success")

	return model.DeleteConfigResponse{Deleted: true, Message: message}, nil
}

// StartRollout creates a rollout row for an existing config version.
func (cp *ControlPlane) StartRollout(ctx context.Context, req model.StartRolloutRequest) (model.RolloutStatusResponse, error) {
	cp.metrics.Increment("rollout.request")
	if req.ConfigID == "" {
		return model.RolloutStatusResponse{}, apierr.New(apierr.InvalidArgument, "config_id is required")
	}

	config, err := cp.store.GetByID(ctx, req.ConfigID)
	if err != nil {
		return model.RolloutStatusResponse{}, apierr.Wrap(apierr.Internal, "lookup config failed", err)
	}
	if config.Empty() {
		return model.RolloutStatusResponse{}, apierr.New(apierr.NotFound, "config not found: "+req.ConfigID)
	}

	targetPct := req.TargetPercentage
	if targetPct == 0 {
		targetPct = 100
	}

	if err := cp.store.UpsertRollout(ctx, req.ConfigID, req.Strategy, targetPct); err != nil {
		cp.metrics.Increment("rollout.failed")
		return model.RolloutStatusResponse{}, apierr.Wrap(apierr.Internal, "create rollout failed", err)
	}

	cp.events.Publish(model.EventConfigRolloutStart, config.ServiceName, "", config.Version, "api")
	cp.metrics.Increment("rollout.success")

	return cp.GetRolloutStatus(ctx, req.ConfigID)
}

// GetRolloutStatus reports a rollout's state plus the service's current
// subscriber instances.
func (cp *ControlPlane) GetRolloutStatus(ctx context.Context, configID string) (model.RolloutStatusResponse, error) {
	cp.metrics.Increment("rollout_status.request")

	rollout, err := cp.store.GetRolloutState(ctx, configID)
	if err != nil {
		cp.metrics.Increment("rollout_status.error")
		return model.RolloutStatusResponse{}, apierr.Wrap(apierr.Internal, "rollout lookup failed", err)
	}

	var instances []model.ServiceInstance
	if config, err := cp.store.GetByID(ctx, configID); err == nil && !config.Empty() {
		if list, err := cp.store.ListInstances(ctx, config.ServiceName); err == nil {
			instances = list
		}
	}

	cp.metrics.Increment("rollout_status.success")
	return model.RolloutStatusResponse{Rollout: rollout, Instances: instances}, nil
}

// Rollback creates a new version carrying a prior version's content.
// target_version 0 means "one version back from the current latest."
func (cp *ControlPlane) Rollback(ctx context.Context, req model.RollbackRequest) (model.RollbackResponse, error) {
	cp.metrics.Increment("rollback.request")
	if req.ServiceName == "" {
		return model.RollbackResponse{}, apierr.New(apierr.InvalidArgument, "service_name is required")
	}

	var target model.ConfigDocument
	var err error

	if req.TargetVersion == 0 {
		current, cerr := cp.store.GetLatest(ctx, req.ServiceName)
		if cerr != nil {
			return model.RollbackResponse{}, apierr.Wrap(apierr.Internal, "lookup current version failed", cerr)
		}
		if current.Version <= 1 {
			return model.RollbackResponse{Success: false, Message: "No previous version to rollback to"}, nil
		}
		target, err = cp.store.GetByVersion(ctx, req.ServiceName, current.Version-1)
	} else {
		target, err = cp.store.GetByVersion(ctx, req.ServiceName, req.TargetVersion)
	}
	if err != nil {
		return model.RollbackResponse{}, apierr.Wrap(apierr.Internal, "lookup target version failed", err)
	}
	if target.Empty() {
		cp.metrics.Increment("rollback.not_found")
		return model.RollbackResponse{Success: false, Message: "Target version not found"}, nil
	}

	nextVersion, err := cp.store.NextVersion(ctx, req.ServiceName)
	if err != nil {
		return model.RollbackResponse{}, apierr.Wrap(apierr.Internal, "failed to assign next version", err)
	}
	newConfigID := generateConfigID(req.ServiceName, nextVersion)

	rollbackDoc := model.ConfigDocument{
		ConfigID: newConfigID, ServiceName: target.ServiceName, Version: nextVersion,
		Content: target.Content, Format: target.Format, ContentHash: contenthash.Compute(target.Content),
		CreatedAt: time.Now().Unix(), CreatedBy: "rollback",
	}

	if err := cp.store.InsertConfig(ctx, rollbackDoc, fmt.Sprintf("Rollback to v%d", target.Version)); err != nil {
		cp.metrics.Increment("rollback.db_failed")
		return model.RollbackResponse{Success: false, Message: "Failed to create rollback config: " + err.Error()}, nil
	}

	if err := cp.store.AppendAudit(ctx, req.ServiceName, newConfigID, "rollback", "api", map[string]any{
		"rolled_back_to_version": target.Version,
	}); err != nil {
		cp.logger.Warnf("audit log append failed: %v", err)
	}

	cp.events.Publish(model.EventConfigRolledBack, req.ServiceName, "", nextVersion, "api")
	if cp.notifier != nil {
		cp.notifier.Push(ctx, req.ServiceName, rollbackDoc)
	}
	cp.metrics.Increment("rollback.success")

	return model.RollbackResponse{
		Success: true, ConfigID: newConfigID,
		Message: fmt.Sprintf("Rolled back to v%d as new v%d", target.Version, nextVersion),
	}, nil
}
