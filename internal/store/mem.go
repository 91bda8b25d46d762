package store

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/codec404/Konfig/internal/apierr"
	"github.com/codec404/Konfig/internal/model"
)

// MemStore is an in-memory Store used by tests that exercise the control
// plane and distribution engine without a real PostgreSQL instance.
type MemStore struct {
	mu        sync.Mutex
	docs      map[string]model.ConfigDocument // config_id -> doc
	meta      map[string]meta                 // config_id -> metadata extras
	versions  map[string][]string             // service_name -> config_ids in insertion order
	rollouts  map[string]model.Rollout
	instances map[string]model.ServiceInstance // "service:instance" -> row
	audit     []model.AuditEntry
}

type meta struct {
	description string
	isActive    bool
}

func NewMem() *MemStore {
	return &MemStore{
		docs:      map[string]model.ConfigDocument{},
		meta:      map[string]meta{},
		versions:  map[string][]string{},
		rollouts:  map[string]model.Rollout{},
		instances: map[string]model.ServiceInstance{},
	}
}

func instKey(service, instance string) string { return service + ":" + instance }

func (m *MemStore) NextVersion(_ context.Context, serviceName string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var max int64
	for _, id := range m.versions[serviceName] {
		if d := m.docs[id]; d.Version > max {
			max = d.Version
		}
	}
	return max + 1, nil
}

func (m *MemStore) InsertConfig(_ context.Context, doc model.ConfigDocument, description string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.docs[doc.ConfigID]; exists {
		return apierr.New(apierr.Conflict, "config already exists: "+doc.ConfigID)
	}
	for _, id := range m.versions[doc.ServiceName] {
		if m.docs[id].Version == doc.Version {
			return apierr.New(apierr.Conflict, "version collision")
		}
	}
	if doc.CreatedAt == 0 {
		doc.CreatedAt = time.Now().Unix()
	}
	m.docs[doc.ConfigID] = doc
	m.meta[doc.ConfigID] = meta{description: description, isActive: true}
	m.versions[doc.ServiceName] = append(m.versions[doc.ServiceName], doc.ConfigID)
	return nil
}

func (m *MemStore) GetByID(_ context.Context, configID string) (model.ConfigDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.docs[configID], nil
}

func (m *MemStore) GetLatest(_ context.Context, serviceName string) (model.ConfigDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best model.ConfigDocument
	for _, id := range m.versions[serviceName] {
		d := m.docs[id]
		if d.Version > best.Version {
			best = d
		}
	}
	return best, nil
}

func (m *MemStore) GetByVersion(_ context.Context, serviceName string, version int64) (model.ConfigDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.versions[serviceName] {
		if d := m.docs[id]; d.Version == version {
			return d, nil
		}
	}
	return model.ConfigDocument{}, nil
}

func (m *MemStore) ListMetadata(_ context.Context, serviceName string, limit, offset int) ([]model.ConfigMetadata, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var all []model.ConfigMetadata
	collect := func(svc string) {
		for _, id := range m.versions[svc] {
			d := m.docs[id]
			mt := m.meta[id]
			all = append(all, model.ConfigMetadata{
				ConfigID: d.ConfigID, ServiceName: d.ServiceName, Version: d.Version,
				Format: d.Format, CreatedAt: d.CreatedAt, CreatedBy: d.CreatedBy,
				Description: mt.description, IsActive: mt.isActive,
			})
		}
	}
	if serviceName == "" {
		var services []string
		for svc := range m.versions {
			services = append(services, svc)
		}
		sort.Strings(services)
		for _, svc := range services {
			collect(svc)
		}
		sort.SliceStable(all, func(i, j int) bool {
			if all[i].ServiceName != all[j].ServiceName {
				return all[i].ServiceName < all[j].ServiceName
			}
			return all[i].Version > all[j].Version
		})
	} else {
		collect(serviceName)
		sort.SliceStable(all, func(i, j int) bool { return all[i].Version > all[j].Version })
	}

	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total || limit <= 0 {
		end = total
	}
	return all[offset:end], total, nil
}

func (m *MemStore) DeleteByID(_ context.Context, configID string) (bool, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[configID]
	if !ok {
		return false, "Config not found: " + configID, nil
	}
	delete(m.docs, configID)
	delete(m.meta, configID)
	ids := m.versions[doc.ServiceName]
	for i, id := range ids {
		if id == configID {
			m.versions[doc.ServiceName] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return true, "Deleted successfully", nil
}

func (m *MemStore) UpsertRollout(_ context.Context, configID string, strategy model.RolloutStrategy, targetPercentage int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollouts[configID] = model.Rollout{
		ConfigID: configID, Strategy: strategy, TargetPercentage: targetPercentage,
		CurrentPercentage: 0, Status: model.RolloutInProgress, StartedAt: time.Now().Unix(),
	}
	return nil
}

func (m *MemStore) GetRolloutState(_ context.Context, configID string) (model.Rollout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rollouts[configID]; ok {
		return r, nil
	}
	return model.Rollout{ConfigID: configID, Status: model.RolloutPending}, nil
}

func (m *MemStore) ListInstances(_ context.Context, serviceName string) ([]model.ServiceInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ServiceInstance
	for _, inst := range m.instances {
		if inst.ServiceName == serviceName {
			out = append(out, inst)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InstanceID < out[j].InstanceID })
	return out, nil
}

func (m *MemStore) UpdateInstanceStatus(_ context.Context, serviceName, instanceID string, version int64, status model.InstanceStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.instances[instKey(serviceName, instanceID)] = model.ServiceInstance{
		ServiceName: serviceName, InstanceID: instanceID,
		CurrentVersion: version, LastHeartbeat: time.Now().Unix(), Status: status,
	}
	return nil
}

func (m *MemStore) RecordDelivery(ctx context.Context, serviceName, instanceID string, version int64) error {
	return m.AppendAudit(ctx, serviceName, strconv.FormatInt(version, 10), "delivered", instanceID, map[string]any{"instance_id": instanceID})
}

func (m *MemStore) AppendAudit(_ context.Context, serviceName, configID, action, performedBy string, details map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if details == nil {
		details = map[string]any{}
	}
	details["service_name"] = serviceName
	m.audit = append(m.audit, model.AuditEntry{
		ConfigID: configID, Action: action, PerformedBy: performedBy,
		Details: details, CreatedAt: time.Now().Unix(),
	})
	return nil
}

// Audit returns a snapshot of the audit log, for test assertions.
func (m *MemStore) Audit() []model.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.AuditEntry, len(m.audit))
	copy(out, m.audit)
	return out
}
