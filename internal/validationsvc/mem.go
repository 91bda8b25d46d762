package validationsvc

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/codec404/Konfig/internal/model"
)

// MemStore is an in-memory Store for tests.
type MemStore struct {
	mu      sync.Mutex
	schemas map[string]model.ValidationSchema
	rules   map[string][]model.ValidationRule // service_name -> rules
	history []validationRecord
}

type validationRecord struct {
	serviceName string
	result      bool
}

func NewMem() *MemStore {
	return &MemStore{
		schemas: map[string]model.ValidationSchema{},
		rules:   map[string][]model.ValidationRule{},
	}
}

func (m *MemStore) RegisterSchema(_ context.Context, schema model.ValidationSchema) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if schema.CreatedAt == 0 {
		schema.CreatedAt = time.Now().Unix()
	}
	m.schemas[schema.SchemaID] = schema
	return nil
}

func (m *MemStore) GetSchema(_ context.Context, schemaID string) (model.ValidationSchema, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.schemas[schemaID], nil
}

func (m *MemStore) ListSchemas(_ context.Context, serviceName string, limit, offset int) ([]model.ValidationSchema, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var all []model.ValidationSchema
	for _, sc := range m.schemas {
		if serviceName == "" || sc.ServiceName == serviceName {
			all = append(all, sc)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt > all[j].CreatedAt })

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

// AddRule is a test helper for seeding per-service rules.
func (m *MemStore) AddRule(rule model.ValidationRule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules[rule.ServiceName] = append(m.rules[rule.ServiceName], rule)
}

func (m *MemStore) RulesForService(_ context.Context, serviceName string) ([]model.ValidationRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.ValidationRule, len(m.rules[serviceName]))
	copy(out, m.rules[serviceName])
	return out, nil
}

func (m *MemStore) RecordValidation(_ context.Context, serviceName, _ string, result bool, _, _, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, validationRecord{serviceName: serviceName, result: result})
	return nil
}

// History returns a snapshot of recorded validations, for test assertions.
func (m *MemStore) History() []validationRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]validationRecord, len(m.history))
	copy(out, m.history)
	return out
}
