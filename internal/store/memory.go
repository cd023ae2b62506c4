package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory implementation of the Store interface.
// It uses a map for storage and RWMutex for thread-safe concurrent access.
// This implementation is suitable for development, testing, or single-instance deployments.
type MemoryStore struct {
	mu     sync.RWMutex
	rules  map[int64]Rule
	lastID int64
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rules: make(map[int64]Rule),
	}
}

// CreateRule stores a rule under the next id.
func (m *MemoryStore) CreateRule(ctx context.Context, params CreateParams) (*Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastID++
	now := time.Now().UTC()
	rule := Rule{
		ID:        m.lastID,
		Source:    params.Source,
		AST:       params.AST,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.rules[rule.ID] = rule
	return &rule, nil
}

// GetRule retrieves a single rule by id.
func (m *MemoryStore) GetRule(ctx context.Context, id int64) (*Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rule, exists := m.rules[id]
	if !exists {
		return nil, ErrNotFound
	}
	return &rule, nil
}

// GetRules retrieves several rules in the order requested.
func (m *MemoryStore) GetRules(ctx context.Context, ids []int64) ([]Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	found := make(map[int64]Rule, len(ids))
	for _, id := range ids {
		if rule, ok := m.rules[id]; ok {
			found[id] = rule
		}
	}
	return orderRules(ids, found)
}

// ListRules returns all rules ordered by id.
func (m *MemoryStore) ListRules(ctx context.Context) ([]Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Rule, 0, len(m.rules))
	for _, rule := range m.rules {
		result = append(result, rule)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// UpdateRule replaces a rule's source and tree in place.
func (m *MemoryStore) UpdateRule(ctx context.Context, id int64, params UpdateParams) (*Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rule, exists := m.rules[id]
	if !exists {
		return nil, ErrNotFound
	}
	rule.Source = params.Source
	rule.AST = params.AST
	rule.UpdatedAt = time.Now().UTC()
	m.rules[id] = rule
	return &rule, nil
}

// DeleteRule removes a rule from memory.
func (m *MemoryStore) DeleteRule(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Idempotent: no error if rule doesn't exist
	delete(m.rules, id)
	return nil
}

// Close is a no-op for MemoryStore as there are no resources to release.
func (m *MemoryStore) Close() error {
	return nil
}
