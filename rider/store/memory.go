// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/rider-engine/rider"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	records map[string]rider.Record // keyed by rider id
}

func NewMemory() *Memory {
	return &Memory{records: make(map[string]rider.Record)}
}

func (m *Memory) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records), nil
}

// FetchPage returns records ordered by updated_at descending. Rider id
// breaks ties so the traversal order is deterministic under test.
func (m *Memory) FetchPage(_ context.Context, offset, limit int) ([]rider.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]rider.Record, 0, len(m.records))
	for _, rec := range m.records {
		all = append(all, rec)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].UpdatedAt.Equal(all[j].UpdatedAt) {
			return all[i].UpdatedAt.After(all[j].UpdatedAt)
		}
		return all[i].RiderID < all[j].RiderID
	})

	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}

	page := make([]rider.Record, end-offset)
	for i, rec := range all[offset:end] {
		rec.Attributes = rec.Attributes.Clone()
		page[i] = rec
	}
	return page, nil
}

func (m *Memory) GetByKey(_ context.Context, riderID string) (*rider.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[riderID]
	if !ok {
		return nil, rider.ErrRiderNotFound
	}
	rec.Attributes = rec.Attributes.Clone()
	return &rec, nil
}

func (m *Memory) UpdateByKey(_ context.Context, riderID string, attrs rider.AttributeMap, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[riderID]
	if !ok {
		return rider.ErrRiderNotFound
	}

	merged := rec.Attributes.Clone()
	for k, v := range attrs {
		if v == nil {
			delete(merged, k)
			continue
		}
		merged[k] = v
	}
	rec.Attributes = merged
	rec.UpdatedAt = at
	m.records[riderID] = rec
	return nil
}

func (m *Memory) Insert(_ context.Context, rec rider.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec.Attributes = rec.Attributes.Clone()
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	m.records[rec.RiderID] = rec
	return nil
}
