package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/opscart/subscriptions-utilized/pkg/models"
)

// MemoryStore keeps snapshots in process memory
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string]models.Snapshot
	now       func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		snapshots: make(map[string]models.Snapshot),
		now:       time.Now,
	}
}

func (m *MemoryStore) SaveSnapshot(ctx context.Context, snap *models.Snapshot) error {
	if snap.ID == "" {
		snap.ID = uuid.New().String()
	}
	if snap.CollectedAt.IsZero() {
		snap.CollectedAt = m.now().UTC()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[snap.ID] = *snap
	return nil
}

func (m *MemoryStore) GetSnapshot(ctx context.Context, id string) (*models.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap, ok := m.snapshots[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return &snap, nil
}

func (m *MemoryStore) ListSnapshots(ctx context.Context, product string, limit int) ([]*models.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*models.Snapshot
	for _, snap := range m.snapshots {
		if snap.Product == product {
			out = append(out, &snap)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CollectedAt.After(out[j].CollectedAt)
	})
	if limit > NoLimit && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) Ping(ctx context.Context) error { return nil }
func (m *MemoryStore) Close() error                   { return nil }
