package db

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is an in-process AttachmentLedger. Entries are lost when the process exits.
type MemoryStore struct {
	mu      sync.Mutex
	pending map[string]PendingAttachment
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{pending: make(map[string]PendingAttachment)}
}

// RecordPending adds or replaces an entry
func (m *MemoryStore) RecordPending(ctx context.Context, pending *PendingAttachment) error {
	if pending == nil || pending.ID == "" {
		return fmt.Errorf("pending attachment must have an id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[pending.ID] = *pending
	return nil
}

// ListPending returns unresolved entries, oldest first
func (m *MemoryStore) ListPending(ctx context.Context) ([]PendingAttachment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]PendingAttachment, 0, len(m.pending))
	for _, p := range m.pending {
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// ResolvePending removes an entry once its attach step has succeeded
func (m *MemoryStore) ResolvePending(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pending[id]; !ok {
		return fmt.Errorf("pending attachment %s not found", id)
	}
	delete(m.pending, id)
	return nil
}
