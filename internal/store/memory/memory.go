// Package memory implements store.Store with process-local maps.
//
// Entries are retained for the process lifetime: there is no delete or expiry
// operation, so a long-lived server grows without bound as demo runs
// accumulate. That is an accepted limitation of the demo scope, not a defect —
// a production deployment would swap this for an external store behind the
// same interface.
package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/alfredjeanlab/leadrelay/internal/model"

	"github.com/alfredjeanlab/leadrelay/internal/store"
)

// MemoryStore implements store.Store backed by in-process maps.
type MemoryStore struct {
	mu         sync.RWMutex
	dashboards map[string]json.RawMessage
	updates    map[string][]*model.StatusUpdate
}

// Compile-time check that MemoryStore implements store.Store.
var _ store.Store = (*MemoryStore)(nil)

// New returns an empty in-memory store.
func New() *MemoryStore {
	return &MemoryStore{
		dashboards: make(map[string]json.RawMessage),
		updates:    make(map[string][]*model.StatusUpdate),
	}
}

// SetDashboard stores the snapshot for leadID, overwriting any previous one.
func (s *MemoryStore) SetDashboard(_ context.Context, leadID string, data json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Copy so later caller mutations don't alias stored state.
	buf := make(json.RawMessage, len(data))
	copy(buf, data)
	s.dashboards[leadID] = buf
	return nil
}

// Dashboard returns the latest snapshot for leadID, or nil when none exists.
func (s *MemoryStore) Dashboard(_ context.Context, leadID string) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.dashboards[leadID]
	if !ok {
		return nil, nil
	}
	buf := make(json.RawMessage, len(data))
	copy(buf, data)
	return buf, nil
}

// AddStatusUpdate appends update to leadID's log.
func (s *MemoryStore) AddStatusUpdate(_ context.Context, leadID string, update *model.StatusUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := *update
	s.updates[leadID] = append(s.updates[leadID], &u)
	return nil
}

// StatusUpdates returns leadID's log in arrival order.
func (s *MemoryStore) StatusUpdates(_ context.Context, leadID string) ([]*model.StatusUpdate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	log := s.updates[leadID]
	out := make([]*model.StatusUpdate, len(log))
	for i, u := range log {
		clone := *u
		out[i] = &clone
	}
	return out, nil
}

// LeadIDs returns every lead with a snapshot or a status log, sorted.
func (s *MemoryStore) LeadIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{}, len(s.dashboards)+len(s.updates))
	for id := range s.dashboards {
		seen[id] = struct{}{}
	}
	for id := range s.updates {
		seen[id] = struct{}{}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }
