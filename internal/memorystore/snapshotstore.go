package memorystore

import (
	"sort"
	"sync"
)

// MemorySnapshotStore holds the latest Snapshot per asset. Writers replace
// whole values, so readers never see fields from two refresh passes.
type MemorySnapshotStore struct {
	mu   sync.RWMutex
	data map[string]Snapshot
}

func NewSnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{
		data: make(map[string]Snapshot),
	}
}

func (s *MemorySnapshotStore) Put(snap Snapshot) {
	s.mu.Lock()
	s.data[snap.Asset] = snap
	s.mu.Unlock()
}

// Get returns the snapshot of the asset, or false before the first
// successful refresh.
func (s *MemorySnapshotStore) Get(asset string) (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.data[asset]
	return snap, ok
}

// GetAll returns every cached snapshot ordered by asset.
func (s *MemorySnapshotStore) GetAll() []Snapshot {
	s.mu.RLock()
	out := make([]Snapshot, 0, len(s.data))
	for _, snap := range s.data {
		out = append(out, snap)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Asset < out[j].Asset })
	return out
}

func (s *MemorySnapshotStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
