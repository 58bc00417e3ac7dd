package osmstore

import (
	"sort"
	"sync"
)

// WayStore holds every way's node sequence, keyed by WayID, in either
// classic mode (node references resolved later through a NodeStore) or
// compact mode (coordinates already resolved at insert time because the
// PBF carried "locations on ways" — ground:
// original_source/include/osm_store.h's two WayStore implementations,
// collapsed here into one type with a per-entry mode flag rather than two
// separate Go types, since the two modes only ever differ in which field
// of Way is populated).
type WayStore struct {
	mu        sync.Mutex
	compact   bool
	entries   []Way
	finalized bool
	enforceIntegrity bool
}

// NewWayStore creates an empty way store. compact selects whether Insert
// expects pre-resolved LatpLons (true) or NodeID references (false).
func NewWayStore(compact, enforceIntegrity bool) *WayStore {
	return &WayStore{compact: compact, enforceIntegrity: enforceIntegrity}
}

// InsertRefs records a classic-mode way (node references, resolved later
// through a NodeStore). Panics if the store was created in compact mode.
func (s *WayStore) InsertRefs(id WayID, refs []NodeID) {
	if s.compact {
		panic("osmstore: InsertRefs on a compact WayStore")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalized {
		panic("osmstore: Insert on a finalized WayStore")
	}
	s.entries = append(s.entries, Way{ID: id, Refs: refs})
}

// InsertLocs records a compact-mode way (coordinates already resolved).
// Panics if the store was created in classic mode.
func (s *WayStore) InsertLocs(id WayID, locs []LatpLon) {
	if !s.compact {
		panic("osmstore: InsertLocs on a classic WayStore")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalized {
		panic("osmstore: Insert on a finalized WayStore")
	}
	s.entries = append(s.entries, Way{ID: id, Locs: locs})
}

// Finalize sorts the accumulated ways by id, enabling Get.
func (s *WayStore) Finalize() {
	s.mu.Lock()
	defer s.mu.Unlock()
	sort.Slice(s.entries, func(i, j int) bool { return s.entries[i].ID < s.entries[j].ID })
	s.finalized = true
}

// Get returns the way with the given id. Returns *ErrNotFinalized if
// called before Finalize, or *ErrMissingEntity if id was never inserted
// and enforceIntegrity is true (a nil, nil result otherwise).
func (s *WayStore) Get(id WayID) (*Way, error) {
	if !s.finalized {
		return nil, &ErrNotFinalized{Kind: ObjectKindWay}
	}
	i := sort.Search(len(s.entries), func(i int) bool { return s.entries[i].ID >= id })
	if i < len(s.entries) && s.entries[i].ID == id {
		w := s.entries[i]
		return &w, nil
	}
	if s.enforceIntegrity {
		return nil, &ErrMissingEntity{Kind: ObjectKindWay, ID: uint64(id)}
	}
	return nil, nil
}

// Geometry resolves id's point sequence, following node references through
// nodes when the store is in classic mode. Compact-mode ways return their
// embedded locations directly.
func (s *WayStore) Geometry(id WayID, nodes *NodeStore) ([]LatpLon, error) {
	w, err := s.Get(id)
	if err != nil || w == nil {
		return nil, err
	}
	if w.IsCompact() {
		return w.Locs, nil
	}
	return nodes.Resolve(w.Refs)
}

// Len reports the number of inserted ways.
func (s *WayStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
