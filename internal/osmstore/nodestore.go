package osmstore

import (
	"fmt"
	"sort"
	"sync"
)

// NodeStore holds every node's projected coordinate, keyed by NodeID. It has
// two phases: while open, Insert appends under a mutex; Finalize sorts the
// backing slice once so Get can binary-search it lock-free afterward. Ways
// and relations are only ever resolved after the node pass completes, so
// this two-phase shape costs nothing in practice (ground:
// original_source/include/osm_store.h's NodeStore, here realized as a
// sorted slice rather than a custom mmap-backed vector).
type NodeStore struct {
	mu              sync.Mutex
	entries         []Node
	finalized       bool
	enforceIntegrity bool
}

// NewNodeStore creates an empty node store. enforceIntegrity controls
// whether Get on a missing id returns an error (true) or the zero LatpLon
// and a nil error (false) — see spec.md's discussion of require_integrity.
func NewNodeStore(enforceIntegrity bool) *NodeStore {
	return &NodeStore{enforceIntegrity: enforceIntegrity}
}

// Insert records a node's coordinate. Safe for concurrent use during the
// Nodes phase; panics if called after Finalize.
func (s *NodeStore) Insert(id NodeID, loc LatpLon) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalized {
		panic("osmstore: Insert on a finalized NodeStore")
	}
	s.entries = append(s.entries, Node{ID: id, Loc: loc})
}

// Finalize sorts the accumulated nodes by id, enabling Get. Must be called
// exactly once, after the Nodes phase completes and before any Way or
// Relation phase reads coordinates.
func (s *NodeStore) Finalize() {
	s.mu.Lock()
	defer s.mu.Unlock()
	sort.Slice(s.entries, func(i, j int) bool { return s.entries[i].ID < s.entries[j].ID })
	s.finalized = true
}

// Get resolves a node's coordinate by binary search. Returns
// *ErrNotFinalized if called before Finalize, or *ErrMissingEntity if id
// was never inserted and enforceIntegrity is true.
func (s *NodeStore) Get(id NodeID) (LatpLon, error) {
	if !s.finalized {
		return LatpLon{}, &ErrNotFinalized{Kind: ObjectKindNode}
	}
	loc, ok := s.lookup(id)
	if ok {
		return loc, nil
	}
	if s.enforceIntegrity {
		return LatpLon{}, &ErrMissingEntity{Kind: ObjectKindNode, ID: uint64(id)}
	}
	return LatpLon{}, nil
}

func (s *NodeStore) lookup(id NodeID) (LatpLon, bool) {
	i := sort.Search(len(s.entries), func(i int) bool { return s.entries[i].ID >= id })
	if i < len(s.entries) && s.entries[i].ID == id {
		return s.entries[i].Loc, true
	}
	return LatpLon{}, false
}

// Resolve looks up a sequence of NodeIDs and returns their coordinates in
// order, used by WayStore to materialize a classic-mode way's geometry.
// Missing nodes are dropped (not zero-filled) when enforceIntegrity is
// false, matching the original's silent skip-and-continue on a dangling
// reference; when enforceIntegrity is true, the first missing node fails
// the whole way.
func (s *NodeStore) Resolve(refs []NodeID) ([]LatpLon, error) {
	if !s.finalized {
		return nil, &ErrNotFinalized{Kind: ObjectKindNode}
	}
	out := make([]LatpLon, 0, len(refs))
	for _, ref := range refs {
		loc, ok := s.lookup(ref)
		if !ok {
			if s.enforceIntegrity {
				return nil, fmt.Errorf("osmstore: resolving way node %d: %w", ref, &ErrMissingEntity{Kind: ObjectKindNode, ID: uint64(ref)})
			}
			continue
		}
		out = append(out, loc)
	}
	return out, nil
}

// Len reports the number of inserted nodes.
func (s *NodeStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
