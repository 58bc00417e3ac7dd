package osmstore

import (
	"sort"
	"sync"
)

// RelationStore holds every relation's outer/inner way lists and its own
// tags, keyed by RelationID (ground:
// original_source/include/osm_store.h's RelationStore). Relations are
// written once during the Relations phase, after the way pass, so the same
// insert-then-Finalize shape as NodeStore/WayStore applies.
type RelationStore struct {
	mu               sync.Mutex
	entries          []Relation
	finalized        bool
	enforceIntegrity bool
}

// NewRelationStore creates an empty relation store.
func NewRelationStore(enforceIntegrity bool) *RelationStore {
	return &RelationStore{enforceIntegrity: enforceIntegrity}
}

// Insert records a relation's outer/inner way lists and tags.
func (s *RelationStore) Insert(rel Relation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalized {
		panic("osmstore: Insert on a finalized RelationStore")
	}
	s.entries = append(s.entries, rel)
}

// Finalize sorts the accumulated relations by id, enabling Get.
func (s *RelationStore) Finalize() {
	s.mu.Lock()
	defer s.mu.Unlock()
	sort.Slice(s.entries, func(i, j int) bool { return s.entries[i].ID < s.entries[j].ID })
	s.finalized = true
}

// Get returns the relation with the given id.
func (s *RelationStore) Get(id RelationID) (*Relation, error) {
	if !s.finalized {
		return nil, &ErrNotFinalized{Kind: ObjectKindRelation}
	}
	i := sort.Search(len(s.entries), func(i int) bool { return s.entries[i].ID >= id })
	if i < len(s.entries) && s.entries[i].ID == id {
		r := s.entries[i]
		return &r, nil
	}
	if s.enforceIntegrity {
		return nil, &ErrMissingEntity{Kind: ObjectKindRelation, ID: uint64(id)}
	}
	return nil, nil
}

// Len reports the number of inserted relations.
func (s *RelationStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
