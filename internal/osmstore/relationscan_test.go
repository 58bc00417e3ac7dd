package osmstore

import "testing"

func TestRelationScanStoreRoundTrip(t *testing.T) {
	s := NewRelationScanStore()
	s.RelationContainsWay(100, 5)
	s.RelationContainsWay(101, 5)
	s.RelationContainsWay(102, 7)
	s.Finalize()

	if !s.WayInAnyRelation(5) {
		t.Error("WayInAnyRelation(5) = false, want true")
	}
	if s.WayInAnyRelation(6) {
		t.Error("WayInAnyRelation(6) = true, want false")
	}

	rels := s.RelationsForWay(5)
	if len(rels) != 2 || rels[0] != 100 || rels[1] != 101 {
		t.Errorf("RelationsForWay(5) = %v, want [100 101]", rels)
	}
}

func TestRelationScanStoreUnknownWayReturnsNil(t *testing.T) {
	s := NewRelationScanStore()
	s.Finalize()
	if got := s.RelationsForWay(1); got != nil {
		t.Errorf("RelationsForWay on an unknown way = %v, want nil", got)
	}
}

func TestRelationScanStoreRelationTags(t *testing.T) {
	s := NewRelationScanStore()
	s.StoreRelationTags(1, map[string]string{"type": "multipolygon"})
	if got := s.GetRelationTag(1, "type"); got != "multipolygon" {
		t.Errorf("GetRelationTag(1, \"type\") = %q, want %q", got, "multipolygon")
	}
	if got := s.GetRelationTag(1, "missing"); got != "" {
		t.Errorf("GetRelationTag for a missing key = %q, want \"\"", got)
	}
	if got := s.GetRelationTag(99, "type"); got != "" {
		t.Errorf("GetRelationTag for an unknown relation = %q, want \"\"", got)
	}
}

func TestRelationScanStoreAccepted(t *testing.T) {
	s := NewRelationScanStore()
	s.StoreRelationTags(1, map[string]string{"type": "multipolygon"})
	if !s.Accepted(1) {
		t.Error("Accepted(1) = false, want true after StoreRelationTags")
	}
	if s.Accepted(2) {
		t.Error("Accepted(2) = true, want false for a relation never scanned")
	}
}
