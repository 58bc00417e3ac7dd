package osmstore

import "testing"

func TestNodeStoreGetBeforeFinalizeErrors(t *testing.T) {
	s := NewNodeStore(true)
	s.Insert(1, LatpLon{Latp: 1, Lon: 1})
	if _, err := s.Get(1); err == nil {
		t.Fatal("expected an error reading before Finalize")
	}
}

func TestNodeStoreRoundTrip(t *testing.T) {
	s := NewNodeStore(true)
	s.Insert(5, LatpLon{Latp: 10, Lon: 20})
	s.Insert(1, LatpLon{Latp: 30, Lon: 40})
	s.Finalize()

	loc, err := s.Get(5)
	if err != nil {
		t.Fatalf("Get(5) returned an error: %v", err)
	}
	if loc != (LatpLon{Latp: 10, Lon: 20}) {
		t.Errorf("Get(5) = %+v, want {10 20}", loc)
	}
}

func TestNodeStoreMissingEntityEnforced(t *testing.T) {
	s := NewNodeStore(true)
	s.Insert(1, LatpLon{})
	s.Finalize()

	if _, err := s.Get(99); err == nil {
		t.Fatal("expected ErrMissingEntity for an id that was never inserted")
	}
}

func TestNodeStoreMissingEntityNotEnforced(t *testing.T) {
	s := NewNodeStore(false)
	s.Insert(1, LatpLon{})
	s.Finalize()

	loc, err := s.Get(99)
	if err != nil {
		t.Fatalf("did not expect an error with enforceIntegrity=false, got %v", err)
	}
	if loc != (LatpLon{}) {
		t.Errorf("Get on a missing id with enforceIntegrity=false = %+v, want zero value", loc)
	}
}

func TestNodeStoreResolveSkipsMissingWhenNotEnforced(t *testing.T) {
	s := NewNodeStore(false)
	s.Insert(1, LatpLon{Latp: 1, Lon: 1})
	s.Insert(3, LatpLon{Latp: 3, Lon: 3})
	s.Finalize()

	locs, err := s.Resolve([]NodeID{1, 2, 3})
	if err != nil {
		t.Fatalf("Resolve returned an error: %v", err)
	}
	if len(locs) != 2 {
		t.Errorf("Resolve skipping a dangling ref returned %d locations, want 2", len(locs))
	}
}

func TestNodeStoreResolveFailsWhenEnforced(t *testing.T) {
	s := NewNodeStore(true)
	s.Insert(1, LatpLon{Latp: 1, Lon: 1})
	s.Finalize()

	if _, err := s.Resolve([]NodeID{1, 2}); err == nil {
		t.Fatal("expected Resolve to fail on a dangling ref with enforceIntegrity=true")
	}
}
