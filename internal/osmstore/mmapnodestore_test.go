package osmstore

import (
	"path/filepath"
	"testing"
)

func TestMmapNodeStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nodes.bin")

	s, err := NewMmapNodeStore(path, 1000)
	if err != nil {
		t.Fatalf("NewMmapNodeStore: %v", err)
	}
	defer s.Close()

	if err := s.Insert(42, LatpLon{Latp: 111, Lon: 222}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	loc, ok := s.Get(42)
	if !ok {
		t.Fatal("Get(42) = false after Insert")
	}
	if loc != (LatpLon{Latp: 111, Lon: 222}) {
		t.Errorf("Get(42) = %+v, want {111 222}", loc)
	}

	if _, ok := s.Get(43); ok {
		t.Error("Get(43) = true for a node that was never inserted")
	}
}

func TestMmapNodeStoreRejectsOutOfRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nodes.bin")
	s, err := NewMmapNodeStore(path, 10)
	if err != nil {
		t.Fatalf("NewMmapNodeStore: %v", err)
	}
	defer s.Close()

	if err := s.Insert(999, LatpLon{}); err == nil {
		t.Error("expected Insert to reject an id beyond capacity")
	}
}
