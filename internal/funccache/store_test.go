package funccache

import (
	"path/filepath"
	"testing"
)

func TestStorePutGetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	s, err := Open(path, 64)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	k := Key{K1: 42, K2: 7, K3: 0, Tag: 1}
	if _, ok := s.Get(k); ok {
		t.Fatal("Get on an empty store returned ok=true")
	}

	if err := s.Put(k, 99); err != nil {
		t.Fatalf("Put: %v", err)
	}
	v, ok := s.Get(k)
	if !ok || v != 99 {
		t.Fatalf("Get after Put = (%d, %v), want (99, true)", v, ok)
	}
}

func TestStoreDistinguishesTagsOnSameKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	s, err := Open(path, 64)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	a := Key{K1: 1, K2: 2, K3: 3, Tag: 1}
	b := Key{K1: 1, K2: 2, K3: 3, Tag: 2}

	if err := s.Put(a, 10); err != nil {
		t.Fatalf("Put a: %v", err)
	}
	if err := s.Put(b, 20); err != nil {
		t.Fatalf("Put b: %v", err)
	}

	va, _ := s.Get(a)
	vb, _ := s.Get(b)
	if va != 10 || vb != 20 {
		t.Fatalf("Get(a)=%d Get(b)=%d, want 10 and 20", va, vb)
	}
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	k := Key{K1: 5, K2: 6, K3: 7, Tag: 3}

	s, err := Open(path, 64)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Put(k, 123); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := Open(path, 64)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	v, ok := s2.Get(k)
	if !ok || v != 123 {
		t.Fatalf("Get after reopen = (%d, %v), want (123, true)", v, ok)
	}
}

func TestStoreOverwriteUpdatesValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	s, err := Open(path, 64)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	k := Key{K1: 1, K2: 1, K3: 1, Tag: 1}
	if err := s.Put(k, 1); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put(k, 2); err != nil {
		t.Fatalf("overwrite Put: %v", err)
	}
	v, ok := s.Get(k)
	if !ok || v != 2 {
		t.Fatalf("Get after overwrite = (%d, %v), want (2, true)", v, ok)
	}
}

func TestOpenSucceedsAfterFirstWriterCloses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	s, err := Open(path, 64)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := Open(path, 64)
	if err != nil {
		t.Fatalf("Open after first closed: %v", err)
	}
	defer s2.Close()
}
