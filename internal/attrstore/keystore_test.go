package attrstore

import "testing"

func TestKeyStoreInternRoundTrip(t *testing.T) {
	ks := NewKeyStore()

	idx := ks.Index("highway")
	if idx == 0 {
		t.Fatalf("Index returned the missing sentinel for a real key")
	}
	if got := ks.Key(idx); got != "highway" {
		t.Errorf("Key(%d) = %q, want %q", idx, got, "highway")
	}
}

func TestKeyStoreDedupes(t *testing.T) {
	ks := NewKeyStore()

	a := ks.Index("name")
	b := ks.Index("name")
	if a != b {
		t.Errorf("Index returned different indices for the same key: %d vs %d", a, b)
	}
}

func TestKeyStoreNeverReturnsZeroForRealKey(t *testing.T) {
	ks := NewKeyStore()
	for _, key := range []string{"a", "b", "highway", "name:en"} {
		if idx := ks.Index(key); idx == 0 {
			t.Errorf("Index(%q) returned the 0 sentinel", key)
		}
	}
}

func TestKeyStoreConcurrentInsert(t *testing.T) {
	ks := NewKeyStore()
	keys := []string{"a", "b", "c", "d", "e", "f", "g"}
	const goroutines = 4

	results := make(chan [7]uint16, goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			var r [7]uint16
			for i, k := range keys {
				r[i] = ks.Index(k)
			}
			results <- r
		}()
	}

	first := <-results
	for i := 1; i < goroutines; i++ {
		r := <-results
		for j := range keys {
			if r[j] != first[j] {
				t.Errorf("key %q resolved to two different indices across goroutines: %d and %d", keys[j], first[j], r[j])
			}
		}
	}
}
