package attrstore

import (
	"sync"
	"sync/atomic"
)

// keySnapshot is the immutable mapping readers load without a lock. A new
// snapshot is published wholesale on every insert; the old one is left for
// the garbage collector once no reader holds a reference to it anymore.
type keySnapshot struct {
	index map[string]uint16
}

// KeyStore is the process-wide string-to-small-int dictionary for tag keys
// (ground: original_source/include/attribute_store.h's AttributeKeyStore,
// redesigned per spec.md §9 from "short lock + double-check" to an atomic
// pointer swap, per the DESIGN NOTES entry on this exact component).
//
// Index 0 is reserved as the "missing" sentinel: no key is ever interned
// at index 0.
type KeyStore struct {
	snapshot atomic.Pointer[keySnapshot]

	mu   sync.Mutex // guards writes only; readers never take this lock
	keys []string   // append-only; index i holds the key for KeyIndex(i)
}

// NewKeyStore creates a key store with the 0-sentinel already installed.
func NewKeyStore() *KeyStore {
	ks := &KeyStore{keys: []string{""}}
	ks.snapshot.Store(&keySnapshot{index: map[string]uint16{}})
	return ks
}

// Index returns the dense index for s, interning it on first use. Panics if
// the 16-bit key space is exhausted: per spec.md §4.1 and §7, key-space
// exhaustion is unrecoverable and fatal at ingest time.
func (ks *KeyStore) Index(s string) uint16 {
	if snap := ks.snapshot.Load(); snap != nil {
		if idx, ok := snap.index[s]; ok {
			return idx
		}
	}

	ks.mu.Lock()
	defer ks.mu.Unlock()

	// Double-check: another writer may have published a snapshot with s
	// while we were waiting on the lock.
	cur := ks.snapshot.Load()
	if idx, ok := cur.index[s]; ok {
		return idx
	}

	newIndex := len(ks.keys)
	if newIndex >= 65536 {
		panic(ErrKeySpaceExhausted)
	}
	ks.keys = append(ks.keys, s)

	next := &keySnapshot{index: make(map[string]uint16, len(cur.index)+1)}
	for k, v := range cur.index {
		next.index[k] = v
	}
	next.index[s] = uint16(newIndex)

	ks.snapshot.Store(next)
	return uint16(newIndex)
}

// Key returns the string interned at index i. i must have been previously
// returned by Index; the backing slice is append-only so the returned
// string remains valid for the lifetime of the process.
func (ks *KeyStore) Key(i uint16) string {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	return ks.keys[i]
}

// Len returns the number of interned keys, including the 0 sentinel.
func (ks *KeyStore) Len() int {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	return len(ks.keys)
}
