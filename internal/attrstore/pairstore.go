package attrstore

import (
	"hash/fnv"
	"strings"
	"sync"
)

const (
	shardBits     = 8
	shardCount    = 1 << shardBits
	hotShardCap   = 1 << 16 // 65536 entries, so a hot id fits in 16 bits
	coldShardBits = 32 - shardBits
)

// AttributePairIndex is a 32-bit index into the pair store, partitioned
// into a top shard selector and a 24-bit offset within that shard (spec.md
// §3). Shard 0 is the "hot" shard.
type AttributePairIndex uint32

func (p AttributePairIndex) shard() uint32  { return uint32(p) >> coldShardBits }
func (p AttributePairIndex) offset() uint32 { return uint32(p) & ((1 << coldShardBits) - 1) }

func makePairIndex(shard, offset uint32) AttributePairIndex {
	return AttributePairIndex(shard<<coldShardBits | offset)
}

// Pair is a (key, value, minzoom) triple, interned once and never mutated
// thereafter (spec.md §3 invariant: immutable once interned).
type Pair struct {
	KeyIndex uint16
	Value    Value
	MinZoom  uint8
}

// Hot reports whether this pair is a candidate for the 16-bit-addressable
// hot shard: booleans, small non-negative integer floats, or lowercase
// identifier-like strings whose key isn't name/name:*. This mirrors
// AttributePair::hot() in attribute_store.h exactly; it is an eligibility
// hint, not a guarantee — a full hot shard still falls back to a cold one.
func (p Pair) Hot(keys *KeyStore) bool {
	switch p.Value.Kind {
	case KindBool:
		return true
	case KindFloat:
		v := p.Value.F
		return v >= 0 && v <= 9 && v == float64(int(v))
	case KindString:
		s := p.Value.S
		for _, c := range s {
			if c != '-' && c != '_' && (c < 'a' || c > 'z') {
				return false
			}
		}
		key := keys.Key(p.KeyIndex)
		if key == "name" || strings.HasPrefix(key, "name:") {
			return false
		}
		return true
	default:
		return false
	}
}

// less implements the canonical (minzoom, keyIndex, typeTag, value)
// ordering from spec.md §4.2.
func (p Pair) less(o Pair) bool {
	if p.MinZoom != o.MinZoom {
		return p.MinZoom < o.MinZoom
	}
	if p.KeyIndex != o.KeyIndex {
		return p.KeyIndex < o.KeyIndex
	}
	return p.Value.less(o.Value)
}

func (p Pair) equal(o Pair) bool {
	return p.MinZoom == o.MinZoom && p.KeyIndex == o.KeyIndex && p.Value.Equal(o.Value)
}

type pairShard struct {
	mu      sync.Mutex
	entries []Pair
	byValue map[Pair]uint32 // content -> offset within this shard
}

// PairStore is the sharded dictionary of AttributePairs (ground:
// original_source/include/attribute_store.h's AttributePairStore). 256
// shards; shard 0 is hot and capped at 65536 entries so a hot pair index
// also fits in 16 bits when a caller needs that.
type PairStore struct {
	keys   *KeyStore
	shards [shardCount]*pairShard
}

// NewPairStore creates a pair store bound to the given key store (pairs
// need the key store to decide hotness and to render key names).
func NewPairStore(keys *KeyStore) *PairStore {
	ps := &PairStore{keys: keys}
	for i := range ps.shards {
		ps.shards[i] = &pairShard{byValue: make(map[Pair]uint32)}
	}
	return ps
}

// Get returns the pair previously interned at index i.
func (ps *PairStore) Get(i AttributePairIndex) Pair {
	sh := ps.shards[i.shard()]
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return sh.entries[i.offset()]
}

// Add interns pair, returning its existing index if an equal pair is
// already present, or a freshly appended one otherwise.
func (ps *PairStore) Add(pair Pair) AttributePairIndex {
	if pair.Hot(ps.keys) {
		if idx, ok := ps.tryShard(0, pair); ok {
			return idx
		}
	}

	shard := ps.coldShardFor(pair)
	idx, _ := ps.tryShard(shard, pair)
	return idx
}

func (ps *PairStore) tryShard(shard uint32, pair Pair) (AttributePairIndex, bool) {
	sh := ps.shards[shard]
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if off, ok := sh.byValue[pair]; ok {
		return makePairIndex(shard, off), true
	}

	if shard == 0 && len(sh.entries) >= hotShardCap {
		return 0, false
	}

	off := uint32(len(sh.entries))
	sh.entries = append(sh.entries, pair)
	sh.byValue[pair] = off
	return makePairIndex(shard, off), true
}

// coldShardFor deterministically hashes a pair to one of the non-hot
// shards (shard 0 is reserved for the hot pool).
func (ps *PairStore) coldShardFor(pair Pair) uint32 {
	h := fnv.New32a()
	h.Write([]byte{byte(pair.MinZoom), byte(pair.KeyIndex), byte(pair.KeyIndex >> 8), byte(pair.Value.Kind)})
	h.Write([]byte(pair.Value.S))
	var fb [8]byte
	bits := uint64(pair.Value.F)
	for i := range fb {
		fb[i] = byte(bits >> (8 * i))
	}
	h.Write(fb[:])
	shard := h.Sum32() % (shardCount - 1)
	return shard + 1 // never land on the hot shard via hashing
}
