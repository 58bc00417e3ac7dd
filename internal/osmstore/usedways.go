package osmstore

import "sync"

// UsedWays tracks which ways are referenced by at least one relation, so
// the Ways phase can avoid storing the full geometry of ways nothing ever
// reads. The original (original_source/include/osm_store.h's UsedWays)
// backs this with a single std::vector<bool> that it resizes by +256 on
// every insert past its current length — fine until a PBF delivers way ids
// wildly out of the order the vector was sized for, at which point that
// becomes an O(n) resize per insert. We instead fix the bitset at
// construction to a conservative estimate and spill anything beyond it
// into an overflow map, so a single high outlier id costs one map entry
// rather than one reallocation (spec.md §9 Open Question).
type UsedWays struct {
	mu       sync.Mutex
	bits     []uint64 // bit i*64+j set => way id i*64+j is used
	overflow map[WayID]struct{}
}

// NewUsedWays creates a bitset sized for capacity way ids, with an overflow
// map for anything beyond that.
func NewUsedWays(capacity uint64) *UsedWays {
	return &UsedWays{
		bits:     make([]uint64, (capacity/64)+1),
		overflow: make(map[WayID]struct{}),
	}
}

// Mark records that id is used by at least one relation.
func (u *UsedWays) Mark(id WayID) {
	u.mu.Lock()
	defer u.mu.Unlock()
	word := uint64(id) / 64
	if word < uint64(len(u.bits)) {
		u.bits[word] |= 1 << (uint64(id) % 64)
		return
	}
	u.overflow[id] = struct{}{}
}

// Used reports whether id was ever marked.
func (u *UsedWays) Used(id WayID) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	word := uint64(id) / 64
	if word < uint64(len(u.bits)) {
		return u.bits[word]&(1<<(uint64(id)%64)) != 0
	}
	_, ok := u.overflow[id]
	return ok
}

// Clear resets the store to empty, keeping the bitset's allocated capacity.
func (u *UsedWays) Clear() {
	u.mu.Lock()
	defer u.mu.Unlock()
	for i := range u.bits {
		u.bits[i] = 0
	}
	u.overflow = make(map[WayID]struct{})
}
