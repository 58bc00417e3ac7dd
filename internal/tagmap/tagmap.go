// Package tagmap provides a non-owning, non-allocating view over an OSM
// entity's tags while it is being decoded from a PBF block, so a script
// can query tag values without us copying the block's string table into a
// per-entity map first.
package tagmap

// TagMap borrows a PBF block's decoded string table and a pair of parallel
// key/value index slices describing one entity's tags. It never copies or
// owns any of the three (ground: original_source/include/osm_tags.h) and
// must not be retained past the lifetime of the block it was built from.
type TagMap struct {
	strings []string
	keys    []uint32
	values  []uint32
}

// New builds a TagMap over strings (the block's string table) and the
// parallel keys/values index slices for one entity. keys and values must
// be the same length.
func New(strings []string, keys, values []uint32) TagMap {
	return TagMap{strings: strings, keys: keys, values: values}
}

// Len returns the number of tags.
func (t TagMap) Len() int { return len(t.keys) }

// GetKey returns the i'th tag's key string.
func (t TagMap) GetKey(i int) string { return t.strings[t.keys[i]] }

// GetValue returns the i'th tag's value string.
func (t TagMap) GetValue(i int) string { return t.strings[t.values[i]] }

// Find does a linear scan for key and returns its value and whether it was
// present. Tag counts per entity are small (single digits, rarely above
// twenty), so a linear scan beats building a hash map per entity.
func (t TagMap) Find(key string) (string, bool) {
	for i := 0; i < len(t.keys); i++ {
		if t.GetKey(i) == key {
			return t.GetValue(i), true
		}
	}
	return "", false
}

// Has reports whether key is present, without materializing its value.
func (t TagMap) Has(key string) bool {
	_, ok := t.Find(key)
	return ok
}

// ExportToOwnedMap copies the view into an independent map[string]string
// that outlives the PBF block. Used for relation tags, which
// RelationScanStore must retain across the block boundary (ground:
// osm_tags.h's rationale comment on why relations can't borrow the string
// table the way node/way tag lookups do).
func (t TagMap) ExportToOwnedMap() map[string]string {
	out := make(map[string]string, t.Len())
	for i := 0; i < t.Len(); i++ {
		out[t.GetKey(i)] = t.GetValue(i)
	}
	return out
}
