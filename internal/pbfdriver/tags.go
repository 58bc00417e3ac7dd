package pbfdriver

import (
	"github.com/paulmach/osm"

	"github.com/wegman-software/tilemaker-go/internal/tagmap"
)

// tagMapFromOSM builds a tagmap.TagMap view over one decoded entity's tags.
// osm.Tags arrive as independent strings rather than string-table indices,
// so each tag simply claims two consecutive slots in a local strings slice
// (ground: internal/flex's own test helpers, which build a TagMap the same
// way over literal tag lists).
func tagMapFromOSM(tags osm.Tags) tagmap.TagMap {
	strs := make([]string, 0, len(tags)*2)
	keys := make([]uint32, len(tags))
	values := make([]uint32, len(tags))
	for i, t := range tags {
		keys[i] = uint32(len(strs))
		strs = append(strs, t.Key)
		values[i] = uint32(len(strs))
		strs = append(strs, t.Value)
	}
	return tagmap.New(strs, keys, values)
}

// hasAnyKey reports whether tags contains at least one of keys, the test a
// node must pass before node_function is worth invoking.
func hasAnyKey(tags osm.Tags, keys []string) bool {
	if len(keys) == 0 {
		return false
	}
	for _, t := range tags {
		for _, k := range keys {
			if t.Key == k {
				return true
			}
		}
	}
	return false
}

// isMultiPolygonType reports whether a relation's own tags mark it as an
// area relation under the OSM multipolygon/boundary convention.
func isMultiPolygonType(tags osm.Tags) bool {
	for _, t := range tags {
		if t.Key == "type" {
			return t.Value == "multipolygon" || t.Value == "boundary"
		}
	}
	return false
}
