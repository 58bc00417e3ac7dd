package pbfdriver

import "github.com/wegman-software/tilemaker-go/internal/osmstore"

// assembleRings chains way-node segments sharing an endpoint coordinate
// into as few polylines as the input permits, since a multipolygon's outer
// or inner boundary is frequently split across several member ways (ground:
// original_source/include/osm_store.h's mergeMultiPolygonWays, reimplemented
// over LatpLon endpoint equality — shared OSM nodes decode to identical
// coordinates, so coordinate equality is a sound proxy for "same node"
// without needing the original node ids past this point). A chain left
// open because no matching segment remains is still returned open; flex's
// own ring-closing pass (geometry.go's closeRings) closes it.
func assembleRings(segments [][]osmstore.LatpLon) [][]osmstore.LatpLon {
	remaining := make([][]osmstore.LatpLon, 0, len(segments))
	for _, s := range segments {
		if len(s) > 1 {
			remaining = append(remaining, s)
		}
	}

	var rings [][]osmstore.LatpLon
	for len(remaining) > 0 {
		ring := append([]osmstore.LatpLon(nil), remaining[0]...)
		remaining = remaining[1:]

		for len(ring) > 0 && ring[0] != ring[len(ring)-1] {
			idx, prepend, flip := findMatch(ring, remaining)
			if idx < 0 {
				break
			}
			seg := remaining[idx]
			remaining = append(remaining[:idx], remaining[idx+1:]...)
			if flip {
				seg = reversedLatpLon(seg)
			}
			if prepend {
				ring = append(append([]osmstore.LatpLon{}, seg[:len(seg)-1]...), ring...)
			} else {
				ring = append(ring, seg[1:]...)
			}
		}
		rings = append(rings, ring)
	}
	return rings
}

// findMatch looks for a remaining segment sharing an endpoint with ring's
// head or tail. prepend reports whether the match extends the ring's head
// rather than its tail; flip reports whether the segment must be reversed
// so its matching endpoint lines up with the ring's.
func findMatch(ring []osmstore.LatpLon, remaining [][]osmstore.LatpLon) (idx int, prepend, flip bool) {
	head, tail := ring[0], ring[len(ring)-1]
	for i, seg := range remaining {
		switch {
		case tail == seg[0]:
			return i, false, false
		case tail == seg[len(seg)-1]:
			return i, false, true
		case head == seg[len(seg)-1]:
			return i, true, false
		case head == seg[0]:
			return i, true, true
		}
	}
	return -1, false, false
}

func reversedLatpLon(s []osmstore.LatpLon) []osmstore.LatpLon {
	out := make([]osmstore.LatpLon, len(s))
	for i, v := range s {
		out[len(s)-1-i] = v
	}
	return out
}
