package pbfdriver

import (
	"testing"

	"github.com/wegman-software/tilemaker-go/internal/osmstore"
)

func ll(x, y int32) osmstore.LatpLon { return osmstore.LatpLon{Latp: x, Lon: y} }

func TestAssembleRingsChainsTwoSegmentsIntoOneClosedRing(t *testing.T) {
	segA := []osmstore.LatpLon{ll(0, 0), ll(0, 1), ll(1, 1)}
	segB := []osmstore.LatpLon{ll(1, 1), ll(1, 0), ll(0, 0)}

	rings := assembleRings([][]osmstore.LatpLon{segA, segB})
	if len(rings) != 1 {
		t.Fatalf("assembleRings produced %d rings, want 1", len(rings))
	}
	ring := rings[0]
	if ring[0] != ring[len(ring)-1] {
		t.Errorf("assembled ring is not closed: %v", ring)
	}
	if len(ring) != 5 {
		t.Errorf("assembled ring has %d points, want 5 (3+3 minus one shared endpoint each end)", len(ring))
	}
}

func TestAssembleRingsHandlesReversedSegment(t *testing.T) {
	segA := []osmstore.LatpLon{ll(0, 0), ll(0, 1)}
	segB := []osmstore.LatpLon{ll(1, 0), ll(0, 1)} // shares endpoint with segA's tail, reversed
	segC := []osmstore.LatpLon{ll(1, 0), ll(0, 0)} // closes the loop

	rings := assembleRings([][]osmstore.LatpLon{segA, segB, segC})
	if len(rings) != 1 {
		t.Fatalf("assembleRings produced %d rings, want 1", len(rings))
	}
	ring := rings[0]
	if ring[0] != ring[len(ring)-1] {
		t.Errorf("assembled ring is not closed: %v", ring)
	}
}

func TestAssembleRingsLeavesDisjointSegmentsAsSeparateRings(t *testing.T) {
	segA := []osmstore.LatpLon{ll(0, 0), ll(0, 1), ll(0, 0)}
	segB := []osmstore.LatpLon{ll(5, 5), ll(5, 6), ll(5, 5)}

	rings := assembleRings([][]osmstore.LatpLon{segA, segB})
	if len(rings) != 2 {
		t.Fatalf("assembleRings produced %d rings, want 2 disjoint rings", len(rings))
	}
}

func TestAssembleRingsEmptyInput(t *testing.T) {
	if rings := assembleRings(nil); len(rings) != 0 {
		t.Errorf("assembleRings(nil) = %v, want empty", rings)
	}
}
