package tiledata

import (
	"testing"

	"github.com/paulmach/orb"

	"github.com/wegman-software/tilemaker-go/internal/osmstore"
)

func TestRenderContextIntersects(t *testing.T) {
	rc := NewRenderContext()
	rc.Add("water", osmstore.NewWayObjectID(1), orb.Polygon{{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {0, 0}}})

	query := orb.Polygon{{{1, 1}, {3, 1}, {3, 3}, {1, 3}, {1, 1}}}
	if !rc.Intersects("water", query) {
		t.Error("Intersects should be true for overlapping bounds")
	}
	if rc.Intersects("land", query) {
		t.Error("Intersects on an empty layer should be false")
	}
}

func TestRenderContextFindIntersectingReturnsID(t *testing.T) {
	rc := NewRenderContext()
	id := osmstore.NewWayObjectID(7)
	rc.Add("water", id, orb.Polygon{{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {0, 0}}})

	got := rc.FindIntersecting("water", orb.Point{1, 1})
	if len(got) != 1 || got[0] != id {
		t.Errorf("FindIntersecting = %v, want [%v]", got, id)
	}
}

func TestRenderContextCoveredBy(t *testing.T) {
	rc := NewRenderContext()
	rc.Add("land", osmstore.NewWayObjectID(1), orb.Polygon{{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}})

	inner := orb.Polygon{{{1, 1}, {2, 1}, {2, 2}, {1, 2}, {1, 1}}}
	if !rc.CoveredBy("land", inner) {
		t.Error("CoveredBy should be true when the query bound sits inside the layer feature's bound")
	}
}
