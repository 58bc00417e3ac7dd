package tiledata

import (
	"testing"

	"github.com/paulmach/orb"

	"github.com/wegman-software/tilemaker-go/internal/flex"
	"github.com/wegman-software/tilemaker-go/internal/osmstore"
)

func TestEmitPointThenCollectForItsTile(t *testing.T) {
	ds := New(10, false, 2)
	id := osmstore.NewNodeObjectID(5)
	out := flex.OutputObject{ObjectID: id, Layer: "poi", GeomType: flex.GeomPoint}
	ds.Emit(orb.Point{5.3, 51.2}, []flex.OutputObject{out})
	ds.Finalize()

	tile := tileAt(orb.Point{5.3, 51.2}, 10)
	got := ds.CollectObjectsForTile(10, tile, nil)
	if len(got) != 1 || got[0].ObjectID != id {
		t.Fatalf("CollectObjectsForTile = %+v, want one output with id %v", got, id)
	}
}

func TestCollectObjectsForTileEmptyElsewhere(t *testing.T) {
	ds := New(10, false, 2)
	ds.Emit(orb.Point{5.3, 51.2}, []flex.OutputObject{{ObjectID: 1, Layer: "poi"}})
	ds.Finalize()

	got := ds.CollectObjectsForTile(10, TileCoord{X: 0, Y: 0}, nil)
	if len(got) != 0 {
		t.Errorf("CollectObjectsForTile at an unrelated tile = %v, want empty", got)
	}
}

func TestCollectObjectsForTileHonorsMinZoomInSmallIndex(t *testing.T) {
	ds := New(10, false, 2)
	id := osmstore.NewNodeObjectID(7)
	out := flex.OutputObject{ObjectID: id, Layer: "poi", GeomType: flex.GeomPoint, MinZoom: 8}
	ds.Emit(orb.Point{5.3, 51.2}, []flex.OutputObject{out})
	ds.Finalize()

	tile := tileAt(orb.Point{5.3, 51.2}, 10)

	if got := ds.CollectObjectsForTile(10, tile, nil); len(got) != 1 {
		t.Fatalf("CollectObjectsForTile at zoom 10 (>= MinZoom 8) = %v, want one object", got)
	}
	if got := ds.CollectObjectsForTile(8, rescaleTile(tile, 10, 8), nil); len(got) != 1 {
		t.Fatalf("CollectObjectsForTile at zoom 8 (== MinZoom) = %v, want one object", got)
	}
	if got := ds.CollectObjectsForTile(6, rescaleTile(tile, 10, 6), nil); len(got) != 0 {
		t.Errorf("CollectObjectsForTile at zoom 6 (< MinZoom 8) = %v, want empty", got)
	}
}

func TestLineStringGoesThroughSmallIndexAndIsQueryableAtCoarserZoom(t *testing.T) {
	ds := New(12, false, 2)
	ls := orb.LineString{{0, 0}, {0.01, 0.01}, {0.02, 0.02}}
	ds.Emit(ls, []flex.OutputObject{{ObjectID: 9, Layer: "roads", GeomType: flex.GeomLinestring}})
	ds.Finalize()

	tiles := ds.CollectTilesWithObjectsAtZoom(12)
	if len(tiles) == 0 {
		t.Fatal("no tiles recorded for an emitted linestring")
	}
	coarse := ds.CollectTilesWithObjectsAtZoom(6)
	if len(coarse) == 0 {
		t.Error("no tiles found at a coarser zoom after rescaling")
	}
}

func TestLargePolygonGoesToRTree(t *testing.T) {
	ds := New(14, false, 2)
	// A big square spanning enough base-zoom tiles to exceed the heuristic.
	ring := orb.Ring{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {0, 0}}
	poly := orb.Polygon{ring}
	ds.Emit(poly, []flex.OutputObject{{ObjectID: 3, Layer: "land", GeomType: flex.GeomPolygon}})
	ds.Finalize()

	if ds.rtree.root == nil && ds.rtreeWithID.root == nil {
		t.Error("large polygon did not land in either R-tree")
	}
}

func TestBuildWayGeometryClipsStoredGeometry(t *testing.T) {
	ds := New(10, false, 2)
	poly := orb.Polygon{{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}, {-1, -1}}}
	id := osmstore.NewWayObjectID(1)
	ds.Emit(poly, []flex.OutputObject{{ObjectID: id, Layer: "land", GeomType: flex.GeomPolygon}})
	ds.Finalize()

	got := ds.BuildWayGeometry(id, 0, TileCoord{X: 0, Y: 0})
	if got == nil {
		t.Fatal("BuildWayGeometry returned nil for a stored polygon")
	}
}

func TestBuildWayGeometryMissingObjectReturnsNil(t *testing.T) {
	ds := New(10, false, 2)
	if got := ds.BuildWayGeometry(osmstore.NewWayObjectID(999), 0, TileCoord{}); got != nil {
		t.Errorf("BuildWayGeometry for an unknown id = %v, want nil", got)
	}
}
