package osmstore

import "testing"

func TestWayStoreClassicGeometryResolvesThroughNodes(t *testing.T) {
	nodes := NewNodeStore(true)
	nodes.Insert(1, LatpLon{Latp: 1, Lon: 1})
	nodes.Insert(2, LatpLon{Latp: 2, Lon: 2})
	nodes.Finalize()

	ways := NewWayStore(false, true)
	ways.InsertRefs(10, []NodeID{1, 2})
	ways.Finalize()

	geom, err := ways.Geometry(10, nodes)
	if err != nil {
		t.Fatalf("Geometry returned an error: %v", err)
	}
	want := []LatpLon{{Latp: 1, Lon: 1}, {Latp: 2, Lon: 2}}
	if len(geom) != len(want) || geom[0] != want[0] || geom[1] != want[1] {
		t.Errorf("Geometry(10) = %v, want %v", geom, want)
	}
}

func TestWayStoreCompactGeometryBypassesNodes(t *testing.T) {
	ways := NewWayStore(true, true)
	ways.InsertLocs(10, []LatpLon{{Latp: 5, Lon: 5}})
	ways.Finalize()

	geom, err := ways.Geometry(10, nil)
	if err != nil {
		t.Fatalf("Geometry returned an error: %v", err)
	}
	if len(geom) != 1 || geom[0] != (LatpLon{Latp: 5, Lon: 5}) {
		t.Errorf("Geometry(10) = %v, want [{5 5}]", geom)
	}
}

func TestWayClosedDetection(t *testing.T) {
	w := Way{Refs: []NodeID{1, 2, 3, 1}}
	if !w.Closed() {
		t.Error("Closed() = false for a way whose first and last refs match")
	}
	w2 := Way{Refs: []NodeID{1, 2, 3, 4}}
	if w2.Closed() {
		t.Error("Closed() = true for a way whose first and last refs differ")
	}
}

func TestWayStoreMissingWayEnforced(t *testing.T) {
	ways := NewWayStore(false, true)
	ways.InsertRefs(1, nil)
	ways.Finalize()

	if _, err := ways.Get(2); err == nil {
		t.Fatal("expected ErrMissingEntity for a way id that was never inserted")
	}
}
