package pbfdriver

import (
	"testing"

	"github.com/paulmach/osm"
)

func TestTagMapFromOSMRoundTrips(t *testing.T) {
	tags := osm.Tags{{Key: "highway", Value: "residential"}, {Key: "name", Value: "Elm St"}}
	tm := tagMapFromOSM(tags)

	if tm.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", tm.Len())
	}
	if v, ok := tm.Find("highway"); !ok || v != "residential" {
		t.Errorf("Find(highway) = (%q, %v), want (residential, true)", v, ok)
	}
	if v, ok := tm.Find("name"); !ok || v != "Elm St" {
		t.Errorf("Find(name) = (%q, %v), want (Elm St, true)", v, ok)
	}
	if _, ok := tm.Find("missing"); ok {
		t.Error("Find(missing) reported present")
	}
}

func TestHasAnyKey(t *testing.T) {
	tags := osm.Tags{{Key: "shop", Value: "bakery"}}
	if !hasAnyKey(tags, []string{"amenity", "shop"}) {
		t.Error("hasAnyKey should find shop")
	}
	if hasAnyKey(tags, []string{"amenity"}) {
		t.Error("hasAnyKey should not match amenity")
	}
	if hasAnyKey(tags, nil) {
		t.Error("hasAnyKey with no keys should always be false")
	}
}

func TestIsMultiPolygonType(t *testing.T) {
	if !isMultiPolygonType(osm.Tags{{Key: "type", Value: "multipolygon"}}) {
		t.Error("type=multipolygon should be recognized")
	}
	if !isMultiPolygonType(osm.Tags{{Key: "type", Value: "boundary"}}) {
		t.Error("type=boundary should be recognized")
	}
	if isMultiPolygonType(osm.Tags{{Key: "type", Value: "restriction"}}) {
		t.Error("type=restriction should not be recognized as a multipolygon")
	}
	if isMultiPolygonType(nil) {
		t.Error("no type tag should not be recognized as a multipolygon")
	}
}
