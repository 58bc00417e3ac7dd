package tagmap

import (
	"reflect"
	"testing"
)

func newFixture() TagMap {
	strings := []string{"highway", "residential", "name", "Oak Street"}
	return New(strings, []uint32{0, 2}, []uint32{1, 3})
}

func TestTagMapFind(t *testing.T) {
	tm := newFixture()

	v, ok := tm.Find("highway")
	if !ok || v != "residential" {
		t.Errorf("Find(highway) = (%q, %v), want (residential, true)", v, ok)
	}

	if _, ok := tm.Find("missing"); ok {
		t.Error("Find(missing) = true, want false")
	}
}

func TestTagMapGetKeyValueByIndex(t *testing.T) {
	tm := newFixture()
	if tm.GetKey(1) != "name" || tm.GetValue(1) != "Oak Street" {
		t.Errorf("GetKey(1)/GetValue(1) = %q/%q, want name/Oak Street", tm.GetKey(1), tm.GetValue(1))
	}
}

func TestTagMapExportToOwnedMap(t *testing.T) {
	tm := newFixture()
	got := tm.ExportToOwnedMap()
	want := map[string]string{"highway": "residential", "name": "Oak Street"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExportToOwnedMap() = %v, want %v", got, want)
	}
}

func TestTagMapHas(t *testing.T) {
	tm := newFixture()
	if !tm.Has("highway") {
		t.Error("Has(highway) = false")
	}
	if tm.Has("surface") {
		t.Error("Has(surface) = true for an absent key")
	}
}
