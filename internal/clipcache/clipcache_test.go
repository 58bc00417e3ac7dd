package clipcache

import (
	"testing"

	"github.com/paulmach/orb"

	"github.com/wegman-software/tilemaker-go/internal/osmstore"
)

func TestCacheMissOnEmptyCache(t *testing.T) {
	c := New(14, 4, 16)
	if _, _, ok := c.Get(10, 5, 5, 1); ok {
		t.Fatal("Get on empty cache returned ok=true")
	}
}

func TestCacheAddThenChildGet(t *testing.T) {
	c := New(14, 4, 16)
	g := orb.Point{1, 2}
	c.Add(8, 3, 4, 1, g)
	// z8 tile (3,4) is the parent of z9 tile (6,8).
	got, z, ok := c.Get(9, 6, 8, 1)
	if !ok || z != 8 {
		t.Fatalf("Get = (%v, %v, %v), want an ancestor hit at zoom 8", got, z, ok)
	}
}

func TestCacheGetWalksAncestors(t *testing.T) {
	c := New(14, 4, 16)
	g := orb.Point{1, 2}
	c.Add(5, 2, 2, 7, g) // tile (2,2) at z5
	// z5 tile (2,2) covers z8 descendants (16..23, 16..23)
	_, z, ok := c.Get(8, 18, 19, 7)
	if !ok || z != 5 {
		t.Fatalf("Get descendant = (z=%v, ok=%v), want ancestor hit at z5", z, ok)
	}
}

func TestCacheRefusesBaseZoomAndAbove(t *testing.T) {
	c := New(14, 4, 16)
	c.Add(14, 0, 0, 1, orb.Point{0, 0})
	c.Add(15, 0, 0, 1, orb.Point{0, 0})
	if _, _, ok := c.Get(16, 0, 0, 1); ok {
		t.Fatal("Get found an entry that should never have been cached at/above base zoom")
	}
}

func TestShardEvictsLeastRecentlyUsed(t *testing.T) {
	s := newShard(2)
	s.add(Key{Zoom: 0, ObjectID: 1}, orb.Point{0, 0})
	s.add(Key{Zoom: 0, ObjectID: 2}, orb.Point{0, 0})
	s.get(Key{Zoom: 0, ObjectID: 1}) // touch 1, making 2 the LRU
	s.add(Key{Zoom: 0, ObjectID: 3}, orb.Point{0, 0})

	if _, ok := s.get(Key{Zoom: 0, ObjectID: 2}); ok {
		t.Error("least recently used entry survived eviction")
	}
	if _, ok := s.get(Key{Zoom: 0, ObjectID: 1}); !ok {
		t.Error("recently touched entry was evicted")
	}
	if _, ok := s.get(Key{Zoom: 0, ObjectID: 3}); !ok {
		t.Error("newly added entry missing")
	}
}

func TestCacheDifferentObjectsUseIndependentShardsSafely(t *testing.T) {
	c := New(14, 4, 16)
	for id := osmstore.ObjectID(0); id < 50; id++ {
		c.Add(3, 0, 0, id, orb.Point{float64(id), 0})
	}
	for id := osmstore.ObjectID(0); id < 50; id++ {
		got, _, ok := c.Get(4, 0, 0, id)
		if !ok {
			t.Fatalf("object %d missing after insert", id)
		}
		if pt, ok2 := got.(orb.Point); !ok2 || pt.X() != float64(id) {
			t.Errorf("object %d geometry = %v, want point with X=%d", id, got, id)
		}
	}
}
