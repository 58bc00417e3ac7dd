package tiledata

import (
	"testing"

	"github.com/paulmach/orb"

	"github.com/wegman-software/tilemaker-go/internal/flex"
	"github.com/wegman-software/tilemaker-go/internal/osmstore"
)

func boundAt(x, y float64) orb.Bound {
	return orb.Bound{Min: orb.Point{x, y}, Max: orb.Point{x + 1, y + 1}}
}

func TestRTreeSearchFindsInsertedEntries(t *testing.T) {
	tree := NewRTree()
	for i := 0; i < 50; i++ {
		tree.Insert(boundAt(float64(i), float64(i)), flex.OutputObject{ObjectID: osmstore.ObjectID(i)})
	}
	tree.Build()

	got := tree.Search(boundAt(10, 10))
	if len(got) == 0 {
		t.Fatal("Search found nothing at an inserted entry's bound")
	}
	found := false
	for _, oo := range got {
		if oo.ObjectID == 10 {
			found = true
		}
	}
	if !found {
		t.Errorf("Search(10,10) = %v, want to include ObjectID 10", got)
	}
}

func TestRTreeSearchMissesDisjointRegion(t *testing.T) {
	tree := NewRTree()
	tree.Insert(boundAt(0, 0), flex.OutputObject{ObjectID: 1})
	tree.Build()

	if got := tree.Search(boundAt(1000, 1000)); len(got) != 0 {
		t.Errorf("Search far from the only entry = %v, want empty", got)
	}
}

func TestRTreeEmptyBuildIsSafe(t *testing.T) {
	tree := NewRTree()
	tree.Build()
	if got := tree.Search(boundAt(0, 0)); got != nil {
		t.Errorf("Search on an empty tree = %v, want nil", got)
	}
}

func TestRTreeInsertAfterBuildPanics(t *testing.T) {
	tree := NewRTree()
	tree.Build()
	defer func() {
		if recover() == nil {
			t.Error("Insert after Build did not panic")
		}
	}()
	tree.Insert(boundAt(0, 0), flex.OutputObject{})
}
