package attrstore

import "testing"

func TestEngineBuilderRoundTrip(t *testing.T) {
	e := NewEngine()
	b := e.NewBuilder()

	b.AddString("highway", "residential", 0)
	b.AddBool("oneway", true, 0)
	b.AddFloat("lanes", 2, 0)
	id := b.Finalize()

	if id == 0 {
		t.Fatalf("Finalize() returned the empty-set id for a non-empty builder")
	}
	if got := e.Sets.Get(id); len(got) != 3 {
		t.Fatalf("Get(%d) returned %d pairs, want 3", id, len(got))
	}
}

func TestEngineBuilderIgnoresEmptyStringValue(t *testing.T) {
	e := NewEngine()
	b := e.NewBuilder()

	b.AddString("name", "", 0)
	id := b.Finalize()

	if id != 0 {
		t.Errorf("builder with only an empty string value finalized to %d, want the empty set 0", id)
	}
}

func TestEngineBuilderResetAllowsReuse(t *testing.T) {
	e := NewEngine()
	b := e.NewBuilder()

	b.AddBool("bridge", true, 0)
	first := b.Finalize()
	b.Reset()

	if b.Len() != 0 {
		t.Fatalf("Len() after Reset = %d, want 0", b.Len())
	}

	b.AddBool("tunnel", true, 0)
	second := b.Finalize()
	if first == second {
		t.Errorf("two distinct entities finalized to the same set id %d", first)
	}
}

func TestEngineEqualEntitiesFinalizeToSameSetID(t *testing.T) {
	e := NewEngine()

	b1 := e.NewBuilder()
	b1.AddString("highway", "primary", 14)
	b1.AddBool("oneway", false, 14)
	id1 := b1.Finalize()

	b2 := e.NewBuilder()
	b2.AddBool("oneway", false, 14)
	b2.AddString("highway", "primary", 14)
	id2 := b2.Finalize()

	if id1 != id2 {
		t.Errorf("two entities with the same attributes added in different order got different set ids: %d vs %d", id1, id2)
	}
}
