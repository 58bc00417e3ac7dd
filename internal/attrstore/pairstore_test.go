package attrstore

import "testing"

func TestPairStoreDedupesEqualContent(t *testing.T) {
	keys := NewKeyStore()
	ps := NewPairStore(keys)

	a := ps.Add(Pair{KeyIndex: keys.Index("highway"), Value: String("residential"), MinZoom: 12})
	b := ps.Add(Pair{KeyIndex: keys.Index("highway"), Value: String("residential"), MinZoom: 12})
	if a != b {
		t.Errorf("equal pairs interned to different indices: %d vs %d", a, b)
	}
}

func TestPairStoreDistinguishesVariants(t *testing.T) {
	keys := NewKeyStore()
	ps := NewPairStore(keys)
	k := keys.Index("lanes")

	f := ps.Add(Pair{KeyIndex: k, Value: Float(2), MinZoom: 0})
	s := ps.Add(Pair{KeyIndex: k, Value: String("2"), MinZoom: 0})
	bo := ps.Add(Pair{KeyIndex: k, Value: Bool(true), MinZoom: 0})
	if f == s || f == bo || s == bo {
		t.Errorf("pairs with equal key but different-kind values collapsed: %d %d %d", f, s, bo)
	}
}

func TestPairStoreIgnoresInsertionOrderOfFields(t *testing.T) {
	keys := NewKeyStore()
	ps := NewPairStore(keys)
	k := keys.Index("surface")

	p1 := Pair{KeyIndex: k, Value: String("paved"), MinZoom: 8}
	p2 := Pair{MinZoom: 8, Value: String("paved"), KeyIndex: k}
	if ps.Add(p1) != ps.Add(p2) {
		t.Errorf("field construction order affected interning result")
	}
}

func TestPairHotEligibility(t *testing.T) {
	keys := NewKeyStore()
	hk := keys.Index("highway")
	nk := keys.Index("name")
	nsk := keys.Index("namespace")
	ntk := keys.Index("name:en")

	cases := []struct {
		name string
		pair Pair
		want bool
	}{
		{"bool", Pair{KeyIndex: hk, Value: Bool(true)}, true},
		{"small int float", Pair{KeyIndex: hk, Value: Float(3)}, true},
		{"non-integer float", Pair{KeyIndex: hk, Value: Float(3.5)}, false},
		{"too-large float", Pair{KeyIndex: hk, Value: Float(10)}, false},
		{"lowercase identifier string", Pair{KeyIndex: hk, Value: String("residential")}, true},
		{"string with uppercase", Pair{KeyIndex: hk, Value: String("Residential")}, false},
		{"name-keyed string excluded", Pair{KeyIndex: nk, Value: String("main")}, false},
		{"name:*-keyed string excluded", Pair{KeyIndex: ntk, Value: String("main")}, false},
		{"namespace-keyed string not excluded by name prefix match", Pair{KeyIndex: nsk, Value: String("main")}, true},
	}

	for _, c := range cases {
		if got := c.pair.Hot(keys); got != c.want {
			t.Errorf("%s: Hot() = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestPairStoreHotShardOverflowFallsBackToCold(t *testing.T) {
	keys := NewKeyStore()
	ps := NewPairStore(keys)
	ps.shards[0].entries = make([]Pair, hotShardCap)

	idx := ps.Add(Pair{KeyIndex: keys.Index("aerialway"), Value: Bool(true)})
	if idx.shard() == 0 {
		t.Errorf("expected overflowed hot pair to land in a cold shard, got shard 0")
	}
	got := ps.Get(idx)
	if !got.Value.Equal(Bool(true)) {
		t.Errorf("round-tripped pair value = %v, want true", got.Value)
	}
}

func TestPairStoreGetRoundTrip(t *testing.T) {
	keys := NewKeyStore()
	ps := NewPairStore(keys)

	idx := ps.Add(Pair{KeyIndex: keys.Index("building"), Value: String("Large Warehouse"), MinZoom: 14})
	got := ps.Get(idx)
	if got.MinZoom != 14 || !got.Value.Equal(String("Large Warehouse")) {
		t.Errorf("Get(%d) = %+v, want minzoom 14 / \"Large Warehouse\"", idx, got)
	}
}
