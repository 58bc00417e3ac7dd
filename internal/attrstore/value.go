// Package attrstore implements the process-wide attribute interning engine:
// a key dictionary, a sharded pair dictionary, and a set dictionary that
// together let every tile share the storage for identical attribute sets
// rather than re-encoding them per object.
package attrstore

import "fmt"

// ValueKind discriminates the variant held by a Value. A Value always has
// exactly one of its three fields meaningful, matching invariant 2 in
// spec.md §3 ("the value has exactly one of the three variants set").
type ValueKind uint8

const (
	KindBool ValueKind = iota
	KindFloat
	KindString
)

// Value is a tagged union over the three attribute value variants the
// vector tile spec allows. It plays the role the original C++ codebase
// gives to a generated protobuf oneof (vector_tile::Tile_Value), but
// without requiring us to depend on a generated message type for a value
// that never itself crosses the wire until final MVT encoding.
type Value struct {
	Kind ValueKind
	B    bool
	F    float64
	S    string
}

func Bool(b bool) Value           { return Value{Kind: KindBool, B: b} }
func Float(f float64) Value       { return Value{Kind: KindFloat, F: f} }
func String(s string) Value       { return Value{Kind: KindString, S: s} }

// Equal reports variant-aware equality, per testable property 2 in
// spec.md §8: equality must compare within the same variant and ignore the
// other two fields entirely.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindBool:
		return v.B == o.B
	case KindFloat:
		return v.F == o.F
	case KindString:
		return v.S == o.S
	default:
		return false
	}
}

// less orders two values by type tag first, then by value; the type tag
// orders bool < float < string, matching the original's
// AttributePairStore::compare. It does not look at minzoom or key index.
func (v Value) less(o Value) bool {
	if v.Kind != o.Kind {
		return v.Kind < o.Kind
	}
	switch v.Kind {
	case KindBool:
		return !v.B && o.B
	case KindFloat:
		return v.F < o.F
	case KindString:
		return v.S < o.S
	default:
		return false
	}
}

func (v Value) String() string {
	switch v.Kind {
	case KindBool:
		return fmt.Sprintf("[bool]%v", v.B)
	case KindFloat:
		return fmt.Sprintf("[float]%v", v.F)
	case KindString:
		return fmt.Sprintf("[str]%s", v.S)
	default:
		return "[invalid]"
	}
}
