// Package osmstore holds the ordered entity stores (nodes, ways, relations)
// and the auxiliary side-tables populated during the relation-scan pass.
package osmstore

import "fmt"

// NodeID, WayID and RelationID are raw OSM identifiers. OSM guarantees these
// fit in 42 bits; we still carry them as uint64 to match the PBF wire type.
type NodeID uint64
type WayID uint64
type RelationID uint64

// maxOSMID is the largest id the PBF format is allowed to produce (2^42).
const maxOSMID = uint64(1) << 42

// ObjectID is TileDataSource's internal discriminated identifier. Values
// below objectIDThreshold address interned geometry/attribute stores
// directly; values at or above it carry a 2-bit type tag plus the original
// OSM id in the low bits. The layout is only required to be stable within a
// single process.
type ObjectID uint64

const (
	objectIDThreshold = uint64(1) << 44

	objectTypeShift = 42
	objectTypeMask  = uint64(0x3) << objectTypeShift
	objectIDMask    = maxOSMID - 1
)

// ObjectKind discriminates the type-tag bits (objectTypeShift, bits 42-43)
// of an ObjectID at or above the threshold.
type ObjectKind uint8

const (
	ObjectKindNode ObjectKind = iota
	ObjectKindWay
	ObjectKindRelation
)

// NewNodeObjectID, NewWayObjectID and NewRelationObjectID construct a tagged
// ObjectID for the given OSM id.
func NewNodeObjectID(id NodeID) ObjectID     { return tagObjectID(ObjectKindNode, uint64(id)) }
func NewWayObjectID(id WayID) ObjectID       { return tagObjectID(ObjectKindWay, uint64(id)) }
func NewRelationObjectID(id RelationID) ObjectID {
	return tagObjectID(ObjectKindRelation, uint64(id))
}

func tagObjectID(kind ObjectKind, id uint64) ObjectID {
	return ObjectID(objectIDThreshold | (uint64(kind) << objectTypeShift) | (id & objectIDMask))
}

// IsInterned reports whether id refers to an interned geometry/attribute
// store slot rather than carrying a tagged OSM id.
func (id ObjectID) IsInterned() bool {
	return uint64(id) < objectIDThreshold
}

// Kind returns the tagged entity kind. Only meaningful when !IsInterned().
func (id ObjectID) Kind() ObjectKind {
	return ObjectKind((uint64(id) & objectTypeMask) >> objectTypeShift)
}

// OSMID extracts the original OSM id. Only meaningful when !IsInterned().
func (id ObjectID) OSMID() uint64 {
	return uint64(id) & objectIDMask
}

func (k ObjectKind) String() string {
	switch k {
	case ObjectKindNode:
		return "node"
	case ObjectKindWay:
		return "way"
	case ObjectKindRelation:
		return "relation"
	default:
		return fmt.Sprintf("kind(%d)", k)
	}
}
