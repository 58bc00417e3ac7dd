package flex

import (
	"github.com/paulmach/orb"

	"github.com/wegman-software/tilemaker-go/internal/attrstore"
	"github.com/wegman-software/tilemaker-go/internal/osmstore"
)

// GeomType discriminates an OutputObject's geometry kind.
type GeomType uint8

const (
	GeomPoint GeomType = iota
	GeomLinestring
	GeomPolygon
)

func (g GeomType) String() string {
	switch g {
	case GeomPoint:
		return "point"
	case GeomLinestring:
		return "linestring"
	case GeomPolygon:
		return "polygon"
	default:
		return "unknown"
	}
}

// OutputObject is the finalized, immutable record produced by a script
// callback's Layer()/LayerAsCentroid() calls once the whole callback has
// returned (spec.md §3's OutputObject entity). ObjectID doubles as the
// "geometryId" from spec.md §4.7: because geometry is always rederived
// from the originating entity rather than stored as a separate blob,
// multiple outputs from the same entity naturally share one geometry
// reference without any extra interning step.
type OutputObject struct {
	ObjectID     osmstore.ObjectID
	Layer        string
	GeomType     GeomType
	AttributeSet attrstore.AttributeSetID
	MinZoom      uint8
	ZOrder       int32
}

// Emitter receives one entity's finalized outputs, grouped by the shared
// geometry they were built from. Outputs sharing a geomType within a single
// script callback share a single geom value (spec.md §3 invariant 5 — the
// geometry is built, and any correction/clipping run, once per group rather
// than once per Layer() call). Implemented by internal/tiledata.TileDataSource
// in production; tests use a simple slice-collecting fake.
type Emitter interface {
	Emit(geom orb.Geometry, outputs []OutputObject)
}
