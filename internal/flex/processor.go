// Package flex implements the script bridge between decoded OSM entities
// and a user-supplied Lua tagging script: one OsmProcessing per worker
// goroutine, paired with a Runtime that owns that worker's *lua.LState.
package flex

import (
	"github.com/paulmach/orb"

	"github.com/wegman-software/tilemaker-go/internal/attrstore"
	"github.com/wegman-software/tilemaker-go/internal/osmstore"
	"github.com/wegman-software/tilemaker-go/internal/tagmap"
)

type entityKind uint8

const (
	entityNode entityKind = iota
	entityWay
	entityRelation
)

// TileQuerier answers the cross-layer geometry questions a script can ask
// about objects already emitted into the tile currently being built
// (Intersects, FindCovering, and friends). It is only meaningful while a
// tile is actively being rendered; outside that context OsmProcessing has
// no querier attached and these calls report the empty/false answer.
type TileQuerier interface {
	Intersects(layer string, g orb.Geometry) bool
	FindIntersecting(layer string, g orb.Geometry) []osmstore.ObjectID
	CoveredBy(layer string, g orb.Geometry) bool
	FindCovering(layer string, g orb.Geometry) []osmstore.ObjectID
	AreaIntersecting(layer string, g orb.Geometry) float64
}

type pendingOutput struct {
	layer    string
	geomType GeomType
	minZoom  uint8
	zOrder   int32
	builder  *attrstore.Builder
}

// OsmProcessing binds one OSM entity at a time to a script's callback
// surface. One instance is created per worker goroutine (spec.md §4.7) so
// that attribute builders and geometry caches never need locking.
type OsmProcessing struct {
	attrs *attrstore.Engine
	scan  *osmstore.RelationScanStore

	emitter Emitter
	querier TileQuerier

	kind entityKind
	id   uint64
	tags tagmap.TagMap

	loc       osmstore.LatpLon
	wayCoords []osmstore.LatpLon
	wayClosed bool

	relOuter, relInner           [][]osmstore.LatpLon
	isMultiPolygon, isInnerOuter bool

	geomCache map[GeomType]orb.Geometry
	accepted  bool

	outputs []*pendingOutput
	current *pendingOutput

	relList      []osmstore.RelationID
	relIdx       int
	currentRelID osmstore.RelationID
}

// NewOsmProcessing builds a worker-local processor bound to the
// process-wide attribute engine and relation-scan index, emitting
// finalized outputs to emitter.
func NewOsmProcessing(attrs *attrstore.Engine, scan *osmstore.RelationScanStore, emitter Emitter) *OsmProcessing {
	return &OsmProcessing{attrs: attrs, scan: scan, emitter: emitter}
}

// SetTileQuerier attaches (or detaches, with nil) the cross-layer query
// surface for the tile currently being built. Nothing in this module calls
// it, so no querier is attached during the PbfDriver's ingest phases and
// the cross-layer calls report the empty/false answer there.
func (p *OsmProcessing) SetTileQuerier(q TileQuerier) { p.querier = q }

func (p *OsmProcessing) reset(kind entityKind, id uint64) {
	p.kind = kind
	p.id = id
	p.wayCoords = nil
	p.wayClosed = false
	p.relOuter = nil
	p.relInner = nil
	p.isMultiPolygon = false
	p.isInnerOuter = false
	p.geomCache = make(map[GeomType]orb.Geometry, 2)
	p.accepted = false
	p.outputs = nil
	p.current = nil
	p.relList = nil
	p.relIdx = 0
	p.currentRelID = 0
}

// SetNode binds a node entity, ready for a node_function callback.
func (p *OsmProcessing) SetNode(id osmstore.NodeID, loc osmstore.LatpLon, tags tagmap.TagMap) {
	p.reset(entityNode, uint64(id))
	p.loc = loc
	p.tags = tags
}

// SetWay binds a way entity, ready for a way_function callback. If this
// processor has a RelationScanStore, the ways-containing-relations list is
// populated eagerly so NextRelation can iterate it.
func (p *OsmProcessing) SetWay(id osmstore.WayID, coords []osmstore.LatpLon, closed bool, tags tagmap.TagMap) {
	p.reset(entityWay, uint64(id))
	p.wayCoords = coords
	p.wayClosed = closed
	p.tags = tags
	if p.scan != nil {
		p.relList = p.scan.RelationsForWay(id)
	}
}

// SetRelation binds a relation entity, ready for a relation_function
// callback.
func (p *OsmProcessing) SetRelation(id osmstore.RelationID, outer, inner [][]osmstore.LatpLon, tags tagmap.TagMap, isMultiPolygon, isInnerOuter bool) {
	p.reset(entityRelation, uint64(id))
	p.relOuter = outer
	p.relInner = inner
	p.tags = tags
	p.isMultiPolygon = isMultiPolygon
	p.isInnerOuter = isInnerOuter
}

// BeginScanRelation binds a relation for the relation_scan_function
// callback, ahead of the Ways phase. Accepted reports whether the script
// called Accept() during that callback.
func (p *OsmProcessing) BeginScanRelation(id osmstore.RelationID, tags tagmap.TagMap) {
	p.reset(entityRelation, uint64(id))
	p.tags = tags
}

// Accepted reports whether the current (scan-phase) relation was marked
// with Accept().
func (p *OsmProcessing) Accepted() bool { return p.accepted }

// Finalize materializes every pending output's attribute set and forwards
// it to the emitter, returning the finalized outputs (useful for tests
// that don't wire a real Emitter). Called once, after the script callback
// for the current entity has returned.
func (p *OsmProcessing) Finalize() []OutputObject {
	if len(p.outputs) == 0 {
		return nil
	}
	objID := p.objectID()

	// Group by geomType so every output sharing a geometry kind is emitted
	// alongside the single geometry value built for that kind, instead of
	// re-deriving or re-clipping it once per Layer() call.
	order := make([]GeomType, 0, 3)
	groups := make(map[GeomType][]OutputObject)
	for _, out := range p.outputs {
		oo := OutputObject{
			ObjectID:     objID,
			Layer:        out.layer,
			GeomType:     out.geomType,
			AttributeSet: out.builder.Finalize(),
			MinZoom:      out.minZoom,
			ZOrder:       out.zOrder,
		}
		if _, ok := groups[out.geomType]; !ok {
			order = append(order, out.geomType)
		}
		groups[out.geomType] = append(groups[out.geomType], oo)
	}

	results := make([]OutputObject, 0, len(p.outputs))
	for _, gt := range order {
		group := groups[gt]
		results = append(results, group...)
		if p.emitter != nil {
			p.emitter.Emit(p.geometryFor(gt), group)
		}
	}
	return results
}

func (p *OsmProcessing) objectID() osmstore.ObjectID {
	switch p.kind {
	case entityNode:
		return osmstore.NewNodeObjectID(osmstore.NodeID(p.id))
	case entityWay:
		return osmstore.NewWayObjectID(osmstore.WayID(p.id))
	case entityRelation:
		return osmstore.NewRelationObjectID(osmstore.RelationID(p.id))
	default:
		return 0
	}
}

// ---- Script callback surface (spec.md §4.7) ----

func (p *OsmProcessing) Id() uint64 { return p.id }

func (p *OsmProcessing) Holds(key string) bool { return p.tags.Has(key) }

func (p *OsmProcessing) Find(key string) string {
	v, _ := p.tags.Find(key)
	return v
}

func (p *OsmProcessing) IsClosed() bool {
	switch p.kind {
	case entityWay:
		return p.wayClosed
	case entityRelation:
		return true
	default:
		return false
	}
}

func (p *OsmProcessing) naturalGeomType(isArea bool) GeomType {
	switch p.kind {
	case entityNode:
		return GeomPoint
	case entityWay:
		if isArea {
			return GeomPolygon
		}
		return GeomLinestring
	case entityRelation:
		if p.isMultiPolygon || isArea {
			return GeomPolygon
		}
		return GeomLinestring
	default:
		return GeomPoint
	}
}

// geometryFor lazily builds (and caches) the orb geometry for gt, so that
// Area/Length/Centroid and consecutive same-type Layer() calls within one
// entity's callback never reconstruct or re-correct the same geometry
// twice (spec.md §4.7's geometryId-reuse edge case, realized here as a
// per-entity memoized build rather than a separate geometry-store id,
// since our ObjectID already doubles as the shared geometry reference).
func (p *OsmProcessing) geometryFor(gt GeomType) orb.Geometry {
	if g, ok := p.geomCache[gt]; ok {
		return g
	}
	var g orb.Geometry
	switch p.kind {
	case entityNode:
		g = toLonLat(p.loc)
	case entityWay:
		switch gt {
		case GeomPolygon:
			g = correctGeometry(buildPolygonClosure(p.wayCoords))
		case GeomPoint:
			lon, lat := p.Centroid("")
			g = orb.Point{lon, lat}
		default:
			g = lineStringFrom(p.wayCoords)
		}
	case entityRelation:
		switch gt {
		case GeomPolygon:
			g = correctGeometry(multiPolygonFrom(p.relOuter, p.relInner))
		case GeomPoint:
			lon, lat := p.Centroid("")
			g = orb.Point{lon, lat}
		default:
			mls := make(orb.MultiLineString, 0, len(p.relOuter))
			for _, o := range p.relOuter {
				mls = append(mls, lineStringFrom(o))
			}
			g = mls
		}
	}
	p.geomCache[gt] = g
	return g
}

// Area reports the spherical area in square meters. Relation areas are
// summed across member polygons (spec.md §4.7 edge case).
func (p *OsmProcessing) Area() float64 {
	return area(p.geometryFor(GeomPolygon))
}

// Length reports the spherical length in meters.
func (p *OsmProcessing) Length() float64 {
	return length(p.geometryFor(GeomLinestring))
}

// Centroid returns (lon, lat) in degrees. strategy "" selects the default
// area-weighted planar centroid of the geometry's closure; "polylabel"
// selects the pole-of-inaccessibility strategy, run on a way's polygon
// closure (whether or not the way is closed) or on a relation's first
// member polygon. Nodes, and relations with no polygon, use the default.
func (p *OsmProcessing) Centroid(strategy string) (lon, lat float64) {
	if strategy == "polylabel" {
		switch p.kind {
		case entityWay:
			poly := correctGeometry(buildPolygonClosure(p.wayCoords)).(orb.Polygon)
			pt := polelabel(poly, 1e-6)
			return pt.X(), pt.Y()
		case entityRelation:
			mp := p.geometryFor(GeomPolygon).(orb.MultiPolygon)
			if len(mp) > 0 {
				pt := polelabel(mp[0], 1e-6)
				return pt.X(), pt.Y()
			}
		}
	}
	var g orb.Geometry
	switch p.kind {
	case entityNode:
		g = p.geometryFor(GeomPoint)
	default:
		if p.isClosedEnoughForArea() {
			g = p.geometryFor(GeomPolygon)
		} else {
			g = p.geometryFor(GeomLinestring)
		}
	}
	pt := centroid(g)
	return pt.X(), pt.Y()
}

func (p *OsmProcessing) isClosedEnoughForArea() bool {
	if p.kind == entityRelation {
		return true
	}
	return p.wayClosed
}

// Layer starts a new output object of the entity's natural geometry type
// (or a polygon, if isArea) and makes it current for subsequent
// Attribute/MinZoom/ZOrder calls.
func (p *OsmProcessing) Layer(name string, isArea bool) {
	out := &pendingOutput{layer: name, geomType: p.naturalGeomType(isArea), builder: p.attrs.NewBuilder()}
	p.outputs = append(p.outputs, out)
	p.current = out
}

// LayerAsCentroid starts a new point output object representing this
// entity's centroid; Finalize computes that point here, via Centroid("").
func (p *OsmProcessing) LayerAsCentroid(name string) {
	out := &pendingOutput{layer: name, geomType: GeomPoint, builder: p.attrs.NewBuilder()}
	p.outputs = append(p.outputs, out)
	p.current = out
}

// Attribute adds a string-valued attribute to the current output object.
// Empty string values are silently ignored (spec.md §4.7 edge case).
// Returns errAttributeBeforeLayer if no Layer call has happened yet.
func (p *OsmProcessing) Attribute(key, value string, minzoom uint8) error {
	if p.current == nil {
		return errAttributeBeforeLayer
	}
	p.current.builder.AddString(key, value, minzoom)
	return nil
}

// AttributeNumeric adds a numeric-valued attribute to the current output.
func (p *OsmProcessing) AttributeNumeric(key string, value float64, minzoom uint8) error {
	if p.current == nil {
		return errAttributeBeforeLayer
	}
	p.current.builder.AddFloat(key, value, minzoom)
	return nil
}

// AttributeBoolean adds a boolean-valued attribute to the current output.
func (p *OsmProcessing) AttributeBoolean(key string, value bool, minzoom uint8) error {
	if p.current == nil {
		return errAttributeBeforeLayer
	}
	p.current.builder.AddBool(key, value, minzoom)
	return nil
}

// MinZoom sets the minimum zoom at which the current output is visible.
func (p *OsmProcessing) MinZoom(z uint8) error {
	if p.current == nil {
		return errAttributeBeforeLayer
	}
	p.current.minZoom = z
	return nil
}

// ZOrder sets the draw order of the current output within its layer.
func (p *OsmProcessing) ZOrder(z int32) error {
	if p.current == nil {
		return errAttributeBeforeLayer
	}
	p.current.zOrder = z
	return nil
}

// Accept marks the current (scan-phase) relation as wanted, so the driver
// will register its member ways in the RelationScanStore.
func (p *OsmProcessing) Accept() { p.accepted = true }

// NextRelation advances to the next relation containing the current way,
// returning false once exhausted. FindInRelation then reads tags from
// that relation until the next NextRelation call.
func (p *OsmProcessing) NextRelation() bool {
	if p.relIdx >= len(p.relList) {
		return false
	}
	p.currentRelID = p.relList[p.relIdx]
	p.relIdx++
	return true
}

// RestartRelations resets the NextRelation cursor to the beginning.
func (p *OsmProcessing) RestartRelations() {
	p.relIdx = 0
	p.currentRelID = 0
}

// FindInRelation reads key from the relation NextRelation last advanced
// to, or "" if NextRelation hasn't been called (or returned false).
func (p *OsmProcessing) FindInRelation(key string) string {
	if p.currentRelID == 0 || p.scan == nil {
		return ""
	}
	return p.scan.GetRelationTag(p.currentRelID, key)
}

// Intersects, FindIntersecting, CoveredBy, FindCovering and
// AreaIntersecting query objects already emitted into the tile currently
// being built, via the attached TileQuerier. Outside a tile-render
// context (no querier attached) they report the empty/false answer.
func (p *OsmProcessing) Intersects(layer string) bool {
	if p.querier == nil {
		return false
	}
	return p.querier.Intersects(layer, p.geometryFor(p.naturalGeomType(false)))
}

func (p *OsmProcessing) FindIntersecting(layer string) []osmstore.ObjectID {
	if p.querier == nil {
		return nil
	}
	return p.querier.FindIntersecting(layer, p.geometryFor(p.naturalGeomType(false)))
}

func (p *OsmProcessing) CoveredBy(layer string) bool {
	if p.querier == nil {
		return false
	}
	return p.querier.CoveredBy(layer, p.geometryFor(GeomPolygon))
}

func (p *OsmProcessing) FindCovering(layer string) []osmstore.ObjectID {
	if p.querier == nil {
		return nil
	}
	return p.querier.FindCovering(layer, p.geometryFor(GeomPolygon))
}

func (p *OsmProcessing) AreaIntersecting(layer string) float64 {
	if p.querier == nil {
		return 0
	}
	return p.querier.AreaIntersecting(layer, p.geometryFor(GeomPolygon))
}
