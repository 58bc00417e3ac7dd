package tiledata

import (
	"github.com/paulmach/orb"

	"github.com/wegman-software/tilemaker-go/internal/osmstore"
)

type renderedFeature struct {
	id   osmstore.ObjectID
	geom orb.Geometry
}

// RenderContext answers a script's cross-layer queries (Intersects,
// FindCovering, ...) against the features already built for the tile
// currently being rendered. Its methods match flex.TileQuerier; nothing in
// this module constructs one or passes it to OsmProcessing.SetTileQuerier.
//
// Intersection/coverage are approximated by bounding-box overlap: the
// corpus offers no general polygon/polygon or polygon/linestring predicate
// outside orb/clip's rectangle clipping, so an exact geometric test would
// mean hand-rolling one. Bounding-box overlap is the same conservative
// approximation tile renderers commonly use for "does this feature
// plausibly interact with that layer" checks ahead of a precise client-side
// test.
type RenderContext struct {
	byLayer map[string][]renderedFeature
}

// NewRenderContext builds an empty context; call Add for each feature as
// the tile's layers are produced, in the same order a script would see
// them (layers rendered earlier in the style are queryable by ones that
// follow).
func NewRenderContext() *RenderContext {
	return &RenderContext{byLayer: make(map[string][]renderedFeature)}
}

// Add registers a feature already placed into layer.
func (r *RenderContext) Add(layer string, id osmstore.ObjectID, geom orb.Geometry) {
	r.byLayer[layer] = append(r.byLayer[layer], renderedFeature{id: id, geom: geom})
}

func (r *RenderContext) Intersects(layer string, g orb.Geometry) bool {
	b := g.Bound()
	for _, f := range r.byLayer[layer] {
		if f.geom.Bound().Intersects(b) {
			return true
		}
	}
	return false
}

func (r *RenderContext) FindIntersecting(layer string, g orb.Geometry) []osmstore.ObjectID {
	b := g.Bound()
	var out []osmstore.ObjectID
	for _, f := range r.byLayer[layer] {
		if f.geom.Bound().Intersects(b) {
			out = append(out, f.id)
		}
	}
	return out
}

func (r *RenderContext) CoveredBy(layer string, g orb.Geometry) bool {
	b := g.Bound()
	for _, f := range r.byLayer[layer] {
		if f.geom.Bound().Contains(b.Min) && f.geom.Bound().Contains(b.Max) {
			return true
		}
	}
	return false
}

func (r *RenderContext) FindCovering(layer string, g orb.Geometry) []osmstore.ObjectID {
	b := g.Bound()
	var out []osmstore.ObjectID
	for _, f := range r.byLayer[layer] {
		if f.geom.Bound().Contains(b.Min) && f.geom.Bound().Contains(b.Max) {
			out = append(out, f.id)
		}
	}
	return out
}

func (r *RenderContext) AreaIntersecting(layer string, g orb.Geometry) float64 {
	b := g.Bound()
	var total float64
	for _, f := range r.byLayer[layer] {
		if ib, ok := intersectBound(f.geom.Bound(), b); ok {
			total += (ib.Max.X() - ib.Min.X()) * (ib.Max.Y() - ib.Min.Y())
		}
	}
	return total
}

func intersectBound(a, b orb.Bound) (orb.Bound, bool) {
	if !a.Intersects(b) {
		return orb.Bound{}, false
	}
	min := orb.Point{maxF(a.Min.X(), b.Min.X()), maxF(a.Min.Y(), b.Min.Y())}
	max := orb.Point{minF(a.Max.X(), b.Max.X()), minF(a.Max.Y(), b.Max.Y())}
	return orb.Bound{Min: min, Max: max}, true
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
