package tiledata

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"

	"github.com/wegman-software/tilemaker-go/internal/osmstore"
)

// tileSet is a plain set of tile coordinates at the data source's base
// zoom, built while rasterizing one geometry's coverage.
type tileSet map[TileCoord]struct{}

func (s tileSet) add(t TileCoord) { s[t] = struct{}{} }

func (s tileSet) bounds() (minX, minY, maxX, maxY uint32) {
	minX, minY = ^uint32(0), ^uint32(0)
	for t := range s {
		if t.X < minX {
			minX = t.X
		}
		if t.Y < minY {
			minY = t.Y
		}
		if t.X > maxX {
			maxX = t.X
		}
		if t.Y > maxY {
			maxY = t.Y
		}
	}
	return
}

// rasterizeLine walks the grid cells along each segment at zoom with a
// rounding DDA between the endpoints' tiles (lineTiles: max(|dx|,|dy|)
// steps, one tile per step). On a diagonal step only one tile is added, so
// a tile the segment crosses or grazes beside that step is not included
// (ground: the tile-coverage role of
// original_source/src/tile_data.cpp's insertIntermediateTiles, re-expressed
// as plain integer-grid rasterization since no boost::geometry equivalent
// exists in the corpus).
func rasterizeLine(ls orb.LineString, zoom uint8) tileSet {
	out := tileSet{}
	if len(ls) == 0 {
		return out
	}
	prev := tileAt(ls[0], zoom)
	out.add(prev)
	for i := 1; i < len(ls); i++ {
		cur := tileAt(ls[i], zoom)
		for _, t := range lineTiles(prev, cur) {
			out.add(t)
		}
		prev = cur
	}
	return out
}

func lineTiles(a, b TileCoord) []TileCoord {
	x0, y0 := int64(a.X), int64(a.Y)
	x1, y1 := int64(b.X), int64(b.Y)
	dx := absInt64(x1 - x0)
	dy := absInt64(y1 - y0)
	steps := dx
	if dy > steps {
		steps = dy
	}
	if steps == 0 {
		return []TileCoord{a}
	}
	out := make([]TileCoord, 0, steps+1)
	for i := int64(0); i <= steps; i++ {
		t := float64(i) / float64(steps)
		x := x0 + int64(float64(x1-x0)*t+0.5*sign(x1-x0))
		y := y0 + int64(float64(y1-y0)*t+0.5*sign(y1-y0))
		out = append(out, TileCoord{X: uint32(x), Y: uint32(y)})
	}
	return out
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int64) float64 {
	if v < 0 {
		return -1
	}
	if v > 0 {
		return 1
	}
	return 0
}

// fillCoveredTiles flood-fills the interior of a rasterized ring outline
// using an even-odd horizontal scanline: within each outline row, the tiles
// between consecutive pairs of outline columns are interior and get added.
func fillCoveredTiles(s tileSet) {
	byRow := map[uint32][]uint32{}
	for t := range s {
		byRow[t.Y] = append(byRow[t.Y], t.X)
	}
	for y, xs := range byRow {
		sortUint32(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			for x := xs[i]; x <= xs[i+1]; x++ {
				s.add(TileCoord{X: x, Y: y})
			}
		}
	}
}

func sortUint32(xs []uint32) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j-1] > xs[j]; j-- {
			xs[j-1], xs[j] = xs[j], xs[j-1]
		}
	}
}

// buildWayGeometry clips a previously-stored geometry to a tile's bound.
// For polygons it first probes the clip cache for an ancestor tile's clip
// and clips that instead of the full, unclipped geometry; the result (if
// not already at base zoom) is written back into the cache.
func (t *TileDataSource) buildWayGeometry(id osmstore.ObjectID, zoom uint8, tile TileCoord) orb.Geometry {
	geom, ok := t.geometry(id)
	if !ok {
		return nil
	}
	bound := tileBound(zoom, tile)

	var input orb.Geometry
	switch v := geom.(type) {
	case orb.MultiPolygon:
		input = v
	case orb.Polygon:
		input = orb.MultiPolygon{v}
	default:
		return clip.Geometry(bound, geom)
	}

	if cached, _, ok := t.clip.Get(zoom, tile.X, tile.Y, id); ok {
		input = cached
	}
	out := clipPolygon(input, bound)
	if zoom < t.baseZoom {
		t.clip.Add(zoom, tile.X, tile.Y, id, out)
	}
	return out
}

func clipPolygon(g orb.Geometry, bound orb.Bound) orb.Geometry {
	clipped := clip.Geometry(bound, g)
	return correctClipped(clipped)
}

// correctClipped repairs a freshly clipped polygon the same way
// internal/flex corrects a freshly built one: drop degenerate spikes, then
// make sure every ring is closed. Kept separate from flex's correctGeometry
// so this package doesn't need to import flex's internals for it.
func correctClipped(g orb.Geometry) orb.Geometry {
	switch v := g.(type) {
	case orb.Polygon:
		return closeRingsTile(removeSpikesFromPolygon(v))
	case orb.MultiPolygon:
		out := make(orb.MultiPolygon, len(v))
		for i, poly := range v {
			out[i] = closeRingsTile(removeSpikesFromPolygon(poly))
		}
		return out
	default:
		return g
	}
}

func removeSpikesFromPolygon(p orb.Polygon) orb.Polygon {
	out := make(orb.Polygon, 0, len(p))
	for _, ring := range p {
		r := removeSpikesFromRing(ring)
		if len(r) >= 4 {
			out = append(out, r)
		}
	}
	return out
}

func removeSpikesFromRing(ring orb.Ring) orb.Ring {
	if len(ring) < 3 {
		return ring
	}
	out := make(orb.Ring, 0, len(ring))
	for _, p := range ring {
		if len(out) > 0 && out[len(out)-1] == p {
			continue
		}
		if len(out) >= 2 && out[len(out)-2] == p {
			out = out[:len(out)-1]
			continue
		}
		out = append(out, p)
	}
	return out
}

func closeRingsTile(p orb.Polygon) orb.Polygon {
	for i, ring := range p {
		if len(ring) > 0 && ring[0] != ring[len(ring)-1] {
			p[i] = append(ring, ring[0])
		}
	}
	return p
}
