// Package tiledata indexes finalized OutputObjects by base-zoom tile
// coverage and reconstructs per-tile geometry on demand.
package tiledata

import (
	"sort"
	"sync"

	"github.com/paulmach/orb"

	"github.com/wegman-software/tilemaker-go/internal/clipcache"
	"github.com/wegman-software/tilemaker-go/internal/flex"
	"github.com/wegman-software/tilemaker-go/internal/osmstore"
)

// clusterZoom is the zoom at which OutputObjects are bucketed ("z6 cell" in
// spec.md §4.8), independent of the base render zoom.
const (
	clusterZoom      = 6
	clusterZoomWidth = 1 << clusterZoom
	clusterZoomArea  = clusterZoomWidth * clusterZoomWidth

	// largeObjectTileThreshold: polygons whose base-zoom tile coverage is at
	// least this many tiles go into the R-tree instead of every covered
	// tile's small index (spec.md §4.8).
	largeObjectTileThreshold = 16
)

type smallEntry struct {
	dx, dy uint8
	out    flex.OutputObject
}

type smallBucket struct {
	mu      sync.Mutex
	entries []smallEntry
}

// TileDataSource is the sharded object index + geometry store that sits
// between the script bridge (internal/flex) and per-tile rendering
// (ground: original_source/src/tile_data.cpp, original_source/src/osm_mem_tiles.cpp;
// the z6-cell bucketing is cross-checked against the zoom-keyed tile map in
// other_examples/pace-tilemakergo__tilemaker.go).
type TileDataSource struct {
	baseZoom  uint8
	includeID bool
	z6Divisor uint32

	objects       []*smallBucket
	objectsWithID []*smallBucket

	rtree       *RTree
	rtreeWithID *RTree

	clip *clipcache.Cache

	geomMu sync.RWMutex
	geom   map[osmstore.ObjectID]orb.Geometry

	built bool
}

// New creates a TileDataSource for the given base zoom. threads sizes the
// clip cache's shard count (4×threads); the small-index buckets are one per
// z6 cell, each with its own lock, independent of threads.
func New(baseZoom uint8, includeID bool, threads int) *TileDataSource {
	divisor := uint32(1)
	if baseZoom > clusterZoom {
		divisor = 1 << (baseZoom - clusterZoom)
	}
	t := &TileDataSource{
		baseZoom:      baseZoom,
		includeID:     includeID,
		z6Divisor:     divisor,
		objects:       newBuckets(clusterZoomArea),
		objectsWithID: newBuckets(clusterZoomArea),
		rtree:         NewRTree(),
		rtreeWithID:   NewRTree(),
		clip:          clipcache.New(baseZoom, maxInt(1, threads*4), 5000),
		geom:          make(map[osmstore.ObjectID]orb.Geometry),
	}
	return t
}

func newBuckets(n int) []*smallBucket {
	b := make([]*smallBucket, n)
	for i := range b {
		b[i] = &smallBucket{}
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Emit implements flex.Emitter: it stores geom for later on-demand
// reconstruction and rasterizes its base-zoom tile coverage for every
// output sharing it.
func (t *TileDataSource) Emit(geom orb.Geometry, outputs []flex.OutputObject) {
	if len(outputs) == 0 {
		return
	}
	id := outputs[0].ObjectID
	t.storeGeometry(id, geom)
	t.addGeometryToIndex(geom, outputs, id)
}

func (t *TileDataSource) storeGeometry(id osmstore.ObjectID, geom orb.Geometry) {
	t.geomMu.Lock()
	t.geom[id] = geom
	t.geomMu.Unlock()
}

func (t *TileDataSource) geometry(id osmstore.ObjectID) (orb.Geometry, bool) {
	t.geomMu.RLock()
	defer t.geomMu.RUnlock()
	g, ok := t.geom[id]
	return g, ok
}

func (t *TileDataSource) addGeometryToIndex(geom orb.Geometry, outputs []flex.OutputObject, id osmstore.ObjectID) {
	switch g := geom.(type) {
	case orb.Point:
		tile := tileAt(g, t.baseZoom)
		for _, out := range outputs {
			t.addObjectToSmallIndex(tile, out, id)
		}
	case orb.LineString:
		set := rasterizeLine(g, t.baseZoom)
		t.addSetToSmallIndex(set, outputs, id)
	case orb.MultiLineString:
		set := tileSet{}
		for _, ls := range g {
			for tile := range rasterizeLine(ls, t.baseZoom) {
				set.add(tile)
			}
		}
		t.addSetToSmallIndex(set, outputs, id)
	case orb.Polygon:
		t.addPolygonToIndex(orb.MultiPolygon{g}, outputs, id)
	case orb.MultiPolygon:
		t.addPolygonToIndex(g, outputs, id)
	}
}

func (t *TileDataSource) addSetToSmallIndex(set tileSet, outputs []flex.OutputObject, id osmstore.ObjectID) {
	for tile := range set {
		for _, out := range outputs {
			t.addObjectToSmallIndex(tile, out, id)
		}
	}
}

func (t *TileDataSource) addPolygonToIndex(mp orb.MultiPolygon, outputs []flex.OutputObject, id osmstore.ObjectID) {
	set := tileSet{}
	for _, poly := range mp {
		if len(poly) == 0 {
			continue
		}
		outline := rasterizeLine(orb.LineString(poly[0]), t.baseZoom)
		fillCoveredTiles(outline)
		for tile := range outline {
			set.add(tile)
		}
	}
	if len(set) == 0 {
		return
	}
	if len(set) >= largeObjectTileThreshold {
		minX, minY, maxX, maxY := set.bounds()
		bound := orb.Bound{
			Min: orb.Point{float64(minX), float64(minY)},
			Max: orb.Point{float64(maxX), float64(maxY)},
		}
		tree := t.rtree
		if t.includeID && id.OSMID() != 0 {
			tree = t.rtreeWithID
		}
		for _, out := range outputs {
			tree.Insert(bound, out)
		}
		return
	}
	t.addSetToSmallIndex(set, outputs, id)
}

func (t *TileDataSource) addObjectToSmallIndex(tile TileCoord, out flex.OutputObject, id osmstore.ObjectID) {
	z6x := tile.X / t.z6Divisor
	z6y := tile.Y / t.z6Divisor
	if z6x >= clusterZoomWidth || z6y >= clusterZoomWidth {
		return
	}
	idx := int(z6x)*clusterZoomWidth + int(z6y)

	buckets := t.objects
	if t.includeID && id.OSMID() != 0 {
		buckets = t.objectsWithID
	}
	b := buckets[idx]
	b.mu.Lock()
	b.entries = append(b.entries, smallEntry{
		dx:  uint8(tile.X - z6x*t.z6Divisor),
		dy:  uint8(tile.Y - z6y*t.z6Divisor),
		out: out,
	})
	b.mu.Unlock()
}

// Finalize bulk-loads the R-trees. Must be called once after every Emit
// call and before any tile-rendering reads.
func (t *TileDataSource) Finalize() {
	if t.built {
		return
	}
	t.built = true
	t.rtree.Build()
	t.rtreeWithID.Build()
}

// CollectTilesWithObjectsAtZoom enumerates every tile with at least one
// object at zoom (≤ baseZoom), across both small buckets and the R-trees.
func (t *TileDataSource) CollectTilesWithObjectsAtZoom(zoom uint8) []TileCoord {
	seen := map[TileCoord]struct{}{}
	t.collectSmallTiles(t.objects, zoom, seen)
	t.collectSmallTiles(t.objectsWithID, zoom, seen)
	t.collectLargeTiles(t.rtree, zoom, seen)
	t.collectLargeTiles(t.rtreeWithID, zoom, seen)

	out := make([]TileCoord, 0, len(seen))
	for tile := range seen {
		out = append(out, tile)
	}
	return out
}

func (t *TileDataSource) collectSmallTiles(buckets []*smallBucket, zoom uint8, seen map[TileCoord]struct{}) {
	for idx, b := range buckets {
		z6x := uint32(idx / clusterZoomWidth)
		z6y := uint32(idx % clusterZoomWidth)
		b.mu.Lock()
		for _, e := range b.entries {
			full := TileCoord{X: z6x*t.z6Divisor + uint32(e.dx), Y: z6y*t.z6Divisor + uint32(e.dy)}
			seen[rescaleTile(full, t.baseZoom, zoom)] = struct{}{}
		}
		b.mu.Unlock()
	}
}

func (t *TileDataSource) collectLargeTiles(tree *RTree, zoom uint8, seen map[TileCoord]struct{}) {
	if tree.root == nil {
		return
	}
	scale := uint32(1) << (t.baseZoom - zoom)
	minX, minY, maxX, maxY := boundsToTileRange(tree.root.bound)
	for x := minX / scale; x <= maxX/scale; x++ {
		for y := minY / scale; y <= maxY/scale; y++ {
			seen[TileCoord{X: x, Y: y}] = struct{}{}
		}
	}
}

func boundsToTileRange(b orb.Bound) (minX, minY, maxX, maxY uint32) {
	return uint32(b.Min.X()), uint32(b.Min.Y()), uint32(b.Max.X()), uint32(b.Max.Y())
}

// CollectObjectsForTile gathers, sorts and dedups every object covering
// (zoom, tile): small-index entries whose rescaled tile matches, plus
// R-tree entries whose bound intersects the tile's base-zoom range. The
// sort key and adjacent-duplicate merge match spec.md §4.8's per-tile
// ordering exactly: (layer, zOrder respecting per-layer sort direction,
// geomType, attributeSet, objectID).
func (t *TileDataSource) CollectObjectsForTile(zoom uint8, tile TileCoord, reverseZOrder map[string]bool) []flex.OutputObject {
	var out []flex.OutputObject
	out = append(out, t.collectSmallForTile(t.objects, zoom, tile)...)
	out = append(out, t.collectSmallForTile(t.objectsWithID, zoom, tile)...)
	out = append(out, t.collectLargeForTile(t.rtree, zoom, tile)...)
	out = append(out, t.collectLargeForTile(t.rtreeWithID, zoom, tile)...)

	sort.SliceStable(out, func(i, j int) bool {
		return lessOutput(out[i], out[j], reverseZOrder)
	})
	return dedupAdjacent(out)
}

func (t *TileDataSource) collectSmallForTile(buckets []*smallBucket, zoom uint8, dst TileCoord) []flex.OutputObject {
	var out []flex.OutputObject
	if zoom >= clusterZoom {
		shift := zoom - clusterZoom
		z6x, z6y := dst.X>>shift, dst.Y>>shift
		if z6x >= clusterZoomWidth || z6y >= clusterZoomWidth {
			return nil
		}
		idx := int(z6x)*clusterZoomWidth + int(z6y)
		return t.collectFromBucket(buckets[idx], z6x, z6y, zoom, dst)
	}
	for idx, b := range buckets {
		z6x := uint32(idx / clusterZoomWidth)
		z6y := uint32(idx % clusterZoomWidth)
		out = append(out, t.collectFromBucket(b, z6x, z6y, zoom, dst)...)
	}
	return out
}

func (t *TileDataSource) collectFromBucket(b *smallBucket, z6x, z6y uint32, zoom uint8, dst TileCoord) []flex.OutputObject {
	var out []flex.OutputObject
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range b.entries {
		if e.out.MinZoom > zoom {
			continue
		}
		full := TileCoord{X: z6x*t.z6Divisor + uint32(e.dx), Y: z6y*t.z6Divisor + uint32(e.dy)}
		if rescaleTile(full, t.baseZoom, zoom) == dst {
			out = append(out, e.out)
		}
	}
	return out
}

func (t *TileDataSource) collectLargeForTile(tree *RTree, zoom uint8, dst TileCoord) []flex.OutputObject {
	scale := uint32(1) << (t.baseZoom - zoom)
	bound := orb.Bound{
		Min: orb.Point{float64(dst.X * scale), float64(dst.Y * scale)},
		Max: orb.Point{float64((dst.X+1)*scale - 1), float64((dst.Y+1)*scale - 1)},
	}
	var out []flex.OutputObject
	for _, oo := range tree.Search(bound) {
		if oo.MinZoom <= zoom {
			out = append(out, oo)
		}
	}
	return out
}

func lessOutput(a, b flex.OutputObject, reverseZOrder map[string]bool) bool {
	if a.Layer != b.Layer {
		return a.Layer < b.Layer
	}
	if a.ZOrder != b.ZOrder {
		if reverseZOrder[a.Layer] {
			return a.ZOrder > b.ZOrder
		}
		return a.ZOrder < b.ZOrder
	}
	if a.GeomType != b.GeomType {
		return a.GeomType < b.GeomType
	}
	if a.AttributeSet != b.AttributeSet {
		return a.AttributeSet < b.AttributeSet
	}
	return a.ObjectID < b.ObjectID
}

func dedupAdjacent(out []flex.OutputObject) []flex.OutputObject {
	if len(out) < 2 {
		return out
	}
	n := 1
	for i := 1; i < len(out); i++ {
		if out[i] == out[n-1] {
			continue
		}
		out[n] = out[i]
		n++
	}
	return out[:n]
}

// BuildWayGeometry reconstructs and clips the geometry stored for id to
// tile's bound at zoom, consulting/populating the clip cache for polygons.
func (t *TileDataSource) BuildWayGeometry(id osmstore.ObjectID, zoom uint8, tile TileCoord) orb.Geometry {
	return t.buildWayGeometry(id, zoom, tile)
}
