package tilesink

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"

	"github.com/wegman-software/tilemaker-go/internal/attrstore"
	"github.com/wegman-software/tilemaker-go/internal/flex"
	"github.com/wegman-software/tilemaker-go/internal/osmstore"
	"github.com/wegman-software/tilemaker-go/internal/tiledata"
)

// GeometryLookup reconstructs and tile-clips the geometry for one object,
// matching tiledata.TileDataSource.BuildWayGeometry's signature so the
// production TileDataSource satisfies it without an adapter.
type GeometryLookup func(id osmstore.ObjectID, zoom uint8, tile tiledata.TileCoord) orb.Geometry

// TileEncoder turns one tile's finalized OutputObjects into wire-format
// tile bytes. The default implementation targets Mapbox Vector Tiles; a
// caller may substitute a different TileEncoder (e.g. for a GeoJSON tile
// server) without touching the rest of the pipeline.
type TileEncoder interface {
	Encode(zoom uint8, tile tiledata.TileCoord, objects []flex.OutputObject, geom GeometryLookup, attrs *attrstore.Engine) ([]byte, error)
}

// MVTEncoder is the default TileEncoder, a thin adapter over
// paulmach/orb/encoding/mvt (spec.md's "we provide a default adapter ...
// but callers may substitute their own").
type MVTEncoder struct {
	// Gzip compresses the marshaled protobuf, matching the on-disk
	// convention both MBTiles and PMTiles use for stored tiles.
	Gzip bool
}

func NewMVTEncoder(gzip bool) *MVTEncoder {
	return &MVTEncoder{Gzip: gzip}
}

func (e *MVTEncoder) Encode(zoom uint8, tile tiledata.TileCoord, objects []flex.OutputObject, geom GeometryLookup, attrs *attrstore.Engine) ([]byte, error) {
	collections := make(map[string]*geojson.FeatureCollection)

	for _, obj := range objects {
		g := geom(obj.ObjectID, zoom, tile)
		if g == nil {
			continue
		}

		feature := geojson.NewFeature(g)
		feature.ID = uint64(obj.ObjectID)
		feature.Properties = propertiesFor(obj, attrs)

		fc := collections[obj.Layer]
		if fc == nil {
			fc = geojson.NewFeatureCollection()
			collections[obj.Layer] = fc
		}
		fc.Append(feature)
	}

	if len(collections) == 0 {
		return nil, nil
	}

	layers := mvt.NewLayers(collections)
	layers.ProjectToTile(maptile.New(tile.X, tile.Y, maptile.Zoom(zoom)))
	layers.RemoveEmpty(1.0, 1.0)

	if e.Gzip {
		return mvt.MarshalGzipped(layers)
	}
	return mvt.Marshal(layers)
}

func propertiesFor(obj flex.OutputObject, attrs *attrstore.Engine) geojson.Properties {
	props := make(geojson.Properties)
	for _, pairIdx := range attrs.Sets.Get(obj.AttributeSet) {
		pair := attrs.Pairs.Get(pairIdx)
		key := attrs.Keys.Key(pair.KeyIndex)
		switch pair.Value.Kind {
		case attrstore.KindBool:
			props[key] = pair.Value.B
		case attrstore.KindFloat:
			props[key] = pair.Value.F
		case attrstore.KindString:
			props[key] = pair.Value.S
		default:
			continue
		}
	}
	if obj.ZOrder != 0 {
		props["_zorder"] = obj.ZOrder
	}
	return props
}

var _ TileEncoder = (*MVTEncoder)(nil)
