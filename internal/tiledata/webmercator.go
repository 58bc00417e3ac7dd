package tiledata

import (
	"math"

	"github.com/paulmach/orb"
)

// TileCoord is a tile address within one zoom level, XYZ scheme.
type TileCoord struct {
	X, Y uint32
}

// tileAt converts a lon/lat point to its covering tile at zoom, using the
// standard slippy-map projection (the same Web-Mercator family as
// internal/proj's Lat2Latp, just expressed in tile-pixel space instead of
// degree space).
func tileAt(p orb.Point, zoom uint8) TileCoord {
	n := math.Exp2(float64(zoom))
	lon, lat := p.X(), p.Y()
	x := (lon + 180.0) / 360.0 * n
	latRad := lat * math.Pi / 180.0
	y := (1.0 - math.Log(math.Tan(latRad)+1.0/math.Cos(latRad))/math.Pi) / 2.0 * n
	return clampTile(x, y, n)
}

func clampTile(x, y, n float64) TileCoord {
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	max := n - 1
	if x > max {
		x = max
	}
	if y > max {
		y = max
	}
	return TileCoord{X: uint32(x), Y: uint32(y)}
}

// tileBound returns a tile's lon/lat bound at zoom.
func tileBound(zoom uint8, t TileCoord) orb.Bound {
	n := math.Exp2(float64(zoom))
	lonLeft := float64(t.X)/n*360.0 - 180.0
	lonRight := float64(t.X+1)/n*360.0 - 180.0
	latTop := latFromTileY(float64(t.Y), n)
	latBottom := latFromTileY(float64(t.Y+1), n)
	return orb.Bound{
		Min: orb.Point{lonLeft, latBottom},
		Max: orb.Point{lonRight, latTop},
	}
}

func latFromTileY(y, n float64) float64 {
	a := math.Pi * (1 - 2*y/n)
	return math.Atan(math.Sinh(a)) * 180.0 / math.Pi
}

// ancestorTile rescales t from fromZoom down to the coarser toZoom.
func ancestorTile(t TileCoord, fromZoom, toZoom uint8) TileCoord {
	shift := fromZoom - toZoom
	return TileCoord{X: t.X >> shift, Y: t.Y >> shift}
}

// rescaleTile converts t at fromZoom to its covering tile at a different
// (coarser) toZoom; it is the tile-coordinate analogue of ancestorTile, used
// when walking from a base-zoom bucket entry down to a shallower render zoom.
func rescaleTile(t TileCoord, fromZoom, toZoom uint8) TileCoord {
	if toZoom >= fromZoom {
		return t
	}
	return ancestorTile(t, fromZoom, toZoom)
}
