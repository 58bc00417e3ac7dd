package flex

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"

	"github.com/wegman-software/tilemaker-go/internal/osmstore"
	"github.com/wegman-software/tilemaker-go/internal/proj"
)

// toLonLat un-projects a LatpLon (scaled-integer Web-Mercator latitude +
// raw longitude) back to true WGS84 degrees, since Area/Length use orb/geo's
// spherical routines, which expect un-projected coordinates (spec.md §4.7).
func toLonLat(ll osmstore.LatpLon) orb.Point {
	latp := osmstore.UnscaleCoord(ll.Latp)
	lon := osmstore.UnscaleCoord(ll.Lon)
	return orb.Point{lon, proj.Latp2Lat(latp)}
}

func lineStringFrom(coords []osmstore.LatpLon) orb.LineString {
	ls := make(orb.LineString, len(coords))
	for i, c := range coords {
		ls[i] = toLonLat(c)
	}
	return ls
}

func ringFrom(coords []osmstore.LatpLon) orb.Ring {
	return orb.Ring(lineStringFrom(coords))
}

// buildPolygonClosure closes an open linestring into a single-ring polygon,
// used when a way is treated as an area (e.g. Layer(name, true) on a way
// that the script asserts is an area even though it's technically open, or
// for a classic closed way).
func buildPolygonClosure(coords []osmstore.LatpLon) orb.Polygon {
	ring := ringFrom(coords)
	if len(ring) > 0 && ring[0] != ring[len(ring)-1] {
		ring = append(ring, ring[0])
	}
	return orb.Polygon{ring}
}

func multiPolygonFrom(outer, inner [][]osmstore.LatpLon) orb.MultiPolygon {
	mp := make(orb.MultiPolygon, 0, len(outer))
	for _, o := range outer {
		poly := orb.Polygon{ringFrom(o)}
		for _, in := range inner {
			poly = append(poly, ringFrom(in))
		}
		mp = append(mp, poly)
	}
	return mp
}

// area computes the spherical area (square meters) of a geometry. Relation
// multipolygons are summed over their member polygons rather than computed
// as one spherical multipolygon area, since orb/geo's Area routine is only
// defined per-polygon (spec.md §4.7 edge case).
func area(g orb.Geometry) float64 {
	switch v := g.(type) {
	case orb.Polygon:
		return geo.Area(v)
	case orb.MultiPolygon:
		var total float64
		for _, poly := range v {
			total += geo.Area(poly)
		}
		return total
	default:
		return 0
	}
}

func length(g orb.Geometry) float64 {
	switch v := g.(type) {
	case orb.LineString:
		return geo.Length(v)
	case orb.MultiLineString:
		var total float64
		for _, ls := range v {
			total += geo.Length(ls)
		}
		return total
	default:
		return 0
	}
}

// centroid computes the area-weighted planar centroid of a geometry's
// closure. Planar (rather than spherical) centroid math is an accepted
// approximation at tile scale, matching how the original computes
// centroids over the same latp/lon space it clips in.
func centroid(g orb.Geometry) orb.Point {
	switch v := g.(type) {
	case orb.Point:
		return v
	case orb.LineString:
		poly := orb.Polygon{orb.Ring(v)}
		c, _ := planar.CentroidArea(poly)
		return c
	case orb.Polygon:
		c, _ := planar.CentroidArea(v)
		return c
	case orb.MultiPolygon:
		var sumX, sumY, sumArea float64
		for _, poly := range v {
			c, a := planar.CentroidArea(poly)
			a = math.Abs(a)
			sumX += c.X() * a
			sumY += c.Y() * a
			sumArea += a
		}
		if sumArea == 0 {
			return orb.Point{}
		}
		return orb.Point{sumX / sumArea, sumY / sumArea}
	default:
		return orb.Point{}
	}
}

// correctGeometry repairs a polygon geometry: removes degenerate
// zero-area spikes, then re-closes any ring whose last point differs from
// its first (closeRings); ring orientation is left as it is. It is
// idempotent — running it twice in a row produces the same result as
// running it once (spec.md §4.7 edge case).
func correctGeometry(g orb.Geometry) orb.Geometry {
	switch v := g.(type) {
	case orb.Polygon:
		return correctPolygon(v)
	case orb.MultiPolygon:
		out := make(orb.MultiPolygon, len(v))
		for i, poly := range v {
			out[i] = correctPolygon(poly)
		}
		return out
	default:
		return g
	}
}

func correctPolygon(p orb.Polygon) orb.Polygon {
	out := make(orb.Polygon, 0, len(p))
	for _, ring := range p {
		r := removeSpikes(ring)
		if len(r) < 4 {
			continue
		}
		out = append(out, r)
	}
	return closeRings(out)
}

// removeSpikes drops consecutive duplicate points and single-point
// back-and-forth spikes (A, B, A) that carry zero area but break some
// clipping libraries' validity checks.
func removeSpikes(ring orb.Ring) orb.Ring {
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

func closeRings(p orb.Polygon) orb.Polygon {
	for i, ring := range p {
		if len(ring) > 0 && ring[0] != ring[len(ring)-1] {
			p[i] = append(ring, ring[0])
		}
	}
	return p
}
