package flex

import (
	"math"
	"testing"

	"github.com/paulmach/orb"

	"github.com/wegman-software/tilemaker-go/internal/osmstore"
	"github.com/wegman-software/tilemaker-go/internal/proj"
)

func scaledSquare() []osmstore.LatpLon {
	// A small square near the equator, in scaled-integer lon/latp degrees.
	return []osmstore.LatpLon{
		{Latp: osmstore.ScaleCoord(0), Lon: osmstore.ScaleCoord(0)},
		{Latp: osmstore.ScaleCoord(0), Lon: osmstore.ScaleCoord(0.01)},
		{Latp: osmstore.ScaleCoord(0.01), Lon: osmstore.ScaleCoord(0.01)},
		{Latp: osmstore.ScaleCoord(0.01), Lon: osmstore.ScaleCoord(0)},
		{Latp: osmstore.ScaleCoord(0), Lon: osmstore.ScaleCoord(0)},
	}
}

func TestBuildPolygonClosureClosesOpenRing(t *testing.T) {
	coords := scaledSquare()[:4] // drop the explicit closing point
	poly := buildPolygonClosure(coords)
	ring := poly[0]
	if ring[0] != ring[len(ring)-1] {
		t.Error("buildPolygonClosure did not close the ring")
	}
}

func TestAreaOfSquareIsPositive(t *testing.T) {
	poly := buildPolygonClosure(scaledSquare())
	if a := area(poly); a <= 0 {
		t.Errorf("area(square) = %v, want > 0", a)
	}
}

func TestLengthOfLineStringIsPositive(t *testing.T) {
	ls := lineStringFrom(scaledSquare())
	if l := length(ls); l <= 0 {
		t.Errorf("length(square outline) = %v, want > 0", l)
	}
}

func TestCentroidOfSquareIsInsideIt(t *testing.T) {
	poly := buildPolygonClosure(scaledSquare())
	c := centroid(poly)
	if c.X() < 0 || c.X() > 0.01 || c.Y() < 0 || c.Y() > 0.01 {
		t.Errorf("centroid = %v, want inside [0,0.01]x[0,0.01]", c)
	}
}

func TestCorrectGeometryIsIdempotent(t *testing.T) {
	poly := buildPolygonClosure(scaledSquare())
	once := correctGeometry(poly)
	twice := correctGeometry(once)
	onePoly := once.(orb.Polygon)
	twoPoly := twice.(orb.Polygon)
	if len(onePoly) != len(twoPoly) {
		t.Fatalf("correctGeometry changed ring count on a second pass: %d vs %d", len(onePoly), len(twoPoly))
	}
	for i := range onePoly {
		if len(onePoly[i]) != len(twoPoly[i]) {
			t.Errorf("ring %d point count changed on a second correction pass: %d vs %d", i, len(onePoly[i]), len(twoPoly[i]))
		}
	}
}

func TestLatpRoundTrip(t *testing.T) {
	const lat = 51.5
	latp := proj.Lat2Latp(lat)
	back := proj.Latp2Lat(latp)
	if math.Abs(back-lat) > 1e-9 {
		t.Errorf("Latp2Lat(Lat2Latp(%v)) = %v, want %v", lat, back, lat)
	}
}
