package flex

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// polylabelCell is one candidate square probed during the quadtree
// refinement (ground: original_source/include/polylabel.h's Cell).
type polylabelCell struct {
	x, y, h float64
	d       float64 // distance to polygon boundary, negative if outside
	max     float64 // d + h*sqrt(2), an upper bound on any point within this cell
}

func newPolylabelCell(x, y, h float64, poly orb.Polygon) polylabelCell {
	d := signedDistanceToPolygon(orb.Point{x, y}, poly)
	return polylabelCell{x: x, y: y, h: h, d: d, max: d + h*math.Sqrt2}
}

// polelabel finds an approximate pole of inaccessibility: the point inside
// poly that maximizes distance to the nearest edge, to within precision.
// It is a direct port of the original's iterative quadtree refinement
// (original_source/include/polylabel.h), since orb has no equivalent.
func polelabel(poly orb.Polygon, precision float64) orb.Point {
	bound := poly.Bound()
	width := bound.Max[0] - bound.Min[0]
	height := bound.Max[1] - bound.Min[1]
	if width == 0 || height == 0 {
		return bound.Min
	}
	cellSize := math.Min(width, height)
	h := cellSize / 2

	if h == 0 {
		c, _ := planar.CentroidArea(poly)
		return c
	}

	queue := []polylabelCell{}
	for x := bound.Min[0]; x < bound.Max[0]; x += cellSize {
		for y := bound.Min[1]; y < bound.Max[1]; y += cellSize {
			queue = append(queue, newPolylabelCell(x+h, y+h, h, poly))
		}
	}

	best := newPolylabelCell((bound.Min[0]+bound.Max[0])/2, (bound.Min[1]+bound.Max[1])/2, 0, poly)
	if c, _ := planar.CentroidArea(poly); signedDistanceToPolygon(c, poly) > best.d {
		best = newPolylabelCell(c.X(), c.Y(), 0, poly)
	}

	for len(queue) > 0 {
		cur := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		if cur.d > best.d {
			best = cur
		}
		if cur.max-best.d <= precision {
			continue
		}

		h := cur.h / 2
		queue = append(queue,
			newPolylabelCell(cur.x-h, cur.y-h, h, poly),
			newPolylabelCell(cur.x+h, cur.y-h, h, poly),
			newPolylabelCell(cur.x-h, cur.y+h, h, poly),
			newPolylabelCell(cur.x+h, cur.y+h, h, poly),
		)
	}

	return orb.Point{best.x, best.y}
}

// signedDistanceToPolygon returns the distance from p to the nearest edge
// of any of poly's rings, outer or hole. The sign comes from the outer ring
// alone: negative if p is outside it, with holes ignored for that test.
func signedDistanceToPolygon(p orb.Point, poly orb.Polygon) float64 {
	if len(poly) == 0 {
		return -math.MaxFloat64
	}
	inside := ringContains(poly[0], p)
	minDist := math.MaxFloat64
	for _, ring := range poly {
		d := distanceToRing(p, ring)
		if d < minDist {
			minDist = d
		}
	}
	if inside {
		return minDist
	}
	return -minDist
}

// ringContains is a standard even-odd ray-casting point-in-ring test.
func ringContains(ring orb.Ring, p orb.Point) bool {
	in := false
	n := len(ring)
	if n < 3 {
		return false
	}
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		pi, pj := ring[i], ring[j]
		if (pi.Y() > p.Y()) != (pj.Y() > p.Y()) &&
			p.X() < (pj.X()-pi.X())*(p.Y()-pi.Y())/(pj.Y()-pi.Y())+pi.X() {
			in = !in
		}
	}
	return in
}

func distanceToRing(p orb.Point, ring orb.Ring) float64 {
	minDist := math.MaxFloat64
	for i := 0; i < len(ring)-1; i++ {
		d := distanceToSegment(p, ring[i], ring[i+1])
		if d < minDist {
			minDist = d
		}
	}
	return minDist
}

func distanceToSegment(p, a, b orb.Point) float64 {
	vx, vy := b.X()-a.X(), b.Y()-a.Y()
	wx, wy := p.X()-a.X(), p.Y()-a.Y()

	lenSq := vx*vx + vy*vy
	if lenSq == 0 {
		return pointDistance(p, a)
	}
	t := (wx*vx + wy*vy) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	proj := orb.Point{a.X() + t*vx, a.Y() + t*vy}
	return pointDistance(p, proj)
}

func pointDistance(a, b orb.Point) float64 {
	dx, dy := a.X()-b.X(), a.Y()-b.Y()
	return math.Sqrt(dx*dx + dy*dy)
}
