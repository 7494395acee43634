package transitbuilder

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// closestPointOnShape finds the point on a polyline nearest to p. It
// returns the point, its great-circle distance to p in meters, and the
// index of the segment the point lies on.
func closestPointOnShape(p orb.Point, shape orb.LineString) (orb.Point, float64, int) {
	best := orb.Point{}
	bestDist := math.MaxFloat64
	bestIdx := -1
	for i := 0; i+1 < len(shape); i++ {
		pt := closestOnSegment(p, shape[i], shape[i+1])
		if d := geo.Distance(p, pt); d < bestDist {
			best = pt
			bestDist = d
			bestIdx = i
		}
	}
	if len(shape) == 1 {
		return shape[0], geo.Distance(p, shape[0]), 0
	}
	return best, bestDist, bestIdx
}

// closestOnSegment projects p onto the segment a-b in a local planar
// frame with longitudes scaled by the cosine of the segment's mean
// latitude, clamping to the endpoints.
func closestOnSegment(p, a, b orb.Point) orb.Point {
	scale := math.Cos((a[1] + b[1]) / 2 * math.Pi / 180)
	ax, ay := a[0]*scale, a[1]
	bx, by := b[0]*scale, b[1]
	px, py := p[0]*scale, p[1]
	dx, dy := bx-ax, by-ay
	if dx == 0 && dy == 0 {
		return a
	}
	t := ((px-ax)*dx + (py-ay)*dy) / (dx*dx + dy*dy)
	if t <= 0 {
		return a
	}
	if t >= 1 {
		return b
	}
	return orb.Point{a[0] + t*(b[0]-a[0]), a[1] + t*(b[1]-a[1])}
}

// shapeLength returns the great-circle length of a polyline in meters.
func shapeLength(shape orb.LineString) float64 {
	var length float64
	for i := 0; i+1 < len(shape); i++ {
		length += geo.Distance(shape[i], shape[i+1])
	}
	return length
}

// reverseShape returns a reversed copy of a polyline.
func reverseShape(shape orb.LineString) orb.LineString {
	out := make(orb.LineString, len(shape))
	for i, p := range shape {
		out[len(shape)-1-i] = p
	}
	return out
}
