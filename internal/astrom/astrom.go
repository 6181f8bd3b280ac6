// Package astrom is a thin tangent-plane projection stand-in for a
// full celestial-coordinate-math library. It supplies only the small
// amount of arithmetic the synthetic-tracking pipeline needs to turn a
// pair of WCS reference points into a pixel offset — not astrometric
// calibration, plate solving, or refinement.
package astrom

import "math"

// Point is a celestial coordinate in radians.
type Point struct {
	RA, Dec float64
}

// Midpoint returns an approximate great-circle midpoint between two
// points, adequate for the small fields-of-view synthetic tracking
// operates over.
func Midpoint(a, b Point) Point {
	return Point{
		RA:  a.RA + angularDiff(a.RA, b.RA)/2,
		Dec: (a.Dec + b.Dec) / 2,
	}
}

func angularDiff(a, b float64) float64 {
	d := b - a
	for d > math.Pi {
		d -= 2 * math.Pi
	}
	for d < -math.Pi {
		d += 2 * math.Pi
	}
	return d
}

// TangentOffset projects pt onto the tangent plane centred at ref and
// returns the pixel offset (dx, dy) given per-axis angular pixel scales
// (radians/pixel). Positive dx is toward increasing RA (east), positive
// dy toward increasing Dec (north).
func TangentOffset(ref, pt Point, scaleX, scaleY float64) (dx, dy float64) {
	dRA := angularDiff(ref.RA, pt.RA)
	x := dRA * math.Cos(ref.Dec)
	y := pt.Dec - ref.Dec
	if scaleX != 0 {
		dx = x / scaleX
	}
	if scaleY != 0 {
		dy = y / scaleY
	}
	return dx, dy
}
