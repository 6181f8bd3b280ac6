package geom

import (
	"math"
	"sort"
)

// ApertureOffset is a single integer pixel offset within an Aperture,
// carrying its perpendicular distance from the centred track segment.
type ApertureOffset struct {
	X, Y int
	D    float64
}

// Aperture is an oriented oblong (stadium-shaped) region: the set of
// integer pixel offsets within radius a of a track segment of length L
// centred at the origin, oriented at position angle theta. Offsets are
// sorted by ascending perpendicular distance D.
type Aperture struct {
	Radius    float64 // a
	Track     float64 // L, pixels
	Angle     float64 // theta, radians
	Offsets   []ApertureOffset
	FWHMCount int // number of offsets with D <= 0.4*a
	ApRadius  float64
}

// Build constructs the aperture for the given radius, track length and
// position angle. Offsets carry the perpendicular distance to the
// centred track segment, and are returned sorted ascending by that
// distance. apRadius = a + ceil(L/2) + 1 bounds the image margin the
// aperture needs.
func Build(a, trackLen, theta float64) Aperture {
	ux, uy := math.Sin(theta), math.Cos(theta)
	halfL := trackLen / 2

	scanRad := int(math.Ceil(a+halfL)) + 1
	offsets := make([]ApertureOffset, 0, (2*scanRad+1)*(2*scanRad+1))

	for y := -scanRad; y <= scanRad; y++ {
		for x := -scanRad; x <= scanRad; x++ {
			fx, fy := float64(x), float64(y)
			t := fx*ux + fy*uy
			if t > halfL {
				t = halfL
			} else if t < -halfL {
				t = -halfL
			}
			cx, cy := t*ux, t*uy
			dx, dy := fx-cx, fy-cy
			d := math.Sqrt(dx*dx + dy*dy)
			if d <= a {
				offsets = append(offsets, ApertureOffset{X: x, Y: y, D: d})
			}
		}
	}

	sort.Slice(offsets, func(i, j int) bool { return offsets[i].D < offsets[j].D })

	fwhmLimit := 0.4 * a
	fwhmCount := 0
	for _, o := range offsets {
		if o.D <= fwhmLimit {
			fwhmCount++
		} else {
			break
		}
	}

	return Aperture{
		Radius:    a,
		Track:     trackLen,
		Angle:     theta,
		Offsets:   offsets,
		FWHMCount: fwhmCount,
		ApRadius:  a + math.Ceil(halfL) + 1,
	}
}

// CountWithin returns the number of leading (ascending-D) offsets with
// D <= c, and that count's index into Offsets (they coincide since the
// slice is sorted).
func (ap Aperture) CountWithin(c float64) int {
	n := 0
	for _, o := range ap.Offsets {
		if o.D > c {
			break
		}
		n++
	}
	return n
}
