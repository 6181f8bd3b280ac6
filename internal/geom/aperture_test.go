package geom

import (
	"math"
	"testing"
)

func TestBuildApertureSortedAndWithinRadius(t *testing.T) {
	ap := Build(3.5, 6.0, math.Pi/4)

	if len(ap.Offsets) == 0 {
		t.Fatalf("expected non-empty aperture")
	}
	for i, o := range ap.Offsets {
		if o.D > ap.Radius+1e-9 {
			t.Fatalf("offset %d has D=%v exceeding radius %v", i, o.D, ap.Radius)
		}
		if i > 0 && ap.Offsets[i-1].D > o.D {
			t.Fatalf("offsets not sorted ascending by D at index %d", i)
		}
	}
}

func TestBuildAperturePerpendicularDistanceMatchesGeometry(t *testing.T) {
	a, trackLen, theta := 4.0, 10.0, 0.3
	ap := Build(a, trackLen, theta)

	ux, uy := math.Sin(theta), math.Cos(theta)
	halfL := trackLen / 2

	for _, o := range ap.Offsets {
		fx, fy := float64(o.X), float64(o.Y)
		proj := fx*ux + fy*uy
		if proj > halfL {
			proj = halfL
		} else if proj < -halfL {
			proj = -halfL
		}
		cx, cy := proj*ux, proj*uy
		dx, dy := fx-cx, fy-cy
		want := math.Sqrt(dx*dx + dy*dy)
		if math.Abs(want-o.D) > 1e-4 {
			t.Fatalf("offset (%d,%d): want D=%v got %v", o.X, o.Y, want, o.D)
		}
	}
}

func TestApRadiusBoundsMargin(t *testing.T) {
	ap := Build(2.5, 9.0, 0)
	want := 2.5 + math.Ceil(9.0/2) + 1
	if ap.ApRadius != want {
		t.Fatalf("apRadius = %v, want %v", ap.ApRadius, want)
	}
}

func TestFWHMCountMatchesSubApertureThreshold(t *testing.T) {
	ap := Build(5.0, 4.0, 1.1)
	limit := 0.4 * ap.Radius
	count := 0
	for _, o := range ap.Offsets {
		if o.D <= limit {
			count++
		}
	}
	if count != ap.FWHMCount {
		t.Fatalf("FWHMCount = %d, want %d", ap.FWHMCount, count)
	}
}

func TestCacheReturnsEquivalentApertureForQuantizedKeys(t *testing.T) {
	c := NewCache()
	a := c.Get(3.0, 6.0, 0.5)
	b := c.Get(3.0, 6.0, 0.5)
	if len(a.Offsets) != len(b.Offsets) {
		t.Fatalf("cached aperture mismatch: %d vs %d offsets", len(a.Offsets), len(b.Offsets))
	}
}
