package coordinator

import (
	"math"
	"testing"

	"huntmover/internal/astrom"
	"huntmover/internal/frame"
	"huntmover/internal/geom"
	"huntmover/internal/stack"
)

func blobFrame(w, h, cx, cy int, timestamp float64) *frame.Frame {
	px := make([]float64, w*h)
	for i := range px {
		px[i] = 0.1
	}
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			x, y := cx+dx, cy+dy
			if x >= 0 && y >= 0 && x < w && y < h {
				px[y*w+x] = 0.9
			}
		}
	}
	f := frame.New(w, h, px)
	f.Timestamp = timestamp
	f.ExposureSec = 30
	f.Ref = astrom.Point{RA: 0, Dec: 0}
	f.PixelScaleX = 1e-5
	f.PixelScaleY = 1e-5
	return f
}

func newTestCoordinator(t *testing.T) *Coordinator {
	t.Helper()
	w, h := 40, 40
	groups := [3]*stack.Group{}
	for gi := 0; gi < 3; gi++ {
		frames := make([]*frame.Frame, 3)
		base := 100.0 + float64(gi)*10.0/24.0/60.0
		for i := range frames {
			frames[i] = blobFrame(w, h, 20, 20, base+float64(i)*0.2/24.0/60.0)
		}
		g, err := stack.NewGroup(gi, frames)
		if err != nil {
			t.Fatalf("unexpected error building group %d: %v", gi, err)
		}
		groups[gi] = g
	}

	cfg := Config{
		PixelScaleArcsecPerPixel: 1,
		MotionMin:                0, MotionMax: 2,
		PAMin: 0, PAMax: 2 * math.Pi,
		TrkErrPixels: 1, PosErrArcsec: 1,
		AperturePixels: 3, MinPixBase: 2,
		DetectionSigma: 3, StarMaskSigma: 4,
		StackBlackSigma: 2, StackWhiteSigma: 3,
	}

	c, err := InitGroups(cfg, geom.NewCache(), groups)
	if err != nil {
		t.Fatalf("unexpected error from InitGroups: %v", err)
	}
	return c
}

func TestInitGroupsRejectsEmptyGroup(t *testing.T) {
	groups := [3]*stack.Group{nil, nil, nil}
	if _, err := InitGroups(Config{}, geom.NewCache(), groups); err == nil {
		t.Fatalf("expected error for nil groups")
	}
}

func TestSetReferenceComputesMidpointAndDTimes(t *testing.T) {
	c := newTestCoordinator(t)
	c.SetReference()

	if c.DTimeMinutes[0] <= 0 || c.DTimeMinutes[1] <= 0 {
		t.Fatalf("expected positive inter-group deltas, got %v", c.DTimeMinutes)
	}
	if c.Sweep == nil || c.Sweep.Motion != c.Config.MotionMin {
		t.Fatalf("expected sweep reset to motion_min")
	}
}

func TestBuildSuperstackMedianOfThreeGroupStatics(t *testing.T) {
	c := newTestCoordinator(t)
	c.SetReference()
	for _, gs := range c.Stackers {
		gs.StaticStack()
	}
	c.BuildSuperstack()

	if c.Superstack == nil {
		t.Fatalf("expected superstack to be built")
	}
	if got := c.Superstack.At(20, 20); math.Abs(got-0.9) > 1e-9 {
		t.Fatalf("expected superstack centre pixel 0.9 (identical blob in all groups), got %v", got)
	}
}

func TestNormalizeAlignsMeanBackground(t *testing.T) {
	c := newTestCoordinator(t)
	c.SetReference()
	for _, gs := range c.Stackers {
		gs.StaticStack()
	}

	for i, g := range c.Groups {
		for _, f := range g.Frames {
			f.Background = 0.05 + float64(i)*0.02
		}
	}
	c.Normalize()

	sum, n := 0.0, 0
	for _, g := range c.Groups {
		for _, f := range g.Frames {
			sum += f.Background
			n++
		}
	}
	mean := sum / float64(n)
	for _, g := range c.Groups {
		for _, f := range g.Frames {
			if math.Abs(f.Background-mean) > 1e-9 {
				t.Fatalf("expected all frame backgrounds equal to mean %v, got %v", mean, f.Background)
			}
		}
	}
}

func TestBuildTrackletsAndMoversFindsStationaryBlob(t *testing.T) {
	c := newTestCoordinator(t)
	c.SetReference()

	for i, gs := range c.Stackers {
		gs.TrackedStack(0, 0)
		c.Groups[i].Objects = gs.FindObjects(0, 0)
	}

	c.Sweep.Motion = 0
	c.Sweep.PA = 0
	c.BuildTracklets()
	c.BuildMovers()
	c.SortMovers()

	if len(c.Movers.Movers) == 0 {
		t.Fatalf("expected at least one mover for a stationary blob present in all three groups")
	}
}
