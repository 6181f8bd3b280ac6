package stack

import (
	"math"
	"testing"

	"huntmover/internal/frame"
	"huntmover/internal/geom"
)

func flatFrame(w, h int, v float64, timestamp, exposureSec float64) *frame.Frame {
	px := make([]float64, w*h)
	for i := range px {
		px[i] = v
	}
	f := frame.New(w, h, px)
	f.Timestamp = timestamp
	f.ExposureSec = exposureSec
	return f
}

func TestNewGroupRejectsEmptyFrames(t *testing.T) {
	if _, err := NewGroup(0, nil); err == nil {
		t.Fatalf("expected error for zero-frame group")
	}
}

func TestNewGroupComputesElapseAndMidpoint(t *testing.T) {
	f1 := flatFrame(4, 4, 0, 100.0, 30)
	f2 := flatFrame(4, 4, 0, 100.0+2.0/24.0/60.0, 30)
	g, err := NewGroup(0, []*frame.Frame{f1, f2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// first start at 0 min, last end at 2 min + 30 s exposure -> midpoint 1.25 min
	if math.Abs(g.RefTimeDays-100.0-1.25/24.0/60.0) > 1e-9 {
		t.Fatalf("expected midpoint ~1.25 minutes after start, got %v", g.RefTimeDays-100.0)
	}
	if g.ElapseMinutes < 2 {
		t.Fatalf("expected elapse >= span of 2 minutes, got %v", g.ElapseMinutes)
	}
}

func TestMedianOddAndEven(t *testing.T) {
	if v := median([]float64{3, 1, 2}); v != 2 {
		t.Fatalf("expected median 2, got %v", v)
	}
	if v := median([]float64{1, 2, 3, 4}); v != 2.5 {
		t.Fatalf("expected median 2.5, got %v", v)
	}
}

func TestStaticStackOfIdenticalFramesReproducesFrame(t *testing.T) {
	w, h := 6, 6
	frames := make([]*frame.Frame, 3)
	for i := range frames {
		frames[i] = flatFrame(w, h, 0.4, 100, 30)
	}
	g, err := NewGroup(0, frames)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	gs := NewGroupStacker(g, Params{BlackSigma: 2, WhiteSigma: 3, DetectionSigma: 5, ApertureRadius: 2, MinPixBase: 3}, geom.NewCache())
	gs.StaticStack()

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if got := g.Static.At(x, y); math.Abs(got-0.4) > 1e-9 {
				t.Fatalf("static stack pixel (%d,%d): expected 0.4, got %v", x, y, got)
			}
		}
	}
}

func TestTrackedStackDividesByFrameCountRegardlessOfCoverage(t *testing.T) {
	w, h := 10, 10
	f1 := flatFrame(w, h, 1.0, 100, 30)
	f2 := flatFrame(w, h, 1.0, 100.0+20.0/24.0/60.0, 30)
	g, err := NewGroup(0, []*frame.Frame{f1, f2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	gs := NewGroupStacker(g, Params{PixelScaleArcsecPerPixel: 1, BlackSigma: 2, WhiteSigma: 3, DetectionSigma: 5, ApertureRadius: 2, MinPixBase: 3}, geom.NewCache())
	// 0.2 arcsec/min north: group midpoint is 10.25 min after f1's start, so
	// f1 shifts by round(-2.05) = -2 px and f2 by round(1.95) = +2 px in y.
	gs.TrackedStack(0.2, 0)

	center := g.Tracked.At(w/2, h/2)
	if center > 1.0+1e-9 {
		t.Fatalf("tracked stack centre pixel %v exceeds per-frame value 1.0", center)
	}
	// at y = h-2, f2's sample (y+2) falls outside the frame: one in-bounds
	// sample of 1.0 divided by the frame count of 2.
	if edge := g.Tracked.At(w/2, h-2); math.Abs(edge-0.5) > 1e-9 {
		t.Fatalf("expected edge pixel 0.5 (one of two frames in bounds), got %v", edge)
	}
}

func TestFindObjectsDetectsBrightBlob(t *testing.T) {
	w, h := 40, 40
	frames := make([]*frame.Frame, 3)
	for i := range frames {
		px := make([]float64, w*h)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				px[y*w+x] = 0.1
			}
		}
		// bright 3x3 blob at the same pixel in every frame (motion=0 hypothesis)
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				px[(h/2+dy)*w+(w/2+dx)] = 0.9
			}
		}
		f := frame.New(w, h, px)
		f.Timestamp = 100.0 + float64(i)*0.1/24.0/60.0
		f.ExposureSec = 30
		frames[i] = f
	}

	g, err := NewGroup(0, frames)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	gs := NewGroupStacker(g, Params{
		PixelScaleArcsecPerPixel: 1,
		BlackSigma:               2,
		WhiteSigma:               3,
		DetectionSigma:           3,
		ApertureRadius:           3,
		MinPixBase:               2,
	}, geom.NewCache())

	gs.TrackedStack(0, 0)
	objects := gs.FindObjects(0, 0)

	if len(objects) == 0 {
		t.Fatalf("expected at least one detected object, found none")
	}
	obj := objects[0]
	if math.Abs(obj.Location.X-float64(w/2)) > 2 || math.Abs(obj.Location.Y-float64(h/2)) > 2 {
		t.Fatalf("expected detection near (%d,%d), got %+v", w/2, h/2, obj.Location)
	}
}
