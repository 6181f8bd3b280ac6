package scheduler

import (
	"math"
	"testing"
	"time"

	"huntmover/internal/astrom"
	"huntmover/internal/coordinator"
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

func TestSchedulerRunsSinglePassToCompletion(t *testing.T) {
	w, h := 40, 40
	var groups [3]*stack.Group
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

	cfg := coordinator.Config{
		PixelScaleArcsecPerPixel: 1,
		MotionMin:                0, MotionMax: 0,
		PAMin: 0, PAMax: 0,
		TrkErrPixels: 1, PosErrArcsec: 1,
		AperturePixels: 3, MinPixBase: 2,
		DetectionSigma: 3, StarMaskSigma: 4,
		StackBlackSigma: 2, StackWhiteSigma: 3,
		FrameBlackSigma: 2, FrameWhiteSigma: 3,
	}

	c, err := coordinator.InitGroups(cfg, geom.NewCache(), groups)
	if err != nil {
		t.Fatalf("unexpected error from InitGroups: %v", err)
	}
	c.SetReference()

	s := New(c, nil)
	done := make(chan struct{})
	go func() {
		s.Run()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("scheduler did not terminate within the expected bound")
	}

	if !c.Sweep.Finished {
		t.Fatalf("expected sweep to be finished after scheduler run")
	}
	if math.IsNaN(c.Sweep.Motion) {
		t.Fatalf("expected a finite final sweep motion")
	}
}
