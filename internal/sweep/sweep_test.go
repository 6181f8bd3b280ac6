package sweep

import (
	"math"
	"testing"
)

func TestNewStateStartsAtLowerBounds(t *testing.T) {
	s := NewState(Bounds{MotionMin: 0.5, MotionMax: 5, PAMin: 0, PAMax: 2 * math.Pi})
	if s.Motion != 0.5 || s.PA != 0 {
		t.Fatalf("expected (0.5, 0), got (%v, %v)", s.Motion, s.PA)
	}
	if s.Finished {
		t.Fatalf("expected not finished initially")
	}
}

func TestAdvanceTerminatesInBoundedSteps(t *testing.T) {
	s := NewState(Bounds{MotionMin: 0.5, MotionMax: 2.0, PAMin: 0, PAMax: math.Pi})
	s.MotionStep = 0.5
	s.PAStep = math.Pi / 2

	maxCalls := 1000
	finished := false
	for i := 0; i < maxCalls; i++ {
		if s.Advance() {
			finished = true
			break
		}
	}
	if !finished {
		t.Fatalf("sweep did not terminate within %d advances", maxCalls)
	}
}

func TestAdvanceWrapsPAAndStepsMotion(t *testing.T) {
	s := NewState(Bounds{MotionMin: 1, MotionMax: 3, PAMin: 0, PAMax: math.Pi})
	s.MotionStep = 1
	s.PAStep = math.Pi + 0.1 // exceeds PAMax on first advance

	if s.Advance() {
		t.Fatalf("did not expect finished yet")
	}
	if s.PA != 0 {
		t.Fatalf("expected PA to wrap to PAMin 0, got %v", s.PA)
	}
	if s.Motion != 2 {
		t.Fatalf("expected motion to step to 2, got %v", s.Motion)
	}
}

func TestRecomputeStepsSkipsFirstCall(t *testing.T) {
	s := NewState(Bounds{MotionMin: 1, MotionMax: 3, PAMin: 0, PAMax: math.Pi})
	origM, origPA := s.MotionStep, s.PAStep
	s.RecomputeSteps(1.5, 2.0, 10.0)
	if s.MotionStep != origM || s.PAStep != origPA {
		t.Fatalf("expected first RecomputeSteps call to be a no-op baseline, steps changed")
	}
	s.RecomputeSteps(1.5, 2.0, 10.0)
	if s.MotionStep == origM {
		t.Fatalf("expected second RecomputeSteps call to update MotionStep")
	}
}
