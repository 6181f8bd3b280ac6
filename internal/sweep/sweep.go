// Package sweep implements the SweepController: the shared (motion, PA)
// hypothesis state advanced once per Phase 2 iteration.
package sweep

import "math"

const (
	initialMotionStep = 0.25             // arcsec/min, coarse first step
	initialPAStep     = 45 * math.Pi / 180 // radians
	maxPAStep         = 45 * math.Pi / 180
)

// Bounds are the configured sweep limits.
type Bounds struct {
	MotionMin, MotionMax float64 // arcsec/min
	PAMin, PAMax         float64 // radians
}

// State holds the current (motion, PA) hypothesis and its step sizes.
// It is shared across the scheduler's four threads: the coordinator is
// its sole writer, mutating it only between Phase 2 barriers; workers
// take read-only snapshots after the barrier they're published on.
type State struct {
	Bounds Bounds

	Motion float64 // arcsec/min
	PA     float64 // radians

	MotionStep float64
	PAStep     float64

	Finished bool

	// Iterations counts completed Advance calls, exposed by
	// internal/resultserver's /status route as the run's elapsed
	// iteration count.
	Iterations int

	stacksBuilt bool
}

// NewState initializes a SweepController at (motion_min, pa_min) with
// the coarse initial step sizes.
func NewState(b Bounds) *State {
	return &State{
		Bounds:     b,
		Motion:     b.MotionMin,
		PA:         b.PAMin,
		MotionStep: initialMotionStep,
		PAStep:     initialPAStep,
	}
}

// RecomputeSteps updates the step sizes from the tracking-error
// parameters, to be called once the first stack establishes a baseline
// and then before every subsequent advance.
//
//	Δm = 4·trkErr·pixelScale / maxElapse
//	Δθ = min(4·trkErr·pixelScale / (motion·maxElapse), 45°)
func (s *State) RecomputeSteps(trkErrPixels, pixelScaleArcsecPerPixel, maxElapseMinutes float64) {
	if !s.stacksBuilt {
		s.stacksBuilt = true
		return
	}
	if maxElapseMinutes == 0 {
		return
	}
	s.MotionStep = 4 * trkErrPixels * pixelScaleArcsecPerPixel / maxElapseMinutes
	if s.Motion != 0 {
		step := 4 * trkErrPixels * pixelScaleArcsecPerPixel / (s.Motion * maxElapseMinutes)
		if step < maxPAStep {
			s.PAStep = step
		} else {
			s.PAStep = maxPAStep
		}
	} else {
		s.PAStep = maxPAStep
	}
}

// Advance steps PA by PAStep; when PA exceeds the upper bound, it wraps
// to PAMin and motion advances by MotionStep. Returns true (and sets
// Finished) once motion exceeds its upper bound.
func (s *State) Advance() bool {
	s.Iterations++
	s.PA += s.PAStep
	if s.PA > s.Bounds.PAMax {
		s.PA = s.Bounds.PAMin
		s.Motion += s.MotionStep
		if s.Motion > s.Bounds.MotionMax {
			s.Finished = true
			return true
		}
	}
	return false
}
