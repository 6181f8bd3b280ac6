package stack

import (
	"fmt"
	"math"

	"huntmover/internal/frame"
	"huntmover/internal/geom"
	"huntmover/internal/model"
)

// Group is an ordered collection of frames sharing a near-contiguous
// observation window. Membership is immutable after Load.
type Group struct {
	Index         int
	Frames        []*frame.Frame
	RefTimeDays   float64 // midpoint of first exposure start and last exposure end
	ElapseMinutes float64

	Static  *StackedImage
	Tracked *StackedImage
	Objects []model.ImageObject

	edgeMin, edgeMax geom.Point
}

// NewGroup validates and constructs a Group. A group with zero frames
// is a group-structure violation: the run must abort before Phase 1,
// so the error is returned rather than tolerated with degenerate
// min/max bounds.
func NewGroup(index int, frames []*frame.Frame) (*Group, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("group %d: zero frames, cannot proceed", index)
	}

	firstStart, lastEnd := frames[0].Timestamp, frames[0].Timestamp+frames[0].ExposureSec/86400
	maxExposureMin := frames[0].ExposureSec / 60
	for _, f := range frames[1:] {
		if f.Timestamp < firstStart {
			firstStart = f.Timestamp
		}
		end := f.Timestamp + f.ExposureSec/86400
		if end > lastEnd {
			lastEnd = end
		}
		if f.ExposureSec/60 > maxExposureMin {
			maxExposureMin = f.ExposureSec / 60
		}
	}

	refTime := (firstStart + lastEnd) / 2
	span := (lastEnd - firstStart) * 24 * 60
	elapse := span
	if maxExposureMin > elapse {
		elapse = maxExposureMin
	}

	return &Group{Index: index, Frames: frames, RefTimeDays: refTime, ElapseMinutes: elapse}, nil
}

func median(vals []float64) float64 {
	// insertion sort: per-pixel call sites keep slices tiny (one entry
	// per frame, typically 3-5), so this stays cheap without per-pixel
	// heap allocation from sort.Slice's closures.
	for i := 1; i < len(vals); i++ {
		for j := i; j > 0 && vals[j-1] > vals[j]; j-- {
			vals[j-1], vals[j] = vals[j], vals[j-1]
		}
	}
	n := len(vals)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return vals[n/2]
	}
	return (vals[n/2-1] + vals[n/2]) / 2
}

// GroupStacker owns the frames of one group: static median-stack, tracked
// mean-stack, and object search.
type GroupStacker struct {
	Group  *Group
	Params Params
	Cache  *geom.Cache

	scratch []float64 // reused findObjects buffer
}

// Params carries the slice of the configuration contract GroupStacker
// needs.
type Params struct {
	PixelScaleArcsecPerPixel float64
	BlackSigma               float64
	WhiteSigma               float64
	DetectionSigma           float64 // sigma1
	ApertureRadius           float64 // "aperture" config, pixels
	MinPixBase               int     // tCount_base
}

// NewGroupStacker constructs a stacker for the group, sharing the given
// aperture cache across sweep steps.
func NewGroupStacker(g *Group, p Params, cache *geom.Cache) *GroupStacker {
	return &GroupStacker{Group: g, Params: p, Cache: cache}
}

func (gs *GroupStacker) dims() (int, int) {
	f := gs.Group.Frames[0]
	return f.Width, f.Height
}

// StaticStack builds the per-group median stack of frames shifted by
// their static offsets, and runs ComputeHistogram over the result.
func (gs *GroupStacker) StaticStack() {
	w, h := gs.dims()
	out := NewStackedImage(w, h)
	vals := make([]float64, len(gs.Group.Frames))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			for k, f := range gs.Group.Frames {
				sx := x + int(math.Round(f.StaticOffset.X))
				sy := y + int(math.Round(f.StaticOffset.Y))
				if f.InBounds(sx, sy) {
					vals[k] = f.At(sx, sy)
				} else {
					vals[k] = 0
				}
			}
			out.set(x, y, median(vals))
		}
	}

	out.ComputeHistogram(gs.Params.BlackSigma, gs.Params.WhiteSigma, gs.Params.DetectionSigma)
	gs.Group.Static = out
}

// TrackedStack sets every frame's tracked offset for the given
// (motion, PA) hypothesis, accumulates the per-axis edge-depletion
// vector, builds the mean-of-shifted-frames stack (divisor is always the
// frame count, regardless of how many samples were in-bounds), and runs
// ComputeHistogram.
func (gs *GroupStacker) TrackedStack(motion, pa float64) {
	w, h := gs.dims()
	frames := gs.Group.Frames

	var edgeMin, edgeMax geom.Point
	for i, f := range frames {
		f.SetTrackedOffset(gs.Group.RefTimeDays, motion, pa, gs.Params.PixelScaleArcsecPerPixel)
		if i == 0 {
			edgeMin, edgeMax = f.TrackedOffset, f.TrackedOffset
		} else {
			if f.TrackedOffset.X < edgeMin.X {
				edgeMin.X = f.TrackedOffset.X
			}
			if f.TrackedOffset.Y < edgeMin.Y {
				edgeMin.Y = f.TrackedOffset.Y
			}
			if f.TrackedOffset.X > edgeMax.X {
				edgeMax.X = f.TrackedOffset.X
			}
			if f.TrackedOffset.Y > edgeMax.Y {
				edgeMax.Y = f.TrackedOffset.Y
			}
		}
	}
	gs.Group.edgeMin, gs.Group.edgeMax = edgeMin, edgeMax

	out := NewStackedImage(w, h)
	n := float64(len(frames))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum := 0.0
			for _, f := range frames {
				sx := x + f.TrackedOffset.X
				sy := y + f.TrackedOffset.Y
				if f.InBounds(sx, sy) {
					sum += f.At(sx, sy)
				}
			}
			out.set(x, y, sum/n)
		}
	}

	out.ComputeHistogram(gs.Params.BlackSigma, gs.Params.WhiteSigma, gs.Params.DetectionSigma)
	gs.Group.Tracked = out
}

// edgeBand returns the largest absolute per-axis edge-depletion the
// current tracked stack accumulated, used to inset findObjects' scan
// rectangle so the aperture never reads out of bounds.
func (gs *GroupStacker) edgeBand() int {
	abs := func(v int) int {
		if v < 0 {
			return -v
		}
		return v
	}
	band := 0
	for _, v := range []int{gs.Group.edgeMin.X, gs.Group.edgeMin.Y, gs.Group.edgeMax.X, gs.Group.edgeMax.Y} {
		if a := abs(v); a > band {
			band = a
		}
	}
	return band
}
