// Package coordinator implements the Coordinator/SuperGroup:
// cross-group normalization, the star-mask superstack, the optional
// synthetic flat, and tracklet/mover construction. It is the
// cross-group counterpart to internal/stack's per-group work.
package coordinator

import (
	"fmt"

	"huntmover/internal/astrom"
	"huntmover/internal/frame"
	"huntmover/internal/geom"
	"huntmover/internal/mover"
	"huntmover/internal/stack"
	"huntmover/internal/sweep"
)

// Config is the slice of the configuration contract the coordinator
// needs.
type Config struct {
	PixelScaleArcsecPerPixel float64

	MotionMin, MotionMax float64 // arcsec/min
	PAMin, PAMax         float64 // radians

	TrkErrPixels   float64
	PosErrArcsec   float64
	AperturePixels float64
	MinPixBase     int

	DetectionSigma float64 // sigma1
	StarMaskSigma  float64 // sigma2

	StackBlackSigma, StackWhiteSigma float64 // blackFits/whiteFits
	FrameBlackSigma, FrameWhiteSigma float64 // blackHist/whiteHist
	LowerSigmaClip                  float64  // pass-2 histogram clip, K

	Blur, DeLine, Flatten bool
}

// Coordinator owns the three groups and the cross-group state: the
// common reference point, the star-mask superstack, the optional flat,
// the sweep hypothesis, tracklet lists and the mover list.
type Coordinator struct {
	Config Config
	Cache  *geom.Cache

	Groups   [3]*stack.Group
	Stackers [3]*stack.GroupStacker

	Reference        astrom.Point
	DTimeMinutes     [2]float64
	MaxElapseMinutes float64

	Superstack *stack.StackedImage
	Flat       []float64

	Sweep         *sweep.State
	TrackletLists [2][]mover.Tracklet
	Movers        mover.List
}

// InitGroups validates and adopts the three loaded groups, building a
// GroupStacker for each. A run with anything other than exactly three
// non-empty groups is a group-structure violation and aborts before
// Phase 1.
func InitGroups(cfg Config, cache *geom.Cache, groups [3]*stack.Group) (*Coordinator, error) {
	for i, g := range groups {
		if g == nil || len(g.Frames) == 0 {
			return nil, fmt.Errorf("group %d: zero frames, run aborts before phase 1", i)
		}
	}

	c := &Coordinator{Config: cfg, Cache: cache, Groups: groups}
	params := stack.Params{
		PixelScaleArcsecPerPixel: cfg.PixelScaleArcsecPerPixel,
		BlackSigma:               cfg.StackBlackSigma,
		WhiteSigma:               cfg.StackWhiteSigma,
		DetectionSigma:           cfg.DetectionSigma,
		ApertureRadius:           cfg.AperturePixels,
		MinPixBase:               cfg.MinPixBase,
	}
	for i, g := range groups {
		c.Stackers[i] = stack.NewGroupStacker(g, params, cache)
	}
	for _, g := range groups {
		if g.ElapseMinutes > c.MaxElapseMinutes {
			c.MaxElapseMinutes = g.ElapseMinutes
		}
	}
	return c, nil
}

// PrepareGroup computes each frame's background/sigma histogram,
// stretches it into [0,1], and applies the optional blur/de-line
// filters, for one group's frames only; the scheduler calls this per
// GroupWorker so each group remains the sole writer of its own frames
// between barriers.
func (c *Coordinator) PrepareGroup(i int) {
	hp := frame.HistogramParams{
		LowerSigmaClip: c.Config.LowerSigmaClip,
		BlackSigma:     c.Config.FrameBlackSigma,
		WhiteSigma:     c.Config.FrameWhiteSigma,
	}
	for _, f := range c.Groups[i].Frames {
		f.ComputeHistogram(hp)
		f.Stretch()
		if c.Config.Blur {
			f.Blur()
		}
		if c.Config.DeLine {
			f.DeLine()
		}
	}
}

// SetReference computes the run's common reference point as the
// great-circle midpoint between group 0's first frame and group 2's
// last frame, derives the inter-group mid-time deltas, aligns every
// frame's static offset against it, and resets the sweep state.
func (c *Coordinator) SetReference() {
	first := c.Groups[0].Frames[0]
	last := c.Groups[2].Frames[len(c.Groups[2].Frames)-1]
	c.Reference = astrom.Midpoint(first.Ref, last.Ref)

	c.DTimeMinutes[0] = (c.Groups[1].RefTimeDays - c.Groups[0].RefTimeDays) * 24 * 60
	c.DTimeMinutes[1] = (c.Groups[2].RefTimeDays - c.Groups[1].RefTimeDays) * 24 * 60

	for _, g := range c.Groups {
		for _, f := range g.Frames {
			f.SetStaticOffset(c.Reference, f.Rotation)
		}
	}

	c.Sweep = sweep.NewState(sweep.Bounds{
		MotionMin: c.Config.MotionMin, MotionMax: c.Config.MotionMax,
		PAMin: c.Config.PAMin, PAMax: c.Config.PAMax,
	})
}

// Normalize shifts every frame's pixels by (background - meanBackground)
// so all frames share a common background level, then resets each
// frame's stored background to the mean.
func (c *Coordinator) Normalize() {
	sum, n := 0.0, 0
	for _, g := range c.Groups {
		for _, f := range g.Frames {
			sum += f.Background
			n++
		}
	}
	if n == 0 {
		return
	}
	mean := sum / float64(n)

	for _, g := range c.Groups {
		for _, f := range g.Frames {
			delta := f.Background - mean
			for i, v := range f.Pixels {
				nv := v - delta
				if nv < 0 {
					nv = 0
				} else if nv > 1 {
					nv = 1
				}
				f.Pixels[i] = nv
			}
			f.Background = mean
		}
	}
}

// BuildSuperstack combines the three groups' static stacks (already
// built by each GroupStacker) with a pixel-wise median of three,
// computes its histogram with the star-mask sigma, and stores the
// result as the subtraction source for per-frame star masking.
func (c *Coordinator) BuildSuperstack() {
	w, h := c.Groups[0].Static.Width, c.Groups[0].Static.Height
	out := stack.NewStackedImage(w, h)
	for i := range out.Pixels {
		a := c.Groups[0].Static.Pixels[i]
		b := c.Groups[1].Static.Pixels[i]
		cc := c.Groups[2].Static.Pixels[i]
		out.Pixels[i] = medianOfThree(a, b, cc)
	}
	out.ComputeHistogram(c.Config.StackBlackSigma, c.Config.StackWhiteSigma, c.Config.StarMaskSigma)
	c.Superstack = out
}

func medianOfThree(a, b, c float64) float64 {
	if a > b {
		a, b = b, a
	}
	if b > c {
		b = c
	}
	if a > b {
		b = a
	}
	return b
}

// Subtract runs per-frame star subtraction against the superstack for
// every frame in every group.
func (c *Coordinator) Subtract() {
	for i := range c.Groups {
		c.SubtractGroup(i)
	}
}

// SubtractGroup runs star subtraction for one group's frames only; the
// scheduler calls this per GroupWorker so each group remains the sole
// writer of its own frames between barriers.
func (c *Coordinator) SubtractGroup(i int) {
	for _, f := range c.Groups[i].Frames {
		f.Subtract(c.Superstack)
	}
}

// BuildFlat synthesizes a multiplicative flat field as the per-pixel
// median across every frame of all three groups of pixel/frame.Mu, when
// flattening is enabled.
func (c *Coordinator) BuildFlat() {
	if !c.Config.Flatten {
		return
	}
	w, h := c.Groups[0].Static.Width, c.Groups[0].Static.Height
	flat := make([]float64, w*h)

	var frames []*frame.Frame
	for _, g := range c.Groups {
		frames = append(frames, g.Frames...)
	}

	ratios := make([]float64, len(frames))
	for i := range flat {
		for k, f := range frames {
			if f.Mu != 0 {
				ratios[k] = f.Pixels[i] / f.Mu
			} else {
				ratios[k] = 1
			}
		}
		flat[i] = medianSlice(ratios)
	}
	c.Flat = flat
}

func medianSlice(vals []float64) float64 {
	v := append([]float64(nil), vals...)
	for i := 1; i < len(v); i++ {
		for j := i; j > 0 && v[j-1] > v[j]; j-- {
			v[j-1], v[j] = v[j], v[j-1]
		}
	}
	n := len(v)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return v[n/2]
	}
	return (v[n/2-1] + v[n/2]) / 2
}

// Divide applies the synthesized flat to every frame, when present.
func (c *Coordinator) Divide() {
	for i := range c.Groups {
		c.DivideGroup(i)
	}
}

// DivideGroup applies the synthesized flat to one group's frames only;
// a no-op if flattening wasn't enabled.
func (c *Coordinator) DivideGroup(i int) {
	if c.Flat == nil {
		return
	}
	for _, f := range c.Groups[i].Frames {
		f.Divide(c.Flat)
	}
}

// RecomputeAndAdvance refreshes the sweep's step sizes from the
// tracking-error tolerance and the run's maximum group elapse, then
// advances to the next (motion, PA) hypothesis.
func (c *Coordinator) RecomputeAndAdvance() bool {
	c.Sweep.RecomputeSteps(c.Config.TrkErrPixels, c.Config.PixelScaleArcsecPerPixel, c.MaxElapseMinutes)
	return c.Sweep.Advance()
}

func (c *Coordinator) posErrPixels() float64 {
	if c.Config.PixelScaleArcsecPerPixel == 0 {
		return 0
	}
	return c.Config.PosErrArcsec / c.Config.PixelScaleArcsecPerPixel
}

// BuildTracklets searches every (object, object) pair across
// consecutive groups for ones consistent with the current sweep
// hypothesis, within tolerances derived from the hypothesis's step
// sizes and the configured position error.
func (c *Coordinator) BuildTracklets() {
	posErrPx := c.posErrPixels()
	for g := 0; g < 2; g++ {
		var list []mover.Tracklet
		for _, o1 := range c.Groups[g].Objects {
			for _, o2 := range c.Groups[g+1].Objects {
				tr := mover.NewTracklet(o1, o2, c.DTimeMinutes[g], c.Config.PixelScaleArcsecPerPixel)
				if tr.Matches(c.Sweep.Motion, c.Sweep.PA, c.Sweep.MotionStep, c.Sweep.PAStep, c.DTimeMinutes[g], posErrPx, c.Config.PixelScaleArcsecPerPixel) {
					list = append(list, tr)
				}
			}
		}
		c.TrackletLists[g] = list
	}
}

func lerp(a, b geom.FPoint, frac float64) geom.FPoint {
	return geom.FPoint{X: a.X + (b.X-a.X)*frac, Y: a.Y + (b.Y-a.Y)*frac}
}

// BuildMovers joins tracklets sharing a middle-group object into
// three-object movers, rejecting ones whose predicted-vs-observed
// middle position residual exceeds tolerance, scoring the survivors,
// and deduplicating against the existing mover list.
func (c *Coordinator) BuildMovers() {
	posErrPx := c.posErrPixels()
	total := c.DTimeMinutes[0] + c.DTimeMinutes[1]
	frac := 0.5
	if total != 0 {
		frac = c.DTimeMinutes[0] / total
	}

	for _, t1 := range c.TrackletLists[0] {
		for _, t2 := range c.TrackletLists[1] {
			if t1.B.Ref != t2.A.Ref {
				continue
			}
			predicted := lerp(t1.A.Location, t2.B.Location, frac)
			errMid := geom.Dist(predicted, t1.B.Location)
			if errMid > 2*posErrPx {
				continue
			}

			built := mover.Mover{
				Motion: (t1.Motion + t2.Motion) / 2,
				PA:     geom.PA(t1.A.Location, t2.B.Location),
				ErrMid: errMid,
			}
			built.Objects[0], built.Objects[1], built.Objects[2] = t1.A, t1.B, t2.B
			built.Score = mover.Score(built.Objects, errMid)

			c.Movers.Add(built, c.Config.AperturePixels)
		}
	}
}

// SortMovers orders the mover list descending by score.
func (c *Coordinator) SortMovers() {
	c.Movers.Sort()
}

// SelectNextMover advances the display cursor over the mover list.
func (c *Coordinator) SelectNextMover(direction int) (mover.Mover, bool) {
	return c.Movers.SelectNext(direction)
}
