package loader

import (
	"context"
	"math"
	"math/rand"
)

// SyntheticParams configures SyntheticSource's generated dataset.
type SyntheticParams struct {
	Width, Height   int
	FramesPerGroup  int
	FrameGapMinutes float64 // spacing between frames within a group
	GroupGapMinutes float64 // spacing between each group's midpoint
	ExposureSec     float64

	PixelScaleArcsecPerPixel float64
	MotionArcsecPerMin       float64
	PARadians                float64

	BlobAmplitude float64 // peak pixel value added at the blob center, on top of background
	Background    float64
	NoiseSigma    float64

	StartX, StartY float64 // blob position in group 0's first frame
	Seed           int64
}

// DefaultSyntheticParams returns a small, fast three-group dataset
// suitable for exercising a sweep run end to end.
func DefaultSyntheticParams() SyntheticParams {
	return SyntheticParams{
		Width: 64, Height: 64,
		FramesPerGroup:  3,
		FrameGapMinutes: 1,
		GroupGapMinutes: 30,
		ExposureSec:     30,

		PixelScaleArcsecPerPixel: 1.0,
		MotionArcsecPerMin:       2.0,
		PARadians:                math.Pi / 4,

		BlobAmplitude: 0.8,
		Background:    0.1,
		NoiseSigma:    0.01,

		StartX: 32, StartY: 32,
		Seed: 1,
	}
}

// SyntheticSource is an in-memory Source that paints a Gaussian blob
// moving at a configured (motion, PA) across three groups of
// flat-noise frames, for tests and the `huntmover simulate` CLI command.
type SyntheticSource struct {
	Params SyntheticParams
}

// NewSyntheticSource builds a SyntheticSource with the given parameters.
func NewSyntheticSource(p SyntheticParams) *SyntheticSource {
	return &SyntheticSource{Params: p}
}

// LoadGroups generates three groups of frames with a moving blob
// embedded per the configured ground-truth motion and position angle.
func (s *SyntheticSource) LoadGroups(ctx context.Context) ([3]RawGroup, float64, error) {
	p := s.Params
	rng := rand.New(rand.NewSource(p.Seed))

	pixelsPerMinute := 0.0
	if p.PixelScaleArcsecPerPixel != 0 {
		pixelsPerMinute = p.MotionArcsecPerMin / p.PixelScaleArcsecPerPixel
	}

	var groups [3]RawGroup
	for gi := 0; gi < 3; gi++ {
		groupStart := float64(gi) * p.GroupGapMinutes
		frames := make([]RawFrame, p.FramesPerGroup)
		for fi := 0; fi < p.FramesPerGroup; fi++ {
			elapsedMinutes := groupStart + float64(fi)*p.FrameGapMinutes
			drift := pixelsPerMinute * elapsedMinutes
			cx := p.StartX + drift*math.Sin(p.PARadians)
			cy := p.StartY + drift*math.Cos(p.PARadians)

			frames[fi] = s.renderFrame(rng, cx, cy, elapsedMinutes)
		}
		groups[gi] = RawGroup{Frames: frames}
	}
	return groups, p.PixelScaleArcsecPerPixel, nil
}

func (s *SyntheticSource) renderFrame(rng *rand.Rand, cx, cy, elapsedMinutes float64) RawFrame {
	p := s.Params
	pixels := make([][]float32, p.Height)
	const sigma = 1.5
	for y := 0; y < p.Height; y++ {
		row := make([]float32, p.Width)
		for x := 0; x < p.Width; x++ {
			dx, dy := float64(x)-cx, float64(y)-cy
			blob := p.BlobAmplitude * math.Exp(-(dx*dx+dy*dy)/(2*sigma*sigma))
			noise := rng.NormFloat64() * p.NoiseSigma
			v := p.Background + blob + noise
			if v < 0 {
				v = 0
			} else if v > 1 {
				v = 1
			}
			row[x] = float32(v)
		}
		pixels[y] = row
	}

	return RawFrame{
		Width: p.Width, Height: p.Height,
		Pixels:      pixels,
		ExposureSec: p.ExposureSec,
		JulianDay:   2460000 + elapsedMinutes/1440,
		RefRA:       0, RefDec: 0,
		RefPixelX:   p.Width / 2,
		RefPixelY:   p.Height / 2,
		PixelScaleX: p.PixelScaleArcsecPerPixel * math.Pi / (180 * 3600),
		PixelScaleY: p.PixelScaleArcsecPerPixel * math.Pi / (180 * 3600),
		Rotation:    0,
	}
}
