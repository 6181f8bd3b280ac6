// Package frame implements FrameImage: per-frame pixel buffer and
// metadata, histogram/background estimation, and the filtering,
// alignment and subtraction operations a group's frames need before
// stacking.
package frame

import (
	"math"

	"huntmover/internal/astrom"
	"huntmover/internal/geom"
)

// Frame is one astronomical exposure: a float pixel grid plus the
// metadata needed to align and stack it against its group's siblings.
// Pixels are stored row-major, index = y*Width+x. After preparation
// (computeHistogram -> stretch) every pixel satisfies 0 <= p <= 1.
type Frame struct {
	Width, Height int
	Pixels        []float64

	Timestamp   float64 // continuous day count (e.g. Julian day)
	ExposureSec float64
	Ref         astrom.Point
	RefPixelX   int
	RefPixelY   int
	PixelScaleX float64 // radians/pixel
	PixelScaleY float64
	Rotation    float64 // field rotation, radians

	Background float64
	Sigma      float64
	Black      float64
	White      float64
	Mu         float64 // running mean of post-subtraction pixels

	StaticOffset  geom.Offset
	TrackedOffset geom.Point

	nSubtracted int
}

// New allocates a frame of the given dimensions with pixel data copied
// from raw (left untouched; raw is not retained).
func New(width, height int, raw []float64) *Frame {
	f := &Frame{Width: width, Height: height, Pixels: make([]float64, width*height)}
	copy(f.Pixels, raw)
	return f
}

func (f *Frame) idx(x, y int) int { return y*f.Width + x }

// At returns the pixel value at (x,y), or 0 if out of bounds.
func (f *Frame) At(x, y int) float64 {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return 0
	}
	return f.Pixels[f.idx(x, y)]
}

// InBounds reports whether (x,y) is within the frame.
func (f *Frame) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < f.Width && y < f.Height
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

const histBins = 65536

// HistogramParams carries the configured sigma-clip constants
// computeHistogram needs.
type HistogramParams struct {
	LowerSigmaClip float64 // K, pass-2 histogram clip
	BlackSigma     float64 // K_b
	WhiteSigma     float64 // K_w
}

// ComputeHistogram performs a two-pass robust background/sigma
// estimate: a 65536-bin histogram of raw pixel values, an initial
// sigma from the 2-sigma-low point below the median, a second pass
// clipping bins below b0-K*sigma0, and final black/white stretch
// levels.
func (f *Frame) ComputeHistogram(p HistogramParams) {
	hist := make([]int, histBins)
	for _, v := range f.Pixels {
		bin := int(clip(v, 0, histBins-1))
		hist[bin]++
	}

	b0 := medianBin(hist)
	lowBin := lowSigmaBin(hist, b0)
	sigma0 := (float64(b0) - float64(lowBin)) / 2
	if sigma0 < 0 {
		sigma0 = 0
	}

	clipThreshold := float64(b0) - p.LowerSigmaClip*sigma0
	hist2 := make([]int, histBins)
	copy(hist2, hist)
	for i := 0; i < histBins; i++ {
		if float64(i) < clipThreshold {
			hist2[i] = 0
		}
	}

	b := medianBin(hist2)
	lowBin2 := lowSigmaBin(hist2, b)
	sigma := (float64(b) - float64(lowBin2)) / 2
	if sigma < 0 {
		sigma = 0
	}

	f.Background = float64(b)
	f.Sigma = sigma
	f.Black = clip(float64(b)-p.BlackSigma*sigma, 0, histBins-1)
	f.White = clip(float64(b)+p.WhiteSigma*sigma, 0, histBins-1)
}

// medianBin returns the bin at which cumulative count reaches half the
// total.
func medianBin(hist []int) int {
	return fractionBin(hist, 0.5)
}

// lowSigmaBin returns the bin below ceil containing the 4.55% (~2-sigma
// lower) cumulative fraction, searched from bin 0 up to ceil.
func lowSigmaBin(hist []int, ceil int) int {
	total := 0
	for i := 0; i <= ceil && i < len(hist); i++ {
		total += hist[i]
	}
	if total == 0 {
		return ceil
	}
	target := 0.0455 * float64(total)
	cum := 0
	for i := 0; i <= ceil && i < len(hist); i++ {
		cum += hist[i]
		if float64(cum) >= target {
			return i
		}
	}
	return ceil
}

// fractionBin returns the first bin at which the cumulative count over
// the whole histogram reaches the given fraction of the total.
func fractionBin(hist []int, fraction float64) int {
	total := 0
	for _, c := range hist {
		total += c
	}
	if total == 0 {
		return 0
	}
	target := fraction * float64(total)
	cum := 0
	for i, c := range hist {
		cum += c
		if float64(cum) >= target {
			return i
		}
	}
	return len(hist) - 1
}

// Stretch linearly remaps [black, white] to [0,1], saturating outside.
// It also restretches the stored background into the new scale and
// resets black/white to the normalized 0/1 bounds.
func (f *Frame) Stretch() {
	span := f.White - f.Black
	if span == 0 {
		span = 1
	}
	for i, v := range f.Pixels {
		f.Pixels[i] = clip((v-f.Black)/span, 0, 1)
	}
	f.Background = clip((f.Background-f.Black)/span, 0, 1)
	f.Sigma = f.Sigma / span
	f.Black = 0
	f.White = 1
}

// gaussian3x3 holds the corner/edge/centre coefficients for the
// optional 3x3 smoothing kernel.
var gaussian3x3 = [3][3]float64{
	{0.062147, 0.124294, 0.062147},
	{0.124294, 0.254237, 0.124294},
	{0.062147, 0.124294, 0.062147},
}

// Blur applies the optional 3x3 Gaussian convolution. Border pixels are
// left unchanged.
func (f *Frame) Blur() {
	if f.Width < 3 || f.Height < 3 {
		return
	}
	out := make([]float64, len(f.Pixels))
	copy(out, f.Pixels)
	for y := 1; y < f.Height-1; y++ {
		for x := 1; x < f.Width-1; x++ {
			sum := 0.0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					sum += f.At(x+dx, y+dy) * gaussian3x3[dy+1][dx+1]
				}
			}
			out[f.idx(x, y)] = sum
		}
	}
	f.Pixels = out
}

// DeLine divides every pixel in each column by that column's median
// ratio of pixel/background, suppressing fixed vertical gradient
// artifacts. Requires ComputeHistogram to have run first.
func (f *Frame) DeLine() {
	if f.Background == 0 {
		return
	}
	ratios := make([]float64, f.Height)
	for x := 0; x < f.Width; x++ {
		for y := 0; y < f.Height; y++ {
			ratios[y] = f.At(x, y) / f.Background
		}
		m := median(ratios)
		if m == 0 {
			continue
		}
		for y := 0; y < f.Height; y++ {
			idx := f.idx(x, y)
			f.Pixels[idx] = f.Pixels[idx] / m
		}
	}
}

func median(vals []float64) float64 {
	sorted := append([]float64(nil), vals...)
	sortFloat64s(sorted)
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func sortFloat64s(v []float64) {
	// simple insertion sort is adequate: columns are image-height sized,
	// not hot-loop critical the way stacking is.
	for i := 1; i < len(v); i++ {
		for j := i; j > 0 && v[j-1] > v[j]; j-- {
			v[j-1], v[j] = v[j], v[j-1]
		}
	}
}

// SetStaticOffset computes this frame's (dx,dy) alignment offset to the
// run's common reference point via the tangent-plane projection, then
// rotates it by the field rotation angle.
func (f *Frame) SetStaticOffset(ref astrom.Point, fieldRotation float64) {
	dx, dy := astrom.TangentOffset(ref, f.Ref, f.PixelScaleX, f.PixelScaleY)
	cosT, sinT := math.Cos(fieldRotation), math.Sin(fieldRotation)
	f.StaticOffset = geom.Offset{
		X: dx*cosT - dy*sinT,
		Y: dx*sinT + dy*cosT,
	}
}

// SetTrackedOffset sets the integer pixel offset such that a synthetic
// object moving at (motion arcsec/min, PA radians) in the sky
// accumulates aligned across the group's frames, computed from
// (frameTime - groupMidTime) * motion / pixelScale.
func (f *Frame) SetTrackedOffset(groupMidTimeDays, motionArcsecPerMin, pa float64, pixelScaleArcsecPerPixel float64) {
	dtMinutes := (f.Timestamp - groupMidTimeDays) * 24 * 60
	distPixels := 0.0
	if pixelScaleArcsecPerPixel != 0 {
		distPixels = motionArcsecPerMin * dtMinutes / pixelScaleArcsecPerPixel
	}
	dx := distPixels * math.Sin(pa)
	dy := distPixels * math.Cos(pa)
	f.TrackedOffset = geom.Point{X: int(math.Round(dx)), Y: int(math.Round(dy))}
}

// SuperStack is the minimal view of the coordinator's star-mask
// superstack that Subtract needs: pixel access plus background/threshold.
type SuperStack interface {
	At(x, y int) float64
	Background() float64
	Threshold() float64
}

// Subtract performs per-frame star subtraction against the cross-group
// superstack, shifted by this frame's static offset. Where the
// superstack exceeds its threshold (a star core), the frame pixel is
// hard-masked to the frame's own background; elsewhere the superstack's
// excess over its own background is subtracted. Results are clamped to
// [0,1] and the running post-subtraction mean mu is updated.
func (f *Frame) Subtract(super SuperStack) {
	sum := 0.0
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			sx := x + int(math.Round(f.StaticOffset.X))
			sy := y + int(math.Round(f.StaticOffset.Y))
			sv := super.At(sx, sy)

			idx := f.idx(x, y)
			var out float64
			if sv > super.Threshold() {
				out = f.Background
			} else {
				excess := sv - super.Background()
				out = clip(f.Pixels[idx]-excess, 0, 1)
			}
			f.Pixels[idx] = out
			sum += out
		}
	}
	f.nSubtracted++
	n := float64(len(f.Pixels))
	if n > 0 {
		f.Mu = sum / n
	}
}

// Divide performs the optional flat-field division: pixel-wise divide
// by the flat's pixel where positive, clamped to [0,1].
func (f *Frame) Divide(flat []float64) {
	if len(flat) != len(f.Pixels) {
		return
	}
	for i, v := range f.Pixels {
		if flat[i] > 0 {
			f.Pixels[i] = clip(v/flat[i], 0, 1)
		}
	}
}
