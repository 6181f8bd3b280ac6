// Package stack implements StackedImage and GroupStacker: the shared
// pixel buffer with histogram-based background/sigma/threshold, and the
// per-group static median-stack, tracked mean-stack and object search.
// The sort-and-pick-middle combine follows the usual
// StackMedian/StackMean batch-accumulate shape for this kind of
// pixel-stacking code.
package stack

const stackedHistBins = 1024

// StackedImage is a float pixel grid matching frame dimensions, plus the
// histogram-derived background/sigma/threshold/black/white levels used
// by detection and display.
type StackedImage struct {
	Width, Height int
	Pixels        []float64

	background float64
	sigma      float64
	black      float64
	white      float64
	threshold  float64
	Dirty      bool // set after every rebuild, cleared by the renderer
}

// NewStackedImage allocates a zeroed stacked image of the given
// dimensions.
func NewStackedImage(width, height int) *StackedImage {
	return &StackedImage{Width: width, Height: height, Pixels: make([]float64, width*height)}
}

func (s *StackedImage) idx(x, y int) int { return y*s.Width + x }

// At returns the pixel at (x,y), or 0 outside the image.
func (s *StackedImage) At(x, y int) float64 {
	if x < 0 || y < 0 || x >= s.Width || y >= s.Height {
		return 0
	}
	return s.Pixels[s.idx(x, y)]
}

func (s *StackedImage) set(x, y int, v float64) { s.Pixels[s.idx(x, y)] = v }

// Background returns the histogram-derived background level.
func (s *StackedImage) Background() float64 { return s.background }

// Sigma returns the histogram-derived noise sigma.
func (s *StackedImage) Sigma() float64 { return s.sigma }

// Black returns the stretch black level.
func (s *StackedImage) Black() float64 { return s.black }

// White returns the stretch white level.
func (s *StackedImage) White() float64 { return s.white }

// Threshold returns the detection/star-mask threshold.
func (s *StackedImage) Threshold() float64 { return s.threshold }

// ComputeHistogram builds a 1024-bin histogram over pixels already in
// [0,1], excluding exactly-0 and exactly-1 bins from the count (those
// are out-of-bounds / saturated placeholders, not data). The median
// gives the background; the 0.8413 cumulative point above it gives
// sigma. kSigma selects the detection threshold's sigma multiplier:
// callers pass the detection sigma (sigma1) for group stacks and the
// star-mask sigma (sigma2) for the coordinator's superstack.
func (s *StackedImage) ComputeHistogram(blackSigma, whiteSigma, kSigma float64) {
	hist := make([]int, stackedHistBins)
	total := 0
	for _, v := range s.Pixels {
		if v <= 0 || v >= 1 {
			continue
		}
		bin := int(v * float64(stackedHistBins))
		if bin >= stackedHistBins {
			bin = stackedHistBins - 1
		}
		hist[bin]++
		total++
	}

	medianBin := fractionBin(hist, total, 0.5)
	oneSigmaBin := fractionBin(hist, total, 0.8413)

	b := (float64(medianBin) + 0.5) / float64(stackedHistBins)
	oneSigmaVal := (float64(oneSigmaBin) + 0.5) / float64(stackedHistBins)
	sigma := oneSigmaVal - b
	if sigma < 0 {
		sigma = 0
	}

	s.background = b
	s.sigma = sigma
	s.black = maxF(0, b-blackSigma*sigma)
	s.white = minF(1, b+whiteSigma*sigma)
	s.threshold = minF(1, b+kSigma*sigma)
	s.Dirty = true
}

func fractionBin(hist []int, total int, fraction float64) int {
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

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
