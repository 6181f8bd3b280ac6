package stack

import (
	"math"

	"huntmover/internal/geom"
	"huntmover/internal/model"
)

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// FindObjects scans the current tracked stack for candidate moving
// objects under the (motion, pa) hypothesis that produced it. The scan
// rectangle is inset by the accumulated edge-depletion band plus four
// aperture radii so the aperture never samples outside the frame. Each
// threshold-exceeding pixel is handed to refineObject; accepted objects
// have their aperture reset to the stack background in the scratch
// buffer so the scan doesn't redetect the same source.
func (gs *GroupStacker) FindObjects(motion, pa float64) []model.ImageObject {
	stacked := gs.Group.Tracked
	w, h := stacked.Width, stacked.Height

	exposureMin := gs.Group.Frames[0].ExposureSec / 60
	trackLen := motion * exposureMin / gs.Params.PixelScaleArcsecPerPixel
	ap := gs.Cache.Get(gs.Params.ApertureRadius, trackLen, pa)
	minPix := gs.Params.MinPixBase + int(math.Floor(trackLen))

	apRadiusInt := int(math.Ceil(ap.ApRadius))
	inset := gs.edgeBand() + 4*apRadiusInt
	if inset*2 >= w || inset*2 >= h {
		gs.Group.Objects = nil
		return nil
	}

	if len(gs.scratch) != len(stacked.Pixels) {
		gs.scratch = make([]float64, len(stacked.Pixels))
	}
	scratch := gs.scratch
	copy(scratch, stacked.Pixels)
	threshold := stacked.Threshold()

	var objects []model.ImageObject
	for j := inset; j < h-inset; j++ {
		for i := inset; i < w-inset; i++ {
			if scratch[j*w+i] <= threshold {
				continue
			}
			obj, ok := gs.refineObject(scratch, w, h, i, j, ap, minPix)
			if !ok {
				continue
			}
			obj.Ref = model.ObjectRef{Group: gs.Group.Index, Index: len(objects)}
			objects = append(objects, obj)
		}
	}

	gs.Group.Objects = objects
	return objects
}

// refineObject runs the iterative centroid-refinement and acceptance
// test for a candidate seeded at (seedX, seedY) in the tracked stack's
// scratch buffer. It shrinks the working radius c from a+0.5 downward in
// 0.5-pixel steps, recentring on the aperture's centre of brightness
// each iteration, until either the aperture saturates with
// threshold-exceeding pixels, the shrinking aperture reaches the FWHM
// core with enough flux or pixel count to accept, or one of the
// rejection conditions trips.
func (gs *GroupStacker) refineObject(scratch []float64, w, h, seedX, seedY int, ap geom.Aperture, minPix int) (model.ImageObject, bool) {
	stacked := gs.Group.Tracked
	background := stacked.Background()
	threshold := stacked.Threshold()
	sigmaStack := stacked.Sigma()
	a := ap.Radius

	requiredFlux := float64(minPix) * (threshold - background)
	requiredPix := int(math.Floor(float64(minPix) * 0.5))
	if requiredPix < 2 {
		requiredPix = 2
	}

	sample := func(cx, cy int, o geom.ApertureOffset) (float64, bool) {
		x, y := cx+o.X, cy+o.Y
		if x < 0 || y < 0 || x >= w || y >= h {
			return 0, false
		}
		return scratch[y*w+x], true
	}

	initFlux := 0.0
	for _, o := range ap.Offsets {
		if v, ok := sample(seedX, seedY, o); ok {
			initFlux += v - background
		}
	}
	if initFlux < requiredFlux {
		return model.ImageObject{}, false
	}

	centerX, centerY := seedX, seedY
	c := a + 0.5
	var allFlux, flux float64
	var pCount, tCount int
	var subX, subY float64

	for {
		sumX, sumY, fluxC := 0.0, 0.0, 0.0
		for _, o := range ap.Offsets {
			if o.D > c {
				break
			}
			v, ok := sample(centerX, centerY, o)
			if !ok {
				continue
			}
			p := v - background
			fluxC += p
			sumX += p * float64(o.X)
			sumY += p * float64(o.Y)
		}
		if fluxC <= 0 {
			fluxC = 1e-9
		}
		offX, offY := sumX/fluxC, sumY/fluxC
		roundX, roundY := math.Round(offX), math.Round(offY)
		newCenterX := centerX + int(roundX)
		newCenterY := centerY + int(roundY)
		subX, subY = offX-roundX, offY-roundY
		if absInt(newCenterX-seedX) > int(ap.ApRadius) || absInt(newCenterY-seedY) > int(ap.ApRadius) {
			return model.ImageObject{}, false
		}
		centerX, centerY = newCenterX, newCenterY

		c -= 0.5
		if c < 0 {
			c = 0
		}
		flux, pCount, tCount = 0, 0, 0
		for _, o := range ap.Offsets {
			if o.D > c {
				break
			}
			v, ok := sample(centerX, centerY, o)
			if !ok {
				continue
			}
			flux += v - background
			pCount++
			if v > threshold {
				tCount++
			}
		}
		if math.Abs(c-a) < 1e-9 {
			allFlux = flux
		}

		if tCount < requiredPix {
			return model.ImageObject{}, false
		}
		if tCount >= pCount {
			break
		}
		if pCount <= ap.FWHMCount {
			if flux > requiredFlux || tCount >= minPix {
				break
			}
			return model.ImageObject{}, false
		}
		if c <= 0 {
			return model.ImageObject{}, false
		}
	}

	snrDenom := allFlux - flux
	if snrDenom < sigmaStack {
		snrDenom = sigmaStack
	}
	snr := 0.0
	if snrDenom > 0 {
		snr = flux / snrDenom
	}

	for _, o := range ap.Offsets {
		x, y := centerX+o.X, centerY+o.Y
		if x >= 0 && y >= 0 && x < w && y < h {
			scratch[y*w+x] = background
		}
	}

	return model.ImageObject{
		Location: geom.FPoint{X: float64(centerX) + subX, Y: float64(centerY) + subY},
		ObSize:   pCount,
		TCount:   tCount,
		SNR:      snr,
		Flux:     flux,
	}, true
}
