package loader

import (
	"fmt"
	"math"

	"huntmover/internal/astrom"
	"huntmover/internal/frame"
	"huntmover/internal/stack"
)

// Adopt converts the three RawGroups a Source produced into the
// stack.Groups internal/coordinator operates on, flattening each
// RawFrame's [][]float32 grid into a frame.Frame and converting its
// degree-denominated WCS reference point into the radians astrom.Point
// uses internally. Frames without their own pixel scale fall back to
// pixelScale (arcsec/pixel, as a Source reports it), converted to
// radians/pixel.
func Adopt(groups [3]RawGroup, pixelScale float64) ([3]*stack.Group, error) {
	var out [3]*stack.Group
	for i, rg := range groups {
		frames := make([]*frame.Frame, len(rg.Frames))
		for j, rf := range rg.Frames {
			frames[j] = adoptFrame(rf, pixelScale)
		}
		g, err := stack.NewGroup(i, frames)
		if err != nil {
			return out, fmt.Errorf("group %d: %w", i, err)
		}
		out[i] = g
	}
	return out, nil
}

func adoptFrame(rf RawFrame, pixelScale float64) *frame.Frame {
	pixels := make([]float64, rf.Width*rf.Height)
	for y := 0; y < rf.Height; y++ {
		for x := 0; x < rf.Width; x++ {
			if y < len(rf.Pixels) && x < len(rf.Pixels[y]) {
				pixels[y*rf.Width+x] = float64(rf.Pixels[y][x])
			}
		}
	}
	f := frame.New(rf.Width, rf.Height, pixels)
	f.Timestamp = rf.JulianDay
	f.ExposureSec = rf.ExposureSec
	f.Ref = astrom.Point{RA: rf.RefRA * math.Pi / 180, Dec: rf.RefDec * math.Pi / 180}
	f.RefPixelX = rf.RefPixelX
	f.RefPixelY = rf.RefPixelY
	scaleX, scaleY := rf.PixelScaleX, rf.PixelScaleY
	fallback := pixelScale * math.Pi / (180 * 3600)
	if scaleX == 0 {
		scaleX = fallback
	}
	if scaleY == 0 {
		scaleY = fallback
	}
	f.PixelScaleX = scaleX
	f.PixelScaleY = scaleY
	f.Rotation = rf.Rotation
	return f
}
