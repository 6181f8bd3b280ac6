package coordinator

import (
	"fmt"

	"gopkg.in/gographics/imagick.v3/imagick"
)

// ExportPreview writes a stacked image's float pixel buffer out as a
// 16-bit TIFF for the display collaborator, via the
// ConstituteImage/SetImageDepth(16)/WriteImage sequence.
func ExportPreview(width, height int, pixels []float64, path string) error {
	if len(pixels) != width*height {
		return fmt.Errorf("export preview: pixel count %d does not match %dx%d", len(pixels), width, height)
	}

	imagick.Initialize()
	defer imagick.Terminate()

	mw := imagick.NewMagickWand()
	defer mw.Destroy()

	rgb := make([]float64, width*height*3)
	for i, v := range pixels {
		rgb[i*3+0] = v
		rgb[i*3+1] = v
		rgb[i*3+2] = v
	}

	if err := mw.ConstituteImage(uint(width), uint(height), "RGB", imagick.PIXEL_FLOAT, rgb); err != nil {
		return fmt.Errorf("export preview: constitute image: %w", err)
	}

	mw.SetImageFormat("TIFF")
	mw.SetImageDepth(16)

	if err := mw.WriteImage(path); err != nil {
		return fmt.Errorf("export preview: write image: %w", err)
	}
	return nil
}
