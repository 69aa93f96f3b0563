package imaging

import (
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"
)

// Source wraps a decoded image and exposes the region-sampling operation the
// matching engine builds descriptors from. A Source is immutable and safe
// for concurrent use; every sample works on a fresh crop.
type Source struct {
	img    image.Image
	width  int
	height int
}

// NewSource creates a sampling source for the given image.
func NewSource(img image.Image) *Source {
	bounds := img.Bounds()
	return &Source{img: img, width: bounds.Dx(), height: bounds.Dy()}
}

// Dimensions reports the image size in pixels.
func (s *Source) Dimensions() (width, height int) {
	return s.width, s.height
}

// SampleRegion extracts the given pixel rectangle, stretch-fits it to a
// size×size grid and returns row-major single-channel intensities in [0,1].
//
// A positive blurSigma applies a Gaussian blur to the resampled patch for
// noise suppression; sharpen applies a sharpening convolution afterwards.
// Both run before the intensities are read back, blur first.
//
// The region must lie fully inside the image and have positive extent;
// otherwise an error is returned for the caller to treat as "no descriptor".
func (s *Source) SampleRegion(left, top, width, height, size int, blurSigma float64, sharpen bool) ([]float64, error) {
	if size < 1 {
		return nil, fmt.Errorf("invalid sample size %d", size)
	}
	if width <= 0 || height <= 0 || left < 0 || top < 0 || left+width > s.width || top+height > s.height {
		return nil, fmt.Errorf("region (%d,%d)+%dx%d outside image bounds %dx%d",
			left, top, width, height, s.width, s.height)
	}

	bounds := s.img.Bounds()
	rect := image.Rect(bounds.Min.X+left, bounds.Min.Y+top, bounds.Min.X+left+width, bounds.Min.Y+top+height)

	patch := imaging.Crop(s.img, rect)
	// Both target dimensions are given, so Resize stretch-fits rather
	// than preserving aspect.
	resized := imaging.Resize(patch, size, size, imaging.Lanczos)
	gray := imaging.Grayscale(resized)

	var surface image.Image = gray
	if blurSigma > 0 {
		surface = imaging.Blur(gray, blurSigma)
	}
	if sharpen {
		surface = effect.Sharpen(surface)
	}

	return readIntensities(surface, size), nil
}

// readIntensities converts a size×size single-channel image into row-major
// luminance samples in [0,1] using ITU-R BT.601 weights.
func readIntensities(img image.Image, size int) []float64 {
	bounds := img.Bounds()
	out := make([]float64, size*size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			rf := float64(r>>8) / 255.0
			gf := float64(g>>8) / 255.0
			bf := float64(b>>8) / 255.0
			out[y*size+x] = 0.299*rf + 0.587*gf + 0.114*bf
		}
	}
	return out
}
