package match

import (
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// varianceFloor keeps normalization finite on near-constant patches.
const varianceFloor = 1e-6

// binaryThreshold is the cut point for the binary preprocessing mode.
const binaryThreshold = 0.52

// PreprocessMode selects how sampled intensities are turned into features.
// The mode is resolved once per pass at configuration time.
type PreprocessMode int

const (
	// ModeHybrid blends grayscale, edge and binary features
	// (0.55/0.30/0.15). It is the default.
	ModeHybrid PreprocessMode = iota

	// ModeGrayscale passes the sampled intensities through unchanged.
	ModeGrayscale

	// ModeBinary thresholds intensities at 0.52 into exact 0/1 values.
	ModeBinary

	// ModeEdges replaces intensities with a Sobel gradient magnitude,
	// scaled by 1/4 and clamped to 1. Border samples stay 0.
	ModeEdges
)

// ParsePreprocessMode maps a wire name to a mode. Unknown or empty names
// resolve to the hybrid default, with ok=false for unknown non-empty names.
func ParsePreprocessMode(name string) (PreprocessMode, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "hybrid":
		return ModeHybrid, true
	case "grayscale", "gray":
		return ModeGrayscale, true
	case "binary":
		return ModeBinary, true
	case "edges", "edge":
		return ModeEdges, true
	}
	return ModeHybrid, false
}

// String returns the wire name of the mode.
func (m PreprocessMode) String() string {
	switch m {
	case ModeGrayscale:
		return "grayscale"
	case ModeBinary:
		return "binary"
	case ModeEdges:
		return "edges"
	default:
		return "hybrid"
	}
}

// ImageSource is the collaborator the engine samples pixels from. The engine
// never decodes or resizes images itself; it asks the source for a region
// resampled onto a fixed size×size grid of single-channel intensities in
// [0,1], row-major. Blur (noise suppression) and sharpen are applied by the
// source before the samples are returned, blur first.
type ImageSource interface {
	// Dimensions reports the image size in pixels. Either value being
	// zero or negative means the dimensions are unknown.
	Dimensions() (width, height int)

	// SampleRegion extracts the given pixel rectangle and stretch-fits it
	// to size×size intensity samples. It returns an error when the region
	// cannot be sampled; callers treat that as "no descriptor".
	SampleRegion(left, top, width, height, size int, blurSigma float64, sharpen bool) ([]float64, error)
}

// DescriptorOptions configure descriptor extraction for one pass.
type DescriptorOptions struct {
	Size      int
	Mode      PreprocessMode
	BlurSigma float64
	Sharpen   bool
}

// Descriptor is a fixed-length appearance vector for an image region:
// size×size elements, row-major, zero-mean and unit-variance.
type Descriptor []float64

// BuildDescriptor extracts a descriptor for the region of src covered by
// box. It fails softly: the second return value is false when the image
// dimensions are unknown or the box does not map to at least a 1×1 pixel
// region. A false result means "incomparable", not an error.
func BuildDescriptor(src ImageSource, box NormalizedBox, opts DescriptorOptions) (Descriptor, bool) {
	width, height := src.Dimensions()
	pixels, ok := box.ToPixels(width, height)
	if !ok {
		return nil, false
	}
	return descriptorFromRegion(src, pixels, opts)
}

// descriptorFromRegion is BuildDescriptor for an already-derived pixel box.
// Candidate windows from the grid generator take this path so the
// normalized-to-pixel rounding is not applied twice.
func descriptorFromRegion(src ImageSource, region PixelBox, opts DescriptorOptions) (Descriptor, bool) {
	if region.Width <= 0 || region.Height <= 0 {
		return nil, false
	}
	size := opts.Size
	if size < 2 {
		size = 2
	}

	samples, err := src.SampleRegion(region.Left, region.Top, region.Width, region.Height, size, opts.BlurSigma, opts.Sharpen)
	if err != nil || len(samples) != size*size {
		return nil, false
	}

	features := applyMode(samples, size, opts.Mode)
	normalize(features)
	return features, true
}

// applyMode converts raw intensity samples into the feature representation
// for the configured mode. The input slice is not modified.
func applyMode(samples []float64, size int, mode PreprocessMode) []float64 {
	switch mode {
	case ModeGrayscale:
		out := make([]float64, len(samples))
		copy(out, samples)
		return out
	case ModeBinary:
		return binarizeSamples(samples)
	case ModeEdges:
		return sobelMagnitude(samples, size)
	default:
		gray := samples
		edges := sobelMagnitude(samples, size)
		binary := binarizeSamples(samples)
		out := make([]float64, len(samples))
		for i := range out {
			v := 0.55*gray[i] + 0.30*edges[i] + 0.15*binary[i]
			if v > 1 {
				v = 1
			}
			out[i] = v
		}
		return out
	}
}

func binarizeSamples(samples []float64) []float64 {
	out := make([]float64, len(samples))
	for i, v := range samples {
		if v >= binaryThreshold {
			out[i] = 1
		}
	}
	return out
}

// sobelMagnitude computes a 3×3 Sobel gradient magnitude over the interior
// of the size×size grid. The border row and column are left at 0 and the
// magnitude is scaled by 1/4 and clamped to 1.
func sobelMagnitude(samples []float64, size int) []float64 {
	out := make([]float64, len(samples))
	for y := 1; y < size-1; y++ {
		for x := 1; x < size-1; x++ {
			gx := samples[(y-1)*size+x+1] + 2*samples[y*size+x+1] + samples[(y+1)*size+x+1] -
				samples[(y-1)*size+x-1] - 2*samples[y*size+x-1] - samples[(y+1)*size+x-1]
			gy := samples[(y+1)*size+x-1] + 2*samples[(y+1)*size+x] + samples[(y+1)*size+x+1] -
				samples[(y-1)*size+x-1] - 2*samples[(y-1)*size+x] - samples[(y-1)*size+x+1]
			m := math.Sqrt(gx*gx+gy*gy) / 4
			if m > 1 {
				m = 1
			}
			out[y*size+x] = m
		}
	}
	return out
}

// normalize shifts the vector to zero mean and scales it to unit variance
// in place. The variance floor keeps flat patches finite.
func normalize(v []float64) {
	if len(v) == 0 {
		return
	}
	mean := stat.Mean(v, nil)
	floats.AddConst(-mean, v)

	variance := floats.Dot(v, v) / float64(len(v))
	if variance < varianceFloor {
		variance = varianceFloor
	}
	floats.Scale(1/math.Sqrt(variance), v)
}
