package match

import "math"

const minWindowSide = 4

// GenerateCandidates enumerates the candidate windows for one pass.
//
// The reference box fixes the window aspect and size at scale 1. For each
// scale the window is round(reference·scale) with a 4px minimum per side,
// and it slides across the search region at a stride of
// round(dimension·strideFactor), strideFactor clamped to [0.1,1] and the
// stride to at least 1px.
//
// The search region is intersected with the image bounds first. When the
// scaled window is larger than the available search area the scale still
// contributes a single best-effort box clipped to the region, so every
// requested scale yields at least one candidate.
//
// Generation order is scale-major, then row-major within a scale. The order
// matters for reproducibility, not correctness.
func GenerateCandidates(reference PixelBox, imgWidth, imgHeight int, search PixelBox, scales []float64, strideFactor float64) []PixelBox {
	if imgWidth <= 0 || imgHeight <= 0 || reference.Width <= 0 || reference.Height <= 0 {
		return nil
	}

	search = intersectBounds(search, imgWidth, imgHeight)
	if search.Width <= 0 || search.Height <= 0 {
		return nil
	}

	strideFactor = clampFloat(strideFactor, 0.1, 1)

	var out []PixelBox
	for _, scale := range scales {
		w := int(math.Round(float64(reference.Width) * scale))
		h := int(math.Round(float64(reference.Height) * scale))
		if w < minWindowSide {
			w = minWindowSide
		}
		if h < minWindowSide {
			h = minWindowSide
		}

		if w > search.Width || h > search.Height {
			// Best-effort heuristic: the window cannot fit, so clip it
			// to the search region rather than dropping the scale.
			out = append(out, search)
			continue
		}

		strideX := int(math.Round(float64(w) * strideFactor))
		strideY := int(math.Round(float64(h) * strideFactor))
		if strideX < 1 {
			strideX = 1
		}
		if strideY < 1 {
			strideY = 1
		}

		maxLeft := search.Right() - w
		maxTop := search.Bottom() - h
		for top := search.Top; top <= maxTop; top += strideY {
			for left := search.Left; left <= maxLeft; left += strideX {
				out = append(out, PixelBox{Left: left, Top: top, Width: w, Height: h})
			}
		}
	}
	return out
}

// CapCandidates bounds the candidate count deterministically. When the list
// exceeds max it is subsampled at a uniform stride over the candidate index,
// preserving generation order, so repeated runs stay byte-identical.
func CapCandidates(candidates []PixelBox, max int) []PixelBox {
	if max <= 0 || len(candidates) <= max {
		return candidates
	}
	step := float64(len(candidates)) / float64(max)
	out := make([]PixelBox, 0, max)
	for i := 0; i < max; i++ {
		out = append(out, candidates[int(float64(i)*step)])
	}
	return out
}

// intersectBounds clips a box to the image rectangle.
func intersectBounds(b PixelBox, width, height int) PixelBox {
	left := b.Left
	top := b.Top
	if left < 0 {
		left = 0
	}
	if top < 0 {
		top = 0
	}
	right := b.Right()
	bottom := b.Bottom()
	if right > width {
		right = width
	}
	if bottom > height {
		bottom = height
	}
	return PixelBox{Left: left, Top: top, Width: right - left, Height: bottom - top}
}
