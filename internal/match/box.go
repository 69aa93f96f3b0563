package match

import "math"

// NormalizedBox is a rectangle expressed relative to the image dimensions.
//
// All four fields are fractions in [0,1]: X and Y locate the top-left corner,
// Width and Height the extent. A box with X+Width > 1 is tolerated on input;
// conversion to pixels clamps it into the image.
type NormalizedBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// PixelBox is a rectangle in integer pixel units. After derivation from a
// NormalizedBox both Width and Height are at least 1.
type PixelBox struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Right returns the exclusive right edge.
func (p PixelBox) Right() int { return p.Left + p.Width }

// Bottom returns the exclusive bottom edge.
func (p PixelBox) Bottom() int { return p.Top + p.Height }

// ToPixels converts the box into pixel coordinates for an image of the given
// dimensions. The box is clamped into [0,1] first, so a slightly
// out-of-range selection still maps to a valid region. The second return
// value is false when the image dimensions are unknown (zero or negative).
//
// The resulting box always lies fully inside the image and has sides of at
// least one pixel.
func (b NormalizedBox) ToPixels(width, height int) (PixelBox, bool) {
	if width <= 0 || height <= 0 {
		return PixelBox{}, false
	}

	x := clampFloat(b.X, 0, 1)
	y := clampFloat(b.Y, 0, 1)
	w := clampFloat(b.Width, 0.0001, 1-x)
	h := clampFloat(b.Height, 0.0001, 1-y)

	left := int(math.Round(x * float64(width)))
	top := int(math.Round(y * float64(height)))
	right := int(math.Round((x + w) * float64(width)))
	bottom := int(math.Round((y + h) * float64(height)))

	if left >= width {
		left = width - 1
	}
	if top >= height {
		top = height - 1
	}
	if right <= left {
		right = left + 1
	}
	if bottom <= top {
		bottom = top + 1
	}
	if right > width {
		right = width
		if left >= right {
			left = right - 1
		}
	}
	if bottom > height {
		bottom = height
		if top >= bottom {
			top = bottom - 1
		}
	}

	return PixelBox{Left: left, Top: top, Width: right - left, Height: bottom - top}, true
}

// Expand grows the box symmetrically by the given fraction of its own width
// and height, clamped to the unit square. A non-positive padding returns the
// box unchanged.
func (b NormalizedBox) Expand(padding float64) NormalizedBox {
	if padding <= 0 {
		return b
	}
	padW := b.Width * padding
	padH := b.Height * padding
	x := clampFloat(b.X-padW, 0, 1)
	y := clampFloat(b.Y-padH, 0, 1)
	right := clampFloat(b.X+b.Width+padW, 0, 1)
	bottom := clampFloat(b.Y+b.Height+padH, 0, 1)
	return NormalizedBox{X: x, Y: y, Width: right - x, Height: bottom - y}
}

// IoU returns the intersection-over-union of two boxes, 0 when they do not
// overlap or when either has no area.
func (b NormalizedBox) IoU(other NormalizedBox) float64 {
	x1 := math.Max(b.X, other.X)
	y1 := math.Max(b.Y, other.Y)
	x2 := math.Min(b.X+b.Width, other.X+other.Width)
	y2 := math.Min(b.Y+b.Height, other.Y+other.Height)

	interW := x2 - x1
	interH := y2 - y1
	if interW <= 0 || interH <= 0 {
		return 0
	}
	inter := interW * interH
	union := b.Width*b.Height + other.Width*other.Height - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// toNormalized maps a pixel box back into fractional coordinates.
func (p PixelBox) toNormalized(width, height int) NormalizedBox {
	if width <= 0 || height <= 0 {
		return NormalizedBox{}
	}
	return NormalizedBox{
		X:      clampFloat(float64(p.Left)/float64(width), 0, 1),
		Y:      clampFloat(float64(p.Top)/float64(height), 0, 1),
		Width:  clampFloat(float64(p.Width)/float64(width), 0, 1),
		Height: clampFloat(float64(p.Height)/float64(height), 0, 1),
	}
}

func clampFloat(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
