package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Overlay is one rectangle to draw onto the annotated image, in pixel
// coordinates, with the match confidence printed next to it.
type Overlay struct {
	Left       int
	Top        int
	Width      int
	Height     int
	Confidence float64
}

// AnnotateResult contains the annotated image encoded as base64 PNG.
type AnnotateResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
	Count       int    `json:"count"`
}

// AnnotateMatches draws match outlines and confidence labels onto a copy of
// the image and returns it as base64 PNG. colorHex selects the outline color
// ("#RRGGBB"); an unparseable value falls back to red. The label background
// is the outline color darkened in Lab space so the white glyphs stay
// readable on any outline color.
func AnnotateMatches(img image.Image, overlays []Overlay, colorHex string) (*AnnotateResult, error) {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	base, err := colorful.Hex(colorHex)
	if err != nil {
		base = colorful.Color{R: 1}
	}
	darkened := base.BlendLab(colorful.Color{}, 0.65)

	or, og, ob := base.RGB255()
	outline := color.RGBA{R: or, G: og, B: ob, A: 255}
	br, bg, bb := darkened.RGB255()
	labelBg := color.RGBA{R: br, G: bg, B: bb, A: 255}
	labelFg := color.RGBA{R: 255, G: 255, B: 255, A: 255}

	result := image.NewRGBA(bounds)
	draw.Draw(result, bounds, img, bounds.Min, draw.Src)

	for _, o := range overlays {
		drawRectOutline(result, o.Left, o.Top, o.Width, o.Height, outline)
		percent := int(o.Confidence*100 + 0.5)
		drawLabel(result, o.Left+2, o.Top+2, fmt.Sprintf("%d", percent), labelFg, labelBg)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, result); err != nil {
		return nil, fmt.Errorf("failed to encode annotated image: %w", err)
	}

	return &AnnotateResult{
		Width:       width,
		Height:      height,
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
		Count:       len(overlays),
	}, nil
}

// drawRectOutline draws a 1px rectangle outline clipped to the image.
func drawRectOutline(img *image.RGBA, left, top, width, height int, c color.RGBA) {
	bounds := img.Bounds()
	right := left + width - 1
	bottom := top + height - 1

	for x := left; x <= right; x++ {
		setClipped(img, bounds, x, top, c)
		setClipped(img, bounds, x, bottom, c)
	}
	for y := top; y <= bottom; y++ {
		setClipped(img, bounds, left, y, c)
		setClipped(img, bounds, right, y, c)
	}
}

func setClipped(img *image.RGBA, bounds image.Rectangle, x, y int, c color.RGBA) {
	if x >= bounds.Min.X && x < bounds.Max.X && y >= bounds.Min.Y && y < bounds.Max.Y {
		img.Set(x, y, c)
	}
}

// drawLabel draws a tiny numeric label at the given position using a 3x5
// pixel glyph font.
func drawLabel(img *image.RGBA, x, y int, text string, fg, bg color.RGBA) {
	glyphs := map[rune][]string{
		'0': {"111", "101", "101", "101", "111"},
		'1': {"010", "110", "010", "010", "111"},
		'2': {"111", "001", "111", "100", "111"},
		'3': {"111", "001", "111", "001", "111"},
		'4': {"101", "101", "111", "001", "001"},
		'5': {"111", "100", "111", "001", "111"},
		'6': {"111", "100", "111", "101", "111"},
		'7': {"111", "001", "001", "001", "001"},
		'8': {"111", "101", "111", "101", "111"},
		'9': {"111", "101", "111", "001", "111"},
	}

	bounds := img.Bounds()
	charWidth := 4
	labelWidth := len(text) * charWidth
	labelHeight := 7

	for dy := -1; dy < labelHeight; dy++ {
		for dx := -1; dx < labelWidth; dx++ {
			setClipped(img, bounds, x+dx, y+dy, bg)
		}
	}

	cx := x
	for _, ch := range text {
		glyph, ok := glyphs[ch]
		if !ok {
			cx += charWidth
			continue
		}
		for row, line := range glyph {
			for col, pixel := range line {
				if pixel == '1' {
					setClipped(img, bounds, cx+col, y+row, fg)
				}
			}
		}
		cx += charWidth
	}
}
