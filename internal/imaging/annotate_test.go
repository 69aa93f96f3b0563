package imaging

import (
	"bytes"
	"encoding/base64"
	"image/color"
	"image/png"
	"testing"
)

func TestAnnotateMatches(t *testing.T) {
	img := createInMemoryImage(120, 90, color.RGBA{200, 200, 200, 255})
	overlays := []Overlay{
		{Left: 10, Top: 10, Width: 40, Height: 30, Confidence: 0.92},
		{Left: 60, Top: 40, Width: 30, Height: 30, Confidence: 0.5},
	}

	result, err := AnnotateMatches(img, overlays, "#00ff00")
	if err != nil {
		t.Fatalf("AnnotateMatches failed: %v", err)
	}

	if result.Width != 120 || result.Height != 90 {
		t.Errorf("dimensions: got %dx%d, want 120x90", result.Width, result.Height)
	}
	if result.Count != 2 {
		t.Errorf("count: got %d, want 2", result.Count)
	}
	if result.MimeType != "image/png" {
		t.Errorf("mime type: got %q, want image/png", result.MimeType)
	}

	raw, err := base64.StdEncoding.DecodeString(result.ImageBase64)
	if err != nil {
		t.Fatalf("result is not valid base64: %v", err)
	}
	decoded, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("result is not a valid PNG: %v", err)
	}
	if decoded.Bounds().Dx() != 120 || decoded.Bounds().Dy() != 90 {
		t.Errorf("decoded dimensions: got %dx%d, want 120x90",
			decoded.Bounds().Dx(), decoded.Bounds().Dy())
	}

	// The outline color should appear along the first overlay's top edge.
	r, g, b, _ := decoded.At(30, 10).RGBA()
	if !(g > 0xc000 && r < 0x4000 && b < 0x4000) {
		t.Errorf("expected green outline pixel at (30,10), got r=%d g=%d b=%d", r>>8, g>>8, b>>8)
	}
}

func TestAnnotateMatches_OutlineClippedToImage(t *testing.T) {
	img := createInMemoryImage(40, 40, color.White)
	overlays := []Overlay{
		{Left: -10, Top: -10, Width: 100, Height: 100, Confidence: 1},
	}

	if _, err := AnnotateMatches(img, overlays, "#ff0000"); err != nil {
		t.Fatalf("overlays extending past the image should be clipped, got: %v", err)
	}
}

func TestAnnotateMatches_BadColorFallsBackToRed(t *testing.T) {
	img := createInMemoryImage(60, 60, color.White)
	overlays := []Overlay{{Left: 5, Top: 5, Width: 50, Height: 50, Confidence: 0.75}}

	result, err := AnnotateMatches(img, overlays, "not-a-color")
	if err != nil {
		t.Fatalf("AnnotateMatches failed: %v", err)
	}

	raw, err := base64.StdEncoding.DecodeString(result.ImageBase64)
	if err != nil {
		t.Fatalf("result is not valid base64: %v", err)
	}
	decoded, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("result is not a valid PNG: %v", err)
	}

	r, g, b, _ := decoded.At(30, 5).RGBA()
	if !(r > 0xc000 && g < 0x4000 && b < 0x4000) {
		t.Errorf("expected red outline pixel at (30,5), got r=%d g=%d b=%d", r>>8, g>>8, b>>8)
	}
}

func TestAnnotateMatches_NoOverlays(t *testing.T) {
	img := createInMemoryImage(30, 30, color.White)

	result, err := AnnotateMatches(img, nil, "#0000ff")
	if err != nil {
		t.Fatalf("AnnotateMatches failed: %v", err)
	}
	if result.Count != 0 {
		t.Errorf("count: got %d, want 0", result.Count)
	}
}
