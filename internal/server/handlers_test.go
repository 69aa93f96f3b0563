package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return New().Router()
}

// checkerImageBase64 renders a base64 PNG checkerboard. The repeating pattern
// guarantees that any selection placed on it has matches elsewhere in the
// image.
func checkerImageBase64(t *testing.T, width, height, block int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if ((x/block)+(y/block))%2 == 0 {
				img.Set(x, y, color.RGBA{230, 230, 230, 255})
			} else {
				img.Set(x, y, color.RGBA{30, 30, 30, 255})
			}
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func postJSON(t *testing.T, router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", w.Code, http.StatusOK)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field: got %q, want ok", body["status"])
	}
}

func TestMatchSelection(t *testing.T) {
	router := newTestRouter()

	w := postJSON(t, router, "/match-selection", map[string]interface{}{
		"image": checkerImageBase64(t, 120, 120, 2),
		"coordinates": map[string]float64{
			"x": 0.1, "y": 0.1, "width": 0.2, "height": 0.2,
		},
	})

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Matches []struct {
			Label       string  `json:"label"`
			Confidence  float64 `json:"confidence"`
			BoundingBox struct {
				X      float64 `json:"x"`
				Y      float64 `json:"y"`
				Width  float64 `json:"width"`
				Height float64 `json:"height"`
			} `json:"boundingBox"`
			Similarity float64 `json:"templateSimilarity"`
			Pass       string  `json:"templatePass"`
		} `json:"matches"`
		Stats []struct {
			Pass       string `json:"pass"`
			Candidates int    `json:"candidates"`
			Kept       int    `json:"kept"`
		} `json:"stats"`
		BestSimilarity *float64 `json:"bestSimilarity"`
		Selection      struct {
			X, Y, Width, Height float64
		} `json:"selection"`
		SearchRegion struct {
			X, Y, Width, Height float64
		} `json:"searchRegion"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}

	if len(resp.Matches) == 0 {
		t.Fatal("expected at least one match on a repeating pattern")
	}
	if len(resp.Stats) == 0 {
		t.Fatal("expected per-pass stats")
	}
	if resp.BestSimilarity == nil {
		t.Fatal("expected a best similarity")
	}
	if *resp.BestSimilarity < 0.9 {
		t.Errorf("best similarity: got %v, want >= 0.9 on a repeating pattern", *resp.BestSimilarity)
	}

	for i, m := range resp.Matches {
		if m.Confidence < 0 || m.Confidence > 1 {
			t.Errorf("match %d confidence %v outside [0,1]", i, m.Confidence)
		}
		if m.Pass == "" {
			t.Errorf("match %d missing pass name", i)
		}
		if m.BoundingBox.Width <= 0 || m.BoundingBox.Height <= 0 {
			t.Errorf("match %d has degenerate bounding box", i)
		}
	}

	if resp.Selection.X != 0.1 || resp.Selection.Width != 0.2 {
		t.Errorf("selection not echoed back: %+v", resp.Selection)
	}
	if resp.SearchRegion.Width <= resp.Selection.Width {
		t.Errorf("default search region should be wider than the selection: %+v", resp.SearchRegion)
	}
}

func TestMatchSelection_ExplicitSearchRegionEchoed(t *testing.T) {
	router := newTestRouter()

	w := postJSON(t, router, "/match-selection", map[string]interface{}{
		"image": checkerImageBase64(t, 120, 120, 2),
		"coordinates": map[string]float64{
			"x": 0.1, "y": 0.1, "width": 0.2, "height": 0.2,
		},
		"options": map[string]interface{}{
			"search_region": map[string]float64{
				"x": 0.0, "y": 0.0, "width": 0.5, "height": 0.5,
			},
		},
	})

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var resp struct {
		SearchRegion struct {
			X, Y, Width, Height float64
		} `json:"searchRegion"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.SearchRegion.Width != 0.5 || resp.SearchRegion.Height != 0.5 {
		t.Errorf("search region not echoed back: %+v", resp.SearchRegion)
	}
}

func TestMatchSelection_BadRequests(t *testing.T) {
	router := newTestRouter()
	validImage := checkerImageBase64(t, 100, 100, 2)

	tests := []struct {
		name    string
		body    map[string]interface{}
		wantMsg string
	}{
		{
			name:    "missing image",
			body:    map[string]interface{}{"coordinates": map[string]float64{"x": 0.1, "y": 0.1, "width": 0.2, "height": 0.2}},
			wantMsg: "",
		},
		{
			name: "garbage image data",
			body: map[string]interface{}{
				"image":       "definitely-not-base64!!!",
				"coordinates": map[string]float64{"x": 0.1, "y": 0.1, "width": 0.2, "height": 0.2},
			},
			wantMsg: "failed to decode image",
		},
		{
			name: "zero-size selection",
			body: map[string]interface{}{
				"image":       validImage,
				"coordinates": map[string]float64{"x": 0.1, "y": 0.1, "width": 0, "height": 0.2},
			},
			wantMsg: "positive width and height",
		},
		{
			name: "selection below pixel minimum",
			body: map[string]interface{}{
				"image":       validImage,
				"coordinates": map[string]float64{"x": 0.1, "y": 0.1, "width": 0.02, "height": 0.02},
			},
			wantMsg: "too small",
		},
		{
			name: "unknown preprocess mode",
			body: map[string]interface{}{
				"image":       validImage,
				"coordinates": map[string]float64{"x": 0.1, "y": 0.1, "width": 0.2, "height": 0.2},
				"options":     map[string]interface{}{"preprocess": "fourier"},
			},
			wantMsg: "unknown preprocess mode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, router, "/match-selection", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status: got %d, want %d, body: %s", w.Code, http.StatusBadRequest, w.Body.String())
			}
			if tt.wantMsg != "" && !strings.Contains(w.Body.String(), tt.wantMsg) {
				t.Errorf("body %q does not mention %q", w.Body.String(), tt.wantMsg)
			}
		})
	}
}

func TestMatchSelectionAnnotated(t *testing.T) {
	router := newTestRouter()

	w := postJSON(t, router, "/match-selection/annotated", map[string]interface{}{
		"image": checkerImageBase64(t, 120, 120, 2),
		"coordinates": map[string]float64{
			"x": 0.1, "y": 0.1, "width": 0.2, "height": 0.2,
		},
		"overlay": map[string]string{"color": "#00cc44"},
	})

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Matches   []json.RawMessage `json:"matches"`
		Annotated *struct {
			Width       int    `json:"width"`
			Height      int    `json:"height"`
			ImageBase64 string `json:"image_base64"`
			MimeType    string `json:"mime_type"`
			Count       int    `json:"count"`
		} `json:"annotated"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}

	if resp.Annotated == nil {
		t.Fatal("annotated endpoint returned no annotated image")
	}
	if resp.Annotated.Width != 120 || resp.Annotated.Height != 120 {
		t.Errorf("annotated dimensions: got %dx%d, want 120x120",
			resp.Annotated.Width, resp.Annotated.Height)
	}
	if resp.Annotated.Count != len(resp.Matches) {
		t.Errorf("annotated count %d does not match %d returned matches",
			resp.Annotated.Count, len(resp.Matches))
	}

	raw, err := base64.StdEncoding.DecodeString(resp.Annotated.ImageBase64)
	if err != nil {
		t.Fatalf("annotated image is not valid base64: %v", err)
	}
	if _, err := png.Decode(bytes.NewReader(raw)); err != nil {
		t.Fatalf("annotated image is not a valid PNG: %v", err)
	}
}

func TestMatchSelection_OptionsPassThrough(t *testing.T) {
	router := newTestRouter()

	w := postJSON(t, router, "/match-selection", map[string]interface{}{
		"image": checkerImageBase64(t, 120, 120, 2),
		"coordinates": map[string]float64{
			"x": 0.1, "y": 0.1, "width": 0.2, "height": 0.2,
		},
		"options": map[string]interface{}{
			"preset":         "linework",
			"preprocess":     "grayscale",
			"scales":         []float64{1.0},
			"top_k":          3,
			"max_matches":    3,
			"min_similarity": 0.5,
			"label":          "ui-button",
		},
	})

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Matches []struct {
			Label string `json:"label"`
		} `json:"matches"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(resp.Matches) == 0 {
		t.Fatal("expected matches for a repeating pattern")
	}
	if len(resp.Matches) > 3 {
		t.Errorf("max_matches not applied: got %d matches", len(resp.Matches))
	}
	for i, m := range resp.Matches {
		if m.Label != "ui-button" {
			t.Errorf("match %d label: got %q, want ui-button", i, m.Label)
		}
	}
}
