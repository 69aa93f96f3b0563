package server

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"selection-matcher/internal/imaging"
	"selection-matcher/internal/match"
)

// minSelectionSide is the smallest selection, in pixels per side, that the
// service accepts for matching.
const minSelectionSide = 5

// Overlay NMS defaults applied at the HTTP boundary. The engine itself runs
// without suppression unless asked.
const (
	defaultNMSIoU     = 0.35
	defaultMaxMatches = 80
)

// selectionBox is the wire form of a normalized rectangle.
type selectionBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (b selectionBox) toNormalized() match.NormalizedBox {
	return match.NormalizedBox{X: b.X, Y: b.Y, Width: b.Width, Height: b.Height}
}

// matchOptions are the caller-tunable knobs of a match request. Pointer
// fields distinguish "absent" from zero so unset fields fall through to the
// preset defaults.
type matchOptions struct {
	Preset        string        `json:"preset"`
	Preprocess    string        `json:"preprocess"`
	Size          *int          `json:"size"`
	StrideFactor  *float64      `json:"stride_factor"`
	Scales        []float64     `json:"scales"`
	BlurSigma     *float64      `json:"blur_sigma"`
	Sharpen       *bool         `json:"sharpen"`
	SearchPadding *float64      `json:"search_padding"`
	SearchRegion  *selectionBox `json:"search_region"`
	TopK          *int          `json:"top_k"`
	MaxCandidates *int          `json:"max_candidates"`
	MinSimilarity *float64      `json:"min_similarity"`
	RelaxFallback *bool         `json:"relax_fallback"`
	Label         string        `json:"label"`
	NMSIoU        *float64      `json:"nms_iou"`
	MaxMatches    *int          `json:"max_matches"`
}

type matchRequest struct {
	Image       string        `json:"image" binding:"required"`
	Coordinates selectionBox  `json:"coordinates"`
	Options     *matchOptions `json:"options"`

	// Overlay configures the annotated variant of the endpoint.
	Overlay *struct {
		Color string `json:"color"`
	} `json:"overlay"`
}

type matchResponse struct {
	Matches        []match.Match           `json:"matches"`
	Stats          []match.PassStats       `json:"stats"`
	BestSimilarity *float64                `json:"bestSimilarity"`
	Selection      match.NormalizedBox     `json:"selection"`
	SearchRegion   match.NormalizedBox     `json:"searchRegion"`
	Annotated      *imaging.AnnotateResult `json:"annotated,omitempty"`
}

func (s *Server) matchSelectionHandler(c *gin.Context) {
	s.handleMatch(c, false)
}

func (s *Server) matchSelectionAnnotatedHandler(c *gin.Context) {
	s.handleMatch(c, true)
}

// handleMatch decodes the request, runs the multi-pass search and shapes the
// response the way the original matcher service did: ranked matches plus
// per-pass stats, with the resolved selection and search region echoed back.
func (s *Server) handleMatch(c *gin.Context, annotated bool) {
	var req matchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	img, err := imaging.DecodeBase64Image(req.Image)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to decode image: " + err.Error()})
		return
	}
	src := imaging.NewSource(img)
	width, height := src.Dimensions()
	if width <= 0 || height <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image dimensions"})
		return
	}

	if req.Coordinates.Width <= 0 || req.Coordinates.Height <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "selection must have positive width and height"})
		return
	}
	selection := req.Coordinates.toNormalized()
	selPixels, ok := selection.ToPixels(width, height)
	if !ok || selPixels.Width < minSelectionSide || selPixels.Height < minSelectionSide {
		c.JSON(http.StatusBadRequest, gin.H{"error": "selection too small for template matching"})
		return
	}

	opts, searchRegion, err := buildOptions(req.Options, selection)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := match.Detect(src, selection, opts)

	best := -2.0
	if result.BestSimilarity != nil {
		best = *result.BestSimilarity
	}
	log.Printf("match-selection image=%dx%d passes=%d matches=%d best=%.3f",
		width, height, len(result.Stats), len(result.Matches), best)

	resp := matchResponse{
		Matches:        result.Matches,
		Stats:          result.Stats,
		BestSimilarity: result.BestSimilarity,
		Selection:      selection,
		SearchRegion:   searchRegion,
	}

	if annotated {
		overlayColor := "#FF3333"
		if req.Overlay != nil && req.Overlay.Color != "" {
			overlayColor = req.Overlay.Color
		}
		overlays := make([]imaging.Overlay, 0, len(result.Matches))
		for _, m := range result.Matches {
			box, ok := m.BoundingBox.ToPixels(width, height)
			if !ok {
				continue
			}
			overlays = append(overlays, imaging.Overlay{
				Left:       box.Left,
				Top:        box.Top,
				Width:      box.Width,
				Height:     box.Height,
				Confidence: m.Confidence,
			})
		}
		annotateResult, err := imaging.AnnotateMatches(img, overlays, overlayColor)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to annotate image: " + err.Error()})
			return
		}
		resp.Annotated = annotateResult
	}

	c.JSON(http.StatusOK, resp)
}

// buildOptions translates wire options into engine options and resolves the
// search region that will be echoed back to the caller.
func buildOptions(o *matchOptions, selection match.NormalizedBox) (match.Options, match.NormalizedBox, error) {
	opts := match.Options{}
	overrides := &match.Overrides{}

	nmsIoU := defaultNMSIoU
	maxMatches := defaultMaxMatches
	searchRegion := selection.Expand(match.ResolvePreset("").SearchPadding)

	if o != nil {
		opts.Preset = o.Preset
		opts.Label = o.Label
		opts.MinSimilarity = o.MinSimilarity
		opts.RelaxFallback = o.RelaxFallback

		if o.Preprocess != "" {
			mode, ok := match.ParsePreprocessMode(o.Preprocess)
			if !ok {
				return match.Options{}, match.NormalizedBox{}, &optionError{"unknown preprocess mode: " + o.Preprocess}
			}
			overrides.Mode = &mode
		}
		overrides.Size = o.Size
		overrides.StrideFactor = o.StrideFactor
		overrides.Scales = o.Scales
		overrides.BlurSigma = o.BlurSigma
		overrides.Sharpen = o.Sharpen
		overrides.SearchPadding = o.SearchPadding
		overrides.TopK = o.TopK
		overrides.MaxCandidates = o.MaxCandidates
		if o.SearchRegion != nil {
			region := o.SearchRegion.toNormalized()
			overrides.SearchRegion = &region
			searchRegion = region
		} else if o.SearchPadding != nil {
			searchRegion = selection.Expand(*o.SearchPadding)
		}

		if o.NMSIoU != nil {
			nmsIoU = *o.NMSIoU
		}
		if o.MaxMatches != nil && *o.MaxMatches > 0 {
			maxMatches = *o.MaxMatches
		}
	}

	opts.Overrides = overrides
	opts.NMSIoU = &nmsIoU
	opts.MaxMatches = maxMatches
	return opts, searchRegion, nil
}

// optionError is a request-validation failure surfaced at the boundary.
type optionError struct {
	msg string
}

func (e *optionError) Error() string { return e.msg }
