package match

import (
	"math"
	"sort"
	"strings"
)

// DefaultScales is the scale list used when a pass resolves to an empty one.
var DefaultScales = []float64{0.65, 0.85, 1, 1.25, 1.5}

// Default knobs shared by the presets.
const (
	defaultSearchPadding = 0.35
	defaultTopK          = 32
	defaultMinSimilarity = 0.4
	relaxFactor          = 0.8
)

// PassConfig is one fully-resolved pass: window size, preprocessing, grid
// parameters and result caps. A config is immutable once resolved; the
// orchestrator derives new ones instead of mutating.
type PassConfig struct {
	Name          string
	Size          int
	Mode          PreprocessMode
	BlurSigma     float64
	Sharpen       bool
	StrideFactor  float64
	Scales        []float64
	SearchPadding float64
	SearchRegion  *NormalizedBox
	TopK          int
	MaxCandidates int
}

// Overrides is an optional-field overlay on a preset. Nil fields fall
// through to the preset value; a set field always wins. Scales is a slice,
// where nil means "unset" and an explicit empty slice resolves to the
// default scale list.
type Overrides struct {
	Size          *int
	Mode          *PreprocessMode
	BlurSigma     *float64
	Sharpen       *bool
	StrideFactor  *float64
	Scales        []float64
	SearchPadding *float64
	SearchRegion  *NormalizedBox
	TopK          *int
	MaxCandidates *int
}

// ResolvePreset returns the named preset's base configuration. Unknown or
// empty names resolve to the auto preset, keeping the engine always
// available for malformed input.
//
// The presets mirror the matcher's historical modes: linework blurs lightly
// and matches on edges, texture blurs harder and matches raw intensities,
// auto blends everything.
func ResolvePreset(name string) PassConfig {
	base := PassConfig{
		Name:          "coarse",
		Size:          24,
		Mode:          ModeHybrid,
		StrideFactor:  0.5,
		Scales:        MergeScales(DefaultScales),
		SearchPadding: defaultSearchPadding,
		TopK:          defaultTopK,
		MaxCandidates: 1200,
	}

	switch strings.ToLower(strings.TrimSpace(name)) {
	case "linework":
		base.Mode = ModeEdges
		base.BlurSigma = 0.4
	case "texture":
		base.Mode = ModeGrayscale
		base.BlurSigma = 0.8
	}
	return base
}

// Apply layers the overrides onto the config field by field and returns the
// resolved copy. The receiver is not modified.
func (c PassConfig) Apply(o *Overrides) PassConfig {
	if o == nil {
		return c
	}
	if o.Size != nil && *o.Size > 0 {
		c.Size = *o.Size
	}
	if o.Mode != nil {
		c.Mode = *o.Mode
	}
	if o.BlurSigma != nil && *o.BlurSigma >= 0 {
		c.BlurSigma = *o.BlurSigma
	}
	if o.Sharpen != nil {
		c.Sharpen = *o.Sharpen
	}
	if o.StrideFactor != nil {
		c.StrideFactor = clampFloat(*o.StrideFactor, 0.1, 1)
	}
	if o.Scales != nil {
		c.Scales = MergeScales(o.Scales)
	}
	if o.SearchPadding != nil && *o.SearchPadding >= 0 {
		c.SearchPadding = *o.SearchPadding
	}
	if o.SearchRegion != nil {
		region := *o.SearchRegion
		c.SearchRegion = &region
	}
	if o.TopK != nil && *o.TopK > 0 {
		c.TopK = *o.TopK
	}
	if o.MaxCandidates != nil && *o.MaxCandidates > 0 {
		c.MaxCandidates = *o.MaxCandidates
	}
	return c
}

// BuildPassPlan synthesizes the default three-pass plan from a resolved base
// configuration. Each pass trades recall for precision: coarse runs the base
// config, dense widens the window and tightens the stride, precision matches
// on sharpened edges with the finest grid.
//
// modeOverridden reports whether the caller explicitly picked a
// preprocessing mode; if so the dense and precision passes keep it instead
// of forcing their own.
func BuildPassPlan(base PassConfig, modeOverridden bool) []PassConfig {
	coarse := base
	coarse.Name = "coarse"

	dense := base
	dense.Name = "dense"
	dense.Size = int(math.Round(float64(base.Size) * 1.15))
	dense.StrideFactor = 0.35
	dense.Scales = MergeScales(base.Scales, []float64{0.7, 1, 1.3})
	if !modeOverridden {
		dense.Mode = ModeGrayscale
	}
	dense.TopK = maxInt(base.TopK, 48)
	dense.MaxCandidates = maxInt(base.MaxCandidates, 2000)
	dense.SearchPadding = 0.25

	precision := base
	precision.Name = "precision"
	precision.Size = int(math.Round(float64(base.Size) * 1.3))
	precision.StrideFactor = 0.22
	precision.Scales = MergeScales(base.Scales, []float64{0.55, 0.75, 1.4, 1.65})
	if !modeOverridden {
		precision.Mode = ModeEdges
	}
	precision.Sharpen = true
	precision.TopK = maxInt(base.TopK, 64)
	precision.MaxCandidates = maxInt(base.MaxCandidates, 3000)
	precision.SearchPadding = 0.18

	return []PassConfig{coarse, dense, precision}
}

// MergeScales unions scale lists set-wise: values are rounded to 3 decimals,
// deduplicated, clamped to [0.2,4] and sorted ascending. Non-finite values
// are dropped. An empty result falls back to DefaultScales.
func MergeScales(lists ...[]float64) []float64 {
	seen := make(map[float64]struct{})
	var out []float64
	for _, list := range lists {
		for _, s := range list {
			if math.IsNaN(s) || math.IsInf(s, 0) {
				continue
			}
			v := math.Round(clampFloat(s, 0.2, 4)*1000) / 1000
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		out = append(out, DefaultScales...)
	}
	sort.Float64s(out)
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
