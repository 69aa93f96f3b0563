package match

import (
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

// Match is a single region that resembles the selection.
//
// Confidence maps the raw cosine similarity from [-1,1] into [0,1] for
// consumers that expect detector-style scores; Similarity keeps the raw
// value for diagnostics.
type Match struct {
	Label       string        `json:"label"`
	Confidence  float64       `json:"confidence"`
	BoundingBox NormalizedBox `json:"boundingBox"`
	Similarity  float64       `json:"templateSimilarity"`
	Pass        string        `json:"templatePass"`
}

// PassStats is the diagnostic record of one executed pass. Candidates counts
// the windows the grid generated before capping; Kept counts the matches
// that survived ranking. BestSimilarity is nil when nothing was scored.
type PassStats struct {
	Pass           string   `json:"pass"`
	Candidates     int      `json:"candidates"`
	Kept           int      `json:"kept"`
	DurationMs     float64  `json:"durationMs"`
	BestSimilarity *float64 `json:"bestSimilarity"`
}

// Result is the outcome of a multi-pass search. BestSimilarity is the
// highest similarity any pass ever scored, independent of which pass's
// matches were returned; it is nil only when no candidate was ever scored.
type Result struct {
	Matches        []Match     `json:"matches"`
	BestSimilarity *float64    `json:"bestSimilarity"`
	Stats          []PassStats `json:"stats"`
}

// Options configure one Detect call. The zero value runs the auto preset's
// default three-pass plan.
type Options struct {
	// Preset names the base configuration: auto, linework or texture.
	Preset string

	// Passes, when non-empty, is the explicit pass list to execute in
	// order. Otherwise a coarse/dense/precision plan is synthesized from
	// the preset and overrides.
	Passes []PassConfig

	// Overrides layer caller-supplied fields over the preset, field by
	// field. Nil fields fall through.
	Overrides *Overrides

	// MinSimilarity is the acceptance threshold, clamped to [-1,1].
	// Defaults to 0.4 when nil.
	MinSimilarity *float64

	// RelaxFallback controls what happens when no pass clears the
	// threshold. Defaults to true: the threshold is relaxed by 0.8 and,
	// failing that, the best pass's top entries are returned anyway.
	// When explicitly false the best pass's matches are returned
	// unfiltered.
	RelaxFallback *bool

	// Label is attached to every returned match. Defaults to
	// "template-match".
	Label string

	// NMSIoU, when set, applies non-maximum suppression with this IoU
	// threshold to the final match list.
	NMSIoU *float64

	// MaxMatches bounds the final list when NMS runs. 0 means unbounded.
	MaxMatches int

	// Workers bounds the per-pass descriptor extraction pool. Defaults
	// to the number of CPUs.
	Workers int
}

// Detect runs the multi-pass template search for the given selection.
//
// Passes execute strictly in order. The first pass with a match at or above
// the similarity threshold wins outright (early accept). When every pass
// falls short the relax/fallback policy decides between the best pass's
// matches filtered against a loosened threshold, its top entries as a last
// resort, or (with RelaxFallback disabled) the best pass's matches
// unfiltered. Only a total miss (nothing ever scored) yields an empty list.
//
// Detect is a pure function of its inputs: identical image data and options
// produce an identical, identically-ordered match list.
func Detect(src ImageSource, selection NormalizedBox, opts Options) Result {
	plan := resolvePlan(opts)
	minSimilarity := defaultMinSimilarity
	if opts.MinSimilarity != nil {
		minSimilarity = clampFloat(*opts.MinSimilarity, -1, 1)
	}
	label := opts.Label
	if label == "" {
		label = "template-match"
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var (
		stats       []PassStats
		bestMatches []Match
		bestSim     *float64
		lastTopK    = defaultTopK
	)

	for _, cfg := range plan {
		lastTopK = cfg.TopK
		matches, passStats := runPass(src, selection, cfg, label, workers)
		stats = append(stats, passStats)

		if passStats.BestSimilarity != nil && (bestSim == nil || *passStats.BestSimilarity > *bestSim) {
			v := *passStats.BestSimilarity
			bestSim = &v
			bestMatches = matches
		}

		accepted := filterMatches(matches, minSimilarity)
		if len(accepted) > 0 {
			return finalize(accepted, bestSim, stats, opts)
		}
	}

	if bestSim == nil {
		// Total miss: nothing was ever scored.
		return Result{Matches: []Match{}, Stats: stats}
	}

	if opts.RelaxFallback != nil && !*opts.RelaxFallback {
		return finalize(bestMatches, bestSim, stats, opts)
	}

	relaxed := filterMatches(bestMatches, minSimilarity*relaxFactor)
	if len(relaxed) > 0 {
		return finalize(relaxed, bestSim, stats, opts)
	}

	fallback := bestMatches
	if lastTopK > 0 && len(fallback) > lastTopK {
		fallback = fallback[:lastTopK]
	}
	return finalize(fallback, bestSim, stats, opts)
}

// resolvePlan turns the options into the ordered pass list.
func resolvePlan(opts Options) []PassConfig {
	if len(opts.Passes) > 0 {
		return opts.Passes
	}
	base := ResolvePreset(opts.Preset).Apply(opts.Overrides)
	modeOverridden := opts.Overrides != nil && opts.Overrides.Mode != nil
	return BuildPassPlan(base, modeOverridden)
}

// runPass executes one pass: grid generation, descriptor extraction, scoring
// and ranking. Descriptor extraction fans out over a bounded worker pool;
// results are re-joined in candidate order so ranking stays deterministic.
func runPass(src ImageSource, selection NormalizedBox, cfg PassConfig, label string, workers int) ([]Match, PassStats) {
	start := time.Now()
	passStats := PassStats{Pass: cfg.Name}

	width, height := src.Dimensions()
	selPixels, ok := selection.ToPixels(width, height)
	if !ok {
		passStats.DurationMs = msSince(start)
		return nil, passStats
	}

	searchBox := selection.Expand(cfg.SearchPadding)
	if cfg.SearchRegion != nil {
		searchBox = *cfg.SearchRegion
	}
	searchPixels, ok := searchBox.ToPixels(width, height)
	if !ok {
		passStats.DurationMs = msSince(start)
		return nil, passStats
	}

	candidates := GenerateCandidates(selPixels, width, height, searchPixels, cfg.Scales, cfg.StrideFactor)
	passStats.Candidates = len(candidates)
	candidates = CapCandidates(candidates, cfg.MaxCandidates)

	descOpts := DescriptorOptions{Size: cfg.Size, Mode: cfg.Mode, BlurSigma: cfg.BlurSigma, Sharpen: cfg.Sharpen}
	reference, ok := descriptorFromRegion(src, selPixels, descOpts)
	if !ok {
		passStats.DurationMs = msSince(start)
		return nil, passStats
	}

	descriptors := extractAll(src, candidates, descOpts, workers)

	matches := make([]Match, 0, len(candidates))
	for i, candidate := range candidates {
		if descriptors[i] == nil {
			continue
		}
		similarity := CosineSimilarity(reference, descriptors[i])
		matches = append(matches, Match{
			Label:       label,
			Confidence:  (similarity + 1) / 2,
			BoundingBox: candidate.toNormalized(width, height),
			Similarity:  similarity,
			Pass:        cfg.Name,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if cfg.TopK > 0 && len(matches) > cfg.TopK {
		matches = matches[:cfg.TopK]
	}

	passStats.Kept = len(matches)
	passStats.DurationMs = msSince(start)
	if len(matches) > 0 {
		best := matches[0].Similarity
		passStats.BestSimilarity = &best
	}
	return matches, passStats
}

// extractAll computes a descriptor per candidate window concurrently. The
// returned slice is indexed like the input; a nil entry marks a window whose
// descriptor could not be extracted.
func extractAll(src ImageSource, candidates []PixelBox, opts DescriptorOptions, workers int) []Descriptor {
	descriptors := make([]Descriptor, len(candidates))
	var group errgroup.Group
	group.SetLimit(workers)
	for i, candidate := range candidates {
		i, candidate := i, candidate
		group.Go(func() error {
			if d, ok := descriptorFromRegion(src, candidate, opts); ok {
				descriptors[i] = d
			}
			return nil
		})
	}
	_ = group.Wait()
	return descriptors
}

func filterMatches(matches []Match, threshold float64) []Match {
	out := make([]Match, 0, len(matches))
	for _, m := range matches {
		if m.Similarity >= threshold {
			out = append(out, m)
		}
	}
	return out
}

func finalize(matches []Match, bestSim *float64, stats []PassStats, opts Options) Result {
	if opts.NMSIoU != nil {
		matches = Suppress(matches, clampFloat(*opts.NMSIoU, 0, 1), opts.MaxMatches)
	}
	if matches == nil {
		matches = []Match{}
	}
	return Result{Matches: matches, BestSimilarity: bestSim, Stats: stats}
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
