// Package match implements a model-free template-matching search engine.
//
// Given an image and a rectangular selection, the engine finds other regions
// of the same image that visually resemble the selection. It extracts a
// fixed-length appearance descriptor from the selection, slides candidate
// windows across a bounded search region at multiple scales, and ranks the
// candidates by cosine similarity between descriptors.
//
// # Multi-pass search
//
// A single configuration rarely suits every image, so a search runs as an
// ordered sequence of passes. Each pass is a complete configuration (window
// size, preprocessing mode, scale list, stride) executed as a unit. The
// default plan runs a coarse pass, then a dense pass, then a precision
// pass: the first pass that produces a match above the similarity
// threshold wins outright, and when every pass falls short the threshold is
// relaxed before giving up. The engine only returns an empty result when no
// candidate was ever scored.
//
// # Coordinate System
//
// Boxes cross the API boundary as NormalizedBox values: fractions of the
// image dimensions in [0,1], origin at the top-left. Pixel conversion clamps
// into bounds and guarantees at least a 1×1 region, so slightly-off input
// degrades gracefully instead of failing.
//
// # Determinism
//
// The engine contains no randomness. Candidate generation order, the
// deterministic candidate cap and stable ranking make a search a pure
// function of its inputs: identical image data and options produce an
// identical, identically-ordered match list.
//
// # Error Handling
//
// Degenerate regions and unknown image dimensions yield "no descriptor"
// rather than errors; such candidates are simply excluded from scoring.
// Malformed configuration (bad scale lists, zero sizes) is corrected by
// clamping and defaulting so the engine never crashes on caller input.
package match
