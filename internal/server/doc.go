// Package server exposes the matching engine over HTTP.
//
// The service accepts a base64-encoded image plus a normalized selection
// rectangle and responds with the regions of the image that resemble the
// selection, ranked by similarity, together with per-pass diagnostics.
//
// # Endpoints
//
//   - GET  /health                     liveness probe
//   - POST /match-selection            run the multi-pass template search
//   - POST /match-selection/annotated  same, plus a base64 PNG with the
//     matches outlined for visual inspection
//
// # Request Shape
//
//	{
//	  "image": "<base64 or data URL>",
//	  "coordinates": {"x": 0.1, "y": 0.1, "width": 0.2, "height": 0.2},
//	  "options": {"preset": "auto", "min_similarity": 0.4, ...}
//	}
//
// All option fields are optional; unset fields fall through to the preset
// defaults. Overlapping final matches are suppressed at this layer with an
// IoU threshold of 0.35 and a cap of 80 matches unless the request says
// otherwise.
//
// # Errors
//
// Undecodable images, degenerate selections (smaller than 5px per side once
// mapped to pixels) and unknown preprocess modes are rejected with 400. The
// engine itself never fails a request: a search with no usable candidates
// returns an empty match list with stats, not an error.
package server
