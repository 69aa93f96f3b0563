// Package imaging provides the pixel plumbing around the matching engine.
//
// The engine itself never decodes, crops or resizes images; this package
// does. It decodes base64 image payloads (bare or data-URL form), samples
// rectangular regions onto fixed-size intensity grids for descriptor
// extraction, and renders annotated result images for debugging.
//
// # Coordinate System
//
// All pixel coordinates are 0-based with the origin at the top-left corner:
// X increases rightward, Y increases downward. Regions are specified as
// (left, top, width, height) and must lie fully inside the image.
//
// # Thread Safety
//
// A Source is immutable after construction and safe for concurrent
// sampling; every operation works on a fresh copy of the region.
//
// # Error Handling
//
// Functions return errors for undecodable payloads, regions outside the
// image bounds, and encoding failures. The matching engine treats sampling
// errors as "no descriptor" rather than failures.
package imaging
