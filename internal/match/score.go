package match

import "gonum.org/v1/gonum/floats"

// CosineSimilarity compares two descriptors and returns a score in [-1,1].
//
// Descriptors of different lengths and zero-norm descriptors score 0: both
// are legitimate "no signal" cases, not errors. The result is clamped so
// floating-point accumulation can never push it out of range.
func CosineSimilarity(a, b Descriptor) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	normA := floats.Norm(a, 2)
	normB := floats.Norm(b, 2)
	if normA == 0 || normB == 0 {
		return 0
	}
	return clampFloat(floats.Dot(a, b)/(normA*normB), -1, 1)
}
