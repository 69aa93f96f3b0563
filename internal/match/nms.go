package match

import "sort"

// Suppress applies greedy non-maximum suppression to a match list: matches
// are taken in descending similarity order and any later match overlapping a
// kept one beyond iouThreshold is dropped. At most maxMatches survive
// (unbounded when maxMatches <= 0). The input slice is not modified.
func Suppress(matches []Match, iouThreshold float64, maxMatches int) []Match {
	if len(matches) == 0 {
		return nil
	}

	ordered := make([]Match, len(matches))
	copy(ordered, matches)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Similarity > ordered[j].Similarity
	})

	kept := make([]Match, 0, len(ordered))
	for _, candidate := range ordered {
		if maxMatches > 0 && len(kept) >= maxMatches {
			break
		}
		overlaps := false
		for _, winner := range kept {
			if candidate.BoundingBox.IoU(winner.BoundingBox) > iouThreshold {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, candidate)
		}
	}
	return kept
}
