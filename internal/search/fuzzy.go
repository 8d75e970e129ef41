package search

import "strings"

// minFuzzyTokenLength guards the fuzzy operators: tokens shorter than this
// bypass fuzzy matching entirely, so "Go" never fuzzy-matches "To".
const minFuzzyTokenLength = 3

// maxEditDistance is the edit-distance ceiling for fuzzy-exact matching.
const maxEditDistance = 2

// editDistance computes the Levenshtein distance between a and b, giving
// up early once every path exceeds max. Returns max+1 in that case.
func editDistance(a, b string, max int) int {
	ra := []rune(a)
	rb := []rune(b)

	costs := make([]int, len(rb)+1)
	for j := range costs {
		costs[j] = j
	}

	for i, ca := range ra {
		last := i
		costs[0] = i + 1
		rowMin := costs[0]

		for j, cb := range rb {
			next := last
			if ca != cb {
				next = 1 + min3(last, costs[j], costs[j+1])
			}
			last = costs[j+1]
			costs[j+1] = next
			if next < rowMin {
				rowMin = next
			}
		}

		if rowMin > max {
			return max + 1
		}
	}

	return costs[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// fuzzyEqual reports whether a and b are within the fuzzy edit-distance
// ceiling. Inputs shorter than the minimum token length degrade to exact
// comparison.
func fuzzyEqual(a, b string) bool {
	if len(b) < minFuzzyTokenLength {
		return a == b
	}
	return editDistance(a, b, maxEditDistance) <= maxEditDistance
}

// fuzzyContains reports whether needle appears in haystack tolerating small
// edit distance: a plain substring hit, or any word of haystack within the
// edit-distance ceiling of needle.
func fuzzyContains(haystack, needle string) bool {
	if strings.Contains(haystack, needle) {
		return true
	}
	if len(needle) < minFuzzyTokenLength {
		return false
	}
	for _, word := range strings.Fields(haystack) {
		if editDistance(word, needle, maxEditDistance) <= maxEditDistance {
			return true
		}
	}
	return false
}

// trigramSet returns the set of 3-character shingles of s.
func trigramSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	runes := []rune(s)
	for i := 0; i+3 <= len(runes); i++ {
		set[string(runes[i:i+3])] = struct{}{}
	}
	return set
}

// trigramSimilarity computes the Jaccard similarity of the trigram sets of
// a and b. It is the cheap gate deciding whether the more expensive edit
// distance is worth computing at all.
func trigramSimilarity(a, b string) float64 {
	sa := trigramSet(a)
	sb := trigramSet(b)
	if len(sa) == 0 || len(sb) == 0 {
		return 0
	}

	intersection := 0
	for t := range sa {
		if _, ok := sb[t]; ok {
			intersection++
		}
	}
	union := len(sa) + len(sb) - intersection
	return float64(intersection) / float64(union)
}
