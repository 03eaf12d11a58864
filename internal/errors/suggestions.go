package errors

import (
	"fmt"
	"strings"
)

// SuggestName returns the candidate most similar to input, or "" when
// nothing is close enough to be a plausible typo. Similarity is
// case-insensitive prefix/substring matching followed by edit distance.
func SuggestName(input string, candidates []string) string {
	if input == "" || len(candidates) == 0 {
		return ""
	}

	lower := strings.ToLower(input)
	best := ""
	bestDistance := -1

	for _, candidate := range candidates {
		candLower := strings.ToLower(candidate)
		if candLower == lower {
			return candidate
		}
		if strings.HasPrefix(candLower, lower) || strings.HasPrefix(lower, candLower) ||
			strings.Contains(candLower, lower) || strings.Contains(lower, candLower) {
			return candidate
		}
		d := editDistance(lower, candLower)
		if bestDistance < 0 || d < bestDistance {
			best = candidate
			bestDistance = d
		}
	}

	// Only suggest when the distance is small relative to the input
	if bestDistance >= 0 && bestDistance <= len(input)/2 && bestDistance <= 3 {
		return best
	}
	return ""
}

// DidYouMean formats a suggestion hint, or returns "" when there is no
// plausible candidate.
func DidYouMean(input string, candidates []string) string {
	if suggestion := SuggestName(input, candidates); suggestion != "" {
		return fmt.Sprintf("did you mean %q?", suggestion)
	}
	return ""
}

func editDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}
