package util

import (
	"regexp"
	"strings"
)

var reSpaces = regexp.MustCompile(`\s+`)

func NormalizeSpaces(input string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}

// FoldName prepares a free-text name for comparison: lowercase, collapsed
// whitespace.
func FoldName(input string) string {
	return strings.ToLower(NormalizeSpaces(input))
}

// PartialRatio scores how well the shorter of two strings aligns inside the
// longer one, 0..100. 100 means the shorter string appears verbatim (after
// case folding) somewhere in the longer; an empty string scores 0 against
// anything.
func PartialRatio(a, b string) int {
	shorter := []rune(FoldName(a))
	longer := []rune(FoldName(b))
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if len(shorter) == 0 {
		return 0
	}

	best := 0
	for i := 0; i+len(shorter) <= len(longer); i++ {
		window := longer[i : i+len(shorter)]
		dist := levenshtein(shorter, window)
		score := 100 * (len(shorter) - dist) / len(shorter)
		if score > best {
			best = score
		}
		if best == 100 {
			break
		}
	}
	return best
}

func levenshtein(a, b []rune) int {
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
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
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

func StringPtr(v string) *string { return &v }
