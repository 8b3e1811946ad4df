package search

import (
	"math"
	"strings"
)

// normalizeText replaces every non-alphabetic character with whitespace, collapses
// whitespace runs, trims, and lower-cases.
func normalizeText(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	pendingSpace := false
	for _, r := range text {
		if !isLetter(r) {
			pendingSpace = true
			continue
		}
		if pendingSpace && b.Len() > 0 {
			b.WriteByte(' ')
		}
		pendingSpace = false
		if r >= 'A' && r <= 'Z' {
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// tokenize returns the normalized words of text.
func tokenize(text string) []string {
	return strings.Fields(normalizeText(text))
}

// levenshtein returns the edit distance between a and b counted in runes.
func levenshtein(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
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

// Similarity scores two words on a 0-100 scale:
// round(100 * (1 - distance / max(len(a), len(b), 1))).
// It is symmetric and Similarity(w, w) == 100.
func Similarity(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	longest := max(len(ra), len(rb), 1)
	d := levenshtein(ra, rb)
	return int(math.Round(100 * (1 - float64(d)/float64(longest))))
}

// bestWordSimilarity returns the highest Similarity between term and any word.
func bestWordSimilarity(term string, words []string) int {
	best := 0
	for _, w := range words {
		if w == term {
			return 100
		}
		if s := Similarity(term, w); s > best {
			best = s
		}
	}
	return best
}
