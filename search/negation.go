package search

import (
	"math"
	"regexp"

	"github.com/poiesic/pagesift/core"
	"github.com/poiesic/pagesift/corpus"
)

// NegatedMatch is a match dropped by the negation filter, with the closest
// negation occurrence that excluded it.
type NegatedMatch struct {
	Match       core.Match
	ClosestTerm string
	Distance    float64
}

// NegationResult is the outcome of negation filtering.
type NegationResult struct {
	Kept    []core.Match
	Dropped []NegatedMatch
	// Occurrences counts whole-word occurrences per negation term across the corpus.
	Occurrences map[string]int
	// ExcludedBy counts dropped matches per closest negation term.
	ExcludedBy map[string]int
}

type negationOccurrence struct {
	termIdx int
	x, y    float64
}

// FilterNegated drops every match whose source has a negation-term occurrence
// with an (X0, Y0) anchor within distance of the match's anchor.
// Occurrences are case-insensitive whole-word matches. No terms is an identity pass.
func FilterNegated(matches []core.Match, store *corpus.Store, terms []string, distance float64) *NegationResult {
	terms = dedupe(terms)
	result := &NegationResult{
		Occurrences: make(map[string]int, len(terms)),
		ExcludedBy:  make(map[string]int, len(terms)),
	}
	if len(terms) == 0 {
		result.Kept = matches
		return result
	}

	patterns := make([]*regexp.Regexp, len(terms))
	for i, term := range terms {
		patterns[i] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(term) + `\b`)
		result.Occurrences[term] = 0
	}

	bySource := make(map[string][]negationOccurrence)
	for _, span := range store.All() {
		for i, re := range patterns {
			if !re.MatchString(span.Text) {
				continue
			}
			bySource[span.SourceID] = append(bySource[span.SourceID], negationOccurrence{
				termIdx: i,
				x:       span.BBox.X0,
				y:       span.BBox.Y0,
			})
			result.Occurrences[terms[i]]++
		}
	}

	result.Kept = make([]core.Match, 0, len(matches))
	for _, m := range matches {
		closest, dist, found := closestNegation(bySource[m.Span.SourceID], m.Span.BBox, distance)
		if !found {
			result.Kept = append(result.Kept, m)
			continue
		}
		term := terms[closest]
		result.Dropped = append(result.Dropped, NegatedMatch{Match: m, ClosestTerm: term, Distance: dist})
		result.ExcludedBy[term]++
	}
	return result
}

// closestNegation returns the term index and distance of the nearest occurrence
// within radius. Ties go to the earlier term.
func closestNegation(occurrences []negationOccurrence, box core.BBox, radius float64) (int, float64, bool) {
	best := -1
	bestDist := math.Inf(1)
	for _, occ := range occurrences {
		d := math.Hypot(occ.x-box.X0, occ.y-box.Y0)
		if d > radius {
			continue
		}
		if d < bestDist || (d == bestDist && occ.termIdx < best) {
			best = occ.termIdx
			bestDist = d
		}
	}
	return best, bestDist, best >= 0
}

func dedupe(terms []string) []string {
	seen := make(map[string]bool, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
