package search

import (
	"cmp"
	"slices"

	"github.com/poiesic/pagesift/core"
)

// Rank returns matches in a deterministic total order: source id, page date
// (undated last), page sequence, distinct page-term count descending (only when
// coOccurrence is set), term, similarity descending, corpus index.
func Rank(matches []core.Match, coOccurrence bool) []core.Match {
	ranked := slices.Clone(matches)
	slices.SortStableFunc(ranked, func(a, b core.Match) int {
		return compareMatches(a, b, coOccurrence)
	})
	return ranked
}

func compareMatches(a, b core.Match, coOccurrence bool) int {
	termCount := 0
	if coOccurrence {
		termCount = cmp.Compare(len(b.PageTerms), len(a.PageTerms))
	}
	return cmp.Or(
		cmp.Compare(a.Span.SourceID, b.Span.SourceID),
		a.Span.PageDate.Compare(b.Span.PageDate),
		cmp.Compare(a.Span.PageSequence, b.Span.PageSequence),
		termCount,
		cmp.Compare(a.Term, b.Term),
		cmp.Compare(b.Similarity, a.Similarity),
		cmp.Compare(a.SpanIndex, b.SpanIndex),
	)
}
