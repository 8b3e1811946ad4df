package search

import (
	"slices"

	"github.com/poiesic/pagesift/core"
)

// AggregateCoOccurrence groups matches by page and keeps the pages where at least
// minTerms distinct terms matched. Surviving matches are copied and tagged with
// their page's sorted distinct-term set. Groups are returned in first-seen order.
func AggregateCoOccurrence(matches []core.Match, minTerms int) ([]core.Match, []core.PageGroup) {
	minTerms = max(minTerms, 1)

	type pageState struct {
		terms   map[string]bool
		matches []core.Match
	}
	pages := make(map[core.PageKey]*pageState)
	var order []core.PageKey
	for _, m := range matches {
		key := m.Span.PageKey()
		st, ok := pages[key]
		if !ok {
			st = &pageState{terms: make(map[string]bool)}
			pages[key] = st
			order = append(order, key)
		}
		st.terms[m.Term] = true
		st.matches = append(st.matches, m)
	}

	qualifying := make(map[core.PageKey][]string)
	var groups []core.PageGroup
	for _, key := range order {
		st := pages[key]
		if len(st.terms) < minTerms {
			continue
		}
		terms := make([]string, 0, len(st.terms))
		for t := range st.terms {
			terms = append(terms, t)
		}
		slices.Sort(terms)
		qualifying[key] = terms
		groups = append(groups, core.PageGroup{Key: key, Terms: terms, Matches: st.matches})
	}

	var out []core.Match
	for _, m := range matches {
		terms, ok := qualifying[m.Span.PageKey()]
		if !ok {
			continue
		}
		tagged := m
		tagged.PageTerms = terms
		out = append(out, tagged)
	}
	return out, groups
}

// PagesWithTerms counts the distinct pages that hold at least one match.
func PagesWithTerms(matches []core.Match) int {
	seen := make(map[core.PageKey]bool)
	for _, m := range matches {
		seen[m.Span.PageKey()] = true
	}
	return len(seen)
}
