package search

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/poiesic/pagesift/core"
)

// SearchMonitor provides hooks to observe the search pipeline.
// Implement this interface to report intermediate results of each stage.
type SearchMonitor interface {
	Start(query *core.Query, spans int)
	AfterMatching(matches []core.Match)
	AfterNegation(result *NegationResult)
	AfterDateFilter(kept []core.Match, removed int)
	AfterCoOccurrence(pagesWithTerms int, groups []core.PageGroup)
	Finish(result *Result)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ *core.Query, _ int)                  {}
func (n *noopMonitor) AfterMatching(_ []core.Match)                {}
func (n *noopMonitor) AfterNegation(_ *NegationResult)             {}
func (n *noopMonitor) AfterDateFilter(_ []core.Match, _ int)       {}
func (n *noopMonitor) AfterCoOccurrence(_ int, _ []core.PageGroup) {}
func (n *noopMonitor) Finish(_ *Result)                            {}

// DefaultTopPages is how many co-occurrence pages StatsMonitor lists.
const DefaultTopPages = 5

// StatsMonitor prints a human-readable report of every stage to a writer.
type StatsMonitor struct {
	w        io.Writer
	topPages int
	minTerms int
}

var _ SearchMonitor = (*StatsMonitor)(nil)

// NewStatsMonitor creates a monitor writing to w. topPages < 1 uses DefaultTopPages.
func NewStatsMonitor(w io.Writer, topPages int) *StatsMonitor {
	if topPages < 1 {
		topPages = DefaultTopPages
	}
	return &StatsMonitor{w: w, topPages: topPages}
}

func (m *StatsMonitor) Start(query *core.Query, spans int) {
	m.minTerms = query.MinTermsRequired
	fmt.Fprintf(m.w, "Searching %d spans for %s (threshold %d)\n",
		spans, strings.Join(query.Terms, ", "), query.SimilarityThreshold)
	if len(query.NegationTerms) > 0 {
		fmt.Fprintf(m.w, "Negation terms: %s (distance %g)\n",
			strings.Join(query.NegationTerms, ", "), query.NegationDistance)
	}
	if !query.DateRange.IsOpen() {
		fmt.Fprintf(m.w, "Date range: %s to %s\n",
			orOpen(query.DateRange.Start), orOpen(query.DateRange.End))
	}
}

func orOpen(d core.Date) string {
	if !d.Valid {
		return "open"
	}
	return d.String()
}

func (m *StatsMonitor) AfterMatching(matches []core.Match) {
	exact, fuzzy := 0, 0
	for _, match := range matches {
		if match.Kind == core.MatchExact {
			exact++
		} else {
			fuzzy++
		}
	}
	fmt.Fprintf(m.w, "Found %d exact and %d fuzzy matches\n", exact, fuzzy)
}

func (m *StatsMonitor) AfterNegation(result *NegationResult) {
	if len(result.Occurrences) == 0 {
		return
	}
	for _, term := range sortedKeys(result.Occurrences) {
		fmt.Fprintf(m.w, "  negation %q: %d occurrences, excluded %d matches\n",
			term, result.Occurrences[term], result.ExcludedBy[term])
	}
	fmt.Fprintf(m.w, "Removed %d matches near negation terms\n", len(result.Dropped))
}

func (m *StatsMonitor) AfterDateFilter(kept []core.Match, removed int) {
	if removed > 0 {
		fmt.Fprintf(m.w, "Removed %d matches outside the date range, %d remain\n", removed, len(kept))
	}
}

func (m *StatsMonitor) AfterCoOccurrence(pagesWithTerms int, groups []core.PageGroup) {
	fmt.Fprintf(m.w, "Pages with any term: %d, pages with at least %d terms: %d\n",
		pagesWithTerms, m.minTerms, len(groups))

	top := slices.Clone(groups)
	slices.SortStableFunc(top, func(a, b core.PageGroup) int {
		return cmp.Compare(len(b.Terms), len(a.Terms))
	})
	for _, g := range top[:min(len(top), m.topPages)] {
		fmt.Fprintf(m.w, "  %s page %d: %s\n", g.Key.SourceID, g.Key.PageSequence, strings.Join(g.Terms, ", "))
	}
}

func (m *StatsMonitor) Finish(result *Result) {
	if result.Empty() {
		fmt.Fprintln(m.w, "No matches")
		return
	}
	sources := make(map[string]bool)
	for _, match := range result.Matches {
		sources[match.Span.SourceID] = true
	}
	fmt.Fprintf(m.w, "%d matches in %d documents\n", len(result.Matches), len(sources))
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
