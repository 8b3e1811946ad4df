package search

import "github.com/poiesic/pagesift/core"

// FilterDateRange keeps matches whose page date lies in r (inclusive).
//
// With no range, or a range with both bounds open, every match is kept,
// including undated ones. With an active range, undated matches are dropped:
// a page whose date is unknown cannot be shown to fall inside the range.
func FilterDateRange(matches []core.Match, r *core.DateRange) (kept []core.Match, removed int) {
	if r.IsOpen() {
		return matches, 0
	}
	kept = make([]core.Match, 0, len(matches))
	for _, m := range matches {
		if r.Contains(m.Span.PageDate) {
			kept = append(kept, m)
			continue
		}
		removed++
	}
	return kept, removed
}
