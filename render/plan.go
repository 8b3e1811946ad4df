package render

import (
	"path/filepath"
	"strings"

	"github.com/poiesic/pagesift/core"
)

// Color is an RGB highlight color with components in [0, 1].
type Color struct {
	R, G, B float64
}

// Highlight palette
var (
	Yellow = Color{1, 1, 0}
	Orange = Color{1, 0.8, 0.3}
	Green  = Color{0.6, 1, 0.6}
	Blue   = Color{0.6, 0.8, 1}
	Pink   = Color{1, 0.6, 0.6}
)

var termPalette = [...]Color{Yellow, Orange, Green, Blue, Pink}

// ColorMode selects how highlight colors are assigned.
type ColorMode int

const (
	// ColorBySimilarity colors exact matches yellow and fades with similarity.
	ColorBySimilarity ColorMode = iota
	// ColorByTerm gives each query term its own stable color.
	ColorByTerm
)

func (m ColorMode) String() string {
	if m == ColorByTerm {
		return "term"
	}
	return "similarity"
}

// SimilarityColor maps a similarity score to the similarity palette.
func SimilarityColor(similarity int) Color {
	switch {
	case similarity >= 100:
		return Yellow
	case similarity >= 90:
		return Orange
	case similarity >= 80:
		return Green
	default:
		return Blue
	}
}

// TermColor maps a term to the term palette by its BLAKE2b content ID, so the
// color is identical across runs and processes.
func TermColor(term string) Color {
	return termPalette[uint64(core.IDFromContent(term))%uint64(len(termPalette))]
}

// ColorModeFor picks the palette for saved results: term colors when the
// matches carry co-occurrence page terms, similarity colors otherwise.
func ColorModeFor(matches []core.Match) ColorMode {
	for i := range matches {
		if len(matches[i].PageTerms) > 0 {
			return ColorByTerm
		}
	}
	return ColorBySimilarity
}

// DisplayName is the base name of a source document with its extension stripped.
func DisplayName(sourceID string) string {
	base := filepath.Base(sourceID)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Highlight is one region to mark on a document.
type Highlight struct {
	BBox  core.BBox
	Color Color
	Term  string
}

// PlanEntry holds everything rendered for one source document.
type PlanEntry struct {
	SourceID   string
	Highlights []Highlight
	Watermark  string // Empty when no watermark is drawn
	Bookmark   string // Empty when no outline entry is added
}

// Plan is the ordered set of documents to render and merge.
type Plan struct {
	Entries []PlanEntry
}

// Highlights returns the total number of highlights in the plan.
func (p *Plan) Highlights() int {
	n := 0
	for _, e := range p.Entries {
		n += len(e.Highlights)
	}
	return n
}

// PlanOptions are the decorations requested for a plan.
type PlanOptions struct {
	ColorMode  ColorMode
	Watermarks bool
	Bookmarks  bool
}

// BuildPlan groups ranked matches by source document. Documents appear in the
// order of their first match and highlights keep match order within a document.
// Matches on blank-page markers have nothing to highlight and are ignored.
func BuildPlan(matches []core.Match, opts PlanOptions) *Plan {
	plan := &Plan{}
	index := make(map[string]int)

	for _, m := range matches {
		if m.Span.IsEmptyPage() {
			continue
		}
		i, ok := index[m.Span.SourceID]
		if !ok {
			i = len(plan.Entries)
			index[m.Span.SourceID] = i
			entry := PlanEntry{SourceID: m.Span.SourceID}
			name := DisplayName(m.Span.SourceID)
			if opts.Watermarks {
				entry.Watermark = name
			}
			if opts.Bookmarks {
				entry.Bookmark = name
			}
			plan.Entries = append(plan.Entries, entry)
		}

		color := SimilarityColor(m.Similarity)
		if opts.ColorMode == ColorByTerm {
			color = TermColor(m.Term)
		}
		plan.Entries[i].Highlights = append(plan.Entries[i].Highlights, Highlight{
			BBox:  m.Span.BBox,
			Color: color,
			Term:  m.Term,
		})
	}
	return plan
}
