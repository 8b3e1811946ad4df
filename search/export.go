package search

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/poiesic/pagesift/core"
)

var exportHeader = []string{
	"filename", "date", "page_number", "text",
	"bbx0", "bby0", "bbx1", "bby1", "font_size",
	"search_term", "match_type", "similarity",
	"co_occurring_terms_count", "co_occurring_terms",
}

// WriteCSV writes matches as CSV rows in the positional corpus column layout,
// followed by match columns.
func WriteCSV(w io.Writer, matches []core.Match) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for _, m := range matches {
		s := m.Span
		row := []string{
			s.SourceID,
			s.PageDate.String(),
			strconv.Itoa(s.PageSequence),
			s.Text,
			formatFloat(s.BBox.X0),
			formatFloat(s.BBox.Y0),
			formatFloat(s.BBox.X1),
			formatFloat(s.BBox.Y1),
			formatFloat(s.GlyphSize),
			m.Term,
			m.Kind.String(),
			strconv.Itoa(m.Similarity),
			strconv.Itoa(len(m.PageTerms)),
			strings.Join(m.PageTerms, ", "),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
