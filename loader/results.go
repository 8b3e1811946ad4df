package loader

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/poiesic/pagesift/core"
)

// Results columns written after the corpus columns of each match row.
const (
	ColumnSearchTerm       = "search_term"
	ColumnMatchType        = "match_type"
	ColumnSimilarity       = "similarity"
	ColumnCoOccurringTerms = "co_occurring_terms"
)

// ReadMatchesFile reads a saved search results CSV.
func ReadMatchesFile(ctx context.Context, path string, logger *slog.Logger) ([]core.Match, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	matches, err := ReadMatches(ctx, f, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return matches, nil
}

// ReadMatches parses search results rows from r, in file order.
//
// The corpus columns are read as by ReadSpans. Match columns are optional: a
// missing similarity reads as 100, a missing match type is derived from the
// similarity, and co_occurring_terms is a comma separated list.
func ReadMatches(ctx context.Context, r io.Reader, logger *slog.Logger) ([]core.Match, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty results file", ErrMissingColumn)
		}
		return nil, err
	}
	cols, err := indexColumns(header)
	if err != nil {
		return nil, err
	}

	var matches []core.Match
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)

		span, err := cols.parse(record, logger)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if err := core.ValidateTextSpan(&span); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		m, err := cols.match(record, span)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		m.SpanIndex = len(matches)
		matches = append(matches, m)
	}
	return matches, nil
}

func (c columns) match(record []string, span core.TextSpan) (core.Match, error) {
	m := core.Match{
		Span:       span,
		Term:       c.field(record, ColumnSearchTerm),
		Similarity: 100,
	}

	if raw := c.field(record, ColumnSimilarity); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 || v > 100 {
			return m, fmt.Errorf("%w: %s %q", ErrMalformedRow, ColumnSimilarity, raw)
		}
		m.Similarity = int(v)
	}

	switch kind := strings.ToLower(c.field(record, ColumnMatchType)); kind {
	case "exact":
		m.Kind = core.MatchExact
	case "fuzzy":
		m.Kind = core.MatchFuzzy
	case "":
		m.Kind = core.MatchFuzzy
		if m.Similarity == 100 {
			m.Kind = core.MatchExact
		}
	default:
		return m, fmt.Errorf("%w: %s %q", ErrMalformedRow, ColumnMatchType, kind)
	}

	for _, term := range strings.Split(c.field(record, ColumnCoOccurringTerms), ",") {
		if term = strings.TrimSpace(term); term != "" {
			m.PageTerms = append(m.PageTerms, term)
		}
	}
	return m, nil
}
