// Package loader reads OCR corpora from their on-disk CSV form.
package loader

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/poiesic/pagesift/core"
	"github.com/poiesic/pagesift/corpus"
)

// Corpus columns. Only filename, text and the bounding box are required.
const (
	ColumnFilename   = "filename"
	ColumnDate       = "date"
	ColumnPageNumber = "page_number"
	ColumnText       = "text"
	ColumnX0         = "bbx0"
	ColumnY0         = "bby0"
	ColumnX1         = "bbx1"
	ColumnY1         = "bby1"
	ColumnFontSize   = "font_size"
)

var requiredColumns = []string{ColumnFilename, ColumnText, ColumnX0, ColumnY0, ColumnX1, ColumnY1}

var (
	filenameDate = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})`)
	filenamePage = regexp.MustCompile(`Page(\d+)`)
)

// CSVLoader loads a corpus from a positional CSV file.
type CSVLoader struct {
	path   string
	logger *slog.Logger
}

var _ corpus.Loader = (*CSVLoader)(nil)

// Option configures a CSVLoader.
type Option func(*CSVLoader)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *CSVLoader) {
		if logger == nil {
			logger = slog.Default()
		}
		l.logger = logger
	}
}

// NewCSVLoader creates a loader for the CSV file at path.
func NewCSVLoader(path string, opts ...Option) *CSVLoader {
	l := &CSVLoader{
		path:   path,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Path returns the CSV file the loader reads.
func (l *CSVLoader) Path() string {
	return l.path
}

// Load reads every span from the CSV file.
func (l *CSVLoader) Load(ctx context.Context) ([]core.TextSpan, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	spans, err := ReadSpans(ctx, f, l.logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", l.path, err)
	}
	l.logger.Debug("loaded corpus", "path", l.path, "spans", len(spans))
	return spans, nil
}

// ReadSpans parses corpus rows from r. The header row may list columns in any order.
//
// A missing or empty date falls back to a YYYY-MM-DD date found in the filename;
// a missing page number falls back to "Page<n>" in the filename. Dates that cannot
// be parsed become absent dates.
func ReadSpans(ctx context.Context, r io.Reader, logger *slog.Logger) ([]core.TextSpan, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty corpus file", ErrMissingColumn)
		}
		return nil, err
	}
	cols, err := indexColumns(header)
	if err != nil {
		return nil, err
	}

	var spans []core.TextSpan
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
		spans = append(spans, span)
	}
	return spans, nil
}

// columns maps column names to record positions; -1 marks an absent column.
type columns map[string]int

func indexColumns(header []string) (columns, error) {
	cols := make(columns, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}
	return cols, nil
}

func (c columns) field(record []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func (c columns) float(record []string, name string) (float64, error) {
	raw := c.field(record, name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q", ErrMalformedRow, name, raw)
	}
	return v, nil
}

func (c columns) parse(record []string, logger *slog.Logger) (core.TextSpan, error) {
	span := core.TextSpan{
		SourceID: c.field(record, ColumnFilename),
		Text:     c.field(record, ColumnText),
	}

	coords := [...]struct {
		name string
		dst  *float64
	}{
		{ColumnX0, &span.BBox.X0},
		{ColumnY0, &span.BBox.Y0},
		{ColumnX1, &span.BBox.X1},
		{ColumnY1, &span.BBox.Y1},
		{ColumnFontSize, &span.GlyphSize},
	}
	for _, coord := range coords {
		v, err := c.float(record, coord.name)
		if err != nil {
			return span, err
		}
		*coord.dst = v
	}

	span.PageDate = parsePageDate(c.field(record, ColumnDate), span.SourceID, logger)

	seq, err := parsePageNumber(c.field(record, ColumnPageNumber), span.SourceID)
	if err != nil {
		return span, err
	}
	span.PageSequence = seq
	return span, nil
}

func parsePageDate(raw, filename string, logger *slog.Logger) core.Date {
	if raw == "" {
		if m := filenameDate.FindStringSubmatch(filename); m != nil {
			raw = m[1]
		}
	}
	if raw == "" {
		return core.Date{}
	}
	// Spreadsheet exports sometimes carry a time component.
	if len(raw) > len(core.DateLayout) && raw[len(core.DateLayout)] == ' ' {
		raw = raw[:len(core.DateLayout)]
	}
	d, err := core.ParseDate(raw)
	if err != nil {
		logger.Debug("unparseable page date", "filename", filename, "date", raw)
		return core.Date{}
	}
	return d
}

func parsePageNumber(raw, filename string) (int, error) {
	if raw == "" {
		if m := filenamePage.FindStringSubmatch(filename); m != nil {
			raw = m[1]
		}
	}
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err == nil {
		return n, nil
	}
	// pandas writes integer columns with missing values as floats
	f, ferr := strconv.ParseFloat(raw, 64)
	if ferr != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("%w: %s %q", ErrMalformedRow, ColumnPageNumber, raw)
	}
	return int(f), nil
}
