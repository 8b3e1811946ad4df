package core

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for persisted text spans.
// It is generated from database sequences or content hashing.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// DateLayout is the calendar date format used for page dates and date bounds.
const DateLayout = "2006-01-02"

// Date is an optional calendar date. The zero value is an absent date.
type Date struct {
	Time  time.Time
	Valid bool
}

// NewDate returns a valid Date for the given calendar day in UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC), Valid: true}
}

// ParseDate parses a YYYY-MM-DD string. Empty input yields an absent date and no error.
func ParseDate(s string) (Date, error) {
	if s == "" {
		return Date{}, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t, Valid: true}, nil
}

// Compare orders dates chronologically. Absent dates sort after every present date.
func (d Date) Compare(o Date) int {
	switch {
	case d.Valid && o.Valid:
		return d.Time.Compare(o.Time)
	case d.Valid:
		return -1
	case o.Valid:
		return 1
	}
	return 0
}

func (d Date) String() string {
	if !d.Valid {
		return ""
	}
	return d.Time.Format(DateLayout)
}

// BBox is a rectangle in document point space with a top-left origin.
type BBox struct {
	X0, Y0, X1, Y1 float64
}

// Area returns the rectangle's area.
func (b BBox) Area() float64 {
	return (b.X1 - b.X0) * (b.Y1 - b.Y0)
}

// TextSpan is one OCR-extracted run of text on a page.
type TextSpan struct {
	Id           ID
	SourceID     string // Document identity, unique per physical page
	PageDate     Date
	PageSequence int // Position of the page within its source grouping
	Text         string
	BBox         BBox
	GlyphSize    float64 // Informational only
}

// IsEmptyPage reports whether the span is a synthetic blank-page marker.
func (s *TextSpan) IsEmptyPage() bool {
	return s.BBox.Area() == 0
}

// PageKey returns the key of the page the span belongs to.
func (s *TextSpan) PageKey() PageKey {
	return PageKey{SourceID: s.SourceID, PageSequence: s.PageSequence}
}

// MatchKind distinguishes how a span satisfied a term.
type MatchKind int

const (
	// MatchExact is a case-insensitive substring match.
	MatchExact MatchKind = iota + 1
	// MatchFuzzy is a word-level edit-distance match.
	MatchFuzzy
)

func (k MatchKind) String() string {
	switch k {
	case MatchExact:
		return "exact"
	case MatchFuzzy:
		return "fuzzy"
	}
	return fmt.Sprintf("MatchKind(%d)", int(k))
}

// Match is a text span judged to satisfy one query term.
type Match struct {
	Span       TextSpan
	SpanIndex  int // Position of the span in the corpus snapshot
	Term       string
	Kind       MatchKind
	Similarity int      // 0-100, 100 for exact matches
	PageTerms  []string // Distinct terms on the page, set by co-occurrence aggregation
}

// PageKey identifies one page for co-occurrence grouping.
type PageKey struct {
	SourceID     string
	PageSequence int
}

// PageGroup holds the matches and distinct terms found on one page.
type PageGroup struct {
	Key     PageKey
	Terms   []string
	Matches []Match
}
