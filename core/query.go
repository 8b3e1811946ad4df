package core

const (
	// DefaultSimilarityThreshold is the minimum fuzzy similarity used when none is given.
	DefaultSimilarityThreshold = 80

	// DefaultNegationDistance is the anchor radius used when none is given.
	DefaultNegationDistance = 100.0
)

// DateRange is an inclusive calendar interval. Either bound may be absent.
type DateRange struct {
	Start Date
	End   Date
}

// Contains reports whether d lies inside the range. Absent dates are never contained.
func (r *DateRange) Contains(d Date) bool {
	if !d.Valid {
		return false
	}
	if r.Start.Valid && d.Time.Before(r.Start.Time) {
		return false
	}
	if r.End.Valid && d.Time.After(r.End.Time) {
		return false
	}
	return true
}

// IsOpen reports whether neither bound is set.
func (r *DateRange) IsOpen() bool {
	return r == nil || (!r.Start.Valid && !r.End.Valid)
}

// Query is one search request. It is read-only once built.
type Query struct {
	Terms               []string
	SimilarityThreshold int
	MinTermsRequired    int
	NegationTerms       []string
	NegationDistance    float64
	DateRange           *DateRange
}

// IsCoOccurrence reports whether the query needs page-level term aggregation.
func (q *Query) IsCoOccurrence() bool {
	return len(q.Terms) > 1
}

// QueryOption configures a Query.
type QueryOption func(*Query)

// WithSimilarityThreshold sets the minimum fuzzy similarity (0-100).
func WithSimilarityThreshold(threshold int) QueryOption {
	return func(q *Query) {
		q.SimilarityThreshold = threshold
	}
}

// WithMinTermsRequired sets how many distinct terms must share a page.
func WithMinTermsRequired(n int) QueryOption {
	return func(q *Query) {
		q.MinTermsRequired = n
	}
}

// WithNegation excludes matches that have any of terms within distance of their anchor.
func WithNegation(distance float64, terms ...string) QueryOption {
	return func(q *Query) {
		q.NegationTerms = append(q.NegationTerms, terms...)
		q.NegationDistance = distance
	}
}

// WithDateRange restricts matches to pages dated within [start, end].
func WithDateRange(start, end Date) QueryOption {
	return func(q *Query) {
		if !start.Valid && !end.Valid {
			q.DateRange = nil
			return
		}
		q.DateRange = &DateRange{Start: start, End: end}
	}
}

// NewQuery builds a validated query. MinTermsRequired defaults to the number of terms.
func NewQuery(terms []string, opts ...QueryOption) (*Query, error) {
	q := &Query{
		Terms:               append([]string(nil), terms...),
		SimilarityThreshold: DefaultSimilarityThreshold,
		MinTermsRequired:    len(terms),
		NegationDistance:    DefaultNegationDistance,
	}
	for _, opt := range opts {
		opt(q)
	}
	if err := ValidateQuery(q); err != nil {
		return nil, err
	}
	return q, nil
}
