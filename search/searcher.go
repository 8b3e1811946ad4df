package search

import (
	"context"
	"log/slog"
	"runtime"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/pagesift/core"
	"github.com/poiesic/pagesift/corpus"
)

// Stats summarizes what each pipeline stage did.
type Stats struct {
	Spans               int
	ExactMatches        int
	FuzzyMatches        int
	NegationOccurrences map[string]int
	ExcludedBy          map[string]int
	DateRemoved         int
	PagesWithTerms      int
	QualifyingPages     int
}

// Result is the ranked outcome of one search.
type Result struct {
	Query   *core.Query
	Matches []core.Match
	// Groups holds the qualifying pages of a co-occurrence search.
	Groups []core.PageGroup
	Stats  Stats
}

// Empty reports whether the search found nothing. It is a terminal state, not an error.
func (r *Result) Empty() bool {
	return len(r.Matches) == 0
}

// Searcher runs the search pipeline over one immutable corpus.
type Searcher struct {
	store     *corpus.Store
	pool      *ants.Pool
	chunkSize int
	logger    *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithPoolSize sets the number of fuzzy matching workers.
func WithPoolSize(size int) Option {
	return func(s *Searcher) error {
		if size < 1 {
			return ErrInvalidPoolSize
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if s.pool != nil {
			s.pool.Release()
		}
		s.pool = pool
		return nil
	}
}

// WithChunkSize sets how many spans one matching task covers.
// Default is DefaultChunkSize.
func WithChunkSize(size int) Option {
	return func(s *Searcher) error {
		if size < 1 {
			size = DefaultChunkSize
		}
		s.chunkSize = size
		return nil
	}
}

// NewSearcher creates a searcher over store.
// Callers must Release the searcher when done.
func NewSearcher(store *corpus.Store, opts ...Option) (*Searcher, error) {
	if store == nil {
		return nil, ErrCorpusRequired
	}

	// Default pool size
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	s := &Searcher{
		store:     store,
		pool:      pool,
		chunkSize: DefaultChunkSize,
		logger:    slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			s.Release()
			return nil, err
		}
	}

	return s, nil
}

// Release frees the worker pool.
func (s *Searcher) Release() {
	if s.pool != nil {
		s.pool.Release()
	}
}

// Search runs the full pipeline for q.
func (s *Searcher) Search(ctx context.Context, q *core.Query) (*Result, error) {
	return s.SearchWithMonitor(ctx, q, nil)
}

// SearchWithMonitor runs the full pipeline for q, reporting each stage to monitor.
// The query is validated first; cancellation is checked between stages.
func (s *Searcher) SearchWithMonitor(ctx context.Context, q *core.Query, monitor SearchMonitor) (*Result, error) {
	if err := core.ValidateQuery(q); err != nil {
		return nil, err
	}
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	monitor.Start(q, s.store.Len())
	result := &Result{Query: q, Stats: Stats{Spans: s.store.Len()}}

	// 1. Exact and fuzzy matching
	matcher := NewMatcher(s.pool, s.chunkSize)
	matches, err := matcher.FindMatches(ctx, s.store, q)
	if err != nil {
		s.logger.Error("error matching terms", "terms", q.Terms, "err", err)
		return nil, err
	}
	for _, m := range matches {
		if m.Kind == core.MatchExact {
			result.Stats.ExactMatches++
		} else {
			result.Stats.FuzzyMatches++
		}
	}
	monitor.AfterMatching(matches)
	s.logger.Debug("matching complete", "exact", result.Stats.ExactMatches, "fuzzy", result.Stats.FuzzyMatches)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 2. Negation filtering
	negation := FilterNegated(matches, s.store, q.NegationTerms, q.NegationDistance)
	result.Stats.NegationOccurrences = negation.Occurrences
	result.Stats.ExcludedBy = negation.ExcludedBy
	monitor.AfterNegation(negation)
	for _, d := range negation.Dropped {
		s.logger.Debug("match excluded by negation term",
			"source", d.Match.Span.SourceID, "term", d.Match.Term,
			"negation", d.ClosestTerm, "distance", d.Distance)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 3. Date range filtering
	matches, result.Stats.DateRemoved = FilterDateRange(negation.Kept, q.DateRange)
	monitor.AfterDateFilter(matches, result.Stats.DateRemoved)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 4. Co-occurrence aggregation
	if q.IsCoOccurrence() {
		result.Stats.PagesWithTerms = PagesWithTerms(matches)
		matches, result.Groups = AggregateCoOccurrence(matches, q.MinTermsRequired)
		result.Stats.QualifyingPages = len(result.Groups)
		monitor.AfterCoOccurrence(result.Stats.PagesWithTerms, result.Groups)
	}

	// 5. Ranking
	result.Matches = Rank(matches, q.IsCoOccurrence())
	monitor.Finish(result)

	if result.Empty() {
		s.logger.Info("no matches found", "terms", q.Terms)
	}
	return result, nil
}
