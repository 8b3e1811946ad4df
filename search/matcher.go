package search

import (
	"context"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/pagesift/core"
	"github.com/poiesic/pagesift/corpus"
)

// DefaultChunkSize is the number of spans matched per worker task.
const DefaultChunkSize = 10000

type termPattern struct {
	term       string
	lower      string
	normalized string
}

func compileTerms(terms []string) []termPattern {
	patterns := make([]termPattern, len(terms))
	for i, term := range terms {
		patterns[i] = termPattern{
			term:       term,
			lower:      strings.ToLower(term),
			normalized: normalizeText(term),
		}
	}
	return patterns
}

// Matcher runs the exact and fuzzy matching stages over a corpus.
// Chunks are independent; a nil pool runs them inline.
type Matcher struct {
	pool      *ants.Pool
	chunkSize int
}

// NewMatcher creates a matcher. chunkSize < 1 uses DefaultChunkSize.
func NewMatcher(pool *ants.Pool, chunkSize int) *Matcher {
	if chunkSize < 1 {
		chunkSize = DefaultChunkSize
	}
	return &Matcher{pool: pool, chunkSize: chunkSize}
}

// FindMatches returns every exact and fuzzy match of the query terms.
// The result is ordered by corpus index, then by term order, for any chunk size.
func (m *Matcher) FindMatches(ctx context.Context, store *corpus.Store, q *core.Query) ([]core.Match, error) {
	terms := compileTerms(q.Terms)
	chunks := store.Chunks(m.chunkSize)
	results := make([][]core.Match, len(chunks))

	var wg sync.WaitGroup
	var submitErr error
	for i, chunk := range chunks {
		if ctx.Err() != nil {
			break
		}
		task := func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			results[i] = matchChunk(store, chunk, terms, q.SimilarityThreshold)
		}
		wg.Add(1)
		if m.pool == nil {
			task()
			continue
		}
		if err := m.pool.Submit(task); err != nil {
			wg.Done()
			submitErr = err
			break
		}
	}
	wg.Wait()

	if submitErr != nil {
		return nil, submitErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	total := 0
	for _, r := range results {
		total += len(r)
	}
	matches := make([]core.Match, 0, total)
	for _, r := range results {
		matches = append(matches, r...)
	}
	return matches, nil
}

func matchChunk(store *corpus.Store, chunk corpus.Chunk, terms []termPattern, threshold int) []core.Match {
	var out []core.Match
	for idx, span := range store.Range(chunk.Lo, chunk.Hi) {
		out = matchSpan(out, idx, span, terms, threshold)
	}
	return out
}

// matchSpan appends the matches of one span against every term.
// The fuzzy stage only runs for terms the span did not match exactly.
// Blank-page markers never match.
func matchSpan(dst []core.Match, idx int, span core.TextSpan, terms []termPattern, threshold int) []core.Match {
	if span.IsEmptyPage() {
		return dst
	}
	lower := strings.ToLower(span.Text)
	var words []string
	tokenized := false

	for _, t := range terms {
		if strings.Contains(lower, t.lower) {
			dst = append(dst, core.Match{
				Span:       span,
				SpanIndex:  idx,
				Term:       t.term,
				Kind:       core.MatchExact,
				Similarity: 100,
			})
			continue
		}
		if t.normalized == "" {
			continue
		}
		if !tokenized {
			words = tokenize(span.Text)
			tokenized = true
		}
		if len(words) == 0 {
			continue
		}
		if score := bestWordSimilarity(t.normalized, words); score >= threshold {
			dst = append(dst, core.Match{
				Span:       span,
				SpanIndex:  idx,
				Term:       t.term,
				Kind:       core.MatchFuzzy,
				Similarity: score,
			})
		}
	}
	return dst
}
