// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package corpus holds the immutable, in-memory snapshot of text spans that one
// search run operates on.
//
// A Store is built once from a Loader and never changes afterwards, so it is
// safe for concurrent reads from any number of matching workers.
package corpus

import (
	"context"
	"fmt"
	"iter"
	"slices"

	"github.com/poiesic/pagesift/core"
)

// Loader supplies a fully materialized collection of text spans.
type Loader interface {
	Load(ctx context.Context) ([]core.TextSpan, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context) ([]core.TextSpan, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context) ([]core.TextSpan, error) {
	return f(ctx)
}

// Store is an immutable snapshot of a corpus.
type Store struct {
	spans []core.TextSpan
}

// Open loads a corpus through loader. Any failure is reported as core.ErrCorpusUnavailable.
func Open(ctx context.Context, loader Loader) (*Store, error) {
	if loader == nil {
		return nil, fmt.Errorf("%w: no loader", core.ErrCorpusUnavailable)
	}
	spans, err := loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrCorpusUnavailable, err)
	}
	return NewStore(spans), nil
}

// NewStore builds a Store from spans. The slice is copied.
func NewStore(spans []core.TextSpan) *Store {
	return &Store{spans: slices.Clone(spans)}
}

// Len returns the number of spans.
func (s *Store) Len() int {
	return len(s.spans)
}

// Span returns the span at index i.
func (s *Store) Span(i int) core.TextSpan {
	return s.spans[i]
}

// Range iterates spans in [lo, hi) with their corpus index.
func (s *Store) Range(lo, hi int) iter.Seq2[int, core.TextSpan] {
	lo = max(lo, 0)
	hi = min(hi, len(s.spans))
	return func(yield func(int, core.TextSpan) bool) {
		for i := lo; i < hi; i++ {
			if !yield(i, s.spans[i]) {
				return
			}
		}
	}
}

// All iterates every span with its corpus index.
func (s *Store) All() iter.Seq2[int, core.TextSpan] {
	return s.Range(0, len(s.spans))
}

// Sources returns every distinct source id, sorted.
func (s *Store) Sources() []string {
	seen := make(map[string]bool)
	var ids []string
	for i := range s.spans {
		id := s.spans[i].SourceID
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// Chunk is a contiguous span range [Lo, Hi).
type Chunk struct {
	Lo, Hi int
}

// Chunks partitions the corpus into contiguous ranges of at most size spans.
func (s *Store) Chunks(size int) []Chunk {
	if size < 1 {
		size = 1
	}
	chunks := make([]Chunk, 0, (len(s.spans)+size-1)/size)
	for lo := 0; lo < len(s.spans); lo += size {
		chunks = append(chunks, Chunk{Lo: lo, Hi: min(lo+size, len(s.spans))})
	}
	return chunks
}
