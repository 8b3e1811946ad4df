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


package core

import (
	"fmt"
	"math"
)

// ValidateQuery validates a Query before it enters the pipeline.
//
// Validation rules:
//   - At least one term, none empty
//   - SimilarityThreshold in [0, 100]
//   - MinTermsRequired in [1, len(Terms)]
//   - NegationDistance is a non-negative number
//   - DateRange start is not after end
//
// NOT validated:
//   - Negation terms (an empty set disables negation filtering)
func ValidateQuery(q *Query) error {
	if q == nil {
		return fmt.Errorf("%w: query is nil", ErrInvalidQuery)
	}

	if len(q.Terms) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidQuery, ErrNoTerms)
	}
	for _, term := range q.Terms {
		if term == "" {
			return fmt.Errorf("%w: %w", ErrInvalidQuery, ErrEmptyTerm)
		}
	}

	if q.SimilarityThreshold < 0 || q.SimilarityThreshold > 100 {
		return fmt.Errorf("%w: %w: got %d", ErrInvalidQuery, ErrThresholdRange, q.SimilarityThreshold)
	}

	if q.MinTermsRequired < 1 || q.MinTermsRequired > len(q.Terms) {
		return fmt.Errorf("%w: %w: must be between 1 and %d, got %d",
			ErrInvalidQuery, ErrMinTermsRange, len(q.Terms), q.MinTermsRequired)
	}

	if q.NegationDistance < 0 || math.IsNaN(q.NegationDistance) {
		return fmt.Errorf("%w: %w", ErrInvalidQuery, ErrNegativeDistance)
	}

	if r := q.DateRange; r != nil && r.Start.Valid && r.End.Valid && r.Start.Time.After(r.End.Time) {
		return fmt.Errorf("%w: %w: %s > %s", ErrInvalidQuery, ErrDateBounds, r.Start, r.End)
	}

	return nil
}

// ValidateTextSpan validates a TextSpan according to corpus rules.
//
// Validation rules:
//   - SourceID must not be empty
//   - BBox must not be inverted (zero area is a valid blank-page marker)
//
// NOT validated:
//   - Text (may be empty on blank pages)
//   - PageDate (optional)
func ValidateTextSpan(span *TextSpan) error {
	if span == nil {
		return fmt.Errorf("%w: span is nil", ErrInvalidTextSpan)
	}

	if span.SourceID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidTextSpan, ErrEmptySourceID)
	}

	if span.BBox.X1 < span.BBox.X0 || span.BBox.Y1 < span.BBox.Y0 {
		return fmt.Errorf("%w: %w: %+v", ErrInvalidTextSpan, ErrInvertedBBox, span.BBox)
	}

	return nil
}
