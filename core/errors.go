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

import "errors"

// Pipeline-level errors
var (
	// ErrCorpusUnavailable indicates the corpus could not be loaded.
	ErrCorpusUnavailable = errors.New("corpus unavailable")

	// ErrInvalidQuery indicates a Query failed validation.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrInvalidTextSpan indicates a TextSpan failed validation.
	ErrInvalidTextSpan = errors.New("invalid text span")
)

// Validation details
var (
	// ErrNoTerms indicates the query has no search terms.
	ErrNoTerms = errors.New("at least one search term is required")

	// ErrEmptyTerm indicates a search term is an empty string.
	ErrEmptyTerm = errors.New("search terms cannot be empty")

	// ErrThresholdRange indicates the similarity threshold is outside [0, 100].
	ErrThresholdRange = errors.New("similarity threshold must be between 0 and 100")

	// ErrMinTermsRange indicates MinTermsRequired is outside [1, len(terms)].
	ErrMinTermsRange = errors.New("min terms required out of range")

	// ErrNegativeDistance indicates a negative negation distance.
	ErrNegativeDistance = errors.New("negation distance cannot be negative")

	// ErrDateBounds indicates the date range start is after its end.
	ErrDateBounds = errors.New("date range start is after end")

	// ErrInvertedBBox indicates a bounding box with x1 < x0 or y1 < y0.
	ErrInvertedBBox = errors.New("bounding box is inverted")

	// ErrEmptySourceID indicates a span without a source document.
	ErrEmptySourceID = errors.New("source id cannot be empty")
)
