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


// Package search implements the match-filter-aggregate pipeline over a corpus
// of positioned OCR text spans.
//
// The Searcher runs these stages in order:
//   - Matching: case-insensitive substring matches, then word-level fuzzy
//     matches scored by normalized edit distance
//   - Negation: drops matches with a negating word near their anchor point
//   - Date range: keeps matches whose page date lies in the query range
//   - Co-occurrence: for multi-term queries, keeps pages where enough
//     distinct terms matched
//   - Ranking: a deterministic total order for presentation and rendering
//
// Every stage is also exported as a pure function so it can be used on its own.
// Matching is split into corpus chunks executed on a worker pool; the result
// does not depend on the chunk size.
package search
