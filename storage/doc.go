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


// Package storage provides the persistence abstraction for pagesift corpora.
//
// The search pipeline never touches storage directly. It reads an immutable
// corpus.Store, and a CorpusRepository is one way to fill that store: its Load
// method satisfies corpus.Loader.
//
// # Constructor Return Type Pattern
//
// Public constructors in backend packages return the interfaces defined here:
//
//	repo, err := badger.NewCorpusRepository(backend)  // returns storage.CorpusRepository
//
// Internal helpers may return concrete types since they're only used within
// the implementation package.
//
// # Architecture
//
//   - Repository: transaction support and lifecycle
//   - CorpusRepository: text spans indexed by source document and page date
//   - CheckpointRepository: which corpus files have been ingested, by content hash
//
// Spans are encoded with mus-go (see MarshalTextSpan).
//
// # Usage
//
//	backend, err := badger.OpenBackend("/path/to/db", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
//	repo, err := badger.NewCorpusRepository(backend)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer repo.Close()
//
//	store, err := corpus.Open(ctx, repo)
//
// Use in tests with in-memory storage:
//
//	repo, backend, err := badger.NewMemoryRepository()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
