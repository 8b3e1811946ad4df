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


// Package pagesift searches OCR text corpora for terms and renders the hits
// as highlighted, merged PDFs.
//
// A Database stores ingested corpora on disk; searches run over an immutable
// snapshot loaded from it.
package pagesift

import (
	"context"
	"log/slog"
	"time"

	"github.com/poiesic/pagesift/core"
	"github.com/poiesic/pagesift/corpus"
	"github.com/poiesic/pagesift/ingestion"
	"github.com/poiesic/pagesift/search"
	"github.com/poiesic/pagesift/storage"
	"github.com/poiesic/pagesift/storage/badger"
)

type Database struct {
	backend        *badger.Backend
	corpusRepo     storage.CorpusRepository
	checkpointRepo storage.CheckpointRepository
	logger         *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	logger   *slog.Logger
	inMemory bool
}

// WithDatabaseLogger sets the logger used by the database and the components it creates.
func WithDatabaseLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// InMemory keeps the database in memory. The file path is ignored.
func InMemory() DatabaseOption {
	return func(o *databaseOptions) {
		o.inMemory = true
	}
}

func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	// Apply options
	options := &databaseOptions{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	// Open backend
	backend, err := badger.OpenBackend(filePath, options.inMemory, badger.WithBackendLogger(options.logger))
	if err != nil {
		return nil, err
	}

	// Create corpus repository
	corpusRepo, err := badger.NewCorpusRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	// Create checkpoint repository
	checkpointRepo := badger.NewCheckpointRepository(backend)

	return &Database{
		backend:        backend,
		corpusRepo:     corpusRepo,
		checkpointRepo: checkpointRepo,
		logger:         options.logger,
	}, nil
}

func (db *Database) Close() error {
	// Close repositories
	if err := db.corpusRepo.Close(); err != nil {
		db.logger.Error("error closing corpus repository", "err", err)
		return err
	}

	// Close backend
	if err := db.backend.Close(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (db *Database) CorpusRepository() storage.CorpusRepository {
	return db.corpusRepo
}

func (db *Database) CheckpointRepository() storage.CheckpointRepository {
	return db.checkpointRepo
}

// NewIngestionPipeline creates a pipeline writing into this database.
// Checkpoints are enabled; opts are applied after the defaults.
func (db *Database) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	defaults := []ingestion.Option{
		ingestion.WithLogger(db.logger),
		ingestion.WithCheckpoints(db.checkpointRepo),
	}
	return ingestion.NewPipeline(db.corpusRepo, append(defaults, opts...)...)
}

// Snapshot loads the stored corpus into an immutable store.
func (db *Database) Snapshot(ctx context.Context) (*corpus.Store, error) {
	return db.snapshot(ctx, db.corpusRepo)
}

// lastDate bounds date-range snapshots whose end is open.
var lastDate = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

// SnapshotRange loads only the spans dated within r, using the date index.
// Undated spans are left out, as the date filter would drop them anyway.
// An open range loads the whole corpus.
func (db *Database) SnapshotRange(ctx context.Context, r *core.DateRange) (*corpus.Store, error) {
	if r.IsOpen() {
		return db.Snapshot(ctx)
	}
	var start time.Time
	end := lastDate
	if r.Start.Valid {
		start = r.Start.Time
	}
	if r.End.Valid {
		end = r.End.Time
	}
	return db.snapshot(ctx, corpus.LoaderFunc(func(ctx context.Context) ([]core.TextSpan, error) {
		stored, err := db.corpusRepo.GetSpansByDateRange(ctx, start, end)
		if err != nil {
			return nil, err
		}
		spans := make([]core.TextSpan, len(stored))
		for i, s := range stored {
			spans[i] = *s
		}
		return spans, nil
	}))
}

func (db *Database) snapshot(ctx context.Context, loader corpus.Loader) (*corpus.Store, error) {
	store, err := corpus.Open(ctx, loader)
	if err != nil {
		return nil, err
	}
	db.logger.Info("corpus snapshot loaded", "spans", store.Len(), "sources", len(store.Sources()))
	return store, nil
}

// NewSearcher snapshots the stored corpus and creates a searcher over it.
// The caller must Release the searcher.
func (db *Database) NewSearcher(ctx context.Context, opts ...search.Option) (*search.Searcher, error) {
	store, err := db.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	defaults := []search.Option{search.WithLogger(db.logger)}
	return search.NewSearcher(store, append(defaults, opts...)...)
}
