package storage

import (
	"context"
	"time"

	"github.com/poiesic/pagesift/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// CorpusRepository persists OCR text spans and serves them back as a corpus snapshot.
type CorpusRepository interface {
	Repository

	// AddSpans adds one or more spans to storage.
	// Generates new IDs from a sequence for spans with ID=0.
	// Spans are returned in insertion order with IDs populated.
	AddSpans(ctx context.Context, spans ...*core.TextSpan) ([]*core.TextSpan, error)

	// GetSpan retrieves a single span by ID.
	// Returns ErrNotFound if the span doesn't exist.
	GetSpan(ctx context.Context, id core.ID) (*core.TextSpan, error)

	// GetSpansBySource retrieves every span of one source document, in insertion order.
	GetSpansBySource(ctx context.Context, sourceID string) ([]*core.TextSpan, error)

	// GetSpansByDateRange retrieves dated spans with start <= PageDate <= end,
	// ordered by page date. Undated spans are never returned.
	GetSpansByDateRange(ctx context.Context, start, end time.Time) ([]*core.TextSpan, error)

	// DeleteSpans removes spans by ID together with their indices.
	// Unknown IDs are ignored. Returns the number of spans removed.
	DeleteSpans(ctx context.Context, ids ...core.ID) (int, error)

	// CountSpans returns the number of stored spans.
	CountSpans(ctx context.Context) (int, error)

	// ForEachSpan calls fn for every stored span in insertion order.
	// Iteration stops at the first error fn returns.
	ForEachSpan(ctx context.Context, fn func(span *core.TextSpan) error) error

	// Load returns every stored span in insertion order.
	// This makes a CorpusRepository usable as a corpus.Loader.
	Load(ctx context.Context) ([]core.TextSpan, error)
}

// Checkpoint records that one corpus file has been ingested.
type Checkpoint struct {
	Source      string // Corpus file path
	Fingerprint string // Content hash of the ingested file
	Spans       int
	UpdatedAt   time.Time
}

// CheckpointRepository tracks ingested corpus files so unchanged files can be skipped.
type CheckpointRepository interface {
	// SaveCheckpoint persists a checkpoint, replacing any previous one for the same source.
	SaveCheckpoint(ctx context.Context, checkpoint *Checkpoint) error

	// LoadCheckpoint retrieves the checkpoint for a source.
	// Returns nil, nil if no checkpoint exists.
	LoadCheckpoint(ctx context.Context, source string) (*Checkpoint, error)

	// ListCheckpoints returns every checkpoint ordered by source.
	ListCheckpoints(ctx context.Context) ([]*Checkpoint, error)
}
