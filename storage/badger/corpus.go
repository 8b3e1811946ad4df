package badger

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/pagesift/core"
	"github.com/poiesic/pagesift/storage"
)

// CorpusRepository implements storage.CorpusRepository for BadgerDB.
type CorpusRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.CorpusRepository = (*CorpusRepository)(nil)

// NewCorpusRepository creates a new CorpusRepository.
func NewCorpusRepository(backend *Backend) (storage.CorpusRepository, error) {
	idSeq, err := backend.GetSequence(spanIDSeq)
	if err != nil {
		return nil, err
	}

	return &CorpusRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *CorpusRepository) Close() error {
	return r.idSeq.Release()
}

// WithTransaction delegates to the backend.
func (r *CorpusRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddSpans adds one or more spans to storage.
func (r *CorpusRepository) AddSpans(ctx context.Context, spans ...*core.TextSpan) ([]*core.TextSpan, error) {
	for _, span := range spans {
		if err := core.ValidateTextSpan(span); err != nil {
			return nil, err
		}
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, span := range spans {
			if span.Id == 0 {
				id, err := r.nextID()
				if err != nil {
					return err
				}
				span.Id = id
			}

			// Store primary record
			if err := tx.Set(makeSpanKey(span.Id), storage.MarshalTextSpan(span)); err != nil {
				return err
			}

			// Update source index
			if err := tx.Set(makeSpanSourceKey(span.SourceID, span.Id), storage.MarshalID(span.Id)); err != nil {
				return err
			}

			// Update date index
			if span.PageDate.Valid {
				dateKey := makeSpanDateKey(span.PageDate.Time, span.Id)
				if err := tx.Set(dateKey, storage.MarshalID(span.Id)); err != nil {
					return err
				}
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}

	return spans, nil
}

// nextID draws an ID from the sequence. BadgerDB sequences can return 0 on
// first call, so we skip it.
func (r *CorpusRepository) nextID() (core.ID, error) {
	next, err := r.idSeq.Next()
	if err != nil {
		return 0, err
	}
	if next == 0 {
		if next, err = r.idSeq.Next(); err != nil {
			return 0, err
		}
	}
	return core.ID(next), nil
}

// GetSpan retrieves a single span by ID.
func (r *CorpusRepository) GetSpan(ctx context.Context, id core.ID) (*core.TextSpan, error) {
	var result *core.TextSpan
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readSpan(tx, makeSpanKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetSpansBySource retrieves every span of one source document.
func (r *CorpusRepository) GetSpansBySource(ctx context.Context, sourceID string) ([]*core.TextSpan, error) {
	var results []*core.TextSpan
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		ids, err := scanIndexIDs(tx, makePartialSpanSourceKey(sourceID), nil, nil)
		if err != nil {
			return err
		}
		results, err = readSpans(tx, ids)
		return err
	}, false)
	return results, err
}

// GetSpansByDateRange retrieves dated spans with start <= PageDate <= end.
func (r *CorpusRepository) GetSpansByDateRange(ctx context.Context, start, end time.Time) ([]*core.TextSpan, error) {
	if end.Before(start) {
		return nil, storage.ErrInvalidQuery
	}

	var results []*core.TextSpan
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		// The end key is exclusive, so step one second past the inclusive bound.
		endKey := makePartialSpanDateKey(end.Add(time.Second))
		ids, err := scanIndexIDs(tx, []byte(spanDatePrefix), makePartialSpanDateKey(start), endKey)
		if err != nil {
			return err
		}
		results, err = readSpans(tx, ids)
		return err
	}, false)

	return results, err
}

// DeleteSpans removes spans by ID together with their indices.
// Unknown IDs are ignored.
func (r *CorpusRepository) DeleteSpans(ctx context.Context, ids ...core.ID) (int, error) {
	removed := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			span, err := readSpan(tx, makeSpanKey(id))
			if err != nil {
				return err
			}
			if span == nil {
				continue
			}
			if span.PageDate.Valid {
				if err := tx.Delete(makeSpanDateKey(span.PageDate.Time, id)); err != nil {
					return err
				}
			}
			if err := tx.Delete(makeSpanSourceKey(span.SourceID, id)); err != nil {
				return err
			}
			if err := tx.Delete(makeSpanKey(id)); err != nil {
				return err
			}
			removed++
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// CountSpans returns the number of stored spans.
func (r *CorpusRepository) CountSpans(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(spanPrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// ForEachSpan calls fn for every stored span in insertion order.
func (r *CorpusRepository) ForEachSpan(ctx context.Context, fn func(span *core.TextSpan) error) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(spanPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var span *core.TextSpan
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				span, err = storage.UnmarshalTextSpan(val)
				return err
			}); err != nil {
				return err
			}
			if err := fn(span); err != nil {
				return err
			}
		}
		return nil
	}, false)
}

// Load returns every stored span in insertion order.
func (r *CorpusRepository) Load(ctx context.Context) ([]core.TextSpan, error) {
	var spans []core.TextSpan
	err := r.ForEachSpan(ctx, func(span *core.TextSpan) error {
		spans = append(spans, *span)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return spans, nil
}

// Helper methods

// readSpan reads a span from the transaction. Returns nil, nil if the key is absent.
func readSpan(tx *badger.Txn, key []byte) (*core.TextSpan, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var span *core.TextSpan
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		span, unmarshalErr = storage.UnmarshalTextSpan(val)
		return unmarshalErr
	})
	return span, err
}

// readSpans reads the spans for ids, skipping any that no longer exist.
func readSpans(tx *badger.Txn, ids []core.ID) ([]*core.TextSpan, error) {
	spans := make([]*core.TextSpan, 0, len(ids))
	for _, id := range ids {
		span, err := readSpan(tx, makeSpanKey(id))
		if err != nil {
			return nil, err
		}
		if span != nil {
			spans = append(spans, span)
		}
	}
	return spans, nil
}

// scanIndexIDs collects the IDs stored as values under prefix, starting at start
// (or prefix when start is nil) and stopping before end when end is set.
func scanIndexIDs(tx *badger.Txn, prefix, start, end []byte) ([]core.ID, error) {
	if start == nil {
		start = prefix
	}

	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	iter := tx.NewIterator(opts)
	defer iter.Close()

	var ids []core.ID
	for iter.Seek(start); iter.Valid(); iter.Next() {
		key := iter.Item().Key()
		if !bytes.HasPrefix(key, prefix) {
			break
		}
		if end != nil && slices.Compare(key, end) >= 0 {
			break
		}

		var id core.ID
		if err := iter.Item().Value(func(val []byte) error {
			var err error
			id, err = storage.UnmarshalID(val)
			return err
		}); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
