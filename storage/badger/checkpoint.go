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


package badger

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/pagesift/storage"
)

// CheckpointRepository records which corpus files were ingested, keyed by absolute path.
type CheckpointRepository struct {
	backend *Backend
}

var _ storage.CheckpointRepository = (*CheckpointRepository)(nil)

func NewCheckpointRepository(backend *Backend) *CheckpointRepository {
	return &CheckpointRepository{backend: backend}
}

// checkpointSource makes relative and absolute spellings of one corpus file share a checkpoint.
func checkpointSource(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// SaveCheckpoint stores a copy of checkpoint stamped with the current time.
// The caller's value is not modified.
func (r *CheckpointRepository) SaveCheckpoint(ctx context.Context, checkpoint *storage.Checkpoint) error {
	cp := *checkpoint
	cp.Source = checkpointSource(cp.Source)
	cp.UpdatedAt = time.Now().UTC()

	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeCheckpointKey(cp.Source), storage.MarshalCheckpoint(&cp)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// LoadCheckpoint returns nil, nil for a corpus file that was never ingested.
func (r *CheckpointRepository) LoadCheckpoint(ctx context.Context, source string) (*storage.Checkpoint, error) {
	var cp *storage.Checkpoint
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeCheckpointKey(checkpointSource(source)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			cp, err = storage.UnmarshalCheckpoint(val)
			return err
		})
	}, false)
	return cp, err
}

// ListCheckpoints returns every ingested corpus file ordered by path.
func (r *CheckpointRepository) ListCheckpoints(ctx context.Context) ([]*storage.Checkpoint, error) {
	var cps []*storage.Checkpoint
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(checkpointPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := iter.Item().Value(func(val []byte) error {
				cp, err := storage.UnmarshalCheckpoint(val)
				if err != nil {
					return err
				}
				cps = append(cps, cp)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	return cps, err
}
