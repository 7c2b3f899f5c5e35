package badger

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/pagewise/core"
	"github.com/poiesic/pagewise/storage"
)

// IndexRepository implements storage.IndexRepository for BadgerDB.
//
// Index writes go through a single transactional Set, so readers either
// observe the previous complete artifact or the new one, never a partial
// write.
type IndexRepository struct {
	backend *Backend
}

var _ storage.IndexRepository = (*IndexRepository)(nil)

// NewIndexRepository creates a new IndexRepository.
func NewIndexRepository(backend *Backend) (*IndexRepository, error) {
	if backend == nil {
		return nil, errors.New("backend required")
	}
	return &IndexRepository{backend: backend}, nil
}

// Close is a no-op; the backend owns the database handle.
func (r *IndexRepository) Close() error {
	return nil
}

// PutIndex atomically replaces the index artifact for its document.
func (r *IndexRepository) PutIndex(ctx context.Context, index *core.Index) error {
	value, err := storage.MarshalIndex(index)
	if err != nil {
		return err
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeIndexKey(index.DocumentID), value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetIndex retrieves the index artifact for a document.
func (r *IndexRepository) GetIndex(ctx context.Context, documentID string) (*core.Index, error) {
	var result *core.Index
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeIndexKey(documentID))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var err error
			result, err = storage.UnmarshalIndex(val)
			return err
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// PutStatus atomically replaces the status record for its document.
func (r *IndexRepository) PutStatus(ctx context.Context, status *core.IndexStatus) error {
	value, err := storage.MarshalStatus(status)
	if err != nil {
		return err
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeStatusKey(status.DocumentID), value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetStatus retrieves the status record for a document.
func (r *IndexRepository) GetStatus(ctx context.Context, documentID string) (*core.IndexStatus, error) {
	var result *core.IndexStatus
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeStatusKey(documentID))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var err error
			result, err = storage.UnmarshalStatus(val)
			return err
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return result, nil
}
