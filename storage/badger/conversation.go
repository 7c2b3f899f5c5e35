package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/pagewise/core"
	"github.com/poiesic/pagewise/storage"
)

// ConversationRepository implements storage.ConversationRepository for BadgerDB.
type ConversationRepository struct {
	backend *Backend
	seq     *badger.Sequence
}

var _ storage.ConversationRepository = (*ConversationRepository)(nil)

// NewConversationRepository creates a new ConversationRepository.
func NewConversationRepository(backend *Backend) (*ConversationRepository, error) {
	if backend == nil {
		return nil, errors.New("backend required")
	}

	seq, err := backend.GetSequence(makeMessageSeqName())
	if err != nil {
		return nil, err
	}

	return &ConversationRepository{
		backend: backend,
		seq:     seq,
	}, nil
}

// Close releases the message sequence.
func (r *ConversationRepository) Close() error {
	return r.seq.Release()
}

// AddThread persists a new thread and the document -> thread mapping.
// The mapping is overwritten on duplicate creation, so the most recently
// created thread wins lookups.
func (r *ConversationRepository) AddThread(ctx context.Context, thread *core.Thread) error {
	if thread.CreatedAt.IsZero() {
		thread.CreatedAt = time.Now().UTC()
	}

	value, err := storage.MarshalThread(thread)
	if err != nil {
		return err
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeThreadKey(thread.ThreadID), value); err != nil {
			return err
		}
		if err := tx.Set(makeThreadDocKey(thread.DocumentID), value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetThreadByDocument returns the thread bound to a document.
func (r *ConversationRepository) GetThreadByDocument(ctx context.Context, documentID string) (*core.Thread, error) {
	var result *core.Thread
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeThreadDocKey(documentID))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var err error
			result, err = storage.UnmarshalThread(val)
			return err
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AppendMessage appends a message to its thread.
func (r *ConversationRepository) AppendMessage(ctx context.Context, msg *core.Message) error {
	if err := core.ValidateMessage(msg); err != nil {
		return err
	}

	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	// Sequence breaks ties between messages created in the same microsecond.
	seq, err := r.seq.Next()
	if err != nil {
		return err
	}

	value, err := storage.MarshalMessage(msg)
	if err != nil {
		return err
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeMessageKey(msg.ThreadID, msg.CreatedAt, seq)
		if err := tx.Set(key, value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetRecentMessages returns up to limit messages of a thread, oldest first
// among the most recent ones. It iterates the creation-ordered message
// keys in reverse, collects limit entries, then restores chronological
// order.
func (r *ConversationRepository) GetRecentMessages(ctx context.Context, threadID string, limit int) ([]*core.Message, error) {
	if limit <= 0 {
		return []*core.Message{}, nil
	}

	var newestFirst []*core.Message
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makeMessageIterPrefix(threadID)

		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.Reverse = true
		iter := tx.NewIterator(opts)
		defer iter.Close()

		// Reverse iteration seeks to the last possible key of the prefix.
		seekKey := append(append([]byte{}, prefix...), 0xFF)

		for iter.Seek(seekKey); iter.ValidForPrefix(prefix) && len(newestFirst) < limit; iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				msg, err := storage.UnmarshalMessage(val)
				if err != nil {
					return err
				}
				newestFirst = append(newestFirst, msg)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	// Restore oldest-first order.
	oldestFirst := make([]*core.Message, len(newestFirst))
	for i, msg := range newestFirst {
		oldestFirst[len(newestFirst)-1-i] = msg
	}
	return oldestFirst, nil
}
