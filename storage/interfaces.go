package storage

import (
	"context"

	"github.com/poiesic/pagewise/core"
)

// IndexRepository stores the per-document index artifact and its status
// record. Implementations must be thread-safe and must never expose a
// partially written index: writes are atomic whole-value replacement.
type IndexRepository interface {
	// PutIndex atomically replaces the index artifact for its document.
	PutIndex(ctx context.Context, index *core.Index) error

	// GetIndex retrieves the index artifact for a document.
	// Returns ErrNotFound if no index has been persisted.
	GetIndex(ctx context.Context, documentID string) (*core.Index, error)

	// PutStatus atomically replaces the status record for its document.
	PutStatus(ctx context.Context, status *core.IndexStatus) error

	// GetStatus retrieves the status record for a document.
	// Returns ErrNotFound if the document has never been seen.
	GetStatus(ctx context.Context, documentID string) (*core.IndexStatus, error)

	// Close closes the repository and releases resources.
	Close() error
}

// ConversationRepository stores threads and their append-only messages.
// Messages are queryable by thread id in creation order. Implementations
// must be thread-safe.
type ConversationRepository interface {
	// AddThread persists a new thread.
	AddThread(ctx context.Context, thread *core.Thread) error

	// GetThreadByDocument returns the thread bound to a document.
	// If duplicates ever exist it returns the most recently created one.
	// Returns ErrNotFound if the document has no thread.
	GetThreadByDocument(ctx context.Context, documentID string) (*core.Thread, error)

	// AppendMessage appends a message to its thread. Messages are never
	// mutated or deleted afterwards.
	AppendMessage(ctx context.Context, msg *core.Message) error

	// GetRecentMessages returns up to limit messages of a thread, oldest
	// first among the most recent ones.
	GetRecentMessages(ctx context.Context, threadID string, limit int) ([]*core.Message, error)

	// Close closes the repository and releases resources.
	Close() error
}
