package convo

import "errors"

var (
	// ErrConversationRepositoryRequired is returned when NewManager is
	// called without a conversation repository.
	ErrConversationRepositoryRequired = errors.New("conversation repository is required")

	// ErrDocumentIDRequired is returned when a thread is requested for an
	// empty document id.
	ErrDocumentIDRequired = errors.New("document id is required")
)
