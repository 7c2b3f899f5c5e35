package chat

import "errors"

var (
	// ErrRetrieverRequired is returned when NewOrchestrator is called
	// without a retriever.
	ErrRetrieverRequired = errors.New("retriever is required")

	// ErrConversationManagerRequired is returned when NewOrchestrator is
	// called without a conversation manager.
	ErrConversationManagerRequired = errors.New("conversation manager is required")

	// ErrGeneratorRequired is returned when NewOrchestrator is called
	// without a generator.
	ErrGeneratorRequired = errors.New("generator is required")

	// ErrEmptyMessage is returned when a turn is requested with an empty
	// user message.
	ErrEmptyMessage = errors.New("message is required")
)
