package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// StreamFunc receives one incremental text fragment of a streamed
// generation. Returning an error stops the stream and releases the
// underlying provider connection.
type StreamFunc func(ctx context.Context, fragment string) error

// Generator produces chat completions from role-tagged messages.
// Implementations must be thread-safe for concurrent use.
type Generator interface {
	// Generate returns a single completion for the messages.
	Generate(ctx context.Context, messages []Message, opts ...GenerateOption) (string, error)

	// GenerateStream streams a completion fragment by fragment through fn,
	// in arrival order, and returns the full accumulated text when the
	// provider signals completion. Provider errors terminate the stream
	// and are returned; they are never silently swallowed as truncation.
	GenerateStream(ctx context.Context, messages []Message, fn StreamFunc, opts ...GenerateOption) (string, error)
}

// Provider aggregates AI services for convenient initialization and
// lifecycle management. A provider creates and manages Embedder and
// Generator instances, ensuring they share configuration appropriately.
type Provider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Generator returns the chat completion service.
	// The returned Generator is safe for concurrent use.
	Generator() Generator

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
