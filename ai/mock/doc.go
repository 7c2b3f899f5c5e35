// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Embedder, ai.Generator,
// and ai.Provider for use in unit tests. The mocks allow tests to run
// without external AI service dependencies and enable controlled,
// deterministic behavior.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	provider := mock.NewProvider()
//	vectors, err := provider.Embedder().EmbedText(ctx, "test")
//
//	// Custom behavior injection
//	gen := mock.NewGenerator()
//	gen.StreamFragments = []string{"Hello", ", ", "world"}
//
//	// Check call counts
//	count := gen.CallCount()
//
// # Default Behavior
//
//   - Embedder: returns deterministic unit vectors based on text hash
//   - Generator: returns "mock completion", streamed as one fragment
//   - Provider: aggregates mock embedder and generator
package mock
