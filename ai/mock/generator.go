package mock

import (
	"context"

	"github.com/poiesic/pagewise/ai"
)

// Generator is a test double for ai.Generator.
// It allows custom behavior injection via function fields.
type Generator struct {
	// GenerateFunc is called by Generate if set.
	GenerateFunc func(ctx context.Context, messages []ai.Message) (string, error)

	// StreamFragments are emitted one by one by GenerateStream when
	// GenerateStreamFunc is not set. Defaults to a single canned fragment.
	StreamFragments []string

	// StreamErr, if set, terminates GenerateStream after the fragments
	// have been delivered.
	StreamErr error

	// GenerateStreamFunc is called by GenerateStream if set.
	GenerateStreamFunc func(ctx context.Context, messages []ai.Message, fn ai.StreamFunc) (string, error)

	callCount int
}

// NewGenerator creates a mock generator with default canned behavior.
// Note: Returns concrete type to allow test assertions.
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate returns a canned completion.
func (m *Generator) Generate(ctx context.Context, messages []ai.Message, opts ...ai.GenerateOption) (string, error) {
	m.callCount++

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, messages)
	}

	return "mock completion", nil
}

// GenerateStream feeds StreamFragments through fn in order, honoring
// cancellation, then returns the accumulated text (or StreamErr).
func (m *Generator) GenerateStream(ctx context.Context, messages []ai.Message, fn ai.StreamFunc, opts ...ai.GenerateOption) (string, error) {
	m.callCount++

	if m.GenerateStreamFunc != nil {
		return m.GenerateStreamFunc(ctx, messages, fn)
	}

	fragments := m.StreamFragments
	if fragments == nil {
		fragments = []string{"mock completion"}
	}

	var full string
	for _, fragment := range fragments {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := fn(ctx, fragment); err != nil {
			return "", err
		}
		full += fragment
	}

	if m.StreamErr != nil {
		return "", m.StreamErr
	}
	return full, nil
}

// CallCount returns the number of times any method was called.
func (m *Generator) CallCount() int {
	return m.callCount
}

// Reset clears the call count and injected behavior.
func (m *Generator) Reset() {
	m.callCount = 0
	m.GenerateFunc = nil
	m.GenerateStreamFunc = nil
	m.StreamFragments = nil
	m.StreamErr = nil
}
