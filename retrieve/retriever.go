package retrieve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/pagewise/ai"
	"github.com/poiesic/pagewise/core"
	"github.com/poiesic/pagewise/storage"
)

const (
	// DefaultK is the number of chunks selected by ranking before
	// compression.
	DefaultK = 8

	// DefaultLambda balances relevance against redundancy in MMR
	// selection. 1.0 is pure relevance; lower values favor diversity.
	DefaultLambda = 0.7

	// DefaultMaxContextTokens is the token budget the compressed result
	// set must fit within. Prompt assembly applies its own ceiling on top.
	DefaultMaxContextTokens = 1500

	// maxExpansions is how many alternative phrasings are requested from
	// the generator, in addition to the original query.
	maxExpansions = 2
)

const expansionPrompt = `You rewrite search queries. Given a question, produce %d alternative phrasings that would match the same content. Output one phrasing per line with no numbering and no commentary.`

// Result is the typed outcome of a retrieval: the compressed, rank-ordered
// chunk list and its summed token estimate.
type Result struct {
	Chunks      []core.RetrievedChunk
	TotalTokens int
}

// Retriever turns a user query into a ranked, token-budgeted set of
// citable passages from a document's index.
type Retriever struct {
	indexes   storage.IndexRepository
	embedder  ai.Embedder
	generator ai.Generator
	k         int
	lambda    float32
	maxTokens int
	logger    *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever) error

// WithGenerator enables query expansion through the given generator.
// Without one, retrieval runs on the original query alone.
func WithGenerator(generator ai.Generator) Option {
	return func(r *Retriever) error {
		r.generator = generator
		return nil
	}
}

// WithK sets how many chunks ranking selects before compression.
func WithK(k int) Option {
	return func(r *Retriever) error {
		if k < 1 {
			return fmt.Errorf("k must be positive, got %d", k)
		}
		r.k = k
		return nil
	}
}

// WithLambda sets the MMR relevance/diversity balance in [0,1].
func WithLambda(lambda float32) Option {
	return func(r *Retriever) error {
		if lambda < 0 || lambda > 1 {
			return fmt.Errorf("lambda must be in [0,1], got %v", lambda)
		}
		r.lambda = lambda
		return nil
	}
}

// WithMaxContextTokens sets the compression token budget.
func WithMaxContextTokens(maxTokens int) Option {
	return func(r *Retriever) error {
		if maxTokens < 1 {
			return fmt.Errorf("max context tokens must be positive, got %d", maxTokens)
		}
		r.maxTokens = maxTokens
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewRetriever creates a retriever over the given index repository and
// embedder.
func NewRetriever(indexes storage.IndexRepository, embedder ai.Embedder, opts ...Option) (*Retriever, error) {
	if indexes == nil {
		return nil, ErrIndexRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	r := &Retriever{
		indexes:   indexes,
		embedder:  embedder,
		k:         DefaultK,
		lambda:    DefaultLambda,
		maxTokens: DefaultMaxContextTokens,
		logger:    slog.Default().With("component", "retriever"),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Retrieve expands and embeds the query, ranks the document's chunks by
// boosted MMR, and compresses the selection to the token budget.
//
// A document without a ready, non-empty index returns ErrNoIndex so the
// caller can render a deterministic "no context" response. Expansion
// failures degrade to the original query; embedding failure of the query
// itself is a hard error, there is nothing to rank without it.
func (r *Retriever) Retrieve(ctx context.Context, documentID, query string) (Result, error) {
	status, err := r.indexes.GetStatus(ctx, documentID)
	if errors.Is(err, storage.ErrNotFound) {
		return Result{}, ErrNoIndex
	}
	if err != nil {
		return Result{}, fmt.Errorf("loading index status: %w", err)
	}
	if status.State != core.IndexStateReady {
		return Result{}, ErrNoIndex
	}

	idx, err := r.indexes.GetIndex(ctx, documentID)
	if errors.Is(err, storage.ErrNotFound) {
		return Result{}, ErrNoIndex
	}
	if err != nil {
		return Result{}, fmt.Errorf("loading index: %w", err)
	}
	if len(idx.Chunks) == 0 {
		return Result{}, ErrNoIndex
	}

	queries := r.expandQuery(ctx, query)

	vectors, err := r.embedder.EmbedTexts(ctx, queries)
	if err != nil {
		return Result{}, fmt.Errorf("embedding query: %w", err)
	}
	queryVector := centroid(vectors)
	if queryVector == nil {
		return Result{}, fmt.Errorf("embedding query: provider returned no vectors")
	}

	ranked := rankMMR(queryVector, idx.Chunks, r.k, r.lambda)
	chunks, total := compress(ranked, r.maxTokens)

	r.logger.Debug("retrieved chunks",
		"documentID", documentID,
		"expansions", len(queries)-1,
		"ranked", len(ranked),
		"returned", len(chunks),
		"tokens", total)

	return Result{Chunks: chunks, TotalTokens: total}, nil
}

// expandQuery asks the generator for alternative phrasings of the query.
// The original query always leads the returned set. Any failure, or the
// absence of a generator, degrades to the original query alone.
func (r *Retriever) expandQuery(ctx context.Context, query string) []string {
	queries := []string{query}
	if r.generator == nil {
		return queries
	}

	response, err := r.generator.Generate(ctx, []ai.Message{
		{Role: ai.RoleSystem, Content: fmt.Sprintf(expansionPrompt, maxExpansions)},
		{Role: ai.RoleUser, Content: query},
	}, ai.WithTemperature(0.7))
	if err != nil {
		r.logger.Warn("query expansion failed, using original query", "err", err)
		return queries
	}

	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "-*0123456789. "))
		if line == "" || strings.EqualFold(line, query) {
			continue
		}
		queries = append(queries, line)
		if len(queries) > maxExpansions {
			break
		}
	}

	return queries
}
