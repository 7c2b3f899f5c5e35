package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/pagewise/ai"
	"github.com/poiesic/pagewise/core"
	"github.com/poiesic/pagewise/extract"
	"github.com/poiesic/pagewise/storage"
)

const (
	// embedBatchSize is the number of chunks sent to the embedding service
	// per call. Batch order is preserved so result vectors re-align
	// positionally with input chunks.
	embedBatchSize = 100

	// alreadyIndexedMessage is recorded on the status when a trigger
	// short-circuits because the content checksum is unchanged.
	alreadyIndexedMessage = "already indexed"
)

// Builder orchestrates index construction: checksum, chunking, embedding,
// and atomic persistence, with fractional progress reported through the
// durable status record.
//
// Builds run on a supervised worker pool; panics and errors are captured
// into the status record, never swallowed. Concurrent triggers for the
// same document are single-flighted: the second caller observes the
// in-flight status instead of starting a duplicate build.
type Builder struct {
	indexes   storage.IndexRepository
	embedder  ai.Embedder
	extractor extract.Extractor
	chunker   *Chunker
	pool      *ants.Pool
	logger    *slog.Logger

	mu       sync.Mutex
	inflight map[string]bool
}

// Option configures a Builder.
type Option func(*Builder) error

// WithPoolSize sets the worker pool size for background builds.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(b *Builder) error {
		if size < 1 {
			size = 1
		}
		if b.pool != nil {
			b.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		b.pool = pool
		return nil
	}
}

// WithChunking sets the chunk budget and overlap in estimated tokens.
func WithChunking(chunkSizeTokens, overlapTokens int, estimator core.TokenEstimator) Option {
	return func(b *Builder) error {
		b.chunker = NewChunker(chunkSizeTokens, overlapTokens, estimator)
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) error {
		if logger == nil {
			logger = slog.Default()
		}
		b.logger = logger
		return nil
	}
}

// NewBuilder creates a new index builder.
func NewBuilder(
	indexes storage.IndexRepository,
	embedder ai.Embedder,
	extractor extract.Extractor,
	opts ...Option,
) (*Builder, error) {
	if indexes == nil {
		return nil, ErrIndexRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if extractor == nil {
		return nil, ErrExtractorRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	b := &Builder{
		indexes:   indexes,
		embedder:  embedder,
		extractor: extractor,
		chunker:   NewChunker(DefaultChunkSizeTokens, DefaultOverlapTokens, nil),
		pool:      pool,
		logger:    slog.Default().With("component", "index-builder"),
		inflight:  make(map[string]bool),
	}

	for _, opt := range opts {
		if optErr := opt(b); optErr != nil {
			b.Release()
			return nil, optErr
		}
	}

	return b, nil
}

// Release stops the worker pool. The builder should not be used after
// calling Release; in-flight builds are allowed to finish.
func (b *Builder) Release() {
	if b.pool != nil {
		b.pool.Release()
	}
}

// Status returns the durable status record for a document. A document
// that has never been seen reports Pending.
func (b *Builder) Status(ctx context.Context, documentID string) (*core.IndexStatus, error) {
	status, err := b.indexes.GetStatus(ctx, documentID)
	if errors.Is(err, storage.ErrNotFound) {
		return core.NewIndexStatus(documentID), nil
	}
	return status, err
}

// Trigger starts a background build for the document and returns
// immediately. It is idempotent: a READY index whose checksum matches the
// current content short-circuits with an "already indexed" status, and a
// concurrent trigger while a build is in flight returns the current
// status without starting another. started reports whether a new build
// was launched.
func (b *Builder) Trigger(ctx context.Context, documentID string, raw []byte) (status *core.IndexStatus, started bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.inflight[documentID] {
		current, err := b.Status(ctx, documentID)
		return current, false, err
	}

	status, err = b.prepare(ctx, documentID, raw)
	if err != nil {
		return nil, false, err
	}
	if status.State == core.IndexStateReady {
		// Checksum unchanged, nothing to do.
		return status, false, nil
	}

	b.inflight[documentID] = true

	// The background build mutates its own status record; callers get a
	// snapshot.
	snapshot := *status

	submitErr := b.pool.Submit(func() {
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("index build panicked", "documentID", documentID, "panic", r)
				b.recordFailure(context.Background(), status, fmt.Errorf("build panicked: %v", r))
			}
			b.mu.Lock()
			delete(b.inflight, documentID)
			b.mu.Unlock()
		}()

		if _, buildErr := b.runBuild(context.Background(), status, raw); buildErr != nil {
			b.logger.Error("index build failed", "documentID", documentID, "err", buildErr)
		}
	})
	if submitErr != nil {
		delete(b.inflight, documentID)
		return nil, false, submitErr
	}

	return &snapshot, true, nil
}

// Build runs a full build synchronously and returns the persisted index.
// Used by the CLI; the HTTP trigger path uses Trigger.
func (b *Builder) Build(ctx context.Context, documentID string, raw []byte) (*core.Index, error) {
	b.mu.Lock()
	if b.inflight[documentID] {
		b.mu.Unlock()
		current, err := b.Status(ctx, documentID)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("build already in flight for %s (state %s)", documentID, current.State)
	}

	status, err := b.prepare(ctx, documentID, raw)
	if err != nil {
		b.mu.Unlock()
		return nil, err
	}
	if status.State == core.IndexStateReady {
		b.mu.Unlock()
		return b.indexes.GetIndex(ctx, documentID)
	}

	b.inflight[documentID] = true
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.inflight, documentID)
		b.mu.Unlock()
	}()

	return b.runBuild(ctx, status, raw)
}

// prepare loads or creates the status record and moves it to Indexing.
// If a READY index already matches the content checksum, the status is
// returned still READY with the already-indexed message. Called with b.mu
// held or from Build before it marks the document in flight.
func (b *Builder) prepare(ctx context.Context, documentID string, raw []byte) (*core.IndexStatus, error) {
	checksum := core.ChecksumBytes(raw)

	status, err := b.indexes.GetStatus(ctx, documentID)
	if errors.Is(err, storage.ErrNotFound) {
		status = core.NewIndexStatus(documentID)
	} else if err != nil {
		return nil, err
	}

	switch status.State {
	case core.IndexStateReady:
		if status.Checksum == checksum {
			status.Message = alreadyIndexedMessage
			return status, nil
		}
		if err := status.BeginRebuild(); err != nil {
			return nil, err
		}
	case core.IndexStateIndexing:
		// Stale Indexing from a crashed process; the in-flight set says no
		// build is running, so resume from here.
	default:
		if err := status.Transition(core.IndexStateIndexing); err != nil {
			return nil, err
		}
	}

	status.Progress = 0
	status.Message = ""
	status.Checksum = checksum
	if err := b.indexes.PutStatus(ctx, status); err != nil {
		return nil, err
	}
	return status, nil
}

// runBuild executes checksum -> chunk -> embed -> persist, reporting
// progress at fixed milestones. Any failure records ERROR with a
// human-readable message and leaves the previous READY index, if any,
// untouched and still servable.
func (b *Builder) runBuild(ctx context.Context, status *core.IndexStatus, raw []byte) (*core.Index, error) {
	documentID := status.DocumentID
	b.logger.Info("building index", "documentID", documentID, "bytes", len(raw))

	b.reportProgress(ctx, status, 10)

	pages, err := b.extractor.Extract(ctx, raw)
	if err != nil {
		b.recordFailure(ctx, status, fmt.Errorf("extracting text: %w", err))
		return nil, err
	}

	chunks := b.chunker.Chunk(pages)
	b.reportProgress(ctx, status, 30)

	// Extraction that yields no text becomes an empty index, not an error.
	if len(chunks) > 0 {
		b.reportProgress(ctx, status, 50)
		if err := b.embedChunks(ctx, chunks); err != nil {
			b.recordFailure(ctx, status, fmt.Errorf("embedding chunks: %w", err))
			return nil, err
		}
	}
	b.reportProgress(ctx, status, 80)

	built := &core.Index{
		DocumentID:      documentID,
		ContentChecksum: status.Checksum,
		Chunks:          chunks,
		BuiltAt:         time.Now().UTC(),
		ChunkCount:      len(chunks),
	}
	if err := b.indexes.PutIndex(ctx, built); err != nil {
		b.recordFailure(ctx, status, fmt.Errorf("persisting index: %w", err))
		return nil, err
	}

	if err := status.Transition(core.IndexStateReady); err != nil {
		b.recordFailure(ctx, status, err)
		return nil, err
	}
	status.Progress = 100
	status.ChunkCount = len(chunks)
	if err := b.indexes.PutStatus(ctx, status); err != nil {
		return nil, err
	}

	b.logger.Info("index ready", "documentID", documentID, "chunks", len(chunks))
	return built, nil
}

// embedChunks batches chunk texts through the embedding service,
// preserving batch order so vectors re-align positionally.
func (b *Builder) embedChunks(ctx context.Context, chunks []core.Chunk) error {
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		texts := make([]string, end-start)
		for i := start; i < end; i++ {
			texts[i-start] = chunks[i].Text
		}

		vectors, err := b.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return err
		}
		if len(vectors) != len(texts) {
			return fmt.Errorf("%w: expected %d, received %d", ErrEmbeddingMismatch, len(texts), len(vectors))
		}

		for i := range vectors {
			chunks[start+i].Embedding = vectors[i]
		}
	}
	return nil
}

// reportProgress persists a milestone. Progress write failures are logged
// and ignored; they must not abort a build.
func (b *Builder) reportProgress(ctx context.Context, status *core.IndexStatus, progress int) {
	status.Progress = progress
	status.UpdatedAt = time.Now().UTC()
	if err := b.indexes.PutStatus(ctx, status); err != nil {
		b.logger.Warn("failed to persist progress", "documentID", status.DocumentID, "progress", progress, "err", err)
	}
}

// recordFailure moves the status to ERROR with a human-readable message.
// The error state is recoverable: a fresh trigger transitions back to
// Indexing.
func (b *Builder) recordFailure(ctx context.Context, status *core.IndexStatus, cause error) {
	if err := status.Transition(core.IndexStateError); err != nil {
		b.logger.Error("cannot record failure", "documentID", status.DocumentID, "state", status.State, "err", err)
		return
	}
	status.Message = cause.Error()
	if err := b.indexes.PutStatus(ctx, status); err != nil {
		b.logger.Error("failed to persist error status", "documentID", status.DocumentID, "err", err)
	}
}
