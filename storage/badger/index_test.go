package badger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/pagewise/core"
	"github.com/poiesic/pagewise/storage"
)

func TestIndexRoundTrip(t *testing.T) {
	indexRepo, convoRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() {
		convoRepo.Close()
		indexRepo.Close()
		backend.Close()
	}()

	ctx := context.Background()

	index := &core.Index{
		DocumentID:      "doc-1",
		ContentChecksum: core.ChecksumBytes([]byte("content")),
		BuiltAt:         time.Now().UTC(),
		ChunkCount:      1,
		Chunks: []core.Chunk{
			{SequenceNo: 0, PageStart: 1, PageEnd: 1, Text: "hello", TokenEstimate: 2, Embedding: []float32{0.5, 0.5}},
		},
	}

	if err := indexRepo.PutIndex(ctx, index); err != nil {
		t.Fatalf("Failed to put index: %v", err)
	}

	got, err := indexRepo.GetIndex(ctx, "doc-1")
	if err != nil {
		t.Fatalf("Failed to get index: %v", err)
	}
	if got.ContentChecksum != index.ContentChecksum {
		t.Fatalf("Checksum mismatch: %s != %s", got.ContentChecksum, index.ContentChecksum)
	}
	if len(got.Chunks) != 1 || got.Chunks[0].Text != "hello" {
		t.Fatalf("Chunks not preserved: %+v", got.Chunks)
	}
}

func TestIndexNotFound(t *testing.T) {
	indexRepo, convoRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { convoRepo.Close(); indexRepo.Close(); backend.Close() }()

	ctx := context.Background()

	if _, err := indexRepo.GetIndex(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
	if _, err := indexRepo.GetStatus(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestIndexReplacement(t *testing.T) {
	indexRepo, convoRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { convoRepo.Close(); indexRepo.Close(); backend.Close() }()

	ctx := context.Background()

	first := &core.Index{DocumentID: "doc-1", ContentChecksum: "v1", ChunkCount: 1,
		Chunks: []core.Chunk{{SequenceNo: 0, PageStart: 1, PageEnd: 1, Text: "old"}}}
	second := &core.Index{DocumentID: "doc-1", ContentChecksum: "v2", ChunkCount: 1,
		Chunks: []core.Chunk{{SequenceNo: 0, PageStart: 1, PageEnd: 1, Text: "new"}}}

	if err := indexRepo.PutIndex(ctx, first); err != nil {
		t.Fatalf("Failed to put first index: %v", err)
	}
	if err := indexRepo.PutIndex(ctx, second); err != nil {
		t.Fatalf("Failed to put second index: %v", err)
	}

	got, err := indexRepo.GetIndex(ctx, "doc-1")
	if err != nil {
		t.Fatalf("Failed to get index: %v", err)
	}
	if got.ContentChecksum != "v2" || got.Chunks[0].Text != "new" {
		t.Fatalf("Index not fully replaced: %+v", got)
	}
}

func TestStatusRoundTrip(t *testing.T) {
	indexRepo, convoRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { convoRepo.Close(); indexRepo.Close(); backend.Close() }()

	ctx := context.Background()

	status := core.NewIndexStatus("doc-1")
	if err := status.Transition(core.IndexStateIndexing); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	status.Progress = 30

	if err := indexRepo.PutStatus(ctx, status); err != nil {
		t.Fatalf("Failed to put status: %v", err)
	}

	got, err := indexRepo.GetStatus(ctx, "doc-1")
	if err != nil {
		t.Fatalf("Failed to get status: %v", err)
	}
	if got.State != core.IndexStateIndexing || got.Progress != 30 {
		t.Fatalf("Status mismatch: %+v", got)
	}
}
