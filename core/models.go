package core

import (
	"encoding/hex"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ChecksumBytes computes a deterministic content checksum using BLAKE2b.
// It is used for change detection on document content, not for security.
func ChecksumBytes(data []byte) string {
	h, _ := blake2b.New(16, nil) // 16 bytes = 128 bits
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Chunk is a contiguous, token-bounded slice of document text with page
// provenance. Sequence numbers are dense, zero-based, assigned in document
// reading order. Chunks never overlap in sequence number but may overlap in
// underlying source text.
type Chunk struct {
	SequenceNo    int       `json:"sequence_no"`
	PageStart     int       `json:"page_start"`
	PageEnd       int       `json:"page_end"`
	Text          string    `json:"text"`
	TokenEstimate int       `json:"token_estimate"`
	Embedding     []float32 `json:"embedding,omitempty"`
}

// Index is the immutable per-document retrieval artifact. A new build with
// a differing checksum fully replaces it; it is never mutated in place.
type Index struct {
	DocumentID      string    `json:"document_id"`
	ContentChecksum string    `json:"content_checksum"`
	Chunks          []Chunk   `json:"chunks"`
	BuiltAt         time.Time `json:"built_at"`
	ChunkCount      int       `json:"chunk_count"`
}

// RetrievedChunk is a Chunk scored against a query. Similarity is the
// post-boost cosine similarity, capped at 1.0. Ephemeral, produced per
// query, never persisted beyond the resulting message's citation list.
type RetrievedChunk struct {
	Chunk
	Similarity float32 `json:"similarity"`
}

// Citation returns the durable citation record for a retrieved chunk,
// enough to reconstruct a jump-to-page action without re-running retrieval.
func (rc *RetrievedChunk) Citation() Citation {
	return Citation{
		PageStart: rc.PageStart,
		PageEnd:   rc.PageEnd,
		ChunkNo:   rc.SequenceNo,
	}
}

// Citation is the minimal record attached to a stored assistant message.
type Citation struct {
	PageStart int `json:"page_start"`
	PageEnd   int `json:"page_end"`
	ChunkNo   int `json:"chunk_no"`
}

// PageText is one page of extracted document text, in reading order.
type PageText struct {
	Page int    `json:"page"`
	Text string `json:"text"`
}

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Thread is the durable conversation scope bound to one document.
// Created lazily on first access; the core never deletes threads.
type Thread struct {
	ThreadID   string    `json:"thread_id"`
	DocumentID string    `json:"document_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Message is one append-only conversation entry. Ordering is by creation
// time; the core never mutates or deletes a message.
type Message struct {
	ThreadID      string     `json:"thread_id"`
	Role          Role       `json:"role"`
	Content       string     `json:"content"`
	TokenEstimate int        `json:"token_estimate"`
	Citations     []Citation `json:"citations,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}
