// Package index turns extracted document text into a servable vector
// index. The chunker splits page text into overlapping token-budgeted
// chunks with page provenance; the builder orchestrates checksum,
// chunking, batched embedding, and atomic persistence, reporting progress
// through a durable status record.
package index
