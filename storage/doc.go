// Package storage defines repository interfaces for the persisted index
// artifact, its status record, and conversation threads with their
// append-only messages.
//
// The interfaces are consumed by the index builder, retriever, and
// conversation manager; storage/badger provides the BadgerDB-backed
// implementation. The persisted index and Citation shapes are stable
// JSON so external tooling can consume them directly.
package storage
