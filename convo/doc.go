// Package convo manages the durable conversation bound to each document:
// one lazily created thread per document, append-only messages, and a
// bounded "memory" rendering of the history for prompt assembly that
// summarizes old turns once the transcript grows past a token threshold.
package convo
