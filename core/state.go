package core

import (
	"fmt"
	"time"
)

// IndexState is the lifecycle state of a document's index.
type IndexState int

const (
	// IndexStatePending means indexing has never been attempted.
	IndexStatePending IndexState = iota + 1
	// IndexStateIndexing means a build is in flight.
	IndexStateIndexing
	// IndexStateReady means a complete index is servable.
	IndexStateReady
	// IndexStateError means the last build failed. Recoverable: a fresh
	// build transitions back to Indexing.
	IndexStateError
)

// String returns the lowercase wire name of the state.
func (s IndexState) String() string {
	switch s {
	case IndexStatePending:
		return "pending"
	case IndexStateIndexing:
		return "indexing"
	case IndexStateReady:
		return "ready"
	case IndexStateError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler so the state serializes as
// its wire name in JSON status payloads.
func (s IndexState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *IndexState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "pending":
		*s = IndexStatePending
	case "indexing":
		*s = IndexStateIndexing
	case "ready":
		*s = IndexStateReady
	case "error":
		*s = IndexStateError
	default:
		return fmt.Errorf("%w: %q", ErrInvalidIndexState, text)
	}
	return nil
}

// IndexStatus is the durable, pollable status record for a document's
// index. It is written by the builder and read by status pollers; build
// failures are recorded here, never thrown to a polling caller.
type IndexStatus struct {
	DocumentID string     `json:"document_id"`
	State      IndexState `json:"status"`
	Progress   int        `json:"progress"`
	Message    string     `json:"message,omitempty"`
	ChunkCount int        `json:"chunk_count"`
	Checksum   string     `json:"checksum,omitempty"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// validTransitions enumerates the legal state machine edges.
// Ready -> Indexing is only reachable through an explicit rebuild on
// checksum mismatch, which callers express via BeginRebuild.
var validTransitions = map[IndexState][]IndexState{
	IndexStatePending:  {IndexStateIndexing},
	IndexStateIndexing: {IndexStateReady, IndexStateError},
	IndexStateError:    {IndexStateIndexing},
	IndexStateReady:    {},
}

// Transition moves the status to next, rejecting illegal edges.
func (st *IndexStatus) Transition(next IndexState) error {
	for _, allowed := range validTransitions[st.State] {
		if next == allowed {
			st.State = next
			st.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, st.State, next)
}

// BeginRebuild transitions a Ready status back to Indexing. This is the
// only legal path out of Ready and exists so a silent Ready -> Indexing
// flip cannot happen by accident.
func (st *IndexStatus) BeginRebuild() error {
	if st.State != IndexStateReady {
		return fmt.Errorf("%w: rebuild from %s", ErrInvalidTransition, st.State)
	}
	st.State = IndexStateIndexing
	st.UpdatedAt = time.Now().UTC()
	return nil
}

// NewIndexStatus creates a Pending status for a document.
func NewIndexStatus(documentID string) *IndexStatus {
	return &IndexStatus{
		DocumentID: documentID,
		State:      IndexStatePending,
		UpdatedAt:  time.Now().UTC(),
	}
}
