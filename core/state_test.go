package core

import (
	"errors"
	"testing"
)

func TestIndexStatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    IndexState
		to      IndexState
		wantErr bool
	}{
		{name: "pending to indexing", from: IndexStatePending, to: IndexStateIndexing},
		{name: "indexing to ready", from: IndexStateIndexing, to: IndexStateReady},
		{name: "indexing to error", from: IndexStateIndexing, to: IndexStateError},
		{name: "error to indexing", from: IndexStateError, to: IndexStateIndexing},
		{name: "pending to ready skips indexing", from: IndexStatePending, to: IndexStateReady, wantErr: true},
		{name: "ready to indexing needs explicit rebuild", from: IndexStateReady, to: IndexStateIndexing, wantErr: true},
		{name: "ready to error", from: IndexStateReady, to: IndexStateError, wantErr: true},
		{name: "error to ready", from: IndexStateError, to: IndexStateReady, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &IndexStatus{DocumentID: "doc-1", State: tt.from}
			err := st.Transition(tt.to)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTransition) {
					t.Fatalf("expected ErrInvalidTransition, got %v", err)
				}
				if st.State != tt.from {
					t.Fatalf("state changed on rejected transition: %s", st.State)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if st.State != tt.to {
				t.Fatalf("expected state %s, got %s", tt.to, st.State)
			}
		})
	}
}

func TestIndexStatusBeginRebuild(t *testing.T) {
	st := &IndexStatus{DocumentID: "doc-1", State: IndexStateReady}
	if err := st.BeginRebuild(); err != nil {
		t.Fatalf("rebuild from ready failed: %v", err)
	}
	if st.State != IndexStateIndexing {
		t.Fatalf("expected indexing, got %s", st.State)
	}

	st = &IndexStatus{DocumentID: "doc-1", State: IndexStatePending}
	if err := st.BeginRebuild(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition from pending, got %v", err)
	}
}

func TestIndexStateText(t *testing.T) {
	for _, state := range []IndexState{IndexStatePending, IndexStateIndexing, IndexStateReady, IndexStateError} {
		text, err := state.MarshalText()
		if err != nil {
			t.Fatalf("marshal %s: %v", state, err)
		}

		var parsed IndexState
		if err := parsed.UnmarshalText(text); err != nil {
			t.Fatalf("unmarshal %q: %v", text, err)
		}
		if parsed != state {
			t.Fatalf("round trip mismatch: %s != %s", parsed, state)
		}
	}

	var parsed IndexState
	if err := parsed.UnmarshalText([]byte("bogus")); !errors.Is(err, ErrInvalidIndexState) {
		t.Fatalf("expected ErrInvalidIndexState, got %v", err)
	}
}
