package chat

import "github.com/poiesic/pagewise/core"

// EventType discriminates the server-push events of a chat turn.
type EventType string

const (
	// EventTiming carries retrieval and stream timing measurements. It is
	// emitted once after retrieval and again inside the done payload.
	EventTiming EventType = "timing"
	// EventToken carries one incremental fragment of the reply.
	EventToken EventType = "token"
	// EventError terminates the turn with a user-visible message.
	EventError EventType = "error"
	// EventDone terminates the turn successfully with citations and
	// final timing.
	EventDone EventType = "done"
)

// Timing is the measurement payload. Early in the turn only retrieval
// fields are set; the copy inside the done event carries the full set.
type Timing struct {
	RetrievalMs   int64 `json:"retrievalMs"`
	ContextTokens int   `json:"contextTokens,omitempty"`
	FirstTokenMs  int64 `json:"firstTokenMs,omitempty"`
	TotalMs       int64 `json:"totalMs,omitempty"`
}

// Token is the payload of a token event.
type Token struct {
	Content string `json:"content"`
}

// Error is the payload of an error event.
type Error struct {
	Error string `json:"error"`
}

// Done is the payload of the terminal done event.
type Done struct {
	Citations []core.Citation `json:"citations"`
	Timing    Timing          `json:"timing"`
}

// Event is one element of the turn's event sequence. The sequence always
// terminates with a done or error event.
type Event struct {
	Type    EventType
	Payload any
}

// EmitFunc receives events in order. Returning an error signals the
// consumer has disconnected: the turn stops pulling fragments and
// persists nothing.
type EmitFunc func(Event) error
