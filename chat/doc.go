// Package chat assembles and streams one question-answering turn:
// retrieved document context, bounded conversational memory, and the user
// message are fit under a global token ceiling, the model's reply is
// relayed fragment by fragment with timing telemetry, and the completed
// exchange is persisted to the document's thread.
package chat
