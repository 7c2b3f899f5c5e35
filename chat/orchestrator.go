/*
 * Copyright 2025 Poiesic Systems
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/pagewise/ai"
	"github.com/poiesic/pagewise/convo"
	"github.com/poiesic/pagewise/core"
	"github.com/poiesic/pagewise/retrieve"
)

// Request describes one chat turn.
type Request struct {
	DocumentID string
	// ThreadID is optional; when empty the document's thread is used,
	// created on first access.
	ThreadID string
	Message  string
	// SystemPrompt overrides DefaultSystemPrompt when set.
	SystemPrompt string
	// DocumentLabel is the human-readable name shown to the model.
	// Defaults to the document id.
	DocumentLabel string
}

// Orchestrator runs one chat turn end to end: retrieve context, build
// memory, assemble the prompt, stream the reply, persist the exchange.
// Stages are strictly sequential; each stage's output feeds the next.
type Orchestrator struct {
	retriever *retrieve.Retriever
	threads   *convo.Manager
	generator ai.Generator
	estimator core.TokenEstimator
	logger    *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithTokenEstimator sets the estimator used for prompt budgeting.
// Default is the fixed chars-per-token ratio.
func WithTokenEstimator(estimator core.TokenEstimator) Option {
	return func(o *Orchestrator) error {
		if estimator == nil {
			return fmt.Errorf("token estimator cannot be nil")
		}
		o.estimator = estimator
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// NewOrchestrator creates a chat orchestrator.
func NewOrchestrator(retriever *retrieve.Retriever, threads *convo.Manager, generator ai.Generator, opts ...Option) (*Orchestrator, error) {
	if retriever == nil {
		return nil, ErrRetrieverRequired
	}
	if threads == nil {
		return nil, ErrConversationManagerRequired
	}
	if generator == nil {
		return nil, ErrGeneratorRequired
	}

	o := &Orchestrator{
		retriever: retriever,
		threads:   threads,
		generator: generator,
		estimator: core.NewRatioEstimator(),
		logger:    slog.Default().With("component", "chat-orchestrator"),
	}

	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	return o, nil
}

// Stream runs one turn, pushing events through emit in order. The event
// sequence always terminates with a done or error event, except when
// emit itself reports a consumer disconnect, in which case the turn
// stops pulling fragments and persists nothing.
//
// The user and assistant messages are persisted together only after the
// stream completes: a failed or cancelled turn leaves the thread exactly
// as it was, even though delivered fragments were already shown.
func (o *Orchestrator) Stream(ctx context.Context, req Request, emit EmitFunc) error {
	if strings.TrimSpace(req.Message) == "" {
		return o.fail(emit, ErrEmptyMessage)
	}

	turnStart := time.Now()

	// Retrieval. A missing or empty index degrades to an answer with no
	// context rather than failing the turn.
	retrievalStart := time.Now()
	result, err := o.retriever.Retrieve(ctx, req.DocumentID, req.Message)
	if err != nil && !errors.Is(err, retrieve.ErrNoIndex) {
		return o.fail(emit, err)
	}
	retrievalMs := time.Since(retrievalStart).Milliseconds()

	if err := emit(Event{Type: EventTiming, Payload: Timing{
		RetrievalMs:   retrievalMs,
		ContextTokens: result.TotalTokens,
	}}); err != nil {
		return err
	}

	threadID := req.ThreadID
	if threadID == "" {
		thread, err := o.threads.GetOrCreateThread(ctx, req.DocumentID)
		if err != nil {
			return o.fail(emit, err)
		}
		threadID = thread.ThreadID
	}

	memory, err := o.threads.BuildMemory(ctx, threadID)
	if err != nil {
		return o.fail(emit, err)
	}

	label := req.DocumentLabel
	if label == "" {
		label = req.DocumentID
	}
	prompt := buildPrompt(req.SystemPrompt, label, memory, req.Message, result.Chunks, o.estimator)

	// Stream the reply, forwarding each fragment before pulling the next.
	var firstTokenMs int64
	var consumerGone bool
	reply, err := o.generator.GenerateStream(ctx, prompt.Messages, func(ctx context.Context, fragment string) error {
		if firstTokenMs == 0 {
			firstTokenMs = time.Since(turnStart).Milliseconds()
		}
		if emitErr := emit(Event{Type: EventToken, Payload: Token{Content: fragment}}); emitErr != nil {
			consumerGone = true
			return emitErr
		}
		return nil
	})
	if err != nil {
		// A vanished consumer gets no further events; provider errors
		// surface as a terminal error event.
		if consumerGone || ctx.Err() != nil {
			return err
		}
		return o.fail(emit, err)
	}

	// Persist the exchange all-or-nothing after a completed stream.
	if _, err := o.threads.AppendMessage(ctx, threadID, core.RoleUser, req.Message, nil); err != nil {
		return o.fail(emit, err)
	}
	if _, err := o.threads.AppendMessage(ctx, threadID, core.RoleAssistant, reply, prompt.Citations); err != nil {
		return o.fail(emit, err)
	}

	totalMs := time.Since(turnStart).Milliseconds()
	o.logger.Info("chat turn complete",
		"documentID", req.DocumentID,
		"threadID", threadID,
		"citations", len(prompt.Citations),
		"retrievalMs", retrievalMs,
		"totalMs", totalMs)

	citations := prompt.Citations
	if citations == nil {
		citations = []core.Citation{}
	}
	return emit(Event{Type: EventDone, Payload: Done{
		Citations: citations,
		Timing: Timing{
			RetrievalMs:   retrievalMs,
			ContextTokens: result.TotalTokens,
			FirstTokenMs:  firstTokenMs,
			TotalMs:       totalMs,
		},
	}})
}

// fail emits a terminal error event and returns the underlying error.
func (o *Orchestrator) fail(emit EmitFunc, cause error) error {
	if emitErr := emit(Event{Type: EventError, Payload: Error{Error: cause.Error()}}); emitErr != nil {
		return emitErr
	}
	return cause
}
