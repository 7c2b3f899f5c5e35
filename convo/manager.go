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

package convo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/pagewise/ai"
	"github.com/poiesic/pagewise/core"
	"github.com/poiesic/pagewise/storage"
)

const (
	// memoryMessageLimit caps how much history BuildMemory loads.
	memoryMessageLimit = 100

	// memoryTokenThreshold is the summed token estimate above which the
	// verbatim transcript gives way to summary-plus-recent.
	memoryTokenThreshold = 2500

	// recentMessageCount is how many trailing messages stay verbatim when
	// summarizing.
	recentMessageCount = 10

	// fallbackOldMessageCount and fallbackCharLimit bound the local
	// truncation used when the summarization provider is unavailable.
	fallbackOldMessageCount = 5
	fallbackCharLimit       = 100
)

const summaryPrompt = `Summarize this conversation in roughly 200-300 words. Preserve the questions that were asked and the substance of the answers. Output only the summary.`

// Manager owns the one-thread-per-document conversation model: lazy
// thread creation, append-only message persistence, and bounded memory
// construction for prompt assembly.
type Manager struct {
	conversations storage.ConversationRepository
	generator     ai.Generator
	estimator     core.TokenEstimator
	logger        *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager) error

// WithGenerator enables model-backed summarization of old history.
// Without one, long histories degrade to local truncation.
func WithGenerator(generator ai.Generator) Option {
	return func(m *Manager) error {
		m.generator = generator
		return nil
	}
}

// WithTokenEstimator sets the estimator used to price messages at write
// time. Default is the fixed chars-per-token ratio.
func WithTokenEstimator(estimator core.TokenEstimator) Option {
	return func(m *Manager) error {
		if estimator == nil {
			return fmt.Errorf("token estimator cannot be nil")
		}
		m.estimator = estimator
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) error {
		if logger == nil {
			logger = slog.Default()
		}
		m.logger = logger
		return nil
	}
}

// NewManager creates a conversation manager over the given repository.
func NewManager(conversations storage.ConversationRepository, opts ...Option) (*Manager, error) {
	if conversations == nil {
		return nil, ErrConversationRepositoryRequired
	}

	m := &Manager{
		conversations: conversations,
		estimator:     core.NewRatioEstimator(),
		logger:        slog.Default().With("component", "convo-manager"),
	}

	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// GetOrCreateThread returns the document's thread, creating it on first
// access. Idempotent: repeated calls return the same thread, and if
// duplicates ever exist the repository resolves to the most recently
// created one.
func (m *Manager) GetOrCreateThread(ctx context.Context, documentID string) (*core.Thread, error) {
	if documentID == "" {
		return nil, ErrDocumentIDRequired
	}

	thread, err := m.conversations.GetThreadByDocument(ctx, documentID)
	if err == nil {
		return thread, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("loading thread: %w", err)
	}

	thread = &core.Thread{
		ThreadID:   uuid.NewString(),
		DocumentID: documentID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := m.conversations.AddThread(ctx, thread); err != nil {
		return nil, fmt.Errorf("creating thread: %w", err)
	}

	m.logger.Info("created thread", "documentID", documentID, "threadID", thread.ThreadID)
	return thread, nil
}

// AppendMessage persists a message, pricing its token estimate at write
// time. Citations are optional and only meaningful on assistant messages.
func (m *Manager) AppendMessage(ctx context.Context, threadID string, role core.Role, content string, citations []core.Citation) (*core.Message, error) {
	msg := &core.Message{
		ThreadID:      threadID,
		Role:          role,
		Content:       content,
		TokenEstimate: m.estimator.Estimate(content),
		Citations:     citations,
		CreatedAt:     time.Now().UTC(),
	}
	if err := core.ValidateMessage(msg); err != nil {
		return nil, err
	}
	if err := m.conversations.AppendMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("appending message: %w", err)
	}
	return msg, nil
}

// BuildMemory renders the thread's history into a bounded string for
// prompt assembly. Short histories come back as a verbatim transcript;
// past the token threshold the older messages collapse into a model
// summary (or a local truncation when no provider is reachable) with the
// most recent messages kept verbatim. An empty thread yields "".
func (m *Manager) BuildMemory(ctx context.Context, threadID string) (string, error) {
	messages, err := m.conversations.GetRecentMessages(ctx, threadID, memoryMessageLimit)
	if err != nil {
		return "", fmt.Errorf("loading history: %w", err)
	}
	if len(messages) == 0 {
		return "", nil
	}

	totalTokens := 0
	for _, msg := range messages {
		totalTokens += msg.TokenEstimate
	}
	if totalTokens < memoryTokenThreshold {
		return transcript(messages), nil
	}

	split := len(messages) - recentMessageCount
	if split < 0 {
		split = 0
	}
	old, recent := messages[:split], messages[split:]

	var b strings.Builder
	if len(old) > 0 {
		b.WriteString("Earlier conversation (summarized):\n")
		b.WriteString(m.summarize(ctx, old))
		b.WriteString("\n\nRecent messages:\n")
	}
	b.WriteString(transcript(recent))
	return b.String(), nil
}

// summarize condenses old messages through the generator, degrading to a
// local truncation of the first few on any failure. Summarization never
// fails the caller.
func (m *Manager) summarize(ctx context.Context, old []*core.Message) string {
	if m.generator != nil {
		summary, err := m.generator.Generate(ctx, []ai.Message{
			{Role: ai.RoleSystem, Content: summaryPrompt},
			{Role: ai.RoleUser, Content: transcript(old)},
		}, ai.WithTemperature(0.3))
		if err == nil && strings.TrimSpace(summary) != "" {
			return strings.TrimSpace(summary)
		}
		if err != nil {
			m.logger.Warn("history summarization failed, truncating locally", "err", err)
		}
	}

	count := fallbackOldMessageCount
	if count > len(old) {
		count = len(old)
	}
	lines := make([]string, 0, count)
	for _, msg := range old[:count] {
		content := msg.Content
		if len(content) > fallbackCharLimit {
			content = content[:fallbackCharLimit] + "..."
		}
		lines = append(lines, fmt.Sprintf("%s: %s", msg.Role, content))
	}
	return strings.Join(lines, "\n")
}

// transcript renders messages as "role: content" lines, oldest first.
func transcript(messages []*core.Message) string {
	lines := make([]string, len(messages))
	for i, msg := range messages {
		lines[i] = fmt.Sprintf("%s: %s", msg.Role, msg.Content)
	}
	return strings.Join(lines, "\n")
}
