package convo

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/pagewise/ai"
	"github.com/poiesic/pagewise/ai/mock"
	"github.com/poiesic/pagewise/core"
	"github.com/poiesic/pagewise/storage"
	"github.com/poiesic/pagewise/storage/badger"
)

func newTestManager(t *testing.T, opts ...Option) (*Manager, storage.ConversationRepository) {
	t.Helper()
	_, conversations, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	manager, err := NewManager(conversations, opts...)
	require.NoError(t, err)
	return manager, conversations
}

func TestNewManagerRequiresRepository(t *testing.T) {
	_, err := NewManager(nil)
	assert.ErrorIs(t, err, ErrConversationRepositoryRequired)
}

func TestGetOrCreateThreadIsIdempotent(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	first, err := manager.GetOrCreateThread(ctx, "doc-a")
	require.NoError(t, err)
	assert.NotEmpty(t, first.ThreadID)
	assert.Equal(t, "doc-a", first.DocumentID)

	second, err := manager.GetOrCreateThread(ctx, "doc-a")
	require.NoError(t, err)
	assert.Equal(t, first.ThreadID, second.ThreadID)

	other, err := manager.GetOrCreateThread(ctx, "doc-b")
	require.NoError(t, err)
	assert.NotEqual(t, first.ThreadID, other.ThreadID)
}

func TestGetOrCreateThreadRequiresDocumentID(t *testing.T) {
	manager, _ := newTestManager(t)

	_, err := manager.GetOrCreateThread(context.Background(), "")
	assert.ErrorIs(t, err, ErrDocumentIDRequired)
}

func TestAppendMessageStoresTokenEstimateAndCitations(t *testing.T) {
	manager, conversations := newTestManager(t)
	ctx := context.Background()

	thread, err := manager.GetOrCreateThread(ctx, "doc-a")
	require.NoError(t, err)

	citations := []core.Citation{{PageStart: 2, PageEnd: 3, ChunkNo: 7}}
	msg, err := manager.AppendMessage(ctx, thread.ThreadID, core.RoleAssistant, "The answer is on page two.", citations)
	require.NoError(t, err)
	assert.Greater(t, msg.TokenEstimate, 0)

	stored, err := conversations.GetRecentMessages(ctx, thread.ThreadID, 10)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, core.RoleAssistant, stored[0].Role)
	require.Len(t, stored[0].Citations, 1)
	assert.Equal(t, 7, stored[0].Citations[0].ChunkNo)
}

func TestAppendMessageRejectsInvalidRole(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	thread, err := manager.GetOrCreateThread(ctx, "doc-a")
	require.NoError(t, err)

	_, err = manager.AppendMessage(ctx, thread.ThreadID, core.Role("moderator"), "hi", nil)
	assert.ErrorIs(t, err, core.ErrInvalidRole)
}

func TestBuildMemoryEmptyThread(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	thread, err := manager.GetOrCreateThread(ctx, "doc-a")
	require.NoError(t, err)

	memory, err := manager.BuildMemory(ctx, thread.ThreadID)
	require.NoError(t, err)
	assert.Empty(t, memory)
}

func TestBuildMemoryShortHistoryIsVerbatim(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	thread, err := manager.GetOrCreateThread(ctx, "doc-a")
	require.NoError(t, err)

	_, err = manager.AppendMessage(ctx, thread.ThreadID, core.RoleUser, "What is entropy?", nil)
	require.NoError(t, err)
	_, err = manager.AppendMessage(ctx, thread.ThreadID, core.RoleAssistant, "A measure of disorder.", nil)
	require.NoError(t, err)

	memory, err := manager.BuildMemory(ctx, thread.ThreadID)
	require.NoError(t, err)
	assert.Equal(t, "user: What is entropy?\nassistant: A measure of disorder.", memory)
}

// seedLongHistory appends enough alternating messages to push the summed
// token estimate well past the summarization threshold.
func seedLongHistory(t *testing.T, manager *Manager, threadID string) {
	t.Helper()
	ctx := context.Background()

	long := strings.Repeat("lecture content word ", 30) // ~150 tokens each
	for i := 0; i < 25; i++ {
		role := core.RoleUser
		if i%2 == 1 {
			role = core.RoleAssistant
		}
		_, err := manager.AppendMessage(ctx, threadID, role, long, nil)
		require.NoError(t, err)
	}
}

func TestBuildMemorySummarizesLongHistory(t *testing.T) {
	generator := mock.NewGenerator()
	var summarized string
	generator.GenerateFunc = func(_ context.Context, messages []ai.Message) (string, error) {
		summarized = messages[len(messages)-1].Content
		return "They discussed lecture content at length.", nil
	}

	manager, _ := newTestManager(t, WithGenerator(generator))
	ctx := context.Background()

	thread, err := manager.GetOrCreateThread(ctx, "doc-long")
	require.NoError(t, err)
	seedLongHistory(t, manager, thread.ThreadID)

	memory, err := manager.BuildMemory(ctx, thread.ThreadID)
	require.NoError(t, err)

	assert.Contains(t, memory, "Earlier conversation (summarized):")
	assert.Contains(t, memory, "They discussed lecture content at length.")
	assert.Contains(t, memory, "Recent messages:")
	assert.NotEmpty(t, summarized, "old segment should have been sent to the generator")

	// The recent segment keeps the trailing messages verbatim.
	assert.Equal(t, 10, strings.Count(strings.SplitAfter(memory, "Recent messages:\n")[1], "lecture content word ")/30)
}

func TestBuildMemoryFallsBackWithoutProvider(t *testing.T) {
	generator := mock.NewGenerator()
	generator.GenerateFunc = func(_ context.Context, _ []ai.Message) (string, error) {
		return "", errors.New("provider unreachable")
	}

	manager, _ := newTestManager(t, WithGenerator(generator))
	ctx := context.Background()

	thread, err := manager.GetOrCreateThread(ctx, "doc-fallback")
	require.NoError(t, err)
	seedLongHistory(t, manager, thread.ThreadID)

	memory, err := manager.BuildMemory(ctx, thread.ThreadID)
	require.NoError(t, err, "summarization failure must degrade, not fail")

	assert.Contains(t, memory, "Earlier conversation (summarized):")
	assert.Contains(t, memory, "...", "fallback truncates old messages")
	assert.Contains(t, memory, "Recent messages:")
}
