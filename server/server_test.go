package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/pagewise/ai/mock"
	"github.com/poiesic/pagewise/chat"
	"github.com/poiesic/pagewise/convo"
	"github.com/poiesic/pagewise/core"
	"github.com/poiesic/pagewise/extract"
	"github.com/poiesic/pagewise/index"
	"github.com/poiesic/pagewise/retrieve"
	"github.com/poiesic/pagewise/storage/badger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type serverFixture struct {
	server    *Server
	builder   *index.Builder
	generator *mock.Generator
	docsDir   string
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()

	indexes, conversations, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	embedder := mock.NewEmbedder()
	generator := mock.NewGenerator()

	builder, err := index.NewBuilder(indexes, embedder, extract.NewPlainText())
	require.NoError(t, err)
	t.Cleanup(builder.Release)

	retriever, err := retrieve.NewRetriever(indexes, embedder)
	require.NoError(t, err)

	threads, err := convo.NewManager(conversations)
	require.NoError(t, err)

	orchestrator, err := chat.NewOrchestrator(retriever, threads, generator)
	require.NoError(t, err)

	docsDir := t.TempDir()
	return &serverFixture{
		server:    NewServer(orchestrator, builder, NewFilesystemSource(docsDir)),
		builder:   builder,
		generator: generator,
		docsDir:   docsDir,
	}
}

func (f *serverFixture) writeDocument(t *testing.T, documentID, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(f.docsDir, documentID), []byte(content), 0o600))
}

func (f *serverFixture) waitReady(t *testing.T, documentID string) {
	t.Helper()
	require.Eventually(t, func() bool {
		status, err := f.builder.Status(context.Background(), documentID)
		return err == nil && status.State == core.IndexStateReady
	}, 5*time.Second, 10*time.Millisecond)
}

func TestTriggerAndStatusLifecycle(t *testing.T) {
	f := newServerFixture(t)
	f.writeDocument(t, "doc-a", "The cell membrane controls what enters and leaves the cell.")

	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/indexes/doc-a/trigger", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)

	f.waitReady(t, "doc-a")

	rec = httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/indexes/doc-a/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var status struct {
		Status     string `json:"status"`
		Progress   int    `json:"progress"`
		ChunkCount int    `json:"chunkCount"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "ready", status.Status)
	assert.Equal(t, 100, status.Progress)
	assert.Greater(t, status.ChunkCount, 0)
}

func TestTriggerUnchangedDocumentShortCircuits(t *testing.T) {
	f := newServerFixture(t)
	f.writeDocument(t, "doc-a", "stable content")

	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/indexes/doc-a/trigger", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)
	f.waitReady(t, "doc-a")

	rec = httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/indexes/doc-a/trigger", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Started bool   `json:"started"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Started)
	assert.Equal(t, "already indexed", body.Message)
}

func TestTriggerUnknownDocument(t *testing.T) {
	f := newServerFixture(t)

	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/indexes/doc-missing/trigger", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusUnknownDocumentIsPending(t *testing.T) {
	f := newServerFixture(t)

	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/indexes/doc-new/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"pending"`)
}

func TestChatStreamEndToEnd(t *testing.T) {
	f := newServerFixture(t)
	f.writeDocument(t, "doc-a", "Mitosis is the process of cell division producing two identical cells.")

	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/indexes/doc-a/trigger", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)
	f.waitReady(t, "doc-a")

	f.generator.StreamFragments = []string{"Cell ", "division."}

	body := strings.NewReader(`{"documentId":"doc-a","message":"What is mitosis?"}`)
	req := httptest.NewRequest(http.MethodPost, "/chat/stream", body)
	req.Header.Set("Content-Type", "application/json")

	rec = httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	events := rec.Body.String()
	assert.Contains(t, events, "event:timing")
	assert.Contains(t, events, "event:token")
	assert.Contains(t, events, `"content":"Cell "`)
	assert.Contains(t, events, "event:done")
	assert.Contains(t, events, `"citations"`)
}

func TestChatStreamValidatesRequest(t *testing.T) {
	f := newServerFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/chat/stream", strings.NewReader(`{"documentId":"doc-a"}`))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatStreamUnindexedDocumentStillAnswers(t *testing.T) {
	f := newServerFixture(t)
	f.generator.StreamFragments = []string{"I could not find relevant sections."}

	body := strings.NewReader(`{"documentId":"doc-unindexed","message":"anything?"}`)
	req := httptest.NewRequest(http.MethodPost, "/chat/stream", body)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	events := rec.Body.String()
	assert.Contains(t, events, "event:done")
	assert.Contains(t, events, `"citations":[]`)
}

func TestFilesystemSourceRejectsTraversal(t *testing.T) {
	source := NewFilesystemSource(t.TempDir())

	for _, id := range []string{"", "../etc/passwd", "a/b", `a\b`} {
		_, err := source.Load(context.Background(), id)
		assert.ErrorIs(t, err, ErrDocumentNotFound, "id %q", id)
	}
}
