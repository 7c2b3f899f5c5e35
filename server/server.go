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

package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/poiesic/pagewise/chat"
	"github.com/poiesic/pagewise/index"
)

// Server exposes the chat stream and index lifecycle over HTTP.
type Server struct {
	engine       *gin.Engine
	orchestrator *chat.Orchestrator
	builder      *index.Builder
	source       DocumentSource
	logger       *slog.Logger
}

// NewServer wires the HTTP routes. The caller owns the lifecycles of the
// orchestrator and builder.
func NewServer(orchestrator *chat.Orchestrator, builder *index.Builder, source DocumentSource) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine:       engine,
		orchestrator: orchestrator,
		builder:      builder,
		source:       source,
		logger:       slog.Default().With("component", "http-server"),
	}

	engine.POST("/chat/stream", s.chatStream)
	engine.POST("/indexes/:documentID/trigger", s.triggerIndex)
	engine.GET("/indexes/:documentID/status", s.indexStatus)

	return s
}

// Handler returns the underlying HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until the listener fails.
func (s *Server) Run(addr string) error {
	s.logger.Info("listening", "addr", addr)
	return s.engine.Run(addr)
}

type chatStreamRequest struct {
	DocumentID    string `json:"documentId" binding:"required"`
	ThreadID      string `json:"threadId"`
	Message       string `json:"message" binding:"required"`
	SystemPrompt  string `json:"systemPrompt"`
	DocumentLabel string `json:"documentLabel"`
}

// chatStream runs one turn and relays its events as server-sent events.
// The SSE sequence terminates with a done or error event; a client
// disconnect stops the turn through the emit error.
func (s *Server) chatStream(c *gin.Context) {
	var req chatStreamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Writer.Flush()

	ctx := c.Request.Context()
	err := s.orchestrator.Stream(ctx, chat.Request{
		DocumentID:    req.DocumentID,
		ThreadID:      req.ThreadID,
		Message:       req.Message,
		SystemPrompt:  req.SystemPrompt,
		DocumentLabel: req.DocumentLabel,
	}, func(e chat.Event) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.SSEvent(string(e.Type), e.Payload)
		c.Writer.Flush()
		return nil
	})
	if err != nil {
		// The terminal error event, if the client was still there, has
		// already been sent.
		s.logger.Warn("chat turn ended with error", "documentID", req.DocumentID, "err", err)
	}
}

// triggerIndex loads the document's bytes and starts a background build.
// Idempotent: an unchanged, already-indexed document returns immediately.
func (s *Server) triggerIndex(c *gin.Context) {
	documentID := c.Param("documentID")

	raw, err := s.source.Load(c.Request.Context(), documentID)
	if errors.Is(err, ErrDocumentNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	status, started, err := s.builder.Trigger(c.Request.Context(), documentID, raw)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	code := http.StatusOK
	if started {
		code = http.StatusAccepted
	}
	c.JSON(code, gin.H{
		"status":  status.State.String(),
		"started": started,
		"message": status.Message,
	})
}

// indexStatus reports the durable status record for polling clients.
func (s *Server) indexStatus(c *gin.Context) {
	status, err := s.builder.Status(c.Request.Context(), c.Param("documentID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     status.State.String(),
		"progress":   status.Progress,
		"chunkCount": status.ChunkCount,
		"message":    status.Message,
	})
}
