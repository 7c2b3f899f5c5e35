// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/pagewise/ai"
	"github.com/poiesic/pagewise/ai/openai"
	"github.com/poiesic/pagewise/chat"
	"github.com/poiesic/pagewise/config"
	"github.com/poiesic/pagewise/convo"
	"github.com/poiesic/pagewise/extract"
	"github.com/poiesic/pagewise/index"
	"github.com/poiesic/pagewise/retrieve"
	"github.com/poiesic/pagewise/server"
	"github.com/poiesic/pagewise/storage/badger"
)

func main() {
	app := &cli.App{
		Name:  "pagewise",
		Usage: "Question answering over a single document with cited sources",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration file",
				Value:   "pagewise.yaml",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP server",
				Action: serveCommand,
			},
			{
				Name:      "index",
				Usage:     "Build the index for a document file",
				ArgsUsage: "<document-id> <file>",
				Action:    indexCommand,
			},
			{
				Name:      "ask",
				Usage:     "Ask a question about an indexed document",
				ArgsUsage: "<document-id> <question>",
				Action:    askCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// runtime bundles the wired components behind one Close.
type runtime struct {
	cfg          *config.Config
	provider     ai.Provider
	builder      *index.Builder
	orchestrator *chat.Orchestrator
	close        func()
}

func newRuntime(c *cli.Context) (*runtime, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}

	backend, err := badger.OpenBackend(cfg.Storage.Path, cfg.Storage.InMemory)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	indexes, err := badger.NewIndexRepository(backend)
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("creating index repository: %w", err)
	}
	conversations, err := badger.NewConversationRepository(backend)
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("creating conversation repository: %w", err)
	}

	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(cfg.AI.EmbeddingHost),
		ai.WithChatHost(cfg.AI.ChatHost),
		ai.WithEmbeddingModel(cfg.AI.EmbeddingModel),
		ai.WithChatModel(cfg.AI.ChatModel),
		ai.WithAPIKey(cfg.AI.APIKey),
	)
	if err := aiConfig.Validate(); err != nil {
		backend.Close()
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	provider, err := openai.NewProvider(aiConfig)
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("creating AI provider: %w", err)
	}

	builder, err := index.NewBuilder(indexes, provider.Embedder(), extract.NewPlainText())
	if err != nil {
		backend.Close()
		return nil, err
	}

	retriever, err := retrieve.NewRetriever(indexes, provider.Embedder(),
		retrieve.WithGenerator(provider.Generator()))
	if err != nil {
		builder.Release()
		backend.Close()
		return nil, err
	}

	threads, err := convo.NewManager(conversations,
		convo.WithGenerator(provider.Generator()))
	if err != nil {
		builder.Release()
		backend.Close()
		return nil, err
	}

	orchestrator, err := chat.NewOrchestrator(retriever, threads, provider.Generator())
	if err != nil {
		builder.Release()
		backend.Close()
		return nil, err
	}

	return &runtime{
		cfg:          cfg,
		provider:     provider,
		builder:      builder,
		orchestrator: orchestrator,
		close: func() {
			builder.Release()
			provider.Close()
			backend.Close()
		},
	}, nil
}

func serveCommand(c *cli.Context) error {
	rt, err := newRuntime(c)
	if err != nil {
		return err
	}
	defer rt.close()

	srv := server.NewServer(rt.orchestrator, rt.builder, server.NewFilesystemSource(rt.cfg.Documents.Dir))
	return srv.Run(rt.cfg.Server.Addr)
}

func indexCommand(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("usage: pagewise index <document-id> <file>")
	}
	documentID, path := c.Args().Get(0), c.Args().Get(1)

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	rt, err := newRuntime(c)
	if err != nil {
		return err
	}
	defer rt.close()

	built, err := rt.builder.Build(context.Background(), documentID, raw)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Indexed %s: %d chunks, checksum %s\n", documentID, built.ChunkCount, built.ContentChecksum)
	return nil
}

func askCommand(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("usage: pagewise ask <document-id> <question>")
	}
	documentID, question := c.Args().Get(0), c.Args().Get(1)

	rt, err := newRuntime(c)
	if err != nil {
		return err
	}
	defer rt.close()

	return rt.orchestrator.Stream(context.Background(), chat.Request{
		DocumentID: documentID,
		Message:    question,
	}, func(e chat.Event) error {
		switch e.Type {
		case chat.EventToken:
			fmt.Print(e.Payload.(chat.Token).Content)
		case chat.EventError:
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", e.Payload.(chat.Error).Error)
		case chat.EventDone:
			done := e.Payload.(chat.Done)
			fmt.Println()
			for _, citation := range done.Citations {
				fmt.Fprintf(os.Stderr, "  [chunk %d, p. %d-%d]\n", citation.ChunkNo, citation.PageStart, citation.PageEnd)
			}
			fmt.Fprintf(os.Stderr, "retrieval %dms, first token %dms, total %dms\n",
				done.Timing.RetrievalMs, done.Timing.FirstTokenMs, done.Timing.TotalMs)
		}
		return nil
	})
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
