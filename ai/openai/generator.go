package openai

import (
	"context"
	"log/slog"
	"strings"

	"github.com/poiesic/pagewise/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Generator implements ai.Generator using OpenAI-compatible chat APIs.
type Generator struct {
	client llms.Model
	logger *slog.Logger
}

// newGenerator is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newGenerator(config *ai.Config) (*Generator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.ChatHost),
		openai.WithToken(config.Token()),
		openai.WithModel(config.ChatModel),
	)
	if err != nil {
		return nil, err
	}

	return &Generator{
		client: client,
		logger: slog.Default().With("component", "openai-generator"),
	}, nil
}

// NewGenerator creates a new generator using the provided configuration.
//
// Returns ai.Generator interface to enforce abstraction.
func NewGenerator(config *ai.Config) (ai.Generator, error) {
	return newGenerator(config)
}

// Generate returns a single completion for the messages.
func (g *Generator) Generate(ctx context.Context, messages []ai.Message, opts ...ai.GenerateOption) (string, error) {
	options := ai.ApplyGenerateOptions(opts...)
	content := toContent(messages)

	callOpts := []llms.CallOption{llms.WithTemperature(options.Temperature)}
	if options.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(options.MaxTokens))
	}

	response, err := g.client.GenerateContent(ctx, content, callOpts...)
	if err != nil {
		g.logger.Error("failed to generate content", "err", err)
		return "", err
	}

	if len(response.Choices) < 1 {
		g.logger.Debug("no choices returned from model")
		return "", nil
	}

	return response.Choices[0].Content, nil
}

// GenerateStream streams a completion through fn in arrival order.
// Each fragment is forwarded before the next is requested; nothing is
// buffered beyond the fragment in flight. Returns the full accumulated
// text once the provider signals completion.
func (g *Generator) GenerateStream(ctx context.Context, messages []ai.Message, fn ai.StreamFunc, opts ...ai.GenerateOption) (string, error) {
	options := ai.ApplyGenerateOptions(opts...)
	content := toContent(messages)

	var full strings.Builder
	callOpts := []llms.CallOption{
		llms.WithTemperature(options.Temperature),
		llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			if len(chunk) == 0 {
				return nil
			}
			full.Write(chunk)
			return fn(ctx, string(chunk))
		}),
	}
	if options.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(options.MaxTokens))
	}

	if _, err := g.client.GenerateContent(ctx, content, callOpts...); err != nil {
		g.logger.Error("streaming generation failed", "err", err)
		return "", err
	}

	return full.String(), nil
}

// toContent converts role-tagged messages to langchaingo message content.
func toContent(messages []ai.Message) []llms.MessageContent {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		var role llms.ChatMessageType
		switch msg.Role {
		case ai.RoleSystem:
			role = llms.ChatMessageTypeSystem
		case ai.RoleAssistant:
			role = llms.ChatMessageTypeAI
		default:
			role = llms.ChatMessageTypeHuman
		}
		content = append(content, llms.MessageContent{
			Role:  role,
			Parts: []llms.ContentPart{llms.TextPart(msg.Content)},
		})
	}
	return content
}
