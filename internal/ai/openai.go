// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/pdiddy/research-agent/pkg/types"
)

// defaultOpenAIModel is used when no model is configured.
const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIBackend calls the OpenAI chat completions API through the official
// client, which handles rate-limit retries itself.
type OpenAIBackend struct {
	client openai.Client
	model  string
}

// NewOpenAIBackend constructs a backend from config. baseURL overrides the
// API endpoint; tests point it at a local server, production passes "".
func NewOpenAIBackend(cfg types.AIConfig, baseURL string) *OpenAIBackend {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(defaultTimeout),
	}
	if cfg.MaxRetries > 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	return &OpenAIBackend{client: openai.NewClient(opts...), model: model}
}

// Name returns the backend identifier.
func (b *OpenAIBackend) Name() string { return "openai" }

// Generate sends the prompt as a single user message and returns the reply text.
func (b *OpenAIBackend) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := b.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(b.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("calling OpenAI API: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("OpenAI API returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}
