// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ai provides language-model backends shared by the query expansion
// and answer synthesis stages.
// Implements: prd010-expansion (R2.1-R2.3);
//
//	prd012-synthesis (R2.1);
//	docs/ARCHITECTURE § Language Model Capability.
package ai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pdiddy/research-agent/pkg/types"
)

// defaultTimeout bounds one model call. Synthesis replies take longer than
// typical API round trips, so this is generous.
const defaultTimeout = 2 * time.Minute

// Backend generates text from a prompt. Each provider (Gemini, OpenAI)
// implements this interface so the pipeline stages and tests can supply
// alternatives. Per prd010-expansion R2.1 (Strategy pattern).
type Backend interface {
	// Name identifies the backend (e.g. "gemini").
	Name() string

	// Generate sends one prompt and returns the raw model text.
	Generate(ctx context.Context, prompt string) (string, error)
}

// NewBackend constructs the configured language-model backend. An empty
// provider selects Gemini.
func NewBackend(cfg types.AIConfig) (Backend, error) {
	switch cfg.Provider {
	case "", "gemini":
		return &GeminiBackend{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			MaxRetries: cfg.MaxRetries,
			Client:     &http.Client{Timeout: defaultTimeout},
		}, nil
	case "openai":
		return NewOpenAIBackend(cfg, ""), nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q (supported: gemini, openai)", cfg.Provider)
	}
}
