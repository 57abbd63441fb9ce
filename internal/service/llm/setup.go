package llm

import (
	"fmt"
	"log/slog"

	"github.com/takeuchi-kgs/hierarchical-agent-rag/internal/capabilities"
	"github.com/takeuchi-kgs/hierarchical-agent-rag/internal/config"
	"github.com/takeuchi-kgs/hierarchical-agent-rag/internal/service/llm/providers/anthropic"
	"github.com/takeuchi-kgs/hierarchical-agent-rag/internal/service/llm/providers/openai"
)

// SetupProviders builds the provider registry from configuration and checks
// the configured default model against the capability registry. Providers
// without credentials are simply not registered.
func SetupProviders(cfg *config.Config, caps *capabilities.Registry, logger *slog.Logger) (*ProviderRegistry, error) {
	registry := NewProviderRegistry()

	if cfg.OpenAIAPIKey != "" {
		provider, err := openai.NewProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create OpenAI provider: %w", err)
		}
		registry.Register(provider)
		logger.Info("provider available", "name", "openai", "models", "gpt-*, o*")
	} else {
		logger.Warn("OPENAI_API_KEY not set - OpenAI provider not available")
	}

	if cfg.AnthropicAPIKey != "" {
		provider, err := anthropic.NewProvider(cfg.AnthropicAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create Anthropic provider: %w", err)
		}
		registry.Register(provider)
		logger.Info("provider available", "name", "anthropic", "models", "claude-*")
	} else {
		logger.Warn("ANTHROPIC_API_KEY not set - Anthropic provider not available")
	}

	// Indexing and per-segment answering both need to see the video, so
	// the default model must be a vision model.
	if err := caps.RequireVision(cfg.DefaultProvider, cfg.DefaultModel); err != nil {
		return nil, fmt.Errorf("default model rejected: %w", err)
	}

	if _, err := registry.GetProvider(cfg.DefaultModel); err != nil {
		return nil, fmt.Errorf("default model '%s' has no configured provider: %w", cfg.DefaultModel, err)
	}

	return registry, nil
}
