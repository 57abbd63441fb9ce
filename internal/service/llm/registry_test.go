package llm

import (
	"context"
	"testing"

	domainllm "github.com/takeuchi-kgs/hierarchical-agent-rag/internal/domain/services/llm"
)

type stubProvider struct {
	name   string
	prefix string
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) SupportsModel(model string) bool {
	return len(model) >= len(s.prefix) && model[:len(s.prefix)] == s.prefix
}

func (s *stubProvider) GenerateResponse(ctx context.Context, req *domainllm.GenerateRequest) (*domainllm.GenerateResponse, error) {
	return &domainllm.GenerateResponse{Text: "ok"}, nil
}

func TestProviderRegistry_GetProvider(t *testing.T) {
	registry := NewProviderRegistry()
	registry.Register(&stubProvider{name: "openai", prefix: "gpt-"})
	registry.Register(&stubProvider{name: "anthropic", prefix: "claude-"})

	p, err := registry.GetProvider("claude-sonnet-4-20250514")
	if err != nil {
		t.Fatalf("GetProvider failed: %v", err)
	}
	if p.Name() != "anthropic" {
		t.Errorf("routed to %q, want anthropic", p.Name())
	}

	if _, err := registry.GetProvider("mystery-model"); err == nil {
		t.Error("GetProvider for unknown model succeeded, want error")
	}
	if _, err := registry.GetProvider(""); err == nil {
		t.Error("GetProvider for empty model succeeded, want error")
	}
}

func TestProviderRegistry_GetByName(t *testing.T) {
	registry := NewProviderRegistry()
	registry.Register(&stubProvider{name: "openai", prefix: "gpt-"})

	if _, err := registry.GetByName("openai"); err != nil {
		t.Fatalf("GetByName failed: %v", err)
	}
	if _, err := registry.GetByName("anthropic"); err == nil {
		t.Error("GetByName for unregistered provider succeeded, want error")
	}
}
