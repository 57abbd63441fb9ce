package llm

import (
	"fmt"
	"sync"

	domainllm "github.com/takeuchi-kgs/hierarchical-agent-rag/internal/domain/services/llm"
)

// ProviderRegistry routes model names to the provider that serves them.
// Providers are registered once at setup; lookups are concurrent-safe.
type ProviderRegistry struct {
	mu        sync.RWMutex
	providers []domainllm.LLMProvider
}

// NewProviderRegistry creates an empty registry.
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{}
}

// Register adds a provider to the registry.
func (r *ProviderRegistry) Register(provider domainllm.LLMProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers = append(r.providers, provider)
}

// GetProvider returns the first registered provider that supports the given
// model name.
func (r *ProviderRegistry) GetProvider(model string) (domainllm.LLMProvider, error) {
	if model == "" {
		return nil, fmt.Errorf("model cannot be empty")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, provider := range r.providers {
		if provider.SupportsModel(model) {
			return provider, nil
		}
	}

	return nil, fmt.Errorf("no provider registered for model '%s'", model)
}

// GetByName returns the provider registered under the given name.
func (r *ProviderRegistry) GetByName(name string) (domainllm.LLMProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, provider := range r.providers {
		if provider.Name() == name {
			return provider, nil
		}
	}

	return nil, fmt.Errorf("no provider registered with name '%s'", name)
}
