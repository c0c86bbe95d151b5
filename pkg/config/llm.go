package config

import (
	"fmt"
	"sync"
)

// LLMProviderConfig defines one LLM provider: an OpenAI-compatible chat
// completions endpoint with one or more API keys for rotation.
type LLMProviderConfig struct {
	// Model name (required)
	Model string `yaml:"model"`

	// Chat completions endpoint base URL (required)
	BaseURL string `yaml:"base_url"`

	// API keys, env-expanded; the client rotates across them round-robin.
	APIKeys []string `yaml:"api_keys"`

	// Per-call timeout in seconds; falls back to the engine default when 0.
	TimeoutSeconds int `yaml:"timeout_seconds,omitempty"`

	// Extra model parameters passed through to provider resolution.
	ModelConfig map[string]any `yaml:"model_config,omitempty"`
}

// Validate checks required provider fields.
func (c *LLMProviderConfig) Validate(name string) error {
	if c.Model == "" {
		return NewValidationError("llm_provider", name, "model", ErrMissingRequiredField)
	}
	if c.BaseURL == "" {
		return NewValidationError("llm_provider", name, "base_url", ErrMissingRequiredField)
	}
	if len(c.APIKeys) == 0 {
		return NewValidationError("llm_provider", name, "api_keys", ErrMissingRequiredField)
	}
	return nil
}

// LLMProviderRegistry stores LLM provider configurations with thread-safe
// access.
type LLMProviderRegistry struct {
	providers map[string]*LLMProviderConfig
	mu        sync.RWMutex
}

// NewLLMProviderRegistry creates a registry over a defensive copy of the map.
func NewLLMProviderRegistry(providers map[string]*LLMProviderConfig) *LLMProviderRegistry {
	copied := make(map[string]*LLMProviderConfig, len(providers))
	for k, v := range providers {
		copied[k] = v
	}
	return &LLMProviderRegistry{providers: copied}
}

// Get retrieves an LLM provider configuration by name.
func (r *LLMProviderRegistry) Get(name string) (*LLMProviderConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, exists := r.providers[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrLLMProviderNotFound, name)
	}
	return provider, nil
}

// Has checks whether a provider exists in the registry.
func (r *LLMProviderRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.providers[name]
	return exists
}

// Len returns the number of registered providers.
func (r *LLMProviderRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}
