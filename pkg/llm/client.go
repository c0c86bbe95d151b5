// Package llm provides the planner/resolver LLM boundary: a small Invoke
// interface, an HTTP implementation for OpenAI-compatible chat completions
// endpoints with per-provider API key rotation, and helpers for parsing the
// JSON the models return.
package llm

import (
	"context"
	"errors"
)

// Sentinel errors for LLM invocation.
var (
	ErrProviderNotFound = errors.New("llm provider not found")
	ErrEmptyResponse    = errors.New("llm returned an empty response")
	ErrNoAPIKeys        = errors.New("llm provider has no api keys")
)

// Request describes one LLM invocation.
type Request struct {
	// Provider is the configured provider name to invoke.
	Provider string

	// TenantID scopes the call for accounting/logging.
	TenantID string

	Prompt      string
	JSONMode    bool
	Temperature float64
	MaxTokens   int
}

// Response carries the model output.
type Response struct {
	Content string

	// Token accounting when the provider reports it.
	PromptTokens     int
	CompletionTokens int
}

// Client is the engine-facing LLM capability. Real implementations and test
// doubles are interchangeable.
type Client interface {
	// Invoke sends a single prompt and returns the model's text content.
	// Context cancellation and deadlines interrupt the call.
	Invoke(ctx context.Context, req *Request) (*Response, error)
}
