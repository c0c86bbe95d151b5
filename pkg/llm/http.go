package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/conclave-ai/conclave/pkg/config"
)

// HTTPClient implements Client for OpenAI-compatible chat completions
// endpoints. Providers are resolved by name from the config registry; each
// provider's API keys are rotated round-robin across calls.
type HTTPClient struct {
	registry       *config.LLMProviderRegistry
	httpClient     *http.Client
	defaultTimeout time.Duration

	mu       sync.Mutex
	rotation map[string]*uint64
}

// NewHTTPClient creates an HTTP LLM client. defaultTimeout applies to
// providers that configure no timeout of their own.
func NewHTTPClient(registry *config.LLMProviderRegistry, defaultTimeout time.Duration) *HTTPClient {
	return &HTTPClient{
		registry: registry,
		// Per-call timeouts come from contexts; the transport stays unbounded.
		httpClient:     &http.Client{},
		defaultTimeout: defaultTimeout,
		rotation:       make(map[string]*uint64),
	}
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Invoke sends the prompt to the named provider's chat completions endpoint.
func (c *HTTPClient) Invoke(ctx context.Context, req *Request) (*Response, error) {
	provider, err := c.registry.Get(req.Provider)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, req.Provider)
	}

	apiKey, err := c.nextKey(req.Provider, provider.APIKeys)
	if err != nil {
		return nil, err
	}

	timeout := c.defaultTimeout
	if provider.TimeoutSeconds > 0 {
		timeout = time.Duration(provider.TimeoutSeconds) * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body := chatRequest{
		Model:       provider.Model,
		Messages:    []chatMessage{{Role: "user", Content: req.Prompt}},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.JSONMode {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost,
		provider.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("llm request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read llm response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode llm response (status %d): %w", resp.StatusCode, err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("llm provider error (%s): %s", parsed.Error.Type, parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("llm provider returned status %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return nil, ErrEmptyResponse
	}

	slog.Debug("LLM call completed",
		"provider", req.Provider,
		"tenant_id", req.TenantID,
		"json_mode", req.JSONMode,
		"duration_ms", time.Since(start).Milliseconds(),
		"prompt_tokens", parsed.Usage.PromptTokens,
		"completion_tokens", parsed.Usage.CompletionTokens)

	return &Response{
		Content:          parsed.Choices[0].Message.Content,
		PromptTokens:     parsed.Usage.PromptTokens,
		CompletionTokens: parsed.Usage.CompletionTokens,
	}, nil
}

// nextKey returns the next API key for the provider, rotating round-robin.
func (c *HTTPClient) nextKey(provider string, keys []string) (string, error) {
	if len(keys) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNoAPIKeys, provider)
	}
	c.mu.Lock()
	counter, ok := c.rotation[provider]
	if !ok {
		counter = new(uint64)
		c.rotation[provider] = counter
	}
	c.mu.Unlock()

	n := atomic.AddUint64(counter, 1) - 1
	return keys[n%uint64(len(keys))], nil
}
