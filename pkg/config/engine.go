package config

import (
	"os"
	"strconv"
	"time"
)

// EngineConfig holds the workflow engine limits. Values come from the
// engine section of conclave.yaml, overridable per setting via environment
// variables of the same upper-snake name.
type EngineConfig struct {
	// Per-task attempt cap (initial attempt + retries).
	MaxRetry int `yaml:"max_retry,omitempty"`

	// Whole-workflow retry cap.
	MaxWorkflowRetry int `yaml:"max_workflow_retry,omitempty"`

	// Per-LLM-call timeout in seconds.
	LLMCallTimeoutSeconds int `yaml:"llm_call_timeout_seconds,omitempty"`

	// Per-tool-call timeout in seconds against the agent gateway.
	ToolCallTimeoutSeconds int `yaml:"tool_call_timeout_seconds,omitempty"`

	// History turns included in the semantic-determination prompt.
	HistoryTurnsForSemantics int `yaml:"history_turns_for_semantics,omitempty"`

	// History turns included in the plan-generation prompt.
	HistoryTurnsForPlanning int `yaml:"history_turns_for_planning,omitempty"`

	// Max tokens for planner LLM calls.
	MaxTokens int `yaml:"max_tokens,omitempty"`

	// Planner temperature when the user context carries none.
	DefaultTemperature float64 `yaml:"default_temperature,omitempty"`

	// Progress bus capacity.
	ProgressQueueCapacity int `yaml:"progress_queue_capacity,omitempty"`

	// Snippet truncation bound for normalized sources.
	SourceSnippetMaxChars int `yaml:"source_snippet_max_chars,omitempty"`

	// Linear retry backoff factor in seconds (delay = factor * attempt).
	RetryBackoffFactorSeconds float64 `yaml:"retry_backoff_factor_seconds,omitempty"`

	// Agent registry cache TTL.
	RegistryCacheTTL time.Duration `yaml:"registry_cache_ttl,omitempty"`
}

// DefaultEngineConfig returns the engine limits with their documented defaults.
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		MaxRetry:                  3,
		MaxWorkflowRetry:          2,
		LLMCallTimeoutSeconds:     120,
		ToolCallTimeoutSeconds:    60,
		HistoryTurnsForSemantics:  5,
		HistoryTurnsForPlanning:   3,
		MaxTokens:                 4096,
		DefaultTemperature:        0.1,
		ProgressQueueCapacity:     64,
		SourceSnippetMaxChars:     400,
		RetryBackoffFactorSeconds: 0.1,
		RegistryCacheTTL:          5 * time.Minute,
	}
}

// LLMCallTimeout returns the per-call timeout as a duration.
func (c *EngineConfig) LLMCallTimeout() time.Duration {
	return time.Duration(c.LLMCallTimeoutSeconds) * time.Second
}

// RetryBackoff returns the sleep before the given retry attempt (1-based).
func (c *EngineConfig) RetryBackoff(attempt int) time.Duration {
	return time.Duration(c.RetryBackoffFactorSeconds * float64(attempt) * float64(time.Second))
}

// applyEnvOverrides overlays environment variables onto the engine config.
// Unparseable values are ignored in favor of the configured value.
func (c *EngineConfig) applyEnvOverrides() {
	overrideInt(&c.MaxRetry, "MAX_RETRY")
	overrideInt(&c.MaxWorkflowRetry, "MAX_WORKFLOW_RETRY")
	overrideInt(&c.LLMCallTimeoutSeconds, "LLM_CALL_TIMEOUT_SECONDS")
	overrideInt(&c.ToolCallTimeoutSeconds, "TOOL_CALL_TIMEOUT_SECONDS")
	overrideInt(&c.HistoryTurnsForSemantics, "HISTORY_TURNS_FOR_SEMANTICS")
	overrideInt(&c.HistoryTurnsForPlanning, "HISTORY_TURNS_FOR_PLANNING")
	overrideInt(&c.MaxTokens, "MAX_TOKENS")
	overrideFloat(&c.DefaultTemperature, "DEFAULT_TEMPERATURE")
	overrideInt(&c.ProgressQueueCapacity, "PROGRESS_QUEUE_CAPACITY")
	overrideInt(&c.SourceSnippetMaxChars, "SOURCE_SNIPPET_MAX_CHARS")
	overrideFloat(&c.RetryBackoffFactorSeconds, "RETRY_BACKOFF_FACTOR_SECONDS")
}

func overrideInt(dst *int, key string) {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			*dst = v
		}
	}
}

func overrideFloat(dst *float64, key string) {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			*dst = v
		}
	}
}
