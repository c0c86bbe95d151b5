package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// ConclaveYAMLConfig represents the complete conclave.yaml file structure.
type ConclaveYAMLConfig struct {
	Engine       *EngineConfig                 `yaml:"engine"`
	Agents       map[string]*AgentConfig       `yaml:"agents"`
	LLMProviders map[string]*LLMProviderConfig `yaml:"llm_providers"`
}

// Initialize loads, validates, and returns ready-to-use configuration.
//
// Steps performed:
//  1. Load conclave.yaml from configDir
//  2. Expand environment variables ({{.VAR}} template syntax)
//  3. Parse YAML into structs
//  4. Merge engine settings over built-in defaults
//  5. Apply environment overrides to engine limits
//  6. Validate agents and providers
//  7. Return Config ready for use
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("Initializing configuration")

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	stats := cfg.Stats()
	log.Info("Configuration initialized successfully",
		"agents", stats.Agents,
		"llm_providers", stats.LLMProviders)

	return cfg, nil
}

func load(_ context.Context, configDir string) (*Config, error) {
	path := filepath.Join(configDir, "conclave.yaml")
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewLoadError(path, ErrConfigNotFound)
		}
		return nil, NewLoadError(path, err)
	}

	var yamlCfg ConclaveYAMLConfig
	if err := yaml.Unmarshal(ExpandEnv(raw), &yamlCfg); err != nil {
		return nil, NewLoadError(path, fmt.Errorf("%w: %v", ErrInvalidYAML, err))
	}

	// Engine limits: user values merged over built-in defaults, then env.
	engine := DefaultEngineConfig()
	if yamlCfg.Engine != nil {
		if err := mergo.Merge(engine, yamlCfg.Engine, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge engine config: %w", err)
		}
	}
	engine.applyEnvOverrides()

	return &Config{
		configDir:           configDir,
		Engine:              engine,
		AgentDirectory:      NewAgentDirectory(yamlCfg.Agents),
		LLMProviderRegistry: NewLLMProviderRegistry(yamlCfg.LLMProviders),
	}, nil
}

func validate(cfg *Config) error {
	for name, provider := range cfg.LLMProviderRegistry.providers {
		if err := provider.Validate(name); err != nil {
			return err
		}
	}

	for name, agent := range cfg.AgentDirectory.agents {
		if agent.AgentID == "" {
			return NewValidationError("agent", name, "agent_id", ErrMissingRequiredField)
		}
		if agent.ProviderRef == "" {
			return NewValidationError("agent", name, "llm_provider", ErrMissingRequiredField)
		}
		if !cfg.LLMProviderRegistry.Has(agent.ProviderRef) {
			return NewValidationError("agent", name, "llm_provider",
				fmt.Errorf("%w: %s", ErrLLMProviderNotFound, agent.ProviderRef))
		}
		if len(agent.Tools) == 0 {
			return NewValidationError("agent", name, "tools", ErrMissingRequiredField)
		}
		for _, tool := range agent.Tools {
			switch tool.AccessLevel {
			case "", "public", "private", "both":
			default:
				return NewValidationError("agent", name, "tools."+tool.Name+".access_level", ErrInvalidValue)
			}
		}
	}

	return nil
}
