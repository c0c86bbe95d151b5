package config

// Config is the umbrella configuration object: engine limits plus the
// component registries. This is the primary object returned by Initialize()
// and used throughout the application.
type Config struct {
	configDir string

	Engine              *EngineConfig
	AgentDirectory      *AgentDirectory
	LLMProviderRegistry *LLMProviderRegistry
}

// Stats contains statistics about loaded configuration.
type Stats struct {
	Agents       int
	LLMProviders int
}

// Stats returns configuration statistics for logging/monitoring.
func (c *Config) Stats() Stats {
	s := Stats{}
	if c.AgentDirectory != nil {
		s.Agents = c.AgentDirectory.Len()
	}
	if c.LLMProviderRegistry != nil {
		s.LLMProviders = c.LLMProviderRegistry.Len()
	}
	return s
}

// ConfigDir returns the configuration directory path.
func (c *Config) ConfigDir() string {
	return c.configDir
}

// GetAgent retrieves an agent configuration by name.
func (c *Config) GetAgent(name string) (*AgentConfig, error) {
	return c.AgentDirectory.Get(name)
}

// GetLLMProvider retrieves an LLM provider configuration by name.
func (c *Config) GetLLMProvider(name string) (*LLMProviderConfig, error) {
	return c.LLMProviderRegistry.Get(name)
}
