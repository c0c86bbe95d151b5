package config

import (
	"fmt"
	"sync"

	"github.com/conclave-ai/conclave/pkg/models"
)

// AgentToolConfig is the YAML shape of one declared agent tool.
type AgentToolConfig struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	AccessLevel string `yaml:"access_level,omitempty"` // public | private | both
	Category    string `yaml:"category,omitempty"`
}

// AgentConfig is the YAML shape of one agent in the tenant directory.
type AgentConfig struct {
	AgentID        string            `yaml:"agent_id"`
	Description    string            `yaml:"description,omitempty"`
	DepartmentName string            `yaml:"department_name,omitempty"`
	ProviderRef    string            `yaml:"llm_provider"`
	Tools          []AgentToolConfig `yaml:"tools"`
}

// Descriptor converts the config entry into the runtime descriptor.
func (a *AgentConfig) Descriptor(name string) models.AgentDescriptor {
	tools := make([]models.AgentTool, len(a.Tools))
	for i, t := range a.Tools {
		tools[i] = models.AgentTool{
			Name:        t.Name,
			Description: t.Description,
			AccessLevel: models.AccessScope(t.AccessLevel),
			Category:    t.Category,
		}
	}
	return models.AgentDescriptor{
		AgentID:        a.AgentID,
		AgentName:      name,
		Description:    a.Description,
		DepartmentName: a.DepartmentName,
		Tools:          tools,
		ProviderRef:    a.ProviderRef,
	}
}

// AgentDirectory stores the configured agents with thread-safe access.
type AgentDirectory struct {
	agents map[string]*AgentConfig
	mu     sync.RWMutex
}

// NewAgentDirectory creates a directory over a defensive copy of the map.
func NewAgentDirectory(agents map[string]*AgentConfig) *AgentDirectory {
	copied := make(map[string]*AgentConfig, len(agents))
	for k, v := range agents {
		copied[k] = v
	}
	return &AgentDirectory{agents: copied}
}

// Get retrieves an agent configuration by name.
func (d *AgentDirectory) Get(name string) (*AgentConfig, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	a, exists := d.agents[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, name)
	}
	return a, nil
}

// Descriptors returns all agents as runtime descriptors.
func (d *AgentDirectory) Descriptors() []models.AgentDescriptor {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]models.AgentDescriptor, 0, len(d.agents))
	for name, a := range d.agents {
		out = append(out, a.Descriptor(name))
	}
	return out
}

// Len returns the number of configured agents.
func (d *AgentDirectory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.agents)
}
