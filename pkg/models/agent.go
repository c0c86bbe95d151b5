package models

// AgentTool describes one invocable tool declared by an agent.
// AccessLevel may be empty when the tool has no explicit tag.
type AgentTool struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	AccessLevel AccessScope `json:"access_level,omitempty"`
	Category    string      `json:"category,omitempty"`
}

// AgentDescriptor represents one callable agent: a provider/model binding plus
// a declared tool list, addressable by AgentID within a tenant.
type AgentDescriptor struct {
	AgentID        string      `json:"agent_id"`
	AgentName      string      `json:"agent_name"`
	Description    string      `json:"description"`
	DepartmentName string      `json:"department_name,omitempty"`
	Tools          []AgentTool `json:"tools"`
	ProviderRef    string      `json:"provider_ref"`
}

// HasTool reports whether the agent declares a tool with the given name.
func (a *AgentDescriptor) HasTool(name string) bool {
	for _, t := range a.Tools {
		if t.Name == name {
			return true
		}
	}
	return false
}

// ToolNames returns the declared tool names in order.
func (a *AgentDescriptor) ToolNames() []string {
	names := make([]string, len(a.Tools))
	for i, t := range a.Tools {
		names[i] = t.Name
	}
	return names
}

// ProviderDescriptor is a resolved LLM provider binding for one agent:
// concrete API keys, model, and model configuration. Resolved lazily, only
// for agents referenced by the execution plan.
type ProviderDescriptor struct {
	ProviderName string         `json:"provider_name"`
	APIKeys      []string       `json:"api_keys"`
	ModelName    string         `json:"model_name"`
	ModelConfig  map[string]any `json:"model_config,omitempty"`
}
