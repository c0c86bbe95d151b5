package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conclave-ai/conclave/pkg/config"
	"github.com/conclave-ai/conclave/pkg/models"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	directory := config.NewAgentDirectory(map[string]*config.AgentConfig{
		"hr-agent": {
			AgentID:        "agent-hr",
			Description:    "HR knowledge agent",
			DepartmentName: "hr",
			ProviderRef:    "primary",
			Tools: []config.AgentToolConfig{
				{Name: "policy_search", AccessLevel: "public"},
				{Name: "salary_lookup", AccessLevel: "private"},
			},
		},
		"it-agent": {
			AgentID:        "agent-it",
			DepartmentName: "it",
			ProviderRef:    "primary",
			Tools: []config.AgentToolConfig{
				{Name: "ticket_search", AccessLevel: "both"},
				{Name: "asset_registry", AccessLevel: "private"},
				{Name: "datetime"},
			},
		},
		"private-agent": {
			AgentID:        "agent-sec",
			DepartmentName: "security",
			ProviderRef:    "primary",
			Tools: []config.AgentToolConfig{
				{Name: "incident_db", AccessLevel: "private"},
			},
		},
	})
	providers := config.NewLLMProviderRegistry(map[string]*config.LLMProviderConfig{
		"primary": {Model: "test-model", BaseURL: "http://llm", APIKeys: []string{"k1", "k2"}},
	})
	return New(directory, providers, 5*time.Minute)
}

func user(role models.Role, dept string) models.UserContext {
	return models.UserContext{
		UserID:       "u1",
		TenantID:     "t1",
		DepartmentID: dept,
		Role:         role,
	}
}

func byID(t *testing.T, agents []models.AgentDescriptor, id string) models.AgentDescriptor {
	t.Helper()
	for _, a := range agents {
		if a.AgentID == id {
			return a
		}
	}
	t.Fatalf("agent %s not visible", id)
	return models.AgentDescriptor{}
}

func TestVisibleAgents(t *testing.T) {
	r := newTestRegistry(t)

	t.Run("admin sees everything", func(t *testing.T) {
		agents := r.VisibleAgents(user(models.RoleAdmin, ""))
		require.Len(t, agents, 3)
		assert.Len(t, byID(t, agents, "agent-hr").Tools, 2)
		assert.Len(t, byID(t, agents, "agent-it").Tools, 3)
	})

	t.Run("dept manager sees own department in full", func(t *testing.T) {
		agents := r.VisibleAgents(user(models.RoleDeptManager, "hr"))
		hr := byID(t, agents, "agent-hr")
		assert.ElementsMatch(t, []string{"policy_search", "salary_lookup"}, hr.ToolNames())

		it := byID(t, agents, "agent-it")
		assert.Equal(t, []string{"ticket_search"}, it.ToolNames())
	})

	t.Run("dept manager loses all-private foreign agents", func(t *testing.T) {
		agents := r.VisibleAgents(user(models.RoleDeptManager, "hr"))
		for _, a := range agents {
			assert.NotEqual(t, "agent-sec", a.AgentID)
		}
	})

	t.Run("user sees public, both, and untagged tools", func(t *testing.T) {
		agents := r.VisibleAgents(user(models.RoleUser, "hr"))
		require.Len(t, agents, 2)
		hr := byID(t, agents, "agent-hr")
		it := byID(t, agents, "agent-it")
		assert.Equal(t, []string{"policy_search"}, hr.ToolNames())
		assert.ElementsMatch(t, []string{"ticket_search", "datetime"}, it.ToolNames())
	})

	t.Run("results are sorted by agent name", func(t *testing.T) {
		agents := r.VisibleAgents(user(models.RoleAdmin, ""))
		names := make([]string, len(agents))
		for i, a := range agents {
			names[i] = a.AgentName
		}
		assert.IsNonDecreasing(t, names)
	})

	t.Run("cached view is not aliased", func(t *testing.T) {
		first := r.VisibleAgents(user(models.RoleAdmin, ""))
		first[0].Tools[0].Name = "mutated"
		second := r.VisibleAgents(user(models.RoleAdmin, ""))
		assert.NotEqual(t, "mutated", second[0].Tools[0].Name)
	})
}

func TestFindVisible(t *testing.T) {
	r := newTestRegistry(t)
	admin := user(models.RoleAdmin, "")

	t.Run("by agent id case-insensitive", func(t *testing.T) {
		agent, ok := r.FindVisible(admin, "AGENT-HR")
		require.True(t, ok)
		assert.Equal(t, "agent-hr", agent.AgentID)
	})

	t.Run("by agent name", func(t *testing.T) {
		agent, ok := r.FindVisible(admin, "It-Agent")
		require.True(t, ok)
		assert.Equal(t, "agent-it", agent.AgentID)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, ok := r.FindVisible(admin, "agent-nope")
		assert.False(t, ok)
	})

	t.Run("visibility applies before lookup", func(t *testing.T) {
		_, ok := r.FindVisible(user(models.RoleUser, ""), "agent-sec")
		assert.False(t, ok)
	})
}

func TestResolveProvider(t *testing.T) {
	r := newTestRegistry(t)
	admin := user(models.RoleAdmin, "")

	t.Run("resolves keys and model", func(t *testing.T) {
		agent, ok := r.FindVisible(admin, "agent-hr")
		require.True(t, ok)

		provider, err := r.ResolveProvider(agent)
		require.NoError(t, err)
		assert.Equal(t, "primary", provider.ProviderName)
		assert.Equal(t, "test-model", provider.ModelName)
		assert.Equal(t, []string{"k1", "k2"}, provider.APIKeys)
	})

	t.Run("unknown provider ref", func(t *testing.T) {
		_, err := r.ResolveProvider(models.AgentDescriptor{AgentID: "x", ProviderRef: "ghost"})
		require.ErrorIs(t, err, config.ErrLLMProviderNotFound)
	})
}
