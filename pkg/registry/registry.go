// Package registry exposes the per-request agent directory view: which agents
// and tools a user may see given their role and department, with a short-TTL
// cache keyed by (tenant_id, role, department_id).
package registry

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/conclave-ai/conclave/pkg/config"
	"github.com/conclave-ai/conclave/pkg/models"
)

const cacheSize = 256

// Registry builds visibility-filtered agent views and resolves their provider
// bindings.
type Registry struct {
	directory *config.AgentDirectory
	providers *config.LLMProviderRegistry
	cache     *expirable.LRU[string, []models.AgentDescriptor]
}

// New creates a registry over the configured agent directory. Visible-agent
// results are cached for ttl per (tenant_id, role, department_id).
func New(directory *config.AgentDirectory, providers *config.LLMProviderRegistry, ttl time.Duration) *Registry {
	return &Registry{
		directory: directory,
		providers: providers,
		cache:     expirable.NewLRU[string, []models.AgentDescriptor](cacheSize, nil, ttl),
	}
}

// VisibleAgents returns the agents the user may target, with tool lists
// filtered by role:
//
//   - MAINTAINER/ADMIN: every agent with its full tool list
//   - DEPT_ADMIN/DEPT_MANAGER: own department's agents in full, other agents
//     reduced to tools tagged public/both
//   - USER: all agents reduced to tools tagged public, both, or untagged
//
// Agents left with no tools after filtering are omitted. Results are sorted
// by agent name for stable prompt rendering.
func (r *Registry) VisibleAgents(user models.UserContext) []models.AgentDescriptor {
	key := cacheKey(user)
	if cached, ok := r.cache.Get(key); ok {
		return cloneDescriptors(cached)
	}

	var out []models.AgentDescriptor
	for _, agent := range r.directory.Descriptors() {
		filtered, ok := filterAgent(agent, user)
		if !ok {
			continue
		}
		out = append(out, filtered)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgentName < out[j].AgentName })

	r.cache.Add(key, out)
	return cloneDescriptors(out)
}

// FindVisible looks up a visible agent by agent_id, matching
// case-insensitively against agent_id and agent_name.
func (r *Registry) FindVisible(user models.UserContext, agentID string) (models.AgentDescriptor, bool) {
	want := strings.ToLower(agentID)
	for _, agent := range r.VisibleAgents(user) {
		if strings.ToLower(agent.AgentID) == want || strings.ToLower(agent.AgentName) == want {
			return agent, true
		}
	}
	return models.AgentDescriptor{}, false
}

// ResolveProvider resolves an agent's provider_ref into concrete API keys and
// model settings. Called lazily, only for agents an execution plan references.
func (r *Registry) ResolveProvider(agent models.AgentDescriptor) (models.ProviderDescriptor, error) {
	provider, err := r.providers.Get(agent.ProviderRef)
	if err != nil {
		return models.ProviderDescriptor{}, fmt.Errorf("agent %s: %w", agent.AgentID, err)
	}
	return models.ProviderDescriptor{
		ProviderName: agent.ProviderRef,
		APIKeys:      append([]string(nil), provider.APIKeys...),
		ModelName:    provider.Model,
		ModelConfig:  provider.ModelConfig,
	}, nil
}

// Invalidate drops all cached views, e.g. after a directory reload.
func (r *Registry) Invalidate() {
	r.cache.Purge()
}

func cacheKey(user models.UserContext) string {
	return user.TenantID + "|" + string(user.Role) + "|" + user.DepartmentID
}

func filterAgent(agent models.AgentDescriptor, user models.UserContext) (models.AgentDescriptor, bool) {
	switch user.Role {
	case models.RoleMaintainer, models.RoleAdmin:
		return agent, len(agent.Tools) > 0
	case models.RoleDeptAdmin, models.RoleDeptManager:
		if user.DepartmentID != "" && agent.DepartmentName == user.DepartmentID {
			return agent, len(agent.Tools) > 0
		}
		return withTools(agent, publicTools(agent.Tools, false))
	default:
		return withTools(agent, publicTools(agent.Tools, true))
	}
}

// publicTools keeps tools tagged public or both; untagged tools are kept only
// when allowUntagged is set (the USER role treats unset as public).
func publicTools(tools []models.AgentTool, allowUntagged bool) []models.AgentTool {
	var out []models.AgentTool
	for _, t := range tools {
		switch t.AccessLevel {
		case models.AccessScopePublic, models.AccessScopeBoth:
			out = append(out, t)
		case "":
			if allowUntagged {
				out = append(out, t)
			}
		}
	}
	return out
}

func withTools(agent models.AgentDescriptor, tools []models.AgentTool) (models.AgentDescriptor, bool) {
	if len(tools) == 0 {
		return models.AgentDescriptor{}, false
	}
	agent.Tools = tools
	return agent, true
}

func cloneDescriptors(in []models.AgentDescriptor) []models.AgentDescriptor {
	out := make([]models.AgentDescriptor, len(in))
	copy(out, in)
	for i := range out {
		out[i].Tools = append([]models.AgentTool(nil), in[i].Tools...)
	}
	return out
}
