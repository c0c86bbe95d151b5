package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/conclave-ai/conclave/pkg/config"
	"github.com/conclave-ai/conclave/pkg/llm"
	"github.com/conclave-ai/conclave/pkg/locale"
	"github.com/conclave-ai/conclave/pkg/models"
	"github.com/conclave-ai/conclave/pkg/prompt"
	"github.com/conclave-ai/conclave/pkg/registry"
)

// Exception types surfaced on the error path. Logged, never shown to users.
const (
	exceptionPlanning  = "PlanningError"
	exceptionExecution = "ExecutionError"
	exceptionCancelled = "Cancelled"
	exceptionInternal  = "InternalError"
)

// datetimeToolName is the tool that receives the tenant datetime block.
const datetimeToolName = "datetime"

// reflectionNode runs the two planner LLM calls: semantic determination and,
// for non-chitchat queries, plan generation over the caller's visible agents.
type reflectionNode struct {
	llm      llm.Client
	prompts  *prompt.Builder
	registry *registry.Registry
	engine   *config.EngineConfig
}

func (n *reflectionNode) Name() string { return nodeReflection }

func (n *reflectionNode) Run(ctx context.Context, state *models.WorkflowState) (*models.StatePatch, error) {
	start := time.Now()
	patch := &models.StatePatch{}

	routing := n.determineSemantics(ctx, state)
	patch.SemanticRouting = routing

	if routing.IsChitchat {
		patch.NextAction = models.ActionPtr(models.ActionFinalResponse)
		patch.ProcessingStatus = models.StatusPtr(models.StatusChitchatDetected)
		patch.Trace(nodeReflection, "chitchat", time.Since(start))
		return patch, nil
	}

	agents := n.registry.VisibleAgents(state.UserContext)
	if len(agents) == 0 {
		return planningFailure(patch, "no agents visible to caller", time.Since(start)), nil
	}

	plan, err := n.generatePlan(ctx, state, routing, agents)
	if err != nil {
		return planningFailure(patch, err.Error(), time.Since(start)), nil
	}

	providers, err := n.resolveProviders(plan, agents)
	if err != nil {
		return planningFailure(patch, err.Error(), time.Since(start)), nil
	}

	patch.ExecutionPlan = plan
	patch.AgentProviders = providers
	patch.NextAction = models.ActionPtr(models.ActionExecutePlanning)
	patch.ProcessingStatus = models.StatusPtr(models.StatusPlanningReady)
	patch.ProgressMessage = models.StrPtr(locale.Text(routing.DetectedLanguage, locale.KeyPlanning))
	patch.Trace(nodeReflection, fmt.Sprintf("plan: %d steps, %d tasks", len(plan.Steps), plan.TaskCount()), time.Since(start))
	return patch, nil
}

// determineSemantics performs LLM call 1. Parse failures degrade to a
// non-chitchat default so the run continues.
func (n *reflectionNode) determineSemantics(ctx context.Context, state *models.WorkflowState) *models.SemanticRouting {
	fallback := &models.SemanticRouting{
		DetectedLanguage: "english",
		IsChitchat:       false,
		RefinedQuery:     state.Query,
		SummaryHistory:   "",
	}

	history := lastTurns(state.Messages, n.engine.HistoryTurnsForSemantics)
	resp, err := n.llm.Invoke(ctx, &llm.Request{
		Provider:    state.UserContext.ProviderName,
		TenantID:    state.UserContext.TenantID,
		Prompt:      n.prompts.BuildSemanticPrompt(state.Query, history),
		JSONMode:    true,
		Temperature: state.UserContext.Temperature,
		MaxTokens:   n.engine.MaxTokens,
	})
	if err != nil {
		slog.Warn("Semantic determination failed, using defaults", "error", err)
		return fallback
	}

	var routing models.SemanticRouting
	if err := llm.UnmarshalResponse(resp.Content, &routing); err != nil {
		slog.Warn("Semantic determination unparseable, using defaults", "error", err)
		return fallback
	}
	if routing.DetectedLanguage == "" {
		routing.DetectedLanguage = "english"
	}
	if routing.RefinedQuery == "" {
		routing.RefinedQuery = state.Query
	}
	return &routing
}

// generatePlan performs LLM call 2 and validates plan closure against the
// visible agents: agent-id back-fill by case-insensitive name, tool names in
// the agent's declared list, datetime context injection.
func (n *reflectionNode) generatePlan(ctx context.Context, state *models.WorkflowState, routing *models.SemanticRouting, agents []models.AgentDescriptor) (*models.ExecutionPlan, error) {
	planPrompt, err := n.prompts.BuildPlanPrompt(prompt.PlanInput{
		DetectedLanguage: routing.DetectedLanguage,
		AccessScope:      state.UserContext.AccessScope,
		History:          lastTurns(state.Messages, n.engine.HistoryTurnsForPlanning),
		TenantTimezone:   state.TenantTimezone,
		TenantDatetime:   state.TenantCurrentDatetime,
		SummaryHistory:   routing.SummaryHistory,
		RefinedQuery:     routing.RefinedQuery,
		Agents:           agents,
	})
	if err != nil {
		return nil, err
	}

	resp, err := n.llm.Invoke(ctx, &llm.Request{
		Provider:    state.UserContext.ProviderName,
		TenantID:    state.UserContext.TenantID,
		Prompt:      planPrompt,
		JSONMode:    true,
		Temperature: state.UserContext.Temperature,
		MaxTokens:   n.engine.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("plan generation failed: %w", err)
	}

	var plan models.ExecutionPlan
	if err := llm.UnmarshalResponse(resp.Content, &plan); err != nil {
		return nil, fmt.Errorf("plan generation returned invalid json: %w", err)
	}
	if len(plan.Steps) == 0 {
		return nil, fmt.Errorf("plan generation returned no steps")
	}

	byID := make(map[string]models.AgentDescriptor, len(agents))
	byName := make(map[string]models.AgentDescriptor, len(agents))
	for _, a := range agents {
		byID[strings.ToLower(a.AgentID)] = a
		byName[strings.ToLower(a.AgentName)] = a
	}

	for si := range plan.Steps {
		step := &plan.Steps[si]
		if step.StepNumber == 0 {
			step.StepNumber = si + 1
		}
		step.StepID = fmt.Sprintf("step_%d", step.StepNumber)
		step.Status = models.TaskStatusPending
		step.ParallelExecution = len(step.Tasks) > 1

		for ti := range step.Tasks {
			task := &step.Tasks[ti]
			task.Status = models.TaskStatusPending

			agent, ok := byID[strings.ToLower(task.AgentID)]
			if !ok {
				// Back-fill a missing or wrong agent_id from the agent name.
				agent, ok = byName[strings.ToLower(task.Agent)]
				if !ok {
					return nil, fmt.Errorf("plan references unknown agent %q (id %q)", task.Agent, task.AgentID)
				}
			}
			task.Agent = agent.AgentName
			task.AgentID = agent.AgentID

			if len(task.Tools) == 0 {
				return nil, fmt.Errorf("task for agent %q schedules no tools", agent.AgentName)
			}
			for i := range task.Tools {
				tool := &task.Tools[i]
				if !agent.HasTool(tool.Tool) {
					return nil, fmt.Errorf("agent %q does not declare tool %q", agent.AgentName, tool.Tool)
				}
				if tool.Message == "" {
					tool.Message = task.QueryFor(i)
				}
				if tool.Tool == datetimeToolName {
					tool.Message = prompt.InjectDatetimeContext(tool.Message, state.TenantTimezone, state.TenantCurrentDatetime)
					if i < len(task.Queries) && task.Queries[i] != "" {
						task.Queries[i] = prompt.InjectDatetimeContext(task.Queries[i], state.TenantTimezone, state.TenantCurrentDatetime)
					}
				}
			}
		}
	}

	plan.TotalSteps = len(plan.Steps)
	plan.AggregateStatus = models.TaskStatusPending
	return &plan, nil
}

// resolveProviders resolves provider descriptors for exactly the agent ids
// the plan references.
func (n *reflectionNode) resolveProviders(plan *models.ExecutionPlan, agents []models.AgentDescriptor) (map[string]models.ProviderDescriptor, error) {
	byID := make(map[string]models.AgentDescriptor, len(agents))
	for _, a := range agents {
		byID[a.AgentID] = a
	}

	providers := make(map[string]models.ProviderDescriptor)
	for _, agentID := range plan.ReferencedAgentIDs() {
		agent, ok := byID[agentID]
		if !ok {
			return nil, fmt.Errorf("provider resolution failed: unknown agent %q", agentID)
		}
		resolved, err := n.registry.ResolveProvider(agent)
		if err != nil {
			return nil, fmt.Errorf("provider resolution failed: %w", err)
		}
		providers[agentID] = resolved
	}
	return providers, nil
}

func planningFailure(patch *models.StatePatch, detail string, elapsed time.Duration) *models.StatePatch {
	slog.Warn("Planning failed", "detail", detail)
	patch.NextAction = models.ActionPtr(models.ActionError)
	patch.ErrorMessage = models.StrPtr("planning failed")
	patch.OriginalError = models.StrPtr(detail)
	patch.ExceptionType = models.StrPtr(exceptionPlanning)
	patch.Trace(nodeReflection, "planning failure", elapsed)
	return patch
}

// lastTurns returns the trailing window of history messages.
func lastTurns(messages []models.ChatMessage, n int) []models.ChatMessage {
	if n <= 0 || len(messages) <= n {
		return messages
	}
	return messages[len(messages)-n:]
}
