// Package prompt builds all LLM prompt text for the workflow engine: semantic
// determination, plan generation, conflict resolution, and partial-results
// prompts, plus the context blocks injected into tool messages. Stateless —
// all state comes from parameters.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/conclave-ai/conclave/pkg/models"
)

// History window sizes per prompt.
const (
	SemanticHistoryTurns = 5
	PlanningHistoryTurns = 3
)

const semanticFormatInstructions = `Respond with a single JSON object:
{
  "detected_language": "<lowercase language name, e.g. english, vietnamese>",
  "is_chitchat": <true only for pure greetings or acknowledgements with no actionable request>,
  "refined_query": "<self-contained restatement of the user's intent, in detected_language>",
  "summary_history": "<one-paragraph summary of the prior turns, empty if none>"
}

is_chitchat must be false for anything that needs tools, real-time data, or
document lookup. Do not add any text outside the JSON object.`

const planFormatInstructions = `Respond with a single JSON object matching this schema exactly:
{
  "steps": [
    {
      "step_number": <int, 1-based>,
      "tasks": [
        {
          "agent": "<agent_name from the provided list>",
          "agent_id": "<agent_id from the provided list>",
          "purpose": "<goal of this task, in the user's language>",
          "tools": [{"tool": "<tool name>", "message": "<instructions for that tool>"}],
          "queries": ["<optional per-tool sub-query, index-aligned with tools>"]
        }
      ]
    }
  ]
}

Rules:
- Use only agents and tools from the provided list.
- Steps run sequentially; tasks within a step run in parallel; tools within a
  task run left to right, each seeing the previous tool's output.
- Prefer the smallest plan that answers the query.
- Do not add any text outside the JSON object.`

const conflictFormatInstructions = `Resolve the differences between the candidate answers. Apply, in order:
1. consensus_voting: prefer claims multiple agents agree on
2. recency_priority: prefer more recent information
3. evidence_quality: prefer answers backed by more reliable sources

Respond with a single JSON object:
{
  "final_answer": "<merged answer, in the detected language>",
  "winning_agents": ["<agent names whose answers dominate>"],
  "conflict_level": "<low|medium|high>",
  "resolution_method": "<consensus_voting|recency_priority|evidence_quality|combination>",
  "evidence_ranking": [
    {
      "agent_name": "<name>",
      "score": <0..1>,
      "factors": {"recency": <0..1>, "consensus": <0..1>, "completeness": <0..1>, "source_reliability": <0..1>}
    }
  ],
  "resolution_reasoning": "<short explanation>",
  "confidence_score": <0..1>
}
Do not add any text outside the JSON object.`

// Builder renders the engine's prompts. Stateless and thread-safe.
type Builder struct{}

// NewBuilder creates a prompt builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// BuildSemanticPrompt renders the first reflection call: chitchat/task
// classification and query refinement.
func (b *Builder) BuildSemanticPrompt(query string, history []models.ChatMessage) string {
	var sb strings.Builder
	sb.WriteString("You classify and refine user queries for a multi-agent assistant.\n\n")
	sb.WriteString(formatHistorySection(history, SemanticHistoryTurns))
	sb.WriteString("## Current Query\n")
	sb.WriteString(query)
	sb.WriteString("\n\n")
	sb.WriteString(semanticFormatInstructions)
	return sb.String()
}

// PlanInput carries everything the plan-generation prompt needs.
type PlanInput struct {
	DetectedLanguage string
	AccessScope      models.AccessScope
	History          []models.ChatMessage
	TenantTimezone   string
	TenantDatetime   string
	SummaryHistory   string
	RefinedQuery     string
	Agents           []models.AgentDescriptor
}

// BuildPlanPrompt renders the second reflection call: typed plan generation
// over the caller's visible agents.
func (b *Builder) BuildPlanPrompt(in PlanInput) (string, error) {
	agentsJSON, err := json.MarshalIndent(agentSummaries(in.Agents), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize agents: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("You plan the execution of a user request across specialized agents.\n\n")

	sb.WriteString("## Request Context\n")
	sb.WriteString("**Language:** " + in.DetectedLanguage + "\n")
	sb.WriteString("**Access scope:** " + string(in.AccessScope) + "\n")
	sb.WriteString("**Tenant timezone:** " + in.TenantTimezone + "\n")
	sb.WriteString("**Tenant current datetime:** " + in.TenantDatetime + "\n\n")

	sb.WriteString(formatHistorySection(in.History, PlanningHistoryTurns))

	if in.SummaryHistory != "" {
		sb.WriteString("## Conversation Summary\n")
		sb.WriteString(in.SummaryHistory)
		sb.WriteString("\n\n")
	}

	sb.WriteString("## Available Agents\n")
	sb.WriteString("```json\n")
	sb.Write(agentsJSON)
	sb.WriteString("\n```\n\n")

	sb.WriteString("## User Request\n")
	sb.WriteString(in.RefinedQuery)
	sb.WriteString("\n\n")
	sb.WriteString(planFormatInstructions)
	return sb.String(), nil
}

// ConflictCandidate is one agent answer presented to the conflict resolver.
type ConflictCandidate struct {
	Index            int
	AgentName        string
	Content          string
	Confidence       float64
	ToolsUsed        []string
	ExecutionSeconds float64
	SourcesCount     int
	Evidence         models.EvidenceAnalysis
}

// BuildConflictPrompt renders the conflict-resolution call over every
// successful candidate answer.
func (b *Builder) BuildConflictPrompt(refinedQuery, detectedLanguage string, candidates []ConflictCandidate) string {
	var sb strings.Builder
	sb.WriteString("Multiple agents answered the same request. Merge their answers into one.\n\n")
	sb.WriteString("## Request\n")
	sb.WriteString(refinedQuery)
	sb.WriteString("\n\n**Language:** " + detectedLanguage + "\n\n")

	sb.WriteString("## Candidate Answers\n")
	for _, c := range candidates {
		fmt.Fprintf(&sb, "### Candidate %d: %s\n", c.Index, c.AgentName)
		fmt.Fprintf(&sb, "**Confidence:** %.2f | **Tools:** %s | **Execution:** %.1fs | **Sources:** %d\n",
			c.Confidence, strings.Join(c.ToolsUsed, ", "), c.ExecutionSeconds, c.SourcesCount)
		fmt.Fprintf(&sb, "**Evidence:** reliability=%.2f recency=%.2f completeness=%.2f (reliable %d/%d)\n",
			c.Evidence.ReliabilityScore, c.Evidence.RecencyScore, c.Evidence.CompletenessScore,
			c.Evidence.ReliableSourcesCount, c.Evidence.TotalSources)
		sb.WriteString(c.Content)
		sb.WriteString("\n\n")
	}

	sb.WriteString(conflictFormatInstructions)
	return sb.String()
}

// BuildPartialResultsPrompt renders the error-node call that combines the
// answers that did succeed into a coherent, explicitly incomplete response.
func (b *Builder) BuildPartialResultsPrompt(query, detectedLanguage string, responses []models.AgentResponse) string {
	var sb strings.Builder
	sb.WriteString("Some agents failed while answering this request. ")
	sb.WriteString("Combine the partial results below into one coherent answer in ")
	sb.WriteString(detectedLanguage)
	sb.WriteString(", and acknowledge that some information could not be retrieved.\n\n")
	sb.WriteString("## Request\n")
	sb.WriteString(query)
	sb.WriteString("\n\n## Partial Results\n")
	for _, r := range responses {
		sb.WriteString("### " + r.AgentName + "\n")
		sb.WriteString(r.Content)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Respond with plain text only. Do not mention internal errors or agent names.")
	return sb.String()
}

type agentSummary struct {
	AgentName   string        `json:"agent_name"`
	AgentID     string        `json:"agent_id"`
	Description string        `json:"description,omitempty"`
	Tools       []toolSummary `json:"tools"`
}

type toolSummary struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	AccessLevel string `json:"access_level,omitempty"`
}

func agentSummaries(agents []models.AgentDescriptor) []agentSummary {
	out := make([]agentSummary, len(agents))
	for i, a := range agents {
		tools := make([]toolSummary, len(a.Tools))
		for j, t := range a.Tools {
			tools[j] = toolSummary{
				Name:        t.Name,
				Description: t.Description,
				AccessLevel: string(t.AccessLevel),
			}
		}
		out[i] = agentSummary{
			AgentName:   a.AgentName,
			AgentID:     a.AgentID,
			Description: a.Description,
			Tools:       tools,
		}
	}
	return out
}

// formatHistorySection renders the last maxTurns history messages as a
// "User:" / "Assistant:" transcript section. Empty history yields nothing.
func formatHistorySection(history []models.ChatMessage, maxTurns int) string {
	if len(history) == 0 {
		return ""
	}
	if len(history) > maxTurns {
		history = history[len(history)-maxTurns:]
	}

	var sb strings.Builder
	sb.WriteString("## Conversation History\n")
	for _, m := range history {
		switch m.Role {
		case models.MessageRoleAssistant:
			sb.WriteString("Assistant: ")
		default:
			sb.WriteString("User: ")
		}
		sb.WriteString(m.Content)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	return sb.String()
}
