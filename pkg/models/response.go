package models

// SemanticRouting is the output of the reflection node's first LLM call:
// chitchat classification plus query refinement.
type SemanticRouting struct {
	DetectedLanguage string `json:"detected_language"`
	IsChitchat       bool   `json:"is_chitchat"`
	RefinedQuery     string `json:"refined_query"`
	SummaryHistory   string `json:"summary_history"`
}

// AgentResponse is the outcome of one task: the agent's content, its sources,
// and the retry bookkeeping the executor recorded along the way.
type AgentResponse struct {
	AgentName            string             `json:"agent_name"`
	AgentID              string             `json:"agent_id"`
	Content              string             `json:"content"`
	Confidence           float64            `json:"confidence"`
	Sources              []NormalizedSource `json:"sources,omitempty"`
	ToolsUsed            []string           `json:"tools_used,omitempty"`
	ExecutionTimeSeconds float64            `json:"execution_time_seconds"`
	Status               TaskStatus         `json:"status"` // completed | failed
	Attempts             int                `json:"attempts"`
	RetryHistory         []RetryRecord      `json:"retry_history,omitempty"`
	Error                string             `json:"error,omitempty"`
}

// Succeeded reports whether the task completed with usable content.
func (r *AgentResponse) Succeeded() bool {
	return r.Status == TaskStatusCompleted
}

// ToolResult is the opaque per-tool output contract of the agent executor
// collaborator.
type ToolResult struct {
	Content    string             `json:"content"`
	Confidence float64            `json:"confidence"`
	Sources    []NormalizedSource `json:"sources,omitempty"`
	Metadata   map[string]any     `json:"metadata,omitempty"`
}
