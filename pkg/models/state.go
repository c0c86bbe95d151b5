package models

import "time"

// NextAction names the transition a node requests from the router.
type NextAction string

const (
	ActionReflection         NextAction = "reflection"
	ActionExecutePlanning    NextAction = "execute_planning"
	ActionConflictResolution NextAction = "conflict_resolution"
	ActionFinalResponse      NextAction = "final_response"
	ActionError              NextAction = "error"
	ActionTerminate          NextAction = "terminate"
)

// ProcessingStatus is the caller-visible lifecycle status of a run.
type ProcessingStatus string

const (
	StatusPending             ProcessingStatus = "pending"
	StatusRunning             ProcessingStatus = "running"
	StatusCompleted           ProcessingStatus = "completed"
	StatusCompletedWithErrors ProcessingStatus = "completed_with_errors"
	StatusFailed              ProcessingStatus = "failed"
	StatusChitchatDetected    ProcessingStatus = "chitchat_detected"
	StatusPlanningReady       ProcessingStatus = "planning_ready"
	StatusReadyForResolution  ProcessingStatus = "ready_for_resolution"
)

// Routing decisions recorded by the executor.
const (
	RoutingSingleAgent    = "single_agent_sequential"
	RoutingMultipleAgents = "multiple_agents"
)

// TraceEntry is one append-only diagnostics record written per node.
type TraceEntry struct {
	Node       string  `json:"node"`
	Note       string  `json:"note,omitempty"`
	DurationMS float64 `json:"duration_ms"`
	Timestamp  float64 `json:"timestamp"`
}

// ExecutionMetadata is populated by the final-response node.
type ExecutionMetadata struct {
	TotalDocuments int      `json:"total_documents"`
	QualityScore   float64  `json:"quality_score"`
	Domains        []string `json:"domains,omitempty"`
	ProcessingTime float64  `json:"processing_time"`
	Timestamp      float64  `json:"timestamp"`
}

// WorkflowState is the single value threaded through the node graph. Nodes
// receive it read-mostly and return a StatePatch; the engine owns mutation
// via Merge.
type WorkflowState struct {
	// Input
	Query       string        `json:"query"`
	Messages    []ChatMessage `json:"messages"`
	UserContext UserContext   `json:"user_context"`

	// Tenant datetime context (engine-filled at entry when absent)
	TenantTimezone        string `json:"tenant_timezone"`
	TenantCurrentDatetime string `json:"tenant_current_datetime"`

	// Control
	CurrentNode      string           `json:"current_step"`
	NextAction       NextAction       `json:"next_action"`
	ProcessingStatus ProcessingStatus `json:"processing_status"`
	RoutingDecision  string           `json:"routing_decision,omitempty"`

	// Progress
	ProgressPercentage float64 `json:"progress_percentage"`
	ProgressMessage    string  `json:"progress_message"`
	ShouldYield        bool    `json:"should_yield"`

	// Planning artifacts
	SemanticRouting *SemanticRouting              `json:"semantic_routing,omitempty"`
	ExecutionPlan   *ExecutionPlan                `json:"execution_plan,omitempty"`
	FormattedTasks  []TaskView                    `json:"formatted_tasks,omitempty"`
	AgentProviders  map[string]ProviderDescriptor `json:"agent_providers,omitempty"`

	// Execution artifacts
	AgentResponses     []AgentResponse     `json:"agent_responses,omitempty"`
	ConflictResolution *ConflictResolution `json:"conflict_resolution,omitempty"`
	FinalResponse      string              `json:"final_response,omitempty"`
	FinalSources       []NormalizedSource  `json:"final_sources,omitempty"`

	// Error
	ErrorMessage  string `json:"error_message,omitempty"`
	OriginalError string `json:"original_error,omitempty"`
	ExceptionType string `json:"exception_type,omitempty"`
	RetryCount    int    `json:"retry_count"`

	// Diagnostics
	DebugTrace        []TraceEntry       `json:"debug_trace,omitempty"`
	ExecutionMetadata *ExecutionMetadata `json:"execution_metadata,omitempty"`
}

// DetectedLanguage returns the reflected language, defaulting to english.
func (s *WorkflowState) DetectedLanguage() string {
	if s.SemanticRouting != nil && s.SemanticRouting.DetectedLanguage != "" {
		return s.SemanticRouting.DetectedLanguage
	}
	return "english"
}

// RefinedQuery returns the reflected query, falling back to the raw query.
func (s *WorkflowState) RefinedQuery() string {
	if s.SemanticRouting != nil && s.SemanticRouting.RefinedQuery != "" {
		return s.SemanticRouting.RefinedQuery
	}
	return s.Query
}

// SuccessfulResponses returns the responses with status completed.
func (s *WorkflowState) SuccessfulResponses() []AgentResponse {
	var ok []AgentResponse
	for _, r := range s.AgentResponses {
		if r.Succeeded() {
			ok = append(ok, r)
		}
	}
	return ok
}

// StatePatch is a partial state update returned by a node. Pointer and map
// fields overwrite when non-nil; the four append-fields (Messages,
// AgentResponses, FinalSources, DebugTrace) always append.
type StatePatch struct {
	CurrentNode      *string
	NextAction       *NextAction
	ProcessingStatus *ProcessingStatus
	RoutingDecision  *string

	ProgressPercentage *float64
	ProgressMessage    *string
	ShouldYield        *bool

	SemanticRouting *SemanticRouting
	ExecutionPlan   *ExecutionPlan
	FormattedTasks  []TaskView
	AgentProviders  map[string]ProviderDescriptor

	ConflictResolution *ConflictResolution
	FinalResponse      *string
	ErrorMessage       *string
	OriginalError      *string
	ExceptionType      *string
	RetryCount         *int

	ExecutionMetadata *ExecutionMetadata

	// Append-only fields.
	Messages       []ChatMessage
	AgentResponses []AgentResponse
	FinalSources   []NormalizedSource
	DebugTrace     []TraceEntry
}

// Merge applies a patch to the state: keyed overwrite for scalar fields,
// append for the append-fields. FormattedTasks is a snapshot owned by the
// executor and overwrites when present.
func (s *WorkflowState) Merge(p *StatePatch) {
	if p == nil {
		return
	}
	if p.CurrentNode != nil {
		s.CurrentNode = *p.CurrentNode
	}
	if p.NextAction != nil {
		s.NextAction = *p.NextAction
	}
	if p.ProcessingStatus != nil {
		s.ProcessingStatus = *p.ProcessingStatus
	}
	if p.RoutingDecision != nil {
		s.RoutingDecision = *p.RoutingDecision
	}
	if p.ProgressPercentage != nil {
		s.ProgressPercentage = *p.ProgressPercentage
	}
	if p.ProgressMessage != nil {
		s.ProgressMessage = *p.ProgressMessage
	}
	if p.ShouldYield != nil {
		s.ShouldYield = *p.ShouldYield
	}
	if p.SemanticRouting != nil {
		s.SemanticRouting = p.SemanticRouting
	}
	if p.ExecutionPlan != nil {
		s.ExecutionPlan = p.ExecutionPlan
	}
	if p.FormattedTasks != nil {
		s.FormattedTasks = p.FormattedTasks
	}
	if p.AgentProviders != nil {
		s.AgentProviders = p.AgentProviders
	}
	if p.ConflictResolution != nil {
		s.ConflictResolution = p.ConflictResolution
	}
	if p.FinalResponse != nil {
		s.FinalResponse = *p.FinalResponse
	}
	if p.ErrorMessage != nil {
		s.ErrorMessage = *p.ErrorMessage
	}
	if p.OriginalError != nil {
		s.OriginalError = *p.OriginalError
	}
	if p.ExceptionType != nil {
		s.ExceptionType = *p.ExceptionType
	}
	if p.RetryCount != nil {
		s.RetryCount = *p.RetryCount
	}
	if p.ExecutionMetadata != nil {
		s.ExecutionMetadata = p.ExecutionMetadata
	}

	s.Messages = append(s.Messages, p.Messages...)
	s.AgentResponses = append(s.AgentResponses, p.AgentResponses...)
	s.FinalSources = append(s.FinalSources, p.FinalSources...)
	s.DebugTrace = append(s.DebugTrace, p.DebugTrace...)
}

// Trace appends a diagnostics entry for the given node.
func (p *StatePatch) Trace(node, note string, elapsed time.Duration) {
	p.DebugTrace = append(p.DebugTrace, TraceEntry{
		Node:       node,
		Note:       note,
		DurationMS: float64(elapsed.Milliseconds()),
		Timestamp:  float64(time.Now().UnixNano()) / 1e9,
	})
}

// Helpers for building patches without intermediate variables.

func StrPtr(s string) *string                        { return &s }
func F64Ptr(f float64) *float64                      { return &f }
func BoolPtr(b bool) *bool                           { return &b }
func IntPtr(i int) *int                              { return &i }
func ActionPtr(a NextAction) *NextAction             { return &a }
func StatusPtr(s ProcessingStatus) *ProcessingStatus { return &s }
