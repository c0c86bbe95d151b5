package models

// TaskStatus is the lifecycle status of plans, steps, and tasks.
// Transitions are monotonic: pending → in_progress → (completed | failed |
// retrying → in_progress …). completed and failed are terminal.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusRetrying   TaskStatus = "retrying"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
	TaskStatusPartial    TaskStatus = "partial"
)

// Terminal reports whether the status admits no further transitions.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// CanTransitionTo reports whether the monotonic task state machine allows
// moving from s to next.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	switch s {
	case TaskStatusPending:
		return next == TaskStatusInProgress
	case TaskStatusInProgress:
		return next == TaskStatusCompleted || next == TaskStatusFailed || next == TaskStatusRetrying
	case TaskStatusRetrying:
		return next == TaskStatusInProgress || next == TaskStatusFailed
	default:
		return false
	}
}

// ToolCall is one tool invocation scheduled inside a task. Message carries
// the prompt/instructions the tool receives.
type ToolCall struct {
	Tool    string `json:"tool"`
	Message string `json:"message"`
}

// RetryRecord is one failed attempt in a task's retry history.
type RetryRecord struct {
	Attempt int    `json:"attempt"`
	Error   string `json:"error"`
}

// Task is one agent's unit of work within a step. Tools run strictly
// left-to-right; Queries (when present) are index-aligned sub-queries.
type Task struct {
	Agent         string         `json:"agent"`
	AgentID       string         `json:"agent_id"`
	Purpose       string         `json:"purpose"`
	Tools         []ToolCall     `json:"tools"`
	Queries       []string       `json:"queries,omitempty"`
	Status        TaskStatus     `json:"status"`
	RetryAttempts int            `json:"retry_attempts"`
	RetryHistory  []RetryRecord  `json:"retry_history,omitempty"`
	Result        *AgentResponse `json:"result,omitempty"`
}

// QueryFor returns the sub-query for tool index i, falling back to the tool
// message and then the task purpose.
func (t *Task) QueryFor(i int) string {
	if i < len(t.Queries) && t.Queries[i] != "" {
		return t.Queries[i]
	}
	if i < len(t.Tools) && t.Tools[i].Message != "" {
		return t.Tools[i].Message
	}
	return t.Purpose
}

// Step is an ordered plan stage. Tasks within a step run concurrently.
type Step struct {
	StepID            string     `json:"step_id"`
	StepNumber        int        `json:"step_number"`
	ParallelExecution bool       `json:"parallel_execution"`
	Status            TaskStatus `json:"status"`
	Tasks             []Task     `json:"tasks"`
}

// ExecutionPlan is the typed plan produced by the reflection node's second
// LLM call. Steps execute in step_number order.
type ExecutionPlan struct {
	TotalSteps      int        `json:"total_steps"`
	CurrentStep     int        `json:"current_step"`
	AggregateStatus TaskStatus `json:"aggregate_status"`
	Steps           []Step     `json:"steps"`
}

// TaskCount returns the total number of tasks across all steps.
func (p *ExecutionPlan) TaskCount() int {
	n := 0
	for _, s := range p.Steps {
		n += len(s.Tasks)
	}
	return n
}

// ReferencedAgentIDs returns the distinct agent IDs scheduled by the plan,
// in first-appearance order.
func (p *ExecutionPlan) ReferencedAgentIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, s := range p.Steps {
		for _, t := range s.Tasks {
			if t.AgentID != "" && !seen[t.AgentID] {
				seen[t.AgentID] = true
				ids = append(ids, t.AgentID)
			}
		}
	}
	return ids
}

// EachTask calls fn for every task with its flattened index (formatted-task
// order: steps in order, tasks in declared order).
func (p *ExecutionPlan) EachTask(fn func(stepIdx, taskIdx, flatIdx int, task *Task)) {
	flat := 0
	for si := range p.Steps {
		for ti := range p.Steps[si].Tasks {
			fn(si, ti, flat, &p.Steps[si].Tasks[ti])
			flat++
		}
	}
}
