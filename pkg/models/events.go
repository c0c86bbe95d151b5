package models

// UI colors consumed by the task view layer.
const (
	ColorPrimary = "primary"
	ColorSuccess = "success"
	ColorDanger  = "danger"
)

// Task view severities.
const (
	SeverityPending = "pending"
	SeverityInfo    = "info"
	SeveritySuccess = "success"
	SeverityDanger  = "danger"
)

// ColorFor maps a task status to its UI color.
func ColorFor(s TaskStatus) string {
	switch s {
	case TaskStatusCompleted:
		return ColorSuccess
	case TaskStatusFailed, TaskStatusRetrying:
		return ColorDanger
	default:
		return ColorPrimary
	}
}

// SeverityFor maps a task status to its UI severity.
func SeverityFor(s TaskStatus) string {
	switch s {
	case TaskStatusPending:
		return SeverityPending
	case TaskStatusCompleted:
		return SeveritySuccess
	case TaskStatusFailed:
		return SeverityDanger
	default:
		return SeverityInfo
	}
}

// Task status update types carried on progress events.
const (
	UpdatePlanReady          = "plan_ready"
	UpdateExecutingAgents    = "executing_agents"
	UpdateTaskStarted        = "task_started"
	UpdateTaskRetry          = "task_retry"
	UpdateTaskCompleted      = "task_completed"
	UpdateTaskFailed         = "task_failed"
	UpdateConflictResolution = "conflict_resolution"
	UpdateAllCompleted       = "all_completed"
)

// TaskView is the UI-facing flattened view of one plan task.
// Messages maps 1-indexed tool position to that tool's message.
type TaskView struct {
	TaskName      string            `json:"task_name"`
	Purpose       string            `json:"purpose"`
	Agent         string            `json:"agent"`
	TaskIndex     int               `json:"task_index"`
	Messages      map[string]string `json:"messages"`
	Status        TaskStatus        `json:"status"`
	Severity      string            `json:"severity"`
	Color         string            `json:"color"`
	RetryCount    int               `json:"retry_count"`
	MaxRetries    int               `json:"max_retries"`
	RetryAttempts int               `json:"retry_attempts"`
	RetryHistory  []RetryRecord     `json:"retry_history,omitempty"`
	Result        *AgentResponse    `json:"result,omitempty"`
	Error         string            `json:"error,omitempty"`
	LastError     string            `json:"last_error,omitempty"`
}

// TaskStatusUpdate is the granular update attached to executor progress
// events. TaskIndex is the flattened plan-order index.
type TaskStatusUpdate struct {
	Type            string     `json:"type"`
	TaskIndex       *int       `json:"task_index,omitempty"`
	Status          TaskStatus `json:"status,omitempty"`
	Color           string     `json:"color,omitempty"`
	Attempt         int        `json:"attempt,omitempty"`
	EnhancedSuccess bool       `json:"enhanced_success,omitempty"`
}

// ProgressEvent is an intermediate state snapshot emitted during a run.
type ProgressEvent struct {
	Node               string            `json:"node"`
	ProcessingStatus   ProcessingStatus  `json:"processing_status"`
	ProgressPercentage float64           `json:"progress_percentage"`
	ProgressMessage    string            `json:"progress_message"`
	CurrentStep        any               `json:"current_step"`
	TotalSteps         int               `json:"total_steps"`
	FormattedTasks     []TaskView        `json:"formatted_tasks,omitempty"`
	TaskStatusUpdate   *TaskStatusUpdate `json:"task_status_update,omitempty"`
	Timestamp          float64           `json:"timestamp"`
}

// FinalMetadata summarizes a completed run for the caller.
type FinalMetadata struct {
	Domains               []string `json:"domains,omitempty"`
	QualityScore          float64  `json:"quality_score"`
	ProcessingTimeSeconds float64  `json:"processing_time_seconds"`
	TotalDocuments        int      `json:"total_documents"`
}

// FinalEvent terminates every run — exactly one per run, after all progress
// events.
type FinalEvent struct {
	FinalResponse    string             `json:"final_response"`
	FinalSources     []NormalizedSource `json:"final_sources,omitempty"`
	ProcessingStatus ProcessingStatus   `json:"processing_status"`
	Metadata         FinalMetadata      `json:"metadata"`
	DetectedLanguage string             `json:"detected_language"`
}

// ProgressPercentage computes the exact percentage over the given task views:
// completed counts 100, in_progress/retrying counts 50, everything else 0,
// normalized by the task count and clamped to [0,100].
func ProgressPercentage(tasks []TaskView) float64 {
	if len(tasks) == 0 {
		return 0
	}
	total := 0.0
	for _, t := range tasks {
		switch t.Status {
		case TaskStatusCompleted:
			total += 100
		case TaskStatusInProgress, TaskStatusRetrying:
			total += 50
		}
	}
	pct := total / float64(len(tasks))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
