package workflow

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/conclave-ai/conclave/pkg/models"
)

// taskTracker owns the UI-facing flattened task table during execution.
// Tasks in a step update it concurrently, so every mutation and snapshot is
// lock-guarded.
type taskTracker struct {
	mu    sync.Mutex
	views []models.TaskView
}

func newTaskTracker(plan *models.ExecutionPlan, maxRetry int) *taskTracker {
	views := make([]models.TaskView, 0, plan.TaskCount())
	plan.EachTask(func(stepIdx, taskIdx, flatIdx int, task *models.Task) {
		messages := make(map[string]string, len(task.Tools))
		for i, tool := range task.Tools {
			messages[strconv.Itoa(i+1)] = tool.Message
		}
		views = append(views, models.TaskView{
			TaskName:   fmt.Sprintf("%s_task_%d", task.Agent, flatIdx+1),
			Purpose:    task.Purpose,
			Agent:      task.Agent,
			TaskIndex:  flatIdx,
			Messages:   messages,
			Status:     models.TaskStatusPending,
			Severity:   models.SeverityFor(models.TaskStatusPending),
			Color:      models.ColorFor(models.TaskStatusPending),
			MaxRetries: maxRetry,
		})
	})
	return &taskTracker{views: views}
}

// transition moves a task to a new status, refreshing severity and color.
func (t *taskTracker) transition(flatIdx int, status models.TaskStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v := &t.views[flatIdx]
	v.Status = status
	v.Severity = models.SeverityFor(status)
	v.Color = models.ColorFor(status)
}

// retry records a scheduled retry with the accumulated history.
func (t *taskTracker) retry(flatIdx int, history []models.RetryRecord, lastError string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v := &t.views[flatIdx]
	v.Status = models.TaskStatusRetrying
	v.Severity = models.SeverityFor(models.TaskStatusRetrying)
	v.Color = models.ColorFor(models.TaskStatusRetrying)
	v.RetryCount = len(history)
	v.RetryAttempts = len(history)
	v.RetryHistory = append([]models.RetryRecord(nil), history...)
	v.LastError = lastError
}

// complete marks a task finished with its response. RetryAttempts carries the
// attempt count the task settled on, matching the failure path.
func (t *taskTracker) complete(flatIdx int, result *models.AgentResponse, attempts int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v := &t.views[flatIdx]
	v.Status = models.TaskStatusCompleted
	v.Severity = models.SeverityFor(models.TaskStatusCompleted)
	v.Color = models.ColorFor(models.TaskStatusCompleted)
	v.RetryAttempts = attempts
	v.Result = result
}

// fail marks a task terminally failed.
func (t *taskTracker) fail(flatIdx int, result *models.AgentResponse, errText string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v := &t.views[flatIdx]
	v.Status = models.TaskStatusFailed
	v.Severity = models.SeverityFor(models.TaskStatusFailed)
	v.Color = models.ColorFor(models.TaskStatusFailed)
	v.Result = result
	v.Error = errText
	v.LastError = errText
	v.RetryHistory = append([]models.RetryRecord(nil), result.RetryHistory...)
	v.RetryAttempts = result.Attempts
	v.RetryCount = len(result.RetryHistory)
}

// snapshot returns a copy of the table safe to hand to event consumers.
func (t *taskTracker) snapshot() []models.TaskView {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]models.TaskView, len(t.views))
	copy(out, t.views)
	return out
}
