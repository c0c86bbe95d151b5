package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaskStatusTransitions(t *testing.T) {
	allowed := map[TaskStatus][]TaskStatus{
		TaskStatusPending:    {TaskStatusInProgress},
		TaskStatusInProgress: {TaskStatusCompleted, TaskStatusFailed, TaskStatusRetrying},
		TaskStatusRetrying:   {TaskStatusInProgress, TaskStatusFailed},
		TaskStatusCompleted:  {},
		TaskStatusFailed:     {},
	}
	all := []TaskStatus{TaskStatusPending, TaskStatusInProgress, TaskStatusRetrying, TaskStatusCompleted, TaskStatusFailed}

	for from, nexts := range allowed {
		allowedSet := make(map[TaskStatus]bool)
		for _, n := range nexts {
			allowedSet[n] = true
		}
		for _, to := range all {
			assert.Equal(t, allowedSet[to], from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}

	assert.True(t, TaskStatusCompleted.Terminal())
	assert.True(t, TaskStatusFailed.Terminal())
	assert.False(t, TaskStatusRetrying.Terminal())
}

func TestQueryFor(t *testing.T) {
	task := &Task{
		Purpose: "overall purpose",
		Tools:   []ToolCall{{Tool: "a", Message: "tool message"}, {Tool: "b"}},
		Queries: []string{"sub-query"},
	}

	assert.Equal(t, "sub-query", task.QueryFor(0), "queries win")
	assert.Equal(t, "overall purpose", task.QueryFor(1), "empty message falls back to purpose")

	task.Queries = nil
	assert.Equal(t, "tool message", task.QueryFor(0), "message is the second choice")
}

func TestExecutionPlanHelpers(t *testing.T) {
	plan := &ExecutionPlan{Steps: []Step{
		{StepNumber: 1, Tasks: []Task{{AgentID: "a"}, {AgentID: "b"}}},
		{StepNumber: 2, Tasks: []Task{{AgentID: "a"}}},
	}}

	assert.Equal(t, 3, plan.TaskCount())
	assert.Equal(t, []string{"a", "b"}, plan.ReferencedAgentIDs())

	var flats []int
	plan.EachTask(func(stepIdx, taskIdx, flatIdx int, task *Task) {
		flats = append(flats, flatIdx)
	})
	assert.Equal(t, []int{0, 1, 2}, flats)
}

func TestProgressPercentage(t *testing.T) {
	assert.Zero(t, ProgressPercentage(nil))

	tasks := []TaskView{
		{Status: TaskStatusCompleted},
		{Status: TaskStatusInProgress},
		{Status: TaskStatusRetrying},
		{Status: TaskStatusPending},
	}
	assert.InDelta(t, 50.0, ProgressPercentage(tasks), 1e-9)

	allDone := []TaskView{{Status: TaskStatusCompleted}, {Status: TaskStatusCompleted}}
	assert.InDelta(t, 100.0, ProgressPercentage(allDone), 1e-9)
}
