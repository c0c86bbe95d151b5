package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge(t *testing.T) {
	t.Run("scalar fields overwrite", func(t *testing.T) {
		state := &WorkflowState{ProcessingStatus: StatusRunning, FinalResponse: "old"}
		state.Merge(&StatePatch{
			ProcessingStatus: StatusPtr(StatusCompleted),
			FinalResponse:    StrPtr("new"),
			NextAction:       ActionPtr(ActionTerminate),
		})
		assert.Equal(t, StatusCompleted, state.ProcessingStatus)
		assert.Equal(t, "new", state.FinalResponse)
		assert.Equal(t, ActionTerminate, state.NextAction)
	})

	t.Run("nil pointer fields leave state untouched", func(t *testing.T) {
		state := &WorkflowState{ProcessingStatus: StatusRunning, FinalResponse: "keep"}
		state.Merge(&StatePatch{})
		assert.Equal(t, StatusRunning, state.ProcessingStatus)
		assert.Equal(t, "keep", state.FinalResponse)
	})

	t.Run("append fields accumulate", func(t *testing.T) {
		state := &WorkflowState{
			AgentResponses: []AgentResponse{{AgentID: "a"}},
			DebugTrace:     []TraceEntry{{Node: "n1"}},
		}
		state.Merge(&StatePatch{
			AgentResponses: []AgentResponse{{AgentID: "b"}},
			Messages:       []ChatMessage{{Role: MessageRoleUser, Content: "hi"}},
			FinalSources:   []NormalizedSource{{URL: "https://x"}},
			DebugTrace:     []TraceEntry{{Node: "n2"}},
		})
		require.Len(t, state.AgentResponses, 2)
		assert.Equal(t, "b", state.AgentResponses[1].AgentID)
		assert.Len(t, state.Messages, 1)
		assert.Len(t, state.FinalSources, 1)
		assert.Len(t, state.DebugTrace, 2)
	})

	t.Run("nil patch is a no-op", func(t *testing.T) {
		state := &WorkflowState{FinalResponse: "keep"}
		state.Merge(nil)
		assert.Equal(t, "keep", state.FinalResponse)
	})
}

func TestWorkflowStateAccessors(t *testing.T) {
	t.Run("language defaults to english", func(t *testing.T) {
		state := &WorkflowState{}
		assert.Equal(t, "english", state.DetectedLanguage())
		state.SemanticRouting = &SemanticRouting{DetectedLanguage: "vietnamese"}
		assert.Equal(t, "vietnamese", state.DetectedLanguage())
	})

	t.Run("refined query falls back to raw query", func(t *testing.T) {
		state := &WorkflowState{Query: "raw"}
		assert.Equal(t, "raw", state.RefinedQuery())
		state.SemanticRouting = &SemanticRouting{RefinedQuery: "refined"}
		assert.Equal(t, "refined", state.RefinedQuery())
	})

	t.Run("successful responses filter", func(t *testing.T) {
		state := &WorkflowState{AgentResponses: []AgentResponse{
			{AgentID: "a", Status: TaskStatusCompleted},
			{AgentID: "b", Status: TaskStatusFailed},
		}}
		ok := state.SuccessfulResponses()
		require.Len(t, ok, 1)
		assert.Equal(t, "a", ok[0].AgentID)
	})
}

func TestTrace(t *testing.T) {
	patch := &StatePatch{}
	patch.Trace("executor", "done", 1500*time.Millisecond)
	require.Len(t, patch.DebugTrace, 1)
	assert.Equal(t, "executor", patch.DebugTrace[0].Node)
	assert.Equal(t, 1500.0, patch.DebugTrace[0].DurationMS)
	assert.NotZero(t, patch.DebugTrace[0].Timestamp)
}
