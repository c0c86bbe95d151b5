package workflow

import "github.com/conclave-ai/conclave/pkg/models"

// Node names used by the router and diagnostics.
const (
	nodeEntry            = "orchestrator_entry"
	nodeReflection       = "reflection"
	nodeExecutor         = "executor"
	nodeConflictResolver = "conflict_resolver"
	nodeFinalResponse    = "final_response"
	nodeErrorHandler     = "error_handler"
	nodeTerminate        = "terminate"
)

// route is the pure transition function (current node, state) → next node.
// Final response and error handler always terminate; anything unexpected
// falls through to the error handler rather than looping.
func route(current string, state *models.WorkflowState) string {
	switch current {
	case nodeEntry:
		return nodeReflection
	case nodeReflection:
		switch state.NextAction {
		case models.ActionFinalResponse:
			return nodeFinalResponse
		case models.ActionExecutePlanning:
			return nodeExecutor
		default:
			return nodeErrorHandler
		}
	case nodeExecutor:
		switch state.NextAction {
		case models.ActionFinalResponse:
			return nodeFinalResponse
		case models.ActionConflictResolution:
			return nodeConflictResolver
		default:
			return nodeErrorHandler
		}
	case nodeConflictResolver:
		if state.NextAction == models.ActionError {
			return nodeErrorHandler
		}
		return nodeFinalResponse
	case nodeFinalResponse, nodeErrorHandler:
		return nodeTerminate
	default:
		return nodeErrorHandler
	}
}
