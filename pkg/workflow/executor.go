package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/conclave-ai/conclave/pkg/agentexec"
	"github.com/conclave-ai/conclave/pkg/config"
	"github.com/conclave-ai/conclave/pkg/locale"
	"github.com/conclave-ai/conclave/pkg/models"
	"github.com/conclave-ai/conclave/pkg/prompt"
	"github.com/conclave-ai/conclave/pkg/sources"
)

// executorNode runs the execution plan: steps strictly sequential, tasks
// within a step in parallel, tools within a task sequential with output
// chaining, per-task retries with linear backoff.
type executorNode struct {
	executor agentexec.ToolExecutor
	engine   *config.EngineConfig
	bus      *progressBus

	// sleep is injectable so retry-backoff tests run without real delays.
	sleep func(ctx context.Context, d time.Duration)
}

func (n *executorNode) Name() string { return nodeExecutor }

func (n *executorNode) Run(ctx context.Context, state *models.WorkflowState) (*models.StatePatch, error) {
	start := time.Now()
	patch := &models.StatePatch{}
	plan := state.ExecutionPlan
	if plan == nil || plan.TaskCount() == 0 {
		return executionFailure(patch, "no execution plan", time.Since(start)), nil
	}

	lang := state.DetectedLanguage()
	tracker := newTaskTracker(plan, n.engine.MaxRetry)

	n.emit(ctx, state, tracker, &models.TaskStatusUpdate{Type: models.UpdatePlanReady}, locale.Text(lang, locale.KeyPlanning))
	n.emit(ctx, state, tracker, &models.TaskStatusUpdate{Type: models.UpdateExecutingAgents}, locale.Text(lang, locale.KeyExecuting))

	responses := make([]models.AgentResponse, plan.TaskCount())
	flatBase := 0
	for si := range plan.Steps {
		step := &plan.Steps[si]
		step.Status = models.TaskStatusInProgress

		g := new(errgroup.Group)
		for ti := range step.Tasks {
			task := &step.Tasks[ti]
			flatIdx := flatBase + ti
			g.Go(func() error {
				responses[flatIdx] = n.runTask(ctx, state, tracker, task, flatIdx)
				return nil
			})
		}
		_ = g.Wait()

		// A step with every task failed does not abort the plan; the next
		// step still runs.
		step.Status = stepStatus(step.Tasks)
		flatBase += len(step.Tasks)

		if ctx.Err() != nil {
			break
		}
	}

	patch.AgentResponses = append(patch.AgentResponses, responses[:flatBase]...)
	patch.FormattedTasks = tracker.snapshot()

	if err := ctx.Err(); err != nil {
		patch.NextAction = models.ActionPtr(models.ActionError)
		patch.ErrorMessage = models.StrPtr("run cancelled")
		patch.OriginalError = models.StrPtr(err.Error())
		patch.ExceptionType = models.StrPtr(exceptionCancelled)
		patch.Trace(nodeExecutor, "cancelled", time.Since(start))
		return patch, nil
	}

	n.routeCompletion(ctx, state, tracker, patch, responses[:flatBase], lang)
	patch.Trace(nodeExecutor, fmt.Sprintf("%d tasks settled", flatBase), time.Since(start))
	return patch, nil
}

// routeCompletion applies the post-execution routing table: zero successes is
// an error, one distinct agent goes straight to the final response, two or
// more distinct agents need conflict resolution.
func (n *executorNode) routeCompletion(ctx context.Context, state *models.WorkflowState, tracker *taskTracker, patch *models.StatePatch, responses []models.AgentResponse, lang string) {
	distinct := make(map[string]bool)
	for _, r := range responses {
		if r.Succeeded() {
			distinct[r.AgentID] = true
		}
	}

	switch {
	case len(distinct) == 0:
		patch.NextAction = models.ActionPtr(models.ActionError)
		patch.ErrorMessage = models.StrPtr(locale.Text("english", locale.KeyAllAgentsFailed))
		patch.ExceptionType = models.StrPtr(exceptionExecution)
	case len(distinct) == 1:
		patch.NextAction = models.ActionPtr(models.ActionFinalResponse)
		patch.RoutingDecision = models.StrPtr(models.RoutingSingleAgent)
		n.emit(ctx, state, tracker, &models.TaskStatusUpdate{Type: models.UpdateAllCompleted}, locale.Text(lang, locale.KeyFinalizing))
	default:
		patch.NextAction = models.ActionPtr(models.ActionConflictResolution)
		patch.RoutingDecision = models.StrPtr(models.RoutingMultipleAgents)
		patch.ProcessingStatus = models.StatusPtr(models.StatusReadyForResolution)
		n.emit(ctx, state, tracker, &models.TaskStatusUpdate{Type: models.UpdateConflictResolution}, locale.Text(lang, locale.KeyResolving))
	}
}

// runTask executes one task's tool sequence with the retry policy: MaxRetry
// attempts, linear backoff, retry context appended to the first tool's
// message on every attempt after the first.
func (n *executorNode) runTask(ctx context.Context, state *models.WorkflowState, tracker *taskTracker, task *models.Task, flatIdx int) models.AgentResponse {
	lang := state.DetectedLanguage()
	provider := state.AgentProviders[task.AgentID]
	taskStart := time.Now()

	tracker.transition(flatIdx, models.TaskStatusInProgress)
	task.Status = models.TaskStatusInProgress
	n.emit(ctx, state, tracker, &models.TaskStatusUpdate{
		Type:      models.UpdateTaskStarted,
		TaskIndex: &flatIdx,
		Status:    models.TaskStatusInProgress,
		Color:     models.ColorPrimary,
	}, locale.Text(lang, locale.KeyExecuting))

	var lastErr error
	for attempt := 1; attempt <= n.engine.MaxRetry; attempt++ {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}

		outputs, err := n.runToolChain(ctx, state, task, provider, attempt, lastErr)
		if err == nil {
			task.Status = models.TaskStatusCompleted
			task.RetryAttempts = attempt
			resp := buildAgentResponse(task, outputs, attempt, time.Since(taskStart), n.engine.SourceSnippetMaxChars)
			task.Result = &resp
			tracker.complete(flatIdx, &resp, attempt)

			message := locale.Text(lang, locale.KeyCompleted)
			if attempt > 1 {
				message = locale.Text(lang, locale.KeyTaskRecovered)
			}
			n.emit(ctx, state, tracker, &models.TaskStatusUpdate{
				Type:            models.UpdateTaskCompleted,
				TaskIndex:       &flatIdx,
				Status:          models.TaskStatusCompleted,
				Color:           models.ColorSuccess,
				Attempt:         attempt,
				EnhancedSuccess: attempt > 1,
			}, message)
			return resp
		}

		lastErr = err
		task.RetryHistory = append(task.RetryHistory, models.RetryRecord{Attempt: attempt, Error: err.Error()})
		task.RetryAttempts = attempt
		slog.Warn("Task attempt failed",
			"agent_id", task.AgentID, "task_index", flatIdx, "attempt", attempt, "error", err)

		if attempt < n.engine.MaxRetry && ctx.Err() == nil {
			task.Status = models.TaskStatusRetrying
			tracker.retry(flatIdx, task.RetryHistory, err.Error())
			n.emit(ctx, state, tracker, &models.TaskStatusUpdate{
				Type:      models.UpdateTaskRetry,
				TaskIndex: &flatIdx,
				Status:    models.TaskStatusRetrying,
				Color:     models.ColorDanger,
				Attempt:   attempt + 1,
			}, locale.Textf(lang, locale.KeyTaskRetrying, attempt+1))
			n.sleepFn()(ctx, n.engine.RetryBackoff(attempt))
			task.Status = models.TaskStatusInProgress
			tracker.transition(flatIdx, models.TaskStatusInProgress)
		}
	}

	task.Status = models.TaskStatusFailed
	errText := "task failed"
	if lastErr != nil {
		errText = lastErr.Error()
	}
	resp := models.AgentResponse{
		AgentName:            task.Agent,
		AgentID:              task.AgentID,
		Status:               models.TaskStatusFailed,
		Attempts:             task.RetryAttempts,
		RetryHistory:         task.RetryHistory,
		ExecutionTimeSeconds: time.Since(taskStart).Seconds(),
		Error:                errText,
	}
	task.Result = &resp
	tracker.fail(flatIdx, &resp, errText)
	n.emit(ctx, state, tracker, &models.TaskStatusUpdate{
		Type:      models.UpdateTaskFailed,
		TaskIndex: &flatIdx,
		Status:    models.TaskStatusFailed,
		Color:     models.ColorDanger,
		Attempt:   task.RetryAttempts,
	}, locale.Text(lang, locale.KeyExecuting))
	return resp
}

// runToolChain executes the task's tools strictly in order, feeding each
// tool's output into the next tool's prompt. Any tool error fails the whole
// attempt.
func (n *executorNode) runToolChain(ctx context.Context, state *models.WorkflowState, task *models.Task, provider models.ProviderDescriptor, attempt int, lastErr error) ([]toolOutput, error) {
	outputs := make([]toolOutput, 0, len(task.Tools))
	var chain []prompt.ChainOutput

	for i, tool := range task.Tools {
		query := task.QueryFor(i)
		if i == 0 && attempt > 1 && lastErr != nil {
			query = prompt.AppendRetryContext(query, lastErr.Error())
		}
		if i > 0 {
			query = prompt.AppendChainContext(query, chain)
		}

		result, err := n.executor.ExecuteTool(ctx, &agentexec.ToolRequest{
			AgentID:          task.AgentID,
			ToolName:         tool.Tool,
			Query:            query,
			User:             state.UserContext,
			DetectedLanguage: state.DetectedLanguage(),
			Provider:         provider,
		})
		if err != nil {
			return nil, fmt.Errorf("tool %s failed: %w", tool.Tool, err)
		}
		if result == nil {
			return nil, fmt.Errorf("tool %s returned no result", tool.Tool)
		}

		outputs = append(outputs, toolOutput{tool: tool.Tool, result: *result})
		chain = append(chain, prompt.ChainOutput{Tool: tool.Tool, Content: result.Content})
	}
	return outputs, nil
}

func (n *executorNode) emit(ctx context.Context, state *models.WorkflowState, tracker *taskTracker, update *models.TaskStatusUpdate, message string) {
	views := tracker.snapshot()
	n.bus.EmitProgress(ctx, models.ProgressEvent{
		Node:               nodeExecutor,
		ProcessingStatus:   models.StatusRunning,
		ProgressPercentage: overallProgress(views),
		ProgressMessage:    message,
		CurrentStep:        nodeExecutor,
		TotalSteps:         state.ExecutionPlan.TotalSteps,
		FormattedTasks:     views,
		TaskStatusUpdate:   update,
	})
}

func (n *executorNode) sleepFn() func(ctx context.Context, d time.Duration) {
	if n.sleep != nil {
		return n.sleep
	}
	return func(ctx context.Context, d time.Duration) {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
		}
	}
}

// overallProgress maps the task-table percentage into the run's second half:
// planning done is the 50% baseline, all tasks completed is 100%.
func overallProgress(views []models.TaskView) float64 {
	return 50 + models.ProgressPercentage(views)/2
}

type toolOutput struct {
	tool   string
	result models.ToolResult
}

// buildAgentResponse aggregates a successful tool chain into one response:
// contents concatenated in tool order, mean confidence, deduped sources.
func buildAgentResponse(task *models.Task, outputs []toolOutput, attempts int, elapsed time.Duration, snippetMax int) models.AgentResponse {
	var contents []string
	var toolsUsed []string
	var confidenceSum float64
	var allSources []models.NormalizedSource
	for _, o := range outputs {
		if o.result.Content != "" {
			contents = append(contents, o.result.Content)
		}
		toolsUsed = append(toolsUsed, o.tool)
		confidenceSum += o.result.Confidence
		allSources = append(allSources, sources.NormalizeAll(o.result.Sources, snippetMax)...)
	}

	confidence := 0.0
	if len(outputs) > 0 {
		confidence = confidenceSum / float64(len(outputs))
	}

	return models.AgentResponse{
		AgentName:            task.Agent,
		AgentID:              task.AgentID,
		Content:              strings.Join(contents, "\n\n"),
		Confidence:           confidence,
		Sources:              sources.Dedupe(allSources),
		ToolsUsed:            toolsUsed,
		ExecutionTimeSeconds: elapsed.Seconds(),
		Status:               models.TaskStatusCompleted,
		Attempts:             attempts,
		RetryHistory:         task.RetryHistory,
	}
}

func stepStatus(tasks []models.Task) models.TaskStatus {
	completed := 0
	for _, t := range tasks {
		if t.Status == models.TaskStatusCompleted {
			completed++
		}
	}
	switch completed {
	case len(tasks):
		return models.TaskStatusCompleted
	case 0:
		return models.TaskStatusFailed
	default:
		return models.TaskStatusPartial
	}
}

func executionFailure(patch *models.StatePatch, detail string, elapsed time.Duration) *models.StatePatch {
	patch.NextAction = models.ActionPtr(models.ActionError)
	patch.ErrorMessage = models.StrPtr("execution failed")
	patch.OriginalError = models.StrPtr(detail)
	patch.ExceptionType = models.StrPtr(exceptionExecution)
	patch.Trace(nodeExecutor, "execution failure", elapsed)
	return patch
}
