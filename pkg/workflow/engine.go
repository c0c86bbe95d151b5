package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/conclave-ai/conclave/pkg/agentexec"
	"github.com/conclave-ai/conclave/pkg/config"
	"github.com/conclave-ai/conclave/pkg/llm"
	"github.com/conclave-ai/conclave/pkg/locale"
	"github.com/conclave-ai/conclave/pkg/models"
	"github.com/conclave-ai/conclave/pkg/prompt"
	"github.com/conclave-ai/conclave/pkg/registry"
	"github.com/conclave-ai/conclave/pkg/sources"
)

// node is one stage of the workflow graph. Nodes read the state and return a
// partial update; internal errors (as opposed to routed failures) trigger the
// engine's whole-workflow retry.
type node interface {
	Name() string
	Run(ctx context.Context, state *models.WorkflowState) (*models.StatePatch, error)
}

// Engine runs one workflow per Run call: reflection, execution, optional
// conflict resolution, and a final response, streamed as progress events
// terminated by exactly one final event.
type Engine struct {
	engine   *config.EngineConfig
	llm      llm.Client
	registry *registry.Registry
	executor agentexec.ToolExecutor
	prompts  *prompt.Builder

	// sleep overrides retry backoff in tests; nil means real sleeping.
	sleep func(ctx context.Context, d time.Duration)
}

// NewEngine wires the workflow engine over its collaborators.
func NewEngine(engineCfg *config.EngineConfig, llmClient llm.Client, reg *registry.Registry, executor agentexec.ToolExecutor) *Engine {
	return &Engine{
		engine:   engineCfg,
		llm:      llmClient,
		registry: reg,
		executor: executor,
		prompts:  prompt.NewBuilder(),
	}
}

// Run starts a workflow for the request and returns its event stream. The
// stream carries zero or more progress events and is closed after exactly one
// final event. Canceling ctx interrupts the run; completed results are
// preserved and the final event still arrives.
func (e *Engine) Run(ctx context.Context, req *models.RunRequest) <-chan Event {
	state := e.initialState(req)
	bus := newProgressBus(e.engine.ProgressQueueCapacity)
	go e.loop(ctx, state, bus)
	return bus.Events()
}

func (e *Engine) initialState(req *models.RunRequest) *models.WorkflowState {
	user := req.UserContext.Normalize()
	if user.Temperature <= 0 {
		user.Temperature = e.engine.DefaultTemperature
	}
	req.FillDatetime(time.Now())

	return &models.WorkflowState{
		Query:                 req.Query,
		Messages:              append([]models.ChatMessage(nil), req.Messages...),
		UserContext:           user,
		TenantTimezone:        req.TenantTimezone,
		TenantCurrentDatetime: req.TenantCurrentDatetime,
		CurrentNode:           nodeEntry,
		NextAction:            models.ActionReflection,
		ProcessingStatus:      models.StatusPending,
	}
}

func (e *Engine) loop(ctx context.Context, state *models.WorkflowState, bus *progressBus) {
	start := time.Now()
	log := slog.With("tenant_id", state.UserContext.TenantID, "user_id", state.UserContext.UserID)
	log.Info("Workflow started", "query_len", len(state.Query))

	state.ProcessingStatus = models.StatusRunning
	bus.EmitProgress(ctx, models.ProgressEvent{
		Node:               nodeEntry,
		ProcessingStatus:   models.StatusRunning,
		ProgressPercentage: 5,
		ProgressMessage:    locale.Text("english", locale.KeyAnalyzing),
		CurrentStep:        nodeEntry,
	})

	nodes := map[string]node{
		nodeReflection:       &reflectionNode{llm: e.llm, prompts: e.prompts, registry: e.registry, engine: e.engine},
		nodeExecutor:         &executorNode{executor: e.executor, engine: e.engine, bus: bus, sleep: e.sleep},
		nodeConflictResolver: &resolverNode{llm: e.llm, prompts: e.prompts, engine: e.engine},
		nodeFinalResponse:    &finalNode{},
		nodeErrorHandler:     &errorNode{llm: e.llm, prompts: e.prompts, engine: e.engine},
	}

	current := nodeEntry
	for {
		next := route(current, state)
		if next == nodeTerminate {
			break
		}

		// A canceled run short-circuits to the error handler, keeping any
		// completed results.
		if ctx.Err() != nil && next != nodeErrorHandler && next != nodeFinalResponse {
			state.Merge(cancelledPatch(ctx.Err()))
			next = nodeErrorHandler
		}

		stage := nodes[next]
		patch, err := e.runNode(ctx, stage, state, log)
		if err != nil {
			state.Merge(internalErrorPatch(err))
			current = next
			continue
		}
		state.Merge(patch)
		state.CurrentNode = next

		if next == nodeReflection {
			e.emitReflectionProgress(ctx, state, bus)
		}
		current = next
	}

	final := e.buildFinalEvent(state, time.Since(start))
	bus.EmitFinal(final)
	log.Info("Workflow finished",
		"processing_status", final.ProcessingStatus,
		"duration_ms", time.Since(start).Milliseconds())
}

// runNode executes one node under the whole-workflow retry budget.
func (e *Engine) runNode(ctx context.Context, stage node, state *models.WorkflowState, log *slog.Logger) (*models.StatePatch, error) {
	var lastErr error
	for attempt := 0; attempt <= e.engine.MaxWorkflowRetry; attempt++ {
		patch, err := stage.Run(ctx, state)
		if err == nil {
			return patch, nil
		}
		lastErr = err
		state.RetryCount++
		log.Warn("Node failed, retrying workflow step",
			"node", stage.Name(), "attempt", attempt+1, "error", err)
		if state.RetryCount > e.engine.MaxWorkflowRetry || ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

func (e *Engine) emitReflectionProgress(ctx context.Context, state *models.WorkflowState, bus *progressBus) {
	lang := state.DetectedLanguage()
	message := locale.Text(lang, locale.KeyPlanning)
	if state.ProcessingStatus == models.StatusChitchatDetected {
		message = locale.Text(lang, locale.KeyFinalizing)
	}
	bus.EmitProgress(ctx, models.ProgressEvent{
		Node:               nodeReflection,
		ProcessingStatus:   state.ProcessingStatus,
		ProgressPercentage: 25,
		ProgressMessage:    message,
		CurrentStep:        nodeReflection,
	})
}

// buildFinalEvent assembles the single terminal event from the settled state.
func (e *Engine) buildFinalEvent(state *models.WorkflowState, elapsed time.Duration) models.FinalEvent {
	response := state.FinalResponse
	if response == "" {
		// Terminal state without a response means something went wrong past
		// the error handler; fall back rather than emitting nothing.
		response = locale.Text(state.DetectedLanguage(), locale.KeyErrorFallback)
		if state.ProcessingStatus != models.StatusCompletedWithErrors {
			state.ProcessingStatus = models.StatusFailed
		}
	}

	finalSources := sources.Dedupe(state.FinalSources)
	metadata := models.FinalMetadata{
		ProcessingTimeSeconds: elapsed.Seconds(),
		TotalDocuments:        len(finalSources),
		Domains:               sources.Domains(finalSources),
	}
	if state.ExecutionMetadata != nil {
		metadata.QualityScore = state.ExecutionMetadata.QualityScore
	}

	return models.FinalEvent{
		FinalResponse:    response,
		FinalSources:     finalSources,
		ProcessingStatus: state.ProcessingStatus,
		Metadata:         metadata,
		DetectedLanguage: state.DetectedLanguage(),
	}
}

func cancelledPatch(err error) *models.StatePatch {
	return &models.StatePatch{
		NextAction:    models.ActionPtr(models.ActionError),
		ErrorMessage:  models.StrPtr("run cancelled"),
		OriginalError: models.StrPtr(err.Error()),
		ExceptionType: models.StrPtr(exceptionCancelled),
	}
}

func internalErrorPatch(err error) *models.StatePatch {
	return &models.StatePatch{
		NextAction:    models.ActionPtr(models.ActionError),
		ErrorMessage:  models.StrPtr("internal error"),
		OriginalError: models.StrPtr(err.Error()),
		ExceptionType: models.StrPtr(exceptionInternal),
	}
}
