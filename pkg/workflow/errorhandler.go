package workflow

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/conclave-ai/conclave/pkg/config"
	"github.com/conclave-ai/conclave/pkg/llm"
	"github.com/conclave-ai/conclave/pkg/locale"
	"github.com/conclave-ai/conclave/pkg/models"
	"github.com/conclave-ai/conclave/pkg/prompt"
	"github.com/conclave-ai/conclave/pkg/sources"
)

// errorNode turns a failed run into a user-facing answer: partial results are
// combined by the planner LLM (or concatenated on LLM failure), a total
// failure yields the localized fallback apology. Technical details are
// logged, never surfaced.
type errorNode struct {
	llm     llm.Client
	prompts *prompt.Builder
	engine  *config.EngineConfig
}

func (n *errorNode) Name() string { return nodeErrorHandler }

func (n *errorNode) Run(ctx context.Context, state *models.WorkflowState) (*models.StatePatch, error) {
	start := time.Now()
	patch := &models.StatePatch{}
	lang := state.DetectedLanguage()

	slog.Error("Run entered error handling",
		"tenant_id", state.UserContext.TenantID,
		"exception_type", state.ExceptionType,
		"error_message", state.ErrorMessage,
		"original_error", state.OriginalError)

	successes := state.SuccessfulResponses()
	if len(successes) > 0 {
		response := n.combinePartialResults(ctx, state, successes, lang)
		patch.FinalResponse = models.StrPtr(response)
		patch.FinalSources = partialSources(successes)
		patch.ProcessingStatus = models.StatusPtr(models.StatusCompletedWithErrors)
	} else {
		patch.FinalResponse = models.StrPtr(locale.Text(lang, locale.KeyErrorFallback))
		patch.ProcessingStatus = models.StatusPtr(models.StatusFailed)
	}

	patch.NextAction = models.ActionPtr(models.ActionTerminate)
	patch.Trace(nodeErrorHandler, string(*patch.ProcessingStatus), time.Since(start))
	return patch, nil
}

// combinePartialResults asks the planner LLM for a coherent combined answer
// and falls back to plain concatenation with an incompleteness footer.
func (n *errorNode) combinePartialResults(ctx context.Context, state *models.WorkflowState, successes []models.AgentResponse, lang string) string {
	resp, err := n.llm.Invoke(ctx, &llm.Request{
		Provider:    state.UserContext.ProviderName,
		TenantID:    state.UserContext.TenantID,
		Prompt:      n.prompts.BuildPartialResultsPrompt(state.RefinedQuery(), lang, successes),
		Temperature: state.UserContext.Temperature,
		MaxTokens:   n.engine.MaxTokens,
	})
	if err == nil && resp.Content != "" {
		return resp.Content
	}
	if err != nil {
		slog.Warn("Partial-results combination failed, concatenating", "error", err)
	}

	parts := make([]string, 0, len(successes)+1)
	for _, r := range successes {
		if r.Content != "" {
			parts = append(parts, r.Content)
		}
	}
	parts = append(parts, locale.Text(lang, locale.KeyPartialFooter))
	return strings.Join(parts, "\n\n")
}

func partialSources(successes []models.AgentResponse) []models.NormalizedSource {
	lists := make([][]models.NormalizedSource, len(successes))
	for i, r := range successes {
		lists[i] = r.Sources
	}
	return sources.MergeDedupe(lists...)
}
