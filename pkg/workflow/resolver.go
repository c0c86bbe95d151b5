package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/conclave-ai/conclave/pkg/config"
	"github.com/conclave-ai/conclave/pkg/llm"
	"github.com/conclave-ai/conclave/pkg/models"
	"github.com/conclave-ai/conclave/pkg/prompt"
	"github.com/conclave-ai/conclave/pkg/sources"
)

// resolverNode reconciles two or more successful agent answers into one,
// backed by an engine-computed evidence analysis per answer. LLM failure
// falls back to the highest-confidence answer.
type resolverNode struct {
	llm     llm.Client
	prompts *prompt.Builder
	engine  *config.EngineConfig
}

func (n *resolverNode) Name() string { return nodeConflictResolver }

func (n *resolverNode) Run(ctx context.Context, state *models.WorkflowState) (*models.StatePatch, error) {
	start := time.Now()
	patch := &models.StatePatch{}

	candidates := state.SuccessfulResponses()
	if len(candidates) < 2 {
		return executionFailure(patch, "conflict resolution needs at least two successful responses", time.Since(start)), nil
	}

	evidence := make([]models.EvidenceAnalysis, len(candidates))
	for i, r := range candidates {
		evidence[i] = sources.Analyze(r.Sources)
	}

	resolution := n.resolveWithLLM(ctx, state, candidates, evidence)
	if resolution == nil {
		resolution = fallbackResolution(candidates)
	}

	// Combined sources: whatever the LLM returned, merged with the union of
	// every candidate's sources, normalized and deduped.
	lists := make([][]models.NormalizedSource, 0, len(candidates)+1)
	lists = append(lists, sources.NormalizeAll(resolution.CombinedSources, n.engine.SourceSnippetMaxChars))
	for _, r := range candidates {
		lists = append(lists, sources.NormalizeAll(r.Sources, n.engine.SourceSnippetMaxChars))
	}
	resolution.CombinedSources = sources.MergeDedupe(lists...)

	patch.ConflictResolution = resolution
	patch.FinalSources = resolution.CombinedSources
	patch.NextAction = models.ActionPtr(models.ActionFinalResponse)
	patch.Trace(nodeConflictResolver, resolution.ResolutionMethod, time.Since(start))
	return patch, nil
}

// resolveWithLLM runs the resolution prompt. Any failure returns nil so the
// caller applies the confidence fallback.
func (n *resolverNode) resolveWithLLM(ctx context.Context, state *models.WorkflowState, candidates []models.AgentResponse, evidence []models.EvidenceAnalysis) *models.ConflictResolution {
	promptCandidates := make([]prompt.ConflictCandidate, len(candidates))
	for i, r := range candidates {
		promptCandidates[i] = prompt.ConflictCandidate{
			Index:            i,
			AgentName:        r.AgentName,
			Content:          r.Content,
			Confidence:       r.Confidence,
			ToolsUsed:        r.ToolsUsed,
			ExecutionSeconds: r.ExecutionTimeSeconds,
			SourcesCount:     len(r.Sources),
			Evidence:         evidence[i],
		}
	}

	resp, err := n.llm.Invoke(ctx, &llm.Request{
		Provider:    state.UserContext.ProviderName,
		TenantID:    state.UserContext.TenantID,
		Prompt:      n.prompts.BuildConflictPrompt(state.RefinedQuery(), state.DetectedLanguage(), promptCandidates),
		JSONMode:    true,
		Temperature: state.UserContext.Temperature,
		MaxTokens:   n.engine.MaxTokens,
	})
	if err != nil {
		slog.Warn("Conflict resolution LLM call failed, falling back", "error", err)
		return nil
	}

	var resolution models.ConflictResolution
	if err := llm.UnmarshalResponse(resp.Content, &resolution); err != nil {
		slog.Warn("Conflict resolution unparseable, falling back", "error", err)
		return nil
	}
	if resolution.FinalAnswer == "" {
		slog.Warn("Conflict resolution returned empty answer, falling back")
		return nil
	}
	return &resolution
}

// fallbackResolution picks the highest-confidence answer with a neutral
// singleton evidence ranking.
func fallbackResolution(candidates []models.AgentResponse) *models.ConflictResolution {
	best := candidates[0]
	for _, r := range candidates[1:] {
		if r.Confidence > best.Confidence {
			best = r
		}
	}
	return &models.ConflictResolution{
		FinalAnswer:      best.Content,
		WinningAgents:    []string{best.AgentName},
		ConflictLevel:    models.ConflictLevelLow,
		ResolutionMethod: models.ResolutionFallbackConfidence,
		EvidenceRanking: []models.EvidenceRanking{{
			AgentName: best.AgentName,
			Score:     best.Confidence,
			Factors: models.EvidenceFactors{
				Recency:           0.5,
				Consensus:         0.5,
				Completeness:      0.5,
				SourceReliability: 0.5,
			},
		}},
		ResolutionReasoning: "resolver unavailable; selected the highest-confidence answer",
		ConfidenceScore:     best.Confidence,
	}
}
