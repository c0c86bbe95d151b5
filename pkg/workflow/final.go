package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/conclave-ai/conclave/pkg/locale"
	"github.com/conclave-ai/conclave/pkg/models"
	"github.com/conclave-ai/conclave/pkg/sources"
)

// maxCitedSources bounds the source list appended to single-agent answers.
const maxCitedSources = 3

// finalNode produces the run's final response in one of three shapes:
// a templated chitchat greeting, a single-agent passthrough with appended
// sources, or the conflict resolver's merged answer.
type finalNode struct{}

func (n *finalNode) Name() string { return nodeFinalResponse }

func (n *finalNode) Run(_ context.Context, state *models.WorkflowState) (*models.StatePatch, error) {
	start := time.Now()
	patch := &models.StatePatch{}
	lang := state.DetectedLanguage()

	var response string
	var finalSources []models.NormalizedSource
	quality := 0.0

	switch {
	case state.SemanticRouting != nil && state.SemanticRouting.IsChitchat:
		response = locale.Text(lang, locale.KeyGreeting)
		quality = 1.0

	case state.ConflictResolution != nil:
		response = state.ConflictResolution.FinalAnswer
		finalSources = state.ConflictResolution.CombinedSources
		quality = state.ConflictResolution.ConfidenceScore

	default:
		successes := state.SuccessfulResponses()
		if len(successes) == 0 {
			return executionFailure(patch, "final response reached with no successful responses", time.Since(start)), nil
		}
		// A single agent can still have settled several plan steps; every
		// successful step contributes to the answer, in plan order.
		var contents []string
		var allSources []models.NormalizedSource
		confidenceSum := 0.0
		for _, r := range successes {
			if r.Content != "" {
				contents = append(contents, r.Content)
			}
			allSources = append(allSources, r.Sources...)
			confidenceSum += r.Confidence
		}
		finalSources = sources.Dedupe(allSources)
		response = appendSourcesSection(strings.Join(contents, "\n\n"), finalSources, lang)
		quality = confidenceSum / float64(len(successes))
	}

	patch.FinalResponse = models.StrPtr(response)
	patch.FinalSources = finalSources
	patch.ProcessingStatus = models.StatusPtr(models.StatusCompleted)
	patch.NextAction = models.ActionPtr(models.ActionTerminate)
	patch.ExecutionMetadata = buildMetadata(state, finalSources, quality)
	patch.Trace(nodeFinalResponse, "", time.Since(start))
	return patch, nil
}

// appendSourcesSection suffixes an answer with up to maxCitedSources source
// references under a localized label.
func appendSourcesSection(content string, srcs []models.NormalizedSource, lang string) string {
	if len(srcs) == 0 {
		return content
	}
	if len(srcs) > maxCitedSources {
		srcs = srcs[:maxCitedSources]
	}

	var sb strings.Builder
	sb.WriteString(content)
	sb.WriteString("\n\n")
	sb.WriteString(locale.Text(lang, locale.KeySourcesLabel))
	sb.WriteString("\n")
	for i, s := range srcs {
		label := s.Title
		if label == "" {
			label = s.URL
		}
		if label == "" {
			label = s.DocumentID
		}
		fmt.Fprintf(&sb, "%d. %s", i+1, label)
		if s.URL != "" && s.Title != "" {
			sb.WriteString(" (" + s.URL + ")")
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// buildMetadata assembles the execution metadata from the run diagnostics:
// total documents, quality score, distinct source domains, and the summed
// per-node processing time.
func buildMetadata(state *models.WorkflowState, finalSources []models.NormalizedSource, quality float64) *models.ExecutionMetadata {
	processing := 0.0
	for _, entry := range state.DebugTrace {
		processing += entry.DurationMS / 1000
	}
	return &models.ExecutionMetadata{
		TotalDocuments: len(finalSources),
		QualityScore:   quality,
		Domains:        sources.Domains(finalSources),
		ProcessingTime: processing,
		Timestamp:      float64(time.Now().UnixNano()) / 1e9,
	}
}
