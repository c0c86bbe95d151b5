// Package sources normalizes and deduplicates the source references agents
// attach to their answers. Normalization is pure and idempotent; dedup keys
// on the first non-empty of url, document_id, title.
package sources

import (
	"strings"

	"github.com/conclave-ai/conclave/pkg/models"
)

// DefaultSnippetMaxChars bounds snippet length when no engine config is in play.
const DefaultSnippetMaxChars = 400

// Indicators of institutionally reliable sources, matched as substrings
// against url, document_id, and collection.
var reliabilityIndicators = []string{".gov", ".edu", ".org", "intra.", "wiki."}

// Normalize converts a raw source value — a bare string or a loosely typed
// map from an LLM/tool payload — into the canonical source shape. Returns
// false for values carrying no usable identity.
func Normalize(raw any, maxSnippetChars int) (models.NormalizedSource, bool) {
	if maxSnippetChars <= 0 {
		maxSnippetChars = DefaultSnippetMaxChars
	}

	switch v := raw.(type) {
	case models.NormalizedSource:
		v.Snippet = TruncateSnippet(v.Snippet, maxSnippetChars)
		return v, v.DedupeKey() != ""
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return models.NormalizedSource{}, false
		}
		if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
			return models.NormalizedSource{URL: s}, true
		}
		return models.NormalizedSource{Title: s}, true
	case map[string]any:
		src := models.NormalizedSource{
			DocumentID:  stringField(v, "document_id"),
			Title:       stringField(v, "title"),
			URL:         stringField(v, "url"),
			Collection:  stringField(v, "collection"),
			AccessLevel: stringField(v, "access_level"),
			Snippet:     TruncateSnippet(stringField(v, "snippet", "content", "text"), maxSnippetChars),
		}
		if score, ok := v["score"].(float64); ok {
			src.Score = score
		}
		return src, src.DedupeKey() != ""
	default:
		return models.NormalizedSource{}, false
	}
}

// NormalizeAll normalizes a slice of already-typed sources, re-truncating
// snippets. Unidentifiable entries are dropped.
func NormalizeAll(srcs []models.NormalizedSource, maxSnippetChars int) []models.NormalizedSource {
	out := make([]models.NormalizedSource, 0, len(srcs))
	for _, s := range srcs {
		if n, ok := Normalize(s, maxSnippetChars); ok {
			out = append(out, n)
		}
	}
	return out
}

// Dedupe removes duplicate sources, keeping the first occurrence of each
// dedupe key. Order is preserved. Applying Dedupe to its own output is a
// no-op.
func Dedupe(srcs []models.NormalizedSource) []models.NormalizedSource {
	seen := make(map[string]bool, len(srcs))
	out := make([]models.NormalizedSource, 0, len(srcs))
	for _, s := range srcs {
		key := s.DedupeKey()
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

// MergeDedupe concatenates the given lists in order and deduplicates.
func MergeDedupe(lists ...[]models.NormalizedSource) []models.NormalizedSource {
	var all []models.NormalizedSource
	for _, l := range lists {
		all = append(all, l...)
	}
	return Dedupe(all)
}

// TruncateSnippet bounds a snippet deterministically, appending an ellipsis
// when content was cut.
func TruncateSnippet(s string, maxChars int) string {
	if maxChars <= 0 || len(s) <= maxChars {
		return s
	}
	if maxChars <= 3 {
		return s[:maxChars]
	}
	return s[:maxChars-3] + "..."
}

// Analyze computes the evidence bag for a response's source list:
// reliability from indicator matches (floored at +0.3, capped at 1.0),
// a default recency of 0.8, and completeness as min(1, n/5).
func Analyze(srcs []models.NormalizedSource) models.EvidenceAnalysis {
	reliable := 0
	for _, s := range srcs {
		if isReliable(s) {
			reliable++
		}
	}

	reliability := 0.3
	if len(srcs) > 0 {
		reliability = float64(reliable)/float64(len(srcs)) + 0.3
	}
	if reliability > 1.0 {
		reliability = 1.0
	}

	completeness := float64(len(srcs)) / 5.0
	if completeness > 1.0 {
		completeness = 1.0
	}

	return models.EvidenceAnalysis{
		TotalSources:         len(srcs),
		ReliableSourcesCount: reliable,
		ReliabilityScore:     reliability,
		RecencyScore:         0.8,
		CompletenessScore:    completeness,
	}
}

func isReliable(s models.NormalizedSource) bool {
	for _, field := range []string{s.URL, s.DocumentID, s.Collection} {
		if field == "" {
			continue
		}
		lower := strings.ToLower(field)
		for _, ind := range reliabilityIndicators {
			if strings.Contains(lower, ind) {
				return true
			}
		}
	}
	return false
}

// Domains extracts the distinct host names present in the source URLs,
// in first-appearance order. Used for final-event metadata.
func Domains(srcs []models.NormalizedSource) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range srcs {
		host := hostOf(s.URL)
		if host == "" || seen[host] {
			continue
		}
		seen[host] = true
		out = append(out, host)
	}
	return out
}

func hostOf(url string) string {
	rest, ok := strings.CutPrefix(url, "https://")
	if !ok {
		rest, ok = strings.CutPrefix(url, "http://")
	}
	if !ok {
		return ""
	}
	if idx := strings.IndexAny(rest, "/?#"); idx >= 0 {
		rest = rest[:idx]
	}
	return rest
}

func stringField(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
