package sources

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conclave-ai/conclave/pkg/models"
)

func TestNormalize(t *testing.T) {
	t.Run("url string", func(t *testing.T) {
		src, ok := Normalize("https://intra.example.com/doc", 400)
		require.True(t, ok)
		assert.Equal(t, "https://intra.example.com/doc", src.URL)
		assert.Empty(t, src.Title)
	})

	t.Run("plain string becomes title", func(t *testing.T) {
		src, ok := Normalize("Employee Handbook", 400)
		require.True(t, ok)
		assert.Equal(t, "Employee Handbook", src.Title)
	})

	t.Run("empty string dropped", func(t *testing.T) {
		_, ok := Normalize("   ", 400)
		assert.False(t, ok)
	})

	t.Run("map form", func(t *testing.T) {
		src, ok := Normalize(map[string]any{
			"document_id": "doc-1",
			"title":       "Policy",
			"url":         "https://example.org/p",
			"score":       0.7,
			"snippet":     strings.Repeat("x", 500),
		}, 400)
		require.True(t, ok)
		assert.Equal(t, "doc-1", src.DocumentID)
		assert.Equal(t, 0.7, src.Score)
		assert.Len(t, src.Snippet, 400)
		assert.True(t, strings.HasSuffix(src.Snippet, "..."))
	})

	t.Run("map without identity dropped", func(t *testing.T) {
		_, ok := Normalize(map[string]any{"snippet": "text only"}, 400)
		assert.False(t, ok)
	})

	t.Run("unsupported type dropped", func(t *testing.T) {
		_, ok := Normalize(42, 400)
		assert.False(t, ok)
	})
}

func TestDedupe(t *testing.T) {
	srcs := []models.NormalizedSource{
		{URL: "https://a.example.com", Title: "first"},
		{URL: "https://a.example.com", Title: "duplicate by url"},
		{DocumentID: "doc-1"},
		{DocumentID: "doc-1", Title: "duplicate by id"},
		{Title: "unique title"},
		{Title: "unique title"},
	}

	out := Dedupe(srcs)
	require.Len(t, out, 3)
	assert.Equal(t, "first", out[0].Title, "first occurrence wins")
	assert.Equal(t, out, Dedupe(out), "dedupe is idempotent")
}

func TestTruncateSnippet(t *testing.T) {
	assert.Equal(t, "short", TruncateSnippet("short", 400))
	long := strings.Repeat("a", 450)
	got := TruncateSnippet(long, 400)
	assert.Len(t, got, 400)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestAnalyze(t *testing.T) {
	t.Run("no sources", func(t *testing.T) {
		a := Analyze(nil)
		assert.Equal(t, 0, a.TotalSources)
		assert.InDelta(t, 0.3, a.ReliabilityScore, 1e-9)
		assert.InDelta(t, 0.8, a.RecencyScore, 1e-9)
		assert.Zero(t, a.CompletenessScore)
	})

	t.Run("reliability floor and cap", func(t *testing.T) {
		all := Analyze([]models.NormalizedSource{
			{URL: "https://www.irs.gov/x"},
			{URL: "https://stanford.edu/y"},
		})
		assert.Equal(t, 2, all.ReliableSourcesCount)
		assert.InDelta(t, 1.0, all.ReliabilityScore, 1e-9, "1.0 + 0.3 caps at 1.0")

		none := Analyze([]models.NormalizedSource{{URL: "https://blog.example.com"}})
		assert.InDelta(t, 0.3, none.ReliabilityScore, 1e-9)
	})

	t.Run("indicator matches document ids and collections", func(t *testing.T) {
		a := Analyze([]models.NormalizedSource{
			{DocumentID: "intra.hr/policy-7"},
			{Collection: "wiki.engineering"},
		})
		assert.Equal(t, 2, a.ReliableSourcesCount)
	})

	t.Run("completeness saturates at five", func(t *testing.T) {
		three := Analyze(make([]models.NormalizedSource, 3))
		// Identity-less zero values still count for completeness math here;
		// callers normalize before analyzing.
		assert.InDelta(t, 0.6, three.CompletenessScore, 1e-9)

		seven := Analyze(make([]models.NormalizedSource, 7))
		assert.InDelta(t, 1.0, seven.CompletenessScore, 1e-9)
	})
}

func TestDomains(t *testing.T) {
	srcs := []models.NormalizedSource{
		{URL: "https://a.example.com/page?q=1"},
		{URL: "http://b.example.com/other"},
		{URL: "https://a.example.com/second"},
		{Title: "no url"},
	}
	assert.Equal(t, []string{"a.example.com", "b.example.com"}, Domains(srcs))
}
