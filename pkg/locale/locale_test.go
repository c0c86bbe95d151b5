package locale

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	t.Run("known language", func(t *testing.T) {
		assert.Equal(t, "Nguồn tham khảo:", Text("vietnamese", KeySourcesLabel))
		assert.Equal(t, "参考資料:", Text("japanese", KeySourcesLabel))
	})

	t.Run("case and whitespace tolerant", func(t *testing.T) {
		assert.Equal(t, Text("vietnamese", KeyGreeting), Text("  Vietnamese ", KeyGreeting))
	})

	t.Run("unknown language falls back to english", func(t *testing.T) {
		assert.Equal(t, Text("english", KeyGreeting), Text("klingon", KeyGreeting))
	})

	t.Run("unknown key returns the key", func(t *testing.T) {
		assert.Equal(t, "no_such_key", Text("english", "no_such_key"))
	})
}

func TestErrorFallbackShape(t *testing.T) {
	for _, lang := range []string{"english", "vietnamese", "japanese"} {
		msg := Text(lang, KeyErrorFallback)
		assert.Contains(t, msg, "1.", lang)
		assert.Contains(t, msg, "2.", lang)
		assert.Contains(t, msg, "3.", lang)
		assert.Equal(t, 3, strings.Count(msg, "\n"), lang)
	}
}

func TestTextf(t *testing.T) {
	assert.Equal(t, "Retrying a failed step (attempt 2)...", Textf("english", KeyTaskRetrying, 2))
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("english"))
	assert.True(t, Supported("Vietnamese"))
	assert.False(t, Supported("klingon"))
}
