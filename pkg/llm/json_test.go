package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		wantErr bool
	}{
		{
			name:    "plain json object",
			content: `{"next_action":"reflection"}`,
			want:    `{"next_action":"reflection"}`,
		},
		{
			name:    "fenced json block",
			content: "```json\n{\"is_chitchat\": true}\n```",
			want:    `{"is_chitchat": true}`,
		},
		{
			name:    "fence without language tag",
			content: "```\n[1, 2, 3]\n```",
			want:    `[1, 2, 3]`,
		},
		{
			name:    "prose around payload",
			content: "Here is the plan:\n{\"steps\": []}\nLet me know!",
			want:    `{"steps": []}`,
		},
		{
			name:    "repairable trailing comma",
			content: `{"a": 1,}`,
			want:    `{"a": 1}`,
		},
		{
			name:    "no json at all",
			content: "I cannot answer that.",
			wantErr: true,
		},
		{
			name:    "empty content",
			content: "",
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExtractJSON(tc.content)
			if tc.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrNoJSON)
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, tc.want, got)
		})
	}
}

func TestUnmarshalResponse(t *testing.T) {
	t.Run("decodes into struct", func(t *testing.T) {
		var out struct {
			IsChitchat bool   `json:"is_chitchat"`
			Language   string `json:"language"`
		}
		err := UnmarshalResponse("```json\n{\"is_chitchat\": false, \"language\": \"vietnamese\"}\n```", &out)
		require.NoError(t, err)
		assert.False(t, out.IsChitchat)
		assert.Equal(t, "vietnamese", out.Language)
	})

	t.Run("repairs single quotes", func(t *testing.T) {
		var out map[string]any
		err := UnmarshalResponse(`{'key': 'value'}`, &out)
		require.NoError(t, err)
		assert.Equal(t, "value", out["key"])
	})

	t.Run("propagates extraction failure", func(t *testing.T) {
		var out map[string]any
		err := UnmarshalResponse("no payload here", &out)
		require.ErrorIs(t, err, ErrNoJSON)
	})
}
