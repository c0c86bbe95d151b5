package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ErrNoJSON indicates the model output contained nothing parseable as JSON.
var ErrNoJSON = errors.New("no json object found in llm output")

// ExtractJSON pulls the JSON payload out of raw model output. Markdown code
// fences are stripped and, when the content still fails to parse, a repair
// pass fixes the common LLM malformations (trailing commas, single quotes,
// unquoted keys).
func ExtractJSON(content string) (string, error) {
	candidate := stripFences(content)
	if candidate == "" {
		return "", ErrNoJSON
	}

	if json.Valid([]byte(candidate)) {
		return candidate, nil
	}

	repaired, err := jsonrepair.JSONRepair(candidate)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoJSON, err)
	}
	return repaired, nil
}

// UnmarshalResponse extracts and decodes the JSON payload of a model
// response into out.
func UnmarshalResponse(content string, out any) error {
	payload, err := ExtractJSON(content)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return fmt.Errorf("failed to decode llm json: %w", err)
	}
	return nil
}

// stripFences removes surrounding markdown code fences and trims to the
// outermost JSON value when the model wrapped it in prose.
func stripFences(content string) string {
	s := strings.TrimSpace(content)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	// Models sometimes preface the payload with prose. Trim to the first
	// opening brace/bracket and the matching last closer.
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return ""
	}
	var end int
	if s[start] == '{' {
		end = strings.LastIndex(s, "}")
	} else {
		end = strings.LastIndex(s, "]")
	}
	if end <= start {
		return ""
	}
	return s[start : end+1]
}
