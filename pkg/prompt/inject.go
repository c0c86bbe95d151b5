package prompt

import (
	"fmt"
	"strings"
)

// Markers for the context blocks appended to tool messages. The datetime
// marker doubles as an idempotency check.
const (
	chainContextMarker    = "CONTEXT FROM PREVIOUS TOOLS"
	retryContextMarker    = "PREVIOUS ATTEMPT ERROR DETAILS"
	datetimeContextMarker = "TENANT DATETIME CONTEXT"
)

// AppendChainContext suffixes a tool message with the outputs of the tools
// that ran before it in the same task. outputs is ordered tool name → content
// pairs; empty outputs return the message unchanged.
func AppendChainContext(message string, outputs []ChainOutput) string {
	if len(outputs) == 0 {
		return message
	}

	var sb strings.Builder
	sb.WriteString(message)
	sb.WriteString("\n\n=== " + chainContextMarker + " ===\n")
	for _, o := range outputs {
		fmt.Fprintf(&sb, "--- Output of %s ---\n%s\n", o.Tool, o.Content)
	}
	sb.WriteString("Build on these findings. Do not repeat them.")
	return sb.String()
}

// ChainOutput is one prior tool's output within a task.
type ChainOutput struct {
	Tool    string
	Content string
}

// AppendRetryContext suffixes a tool message with the last attempt's error so
// the retried call can adjust its approach.
func AppendRetryContext(message, lastError string) string {
	if lastError == "" {
		return message
	}
	var sb strings.Builder
	sb.WriteString(message)
	sb.WriteString("\n\n=== " + retryContextMarker + " ===\n")
	sb.WriteString(lastError)
	sb.WriteString("\nThe previous attempt failed with the error above. Adjust your approach and try again.")
	return sb.String()
}

// InjectDatetimeContext appends the tenant timezone and current tenant-local
// datetime to a tool message so relative expressions resolve correctly.
// Idempotent: a message already carrying the block is returned unchanged.
func InjectDatetimeContext(message, timezone, datetime string) string {
	if strings.Contains(message, datetimeContextMarker) {
		return message
	}
	var sb strings.Builder
	sb.WriteString(message)
	sb.WriteString("\n\n=== " + datetimeContextMarker + " ===\n")
	sb.WriteString("Timezone: " + timezone + "\n")
	sb.WriteString("Current datetime: " + datetime + "\n")
	sb.WriteString("Interpret relative date expressions against this datetime.")
	return sb.String()
}

// HasDatetimeContext reports whether a message already carries the datetime
// block.
func HasDatetimeContext(message string) bool {
	return strings.Contains(message, datetimeContextMarker)
}
