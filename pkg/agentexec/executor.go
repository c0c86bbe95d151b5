// Package agentexec defines the engine's boundary to agent tool execution.
// The engine treats a tool call as opaque: query in, content + confidence +
// sources out.
package agentexec

import (
	"context"

	"github.com/conclave-ai/conclave/pkg/models"
)

// ToolRequest carries everything an executor needs for one tool invocation.
type ToolRequest struct {
	AgentID          string
	ToolName         string
	Query            string
	User             models.UserContext
	DetectedLanguage string
	Provider         models.ProviderDescriptor
}

// ToolExecutor runs a single agent tool. Implementations own transport,
// authentication, and provider usage; the engine only sequences calls and
// handles retries.
type ToolExecutor interface {
	ExecuteTool(ctx context.Context, req *ToolRequest) (*models.ToolResult, error)
}

// ToolExecutorFunc adapts a function to the ToolExecutor interface.
type ToolExecutorFunc func(ctx context.Context, req *ToolRequest) (*models.ToolResult, error)

// ExecuteTool calls f.
func (f ToolExecutorFunc) ExecuteTool(ctx context.Context, req *ToolRequest) (*models.ToolResult, error) {
	return f(ctx, req)
}
