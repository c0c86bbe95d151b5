package agentexec

import (
	"context"
	"fmt"
	"sync"

	"github.com/conclave-ai/conclave/pkg/models"
)

// StubToolExecutor is a scriptable in-memory executor for tests and local
// runs. Results are keyed by "agent_id/tool_name"; unscripted calls return a
// generic success echoing the query.
type StubToolExecutor struct {
	mu       sync.Mutex
	results  map[string]*models.ToolResult
	failures map[string]int
	calls    []ToolRequest
}

// NewStubToolExecutor creates an empty stub executor.
func NewStubToolExecutor() *StubToolExecutor {
	return &StubToolExecutor{
		results:  make(map[string]*models.ToolResult),
		failures: make(map[string]int),
	}
}

// Script sets the result returned for agentID/toolName.
func (s *StubToolExecutor) Script(agentID, toolName string, result *models.ToolResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[key(agentID, toolName)] = result
}

// FailTimes makes the next n calls for agentID/toolName return an error
// before any scripted result applies.
func (s *StubToolExecutor) FailTimes(agentID, toolName string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[key(agentID, toolName)] = n
}

// Calls returns a copy of every request seen, in call order.
func (s *StubToolExecutor) Calls() []ToolRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ToolRequest(nil), s.calls...)
}

// ExecuteTool implements ToolExecutor.
func (s *StubToolExecutor) ExecuteTool(ctx context.Context, req *ToolRequest) (*models.ToolResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, *req)

	k := key(req.AgentID, req.ToolName)
	if remaining := s.failures[k]; remaining > 0 {
		s.failures[k] = remaining - 1
		return nil, fmt.Errorf("stubbed failure for %s", k)
	}
	if result, ok := s.results[k]; ok {
		copied := *result
		return &copied, nil
	}
	return &models.ToolResult{
		Content:    fmt.Sprintf("stub result for %q from %s", req.Query, k),
		Confidence: 0.9,
	}, nil
}

func key(agentID, toolName string) string {
	return agentID + "/" + toolName
}
