package agentexec

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/conclave-ai/conclave/pkg/models"
)

// HTTPExecutor runs tools against an agent gateway over HTTP. The gateway
// owns document retrieval and tool implementations; this client only carries
// the request and normalizes the response.
type HTTPExecutor struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPExecutor creates an executor for the gateway at baseURL.
func NewHTTPExecutor(baseURL string, timeout time.Duration) *HTTPExecutor {
	return &HTTPExecutor{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type executePayload struct {
	AgentID          string             `json:"agent_id"`
	ToolName         string             `json:"tool_name"`
	Query            string             `json:"query"`
	UserContext      models.UserContext `json:"user_context"`
	DetectedLanguage string             `json:"detected_language,omitempty"`
	ProviderName     string             `json:"provider_name,omitempty"`
	ModelName        string             `json:"model_name,omitempty"`
}

// ExecuteTool posts the tool invocation to the gateway's execute endpoint.
func (e *HTTPExecutor) ExecuteTool(ctx context.Context, req *ToolRequest) (*models.ToolResult, error) {
	payload := executePayload{
		AgentID:          req.AgentID,
		ToolName:         req.ToolName,
		Query:            req.Query,
		UserContext:      req.User,
		DetectedLanguage: req.DetectedLanguage,
		ProviderName:     req.Provider.ProviderName,
		ModelName:        req.Provider.ModelName,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal tool request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		e.baseURL+"/execute", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build tool request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Tenant-ID", req.User.TenantID)

	start := time.Now()
	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("tool %s/%s: %w", req.AgentID, req.ToolName, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("read tool response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tool %s/%s: gateway returned status %d",
			req.AgentID, req.ToolName, resp.StatusCode)
	}

	result := decodeToolResult(respBody)

	slog.Debug("Tool executed",
		"agent_id", req.AgentID,
		"tool", req.ToolName,
		"duration_ms", time.Since(start).Milliseconds(),
		"sources", len(result.Sources),
	)
	return result, nil
}

// decodeToolResult normalizes a 200 body into the tool contract. Bodies that
// are not a JSON object are wrapped verbatim as the content with neutral
// confidence, and non-string content values keep their JSON text form.
func decodeToolResult(body []byte) *models.ToolResult {
	var wire struct {
		Content    json.RawMessage           `json:"content"`
		Confidence float64                   `json:"confidence"`
		Sources    []models.NormalizedSource `json:"sources,omitempty"`
		Metadata   map[string]any            `json:"metadata,omitempty"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return &models.ToolResult{Content: string(body), Confidence: 0.5}
	}

	result := &models.ToolResult{
		Confidence: wire.Confidence,
		Sources:    wire.Sources,
		Metadata:   wire.Metadata,
	}
	var content string
	switch {
	case json.Unmarshal(wire.Content, &content) == nil:
		result.Content = content
	case len(wire.Content) > 0 && string(wire.Content) != "null":
		result.Content = string(wire.Content)
	}
	return result
}
