package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/conclave-ai/conclave/pkg/models"
)

// CreateRunRequest is the HTTP request body for POST /api/v1/runs.
type CreateRunRequest struct {
	SessionID             string               `json:"session_id,omitempty"`
	Query                 string               `json:"query"`
	Messages              []models.ChatMessage `json:"messages,omitempty"`
	UserContext           models.UserContext   `json:"user_context"`
	TenantTimezone        string               `json:"tenant_timezone,omitempty"`
	TenantCurrentDatetime string               `json:"tenant_current_datetime,omitempty"`
}

// historyWindow is how many stored conversation turns are replayed into a run
// when the caller does not supply history explicitly.
const historyWindow = 10

// createRunHandler handles POST /api/v1/runs. It starts a workflow run and
// streams its progress events over SSE, terminated by exactly one final event.
func (s *Server) createRunHandler(c *gin.Context) {
	var req CreateRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}
	if req.UserContext.UserID == "" || req.UserContext.TenantID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_context.user_id and user_context.tenant_id are required"})
		return
	}

	runCtx, cancel := context.WithCancel(c.Request.Context())
	sessionID := s.tracker.Register(req.SessionID, cancel)
	defer func() {
		s.tracker.Remove(sessionID)
		cancel()
	}()

	history := req.Messages
	if s.store != nil {
		if err := s.store.EnsureSession(runCtx, sessionID, req.UserContext); err != nil {
			slog.Warn("Failed to persist session", "session_id", sessionID, "error", err)
		} else if len(history) == 0 {
			stored, err := s.store.History(runCtx, sessionID, historyWindow)
			if err != nil {
				slog.Warn("Failed to load session history", "session_id", sessionID, "error", err)
			} else {
				history = stored
			}
		}
	}

	events := s.runner.Run(runCtx, &models.RunRequest{
		Query:                 req.Query,
		Messages:              history,
		UserContext:           req.UserContext,
		TenantTimezone:        req.TenantTimezone,
		TenantCurrentDatetime: req.TenantCurrentDatetime,
	})

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)

	flusher, canFlush := c.Writer.(http.Flusher)
	writeEvent := func(name string, payload any) {
		data, err := json.Marshal(payload)
		if err != nil {
			slog.Error("Failed to serialize event", "event", name, "error", err)
			return
		}
		if _, err := fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", name, data); err != nil {
			return
		}
		if canFlush {
			flusher.Flush()
		}
	}

	writeEvent("session", gin.H{"session_id": sessionID})

	// The engine closes the stream after exactly one final event, so draining
	// to channel close always observes it, even when the client went away.
	for ev := range events {
		switch {
		case ev.Progress != nil:
			writeEvent("progress", ev.Progress)
		case ev.Final != nil:
			writeEvent("final", ev.Final)
			s.persistResult(sessionID, req.Query, ev.Final)
		}
	}
}

// persistResult writes the run outcome best effort. The response already
// reached the caller, so store failures are logged, not surfaced.
func (s *Server) persistResult(sessionID, query string, final *models.FinalEvent) {
	if s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.store.SaveResult(ctx, sessionID, query, final); err != nil {
		slog.Warn("Failed to persist run result", "session_id", sessionID, "error", err)
	}
}

// cancelRunHandler handles DELETE /api/v1/runs/:session_id. Cancelling an
// active run interrupts it; completed task results are preserved and the
// run's event stream still receives its final event.
func (s *Server) cancelRunHandler(c *gin.Context) {
	sessionID := c.Param("session_id")
	if err := s.tracker.Cancel(sessionID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active run for session"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"session_id": sessionID, "status": "cancelling"})
}
