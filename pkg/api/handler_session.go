package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/conclave-ai/conclave/pkg/session"
)

const persistTimeout = 5 * time.Second

// SessionResponse is the HTTP response for GET /api/v1/sessions/:session_id.
type SessionResponse struct {
	Session *session.Session    `json:"session"`
	Results []session.RunResult `json:"results,omitempty"`
}

// getSessionHandler handles GET /api/v1/sessions/:session_id.
func (s *Server) getSessionHandler(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session persistence is not enabled"})
		return
	}

	sessionID := c.Param("session_id")
	sess, err := s.store.Get(c.Request.Context(), sessionID)
	if errors.Is(err, session.ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	results, err := s.store.Results(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, &SessionResponse{Session: sess, Results: results})
}
