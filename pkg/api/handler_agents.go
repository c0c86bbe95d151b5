package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/conclave-ai/conclave/pkg/models"
)

// listAgentsHandler handles GET /api/v1/agents. It returns the agents and
// tools visible to the calling user, after role and department filtering.
// The caller identifies itself through headers so the endpoint stays a GET.
func (s *Server) listAgentsHandler(c *gin.Context) {
	user := userFromHeaders(c)
	if user.UserID == "" || user.TenantID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "X-User-ID and X-Tenant-ID headers are required"})
		return
	}

	agents := s.registry.VisibleAgents(user.Normalize())
	c.JSON(http.StatusOK, gin.H{"agents": agents, "count": len(agents)})
}

func userFromHeaders(c *gin.Context) models.UserContext {
	return models.UserContext{
		UserID:       c.GetHeader("X-User-ID"),
		TenantID:     c.GetHeader("X-Tenant-ID"),
		DepartmentID: c.GetHeader("X-Department-ID"),
		Role:         models.Role(c.GetHeader("X-User-Role")),
		AccessScope:  models.AccessScope(c.GetHeader("X-Access-Scope")),
	}
}
