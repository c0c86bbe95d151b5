package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/conclave-ai/conclave/pkg/database"
	"github.com/conclave-ai/conclave/pkg/version"
)

const (
	healthStatusHealthy   = "healthy"
	healthStatusUnhealthy = "unhealthy"
)

// HealthCheck is one component's health in the health response.
type HealthCheck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is the HTTP response for GET /health.
type HealthResponse struct {
	Status  string                 `json:"status"`
	Version string                 `json:"version"`
	Checks  map[string]HealthCheck `json:"checks"`
}

// healthHandler handles GET /health. Only the service's own components are
// checked; external LLM providers are excluded so an upstream outage does not
// make the orchestrator restart this service.
func (s *Server) healthHandler(c *gin.Context) {
	reqCtx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]HealthCheck)
	status := healthStatusHealthy

	if s.db != nil {
		dbHealth, err := database.Health(reqCtx, s.db.DB())
		if err != nil {
			status = healthStatusUnhealthy
			checks["database"] = HealthCheck{Status: healthStatusUnhealthy, Message: err.Error()}
		} else {
			checks["database"] = HealthCheck{Status: dbHealth.Status}
		}
	}

	checks["runs"] = HealthCheck{
		Status:  healthStatusHealthy,
		Message: fmt.Sprintf("%d active", s.tracker.Active()),
	}

	httpStatus := http.StatusOK
	if status == healthStatusUnhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, &HealthResponse{
		Status:  status,
		Version: version.GitCommit,
		Checks:  checks,
	})
}
