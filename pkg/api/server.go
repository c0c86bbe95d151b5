// Package api exposes the workflow engine over HTTP: a streaming run
// endpoint, run cancellation, session lookup, agent discovery and health.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/conclave-ai/conclave/pkg/database"
	"github.com/conclave-ai/conclave/pkg/models"
	"github.com/conclave-ai/conclave/pkg/registry"
	"github.com/conclave-ai/conclave/pkg/session"
	"github.com/conclave-ai/conclave/pkg/workflow"
)

// Runner starts workflow runs. Satisfied by *workflow.Engine.
type Runner interface {
	Run(ctx context.Context, req *models.RunRequest) <-chan workflow.Event
}

// Server wires the HTTP handlers over the engine and its collaborators.
// Store and DB may be nil when persistence is disabled; the run endpoint
// still streams, it just skips session storage and history loading.
type Server struct {
	runner   Runner
	registry *registry.Registry
	store    *session.Store
	tracker  *session.Tracker
	db       *database.Client
}

// NewServer creates the API server.
func NewServer(runner Runner, reg *registry.Registry, store *session.Store, db *database.Client) *Server {
	return &Server{
		runner:   runner,
		registry: reg,
		store:    store,
		tracker:  session.NewTracker(),
		db:       db,
	}
}

// Router builds the gin engine with all routes and middleware registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), requestLogger())

	r.GET("/health", s.healthHandler)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/runs", s.createRunHandler)
		v1.DELETE("/runs/:session_id", s.cancelRunHandler)
		v1.GET("/sessions/:session_id", s.getSessionHandler)
		v1.GET("/agents", s.listAgentsHandler)
	}

	return r
}

// NewHTTPServer wraps the router in an http.Server with sane timeouts.
// WriteTimeout stays zero because the run endpoint holds streaming
// connections open for the lifetime of a workflow.
func (s *Server) NewHTTPServer(host string, port int) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", host, port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
