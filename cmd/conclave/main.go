// Conclave orchestrator server: exposes the HTTP API and runs multi-agent
// workflows against configured LLM providers and the agent tool gateway.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/conclave-ai/conclave/pkg/agentexec"
	"github.com/conclave-ai/conclave/pkg/api"
	"github.com/conclave-ai/conclave/pkg/cleanup"
	"github.com/conclave-ai/conclave/pkg/config"
	"github.com/conclave-ai/conclave/pkg/database"
	"github.com/conclave-ai/conclave/pkg/llm"
	"github.com/conclave-ai/conclave/pkg/registry"
	"github.com/conclave-ai/conclave/pkg/session"
	"github.com/conclave-ai/conclave/pkg/version"
	"github.com/conclave-ai/conclave/pkg/workflow"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	// Load .env file from config directory
	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("Could not load .env file, continuing with existing environment",
			"path", envPath, "error", err)
	} else {
		slog.Info("Loaded environment", "path", envPath)
	}

	httpHost := getEnv("HTTP_HOST", "0.0.0.0")
	httpPort, err := strconv.Atoi(getEnv("HTTP_PORT", "8080"))
	if err != nil {
		slog.Error("Invalid HTTP_PORT", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting conclave",
		"version", version.Full(),
		"http_port", httpPort,
		"config_dir", *configDir)

	ctx := context.Background()

	// 1. Initialize configuration
	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		slog.Error("Failed to initialize configuration", "error", err)
		os.Exit(1)
	}
	stats := cfg.Stats()
	slog.Info("Configuration loaded", "agents", stats.Agents, "llm_providers", stats.LLMProviders)

	// 2. Initialize database (optional; set DB_DISABLED=true for stateless runs)
	var (
		dbClient *database.Client
		store    *session.Store
	)
	if getEnv("DB_DISABLED", "false") != "true" {
		dbConfig, err := database.LoadConfigFromEnv()
		if err != nil {
			slog.Error("Failed to load database config", "error", err)
			os.Exit(1)
		}
		dbClient, err = database.NewClient(ctx, dbConfig)
		if err != nil {
			slog.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := dbClient.Close(); err != nil {
				slog.Error("Error closing database client", "error", err)
			}
		}()
		store = session.NewStore(dbClient)
		slog.Info("Connected to PostgreSQL database")
	} else {
		slog.Warn("Database disabled, sessions will not be persisted")
	}

	// 3. Session retention cleanup (only when persistence is on)
	if store != nil {
		retention := cleanup.DefaultConfig()
		if days, err := strconv.Atoi(getEnv("SESSION_RETENTION_DAYS", "")); err == nil && days > 0 {
			retention.SessionRetentionDays = days
		}
		cleanupService := cleanup.NewService(retention, store)
		cleanupService.Start(ctx)
		defer cleanupService.Stop()
	}

	// 4. LLM client over the configured providers
	llmTimeout := time.Duration(cfg.Engine.LLMCallTimeoutSeconds) * time.Second
	llmClient := llm.NewHTTPClient(cfg.LLMProviderRegistry, llmTimeout)

	// 5. Agent registry with role-filtered visibility
	agentRegistry := registry.New(cfg.AgentDirectory, cfg.LLMProviderRegistry, cfg.Engine.RegistryCacheTTL)

	// 6. Tool executor against the agent gateway
	gatewayURL := getEnv("TOOL_GATEWAY_URL", "http://localhost:9090")
	gatewayTimeout := time.Duration(cfg.Engine.ToolCallTimeoutSeconds) * time.Second
	executor := agentexec.NewHTTPExecutor(gatewayURL, gatewayTimeout)
	slog.Info("Tool gateway configured", "url", gatewayURL)

	// 7. Workflow engine
	engine := workflow.NewEngine(cfg.Engine, llmClient, agentRegistry, executor)

	// 8. HTTP server
	server := api.NewServer(engine, agentRegistry, store, dbClient)
	httpServer := server.NewHTTPServer(httpHost, httpPort)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			errCh <- err
		}
	}()

	slog.Info("Conclave started successfully")

	// 9. Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig)
	case err := <-errCh:
		slog.Error("Server error triggered shutdown", "error", err)
	}

	// 10. Graceful shutdown. In-flight runs observe context cancellation and
	// still deliver their final events before the server drains.
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}
