package main

import (
	"os"
	"os/signal"
	"syscall"

	mcp "github.com/metoro-io/mcp-golang"
	"github.com/metoro-io/mcp-golang/transport/stdio"

	"github.com/semcache-mcp/internal/config"
	"github.com/semcache-mcp/internal/logger"
	"github.com/semcache-mcp/internal/service"
)

func main() {
	// Initialize logger
	logger := logger.New()

	// Load configuration
	cfg := config.LoadConfig()
	if err := config.LoadJSONConfig(cfg); err != nil {
		logger.Debug("Could not load JSON config file: %v", err)
	}

	logger.Info("Semantic Cache MCP Server starting...")
	logger.Info("Environment initialized - Store: %s (db %d)", cfg.Redis.Addr, cfg.Redis.DB)
	logger.Info("Environment initialized - Embedding provider: %s", cfg.Embedding.Provider)
	logger.Info("Environment initialized - Similarity threshold: %.2f", cfg.Cache.SimilarityThreshold)

	// Create the cache service. This fails fast on bad store credentials or
	// an unreachable store.
	logger.Debug("Creating semantic cache service...")
	cacheService, err := service.NewCacheMCPService(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to create cache service: %v", err)
	}
	defer func() {
		if err := cacheService.Close(); err != nil {
			logger.Error("Failed to close store connection: %v", err)
		}
	}()

	// Create MCP server with stdio transport
	logger.Debug("Creating MCP server with stdio transport...")
	transport := stdio.NewStdioServerTransport()
	server := mcp.NewServer(transport)

	// Register semantic cache tools
	logger.Debug("Registering semantic cache tools...")
	if err := cacheService.RegisterTools(server); err != nil {
		logger.Fatalf("Failed to register tools: %v", err)
	}
	logger.Debug("Tools registered successfully!")

	// Register contextual resources
	logger.Debug("Registering contextual resources...")
	if err := cacheService.RegisterResources(server); err != nil {
		logger.Fatalf("Failed to register resources: %v", err)
	}
	logger.Debug("Contextual resources registered successfully!")

	// Setup graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Start the server in a goroutine
	logger.Debug("Starting semantic cache MCP server...")
	serverErr := make(chan error, 1)
	go func() {
		if err := server.Serve(); err != nil {
			serverErr <- err
		}
	}()

	logger.Debug("MCP server is now running and waiting for connections...")

	// Wait for shutdown signal or server error
	select {
	case err := <-serverErr:
		logger.Fatalf("Server error: %v", err)
	case sig := <-shutdown:
		logger.Info("Received signal %v, shutting down gracefully...", sig)

		if err := cacheService.Close(); err != nil {
			logger.Error("Error closing store connection: %v", err)
		}

		if err := logger.Close(); err != nil {
			logger.Error("Error closing logger: %v", err)
		}

		logger.Info("Server shutdown complete")
		os.Exit(0)
	}
}
