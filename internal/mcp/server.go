package mcp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/binlocate/internal/config"
	"github.com/dshills/binlocate/internal/indexer"
	"github.com/dshills/binlocate/internal/launcher"
	"github.com/dshills/binlocate/internal/logging"
	"github.com/dshills/binlocate/internal/searcher"
	"github.com/dshills/binlocate/pkg/types"
)

const (
	// ServerName is the MCP server name
	ServerName = "binlocate"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
	// PluginIcon is the icon name reported to hosts
	PluginIcon = "nix-snowflake"
)

// LaunchFunc starts the binary of a resolved match and returns its pid
type LaunchFunc func(c types.Correlation, argLine string) (int, error)

// Server wraps the MCP server with one search session
type Server struct {
	mcp    *server.MCPServer
	config *config.Config
	engine *searcher.Engine
	lock   *indexer.IndexLock
	launch LaunchFunc
	logger *slog.Logger
}

// NewServer creates a server for cfg. The session state (configuration and
// correlation store) lives as long as the server.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	logger = logging.OrDiscard(logger)

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		mcp:    mcpServer,
		config: cfg,
		engine: searcher.NewEngine(cfg, searcher.WithLogger(logger)),
		lock:   &indexer.IndexLock{},
		launch: launcher.Launch,
		logger: logger,
	}

	s.registerTools()

	logger.Debug("server initialized", "index", cfg.IndexPath, "engine", cfg.Engine)
	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(_ context.Context) error {
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(searchBinariesTool(), s.handleSearchBinaries)
	s.mcp.AddTool(runMatchTool(), s.handleRunMatch)
	s.mcp.AddTool(indexStoreTool(), s.handleIndexStore)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
