package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/binlocate/internal/indexer"
	"github.com/dshills/binlocate/internal/launcher"
	"github.com/dshills/binlocate/internal/storage"
	"github.com/dshills/binlocate/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeStoreNotFound      = -32001 // Specified path is not a readable store directory
	ErrorCodeIndexingInProgress = -32002 // Another indexing operation is already running
	ErrorCodeNotIndexed         = -32003 // Index missing or unreadable
	ErrorCodeMatchNotFound      = -32005 // Match id was never returned by this session
)

// matchView is the wire form of a match. The id is a decimal string so
// clients keep all 64 bits.
type matchView struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	UsePango    bool   `json:"use_pango"`
	Icon        string `json:"icon,omitempty"`
	ID          string `json:"id,omitempty"`
}

func toMatchViews(matches []types.Match) []matchView {
	views := make([]matchView, 0, len(matches))
	for _, m := range matches {
		v := matchView{
			Title:       m.Title,
			Description: m.Description,
			UsePango:    m.UsePango,
			Icon:        m.Icon,
		}
		if m.ID != nil {
			v.ID = m.ID.String()
		}
		views = append(views, v)
	}
	return views
}

// handleSearchBinaries handles the search_binaries tool invocation
func (s *Server) handleSearchBinaries(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	raw, ok := args["query"].(string)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "query parameter is required", map[string]interface{}{
			"param":  "query",
			"reason": "missing or not a string",
		})
	}

	query := s.config.StripPrefix(raw)
	if query == "" {
		return mcp.NewToolResultText("[]"), nil
	}

	matches := s.engine.Search(ctx, query)
	return mcp.NewToolResultText(formatJSON(toMatchViews(matches))), nil
}

// handleRunMatch handles the run_match tool invocation
func (s *Server) handleRunMatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	rawID, ok := args["id"].(string)
	if !ok || rawID == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "id parameter is required", map[string]interface{}{
			"param":  "id",
			"reason": "missing or empty",
		})
	}

	id, err := types.ParseMatchID(rawID)
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid id", map[string]interface{}{
			"param":  "id",
			"reason": err.Error(),
		})
	}

	argLine := getStringDefault(args, "args", "")
	dryRun := getBoolDefault(args, "dry_run", false)

	corr, err := s.engine.Resolve(id)
	if err != nil {
		// Every id handed out by search_binaries is stored before it is returned
		s.logger.Error("selected match has no correlation record", "id", id, "error", err)
		return nil, newMCPError(ErrorCodeMatchNotFound, "internal error: match not found", map[string]interface{}{
			"id": rawID,
		})
	}

	cmd, err := launcher.Command(corr, argLine)
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid args", map[string]interface{}{
			"param":  "args",
			"reason": err.Error(),
		})
	}

	response := map[string]interface{}{
		"id":      rawID,
		"package": corr.PackageName,
		"attr":    corr.Attr,
		"binary":  corr.BinaryPath,
		"command": cmd.Args,
		"dry_run": dryRun,
	}

	if dryRun {
		return mcp.NewToolResultText(formatJSON(response)), nil
	}

	pid, err := s.launch(corr, argLine)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to launch binary", map[string]interface{}{
			"binary": corr.BinaryPath,
			"error":  err.Error(),
		})
	}
	s.logger.Info("launched binary", "binary", corr.BinaryPath, "pid", pid)

	response["pid"] = pid
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleIndexStore handles the index_store tool invocation
func (s *Server) handleIndexStore(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})

	storeDir := getStringDefault(args, "path", s.config.StoreDir)
	if err := validateStoreDir(storeDir); err != nil {
		return nil, newMCPError(ErrorCodeStoreNotFound, "invalid store path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	if s.lock.Held() {
		return nil, newMCPError(ErrorCodeIndexingInProgress, indexer.ErrIndexingInProgress.Error(), nil)
	}

	store, err := storage.NewSQLiteStorage(s.config.IndexPath)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to open index for writing", map[string]interface{}{
			"error": err.Error(),
		})
	}
	defer func() { _ = store.Close() }()

	idx := indexer.New(store, s.lock, s.logger)
	stats, err := idx.IndexStore(ctx, storeDir, &indexer.Config{Exclude: s.config.Exclude})
	if errors.Is(err, indexer.ErrIndexingInProgress) {
		return nil, newMCPError(ErrorCodeIndexingInProgress, err.Error(), nil)
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"indexed":          true,
		"store":            storeDir,
		"packages_indexed": stats.PackagesIndexed,
		"packages_skipped": stats.PackagesSkipped,
		"packages_failed":  stats.PackagesFailed,
		"packages_removed": stats.PackagesRemoved,
		"files_indexed":    stats.FilesIndexed,
		"duration_ms":      stats.Duration.Milliseconds(),
	}

	if len(stats.ErrorMessages) > 0 {
		// Include first few errors
		errorCount := len(stats.ErrorMessages)
		if errorCount > 5 {
			response["errors"] = stats.ErrorMessages[:5]
			response["error_count"] = errorCount
		} else {
			response["errors"] = stats.ErrorMessages
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	response := map[string]interface{}{
		"plugin": map[string]interface{}{
			"name":    ServerName,
			"icon":    PluginIcon,
			"version": ServerVersion,
		},
		"correlations": s.engine.Correlations(),
		"indexing":     s.lock.Held(),
		"config": map[string]interface{}{
			"prefix":      s.config.Prefix,
			"max_entries": s.config.MaxEntries,
			"exact_match": s.config.ExactMatch,
			"engine":      s.config.Engine,
			"index_path":  s.config.IndexPath,
			"store_dir":   s.config.StoreDir,
		},
	}

	ix, err := storage.OpenIndex(ctx, s.config.IndexPath)
	if err != nil {
		response["indexed"] = false
		response["message"] = fmt.Sprintf("Index not available (%v). Use index_store to build it.", err)
		return mcp.NewToolResultText(formatJSON(response)), nil
	}
	defer func() { _ = ix.Close() }()

	status, err := ix.Status(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeNotIndexed, "failed to get index status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	index := map[string]interface{}{
		"path":           ix.Path(),
		"schema_version": status.SchemaVersion,
		"packages":       status.PackagesCount,
		"files":          status.FilesCount,
		"size_mb":        fmt.Sprintf("%.2f", status.IndexSizeMB),
	}
	if !status.LastIndexedAt.IsZero() {
		index["last_indexed_at"] = status.LastIndexedAt.Format(time.RFC3339)
	}

	response["indexed"] = true
	response["index"] = index
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validateStoreDir checks that path is an absolute, readable directory
func validateStoreDir(path string) error {
	if path == "" {
		return ErrPathRequired
	}

	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}

	if !info.IsDir() {
		return ErrNotDirectory
	}

	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()

	return nil
}

// formatJSON formats a value as indented JSON
func formatJSON(data interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok && val != "" {
		return val
	}
	return defaultValue
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
)
