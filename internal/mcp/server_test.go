package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/binlocate/internal/config"
	"github.com/dshills/binlocate/internal/storage"
	"github.com/dshills/binlocate/pkg/types"
)

// testStore creates a store directory holding pkg-foo (bin/foo) and
// pkg-foobar (bin/foobar)
func testStore(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	for i, name := range []string{"pkg-foo-1.0", "pkg-foobar-2.0"} {
		bin := filepath.Join(dir, fmt.Sprintf("%032d-%s", i+1, name), "bin")
		require.NoError(t, os.MkdirAll(bin, 0755))
		exe := "foo"
		if i == 1 {
			exe = "foobar"
		}
		require.NoError(t, os.WriteFile(filepath.Join(bin, exe), []byte("#!/bin/sh\n"), 0755))
	}
	return dir
}

func newTestServer(t *testing.T, storeDir string) *Server {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.IndexPath = filepath.Join(t.TempDir(), "index", "index.db")
	cfg.StoreDir = storeDir
	cfg.ExactMatch = false

	s, err := NewServer(cfg, nil)
	require.NoError(t, err)
	return s
}

func callRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", result.Content[0])
	return text.Text
}

func decodeMap(t *testing.T, result *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &out))
	return out
}

func requireMCPError(t *testing.T, err error, code int) *MCPError {
	t.Helper()
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, code, mcpErr.Code)
	return mcpErr
}

// indexTestStore builds the index through the index_store tool
func indexTestStore(t *testing.T, s *Server) map[string]interface{} {
	t.Helper()
	result, err := s.handleIndexStore(context.Background(), callRequest("index_store", nil))
	require.NoError(t, err)
	return decodeMap(t, result)
}

func search(t *testing.T, s *Server, query string) []matchView {
	t.Helper()
	result, err := s.handleSearchBinaries(context.Background(),
		callRequest("search_binaries", map[string]interface{}{"query": query}))
	require.NoError(t, err)

	var matches []matchView
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &matches))
	return matches
}

func TestNewServer(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		s := newTestServer(t, t.TempDir())

		assert.NotNil(t, s.mcp)
		assert.NotNil(t, s.engine)
		assert.NotNil(t, s.lock)
		assert.NotNil(t, s.launch)
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Engine = "carrier-pigeon"

		_, err := NewServer(cfg, nil)
		assert.Error(t, err)
	})
}

func TestIndexStore(t *testing.T) {
	s := newTestServer(t, testStore(t))

	response := indexTestStore(t, s)

	assert.Equal(t, true, response["indexed"])
	assert.Equal(t, float64(2), response["packages_indexed"])
	assert.Equal(t, float64(0), response["packages_failed"])
	assert.False(t, s.lock.Held())
}

func TestIndexStore_InvalidPath(t *testing.T) {
	s := newTestServer(t, testStore(t))

	tests := []struct {
		name string
		path string
	}{
		{"relative", "relative/store"},
		{"missing", filepath.Join(t.TempDir(), "missing")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.handleIndexStore(context.Background(),
				callRequest("index_store", map[string]interface{}{"path": tt.path}))
			requireMCPError(t, err, ErrorCodeStoreNotFound)
		})
	}
}

func TestIndexStore_InProgress(t *testing.T) {
	s := newTestServer(t, testStore(t))
	require.True(t, s.lock.TryAcquire())
	defer s.lock.Release()

	_, err := s.handleIndexStore(context.Background(), callRequest("index_store", nil))

	requireMCPError(t, err, ErrorCodeIndexingInProgress)
}

func TestSearchBinaries(t *testing.T) {
	s := newTestServer(t, testStore(t))
	indexTestStore(t, s)

	matches := search(t, s, ":nr foo")

	require.Len(t, matches, 2)
	assert.ElementsMatch(t, []string{"pkg-foo", "pkg-foobar"}, []string{matches[0].Title, matches[1].Title})
	for _, m := range matches {
		assert.True(t, m.UsePango)
		assert.NotEmpty(t, m.ID)
		assert.Contains(t, m.Description, "/bin/")
	}
}

func TestSearchBinaries_ExactMatch(t *testing.T) {
	s := newTestServer(t, testStore(t))
	s.config.ExactMatch = true
	indexTestStore(t, s)

	matches := search(t, s, "foo")

	require.Len(t, matches, 1)
	assert.Equal(t, "pkg-foo", matches[0].Title)
}

func TestSearchBinaries_EmptyQuery(t *testing.T) {
	s := newTestServer(t, testStore(t))

	for _, query := range []string{"", "   ", ":nr", ":nr   "} {
		assert.Empty(t, search(t, s, query), "query %q", query)
	}
	assert.Zero(t, s.engine.Correlations())
}

func TestSearchBinaries_MissingIndex(t *testing.T) {
	s := newTestServer(t, testStore(t))

	matches := search(t, s, "foo")

	require.Len(t, matches, 1)
	assert.Equal(t, "Index unavailable", matches[0].Title)
	assert.Contains(t, matches[0].Description, s.config.IndexPath)
	assert.Empty(t, matches[0].ID)
}

func TestSearchBinaries_MissingQuery(t *testing.T) {
	s := newTestServer(t, testStore(t))

	_, err := s.handleSearchBinaries(context.Background(), callRequest("search_binaries", map[string]interface{}{}))

	requireMCPError(t, err, ErrorCodeInvalidParams)
}

func TestRunMatch_DryRun(t *testing.T) {
	s := newTestServer(t, testStore(t))
	s.config.ExactMatch = true
	indexTestStore(t, s)

	matches := search(t, s, "foo")
	require.Len(t, matches, 1)

	result, err := s.handleRunMatch(context.Background(), callRequest("run_match", map[string]interface{}{
		"id":      matches[0].ID,
		"args":    `--flag "two words"`,
		"dry_run": true,
	}))
	require.NoError(t, err)

	response := decodeMap(t, result)
	binary, _ := response["binary"].(string)
	assert.True(t, filepath.IsAbs(binary))
	assert.Equal(t, "foo", filepath.Base(binary))
	assert.Equal(t, "pkg-foo-1.0", response["package"])
	assert.Equal(t, []interface{}{binary, "--flag", "two words"}, response["command"])
	assert.NotContains(t, response, "pid")
}

func TestRunMatch_Launch(t *testing.T) {
	s := newTestServer(t, testStore(t))
	s.config.ExactMatch = true
	indexTestStore(t, s)

	var launched types.Correlation
	var launchedArgs string
	s.launch = func(c types.Correlation, argLine string) (int, error) {
		launched = c
		launchedArgs = argLine
		return 4242, nil
	}

	matches := search(t, s, "foo")
	require.Len(t, matches, 1)

	result, err := s.handleRunMatch(context.Background(), callRequest("run_match", map[string]interface{}{
		"id":   matches[0].ID,
		"args": "-v",
	}))
	require.NoError(t, err)

	response := decodeMap(t, result)
	assert.Equal(t, float64(4242), response["pid"])
	assert.Equal(t, "foo", launched.BinaryName)
	assert.Equal(t, "-v", launchedArgs)
}

func TestRunMatch_Errors(t *testing.T) {
	s := newTestServer(t, testStore(t))

	tests := []struct {
		name string
		args map[string]interface{}
		code int
	}{
		{"missing id", map[string]interface{}{}, ErrorCodeInvalidParams},
		{"malformed id", map[string]interface{}{"id": "not-a-number"}, ErrorCodeInvalidParams},
		{"unknown id", map[string]interface{}{"id": types.NewMatchID("never-returned").String()}, ErrorCodeMatchNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.handleRunMatch(context.Background(), callRequest("run_match", tt.args))
			requireMCPError(t, err, tt.code)
		})
	}
}

func TestGetStatus(t *testing.T) {
	s := newTestServer(t, testStore(t))

	t.Run("before indexing", func(t *testing.T) {
		result, err := s.handleGetStatus(context.Background(), callRequest("get_status", nil))
		require.NoError(t, err)

		response := decodeMap(t, result)
		assert.Equal(t, false, response["indexed"])
		assert.Contains(t, response["message"], "index_store")
	})

	t.Run("after indexing and searching", func(t *testing.T) {
		indexTestStore(t, s)
		search(t, s, "foo")

		result, err := s.handleGetStatus(context.Background(), callRequest("get_status", nil))
		require.NoError(t, err)

		response := decodeMap(t, result)
		assert.Equal(t, true, response["indexed"])
		assert.Equal(t, float64(2), response["correlations"])

		plugin, ok := response["plugin"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, ServerName, plugin["name"])
		assert.Equal(t, PluginIcon, plugin["icon"])

		index, ok := response["index"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, float64(2), index["packages"])
		assert.Equal(t, storage.CurrentSchemaVersion, index["schema_version"])
	})
}
