package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// searchBinariesTool returns the tool definition for search_binaries
func searchBinariesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_binaries",
		Description: "Find packages that provide a binary with the given name",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Binary name, optionally starting with the configured prefix (e.g. ':nr rg')",
				},
			},
			Required: []string{"query"},
		},
	}
}

// runMatchTool returns the tool definition for run_match
func runMatchTool() mcp.Tool {
	return mcp.Tool{
		Name:        "run_match",
		Description: "Run the binary behind a match returned by search_binaries",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id": map[string]interface{}{
					"type":        "string",
					"description": "Match id as returned by search_binaries",
				},
				"args": map[string]interface{}{
					"type":        "string",
					"description": "Arguments, split with shell quoting rules",
					"default":     "",
				},
				"dry_run": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, describe the command without running it",
					"default":     false,
				},
			},
			Required: []string{"id"},
		},
	}
}

// indexStoreTool returns the tool definition for index_store
func indexStoreTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_store",
		Description: "Rebuild the package-file index from a store directory",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path of the store directory (defaults to the configured store_dir)",
				},
			},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report plugin info, index statistics and the active configuration",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
