// Package mcp implements the Model Context Protocol (MCP) server for binlocate.
//
// The MCP server exposes four tools to launcher hosts and assistants:
//   - search_binaries: Find packages that ship a binary with a given name
//   - run_match: Run the binary behind a previously returned match
//   - index_store: Rebuild the package-file index from a store directory
//   - get_status: Report plugin info, index statistics and configuration
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// The server is started via the serve command:
//
//	binlocate serve
//
// One server is one session: the configuration is read once at startup and
// the correlation store lives until the process exits.
//
// # Tool: search_binaries
//
//	Request:
//	{
//	  "name": "search_binaries",
//	  "arguments": {"query": ":nr rg"}
//	}
//
//	Response:
//	[
//	  {
//	    "title": "ripgrep",
//	    "description": "Run `/nix/store/...-ripgrep-14.1.0/bin/rg` from `ripgrep-14.1.0` package",
//	    "use_pango": true,
//	    "id": "1311768467294899695"
//	  }
//	]
//
// The configured prefix is stripped and the rest trimmed; an empty query
// returns []. Search failures are not protocol errors: they come back as a
// single match titled with the failure category and no id.
//
// # Tool: run_match
//
//	Request:
//	{
//	  "name": "run_match",
//	  "arguments": {"id": "1311768467294899695", "args": "--files", "dry_run": false}
//	}
//
// The id must come from search_binaries in the same session. The binary is
// started detached and its pid returned; dry_run only reports the command.
//
// # Tool: index_store
//
// Walks the store directory (default: store_dir from the configuration) and
// writes the index at index_path. Only one build runs at a time.
//
// # Error Codes
//
//   - -32602: Invalid parameters
//   - -32603: Internal error (indexing or launch failed)
//   - -32001: Store path missing, relative or not a directory
//   - -32002: Indexing already in progress
//   - -32003: Index status could not be read
//   - -32005: Match id has no correlation record
package mcp
