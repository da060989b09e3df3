// Package mcp implements the Model Context Protocol (MCP) server for textscan.
//
// The MCP server exposes five tools to AI assistants:
//   - analyze_file: Count characters or words in one file, or look up a value
//   - count_in_text: The same analyses over inline text
//   - scan_directory: Analyze a directory tree and merge the per-file results
//   - scan_history: List recorded scans or show one with its entries
//   - get_status: Report history statistics and server health
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// The server is started by the textscan command and listens on stdin.
//
// # Analysis Parameters
//
// analyze_file, count_in_text and scan_directory share these arguments:
//
//	mode         char_frequency | word_frequency | char_count | substring_count |
//	             presence | min_char | max_char | max_word
//	direction    desc (default) | asc, frequency modes only
//	ignore_case  lowercase words before counting
//	target       the character or text looked for
//	limit        maximum ranked entries returned (default 50, 0 returns all)
//
// # Tool: analyze_file
//
//	Request:
//	{
//	  "name": "analyze_file",
//	  "arguments": {
//	    "path": "/var/log/app.log",
//	    "mode": "word_frequency",
//	    "limit": 3
//	  }
//	}
//
//	Response:
//	{
//	  "scan_id": 12,
//	  "path": "/var/log/app.log",
//	  "mode": "word_frequency",
//	  "direction": "desc",
//	  "entries": [
//	    {"rank": 1, "key": "error", "count": 412},
//	    {"rank": 2, "key": "request", "count": 398},
//	    {"rank": 3, "key": "user", "count": 120}
//	  ],
//	  "size": "1.2 MB",
//	  "cache_hit": false
//	}
//
// Results are reused while the file content hash is unchanged: first from an
// in-memory LRU cache, then from the history database. Pass "no_cache": true
// to force a rescan.
//
// # Tool: scan_directory
//
// Files are discovered by extension (hidden directories are skipped) and
// analyzed concurrently. The response carries the run id and the merged
// result; min_char, max_char and max_word are looked up on the merged table.
//
// # Error Handling
//
// Handlers return *MCPError values:
//
//	{
//	  "error": {
//	    "code": -32602,
//	    "message": "invalid mode",
//	    "data": {"param": "mode", "value": "median"}
//	  }
//	}
//
// Error codes:
//   - -32602: Invalid params (missing/invalid arguments)
//   - -32603: Internal error (database, filesystem, etc.)
//   - -32001: Source not found or unreadable
//   - -32002: Directory scan in progress
//   - -32003: Scan not found
//   - -32004: Target does not fit the mode
//
// # Logging
//
// The server itself does not log; the command logs to stderr because stdout
// is reserved for the protocol.
package mcp
