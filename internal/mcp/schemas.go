package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/textscan/pkg/types"
)

// modeNames lists the analysis modes accepted by the tools
func modeNames() []string {
	names := make([]string, len(types.AllModes))
	for i, m := range types.AllModes {
		names[i] = string(m)
	}
	return names
}

// analysisProperties are the parameters shared by every analysis tool
func analysisProperties() map[string]interface{} {
	return map[string]interface{}{
		"mode": map[string]interface{}{
			"type":        "string",
			"description": "Analysis to run",
			"enum":        modeNames(),
		},
		"direction": map[string]interface{}{
			"type":        "string",
			"description": "Ranking order for frequency modes; ignored by min/max lookups",
			"enum":        []string{"desc", "asc"},
			"default":     "desc",
		},
		"ignore_case": map[string]interface{}{
			"type":        "boolean",
			"description": "Lowercase words before counting (word modes only)",
			"default":     false,
		},
		"target": map[string]interface{}{
			"type":        "string",
			"description": "Character for char_count, text for substring_count and presence",
		},
		"limit": map[string]interface{}{
			"type":        "integer",
			"description": "Maximum number of ranked entries to return (0 returns all)",
			"default":     DefaultLimit,
			"minimum":     0,
			"maximum":     MaxLimit,
		},
	}
}

func withProperties(base map[string]interface{}, extra map[string]interface{}) map[string]interface{} {
	for k, v := range extra {
		base[k] = v
	}
	return base
}

// analyzeFileTool returns the tool definition for analyze_file
func analyzeFileTool() mcp.Tool {
	return mcp.Tool{
		Name:        "analyze_file",
		Description: "Count characters or words in a text file, or look up a character or substring",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: withProperties(analysisProperties(), map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the file",
				},
				"no_cache": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, rescan even when an earlier result for unchanged content exists",
					"default":     false,
				},
			}),
			Required: []string{"path", "mode"},
		},
	}
}

// countInTextTool returns the tool definition for count_in_text
func countInTextTool() mcp.Tool {
	return mcp.Tool{
		Name:        "count_in_text",
		Description: "Run an analysis over text passed inline instead of a file",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: withProperties(analysisProperties(), map[string]interface{}{
				"text": map[string]interface{}{
					"type":        "string",
					"description": "Text to analyze",
				},
			}),
			Required: []string{"text", "mode"},
		},
	}
}

// scanDirectoryTool returns the tool definition for scan_directory
func scanDirectoryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "scan_directory",
		Description: "Analyze every matching file below a directory and merge the results",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: withProperties(analysisProperties(), map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the directory",
				},
				"extensions": map[string]interface{}{
					"type":        "array",
					"description": "File extensions to include (e.g. .txt, .md); defaults to the server configuration",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
				"no_cache": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, rescan every file",
					"default":     false,
				},
				"include_files": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, include the per-file results",
					"default":     false,
				},
			}),
			Required: []string{"path"},
		},
	}
}

// scanHistoryTool returns the tool definition for scan_history
func scanHistoryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "scan_history",
		Description: "List recorded scans, or show one scan with its entries",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"scan_id": map[string]interface{}{
					"type":        "integer",
					"description": "Show this scan with its stored entries",
				},
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Only scans of this file",
				},
				"run_id": map[string]interface{}{
					"type":        "string",
					"description": "Only scans of this directory run",
				},
				"modes": map[string]interface{}{
					"type":        "array",
					"description": "Only scans of these modes",
					"items": map[string]interface{}{
						"type": "string",
						"enum": modeNames(),
					},
				},
				"path_pattern": map[string]interface{}{
					"type":        "string",
					"description": "Glob pattern for source paths (e.g. '*/logs/*')",
				},
				"since": map[string]interface{}{
					"type":        "string",
					"description": "Only scans recorded at or after this RFC 3339 time",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of scans to return",
					"default":     DefaultHistoryLimit,
					"minimum":     1,
					"maximum":     MaxLimit,
				},
			},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report scan history statistics and server health",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
