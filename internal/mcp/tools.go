package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cast"

	"github.com/dshills/textscan/internal/analyzer"
	"github.com/dshills/textscan/internal/batch"
	"github.com/dshills/textscan/internal/storage"
	"github.com/dshills/textscan/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams  = -32602 // Invalid method parameters
	ErrorCodeInternalError  = -32603 // Internal JSON-RPC error
	ErrorCodeSourceNotFound = -32001 // File or directory does not exist or is unreadable
	ErrorCodeScanInProgress = -32002 // Another directory scan is already running
	ErrorCodeScanNotFound   = -32003 // No recorded scan with the given id
	ErrorCodeInvalidTarget  = -32004 // Target does not fit the mode
)

// Limits on returned entries
const (
	DefaultLimit        = 50
	DefaultHistoryLimit = 20
	MaxLimit            = 10000
	maxReportedErrors   = 5
)

// handleAnalyzeFile handles the analyze_file tool invocation
func (s *Server) handleAnalyzeFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	// Extract and validate parameters
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, err := requiredPath(args)
	if err != nil {
		return nil, err
	}
	if err := validateFile(path); err != nil {
		return nil, newMCPError(ErrorCodeSourceNotFound, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	req, err := analysisRequest(args, "")
	if err != nil {
		return nil, err
	}
	req.Path = path
	if req.NoCache, err = getBoolDefault(args, "no_cache", false); err != nil {
		return nil, err
	}

	result, err := s.analyzer.Analyze(ctx, req)
	if err != nil {
		return nil, toolError("analysis failed", err)
	}

	return mcp.NewToolResultText(formatJSON(resultJSON(result))), nil
}

// handleCountInText handles the count_in_text tool invocation
func (s *Server) handleCountInText(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	raw, present := args["text"]
	if !present {
		return nil, newMCPError(ErrorCodeInvalidParams, "text parameter is required", map[string]interface{}{
			"param":  "text",
			"reason": "missing",
		})
	}
	text, err := cast.ToStringE(raw)
	if err != nil {
		return nil, invalidParam("text", err)
	}

	req, err := analysisRequest(args, "")
	if err != nil {
		return nil, err
	}

	result, err := s.analyzer.AnalyzeText(ctx, text, req)
	if err != nil {
		return nil, toolError("analysis failed", err)
	}

	response := resultJSON(result)
	delete(response, "path")
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleScanDirectory handles the scan_directory tool invocation
func (s *Server) handleScanDirectory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, err := requiredPath(args)
	if err != nil {
		return nil, err
	}
	if err := validateDirectory(path); err != nil {
		return nil, newMCPError(ErrorCodeSourceNotFound, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	req, err := analysisRequest(args, types.ModeWordFrequency)
	if err != nil {
		return nil, err
	}

	extensions := s.config.Extensions
	if raw, ok := args["extensions"]; ok {
		if extensions, err = cast.ToStringSliceE(raw); err != nil {
			return nil, invalidParam("extensions", err)
		}
	}
	noCache, err := getBoolDefault(args, "no_cache", false)
	if err != nil {
		return nil, err
	}
	includeFiles, err := getBoolDefault(args, "include_files", false)
	if err != nil {
		return nil, err
	}

	cfg := &batch.Config{
		Mode:       req.Mode,
		Direction:  req.Direction,
		IgnoreCase: req.IgnoreCase,
		Target:     req.Target,
		Limit:      req.Limit,
		Workers:    s.config.Workers,
		BatchSize:  s.config.BatchSize,
		Extensions: extensions,
		NoCache:    noCache,
	}

	stats, err := s.scanner.ScanDirectory(ctx, path, cfg)
	if err != nil {
		return nil, toolError("directory scan failed", err)
	}

	// Format response
	response := map[string]interface{}{
		"run_id":        stats.RunID,
		"files_scanned": stats.FilesScanned,
		"files_cached":  stats.FilesCached,
		"files_failed":  stats.FilesFailed,
		"bytes_scanned": stats.BytesScanned,
		"size":          humanize.Bytes(uint64(stats.BytesScanned)),
		"duration_ms":   stats.Duration.Milliseconds(),
		"result":        resultJSON(stats.Merged),
	}

	if includeFiles {
		files := make([]map[string]interface{}, 0, len(stats.Files))
		for _, fr := range stats.Files {
			if fr.Result == nil {
				continue
			}
			files = append(files, resultJSON(limitedCopy(fr.Result, req.Limit)))
		}
		response["files"] = files
	}

	if len(stats.ErrorMessages) > 0 {
		// Include first few errors
		errorCount := len(stats.ErrorMessages)
		if errorCount > maxReportedErrors {
			response["errors"] = stats.ErrorMessages[:maxReportedErrors]
			response["error_count"] = errorCount
		} else {
			response["errors"] = stats.ErrorMessages
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleScanHistory handles the scan_history tool invocation
func (s *Server) handleScanHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	scanID, err := getIntDefault(args, "scan_id", 0)
	if err != nil {
		return nil, err
	}
	if scanID > 0 {
		return s.scanDetail(ctx, int64(scanID))
	}

	limit, err := getIntDefault(args, "limit", DefaultHistoryLimit)
	if err != nil {
		return nil, err
	}
	if limit < 1 || limit > MaxLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("limit must be between 1 and %d", MaxLimit), map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	filters := &storage.ScanFilters{}
	if filters.RunID, err = getStringDefault(args, "run_id", ""); err != nil {
		return nil, err
	}
	if filters.PathPattern, err = getStringDefault(args, "path_pattern", ""); err != nil {
		return nil, err
	}
	if raw, ok := args["modes"]; ok {
		modes, err := cast.ToStringSliceE(raw)
		if err != nil {
			return nil, invalidParam("modes", err)
		}
		for _, m := range modes {
			mode, err := types.ParseMode(m)
			if err != nil {
				return nil, invalidParam("modes", err)
			}
			filters.Modes = append(filters.Modes, string(mode))
		}
	}
	if raw, ok := args["since"]; ok {
		if filters.Since, err = cast.ToTimeE(raw); err != nil {
			return nil, invalidParam("since", err)
		}
	}

	path, err := getStringDefault(args, "path", "")
	if err != nil {
		return nil, err
	}
	sourcePaths := make(map[int64]string)
	if path != "" {
		src, err := s.storage.GetSource(ctx, path)
		if errors.Is(err, storage.ErrNotFound) {
			// Source never scanned
			response := map[string]interface{}{
				"scanned": false,
				"path":    path,
				"scans":   []interface{}{},
				"message": "File has no recorded scans. Use analyze_file to scan it.",
			}
			return mcp.NewToolResultText(formatJSON(response)), nil
		}
		if err != nil {
			return nil, toolError("failed to get source", err)
		}
		filters.SourceID = src.ID
		sourcePaths[src.ID] = src.Path
	}

	scans, err := s.storage.ListScans(ctx, filters, limit)
	if err != nil {
		return nil, toolError("failed to list scans", err)
	}

	items := make([]map[string]interface{}, 0, len(scans))
	for _, scan := range scans {
		srcPath, err := s.sourcePath(ctx, scan.SourceID, sourcePaths)
		if err != nil {
			return nil, toolError("failed to get source", err)
		}
		items = append(items, scanJSON(scan, srcPath))
	}

	response := map[string]interface{}{
		"scans": items,
		"count": len(items),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// scanDetail returns one stored scan with its entries
func (s *Server) scanDetail(ctx context.Context, scanID int64) (*mcp.CallToolResult, error) {
	scan, err := s.storage.GetScan(ctx, scanID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, newMCPError(ErrorCodeScanNotFound, "scan not found", map[string]interface{}{
			"scan_id": scanID,
		})
	}
	if err != nil {
		return nil, toolError("failed to get scan", err)
	}

	srcPath, err := s.sourcePath(ctx, scan.SourceID, nil)
	if err != nil {
		return nil, toolError("failed to get source", err)
	}

	response := scanJSON(scan, srcPath)
	response["entries"] = entriesJSON(scan.ToTypesEntries())
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// sourcePath resolves a source id, remembering paths already seen
func (s *Server) sourcePath(ctx context.Context, sourceID int64, seen map[int64]string) (string, error) {
	if p, ok := seen[sourceID]; ok {
		return p, nil
	}
	src, err := s.storage.GetSourceByID(ctx, sourceID)
	if err != nil {
		return "", err
	}
	if seen != nil {
		seen[sourceID] = src.Path
	}
	return src.Path, nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.storage.GetStatus(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	lastScanned := "never"
	if !status.LastScannedAt.IsZero() {
		lastScanned = humanize.Time(status.LastScannedAt)
	}

	statistics := map[string]interface{}{
		"sources_count":    status.SourcesCount,
		"scans_count":      status.ScansCount,
		"entries_count":    status.EntriesCount,
		"database_size":    humanize.Bytes(uint64(status.DatabaseBytes)),
		"last_scanned":     lastScanned,
		"schema_version":   status.SchemaVersion,
		"cached_results":   s.analyzer.CacheLen(),
		"scan_in_progress": s.scanner.Busy(),
	}
	if !status.LastScannedAt.IsZero() {
		statistics["last_scanned_at"] = status.LastScannedAt.Format(time.RFC3339)
	}

	opts := s.analyzer.Engine().Options()

	// Format response
	response := map[string]interface{}{
		"statistics": statistics,
		"engine": map[string]interface{}{
			"encoding":    opts.Encoding,
			"window_size": opts.WindowSize,
			"contiguous":  opts.Contiguous,
		},
		"health": map[string]interface{}{
			"database_accessible": status.Health.DatabaseAccessible,
			"schema_current":      status.Health.SchemaCurrent,
			"build_mode":          storage.BuildMode,
			"driver":              storage.DriverName,
		},
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// analysisRequest reads the parameters shared by the analysis tools. An empty
// defaultMode makes the mode parameter required.
func analysisRequest(args map[string]interface{}, defaultMode types.Mode) (analyzer.Request, error) {
	var req analyzer.Request

	modeName, err := getStringDefault(args, "mode", string(defaultMode))
	if err != nil {
		return req, err
	}
	if modeName == "" {
		return req, newMCPError(ErrorCodeInvalidParams, "mode parameter is required", map[string]interface{}{
			"param":   "mode",
			"reason":  "missing or empty",
			"allowed": modeNames(),
		})
	}
	mode, err := types.ParseMode(modeName)
	if err != nil {
		return req, newMCPError(ErrorCodeInvalidParams, "invalid mode", map[string]interface{}{
			"param":   "mode",
			"value":   modeName,
			"allowed": modeNames(),
		})
	}

	dirName, err := getStringDefault(args, "direction", "")
	if err != nil {
		return req, err
	}
	dir, err := types.ParseSortDirection(dirName)
	if err != nil {
		return req, newMCPError(ErrorCodeInvalidParams, "invalid direction", map[string]interface{}{
			"param":   "direction",
			"value":   dirName,
			"allowed": []string{"desc", "asc"},
		})
	}

	limit, err := getIntDefault(args, "limit", DefaultLimit)
	if err != nil {
		return req, err
	}
	if limit < 0 || limit > MaxLimit {
		return req, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("limit must be between 0 and %d", MaxLimit), map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	req.Mode = mode
	req.Direction = dir
	req.Limit = limit
	if req.IgnoreCase, err = getBoolDefault(args, "ignore_case", false); err != nil {
		return req, err
	}
	if req.Target, err = getStringDefault(args, "target", ""); err != nil {
		return req, err
	}
	return req, nil
}

// resultJSON renders the fields of a result that its mode produces
func resultJSON(r *types.ScanResult) map[string]interface{} {
	out := map[string]interface{}{
		"path":          r.SourcePath,
		"mode":          r.Mode,
		"encoding":      r.Encoding,
		"bytes_scanned": r.BytesScanned,
		"size":          humanize.Bytes(uint64(r.BytesScanned)),
		"duration_ms":   r.Duration.Milliseconds(),
		"cache_hit":     r.CacheHit,
	}
	if r.ScanID > 0 {
		out["scan_id"] = r.ScanID
	}

	switch {
	case r.Mode.IsFrequency():
		out["direction"] = r.Direction
		out["entries"] = entriesJSON(r.Entries)
		if r.Mode == types.ModeWordFrequency {
			out["ignore_case"] = r.IgnoreCase
		}
	case r.Mode.IsLookup():
		out["found"] = r.Found
		if top, ok := r.Top(); ok {
			out["key"] = top.Key
			out["count"] = top.Count
		}
		if r.Mode == types.ModeMaxWord {
			out["ignore_case"] = r.IgnoreCase
		}
	case r.Mode == types.ModePresence:
		out["target"] = r.Target
		out["present"] = r.Present
		if r.Count > 0 {
			out["files_matching"] = r.Count
		}
	default:
		out["target"] = r.Target
		out["count"] = r.Count
	}
	return out
}

func entriesJSON(entries []types.Entry) []map[string]interface{} {
	out := make([]map[string]interface{}, len(entries))
	for i, e := range entries {
		out[i] = map[string]interface{}{
			"rank":  e.Rank,
			"key":   e.Key,
			"count": e.Count,
		}
	}
	return out
}

func scanJSON(scan *storage.Scan, path string) map[string]interface{} {
	out := map[string]interface{}{
		"scan_id":      scan.ID,
		"path":         path,
		"mode":         scan.Mode,
		"encoding":     scan.Encoding,
		"params":       scan.ParamsKey,
		"result_count": scan.ResultCount,
		"count":        scan.Count,
		"found":        scan.Found,
		"present":      scan.Present,
		"size":         humanize.Bytes(uint64(scan.BytesRead)),
		"duration_ms":  scan.DurationMs,
		"created_at":   scan.CreatedAt.Format(time.RFC3339),
		"age":          humanize.Time(scan.CreatedAt),
	}
	if scan.RunID != "" {
		out["run_id"] = scan.RunID
	}
	return out
}

// limitedCopy returns r truncated to limit entries without touching r
func limitedCopy(r *types.ScanResult, limit int) *types.ScanResult {
	if limit <= 0 || len(r.Entries) <= limit {
		return r
	}
	cp := *r
	cp.Entries = r.Entries[:limit]
	return &cp
}

// toolError maps a failure onto an MCP error code
func toolError(message string, err error) error {
	data := map[string]interface{}{
		"error": err.Error(),
	}
	switch {
	case errors.Is(err, batch.ErrScanInProgress):
		return newMCPError(ErrorCodeScanInProgress, "another directory scan is in progress", data)
	case errors.Is(err, types.ErrSourceNotFound), errors.Is(err, types.ErrSourceRead):
		return newMCPError(ErrorCodeSourceNotFound, message, data)
	case errors.Is(err, analyzer.ErrInvalidTarget):
		return newMCPError(ErrorCodeInvalidTarget, message, data)
	case errors.Is(err, types.ErrUnknownMode), errors.Is(err, types.ErrInvalidDirection),
		errors.Is(err, types.ErrMissingSource):
		return newMCPError(ErrorCodeInvalidParams, message, data)
	default:
		return newMCPError(ErrorCodeInternalError, message, data)
	}
}

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

func invalidParam(name string, err error) error {
	return newMCPError(ErrorCodeInvalidParams, "invalid "+name, map[string]interface{}{
		"param":  name,
		"reason": err.Error(),
	})
}

// requiredPath extracts the path parameter and checks that it is absolute
func requiredPath(args map[string]interface{}) (string, error) {
	path, err := getStringDefault(args, "path", "")
	if err != nil {
		return "", err
	}
	if path == "" {
		return "", newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}
	if !filepath.IsAbs(path) {
		return "", newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": ErrPathNotAbsolute.Error(),
		})
	}
	return path, nil
}

// validateFile checks that path is a readable regular file
func validateFile(path string) error {
	info, err := statPath(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return ErrIsDirectory
	}

	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()
	return nil
}

// validateDirectory checks that path is a readable directory
func validateDirectory(path string) error {
	info, err := statPath(path)
	if err != nil {
		return err
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

func statPath(path string) (os.FileInfo, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, ErrPathNotFound
	}
	if err != nil {
		return nil, ErrPathNotReadable
	}
	return info, nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) (bool, error) {
	val, ok := args[key]
	if !ok || val == nil {
		return defaultValue, nil
	}
	b, err := cast.ToBoolE(val)
	if err != nil {
		return false, invalidParam(key, err)
	}
	return b, nil
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) (int, error) {
	val, ok := args[key]
	if !ok || val == nil {
		return defaultValue, nil
	}
	n, err := cast.ToIntE(val)
	if err != nil {
		return 0, invalidParam(key, err)
	}
	return n, nil
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) (string, error) {
	val, ok := args[key]
	if !ok || val == nil {
		return defaultValue, nil
	}
	s, err := cast.ToStringE(val)
	if err != nil {
		return "", invalidParam(key, err)
	}
	return s, nil
}

// Validation helpers

var (
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
	ErrIsDirectory     = errors.New("path is a directory")
)
