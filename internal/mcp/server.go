package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/textscan/internal/analyzer"
	"github.com/dshills/textscan/internal/batch"
	"github.com/dshills/textscan/internal/config"
	"github.com/dshills/textscan/internal/engine"
	"github.com/dshills/textscan/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "textscan"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
	// memoryDB keeps the history in memory only
	memoryDB = ":memory:"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	config   *config.Config
	storage  storage.Storage
	analyzer *analyzer.Analyzer
	scanner  *batch.Scanner
}

// NewServer creates a new MCP server instance. A nil config uses config.Default.
func NewServer(cfg *config.Config) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.DBPath != memoryDB {
		// Create directory if it doesn't exist
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Initialize storage
	store, err := storage.NewSQLiteStorage(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	s, err := newServer(cfg, store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return s, nil
}

// newServer wires the engine, analyzer and directory scanner around store
func newServer(cfg *config.Config, store storage.Storage) (*Server, error) {
	eng, err := engine.New(cfg.EngineOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize engine: %w", err)
	}

	a := analyzer.New(eng, store, analyzer.Options{
		CacheSize: cfg.CacheSize,
		UseMmap:   cfg.UseMmap,
	})

	// Create MCP server
	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		mcp:      mcpServer,
		config:   cfg,
		storage:  store,
		analyzer: a,
		scanner:  batch.New(a, store),
	}

	// Register tools
	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.storage.Close() }()

	stdio := server.NewStdioServer(s.mcp)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// Close releases the history database
func (s *Server) Close() error {
	return s.storage.Close()
}

// registerTools registers all MCP tools
func (s *Server) registerTools() error {
	s.mcp.AddTool(analyzeFileTool(), s.handleAnalyzeFile)
	s.mcp.AddTool(countInTextTool(), s.handleCountInText)
	s.mcp.AddTool(scanDirectoryTool(), s.handleScanDirectory)
	s.mcp.AddTool(scanHistoryTool(), s.handleScanHistory)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)

	return nil
}
