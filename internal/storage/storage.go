package storage

import (
	"context"
	"time"

	"github.com/dshills/textscan/pkg/types"
)

// Storage defines the interface for persisting scanned sources and their results
type Storage interface {
	// Source operations
	UpsertSource(ctx context.Context, source *Source) error
	GetSource(ctx context.Context, path string) (*Source, error)
	GetSourceByID(ctx context.Context, sourceID int64) (*Source, error)
	ListSources(ctx context.Context) ([]*Source, error)

	// Scan operations
	CreateScan(ctx context.Context, scan *Scan) error
	GetScan(ctx context.Context, scanID int64) (*Scan, error)
	FindScan(ctx context.Context, sourceID int64, contentHash [32]byte, mode, paramsKey string) (*Scan, error)
	ListScans(ctx context.Context, filters *ScanFilters, limit int) ([]*Scan, error)
	DeleteScansBySource(ctx context.Context, sourceID int64) (deletedCount int, err error)

	// Status operations
	GetStatus(ctx context.Context) (*Status, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}

// Source represents a file that has been scanned at least once
type Source struct {
	ID            int64
	Path          string
	ContentHash   [32]byte
	SizeBytes     int64
	ModTime       time.Time
	LastScannedAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Scan is one recorded analysis of a source
type Scan struct {
	ID          int64
	SourceID    int64
	RunID       string // Directory scan run; empty for single-file scans
	Mode        string
	ParamsKey   string // Canonical encoding of the scan parameters
	Encoding    string
	ContentHash [32]byte
	Count       uint64
	Found       bool
	Present     bool
	ResultCount int
	BytesRead   int64
	DurationMs  int64
	CreatedAt   time.Time

	// Entries are loaded by GetScan and FindScan only
	Entries []ScanEntry
}

// ScanEntry is one ranked row of a stored frequency table
type ScanEntry struct {
	Rank  int
	Key   string
	Count uint64
}

// ScanFilters narrows ListScans
type ScanFilters struct {
	SourceID    int64    // 0 matches every source
	RunID       string   // Directory scan run
	Modes       []string // Filter by analysis mode
	PathPattern string   // Glob pattern for source paths
	Since       time.Time
}

// Status contains statistics about the scan history database
type Status struct {
	SourcesCount  int
	ScansCount    int
	EntriesCount  int
	DatabaseBytes int64
	LastScannedAt time.Time
	SchemaVersion string
	Health        HealthStatus
}

// HealthStatus represents the health of the history database
type HealthStatus struct {
	DatabaseAccessible bool
	SchemaCurrent      bool
}

// ToTypesEntries converts stored entries to result entries
func (s *Scan) ToTypesEntries() []types.Entry {
	out := make([]types.Entry, len(s.Entries))
	for i, e := range s.Entries {
		out[i] = types.Entry{Rank: e.Rank, Key: e.Key, Count: e.Count}
	}
	return out
}

// FromTypesEntries converts result entries to stored entries
func FromTypesEntries(entries []types.Entry) []ScanEntry {
	out := make([]ScanEntry, len(entries))
	for i, e := range entries {
		out[i] = ScanEntry{Rank: e.Rank, Key: e.Key, Count: e.Count}
	}
	return out
}
