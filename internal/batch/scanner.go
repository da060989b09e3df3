package batch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/textscan/internal/accumulator"
	"github.com/dshills/textscan/internal/analyzer"
	"github.com/dshills/textscan/internal/ranker"
	"github.com/dshills/textscan/internal/storage"
	"github.com/dshills/textscan/pkg/types"
)

// ErrScanInProgress is returned when a directory run is already active
var ErrScanInProgress = errors.New("directory scan already in progress")

// Scanner runs one analysis over every matching file of a directory tree
type Scanner struct {
	analyzer *analyzer.Analyzer
	storage  storage.Storage
	lock     ScanLock
}

// Config contains configuration for a directory run
type Config struct {
	Mode       types.Mode
	Direction  types.SortDirection
	IgnoreCase bool
	Target     string
	Limit      int // Entries kept in the merged result (0 keeps all)

	Workers    int      // Number of concurrent workers (default: runtime.NumCPU())
	BatchSize  int      // Number of files to commit per transaction (default: 20)
	Extensions []string // File extensions to scan; empty scans every file
	NoCache    bool     // Rescan files even when a stored result exists
}

// FileResult is the outcome for one file of a run
type FileResult struct {
	Path   string
	Result *types.ScanResult
	Err    error
}

// Statistics contains statistics about a directory run
type Statistics struct {
	RunID         string
	FilesScanned  int
	FilesCached   int
	FilesFailed   int
	BytesScanned  int64
	Merged        *types.ScanResult
	Files         []FileResult
	Duration      time.Duration
	ErrorMessages []string
}

// New creates a Scanner. store may be nil, in which case nothing is recorded.
func New(a *analyzer.Analyzer, store storage.Storage) *Scanner {
	return &Scanner{
		analyzer: a,
		storage:  store,
	}
}

// Busy reports whether a directory run is in progress
func (s *Scanner) Busy() bool {
	return s.lock.Held()
}

// ScanDirectory analyzes every matching file below root and merges the
// per-file results
func (s *Scanner) ScanDirectory(ctx context.Context, root string, config *Config) (*Statistics, error) {
	if !s.lock.TryAcquire() {
		return nil, ErrScanInProgress
	}
	defer s.lock.Release()

	if config == nil {
		config = &Config{Mode: types.ModeWordFrequency}
	}
	if config.Workers <= 0 {
		config.Workers = runtime.NumCPU()
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 20
	}
	mode, err := types.ParseMode(string(config.Mode))
	if err != nil {
		return nil, err
	}
	dir, err := types.ParseSortDirection(string(config.Direction))
	if err != nil {
		return nil, err
	}

	startTime := time.Now()
	stats := &Statistics{
		RunID:         uuid.NewString(),
		ErrorMessages: make([]string, 0),
	}

	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", types.ErrSourceNotFound, root)
	}

	files, err := discoverFiles(root, config.Extensions)
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}

	req := analyzer.Request{
		Mode:       fileMode(mode),
		Direction:  dir,
		IgnoreCase: config.IgnoreCase,
		Target:     config.Target,
		RunID:      stats.RunID,
		NoCache:    config.NoCache,
	}

	results, err := s.scanFiles(ctx, files, req, config, stats)
	if err != nil {
		return nil, fmt.Errorf("failed to scan files: %w", err)
	}

	stats.Files = results
	stats.Merged = mergeResults(root, mode, dir, config, results)
	if mode.IsLookup() {
		for _, fr := range results {
			if fr.Result != nil {
				toLookup(fr.Result, mode, dir)
			}
		}
	}
	stats.Duration = time.Since(startTime)
	stats.Merged.Duration = stats.Duration
	return stats, nil
}

// discoverFiles finds the files to scan, skipping hidden directories
func discoverFiles(root string, extensions []string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			// Skip hidden directories
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() || !matchExtension(path, extensions) {
			return nil
		}

		files = append(files, path)
		return nil
	})

	return files, err
}

func matchExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, want := range extensions {
		want = strings.ToLower(strings.TrimSpace(want))
		if !strings.HasPrefix(want, ".") {
			want = "." + want
		}
		if ext == want {
			return true
		}
	}
	return false
}

// scanFiles scans files concurrently, one transaction per batch
func (s *Scanner) scanFiles(ctx context.Context, files []string, req analyzer.Request, config *Config, stats *Statistics) ([]FileResult, error) {
	// Create worker pool with semaphore
	semaphore := make(chan struct{}, config.Workers)
	results := make([]FileResult, len(files))

	var (
		scanned int32
		cached  int32
		failed  int32
		bytes   int64
	)

	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex // Protect stats.ErrorMessages

	for i := 0; i < len(files); i += config.BatchSize {
		end := i + config.BatchSize
		if end > len(files) {
			end = len(files)
		}
		start := i

		g.Go(func() error {
			return s.scanBatch(gctx, files[start:end], results[start:end], req, semaphore,
				&scanned, &cached, &failed, &bytes, &mu, stats)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats.FilesScanned = int(scanned)
	stats.FilesCached = int(cached)
	stats.FilesFailed = int(failed)
	stats.BytesScanned = bytes
	return results, nil
}

// scanBatch scans a batch of files within a transaction
func (s *Scanner) scanBatch(ctx context.Context, files []string, results []FileResult, req analyzer.Request,
	semaphore chan struct{}, scanned, cached, failed *int32, bytes *int64,
	mu *sync.Mutex, stats *Statistics) error {

	var store storage.Storage
	var tx storage.Tx
	if s.storage != nil {
		var err error
		tx, err = s.storage.BeginTx(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()
		store = tx
	}

	for i, path := range files {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case semaphore <- struct{}{}:
			// Acquire semaphore
		}

		fileReq := req
		fileReq.Path = path
		result, err := s.analyzer.AnalyzeWithStore(ctx, store, fileReq)
		<-semaphore // Release semaphore

		results[i] = FileResult{Path: path, Result: result, Err: err}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			atomic.AddInt32(failed, 1)
			mu.Lock()
			stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("%s: %v", path, err))
			mu.Unlock()
			// Continue with other files
			continue
		}

		if result.CacheHit {
			atomic.AddInt32(cached, 1)
		} else {
			atomic.AddInt32(scanned, 1)
		}
		atomic.AddInt64(bytes, result.BytesScanned)
	}

	if tx != nil {
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
	}
	return nil
}

// fileMode is the per-file analysis behind a run mode. Lookups need the
// whole table of every file to find the extremal key of the tree.
func fileMode(mode types.Mode) types.Mode {
	switch mode {
	case types.ModeMinChar, types.ModeMaxChar:
		return types.ModeCharFrequency
	case types.ModeMaxWord:
		return types.ModeWordFrequency
	default:
		return mode
	}
}

// lookupDirection is the ranking direction that puts a lookup's answer first
func lookupDirection(mode types.Mode, dir types.SortDirection) types.SortDirection {
	switch mode {
	case types.ModeMinChar:
		return types.Ascending
	case types.ModeMaxChar, types.ModeMaxWord:
		return types.Descending
	default:
		return dir
	}
}

// tableOf rebuilds a frequency table from ranked entries
func tableOf(entries []types.Entry) *accumulator.FrequencyTable[string] {
	table := accumulator.NewFrequencyTable[string]()
	for _, e := range entries {
		table.AddN(e.Key, e.Count)
	}
	return table
}

// toLookup reduces a per-file frequency result to its extremal entry
func toLookup(result *types.ScanResult, mode types.Mode, dir types.SortDirection) {
	dir = lookupDirection(mode, dir)
	top, ok := ranker.Top(tableOf(result.Entries), dir)
	result.Mode = mode
	result.Direction = dir
	result.Found = ok
	result.Entries = nil
	if ok {
		result.Entries = []types.Entry{{Rank: 1, Key: top.Key, Count: top.Count}}
	}
}

// mergeResults folds per-file results, in file order, into one result
func mergeResults(root string, mode types.Mode, dir types.SortDirection, config *Config, results []FileResult) *types.ScanResult {
	merged := &types.ScanResult{
		SourcePath: root,
		Mode:       mode,
		Direction:  lookupDirection(mode, dir),
		IgnoreCase: config.IgnoreCase,
		Target:     config.Target,
	}

	table := accumulator.NewFrequencyTable[string]()
	for _, fr := range results {
		if fr.Result == nil {
			continue
		}
		if merged.Encoding == "" {
			merged.Encoding = fr.Result.Encoding
		}
		merged.BytesScanned += fr.Result.BytesScanned
		merged.Count += fr.Result.Count
		if fr.Result.Present {
			merged.Present = true
		}
		table.Merge(tableOf(fr.Result.Entries))
	}

	switch {
	case mode.IsFrequency():
		ranked := ranker.Limit(ranker.Rank(table, dir), config.Limit)
		merged.Entries = make([]types.Entry, len(ranked))
		for i, e := range ranked {
			merged.Entries[i] = types.Entry{Rank: i + 1, Key: e.Key, Count: e.Count}
		}
		merged.Found = len(ranked) > 0

	case mode.IsLookup():
		top, ok := ranker.Top(table, merged.Direction)
		merged.Found = ok
		if ok {
			merged.Entries = []types.Entry{{Rank: 1, Key: top.Key, Count: top.Count}}
		}

	case mode == types.ModePresence:
		// Count the files holding the target
		merged.Count = 0
		for _, fr := range results {
			if fr.Result != nil && fr.Result.Present {
				merged.Count++
			}
		}
	}

	return merged
}
