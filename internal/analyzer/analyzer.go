package analyzer

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/textscan/internal/charset"
	"github.com/dshills/textscan/internal/engine"
	"github.com/dshills/textscan/internal/source"
	"github.com/dshills/textscan/internal/storage"
	"github.com/dshills/textscan/pkg/types"
)

// DefaultCacheSize is the number of results kept in memory
const DefaultCacheSize = 1000

// ErrInvalidTarget is returned when a char_count target is not one character
var ErrInvalidTarget = errors.New("target must be a single character")

// Request describes one analysis of one file
type Request struct {
	Path       string
	Mode       types.Mode
	Direction  types.SortDirection // frequency modes; default desc
	IgnoreCase bool                // word modes
	Target     string              // char_count, substring_count, presence
	Limit      int                 // maximum entries returned; 0 returns all
	RunID      string              // directory scan run recorded with the scan
	NoCache    bool                // skip the cache and stored history
}

// Options configures an Analyzer
type Options struct {
	CacheSize int
	UseMmap   bool
}

// Analyzer runs engine scans over files, reusing earlier results while the
// file content is unchanged
type Analyzer struct {
	engine   *engine.Engine
	storage  storage.Storage
	encoding string
	useMmap  bool

	cache   *lru.Cache[[32]byte, *types.ScanResult]
	cacheMu sync.RWMutex
}

// New creates an Analyzer. store may be nil, in which case no history is
// read or recorded.
func New(eng *engine.Engine, store storage.Storage, opts Options) *Analyzer {
	size := opts.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[[32]byte, *types.ScanResult](size)
	if err != nil {
		// Should never happen with positive size
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}

	return &Analyzer{
		engine:   eng,
		storage:  store,
		encoding: charset.Canonical(eng.Options().Encoding),
		useMmap:  opts.UseMmap,
		cache:    cache,
	}
}

// Engine returns the engine used for scans
func (a *Analyzer) Engine() *engine.Engine {
	return a.engine
}

// Analyze analyzes one file, recording the scan in the analyzer's storage
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*types.ScanResult, error) {
	return a.AnalyzeWithStore(ctx, a.storage, req)
}

// AnalyzeWithStore analyzes one file using store for history, so a caller
// holding a transaction can pass it in. store may be nil.
func (a *Analyzer) AnalyzeWithStore(ctx context.Context, store storage.Storage, req Request) (*types.ScanResult, error) {
	startTime := time.Now()

	if err := a.validateRequest(&req); err != nil {
		return nil, fmt.Errorf("invalid analyze request: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if abs, err := filepath.Abs(req.Path); err == nil {
		req.Path = abs
	}

	fp, err := source.Hash(req.Path)
	if err != nil {
		return nil, err
	}

	paramsKey := a.ParamsKey(req)
	cacheKey := computeCacheKey(fp.Hash, req.Mode, paramsKey)

	if !req.NoCache {
		if cached, ok := a.checkCache(cacheKey); ok {
			cached.SourcePath = req.Path
			cached.CacheHit = true
			cached.Duration = time.Since(startTime)
			return limitEntries(cached, req.Limit), nil
		}

		if store != nil {
			stored, err := a.checkHistory(ctx, store, fp, req, paramsKey)
			if err != nil {
				return nil, err
			}
			if stored != nil {
				a.storeInCache(cacheKey, stored)
				stored.CacheHit = true
				stored.Duration = time.Since(startTime)
				return limitEntries(stored, req.Limit), nil
			}
		}
	}

	result, scanned, err := a.scanFile(req)
	if err != nil {
		return nil, err
	}
	result.Duration = time.Since(startTime)

	// The file changed after it was fingerprinted; key the result by the
	// content that was actually scanned.
	if scanned.Hash != fp.Hash {
		fp.Hash = scanned.Hash
		fp.Size = scanned.Size
		cacheKey = computeCacheKey(fp.Hash, req.Mode, paramsKey)
	}

	if store != nil {
		if err := a.record(ctx, store, fp, req, paramsKey, result); err != nil {
			return nil, fmt.Errorf("failed to record scan: %w", err)
		}
	}

	a.storeInCache(cacheKey, result)
	return limitEntries(result, req.Limit), nil
}

// AnalyzeText runs one analysis over in-memory text. Nothing is cached or
// recorded.
func (a *Analyzer) AnalyzeText(ctx context.Context, text string, req Request) (*types.ScanResult, error) {
	startTime := time.Now()
	if req.Path == "" {
		req.Path = "<text>"
	}
	if err := a.validateRequest(&req); err != nil {
		return nil, fmt.Errorf("invalid analyze request: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := a.run(strings.NewReader(text), req)
	if err != nil {
		return nil, err
	}
	result.Duration = time.Since(startTime)
	return limitEntries(result, req.Limit), nil
}

// ParamsKey encodes every setting that changes the outcome of a scan.
// The entry limit is applied after the fact and is not part of it.
func (a *Analyzer) ParamsKey(req Request) string {
	opts := a.engine.Options()
	return fmt.Sprintf("enc=%s;win=%d;contig=%t;dir=%s;icase=%t;target=%q",
		a.encoding, opts.WindowSize, opts.Contiguous, req.Direction, req.IgnoreCase, req.Target)
}

// CacheLen returns the number of cached results
func (a *Analyzer) CacheLen() int {
	a.cacheMu.RLock()
	defer a.cacheMu.RUnlock()
	return a.cache.Len()
}

// ClearCache drops every cached result
func (a *Analyzer) ClearCache() {
	a.cacheMu.Lock()
	a.cache.Purge()
	a.cacheMu.Unlock()
}

// validateRequest checks the request and fills in defaults
func (a *Analyzer) validateRequest(req *Request) error {
	if req.Path == "" {
		return types.ErrMissingSource
	}

	mode, err := types.ParseMode(string(req.Mode))
	if err != nil {
		return err
	}
	req.Mode = mode

	dir, err := types.ParseSortDirection(string(req.Direction))
	if err != nil {
		return err
	}
	req.Direction = dir

	switch mode {
	case types.ModeMinChar:
		req.Direction = types.Ascending
	case types.ModeMaxChar, types.ModeMaxWord:
		req.Direction = types.Descending
	}

	if mode == types.ModeCharCount && utf8.RuneCountInString(req.Target) > 1 {
		return fmt.Errorf("%w: %q", ErrInvalidTarget, req.Target)
	}
	if !mode.NeedsTarget() {
		req.Target = ""
	}
	if mode != types.ModeWordFrequency && mode != types.ModeMaxWord {
		req.IgnoreCase = false
	}
	if req.Limit < 0 {
		req.Limit = 0
	}
	return nil
}

// scanFile opens the file and runs the engine over it, hashing the bytes
// read along the way
func (a *Analyzer) scanFile(req Request) (*types.ScanResult, source.Fingerprint, error) {
	fp := source.Fingerprint{Path: req.Path}
	open := source.Open
	if a.useMmap {
		open = source.OpenMapped
	}
	f, err := open(req.Path)
	if err != nil {
		return nil, fp, err
	}
	defer func() { _ = f.Close() }()

	hr := source.NewHashingReader(f)
	result, err := a.run(hr, req)
	if err != nil {
		return nil, fp, err
	}
	if fp.Hash, fp.Size, err = hr.Sum(); err != nil {
		return nil, fp, fmt.Errorf("%w: %s: %w", types.ErrSourceRead, req.Path, err)
	}
	return result, fp, nil
}

// run performs the requested analysis over r
func (a *Analyzer) run(r io.Reader, req Request) (*types.ScanResult, error) {
	counted := &countingReader{r: r}
	result := &types.ScanResult{
		SourcePath: req.Path,
		Mode:       req.Mode,
		Encoding:   a.encoding,
		Direction:  req.Direction,
		IgnoreCase: req.IgnoreCase,
		Target:     req.Target,
	}

	switch req.Mode {
	case types.ModeCharFrequency:
		entries, err := a.engine.CountChars(counted, req.Direction)
		if err != nil {
			return nil, err
		}
		result.Entries = types.RuneEntries(entries)
		result.Found = len(entries) > 0

	case types.ModeWordFrequency:
		entries, err := a.engine.CountWords(counted, req.Direction, req.IgnoreCase)
		if err != nil {
			return nil, err
		}
		result.Entries = types.WordEntries(entries)
		result.Found = len(entries) > 0

	case types.ModeCharCount:
		if req.Target == "" {
			break
		}
		c, _ := utf8.DecodeRuneInString(req.Target)
		n, err := a.engine.CountChar(counted, c)
		if err != nil {
			return nil, err
		}
		result.Count = n

	case types.ModeSubstringCount:
		n, err := a.engine.CountSubstring(counted, req.Target)
		if err != nil {
			return nil, err
		}
		result.Count = uint64(n)

	case types.ModePresence:
		present, err := a.engine.Contains(counted, req.Target)
		if err != nil {
			return nil, err
		}
		result.Present = present

	case types.ModeMinChar, types.ModeMaxChar:
		lookup := a.engine.MaxChar
		if req.Mode == types.ModeMinChar {
			lookup = a.engine.MinChar
		}
		top, ok, err := lookup(counted)
		if err != nil {
			return nil, err
		}
		result.Found = ok
		if ok {
			result.Entries = types.RuneEntries([]types.RankedEntry[rune]{top})
		}

	case types.ModeMaxWord:
		top, ok, err := a.engine.MaxWord(counted, req.IgnoreCase)
		if err != nil {
			return nil, err
		}
		result.Found = ok
		if ok {
			result.Entries = types.WordEntries([]types.RankedEntry[string]{top})
		}

	default:
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownMode, req.Mode)
	}

	result.BytesScanned = counted.n
	return result, nil
}

// checkHistory looks for a stored scan of the same content and parameters
func (a *Analyzer) checkHistory(ctx context.Context, store storage.Storage, fp source.Fingerprint, req Request, paramsKey string) (*types.ScanResult, error) {
	src, err := store.GetSource(ctx, fp.Path)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	scan, err := store.FindScan(ctx, src.ID, fp.Hash, string(req.Mode), paramsKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &types.ScanResult{
		ScanID:       scan.ID,
		SourcePath:   req.Path,
		Mode:         req.Mode,
		Encoding:     scan.Encoding,
		Direction:    req.Direction,
		IgnoreCase:   req.IgnoreCase,
		Target:       req.Target,
		Entries:      scan.ToTypesEntries(),
		Count:        scan.Count,
		Found:        scan.Found,
		Present:      scan.Present,
		BytesScanned: scan.BytesRead,
	}, nil
}

// record stores the source and the scan
func (a *Analyzer) record(ctx context.Context, store storage.Storage, fp source.Fingerprint, req Request, paramsKey string, result *types.ScanResult) error {
	src := &storage.Source{
		Path:        fp.Path,
		ContentHash: fp.Hash,
		SizeBytes:   fp.Size,
		ModTime:     fp.ModTime,
	}
	if err := store.UpsertSource(ctx, src); err != nil {
		return err
	}

	scan := &storage.Scan{
		SourceID:    src.ID,
		RunID:       req.RunID,
		Mode:        string(req.Mode),
		ParamsKey:   paramsKey,
		Encoding:    result.Encoding,
		ContentHash: fp.Hash,
		Count:       result.Count,
		Found:       result.Found,
		Present:     result.Present,
		BytesRead:   result.BytesScanned,
		DurationMs:  result.Duration.Milliseconds(),
		Entries:     storage.FromTypesEntries(result.Entries),
	}
	if err := store.CreateScan(ctx, scan); err != nil {
		return err
	}
	result.ScanID = scan.ID
	return nil
}

// checkCache returns a copy of a cached result
func (a *Analyzer) checkCache(key [32]byte) (*types.ScanResult, bool) {
	a.cacheMu.RLock()
	defer a.cacheMu.RUnlock()

	cached, ok := a.cache.Get(key)
	if !ok {
		return nil, false
	}
	return copyResult(cached), true
}

// storeInCache stores a copy of result
func (a *Analyzer) storeInCache(key [32]byte, result *types.ScanResult) {
	a.cacheMu.Lock()
	a.cache.Add(key, copyResult(result))
	a.cacheMu.Unlock()
}

// computeCacheKey hashes the content hash together with the scan parameters
func computeCacheKey(contentHash [32]byte, mode types.Mode, paramsKey string) [32]byte {
	h := sha256.New()
	h.Write(contentHash[:])
	h.Write([]byte(mode))
	h.Write([]byte{0})
	h.Write([]byte(paramsKey))

	var key [32]byte
	copy(key[:], h.Sum(nil))
	return key
}

// copyResult creates a deep copy of a ScanResult
func copyResult(src *types.ScanResult) *types.ScanResult {
	if src == nil {
		return nil
	}
	dst := *src
	if src.Entries != nil {
		dst.Entries = make([]types.Entry, len(src.Entries))
		copy(dst.Entries, src.Entries)
	}
	return &dst
}

// limitEntries truncates the entries of result to limit
func limitEntries(result *types.ScanResult, limit int) *types.ScanResult {
	if limit > 0 && len(result.Entries) > limit {
		result.Entries = result.Entries[:limit]
	}
	return result
}

// countingReader counts the bytes handed to the engine
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
