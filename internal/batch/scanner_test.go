package batch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/dshills/textscan/internal/analyzer"
	"github.com/dshills/textscan/internal/engine"
	"github.com/dshills/textscan/internal/storage"
	"github.com/dshills/textscan/pkg/types"
)

// ScannerTestSuite contains tests for directory runs
type ScannerTestSuite struct {
	suite.Suite
	storage *storage.SQLiteStorage
	scanner *Scanner
	root    string
	ctx     context.Context
}

// SetupTest runs before each test
func (s *ScannerTestSuite) SetupTest() {
	s.ctx = context.Background()

	// Create fresh in-memory storage for each test
	store, err := storage.NewSQLiteStorage(":memory:")
	s.Require().NoError(err)
	s.storage = store

	eng, err := engine.New(engine.Options{})
	s.Require().NoError(err)
	s.scanner = New(analyzer.New(eng, store, analyzer.Options{}), store)

	s.root = s.T().TempDir()
	s.write("a.txt", "apple banana apple")
	s.write("b.txt", "banana cherry")
	s.write("notes.md", "apple")
	s.write("image.bin", "apple apple apple")
	s.write(".hidden/c.txt", "apple apple apple apple")
	s.write("nested/d.txt", "cherry cherry")
}

// TearDownTest runs after each test
func (s *ScannerTestSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
}

func (s *ScannerTestSuite) write(name, content string) {
	path := filepath.Join(s.root, name)
	s.Require().NoError(os.MkdirAll(filepath.Dir(path), 0o755))
	s.Require().NoError(os.WriteFile(path, []byte(content), 0o644))
}

func (s *ScannerTestSuite) TestWordFrequency() {
	stats, err := s.scanner.ScanDirectory(s.ctx, s.root, &Config{
		Mode:       types.ModeWordFrequency,
		Extensions: []string{".txt", ".md"},
		Workers:    2,
		BatchSize:  2,
	})
	s.Require().NoError(err)

	s.NotEmpty(stats.RunID)
	s.Equal(4, stats.FilesScanned, "a.txt, b.txt, notes.md, nested/d.txt")
	s.Equal(0, stats.FilesFailed)
	s.Len(stats.Files, 4)

	// apple 3, banana 2, cherry 3: apple is seen first
	s.Equal([]types.Entry{
		{Rank: 1, Key: "apple", Count: 3},
		{Rank: 2, Key: "cherry", Count: 3},
		{Rank: 3, Key: "banana", Count: 2},
	}, stats.Merged.Entries)
	s.True(stats.Merged.Found)
	s.Equal(s.root, stats.Merged.SourcePath)

	scans, err := s.storage.ListScans(s.ctx, &storage.ScanFilters{RunID: stats.RunID}, 0)
	s.Require().NoError(err)
	s.Len(scans, 4)
}

func (s *ScannerTestSuite) TestMergedResultIsDeterministic() {
	config := func() *Config {
		return &Config{Mode: types.ModeWordFrequency, Extensions: []string{"txt"}, Workers: 4, BatchSize: 1, NoCache: true}
	}
	first, err := s.scanner.ScanDirectory(s.ctx, s.root, config())
	s.Require().NoError(err)

	for i := 0; i < 3; i++ {
		again, err := s.scanner.ScanDirectory(s.ctx, s.root, config())
		s.Require().NoError(err)
		s.Equal(first.Merged.Entries, again.Merged.Entries)
		s.NotEqual(first.RunID, again.RunID)
	}
}

func (s *ScannerTestSuite) TestSecondRunUsesHistory() {
	config := &Config{Mode: types.ModeCharFrequency, Extensions: []string{".txt"}}

	first, err := s.scanner.ScanDirectory(s.ctx, s.root, config)
	s.Require().NoError(err)
	s.Equal(3, first.FilesScanned)

	second, err := s.scanner.ScanDirectory(s.ctx, s.root, config)
	s.Require().NoError(err)
	s.Equal(0, second.FilesScanned)
	s.Equal(3, second.FilesCached)
	s.Equal(first.Merged.Entries, second.Merged.Entries)
}

func (s *ScannerTestSuite) TestSubstringCount() {
	stats, err := s.scanner.ScanDirectory(s.ctx, s.root, &Config{
		Mode:       types.ModeSubstringCount,
		Target:     "apple",
		Extensions: []string{".txt", ".md"},
	})
	s.Require().NoError(err)
	s.Equal(uint64(3), stats.Merged.Count)
}

func (s *ScannerTestSuite) TestPresenceCountsFiles() {
	stats, err := s.scanner.ScanDirectory(s.ctx, s.root, &Config{
		Mode:       types.ModePresence,
		Target:     "cherry",
		Extensions: []string{".txt"},
	})
	s.Require().NoError(err)
	s.True(stats.Merged.Present)
	s.Equal(uint64(2), stats.Merged.Count)
}

func (s *ScannerTestSuite) TestMaxWordUsesMergedTable() {
	// banana wins no single file but is the most frequent word overall
	s.write("x.txt", "banana banana kiwi kiwi kiwi")
	s.write("y.txt", "banana banana plum plum plum")

	stats, err := s.scanner.ScanDirectory(s.ctx, s.root, &Config{
		Mode:       types.ModeMaxWord,
		Extensions: []string{".txt"},
	})
	s.Require().NoError(err)
	s.Require().True(stats.Merged.Found)
	s.Equal("banana", stats.Merged.Entries[0].Key)
	s.Equal(uint64(6), stats.Merged.Entries[0].Count)

	for _, fr := range stats.Files {
		s.Require().NotNil(fr.Result)
		s.Equal(types.ModeMaxWord, fr.Result.Mode)
		s.LessOrEqual(len(fr.Result.Entries), 1)
	}
}

func (s *ScannerTestSuite) TestRejectsConcurrentRun() {
	s.Require().True(s.scanner.lock.TryAcquire())
	s.True(s.scanner.Busy())

	_, err := s.scanner.ScanDirectory(s.ctx, s.root, nil)
	s.ErrorIs(err, ErrScanInProgress)

	s.scanner.lock.Release()
	_, err = s.scanner.ScanDirectory(s.ctx, s.root, &Config{Mode: types.ModeCharCount, Target: "a"})
	s.NoError(err)
}

func (s *ScannerTestSuite) TestInvalidInput() {
	_, err := s.scanner.ScanDirectory(s.ctx, filepath.Join(s.root, "missing"), nil)
	s.ErrorIs(err, types.ErrSourceNotFound)

	_, err = s.scanner.ScanDirectory(s.ctx, s.root, &Config{Mode: "bogus"})
	s.ErrorIs(err, types.ErrUnknownMode)

	_, err = s.scanner.ScanDirectory(s.ctx, s.root, &Config{Mode: types.ModeCharFrequency, Direction: "up"})
	s.ErrorIs(err, types.ErrInvalidDirection)
}

func (s *ScannerTestSuite) TestCancelledContext() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	_, err := s.scanner.ScanDirectory(ctx, s.root, &Config{Mode: types.ModeCharFrequency})
	s.ErrorIs(err, context.Canceled)
	s.False(s.scanner.Busy(), "lock is released after a failed run")
}

func (s *ScannerTestSuite) TestWithoutStorage() {
	eng, err := engine.New(engine.Options{})
	s.Require().NoError(err)
	scanner := New(analyzer.New(eng, nil, analyzer.Options{}), nil)

	stats, err := scanner.ScanDirectory(s.ctx, s.root, &Config{
		Mode:       types.ModeCharCount,
		Target:     "a",
		Extensions: []string{".md"},
	})
	s.Require().NoError(err)
	s.Equal(1, stats.FilesScanned)
	s.Equal(uint64(1), stats.Merged.Count)
}

func TestScannerTestSuite(t *testing.T) {
	suite.Run(t, new(ScannerTestSuite))
}

func TestDiscoverFiles(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a.TXT", "b.md", ".git/config.txt", "sub/c.txt"} {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}

	files, err := discoverFiles(root, []string{".txt"})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "a.TXT"), filepath.Join(root, "sub", "c.txt")}, files)
}
