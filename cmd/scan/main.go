package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/wcharczuk/go-chart/v2"

	"github.com/dshills/textscan/internal/analyzer"
	"github.com/dshills/textscan/internal/batch"
	"github.com/dshills/textscan/internal/config"
	"github.com/dshills/textscan/internal/engine"
	"github.com/dshills/textscan/internal/storage"
	"github.com/dshills/textscan/pkg/types"
)

var (
	infoColor    = color.New(color.FgCyan).SprintFunc()
	successColor = color.New(color.FgGreen).SprintFunc()
	errorColor   = color.New(color.FgRed).SprintFunc()
	warnColor    = color.New(color.FgYellow).SprintFunc()
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	opts := options{}
	flag.StringVar(&opts.mode, "mode", string(types.ModeCharFrequency), "analysis mode")
	flag.StringVar(&cfg.Encoding, "encoding", cfg.Encoding, "source text encoding")
	flag.StringVar(&opts.dir, "dir", "desc", "ranking direction (asc or desc)")
	flag.IntVar(&opts.top, "top", 10, "entries to print (0 prints all)")
	flag.StringVar(&opts.target, "target", "", "character or text for char_count, substring_count and presence")
	flag.BoolVar(&opts.ignoreCase, "ignore-case", false, "lowercase words before counting")
	flag.IntVar(&cfg.WindowSize, "window", cfg.WindowSize, "bytes decoded per window")
	flag.BoolVar(&cfg.Contiguous, "contiguous", cfg.Contiguous, "carry split multi-byte characters across windows")
	flag.StringVar(&opts.chart, "chart", "", "write a bar chart of the top entries (.png or .svg)")
	flag.BoolVar(&opts.history, "history", false, "record the scan in the history database")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: scan [flags] <file or directory>\n\nModes: %s\n\nFlags:\n", strings.Join(modeList(), ", "))
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	if opts.path, err = filepath.Abs(flag.Arg(0)); err != nil {
		log.Fatalf("Invalid path: %v", err)
	}

	if err := run(context.Background(), cfg, opts); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", errorColor("Error:"), err)
		os.Exit(1)
	}
}

// options holds the command line settings that are not configuration
type options struct {
	path       string
	mode       string
	dir        string
	top        int
	target     string
	ignoreCase bool
	chart      string
	history    bool
}

// run analyzes the file or directory and prints the result. Every resource
// it opens is released before it returns.
func run(ctx context.Context, cfg *config.Config, opts options) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	eng, err := engine.New(cfg.EngineOptions())
	if err != nil {
		return err
	}

	var store storage.Storage
	if opts.history {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
			return err
		}
		sqlite, err := storage.NewSQLiteStorage(cfg.DBPath)
		if err != nil {
			return err
		}
		defer sqlite.Close()
		store = sqlite
	}

	a := analyzer.New(eng, store, analyzer.Options{CacheSize: cfg.CacheSize, UseMmap: cfg.UseMmap})

	var result *types.ScanResult
	if info, statErr := os.Stat(opts.path); statErr == nil && info.IsDir() {
		stats, err := batch.New(a, store).ScanDirectory(ctx, opts.path, &batch.Config{
			Mode:       types.Mode(opts.mode),
			Direction:  types.SortDirection(opts.dir),
			IgnoreCase: opts.ignoreCase,
			Target:     opts.target,
			Workers:    cfg.Workers,
			BatchSize:  cfg.BatchSize,
			Extensions: cfg.Extensions,
		})
		if err != nil {
			return err
		}
		fmt.Printf("%s %d scanned, %d cached, %d failed\n", infoColor("Files:"),
			stats.FilesScanned, stats.FilesCached, stats.FilesFailed)
		for _, msg := range stats.ErrorMessages {
			fmt.Printf("  %s %s\n", errorColor("✗"), msg)
		}
		result = stats.Merged
	} else {
		result, err = a.Analyze(ctx, analyzer.Request{
			Path:       opts.path,
			Mode:       types.Mode(opts.mode),
			Direction:  types.SortDirection(opts.dir),
			IgnoreCase: opts.ignoreCase,
			Target:     opts.target,
		})
		if err != nil {
			return err
		}
	}

	printResult(result, opts.top)

	if opts.chart != "" {
		if err := writeChart(opts.chart, result, opts.top); err != nil {
			return err
		}
		fmt.Printf("%s %s\n", successColor("Chart written to"), opts.chart)
	}
	return nil
}

func modeList() []string {
	names := make([]string, len(types.AllModes))
	for i, m := range types.AllModes {
		names[i] = string(m)
	}
	return names
}

// printResult writes the result as a colored table
func printResult(r *types.ScanResult, top int) {
	fmt.Printf("%s %s\n", infoColor("Source:"), r.SourcePath)
	fmt.Printf("%s %s (%s, %s)\n", infoColor("Mode:"), r.Mode, r.Encoding, humanize.Bytes(uint64(r.BytesScanned)))

	switch {
	case r.Mode.IsFrequency():
		entries := r.Entries
		if top > 0 && len(entries) > top {
			entries = entries[:top]
		}
		if len(entries) == 0 {
			fmt.Println(warnColor("No entries"))
			return
		}
		fmt.Printf("%-6s %-24s %s\n", "RANK", "KEY", "COUNT")
		for _, e := range entries {
			fmt.Printf("%-6d %-24s %s\n", e.Rank, displayKey(e.Key), successColor(humanize.Comma(int64(e.Count))))
		}
		if len(r.Entries) > len(entries) {
			fmt.Printf("%s\n", warnColor(fmt.Sprintf("... %d more", len(r.Entries)-len(entries))))
		}

	case r.Mode.IsLookup():
		e, ok := r.Top()
		if !ok {
			fmt.Println(warnColor("Source is empty"))
			return
		}
		fmt.Printf("%s %s (%s)\n", infoColor("Result:"), successColor(displayKey(e.Key)), humanize.Comma(int64(e.Count)))

	case r.Mode == types.ModePresence:
		if r.Present {
			fmt.Printf("%s %q\n", successColor("Found"), r.Target)
		} else {
			fmt.Printf("%s %q\n", warnColor("Not found"), r.Target)
		}

	default:
		fmt.Printf("%s %s\n", infoColor("Count:"), successColor(humanize.Comma(int64(r.Count))))
	}
}

// displayKey quotes keys that would not be visible in a table
func displayKey(key string) string {
	for _, r := range key {
		if !unicode.IsGraphic(r) || unicode.IsSpace(r) {
			return strconv.Quote(key)
		}
	}
	return key
}

// writeChart renders the top entries as a bar chart. The y axis starts at
// zero so a single bar or equal bars still have a range. Nothing is written
// unless rendering succeeds.
func writeChart(path string, r *types.ScanResult, top int) error {
	entries := r.Entries
	if top > 0 && len(entries) > top {
		entries = entries[:top]
	}
	if len(entries) == 0 {
		return fmt.Errorf("no entries to chart for mode %s", r.Mode)
	}

	var maxCount float64
	bars := make([]chart.Value, len(entries))
	for i, e := range entries {
		bars[i] = chart.Value{Value: float64(e.Count), Label: displayKey(e.Key)}
		maxCount = math.Max(maxCount, float64(e.Count))
	}

	graph := chart.BarChart{
		Title: fmt.Sprintf("%s: %s", r.Mode, filepath.Base(r.SourcePath)),
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		Height:   512,
		BarWidth: 40,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: math.Max(maxCount, 1)},
		},
		Bars: bars,
	}

	provider := chart.PNG
	if strings.EqualFold(filepath.Ext(path), ".svg") {
		provider = chart.SVG
	}

	var buf bytes.Buffer
	if err := graph.Render(provider, &buf); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write chart: %w", err)
	}
	return nil
}
