package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/dshills/textscan/internal/charset"
	"github.com/dshills/textscan/internal/engine"
	"github.com/dshills/textscan/internal/window"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "TEXTSCAN_"

// ErrInvalidConfig is returned by Validate
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the settings shared by the server and the CLI
type Config struct {
	DBPath     string   `yaml:"db_path"`
	Encoding   string   `yaml:"encoding"`
	WindowSize int      `yaml:"window_size"`
	Contiguous bool     `yaml:"contiguous"`
	CacheSize  int      `yaml:"cache_size"`
	Workers    int      `yaml:"workers"`
	BatchSize  int      `yaml:"batch_size"`
	UseMmap    bool     `yaml:"use_mmap"`
	Extensions []string `yaml:"extensions"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		DBPath:     defaultDBPath(),
		Encoding:   charset.DefaultEncoding,
		WindowSize: window.DefaultCapacity,
		CacheSize:  1000,
		Workers:    runtime.NumCPU(),
		BatchSize:  20,
		Extensions: []string{".txt", ".md", ".log", ".csv"},
	}
}

// defaultDBPath places the history database under the user's home directory
func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "textscan.db"
	}
	return filepath.Join(home, ".textscan", "history.db")
}

// Load reads a YAML file over the defaults
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// FromEnv builds the configuration from the defaults, the file named by
// TEXTSCAN_CONFIG if set, and TEXTSCAN_* overrides
func FromEnv() (*Config, error) {
	cfg := Default()
	if path := os.Getenv(EnvPrefix + "CONFIG"); path != "" {
		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields from TEXTSCAN_* environment variables
func (c *Config) ApplyEnv() error {
	var errs []error
	lookup := func(name string) (string, bool) {
		v, ok := os.LookupEnv(EnvPrefix + name)
		return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
	}

	if v, ok := lookup("DB_PATH"); ok {
		c.DBPath = v
	}
	if v, ok := lookup("ENCODING"); ok {
		c.Encoding = v
	}
	if v, ok := lookup("WINDOW_SIZE"); ok {
		n, err := cast.ToIntE(v)
		errs = append(errs, envError("WINDOW_SIZE", err))
		c.WindowSize = n
	}
	if v, ok := lookup("CONTIGUOUS"); ok {
		b, err := cast.ToBoolE(v)
		errs = append(errs, envError("CONTIGUOUS", err))
		c.Contiguous = b
	}
	if v, ok := lookup("CACHE_SIZE"); ok {
		n, err := cast.ToIntE(v)
		errs = append(errs, envError("CACHE_SIZE", err))
		c.CacheSize = n
	}
	if v, ok := lookup("WORKERS"); ok {
		n, err := cast.ToIntE(v)
		errs = append(errs, envError("WORKERS", err))
		c.Workers = n
	}
	if v, ok := lookup("BATCH_SIZE"); ok {
		n, err := cast.ToIntE(v)
		errs = append(errs, envError("BATCH_SIZE", err))
		c.BatchSize = n
	}
	if v, ok := lookup("USE_MMAP"); ok {
		b, err := cast.ToBoolE(v)
		errs = append(errs, envError("USE_MMAP", err))
		c.UseMmap = b
	}
	if v, ok := lookup("EXTENSIONS"); ok {
		c.Extensions = cast.ToStringSlice(strings.ReplaceAll(v, ",", " "))
	}

	return errors.Join(errs...)
}

func envError(name string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s%s: %w", ErrInvalidConfig, EnvPrefix, name, err)
}

// Validate checks the configuration and normalizes extensions
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("%w: db_path is required", ErrInvalidConfig)
	}
	if _, err := charset.Lookup(c.Encoding); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.WindowSize < 0 {
		return fmt.Errorf("%w: window_size must be >= 0", ErrInvalidConfig)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("%w: cache_size must be >= 0", ErrInvalidConfig)
	}
	if c.Workers < 0 || c.BatchSize < 0 {
		return fmt.Errorf("%w: workers and batch_size must be >= 0", ErrInvalidConfig)
	}

	for i, ext := range c.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.Extensions[i] = ext
	}
	return nil
}

// EngineOptions returns the engine settings of the configuration
func (c *Config) EngineOptions() engine.Options {
	return engine.Options{
		Encoding:   c.Encoding,
		WindowSize: c.WindowSize,
		Contiguous: c.Contiguous,
	}
}
