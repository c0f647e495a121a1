package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/gobwas/glob"
)

type Config struct {
	Version       int           `toml:"version"`
	Languages     []string      `toml:"languages"`
	Exclude       Exclude       `toml:"exclude"`
	Build         Build         `toml:"build"`
	Store         Store         `toml:"store"`
	Log           Log           `toml:"log"`
	Observability Observability `toml:"observability"`

	fileGlobs []glob.Glob
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"` // Glob patterns, e.g. *_test.py
}

type Build struct {
	Workers        int           `toml:"workers"`
	FileTimeout    time.Duration `toml:"file_timeout"`
	FilesPerSecond float64       `toml:"files_per_second"` // 0 disables rate limiting
	WatchDebounce  time.Duration `toml:"watch_debounce"`
}

type Store struct {
	Path string `toml:"path"`
}

type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type Observability struct {
	MetricsAddr  string `toml:"metrics_addr"` // Empty disables the metrics listener
	OTLPEndpoint string `toml:"otlp_endpoint"`
	ServiceName  string `toml:"service_name"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a ready-to-use configuration without a config file.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if len(cfg.Languages) == 0 {
		cfg.Languages = []string{"go", "javascript", "python", "typescript"}
	}
	if len(cfg.Exclude.Dirs) == 0 {
		cfg.Exclude.Dirs = []string{".git", "node_modules", "vendor", "__pycache__"}
	}
	if cfg.Build.Workers <= 0 {
		cfg.Build.Workers = runtime.NumCPU()
	}
	if cfg.Build.FileTimeout <= 0 {
		cfg.Build.FileTimeout = 10 * time.Second
	}
	if cfg.Build.WatchDebounce <= 0 {
		cfg.Build.WatchDebounce = 500 * time.Millisecond
	}
	if strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = "ccg.db"
	}
	if strings.TrimSpace(cfg.Log.Level) == "" {
		cfg.Log.Level = "info"
	}
	if strings.TrimSpace(cfg.Log.Format) == "" {
		cfg.Log.Format = "text"
	}
	if strings.TrimSpace(cfg.Observability.ServiceName) == "" {
		cfg.Observability.ServiceName = "ccg"
	}
}

func validate(cfg *Config) error {
	if err := validateVersion(cfg); err != nil {
		return err
	}
	if err := validateLanguages(cfg); err != nil {
		return err
	}
	if err := validateExclude(cfg); err != nil {
		return err
	}
	if err := validateBuild(cfg); err != nil {
		return err
	}
	return validateLog(cfg)
}

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version %d; only version 1 is supported", cfg.Version)
	}
	return nil
}

func validateLanguages(cfg *Config) error {
	known := map[string]bool{"go": true, "javascript": true, "python": true, "typescript": true}
	for _, lang := range cfg.Languages {
		if !known[strings.ToLower(strings.TrimSpace(lang))] {
			return fmt.Errorf("unknown language %q", lang)
		}
	}
	return nil
}

func validateExclude(cfg *Config) error {
	cfg.fileGlobs = cfg.fileGlobs[:0]
	for _, pattern := range cfg.Exclude.Files {
		g, err := glob.Compile(pattern)
		if err != nil {
			return fmt.Errorf("invalid exclude.files pattern %q: %w", pattern, err)
		}
		cfg.fileGlobs = append(cfg.fileGlobs, g)
	}
	return nil
}

func validateBuild(cfg *Config) error {
	if cfg.Build.Workers > 256 {
		return fmt.Errorf("build.workers %d is unreasonably large", cfg.Build.Workers)
	}
	if cfg.Build.FilesPerSecond < 0 {
		return fmt.Errorf("build.files_per_second must not be negative")
	}
	return nil
}

func validateLog(cfg *Config) error {
	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json")
	}
	return nil
}

// FileExcluded reports whether a relative path matches any exclude
// pattern. Load compiles the patterns up front; configs assembled by
// hand compile them on first use, skipping any invalid pattern.
func (c *Config) FileExcluded(path string) bool {
	if len(c.fileGlobs) != len(c.Exclude.Files) {
		c.fileGlobs = c.fileGlobs[:0]
		for _, pattern := range c.Exclude.Files {
			g, err := glob.Compile(pattern)
			if err != nil {
				continue
			}
			c.fileGlobs = append(c.fileGlobs, g)
		}
	}
	for _, g := range c.fileGlobs {
		if g.Match(path) {
			return true
		}
	}
	return false
}

// DirExcluded reports whether a directory name is on the exclude list.
func (c *Config) DirExcluded(name string) bool {
	for _, dir := range c.Exclude.Dirs {
		if name == dir {
			return true
		}
	}
	return false
}

// LanguageEnabled reports whether extraction is configured for a language.
func (c *Config) LanguageEnabled(language string) bool {
	for _, lang := range c.Languages {
		if strings.EqualFold(lang, language) {
			return true
		}
	}
	return false
}
