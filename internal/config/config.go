// Package config provides configuration loading and structs for kensaku.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug   bool          `yaml:"debug"`
	Index   IndexConfig   `yaml:"index"`
	Search  SearchConfig  `yaml:"search"`
	Server  ServerConfig  `yaml:"server"`
	Output  OutputConfig  `yaml:"output"`
	Archive ArchiveConfig `yaml:"archive"`
	Watch   WatchConfig   `yaml:"watch"`
}

// IndexConfig locates the index and names its metadata fields.
type IndexConfig struct {
	Path        string `yaml:"path"`
	DocnoField  string `yaml:"docno_field"`
	LengthField string `yaml:"length_field"`
	TimeField   string `yaml:"time_field"`
	// Stopwords is a file with one stopword per line. Empty disables stopping.
	Stopwords string `yaml:"stopwords"`
	// CandidateDepth caps candidates retrieved before rescoring. 0 means all matches.
	CandidateDepth int `yaml:"candidate_depth"`
	// VectorCacheSize is the number of per-field term vectors kept in memory.
	// Negative disables the cache.
	VectorCacheSize int `yaml:"vector_cache_size"`
}

// SearchConfig holds query execution settings.
type SearchConfig struct {
	// DefaultModel overrides the similarity named in the index metadata.
	DefaultModel string `yaml:"default_model"`
	DefaultLimit int    `yaml:"default_limit"`
	MaxLimit     int    `yaml:"max_limit"`
	Parallelism  int    `yaml:"parallelism"`
}

// ClampLimit applies DefaultLimit to a non-positive request and caps it at MaxLimit.
func (s SearchConfig) ClampLimit(requested int) int {
	if requested <= 0 {
		return s.DefaultLimit
	}
	if s.MaxLimit > 0 && requested > s.MaxLimit {
		return s.MaxLimit
	}
	return requested
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// OutputConfig holds run output settings.
type OutputConfig struct {
	// RunID tags TREC output lines. Empty generates one per run.
	RunID  string `yaml:"run_id"`
	Format string `yaml:"format"`
}

// ArchiveConfig holds the run archive location.
type ArchiveConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// WatchConfig holds index directory watch settings.
type WatchConfig struct {
	Enabled  *bool         `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"`
}

// EnabledOrDefault returns whether to watch the index; defaults to true when unset.
func (w *WatchConfig) EnabledOrDefault() bool {
	if w.Enabled != nil {
		return *w.Enabled
	}
	return true
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	configDir := filepath.Dir(path)
	cfg.Index.Path = expandPath(cfg.Index.Path, configDir)
	cfg.Archive.DatabasePath = expandPath(cfg.Archive.DatabasePath, configDir)
	if cfg.Index.Stopwords != "" {
		cfg.Index.Stopwords = expandPath(cfg.Index.Stopwords, configDir)
	}

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate rejects settings that defaults cannot repair.
func Validate(cfg *Config) error {
	if cfg.Search.DefaultLimit > cfg.Search.MaxLimit {
		return fmt.Errorf("search.default_limit %d exceeds search.max_limit %d", cfg.Search.DefaultLimit, cfg.Search.MaxLimit)
	}
	if cfg.Index.CandidateDepth < 0 {
		return fmt.Errorf("index.candidate_depth must not be negative")
	}
	switch cfg.Output.Format {
	case "trec", "json", "text":
	default:
		return fmt.Errorf("output.format %q is not one of trec, json, text", cfg.Output.Format)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
