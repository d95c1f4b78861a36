// Package config provides configuration loading and structs for the shiori site search tool.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug   bool          `yaml:"debug" toml:"debug"`
	Site    SiteConfig    `yaml:"site" toml:"site"`
	Search  SearchConfig  `yaml:"search" toml:"search"`
	Server  ServerConfig  `yaml:"server" toml:"server"`
	Storage StorageConfig `yaml:"storage" toml:"storage"`
	Watch   WatchConfig   `yaml:"watch" toml:"watch"`
}

// SiteConfig locates page records and build output.
type SiteConfig struct {
	ContentDir  string   `yaml:"content_dir" toml:"content_dir"`
	OutputDir   string   `yaml:"output_dir" toml:"output_dir"`
	DefaultLang string   `yaml:"default_lang" toml:"default_lang"`
	Languages   []string `yaml:"languages,omitempty" toml:"languages,omitempty"`
}

// Page error policies.
const (
	OnPageErrorAbort = "abort"
	OnPageErrorSkip  = "skip"
)

// Index engines.
const (
	EngineSimple = "simple"
	EngineBleve  = "bleve"
)

// SearchConfig holds index build and query settings.
type SearchConfig struct {
	Enabled     *bool    `yaml:"enabled,omitempty" toml:"enabled,omitempty"`
	Engine      string   `yaml:"engine" toml:"engine"`
	IndexFields []string `yaml:"index_fields,omitempty" toml:"index_fields,omitempty"`
	ChunkSize   int64    `yaml:"chunk_size" toml:"chunk_size"`
	ChunkPrefix string   `yaml:"chunk_prefix" toml:"chunk_prefix"`
	// MemoryBudget is the indexing memory budget in bytes. Informational: pages are
	// committed in one batch regardless.
	MemoryBudget      int64  `yaml:"memory_budget" toml:"memory_budget"`
	SimpleIndexName   string `yaml:"simple_index_name" toml:"simple_index_name"`
	SimpleMaxSize     int    `yaml:"simple_max_size" toml:"simple_max_size"`
	OnPageError       string `yaml:"on_page_error" toml:"on_page_error"`
	AutoChunkOversize bool   `yaml:"auto_chunk_oversize" toml:"auto_chunk_oversize"`
	DefaultLimit      int    `yaml:"default_limit" toml:"default_limit"`
	MaxLimit          int    `yaml:"max_limit" toml:"max_limit"`
	SnippetLength     int    `yaml:"snippet_length" toml:"snippet_length"`
}

// EnabledOrDefault returns whether search index generation is on; defaults to true when unset.
func (s *SearchConfig) EnabledOrDefault() bool {
	if s.Enabled != nil {
		return *s.Enabled
	}
	return true
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host" toml:"host"`
	Port int    `yaml:"port" toml:"port"`
}

// StorageConfig holds paths for build history and the bleve working directory.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path" toml:"database_path"`
	IndexPath    string `yaml:"index_path" toml:"index_path"`
}

// WatchConfig holds rebuild-on-change settings.
type WatchConfig struct {
	Extensions []string `yaml:"extensions" toml:"extensions"`
	DebounceMs int      `yaml:"debounce_ms" toml:"debounce_ms"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Files ending in .toml are parsed as TOML; anything else as YAML.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if isTOML(path) {
		err = toml.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	ApplyDefaults(&cfg)
	cfg.expandPaths(filepath.Dir(path))
	return &cfg, nil
}

// Default returns the default configuration with paths relative to dir.
func Default(dir string) *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.expandPaths(dir)
	return cfg
}

// Validate rejects enum values the builder does not understand. Empty values are allowed
// and filled in by ApplyDefaults.
func Validate(cfg *Config) error {
	switch cfg.Search.Engine {
	case "", EngineSimple, EngineBleve:
	default:
		return fmt.Errorf("invalid search.engine %q (want %q or %q)", cfg.Search.Engine, EngineSimple, EngineBleve)
	}
	switch cfg.Search.OnPageError {
	case "", OnPageErrorAbort, OnPageErrorSkip:
	default:
		return fmt.Errorf("invalid search.on_page_error %q (want %q or %q)", cfg.Search.OnPageError, OnPageErrorAbort, OnPageErrorSkip)
	}
	if cfg.Search.ChunkSize < 0 {
		return fmt.Errorf("invalid search.chunk_size %d", cfg.Search.ChunkSize)
	}
	return nil
}

// Save writes the config to path, as TOML when path ends in .toml and YAML otherwise.
func Save(path string, cfg *Config) error {
	var (
		data []byte
		err  error
	)
	if isTOML(path) {
		data, err = toml.Marshal(cfg)
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

func (c *Config) expandPaths(configDir string) {
	c.Site.ContentDir = expandPath(c.Site.ContentDir, configDir)
	c.Site.OutputDir = expandPath(c.Site.OutputDir, configDir)
	c.Storage.DatabasePath = expandPath(c.Storage.DatabasePath, configDir)
	c.Storage.IndexPath = expandPath(c.Storage.IndexPath, configDir)
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, strings.TrimPrefix(path, "~/"))
	}
	return path
}
