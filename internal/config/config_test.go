package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
search:
  engine: bleve
  chunk_size: 1024
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Search.Engine != EngineBleve || cfg.Search.ChunkSize != 1024 {
		t.Errorf("unexpected search config: %+v", cfg.Search)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
	if !cfg.Search.EnabledOrDefault() {
		t.Error("search should default to enabled")
	}
}

func TestLoad_toml(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
debug = true

[site]
content_dir = "./pages"
default_lang = "ja"
languages = ["ja", "en"]

[search]
enabled = false
on_page_error = "skip"
auto_chunk_oversize = true
simple_max_size = 2048
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
	if cfg.Site.DefaultLang != "ja" || len(cfg.Site.Languages) != 2 {
		t.Errorf("unexpected site config: %+v", cfg.Site)
	}
	if cfg.Site.ContentDir != filepath.Join(dir, "pages") {
		t.Errorf("content_dir = %s", cfg.Site.ContentDir)
	}
	if cfg.Search.EnabledOrDefault() {
		t.Error("enabled = false should disable search")
	}
	if cfg.Search.OnPageError != OnPageErrorSkip || !cfg.Search.AutoChunkOversize || cfg.Search.SimpleMaxSize != 2048 {
		t.Errorf("unexpected search config: %+v", cfg.Search)
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
site:
  output_dir: "./dist"
storage:
  database_path: "./data/history.db"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "data", "history.db"); cfg.Storage.DatabasePath != want {
		t.Errorf("database_path = %s, want %s", cfg.Storage.DatabasePath, want)
	}
	if want := filepath.Join(dir, "dist"); cfg.Site.OutputDir != want {
		t.Errorf("output_dir = %s, want %s", cfg.Site.OutputDir, want)
	}
	if want := filepath.Join(dir, ".shiori", "index"); cfg.Storage.IndexPath != want {
		t.Errorf("default index_path = %s, want %s", cfg.Storage.IndexPath, want)
	}
}

func TestLoad_invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "search: [unclosed"},
		{"unknown engine", "search:\n  engine: lucene\n"},
		{"unknown page policy", "search:\n  on_page_error: ignore\n"},
		{"negative chunk size", "search:\n  chunk_size: -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0600); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected error")
			}
		})
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" {
		t.Errorf("default host: got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.Search.DefaultLimit != 10 || cfg.Search.MaxLimit != 100 {
		t.Errorf("default limits: got %d/%d", cfg.Search.DefaultLimit, cfg.Search.MaxLimit)
	}
	if cfg.Search.Engine != EngineSimple {
		t.Errorf("default engine: got %s", cfg.Search.Engine)
	}
	if cfg.Search.ChunkSize != 65536 || cfg.Search.ChunkPrefix != "chunk" {
		t.Errorf("default chunking: got %d %s", cfg.Search.ChunkSize, cfg.Search.ChunkPrefix)
	}
	if cfg.Search.SimpleMaxSize != 500*1024 || cfg.Search.SimpleIndexName != "search-index.json" {
		t.Errorf("default simple index: got %d %s", cfg.Search.SimpleMaxSize, cfg.Search.SimpleIndexName)
	}
	if cfg.Search.OnPageError != OnPageErrorAbort {
		t.Errorf("default on_page_error: got %s", cfg.Search.OnPageError)
	}
	if cfg.Site.DefaultLang != "en" {
		t.Errorf("default lang: got %s", cfg.Site.DefaultLang)
	}
	if len(cfg.Search.IndexFields) != 6 {
		t.Errorf("index fields: got %v", cfg.Search.IndexFields)
	}
	if cfg.Watch.DebounceMs != 300 || len(cfg.Watch.Extensions) == 0 {
		t.Errorf("watch defaults: got %+v", cfg.Watch)
	}
}

func TestSearchConfig_EnabledOrDefault(t *testing.T) {
	t.Run("nil_returns_true", func(t *testing.T) {
		s := &SearchConfig{}
		if !s.EnabledOrDefault() {
			t.Error("EnabledOrDefault() = false, want true")
		}
	})
	t.Run("false_returns_false", func(t *testing.T) {
		f := false
		s := &SearchConfig{Enabled: &f}
		if s.EnabledOrDefault() {
			t.Error("EnabledOrDefault() = true, want false")
		}
	})
}

func TestDefault(t *testing.T) {
	dir := t.TempDir()
	cfg := Default(dir)
	if cfg.Site.ContentDir != filepath.Join(dir, "content") {
		t.Errorf("content_dir = %s", cfg.Site.ContentDir)
	}
}

func TestSave(t *testing.T) {
	for _, name := range []string{"saved.yaml", "saved.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			cfg := &Config{
				Server:  ServerConfig{Host: "localhost", Port: 9090},
				Storage: StorageConfig{DatabasePath: "/tmp/db"},
				Search:  SearchConfig{Engine: EngineBleve},
			}
			if err := Save(path, cfg); err != nil {
				t.Fatal(err)
			}
			loaded, err := Load(path)
			if err != nil {
				t.Fatal(err)
			}
			if loaded.Server.Port != 9090 || loaded.Search.Engine != EngineBleve {
				t.Errorf("loaded: port %d engine %s", loaded.Server.Port, loaded.Search.Engine)
			}
		})
	}
}
