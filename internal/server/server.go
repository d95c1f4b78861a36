// Package server serves the built site and answers search queries over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/shiori/internal/config"
	"github.com/hyperjump/shiori/internal/indexer"
	"github.com/hyperjump/shiori/internal/keyword"
	"github.com/hyperjump/shiori/internal/search"
	"github.com/hyperjump/shiori/internal/simple"
	"github.com/hyperjump/shiori/internal/storage"
)

// RebuildFunc rebuilds every index from the page sources.
type RebuildFunc func(ctx context.Context) (*indexer.BuildReport, error)

// Server serves the output directory (pages, simple indexes, manifests and chunks)
// and a JSON search API over the indexes found there.
type Server struct {
	cfg     *config.Config
	history storage.Storage
	rebuild RebuildFunc
	logger  *zap.Logger
	server  *http.Server

	mu      sync.RWMutex
	engines map[string]*search.Engine
	bleve   map[string]*keyword.SearchIndexer

	rebuildMu sync.Mutex
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets a logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithHistory exposes build history on the status endpoint.
func WithHistory(store storage.Storage) Option {
	return func(s *Server) { s.history = store }
}

// WithRebuild enables the rebuild endpoint and Rebuild.
func WithRebuild(fn RebuildFunc) Option {
	return func(s *Server) { s.rebuild = fn }
}

// New returns a server for cfg. Call Reload to load the indexes already built.
func New(cfg *config.Config, opts ...Option) *Server {
	s := &Server{
		cfg:     cfg,
		logger:  zap.NewNop(),
		engines: make(map[string]*search.Engine),
		bleve:   make(map[string]*keyword.SearchIndexer),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/search", s.handleSearchGet)
		r.Post("/search", s.handleSearch)
		r.Get("/status", s.handleStatus)
		r.Post("/rebuild", s.handleRebuild)
	})
	r.Handle("/*", http.FileServer(http.Dir(s.cfg.Site.OutputDir)))
	return r
}

// Start serves until the server is stopped.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("starting server", zap.String("addr", addr), zap.String("root", s.cfg.Site.OutputDir))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server and closes open indexes.
func (s *Server) Stop(ctx context.Context) error {
	var err error
	if s.server != nil {
		err = s.server.Shutdown(ctx)
	}
	s.mu.Lock()
	s.closeBleveLocked()
	s.mu.Unlock()
	return err
}

// Reload replaces the loaded engines with the indexes currently in the output
// directory (and, for the bleve engine, the index working directory).
func (s *Server) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reloadLocked()
}

func (s *Server) reloadLocked() error {
	engines, err := s.loadSimple()
	if err != nil {
		return err
	}
	s.closeBleveLocked()
	s.engines = engines
	if s.cfg.Search.Engine == config.EngineBleve {
		s.bleve = s.openBleve()
	}
	s.logger.Info("search indexes loaded",
		zap.Strings("simple", sortedKeys(s.engines)),
		zap.Int("bleve", len(s.bleve)))
	return nil
}

// Rebuild runs the rebuild function and reloads the indexes it produced.
// Concurrent calls are serialized. With the bleve engine, searches wait for the
// rebuild to finish, since the open indexes live in the directory it replaces.
func (s *Server) Rebuild(ctx context.Context) (*indexer.BuildReport, error) {
	if s.rebuild == nil {
		return nil, fmt.Errorf("rebuild not configured")
	}
	s.rebuildMu.Lock()
	defer s.rebuildMu.Unlock()

	var (
		report *indexer.BuildReport
		err    error
	)
	if s.cfg.Search.Engine == config.EngineBleve {
		s.mu.Lock()
		s.closeBleveLocked()
		report, err = s.rebuild(ctx)
		if reloadErr := s.reloadLocked(); reloadErr != nil && err == nil {
			err = reloadErr
		}
		s.mu.Unlock()
	} else {
		report, err = s.rebuild(ctx)
		if reloadErr := s.Reload(); reloadErr != nil && err == nil {
			err = reloadErr
		}
	}
	if err != nil {
		return nil, err
	}
	return report, nil
}

// Languages returns the languages with a loaded index, sorted.
func (s *Server) Languages() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]bool)
	for lang := range s.engines {
		seen[lang] = true
	}
	for lang := range s.bleve {
		seen[lang] = true
	}
	langs := make([]string, 0, len(seen))
	for lang := range seen {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

func (s *Server) loadSimple() (map[string]*search.Engine, error) {
	engines := make(map[string]*search.Engine)
	entries, err := os.ReadDir(s.cfg.Site.OutputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return engines, nil
		}
		return nil, fmt.Errorf("read output dir: %w", err)
	}
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		lang, ok := simpleIndexLang(e.Name(), s.cfg.Search.SimpleIndexName, s.cfg.Site.DefaultLang)
		if !ok {
			continue
		}
		idx, err := simple.ReadFromFile(filepath.Join(s.cfg.Site.OutputDir, e.Name()))
		if err != nil {
			return nil, err
		}
		engines[lang] = search.New(idx,
			search.WithSnippetLength(s.cfg.Search.SnippetLength),
			search.WithLogger(s.logger))
	}
	return engines, nil
}

// simpleIndexLang maps a file name produced by indexer.SimpleIndexFile back to its language.
func simpleIndexLang(file, name, defaultLang string) (string, bool) {
	if file == name {
		return defaultLang, true
	}
	ext := filepath.Ext(name)
	prefix := strings.TrimSuffix(name, ext) + "."
	if !strings.HasPrefix(file, prefix) || !strings.HasSuffix(file, ext) {
		return "", false
	}
	lang := strings.TrimSuffix(strings.TrimPrefix(file, prefix), ext)
	if lang == "" || strings.Contains(lang, ".") {
		return "", false
	}
	return lang, true
}

func (s *Server) openBleve() map[string]*keyword.SearchIndexer {
	out := make(map[string]*keyword.SearchIndexer)
	entries, err := os.ReadDir(s.cfg.Storage.IndexPath)
	if err != nil {
		return out
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		path := filepath.Join(s.cfg.Storage.IndexPath, e.Name())
		si, err := keyword.Open(path, keyword.WithLogger(s.logger), keyword.WithDefaultLang(e.Name()))
		if err != nil {
			s.logger.Warn("skipping bleve index", zap.String("path", path), zap.Error(err))
			continue
		}
		out[e.Name()] = si
	}
	return out
}

func (s *Server) closeBleveLocked() {
	for lang, si := range s.bleve {
		if err := si.Close(); err != nil {
			s.logger.Warn("close bleve index", zap.String("lang", lang), zap.Error(err))
		}
	}
	s.bleve = make(map[string]*keyword.SearchIndexer)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
