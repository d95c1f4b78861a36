// Package loader fetches chunked index files over HTTP and reassembles them on demand.
package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/hyperjump/shiori/internal/models"
)

// DefaultConcurrency bounds parallel chunk fetches per call.
const DefaultConcurrency = 4

// Loader reads files described by one manifest. Fetched chunks stay cached for the
// loader's lifetime; ClearCache is the only eviction. Concurrent misses on the same
// chunk share a single request.
type Loader struct {
	baseURL     string
	manifest    *models.IndexManifest
	client      *http.Client
	logger      *zap.Logger
	concurrency int

	mu      sync.RWMutex
	cache   map[string][]byte
	group   singleflight.Group
	fetches atomic.Int64
}

// Option configures a Loader.
type Option func(*Loader)

// WithHTTPClient sets the client used for manifest and chunk requests.
func WithHTTPClient(c *http.Client) Option {
	return func(l *Loader) {
		if c != nil {
			l.client = c
		}
	}
}

// WithLogger sets a logger for fetch events.
func WithLogger(lg *zap.Logger) Option {
	return func(l *Loader) { l.logger = lg }
}

// WithConcurrency bounds how many chunks one call fetches in parallel.
func WithConcurrency(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

// New fetches {baseURL}/manifest.json and returns a loader for it.
func New(ctx context.Context, baseURL string, opts ...Option) (*Loader, error) {
	l := newLoader(baseURL, opts)
	url := l.url(models.ManifestFileName)
	data, err := l.get(ctx, url)
	if err != nil {
		return nil, err
	}
	m, err := models.ManifestFromJSON(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", url, err)
	}
	l.manifest = m
	l.logger.Debug("manifest loaded", zap.String("url", url), zap.Stringer("manifest", m))
	return l, nil
}

// WithManifest returns a loader for an already parsed manifest.
func WithManifest(baseURL string, m *models.IndexManifest, opts ...Option) (*Loader, error) {
	if m == nil {
		return nil, models.Errorf(models.KindSerialization, "load manifest", baseURL, "nil manifest")
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	l := newLoader(baseURL, opts)
	l.manifest = m
	return l, nil
}

func newLoader(baseURL string, opts []Option) *Loader {
	l := &Loader{
		baseURL:     strings.TrimRight(baseURL, "/"),
		client:      http.DefaultClient,
		logger:      zap.NewNop(),
		concurrency: DefaultConcurrency,
		cache:       make(map[string][]byte),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Manifest returns the manifest the loader serves.
func (l *Loader) Manifest() *models.IndexManifest {
	return l.manifest
}

// LoadFile returns the whole of name, truncated to its recorded size.
func (l *Loader) LoadFile(ctx context.Context, name string) ([]byte, error) {
	fm, ok := l.manifest.Files[name]
	if !ok {
		return nil, models.Errorf(models.KindNotFound, "load file", name, "file not in manifest")
	}
	data, err := l.loadChunks(ctx, fm.Chunks)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) < fm.Size {
		return nil, models.Errorf(models.KindSerialization, "load file", name,
			"chunks hold %d bytes, manifest declares %d", len(data), fm.Size)
	}
	return data[:fm.Size], nil
}

// LoadRange returns bytes [start, end) of name, fetching only the chunks that cover them.
func (l *Loader) LoadRange(ctx context.Context, name string, start, end int64) ([]byte, error) {
	fm, ok := l.manifest.Files[name]
	if !ok {
		return nil, models.Errorf(models.KindNotFound, "load range", name, "file not in manifest")
	}
	if start < 0 || start >= fm.Size || end > fm.Size || start >= end {
		return nil, models.Errorf(models.KindNotFound, "load range", name,
			"range [%d, %d) outside file of %d bytes", start, end, fm.Size)
	}

	cs := l.manifest.ChunkSize
	first := start / cs
	last := (end - 1) / cs
	if last >= int64(len(fm.Chunks)) {
		return nil, models.Errorf(models.KindSerialization, "load range", name,
			"chunk %d missing from manifest (%d chunks)", last, len(fm.Chunks))
	}
	data, err := l.loadChunks(ctx, fm.Chunks[first:last+1])
	if err != nil {
		return nil, err
	}
	off := first * cs
	if end-off > int64(len(data)) {
		return nil, models.Errorf(models.KindSerialization, "load range", name,
			"chunks hold %d bytes, need %d", len(data), end-off)
	}
	return data[start-off : end-off], nil
}

// loadChunks fetches names in parallel and concatenates them in order.
func (l *Loader) loadChunks(ctx context.Context, names []string) ([]byte, error) {
	parts := make([][]byte, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			b, err := l.loadChunk(gctx, name)
			if err != nil {
				return err
			}
			parts[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]byte, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out, nil
}

func (l *Loader) loadChunk(ctx context.Context, name string) ([]byte, error) {
	if b, ok := l.cached(name); ok {
		return b, nil
	}
	// The shared fetch must outlive any single caller's cancellation.
	ch := l.group.DoChan(name, func() (interface{}, error) {
		if b, ok := l.cached(name); ok {
			return b, nil
		}
		b, err := l.get(context.WithoutCancel(ctx), l.url(name))
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.cache[name] = b
		l.mu.Unlock()
		return b, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

func (l *Loader) cached(name string) ([]byte, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	b, ok := l.cache[name]
	return b, ok
}

func (l *Loader) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, models.NewError(models.KindNetwork, "fetch", url, err)
	}
	l.fetches.Add(1)
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, models.NewError(models.KindNetwork, "fetch", url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, models.Errorf(models.KindNetwork, "fetch", url, "HTTP status %d", resp.StatusCode)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, models.NewError(models.KindNetwork, "fetch", url, err)
	}
	l.logger.Debug("fetched", zap.String("url", url), zap.Int("bytes", len(b)))
	return b, nil
}

func (l *Loader) url(name string) string {
	return l.baseURL + "/" + name
}

// CachedChunkCount returns how many chunks are cached.
func (l *Loader) CachedChunkCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.cache)
}

// ClearCache drops every cached chunk.
func (l *Loader) ClearCache() {
	l.mu.Lock()
	l.cache = make(map[string][]byte)
	l.mu.Unlock()
}

// TotalSize returns the summed size of all files in the manifest.
func (l *Loader) TotalSize() uint64 {
	return l.manifest.TotalSize
}

// ListFiles returns the manifest's file names in sorted order.
func (l *Loader) ListFiles() []string {
	return l.manifest.FileNames()
}

// FetchCount returns how many HTTP requests the loader has issued, manifest included.
func (l *Loader) FetchCount() int64 {
	return l.fetches.Load()
}
