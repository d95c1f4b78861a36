// Package search is the client-side query engine over a complete simple index.
package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/query"
	"github.com/hyperjump/shiori/internal/simple"
)

// Engine answers queries against one simple index. It is safe for concurrent use;
// the index is never modified after construction.
type Engine struct {
	index         *simple.Index
	strategy      Strategy
	snippetLength int
	suggester     *query.Suggester
	client        *http.Client
	logger        *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithStrategy sets the default strategy used by Search.
func WithStrategy(s Strategy) EngineOption {
	return func(e *Engine) {
		if s != nil {
			e.strategy = s
		}
	}
}

// WithSnippetLength sets the snippet window in characters.
func WithSnippetLength(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.snippetLength = n
		}
	}
}

// WithHTTPClient sets the client Load uses.
func WithHTTPClient(c *http.Client) EngineOption {
	return func(e *Engine) {
		if c != nil {
			e.client = c
		}
	}
}

// WithLogger sets a logger.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// New wraps an index already in memory. A nil index searches as an empty one.
func New(idx *simple.Index, opts ...EngineOption) *Engine {
	e := newEngine(opts)
	e.setIndex(idx)
	return e
}

func newEngine(opts []EngineOption) *Engine {
	e := &Engine{
		strategy:      AnyTermScored{},
		snippetLength: query.DefaultSnippetLength,
		client:        http.DefaultClient,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) setIndex(idx *simple.Index) {
	if idx == nil {
		idx = simple.New()
	}
	e.index = idx
	e.suggester = query.NewSuggester(idx)
}

// FromJSON parses a serialized simple index.
func FromJSON(data []byte, opts ...EngineOption) (*Engine, error) {
	idx, err := simple.FromJSON(data)
	if err != nil {
		return nil, err
	}
	return New(idx, opts...), nil
}

// Load fetches a complete simple index from url in one request.
func Load(ctx context.Context, url string, opts ...EngineOption) (*Engine, error) {
	e := newEngine(opts)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, models.NewError(models.KindNetwork, "load index", url, err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, models.NewError(models.KindNetwork, "load index", url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, models.Errorf(models.KindNetwork, "load index", url, "HTTP status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, models.NewError(models.KindNetwork, "load index", url, err)
	}
	idx, err := simple.FromJSON(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", url, err)
	}
	e.setIndex(idx)
	e.logger.Info("search index loaded",
		zap.String("url", url),
		zap.Int("documents", e.DocumentCount()),
		zap.Int("terms", e.TermCount()))
	return e, nil
}

// Search runs raw with the engine's default strategy. A limit of zero or less means
// models.DefaultLimit.
func (e *Engine) Search(raw string, limit int) *models.SearchResults {
	return e.SearchWith(e.strategy, query.Parse(raw, limit))
}

// SearchWith runs a parsed query with strategy s.
func (e *Engine) SearchWith(s Strategy, q models.SearchQuery) *models.SearchResults {
	start := time.Now()
	if q.IsEmpty() {
		return models.EmptyResults(q.Raw)
	}
	results := s.Search(e.index, q, e.snippetLength)
	out := &models.SearchResults{
		Query:      q.Raw,
		Total:      len(results),
		Results:    results,
		DurationMs: time.Since(start).Milliseconds(),
	}
	if len(results) == 0 {
		if corrected, ok := e.suggester.Correct(q.Raw); ok {
			out.Suggestions = []string{corrected}
		}
	}
	e.logger.Debug("search",
		zap.String("query", q.Raw),
		zap.String("strategy", s.Name()),
		zap.Int("results", len(results)))
	return out
}

// Query processes an API request: limit defaults and caps, then the named strategy.
func (e *Engine) Query(req models.SearchRequest, defaultLimit, maxLimit int) (*models.SearchResults, error) {
	q, s, err := ProcessRequest(&req, defaultLimit, maxLimit)
	if err != nil {
		return nil, err
	}
	return e.SearchWith(s, q), nil
}

// Index returns the underlying index.
func (e *Engine) Index() *simple.Index {
	return e.index
}

// DocumentCount returns the number of indexed documents.
func (e *Engine) DocumentCount() int {
	return e.index.DocumentCount()
}

// TermCount returns the number of distinct terms.
func (e *Engine) TermCount() int {
	return e.index.TermCount()
}
