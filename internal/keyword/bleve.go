package keyword

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/index/scorch/mergeplan"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"go.uber.org/zap"

	"github.com/hyperjump/shiori/internal/extract"
	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/query"
)

// EstimatedDocSize is the per-document constant used by Stats to estimate index size.
const EstimatedDocSize = 500

// DefaultLang is used for pages without a language when no other fallback is configured.
const DefaultLang = "en"

// Stats describes the committed state of an index.
type Stats struct {
	DocumentCount uint64 `json:"document_count"`
	SegmentCount  int    `json:"segment_count"`
	// SizeBytes is an estimate: DocumentCount * EstimatedDocSize.
	SizeBytes uint64 `json:"size_bytes"`
}

// forceMerger is implemented by the scorch index backend.
type forceMerger interface {
	ForceMerge(ctx context.Context, mo *mergeplan.MergePlanOptions) error
}

// SearchIndexer writes pages into a bleve index.
// Calls are serialized; the underlying writer is not safe for concurrent mutation.
type SearchIndexer struct {
	mu          sync.Mutex
	index       bleve.Index
	schema      *Schema
	path        string
	defaultLang string
	logger      *zap.Logger
}

// IndexerOption configures a SearchIndexer.
type IndexerOption func(*SearchIndexer)

// WithLogger sets a logger for indexing progress.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(s *SearchIndexer) { s.logger = l }
}

// WithDefaultLang sets the language recorded for pages that have none.
func WithDefaultLang(lang string) IndexerOption {
	return func(s *SearchIndexer) {
		if lang != "" {
			s.defaultLang = lang
		}
	}
}

// New creates a bleve index at path, or opens the one already there.
// Remove the directory first to force a rebuild with a changed schema.
func New(path string, opts ...IndexerOption) (*SearchIndexer, error) {
	s, err := newIndexer(path, opts)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, models.NewError(models.KindIO, "create index dir", filepath.Dir(path), err)
	}

	if _, statErr := os.Stat(path); statErr == nil {
		s.index, err = bleve.Open(path)
		if err != nil {
			return nil, models.NewError(models.KindIndex, "open index", path, err)
		}
		return s, nil
	}
	s.index, err = bleve.New(path, s.schema.Mapping)
	if err != nil {
		return nil, models.NewError(models.KindIndex, "create index", path, err)
	}
	return s, nil
}

// NewInMemory returns an indexer backed by a memory-only index.
func NewInMemory(opts ...IndexerOption) (*SearchIndexer, error) {
	s, err := newIndexer("", opts)
	if err != nil {
		return nil, err
	}
	s.index, err = bleve.NewMemOnly(s.schema.Mapping)
	if err != nil {
		return nil, models.NewError(models.KindIndex, "create index", "", err)
	}
	return s, nil
}

func newIndexer(path string, opts []IndexerOption) (*SearchIndexer, error) {
	schema, err := NewSchema()
	if err != nil {
		return nil, models.NewError(models.KindIndex, "build schema", path, err)
	}
	s := &SearchIndexer{
		schema:      schema,
		path:        path,
		defaultLang: DefaultLang,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Path returns the index directory, or "" for an in-memory index.
func (s *SearchIndexer) Path() string {
	return s.path
}

// IndexPages adds every page and commits once. On error nothing from this call is
// committed. Pages are keyed by URL, so a page with an empty URL, or with the URL of
// another page in the same call, is rejected.
func (s *SearchIndexer) IndexPages(ctx context.Context, pages []*models.Page) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := s.index.NewBatch()
	seen := make(map[string]bool, len(pages))
	for _, p := range pages {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if p.URL == "" {
			return 0, models.Errorf(models.KindIndex, "index page", "", "page %q has no url", p.Title)
		}
		if seen[p.URL] {
			return 0, models.Errorf(models.KindIndex, "index page", p.URL, "duplicate url")
		}
		seen[p.URL] = true
		if err := batch.Index(p.URL, s.document(p)); err != nil {
			return 0, models.NewError(models.KindIndex, "index page", p.URL, err)
		}
		s.logger.Debug("page added", zap.String("url", p.URL))
	}
	if err := s.index.Batch(batch); err != nil {
		return 0, models.NewError(models.KindIndex, "commit", s.path, err)
	}
	s.logger.Info("indexed pages", zap.String("path", s.path), zap.Int("pages", len(pages)))
	return len(pages), nil
}

func (s *SearchIndexer) document(p *models.Page) map[string]interface{} {
	f := s.schema.Fields
	doc := map[string]interface{}{
		f.Title: p.Title,
		f.Body:  extract.StripHTML(p.Content),
		f.URL:   p.URL,
		f.Lang:  p.LangOr(s.defaultLang),
		f.Tags:  p.Tags,
	}
	if p.Date != nil {
		doc[f.Date] = p.Date.UTC()
	}
	return doc
}

// Optimize merges all segments and blocks until the merge completes.
// Backends without force-merge support leave the index as is.
func (s *SearchIndexer) Optimize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	adv, err := s.index.Advanced()
	if err != nil {
		return models.NewError(models.KindIndex, "optimize", s.path, err)
	}
	fm, ok := adv.(forceMerger)
	if !ok {
		s.logger.Debug("index backend does not support force merge", zap.String("path", s.path))
		return nil
	}
	start := time.Now()
	if err := fm.ForceMerge(ctx, nil); err != nil {
		return models.NewError(models.KindIndex, "optimize", s.path, err)
	}
	s.logger.Info("index optimized", zap.String("path", s.path), zap.Duration("took", time.Since(start)))
	return nil
}

// Stats reads the committed document and segment counts.
func (s *SearchIndexer) Stats() (Stats, error) {
	count, err := s.index.DocCount()
	if err != nil {
		return Stats{}, models.NewError(models.KindIndex, "stats", s.path, err)
	}
	return Stats{
		DocumentCount: count,
		SegmentCount:  segmentCount(s.index.StatsMap()),
		SizeBytes:     count * EstimatedDocSize,
	}, nil
}

func segmentCount(stats map[string]interface{}) int {
	idx, ok := stats["index"].(map[string]interface{})
	if !ok {
		return 0
	}
	return toInt(idx["num_root_memorysegments"]) + toInt(idx["num_root_filesegments"])
}

func toInt(v interface{}) int {
	switch n := v.(type) {
	case uint64:
		return int(n)
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	case string:
		i, _ := strconv.Atoi(n)
		return i
	}
	return 0
}

// Search runs a disjunction of match queries over title (boosted), body, and tags.
func (s *SearchIndexer) Search(ctx context.Context, q string, limit int) ([]*models.SearchResult, error) {
	return s.search(ctx, q, "", limit)
}

// SearchLang is Search restricted to pages in lang.
func (s *SearchIndexer) SearchLang(ctx context.Context, q, lang string, limit int) ([]*models.SearchResult, error) {
	return s.search(ctx, q, lang, limit)
}

func (s *SearchIndexer) search(ctx context.Context, q, lang string, limit int) ([]*models.SearchResult, error) {
	if len(query.Tokenize(q)) == 0 {
		return []*models.SearchResult{}, nil
	}
	if limit <= 0 {
		limit = models.DefaultLimit
	}
	f := s.schema.Fields

	title := bleve.NewMatchQuery(q)
	title.SetField(f.Title)
	title.SetBoost(2)
	body := bleve.NewMatchQuery(q)
	body.SetField(f.Body)
	tags := bleve.NewMatchQuery(q)
	tags.SetField(f.Tags)

	var bq blevequery.Query = bleve.NewDisjunctionQuery(title, body, tags)
	if lang != "" {
		lq := bleve.NewTermQuery(lang)
		lq.SetField(f.Lang)
		bq = bleve.NewConjunctionQuery(bq, lq)
	}

	req := bleve.NewSearchRequestOptions(bq, limit, 0, false)
	req.Fields = []string{f.Title, f.URL}
	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, models.NewError(models.KindIndex, "search", s.path, err)
	}

	out := make([]*models.SearchResult, 0, len(res.Hits))
	for _, hit := range res.Hits {
		r := &models.SearchResult{URL: hit.ID, Score: hit.Score}
		if v, ok := hit.Fields[f.Title].(string); ok {
			r.Title = v
		}
		if v, ok := hit.Fields[f.URL].(string); ok {
			r.URL = v
		}
		out = append(out, r)
	}
	return out, nil
}

// Close releases the index. Closing twice returns an error from the backend.
func (s *SearchIndexer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.index.Close(); err != nil {
		return models.NewError(models.KindIndex, "close", s.path, err)
	}
	return nil
}

// Open opens an existing index read-write; it fails when path holds no index.
func Open(path string, opts ...IndexerOption) (*SearchIndexer, error) {
	s, err := newIndexer(path, opts)
	if err != nil {
		return nil, err
	}
	s.index, err = bleve.Open(path)
	if err != nil {
		if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
			return nil, models.NewError(models.KindNotFound, "open index", path, err)
		}
		return nil, models.NewError(models.KindIndex, "open index", path, err)
	}
	return s, nil
}
