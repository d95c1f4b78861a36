// Package indexer builds per-language search indexes from pages and packages them for delivery.
package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/shiori/internal/config"
	"github.com/hyperjump/shiori/internal/keyword"
	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/simple"
	"github.com/hyperjump/shiori/internal/storage"
)

// DeliveryDirName is the directory under the output dir holding chunked indexes.
const DeliveryDirName = "search"

// LangReport describes the index built for one language.
type LangReport struct {
	Lang      string        `json:"lang"`
	Engine    models.Engine `json:"engine"`
	Documents int           `json:"documents"`
	SizeBytes int64         `json:"size_bytes"`
	Chunks    int           `json:"chunks"`
	// Output is the simple index file, or the delivery directory for chunked output.
	Output string `json:"output"`
}

// BuildReport summarizes one Build call.
type BuildReport struct {
	BuildID   string        `json:"build_id"`
	Languages []LangReport  `json:"languages"`
	Skipped   int           `json:"skipped"`
	Duration  time.Duration `json:"duration"`
}

// Documents returns the number of documents indexed across languages.
func (r *BuildReport) Documents() int {
	n := 0
	for _, l := range r.Languages {
		n += l.Documents
	}
	return n
}

// Builder turns a full page set into the configured index type, one index per language.
// Every build is a full rebuild.
type Builder struct {
	cfg     *config.Config
	history storage.Storage
	chunker *IndexChunker
	logger  *zap.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithLogger sets a logger for build progress.
func WithLogger(l *zap.Logger) BuilderOption {
	return func(b *Builder) { b.logger = l }
}

// WithHistory records every language build in store.
func WithHistory(store storage.Storage) BuilderOption {
	return func(b *Builder) { b.history = store }
}

// NewBuilder returns a builder for cfg. cfg must already have defaults applied.
func NewBuilder(cfg *config.Config, opts ...BuilderOption) *Builder {
	b := &Builder{cfg: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	b.chunker = NewIndexChunker(ChunkerConfig{
		ChunkSize:   cfg.Search.ChunkSize,
		ChunkPrefix: cfg.Search.ChunkPrefix,
	}, WithChunkerLogger(b.logger))
	return b
}

// SimpleIndexFile returns the simple index file name for lang. The default language
// uses name as is; other languages insert the language before the extension,
// e.g. "search-index.ja.json".
func SimpleIndexFile(name, lang, defaultLang string) string {
	if lang == defaultLang {
		return name
	}
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + "." + lang + ext
}

// DeliveryDir returns the directory chunked output for lang is written to.
func DeliveryDir(outputDir, lang string) string {
	return filepath.Join(outputDir, DeliveryDirName, lang)
}

// Build indexes pages and writes the output for every language present.
func (b *Builder) Build(ctx context.Context, pages []*models.Page) (*BuildReport, error) {
	start := time.Now()
	report := &BuildReport{BuildID: uuid.New().String(), Languages: []LangReport{}}
	if !b.cfg.Search.EnabledOrDefault() {
		b.logger.Info("search disabled, skipping index build")
		return report, nil
	}

	valid, skipped, err := b.checkPages(pages)
	if err != nil {
		return nil, err
	}
	report.Skipped = skipped

	groups := groupByLang(valid, b.cfg.Site.DefaultLang)
	langs := make([]string, 0, len(groups))
	for lang := range groups {
		langs = append(langs, lang)
	}
	sort.Strings(langs)

	for _, lang := range langs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var lr LangReport
		switch models.Engine(b.cfg.Search.Engine) {
		case models.EngineBleve:
			lr, err = b.buildBleve(ctx, lang, groups[lang])
		default:
			lr, err = b.buildSimple(lang, groups[lang])
		}
		if err != nil {
			return nil, fmt.Errorf("build %s index: %w", lang, err)
		}
		report.Languages = append(report.Languages, lr)
	}

	if err := b.record(ctx, report); err != nil {
		return nil, err
	}
	report.Duration = time.Since(start)
	b.logger.Info("search index build complete",
		zap.String("build_id", report.BuildID),
		zap.Int("languages", len(report.Languages)),
		zap.Int("documents", report.Documents()),
		zap.Int("skipped", report.Skipped),
		zap.Duration("duration", report.Duration))
	return report, nil
}

// checkPages applies the page error policy. A page without a URL cannot be keyed
// or linked to and is malformed, as is a second page with the URL of an earlier
// page in the same language.
func (b *Builder) checkPages(pages []*models.Page) ([]*models.Page, int, error) {
	valid := make([]*models.Page, 0, len(pages))
	seen := make(map[string]bool, len(pages))
	skipped := 0
	for _, p := range pages {
		var title, reason string
		switch {
		case p == nil || strings.TrimSpace(p.URL) == "":
			if p != nil {
				title = p.Title
			}
			reason = "has no url"
		default:
			key := p.LangOr(b.cfg.Site.DefaultLang) + "\x00" + p.URL
			if !seen[key] {
				seen[key] = true
				valid = append(valid, p)
				continue
			}
			title = p.Title
			reason = "duplicates url " + p.URL
		}
		if b.cfg.Search.OnPageError != config.OnPageErrorSkip {
			return nil, 0, models.Errorf(models.KindIndex, "check page", "", "page %q %s", title, reason)
		}
		b.logger.Warn("skipping malformed page", zap.String("title", title), zap.String("reason", reason))
		skipped++
	}
	return valid, skipped, nil
}

func groupByLang(pages []*models.Page, defaultLang string) map[string][]*models.Page {
	groups := make(map[string][]*models.Page)
	for _, p := range pages {
		lang := p.LangOr(defaultLang)
		groups[lang] = append(groups[lang], p)
	}
	return groups
}

func (b *Builder) buildSimple(lang string, pages []*models.Page) (LangReport, error) {
	sc := b.cfg.Search
	name := SimpleIndexFile(sc.SimpleIndexName, lang, b.cfg.Site.DefaultLang)
	path := filepath.Join(b.cfg.Site.OutputDir, name)

	idx := simple.FromLangPages(lang, pages)
	size, err := idx.WriteToFile(path, sc.SimpleMaxSize, b.logger)
	if err != nil {
		return LangReport{}, err
	}
	lr := LangReport{
		Lang:      lang,
		Engine:    models.EngineSimple,
		Documents: idx.DocumentCount(),
		SizeBytes: int64(size),
		Output:    path,
	}
	if sc.AutoChunkOversize && !idx.IsWithinSizeLimit(sc.SimpleMaxSize) {
		m, err := b.deliverFile(path, DeliveryDir(b.cfg.Site.OutputDir, lang))
		if err != nil {
			return LangReport{}, err
		}
		lr.Chunks = m.ChunkCount()
		b.logger.Info("chunked oversized simple index", zap.String("lang", lang), zap.Int("chunks", lr.Chunks))
	}
	return lr, nil
}

// deliverFile replaces outDir with the chunks and manifest of a single file.
func (b *Builder) deliverFile(path, outDir string) (*models.IndexManifest, error) {
	if err := os.RemoveAll(outDir); err != nil {
		return nil, models.NewError(models.KindIO, "clear delivery dir", outDir, err)
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, models.NewError(models.KindIO, "create delivery dir", outDir, err)
	}
	fm, err := b.chunker.ChunkFile(path, outDir, NewChunkCounter(0))
	if err != nil {
		return nil, err
	}
	m := models.NewIndexManifest(b.chunker.ChunkSize())
	m.AddFile(filepath.Base(path), fm)
	if err := WriteManifest(m, filepath.Join(outDir, models.ManifestFileName)); err != nil {
		return nil, err
	}
	return m, nil
}

func (b *Builder) buildBleve(ctx context.Context, lang string, pages []*models.Page) (LangReport, error) {
	workDir := filepath.Join(b.cfg.Storage.IndexPath, lang)
	if err := os.RemoveAll(workDir); err != nil {
		return LangReport{}, models.NewError(models.KindIO, "clear index dir", workDir, err)
	}
	si, err := keyword.New(workDir, keyword.WithLogger(b.logger), keyword.WithDefaultLang(lang))
	if err != nil {
		return LangReport{}, err
	}
	n, err := si.IndexPages(ctx, pages)
	if err == nil {
		err = si.Optimize(ctx)
	}
	if err != nil {
		_ = si.Close()
		return LangReport{}, err
	}
	if stats, statsErr := si.Stats(); statsErr == nil {
		b.logger.Debug("bleve index stats",
			zap.String("lang", lang),
			zap.Uint64("documents", stats.DocumentCount),
			zap.Int("segments", stats.SegmentCount))
	}
	if err := si.Close(); err != nil {
		return LangReport{}, models.NewError(models.KindIndex, "close index", workDir, err)
	}

	outDir := DeliveryDir(b.cfg.Site.OutputDir, lang)
	if err := os.RemoveAll(outDir); err != nil {
		return LangReport{}, models.NewError(models.KindIO, "clear delivery dir", outDir, err)
	}
	m, err := b.chunker.ChunkTree(workDir, outDir)
	if err != nil {
		return LangReport{}, err
	}
	if err := WriteManifest(m, filepath.Join(outDir, models.ManifestFileName)); err != nil {
		return LangReport{}, err
	}
	return LangReport{
		Lang:      lang,
		Engine:    models.EngineBleve,
		Documents: n,
		SizeBytes: int64(m.TotalSize),
		Chunks:    m.ChunkCount(),
		Output:    outDir,
	}, nil
}

func (b *Builder) record(ctx context.Context, report *BuildReport) error {
	if b.history == nil {
		return nil
	}
	for _, lr := range report.Languages {
		rec := &models.BuildRecord{
			BuildID:   report.BuildID,
			Lang:      lr.Lang,
			Engine:    lr.Engine,
			Documents: lr.Documents,
			Skipped:   report.Skipped,
			SizeBytes: lr.SizeBytes,
			Chunks:    lr.Chunks,
			Output:    lr.Output,
		}
		if err := b.history.RecordBuild(ctx, rec); err != nil {
			return fmt.Errorf("record build: %w", err)
		}
	}
	return nil
}
