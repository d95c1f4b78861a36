// Package extract loads page records from the content directory.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	toml "github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/hyperjump/shiori/internal/models"
)

// SupportedExtensions lists the page record formats Extract understands.
var SupportedExtensions = []string{".json", ".yaml", ".yml", ".toml", ".html", ".htm", ".md"}

// Extractor reads page records: structured files (JSON, YAML, TOML), rendered HTML,
// and Markdown with front matter.
type Extractor struct {
	skipInvalid bool
	logger      *zap.Logger
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithLogger sets a logger for skipped drafts and unsupported files.
func WithLogger(l *zap.Logger) ExtractorOption {
	return func(e *Extractor) { e.logger = l }
}

// WithSkipInvalid makes LoadDir log and skip files that fail to parse instead of failing.
func WithSkipInvalid(skip bool) ExtractorOption {
	return func(e *Extractor) { e.skipInvalid = skip }
}

// NewExtractor returns a new Extractor.
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Supported reports whether path has an extension Extract understands.
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// Extract reads the file at path and returns its page.
func (e *Extractor) Extract(path string) (*models.Page, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	page, err := e.ExtractBytes(content, strings.ToLower(filepath.Ext(path)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return page, nil
}

// ExtractBytes parses content based on the given extension.
// ext should include the leading dot (e.g. ".toml").
func (e *Extractor) ExtractBytes(content []byte, ext string) (*models.Page, error) {
	content = validUTF8(content)
	var page models.Page
	switch ext {
	case ".json":
		if err := json.Unmarshal(content, &page); err != nil {
			return nil, fmt.Errorf("parse json page: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(content, &page); err != nil {
			return nil, fmt.Errorf("parse yaml page: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(content, &page); err != nil {
			return nil, fmt.Errorf("parse toml page: %w", err)
		}
	case ".html", ".htm":
		return extractHTML(content)
	case ".md":
		return extractMarkdown(content)
	default:
		return nil, fmt.Errorf("unsupported page format %q", ext)
	}
	return &page, nil
}

// LoadDir walks dir and returns every non-draft page, ordered by path.
// Pages without a URL get one derived from their path relative to dir.
func (e *Extractor) LoadDir(ctx context.Context, dir string) ([]*models.Page, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !Supported(path) {
			e.logger.Debug("skip unsupported file", zap.String("path", path))
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk content dir: %w", err)
	}
	sort.Strings(paths)

	pages := make([]*models.Page, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := e.Extract(path)
		if err != nil {
			if e.skipInvalid {
				e.logger.Warn("skipping invalid page", zap.String("path", path), zap.Error(err))
				continue
			}
			return nil, err
		}
		if page.Draft {
			e.logger.Debug("skip draft", zap.String("path", path))
			continue
		}
		if page.URL == "" {
			page.URL = URLFromPath(dir, path)
		}
		pages = append(pages, page)
	}
	e.logger.Info("loaded pages", zap.String("dir", dir), zap.Int("pages", len(pages)))
	return pages, nil
}

// URLFromPath maps a content file to its site URL: "blog/post.md" becomes "/blog/post/",
// and an index file maps to its directory.
func URLFromPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	rel = filepath.ToSlash(strings.TrimSuffix(rel, filepath.Ext(rel)))
	if rel == "index" {
		return "/"
	}
	rel = strings.TrimSuffix(rel, "/index")
	return "/" + rel + "/"
}

func extractHTML(content []byte) (*models.Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse html page: %w", err)
	}
	page := &models.Page{
		Title:       strings.TrimSpace(doc.Find("title").First().Text()),
		Description: metaContent(doc, "description"),
		Lang:        strings.TrimSpace(doc.Find("html").AttrOr("lang", "")),
	}
	if href, ok := doc.Find(`link[rel="canonical"]`).Attr("href"); ok {
		page.URL = strings.TrimSpace(href)
	}
	if kw := metaContent(doc, "keywords"); kw != "" {
		for _, tag := range strings.Split(kw, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				page.Tags = append(page.Tags, tag)
			}
		}
	}
	if d := doc.Find(`meta[property="article:published_time"]`).AttrOr("content", ""); d != "" {
		if t, err := time.Parse(time.RFC3339, d); err == nil {
			page.Date = &t
		}
	}
	if robots := metaContent(doc, "robots"); strings.Contains(robots, "noindex") {
		page.Draft = true
	}

	doc.Find("nav, footer, header, script, style, noscript").Remove()
	sel := doc.Find("main, article").First()
	if sel.Length() == 0 {
		sel = doc.Find("body")
	}
	body, err := sel.Html()
	if err != nil {
		return nil, fmt.Errorf("render html body: %w", err)
	}
	page.Content = body
	if page.Title == "" {
		page.Title = strings.TrimSpace(doc.Find("h1").First().Text())
	}
	return page, nil
}

func metaContent(doc *goquery.Document, name string) string {
	return strings.TrimSpace(doc.Find(`meta[name="`+name+`"]`).AttrOr("content", ""))
}
