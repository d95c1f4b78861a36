// Package simple builds the single-file JSON search index used by small sites.
// The whole index is downloaded and searched by the client in one piece.
package simple

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/shiori/internal/extract"
	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/query"
)

// Version is the index format version written by this package.
const Version = 1

// DefaultMaxSize is the soft ceiling on serialized index size (500 KiB).
const DefaultMaxSize = 500 * 1024

// Document is one page as stored in the index.
type Document struct {
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Lang        string   `json:"lang,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Date        string   `json:"date,omitempty"`
	// Terms is the sorted, deduplicated union of title, body, and tag terms.
	Terms []string `json:"terms"`
}

// Index is a document list plus an inverted index from term to document positions.
type Index struct {
	Version   uint32           `json:"version"`
	Documents []Document       `json:"documents"`
	Index     map[string][]int `json:"index"`
}

// New returns an empty index.
func New() *Index {
	return &Index{
		Version:   Version,
		Documents: []Document{},
		Index:     map[string][]int{},
	}
}

// FromPages builds an index from pages. Pages are added in order, so a document's
// position in Documents matches its page's position in pages.
func FromPages(pages []*models.Page) *Index {
	return FromLangPages("", pages)
}

// FromLangPages is FromPages for one language's index: documents of pages without
// a language record lang.
func FromLangPages(lang string, pages []*models.Page) *Index {
	idx := New()
	for _, p := range pages {
		idx.addPage(p, p.LangOr(lang))
	}
	idx.BuildInvertedIndex()
	return idx
}

// AddPage appends a document for p. Call BuildInvertedIndex once all pages are added.
func (idx *Index) AddPage(p *models.Page) {
	idx.addPage(p, p.Lang)
}

func (idx *Index) addPage(p *models.Page, lang string) {
	doc := Document{
		URL:         p.URL,
		Title:       p.Title,
		Description: p.Excerpt(),
		Lang:        lang,
		Tags:        p.Tags,
		Terms:       pageTerms(p),
	}
	if p.Date != nil {
		doc.Date = p.Date.Format(time.RFC3339)
	}
	idx.Documents = append(idx.Documents, doc)
}

func pageTerms(p *models.Page) []string {
	terms := query.Tokenize(p.Title)
	terms = append(terms, query.Tokenize(extract.StripHTML(p.Content))...)
	for _, tag := range p.Tags {
		terms = append(terms, query.Tokenize(tag)...)
		if t := query.NormalizeTerm(tag); t != "" {
			terms = append(terms, t)
		}
	}
	return sortUnique(terms)
}

// BuildInvertedIndex rebuilds Index from Documents. Every posting list ends up sorted
// ascending without duplicates, whatever order the documents were added in.
func (idx *Index) BuildInvertedIndex() {
	idx.Index = make(map[string][]int)
	for i, doc := range idx.Documents {
		for _, term := range doc.Terms {
			idx.Index[term] = append(idx.Index[term], i)
		}
	}
	for term, postings := range idx.Index {
		idx.Index[term] = sortUniqueInts(postings)
	}
}

// Search returns the documents containing every query term, in document order.
// An empty query, or any term missing from the index, yields no documents.
func (idx *Index) Search(q string) []*Document {
	return idx.SearchTerms(query.Tokenize(q))
}

// SearchTerms is Search for already tokenized terms.
func (idx *Index) SearchTerms(terms []string) []*Document {
	if len(terms) == 0 {
		return nil
	}
	var matched []int
	for i, term := range terms {
		postings, ok := idx.Index[term]
		if !ok {
			return nil
		}
		if i == 0 {
			matched = append([]int(nil), postings...)
			continue
		}
		matched = intersect(matched, postings)
		if len(matched) == 0 {
			return nil
		}
	}
	docs := make([]*Document, 0, len(matched))
	for _, i := range matched {
		if i >= 0 && i < len(idx.Documents) {
			docs = append(docs, &idx.Documents[i])
		}
	}
	return docs
}

// intersect merges two ascending posting lists.
func intersect(a, b []int) []int {
	out := a[:0]
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	return out
}

// DocumentCount returns the number of indexed documents.
func (idx *Index) DocumentCount() int {
	return len(idx.Documents)
}

// TermCount returns the number of distinct terms.
func (idx *Index) TermCount() int {
	return len(idx.Index)
}

// Terms returns every indexed term in sorted order.
func (idx *Index) Terms() []string {
	terms := make([]string, 0, len(idx.Index))
	for t := range idx.Index {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	return terms
}

// DocFrequency returns how many documents contain term.
func (idx *Index) DocFrequency(term string) int {
	return len(idx.Index[term])
}

// EstimatedSize approximates the serialized size in bytes without serializing.
func (idx *Index) EstimatedSize() int {
	size := 0
	for _, d := range idx.Documents {
		size += len(d.URL) + len(d.Title) + len(d.Description) + 100
		for _, t := range d.Terms {
			size += len(t) + 3
		}
	}
	return size
}

// IsWithinSizeLimit reports whether EstimatedSize is at most maxSize.
// A maxSize of zero or less means DefaultMaxSize.
func (idx *Index) IsWithinSizeLimit(maxSize int) bool {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return idx.EstimatedSize() <= maxSize
}

// ToJSON serializes the index compactly.
func (idx *Index) ToJSON() ([]byte, error) {
	data, err := json.Marshal(idx)
	if err != nil {
		return nil, models.NewError(models.KindSerialization, "encode simple index", "", err)
	}
	return data, nil
}

// ToJSONPretty serializes the index with indentation.
func (idx *Index) ToJSONPretty() ([]byte, error) {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return nil, models.NewError(models.KindSerialization, "encode simple index", "", err)
	}
	return data, nil
}

// WriteToFile writes the compact JSON form to path and returns its size in bytes.
// Exceeding maxSize only logs a warning; the file is still written.
func (idx *Index) WriteToFile(path string, maxSize int, logger *zap.Logger) (int, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	data, err := idx.ToJSON()
	if err != nil {
		return 0, err
	}
	if len(data) > maxSize {
		logger.Warn("simple search index exceeds recommended size",
			zap.String("path", path),
			zap.Int("size", len(data)),
			zap.Int("max", maxSize))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return 0, models.NewError(models.KindIO, "create index dir", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return 0, models.NewError(models.KindIO, "write simple index", path, err)
	}
	logger.Info("wrote simple search index",
		zap.String("path", path),
		zap.Int("documents", idx.DocumentCount()),
		zap.Int("terms", idx.TermCount()),
		zap.Int("bytes", len(data)))
	return len(data), nil
}

// FromJSON parses an index and checks its version and posting lists: every list
// must be strictly ascending and point at existing documents.
func FromJSON(data []byte) (*Index, error) {
	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, models.NewError(models.KindSerialization, "decode simple index", "", err)
	}
	if idx.Version != Version {
		return nil, models.Errorf(models.KindSerialization, "decode simple index", "",
			"unsupported index version %d", idx.Version)
	}
	if idx.Index == nil {
		idx.Index = map[string][]int{}
	}
	for term, postings := range idx.Index {
		for i, p := range postings {
			if p < 0 || p >= len(idx.Documents) {
				return nil, models.Errorf(models.KindSerialization, "decode simple index", "",
					"term %q points at document %d of %d", term, p, len(idx.Documents))
			}
			if i > 0 && p <= postings[i-1] {
				return nil, models.Errorf(models.KindSerialization, "decode simple index", "",
					"posting list for %q is not strictly ascending at %d", term, i)
			}
		}
	}
	return &idx, nil
}

// ReadFromFile loads an index written by WriteToFile.
func ReadFromFile(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, models.NewError(models.KindIO, "read simple index", path, err)
	}
	idx, err := FromJSON(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return idx, nil
}

func sortUnique(s []string) []string {
	if len(s) == 0 {
		return []string{}
	}
	sort.Strings(s)
	out := s[:1]
	for _, v := range s[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

func sortUniqueInts(s []int) []int {
	sort.Ints(s)
	out := s[:0]
	for i, v := range s {
		if i == 0 || v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}
