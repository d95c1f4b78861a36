// Package keyword builds the engine-backed (bleve) search index for large sites.
package keyword

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	keywordanalyzer "github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
)

// AnalyzerName is the tokenizer registered for the text fields: unicode word
// splitting followed by lowercasing.
const AnalyzerName = "shiori_text"

// DocType is the document mapping name used for pages.
const DocType = "page"

// Fields names the six indexed fields.
type Fields struct {
	Title string
	Body  string
	URL   string
	Lang  string
	Tags  string
	Date  string
}

// DefaultFields are the field names written by every schema.
var DefaultFields = Fields{
	Title: "title",
	Body:  "body",
	URL:   "url",
	Lang:  "lang",
	Tags:  "tags",
	Date:  "date",
}

// Schema is an index mapping plus the field names it declares.
type Schema struct {
	Mapping *mapping.IndexMappingImpl
	Fields  Fields
}

// NewSchema builds the page schema. It is pure: two calls produce equivalent mappings.
func NewSchema() (*Schema, error) {
	im := bleve.NewIndexMapping()
	err := im.AddCustomAnalyzer(AnalyzerName, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     unicode.Name,
		"token_filters": []string{lowercase.Name},
	})
	if err != nil {
		return nil, fmt.Errorf("add analyzer: %w", err)
	}

	f := DefaultFields
	doc := bleve.NewDocumentStaticMapping()

	title := bleve.NewTextFieldMapping()
	title.Analyzer = AnalyzerName
	title.Store = true
	title.IncludeTermVectors = true
	doc.AddFieldMappingsAt(f.Title, title)

	// Bodies are large; they are searchable but not retained.
	body := bleve.NewTextFieldMapping()
	body.Analyzer = AnalyzerName
	body.Store = false
	body.IncludeTermVectors = false
	doc.AddFieldMappingsAt(f.Body, body)

	url := bleve.NewKeywordFieldMapping()
	url.Analyzer = keywordanalyzer.Name
	url.Store = true
	doc.AddFieldMappingsAt(f.URL, url)

	lang := bleve.NewKeywordFieldMapping()
	lang.Analyzer = keywordanalyzer.Name
	lang.Store = true
	lang.DocValues = true
	doc.AddFieldMappingsAt(f.Lang, lang)

	tags := bleve.NewTextFieldMapping()
	tags.Analyzer = AnalyzerName
	tags.Store = true
	doc.AddFieldMappingsAt(f.Tags, tags)

	date := bleve.NewDateTimeFieldMapping()
	date.Store = true
	date.DocValues = true
	doc.AddFieldMappingsAt(f.Date, date)

	im.AddDocumentMapping(DocType, doc)
	im.DefaultMapping = doc
	im.DefaultType = DocType
	im.DefaultAnalyzer = AnalyzerName
	return &Schema{Mapping: im, Fields: f}, nil
}
