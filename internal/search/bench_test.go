package search

import (
	"fmt"
	"testing"

	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/query"
	"github.com/hyperjump/shiori/internal/simple"
)

var benchWords = []string{"rust", "go", "programming", "systems", "web", "search", "index", "chunk", "static", "site"}

func benchIndex(n int) *simple.Index {
	pages := make([]*models.Page, n)
	for i := range pages {
		pages[i] = &models.Page{
			URL:     fmt.Sprintf("/p/%d/", i),
			Title:   fmt.Sprintf("%s %s", benchWords[i%len(benchWords)], benchWords[(i/3)%len(benchWords)]),
			Content: fmt.Sprintf("<p>%s notes about %s and %s</p>", benchWords[i%7], benchWords[i%5], benchWords[i%3]),
		}
	}
	return simple.FromPages(pages)
}

func BenchmarkAnyTermScored(b *testing.B) {
	idx := benchIndex(1000)
	q := query.Parse("rust programming search", 10)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = AnyTermScored{}.Search(idx, q, 150)
	}
}

func BenchmarkAllTermsMatch(b *testing.B) {
	idx := benchIndex(1000)
	q := query.Parse("rust programming", 10)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = AllTermsMatch{}.Search(idx, q, 150)
	}
}

func BenchmarkFromPages(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = benchIndex(500)
	}
}
