package simple

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hyperjump/shiori/internal/models"
)

func testPages() []*models.Page {
	date := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return []*models.Page{
		{
			URL:         "/rust",
			Title:       "Learning Rust",
			Content:     "<p>Rust is a systems <em>programming</em> language.</p>",
			Description: "An introduction to Rust",
			Lang:        "en",
			Tags:        []string{"Rust", "Systems"},
			Date:        &date,
		},
		{
			URL:     "/go",
			Title:   "Learning Go",
			Content: "<p>Go is a simple programming language.</p>",
			Summary: "Go basics",
			Lang:    "en",
			Tags:    []string{"go"},
		},
	}
}

func urls(docs []*Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.URL
	}
	return out
}

func TestFromPages_documents(t *testing.T) {
	idx := FromPages(testPages())
	require.Equal(t, 2, idx.DocumentCount())
	require.EqualValues(t, Version, idx.Version)

	rust := idx.Documents[0]
	require.Equal(t, "/rust", rust.URL)
	require.Equal(t, "An introduction to Rust", rust.Description)
	require.Equal(t, "2024-03-01T12:00:00Z", rust.Date)
	require.Contains(t, rust.Terms, "rust")
	require.Contains(t, rust.Terms, "programming")
	require.Contains(t, rust.Terms, "systems")
	require.NotContains(t, rust.Terms, "em", "markup must not become terms")
	require.IsNonDecreasing(t, rust.Terms)

	goDoc := idx.Documents[1]
	require.Equal(t, "Go basics", goDoc.Description, "summary is the fallback description")
	require.Empty(t, goDoc.Date)
}

func TestFromPages_postingListHygiene(t *testing.T) {
	pages := testPages()
	pages = append(pages, &models.Page{URL: "/rust-again", Title: "Rust Rust Rust", Content: "rust rust"})
	idx := FromPages(pages)

	for term, postings := range idx.Index {
		for i, p := range postings {
			require.Less(t, p, idx.DocumentCount(), "term %q", term)
			if i > 0 {
				require.Greater(t, p, postings[i-1], "term %q postings not strictly ascending", term)
			}
		}
	}
	require.Equal(t, []int{0, 2}, idx.Index["rust"])
	require.Equal(t, []int{0, 1}, idx.Index["programming"])
}

func TestSearch_intersection(t *testing.T) {
	idx := FromPages(testPages())

	require.Equal(t, []string{"/rust"}, urls(idx.Search("rust")))
	require.Equal(t, []string{"/rust", "/go"}, urls(idx.Search("programming")))
	require.Equal(t, []string{"/go"}, urls(idx.Search("simple programming")))
	require.Empty(t, idx.Search("python"))
	require.Empty(t, idx.Search("rust python"), "a missing term empties the intersection")
}

func TestSearch_emptyQuery(t *testing.T) {
	idx := FromPages(testPages())
	require.Empty(t, idx.Search(""))
	require.Empty(t, idx.Search("a b c"))
}

func TestJSONRoundTrip(t *testing.T) {
	idx := FromPages(testPages())
	data, err := idx.ToJSON()
	require.NoError(t, err)

	got, err := FromJSON(data)
	require.NoError(t, err)
	require.Equal(t, idx.DocumentCount(), got.DocumentCount())
	require.Equal(t, idx.TermCount(), got.TermCount())
	require.Equal(t, urls(idx.Search("programming")), urls(got.Search("programming")))

	pretty, err := idx.ToJSONPretty()
	require.NoError(t, err)
	require.True(t, strings.Contains(string(pretty), "\n  \"documents\""))
}

func TestFromJSON_rejects(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"malformed", `{"version":`},
		{"unknown version", `{"version":2,"documents":[],"index":{}}`},
		{"posting out of range", `{"version":1,"documents":[{"url":"/a","title":"A","terms":["a"]}],"index":{"a":[3]}}`},
		{"posting unsorted", `{"version":1,"documents":[{"url":"/a","title":"A","terms":["go","rust"]},{"url":"/b","title":"B","terms":["go","rust"]}],"index":{"rust":[1,0],"go":[0,1]}}`},
		{"posting duplicated", `{"version":1,"documents":[{"url":"/a","title":"A","terms":["go"]}],"index":{"go":[0,0]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromJSON([]byte(tt.json))
			require.Error(t, err)
			require.ErrorIs(t, err, models.ErrSerialization)
		})
	}
}

func TestWriteToFile(t *testing.T) {
	idx := FromPages(testPages())
	path := filepath.Join(t.TempDir(), "public", "search-index.json")

	n, err := idx.WriteToFile(path, 0, nil)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.EqualValues(t, n, info.Size())

	got, err := ReadFromFile(path)
	require.NoError(t, err)
	require.Equal(t, 2, got.DocumentCount())
}

func TestWriteToFile_overCeilingStillWrites(t *testing.T) {
	idx := FromPages(testPages())
	path := filepath.Join(t.TempDir(), "search-index.json")

	_, err := idx.WriteToFile(path, 10, nil)
	require.NoError(t, err)
	require.FileExists(t, path)
}

func TestReadFromFile_missing(t *testing.T) {
	_, err := ReadFromFile(filepath.Join(t.TempDir(), "nope.json"))
	require.ErrorIs(t, err, models.ErrIO)
}

func TestSizeLimit(t *testing.T) {
	idx := FromPages(testPages())
	require.Positive(t, idx.EstimatedSize())
	require.True(t, idx.IsWithinSizeLimit(0))
	require.False(t, idx.IsWithinSizeLimit(10))
}

func TestFromLangPages_recordsLanguage(t *testing.T) {
	pages := testPages()
	pages[1].Lang = ""
	idx := FromLangPages("en", pages)
	require.Equal(t, "en", idx.Documents[0].Lang)
	require.Equal(t, "en", idx.Documents[1].Lang, "page without a language takes the index language")
	require.Empty(t, pages[1].Lang, "pages are not modified")

	require.Empty(t, FromPages(pages).Documents[1].Lang)
}
