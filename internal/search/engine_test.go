package search

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/simple"
)

func testIndex() *simple.Index {
	return simple.FromPages([]*models.Page{
		{
			URL:         "/rust",
			Title:       "Learning Rust",
			Content:     "<p>Rust is a systems programming language.</p>",
			Description: "An introduction to Rust programming",
			Tags:        []string{"rust"},
		},
		{
			URL:     "/go",
			Title:   "Learning Go",
			Content: "<p>Go is a simple programming language. It is not Rust.</p>",
			Tags:    []string{"go"},
		},
	})
}

func resultURLs(res *models.SearchResults) []string {
	out := make([]string, len(res.Results))
	for i, r := range res.Results {
		out[i] = r.URL
	}
	return out
}

func TestEngine_Search_scenario(t *testing.T) {
	e := New(testIndex())

	res := e.Search("programming", 10)
	if got := strings.Join(resultURLs(res), ","); got != "/rust,/go" {
		t.Errorf("programming = %s, want /rust,/go", got)
	}
	if res.Total != 2 || res.Query != "programming" {
		t.Errorf("envelope = %+v", res)
	}

	res = e.Search("python", 10)
	if len(res.Results) != 0 {
		t.Errorf("python = %v", resultURLs(res))
	}
}

func TestEngine_Search_titleMatchRanksFirst(t *testing.T) {
	e := New(testIndex())
	res := e.Search("rust", 10)
	if len(res.Results) != 2 {
		t.Fatalf("rust = %v", resultURLs(res))
	}
	if res.Results[0].URL != "/rust" {
		t.Errorf("first result = %s, want /rust", res.Results[0].URL)
	}
	if res.Results[0].Score <= res.Results[1].Score {
		t.Errorf("scores not descending: %v, %v", res.Results[0].Score, res.Results[1].Score)
	}
}

func TestEngine_Search_limit(t *testing.T) {
	e := New(testIndex())
	res := e.Search("programming", 1)
	if len(res.Results) != 1 || res.Total != 1 {
		t.Errorf("limit 1 = %+v", res)
	}
}

func TestEngine_Search_emptyQuery(t *testing.T) {
	e := New(testIndex())
	for _, q := range []string{"", "   ", "a b c"} {
		res := e.Search(q, 10)
		if len(res.Results) != 0 || res.Total != 0 {
			t.Errorf("Search(%q) = %+v", q, res)
		}
	}
}

func TestNew_nilIndex(t *testing.T) {
	e := New(nil)
	if e.DocumentCount() != 0 || e.TermCount() != 0 {
		t.Errorf("counts = %d, %d", e.DocumentCount(), e.TermCount())
	}
	if res := e.Search("rust", 10); res.Total != 0 || len(res.Suggestions) != 0 {
		t.Errorf("Search on empty engine = %+v", res)
	}
}

func TestEngine_Search_snippetFromDescription(t *testing.T) {
	e := New(testIndex())
	res := e.Search("rust", 10)
	if res.Results[0].Snippet == "" || !strings.Contains(res.Results[0].Snippet, "Rust") {
		t.Errorf("snippet = %q", res.Results[0].Snippet)
	}
	if res.Results[1].Snippet != "" {
		t.Errorf("document without description got snippet %q", res.Results[1].Snippet)
	}
}

func TestEngine_Search_suggestions(t *testing.T) {
	e := New(testIndex())
	res := e.Search("progamming", 10)
	if len(res.Results) != 0 {
		t.Fatalf("unexpected results %v", resultURLs(res))
	}
	if len(res.Suggestions) != 1 || res.Suggestions[0] != "programming" {
		t.Errorf("suggestions = %v", res.Suggestions)
	}
}

func TestStrategies(t *testing.T) {
	idx := testIndex()
	e := New(idx, WithStrategy(AllTermsMatch{}))

	res := e.Search("simple programming", 10)
	if got := strings.Join(resultURLs(res), ","); got != "/go" {
		t.Errorf("all terms = %s, want /go", got)
	}
	if res.Results[0].Score <= 0 {
		t.Error("all-terms results still carry a score")
	}

	scored := e.SearchWith(AnyTermScored{}, models.SearchQuery{Raw: "simple programming", Terms: []string{"simple", "programming"}, Limit: 10})
	if got := strings.Join(resultURLs(scored), ","); got != "/go,/rust" {
		t.Errorf("scored = %s, want /go,/rust", got)
	}
}

func TestStrategyByName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"", StrategyScored},
		{"scored", StrategyScored},
		{"all", StrategyAll},
	}
	for _, tt := range tests {
		s, err := StrategyByName(tt.name)
		if err != nil {
			t.Fatalf("StrategyByName(%q): %v", tt.name, err)
		}
		if s.Name() != tt.want {
			t.Errorf("StrategyByName(%q) = %s", tt.name, s.Name())
		}
	}
	if _, err := StrategyByName("fuzzy"); !errors.Is(err, models.ErrParse) {
		t.Errorf("unknown strategy error = %v", err)
	}
}

func TestEngine_Query(t *testing.T) {
	e := New(testIndex())
	res, err := e.Query(models.SearchRequest{Query: "  programming ", Strategy: "all", Limit: 500}, 10, 1)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(res.Results) != 1 || res.Query != "programming" {
		t.Errorf("Query = %+v", res)
	}
}

func TestLoad(t *testing.T) {
	data, err := testIndex().ToJSON()
	if err != nil {
		t.Fatal(err)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/search-index.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(data)
	})
	mux.HandleFunc("/broken.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"version":1,"documents":[`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	ctx := context.Background()

	e, err := Load(ctx, srv.URL+"/search-index.json")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if e.DocumentCount() != 2 || e.TermCount() == 0 {
		t.Errorf("loaded %d documents, %d terms", e.DocumentCount(), e.TermCount())
	}
	if len(e.Search("programming", 10).Results) != 2 {
		t.Error("loaded engine does not search")
	}

	if _, err := Load(ctx, srv.URL+"/missing.json"); !errors.Is(err, models.ErrNetwork) {
		t.Errorf("missing index error = %v", err)
	}
	if _, err := Load(ctx, srv.URL+"/broken.json"); !errors.Is(err, models.ErrSerialization) {
		t.Errorf("broken index error = %v", err)
	}
}

func TestFromJSON(t *testing.T) {
	data, err := testIndex().ToJSONPretty()
	if err != nil {
		t.Fatal(err)
	}
	e, err := FromJSON(data)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if e.DocumentCount() != 2 {
		t.Errorf("DocumentCount = %d", e.DocumentCount())
	}
}
