package indexer

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/shiori/internal/config"
	"github.com/hyperjump/shiori/internal/keyword"
	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/simple"
	"github.com/hyperjump/shiori/internal/storage"
)

func testPages() []*models.Page {
	return []*models.Page{
		{URL: "/rust/", Title: "Learning Rust", Content: "<p>Rust programming for systems.</p>", Tags: []string{"rust"}},
		{URL: "/go/", Title: "Learning Go", Content: "<p>Go programming with goroutines.</p>", Lang: "en"},
		{URL: "/ja/tokyo/", Title: "東京の旅", Content: "<p>東京で食べる</p>", Lang: "ja"},
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return config.Default(t.TempDir())
}

func TestSimpleIndexFile(t *testing.T) {
	tests := []struct {
		lang string
		want string
	}{
		{"en", "search-index.json"},
		{"ja", "search-index.ja.json"},
		{"pt-br", "search-index.pt-br.json"},
	}
	for _, tt := range tests {
		if got := SimpleIndexFile("search-index.json", tt.lang, "en"); got != tt.want {
			t.Errorf("SimpleIndexFile(%q) = %q, want %q", tt.lang, got, tt.want)
		}
	}
}

func TestBuilder_Simple(t *testing.T) {
	cfg := testConfig(t)
	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	report, err := NewBuilder(cfg, WithHistory(store)).Build(context.Background(), testPages())
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Languages) != 2 || report.Documents() != 3 {
		t.Fatalf("report = %+v", report)
	}
	if report.Languages[0].Lang != "en" || report.Languages[1].Lang != "ja" {
		t.Errorf("languages not sorted: %+v", report.Languages)
	}

	en, err := simple.ReadFromFile(filepath.Join(cfg.Site.OutputDir, "search-index.json"))
	if err != nil {
		t.Fatal(err)
	}
	if got := en.Search("programming"); len(got) != 2 {
		t.Errorf("en search returned %d documents, want 2", len(got))
	}
	ja, err := simple.ReadFromFile(filepath.Join(cfg.Site.OutputDir, "search-index.ja.json"))
	if err != nil {
		t.Fatal(err)
	}
	if got := ja.Search("東京"); len(got) != 1 || got[0].URL != "/ja/tokyo/" {
		t.Errorf("ja search = %+v", got)
	}
	if _, err := os.Stat(DeliveryDir(cfg.Site.OutputDir, "en")); !os.IsNotExist(err) {
		t.Error("simple index within the size limit should not be chunked")
	}

	recs, err := store.GetBuild(context.Background(), report.BuildID)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 || recs[0].Engine != models.EngineSimple || recs[0].Documents != 2 {
		t.Errorf("history = %+v", recs)
	}
}

func TestBuilder_PageErrorPolicy(t *testing.T) {
	pages := append(testPages(), &models.Page{Title: "No URL"})

	t.Run("abort", func(t *testing.T) {
		cfg := testConfig(t)
		_, err := NewBuilder(cfg).Build(context.Background(), pages)
		if !models.IsKind(err, models.KindIndex) {
			t.Fatalf("err = %v, want index error", err)
		}
		if _, statErr := os.Stat(filepath.Join(cfg.Site.OutputDir, "search-index.json")); !os.IsNotExist(statErr) {
			t.Error("aborted build should write nothing")
		}
	})

	t.Run("skip", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Search.OnPageError = config.OnPageErrorSkip
		report, err := NewBuilder(cfg).Build(context.Background(), pages)
		if err != nil {
			t.Fatal(err)
		}
		if report.Skipped != 1 || report.Documents() != 3 {
			t.Errorf("report = %+v", report)
		}
	})
}

func TestBuilder_DuplicateURL(t *testing.T) {
	pages := append(testPages(),
		&models.Page{URL: "/rust/", Title: "Rust again", Content: "<p>programming</p>"},
		&models.Page{URL: "/go/", Title: "Go 入門", Content: "<p>入門</p>", Lang: "ja"},
	)

	t.Run("abort", func(t *testing.T) {
		_, err := NewBuilder(testConfig(t)).Build(context.Background(), pages)
		if !models.IsKind(err, models.KindIndex) {
			t.Fatalf("err = %v, want index error", err)
		}
	})

	for _, engine := range []string{config.EngineSimple, config.EngineBleve} {
		t.Run("skip "+engine, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.Search.Engine = engine
			cfg.Search.OnPageError = config.OnPageErrorSkip
			report, err := NewBuilder(cfg).Build(context.Background(), pages)
			if err != nil {
				t.Fatal(err)
			}
			if report.Skipped != 1 || report.Documents() != 4 {
				t.Errorf("report = %+v, want 1 skipped and 4 documents", report)
			}
		})
	}
}

func TestBuilder_SimpleRecordsLanguage(t *testing.T) {
	cfg := testConfig(t)
	if _, err := NewBuilder(cfg).Build(context.Background(), testPages()); err != nil {
		t.Fatal(err)
	}
	en, err := simple.ReadFromFile(filepath.Join(cfg.Site.OutputDir, "search-index.json"))
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range en.Documents {
		if d.Lang != "en" {
			t.Errorf("document %s lang = %q, want en", d.URL, d.Lang)
		}
	}
}

func TestBuilder_Disabled(t *testing.T) {
	cfg := testConfig(t)
	off := false
	cfg.Search.Enabled = &off
	report, err := NewBuilder(cfg).Build(context.Background(), testPages())
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Languages) != 0 {
		t.Errorf("disabled build produced %+v", report.Languages)
	}
	if _, err := os.Stat(cfg.Site.OutputDir); !os.IsNotExist(err) {
		t.Error("disabled build should not create output")
	}
}

func TestBuilder_AutoChunkOversize(t *testing.T) {
	cfg := testConfig(t)
	cfg.Search.SimpleMaxSize = 64
	cfg.Search.ChunkSize = 100
	cfg.Search.AutoChunkOversize = true

	report, err := NewBuilder(cfg).Build(context.Background(), testPages())
	if err != nil {
		t.Fatal(err)
	}
	en := report.Languages[0]
	if en.Chunks == 0 {
		t.Fatalf("expected oversized index to be chunked: %+v", en)
	}

	outDir := DeliveryDir(cfg.Site.OutputDir, "en")
	m, err := ReadManifest(filepath.Join(outDir, models.ManifestFileName))
	if err != nil {
		t.Fatal(err)
	}
	got, err := ReassembleChunks(m, outDir, "search-index.json")
	if err != nil {
		t.Fatal(err)
	}
	want, err := os.ReadFile(en.Output)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Error("reassembled chunks differ from the simple index file")
	}
}

func TestBuilder_Bleve(t *testing.T) {
	cfg := testConfig(t)
	cfg.Search.Engine = config.EngineBleve
	cfg.Search.ChunkSize = 4096

	report, err := NewBuilder(cfg).Build(context.Background(), testPages())
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Languages) != 2 {
		t.Fatalf("report = %+v", report)
	}
	en := report.Languages[0]
	if en.Engine != models.EngineBleve || en.Documents != 2 || en.Chunks == 0 {
		t.Errorf("en report = %+v", en)
	}

	outDir := DeliveryDir(cfg.Site.OutputDir, "en")
	m, err := ReadManifest(filepath.Join(outDir, models.ManifestFileName))
	if err != nil {
		t.Fatal(err)
	}
	if int64(m.TotalSize) != en.SizeBytes {
		t.Errorf("manifest total %d, report %d", m.TotalSize, en.SizeBytes)
	}

	// Reassembling every file into a fresh directory yields a usable index.
	restored := filepath.Join(t.TempDir(), "restored")
	for _, name := range m.FileNames() {
		data, err := ReassembleChunks(m, outDir, name)
		if err != nil {
			t.Fatal(err)
		}
		dst := filepath.Join(restored, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(dst, data, 0644); err != nil {
			t.Fatal(err)
		}
	}
	si, err := keyword.Open(restored)
	if err != nil {
		t.Fatal(err)
	}
	defer si.Close()
	results, err := si.Search(context.Background(), "programming", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Errorf("restored index returned %d results, want 2", len(results))
	}
}

func TestBuilder_BleveRebuildReplacesOutput(t *testing.T) {
	cfg := testConfig(t)
	cfg.Search.Engine = config.EngineBleve
	b := NewBuilder(cfg)
	ctx := context.Background()

	if _, err := b.Build(ctx, testPages()); err != nil {
		t.Fatal(err)
	}
	stale := filepath.Join(DeliveryDir(cfg.Site.OutputDir, "en"), "chunk_9999.bin")
	if err := os.WriteFile(stale, []byte("stale"), 0644); err != nil {
		t.Fatal(err)
	}
	report, err := b.Build(ctx, testPages()[:1])
	if err != nil {
		t.Fatal(err)
	}
	if report.Languages[0].Documents != 1 {
		t.Errorf("rebuild indexed %d documents, want 1", report.Languages[0].Documents)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("rebuild should clear stale chunks")
	}
}

func TestBuilder_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewBuilder(testConfig(t)).Build(ctx, testPages()); err == nil {
		t.Error("expected error from cancelled context")
	}
}
