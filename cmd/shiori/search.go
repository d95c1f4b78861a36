package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyperjump/shiori/internal/cli"
	"github.com/hyperjump/shiori/internal/config"
	"github.com/hyperjump/shiori/internal/indexer"
	"github.com/hyperjump/shiori/internal/keyword"
	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/search"
	"github.com/hyperjump/shiori/internal/simple"
)

var searchOpts struct {
	engine    string
	strategy  string
	lang      string
	limit     int
	output    string
	serverURL string
	indexURL  string
}

var searchCmd = &cobra.Command{
	Use:   "search [flags] <query>",
	Short: "Search a built index",
	Long: `Search the index built for a language. The query is all remaining arguments
joined by spaces, so multi-word queries work with or without quotes.`,
	Example: `  shiori search rust programming
  shiori search --lang ja 東京
  shiori search --strategy all --limit 5 "learning go"
  shiori search --index-url https://example.com/search-index.json rust
  shiori search --server http://localhost:8080 rust`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	f := searchCmd.Flags()
	f.StringVar(&searchOpts.engine, "engine", "", "index to query: simple or bleve (default: search.engine)")
	f.StringVar(&searchOpts.strategy, "strategy", search.StrategyScored, "simple index strategy: scored or all")
	f.StringVar(&searchOpts.lang, "lang", "", "language (default: site.default_lang)")
	f.IntVarP(&searchOpts.limit, "limit", "n", 0, "number of results (default: search.default_limit)")
	f.StringVarP(&searchOpts.output, "output", "o", "text", "output format: text, compact, or json")
	f.StringVar(&searchOpts.serverURL, "server", "", "query a running shiori server instead of local files")
	f.StringVar(&searchOpts.indexURL, "index-url", "", "fetch a simple index over HTTP instead of reading the output dir")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	q := joinQuery(args)
	if q == "" {
		return fmt.Errorf("empty query")
	}
	format, err := cli.ParseFormat(searchOpts.output)
	if err != nil {
		return err
	}
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.logger.Sync()

	req := models.SearchRequest{
		Query:    q,
		Limit:    searchOpts.limit,
		Lang:     searchOpts.lang,
		Strategy: searchOpts.strategy,
	}
	if req.Lang == "" {
		req.Lang = e.cfg.Site.DefaultLang
	}
	engine := searchOpts.engine
	if engine == "" {
		engine = e.cfg.Search.Engine
	}

	var res *models.SearchResults
	switch {
	case searchOpts.serverURL != "":
		res, err = searchViaHTTP(cmd.Context(), searchOpts.serverURL, req)
	case engine == config.EngineBleve:
		res, err = searchBleve(cmd.Context(), e, req)
	default:
		res, err = searchSimple(cmd.Context(), e, req)
	}
	if err != nil {
		return err
	}
	return cli.WriteSearchResults(cmd.OutOrStdout(), res, format)
}

func searchSimple(ctx context.Context, e *env, req models.SearchRequest) (*models.SearchResults, error) {
	opts := []search.EngineOption{
		search.WithSnippetLength(e.cfg.Search.SnippetLength),
		search.WithLogger(e.logger),
	}
	var (
		eng *search.Engine
		err error
	)
	if searchOpts.indexURL != "" {
		eng, err = search.Load(ctx, searchOpts.indexURL, opts...)
	} else {
		name := indexer.SimpleIndexFile(e.cfg.Search.SimpleIndexName, req.Lang, e.cfg.Site.DefaultLang)
		var idx *simple.Index
		idx, err = simple.ReadFromFile(filepath.Join(e.cfg.Site.OutputDir, name))
		if err == nil {
			eng = search.New(idx, opts...)
		}
	}
	if err != nil {
		return nil, err
	}
	return eng.Query(req, e.cfg.Search.DefaultLimit, e.cfg.Search.MaxLimit)
}

func searchBleve(ctx context.Context, e *env, req models.SearchRequest) (*models.SearchResults, error) {
	si, err := keyword.Open(filepath.Join(e.cfg.Storage.IndexPath, req.Lang), keyword.WithLogger(e.logger))
	if err != nil {
		return nil, err
	}
	defer si.Close()
	req.Normalize(e.cfg.Search.DefaultLimit, e.cfg.Search.MaxLimit)
	start := time.Now()
	results, err := si.SearchLang(ctx, req.Query, req.Lang, req.Limit)
	if err != nil {
		return nil, err
	}
	return &models.SearchResults{
		Query:      req.Query,
		Total:      len(results),
		Results:    results,
		DurationMs: time.Since(start).Milliseconds(),
	}, nil
}

func searchViaHTTP(ctx context.Context, serverURL string, req models.SearchRequest) (*models.SearchResults, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, serverURL+"/api/v1/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var out models.SearchResults
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}
