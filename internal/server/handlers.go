package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/storage"
)

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req models.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.search(w, r, req)
}

func (s *Server) handleSearchGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := models.SearchRequest{
		Query:    q.Get("q"),
		Lang:     q.Get("lang"),
		Strategy: q.Get("strategy"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		req.Limit = n
	}
	s.search(w, r, req)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request, req models.SearchRequest) {
	if req.Lang == "" {
		req.Lang = s.cfg.Site.DefaultLang
	}
	s.logger.Debug("search request",
		zap.String("query", req.Query),
		zap.String("lang", req.Lang),
		zap.Int("limit", req.Limit))

	if res, ok, err := s.searchBleve(r.Context(), req); ok {
		if err != nil {
			s.logger.Error("search failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.respondJSON(w, http.StatusOK, res)
		return
	}

	s.mu.RLock()
	engine := s.engines[req.Lang]
	s.mu.RUnlock()

	switch {
	case engine != nil:
		results, err := engine.Query(req, s.cfg.Search.DefaultLimit, s.cfg.Search.MaxLimit)
		if err != nil {
			s.respondError(w, statusFor(err), err.Error())
			return
		}
		s.respondJSON(w, http.StatusOK, results)
	default:
		s.respondError(w, http.StatusNotFound, "no search index for language "+strconv.Quote(req.Lang))
	}
}

// searchBleve queries the bleve index for req.Lang, holding the read lock so a
// rebuild cannot close the index mid-query. ok is false when there is no such index.
func (s *Server) searchBleve(ctx context.Context, req models.SearchRequest) (*models.SearchResults, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	si := s.bleve[req.Lang]
	if si == nil {
		return nil, false, nil
	}
	req.Normalize(s.cfg.Search.DefaultLimit, s.cfg.Search.MaxLimit)
	start := time.Now()
	results, err := si.SearchLang(ctx, req.Query, req.Lang, req.Limit)
	if err != nil {
		return nil, true, err
	}
	return &models.SearchResults{
		Query:      req.Query,
		Total:      len(results),
		Results:    results,
		DurationMs: time.Since(start).Milliseconds(),
	}, true, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type langStatus struct {
	Lang      string `json:"lang"`
	Engine    string `json:"engine"`
	Documents int    `json:"documents,omitempty"`
	Terms     int    `json:"terms,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var langs []langStatus
	s.mu.RLock()
	for _, lang := range sortedKeys(s.engines) {
		e := s.engines[lang]
		langs = append(langs, langStatus{Lang: lang, Engine: string(models.EngineSimple), Documents: e.DocumentCount(), Terms: e.TermCount()})
	}
	for _, lang := range sortedKeys(s.bleve) {
		ls := langStatus{Lang: lang, Engine: string(models.EngineBleve)}
		if stats, err := s.bleve[lang].Stats(); err == nil {
			ls.Documents = int(stats.DocumentCount)
		}
		langs = append(langs, ls)
	}
	s.mu.RUnlock()

	resp := map[string]interface{}{
		"engine":    s.cfg.Search.Engine,
		"languages": langs,
		"config": map[string]interface{}{
			"output_dir":    s.cfg.Site.OutputDir,
			"chunk_size":    s.cfg.Search.ChunkSize,
			"database_path": s.cfg.Storage.DatabasePath,
			"index_path":    s.cfg.Storage.IndexPath,
		},
	}
	if s.history != nil {
		builds, err := s.history.LatestByLang(ctx)
		if err != nil {
			s.logger.Error("status: latest builds failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp["builds"] = builds
	}
	if n, err := storage.DiskUsageBytes(s.cfg.Site.OutputDir, s.cfg.Storage.DatabasePath, s.cfg.Storage.IndexPath); err == nil {
		resp["disk_usage_bytes"] = n
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	if s.rebuild == nil {
		s.respondError(w, http.StatusNotImplemented, "rebuild not enabled")
		return
	}
	report, err := s.Rebuild(r.Context())
	if err != nil {
		s.logger.Error("rebuild failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, report)
}

func statusFor(err error) int {
	var se *models.SearchError
	if errors.As(err, &se) {
		switch se.Kind {
		case models.KindParse:
			return http.StatusBadRequest
		case models.KindNotFound:
			return http.StatusNotFound
		}
	}
	return http.StatusInternalServerError
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
