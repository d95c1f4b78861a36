package search

import (
	"sort"

	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/query"
	"github.com/hyperjump/shiori/internal/simple"
)

// Strategy names accepted by StrategyByName.
const (
	StrategyAll    = "all"
	StrategyScored = "scored"
)

// Strategy decides which documents match a parsed query and in what order.
// Both strategies search the same simple.Index and return the same result shape.
type Strategy interface {
	Name() string
	Search(idx *simple.Index, q models.SearchQuery, snippetLen int) []*models.SearchResult
}

// AllTermsMatch returns documents containing every query term, in document order.
// Scores are still computed so callers can display them.
type AllTermsMatch struct{}

// Name implements Strategy.
func (AllTermsMatch) Name() string { return StrategyAll }

// Search implements Strategy.
func (AllTermsMatch) Search(idx *simple.Index, q models.SearchQuery, snippetLen int) []*models.SearchResult {
	docs := idx.SearchTerms(q.Terms)
	if q.Limit > 0 && len(docs) > q.Limit {
		docs = docs[:q.Limit]
	}
	out := make([]*models.SearchResult, 0, len(docs))
	for _, d := range docs {
		out = append(out, toResult(d, query.ScoreDocument(q.Terms, d.Title, d.Terms), q.Terms, snippetLen))
	}
	return out
}

// AnyTermScored returns documents containing any query term, ranked by score.
// A document reached through several terms keeps its highest score; equal scores
// keep document order.
type AnyTermScored struct{}

// Name implements Strategy.
func (AnyTermScored) Name() string { return StrategyScored }

// Search implements Strategy.
func (AnyTermScored) Search(idx *simple.Index, q models.SearchQuery, snippetLen int) []*models.SearchResult {
	scores := make(map[int]float64)
	for _, term := range q.Terms {
		for _, i := range idx.Index[term] {
			if i < 0 || i >= len(idx.Documents) {
				continue
			}
			d := &idx.Documents[i]
			s := query.ScoreDocument(q.Terms, d.Title, d.Terms)
			if prev, ok := scores[i]; !ok || s > prev {
				scores[i] = s
			}
		}
	}

	type hit struct {
		doc   int
		score float64
	}
	hits := make([]hit, 0, len(scores))
	for i, s := range scores {
		hits = append(hits, hit{i, s})
	}
	sort.Slice(hits, func(a, b int) bool {
		if hits[a].score != hits[b].score {
			return hits[a].score > hits[b].score
		}
		return hits[a].doc < hits[b].doc
	})
	if q.Limit > 0 && len(hits) > q.Limit {
		hits = hits[:q.Limit]
	}

	out := make([]*models.SearchResult, 0, len(hits))
	for _, h := range hits {
		out = append(out, toResult(&idx.Documents[h.doc], h.score, q.Terms, snippetLen))
	}
	return out
}

// toResult builds a result whose snippet comes from the document description.
func toResult(d *simple.Document, score float64, terms []string, snippetLen int) *models.SearchResult {
	r := &models.SearchResult{
		URL:         d.URL,
		Title:       d.Title,
		Description: d.Description,
		Score:       score,
	}
	if snippet, ok := query.GenerateSnippet(d.Description, terms, snippetLen); ok {
		r.Snippet = snippet
	}
	return r
}

// StrategyByName maps a request's strategy name to a Strategy. Empty means scored.
func StrategyByName(name string) (Strategy, error) {
	switch name {
	case "", StrategyScored:
		return AnyTermScored{}, nil
	case StrategyAll:
		return AllTermsMatch{}, nil
	}
	return nil, models.Errorf(models.KindParse, "select strategy", "", "unknown strategy %q", name)
}

var (
	_ Strategy = AllTermsMatch{}
	_ Strategy = AnyTermScored{}
)
