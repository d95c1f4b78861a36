package search

import (
	"strings"

	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/query"
)

// ProcessRequest applies limit defaults to req and parses it into a query and strategy.
// Unparseable queries become empty queries, which match nothing; only an unknown
// strategy name is an error.
func ProcessRequest(req *models.SearchRequest, defaultLimit, maxLimit int) (models.SearchQuery, Strategy, error) {
	req.Query = strings.TrimSpace(req.Query)
	req.Normalize(defaultLimit, maxLimit)
	strategy, err := StrategyByName(req.Strategy)
	if err != nil {
		return models.SearchQuery{}, nil, err
	}
	return query.Parse(req.Query, req.Limit), strategy, nil
}
