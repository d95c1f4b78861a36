package models

// SearchResult is a single ranked hit. Results are ephemeral and never persisted.
type SearchResult struct {
	URL         string  `json:"url"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Score       float64 `json:"score"`
	Snippet     string  `json:"snippet,omitempty"`
}

// SearchResults is the envelope returned by query entry points.
type SearchResults struct {
	Query      string          `json:"query"`
	Total      int             `json:"total"`
	Results    []*SearchResult `json:"results"`
	DurationMs int64           `json:"duration_ms"`
	// Suggestions holds corrected queries when nothing matched.
	Suggestions []string `json:"suggestions,omitempty"`
}

// EmptyResults returns an envelope with no hits for query.
func EmptyResults(query string) *SearchResults {
	return &SearchResults{Query: query, Results: []*SearchResult{}}
}
