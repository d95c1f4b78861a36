package models

// DefaultLimit is the result limit used when a query does not set one.
const DefaultLimit = 10

// SearchQuery is a parsed query. It is built once per search call and not modified afterwards.
type SearchQuery struct {
	Raw   string   `json:"query"`
	Terms []string `json:"terms"`
	Limit int      `json:"limit,omitempty"`
}

// IsEmpty reports whether the query produced no terms.
func (q SearchQuery) IsEmpty() bool {
	return len(q.Terms) == 0
}

// SearchRequest is the body of a search API request.
type SearchRequest struct {
	Query    string `json:"query"`
	Limit    int    `json:"limit,omitempty"`
	Lang     string `json:"lang,omitempty"`
	Strategy string `json:"strategy,omitempty"` // "scored" (default) or "all"
}

// Normalize applies the default limit and caps it at maxLimit.
// maxLimit <= 0 means no cap.
func (r *SearchRequest) Normalize(defaultLimit, maxLimit int) {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	if r.Limit <= 0 {
		r.Limit = defaultLimit
	}
	if maxLimit > 0 && r.Limit > maxLimit {
		r.Limit = maxLimit
	}
}
