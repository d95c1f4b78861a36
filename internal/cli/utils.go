// Package cli formats search results and build reports for the shiori CLI.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hyperjump/shiori/internal/indexer"
	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/pkg/utils"
)

// SearchOutputFormat is the format for command output.
type SearchOutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText SearchOutputFormat = "text"
	// OutputCompact is one result per line.
	OutputCompact SearchOutputFormat = "compact"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON SearchOutputFormat = "json"
)

// ParseFormat validates a --output value.
func ParseFormat(s string) (SearchOutputFormat, error) {
	switch f := SearchOutputFormat(strings.ToLower(s)); f {
	case OutputText, OutputCompact, OutputJSON:
		return f, nil
	case "":
		return OutputText, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text, compact, or json", s)
	}
}

// WriteSearchResults writes search results to w in the given format.
// Unknown formats are written as text.
func WriteSearchResults(w io.Writer, res *models.SearchResults, format SearchOutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, res)
	case OutputCompact:
		for i, r := range res.Results {
			fmt.Fprintf(w, "%d\t%.2f\t%s\t%s\n", i+1, r.Score, r.URL, r.Title)
		}
		return nil
	default:
		writeSearchResultsText(w, res)
		return nil
	}
}

func writeSearchResultsText(w io.Writer, res *models.SearchResults) {
	fmt.Fprintf(w, "\nFound %d results for %q in %dms\n\n", res.Total, res.Query, res.DurationMs)
	for i, r := range res.Results {
		writeOneResult(w, i+1, r)
	}
	if len(res.Results) == 0 && len(res.Suggestions) > 0 {
		fmt.Fprintf(w, "Did you mean: %s\n", strings.Join(res.Suggestions, ", "))
	}
}

func writeOneResult(w io.Writer, rank int, r *models.SearchResult) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "Rank: %d | Score: %.2f\n", rank, r.Score)
	if r.Title != "" {
		fmt.Fprintf(w, "Title: %s\n", r.Title)
	}
	fmt.Fprintf(w, "URL: %s\n", r.URL)
	if r.Snippet != "" {
		fmt.Fprintf(w, "\n%s\n", utils.Truncate(r.Snippet, 200))
	}
	fmt.Fprintln(w)
}

// WriteBuildReport writes a build summary.
func WriteBuildReport(w io.Writer, r *indexer.BuildReport, format SearchOutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, r)
	}
	fmt.Fprintf(w, "Build %s: %d documents in %d languages (%s)\n",
		r.BuildID, r.Documents(), len(r.Languages), r.Duration.Round(time.Millisecond))
	for _, l := range r.Languages {
		line := fmt.Sprintf("  %-6s %-6s %5d docs  %10s", l.Lang, l.Engine, l.Documents, FormatBytes(l.SizeBytes))
		if l.Chunks > 0 {
			line += fmt.Sprintf("  %d chunks", l.Chunks)
		}
		fmt.Fprintf(w, "%s  %s\n", line, l.Output)
	}
	if r.Skipped > 0 {
		fmt.Fprintf(w, "Skipped %d malformed pages\n", r.Skipped)
	}
	return nil
}

// WriteBuildHistory writes build records, newest first as given.
func WriteBuildHistory(w io.Writer, recs []*models.BuildRecord, format SearchOutputFormat) error {
	if format == OutputJSON {
		if recs == nil {
			recs = []*models.BuildRecord{}
		}
		return writeJSON(w, recs)
	}
	if len(recs) == 0 {
		fmt.Fprintln(w, "No builds recorded")
		return nil
	}
	for _, rec := range recs {
		fmt.Fprintf(w, "%s  %-6s %-6s %5d docs  %10s  %s\n",
			rec.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			rec.Lang, rec.Engine, rec.Documents, FormatBytes(rec.SizeBytes), shortID(rec.BuildID))
	}
	return nil
}

// FormatBytes renders n with a binary unit, e.g. "1.5 KiB".
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
