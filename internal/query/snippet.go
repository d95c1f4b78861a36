package query

import (
	"strings"
	"unicode"
)

// DefaultSnippetLength is the snippet window, in characters, used by the search engine.
const DefaultSnippetLength = 150

const ellipsis = "..."

// GenerateSnippet returns a window of about maxLength characters of text around the
// earliest case-insensitive occurrence of any query term. The window is trimmed to
// whitespace so words are not split, and is marked with an ellipsis on each side
// that does not reach the end of text. ok is false for empty text or no terms.
func GenerateSnippet(text string, queryTerms []string, maxLength int) (snippet string, ok bool) {
	if text == "" || len(queryTerms) == 0 {
		return "", false
	}
	if maxLength <= 0 {
		maxLength = DefaultSnippetLength
	}
	runes := []rune(text)
	lower := make([]rune, len(runes))
	for i, r := range runes {
		lower[i] = unicode.ToLower(r)
	}

	pos, matchLen := -1, 0
	for _, term := range queryTerms {
		if term == "" {
			continue
		}
		tr := []rune(strings.ToLower(term))
		if i := indexRunes(lower, tr); i >= 0 && (pos < 0 || i < pos) {
			pos, matchLen = i, len(tr)
		}
	}
	if pos < 0 {
		pos = 0
	}

	n := len(runes)
	start := pos - maxLength/4
	if start <= 0 {
		start = 0
	} else {
		// Begin after the first whitespace in the lead-in so the window starts on a word.
		moved := false
		for i := start; i < pos; i++ {
			if unicode.IsSpace(runes[i]) {
				start = i + 1
				moved = true
				break
			}
		}
		if !moved {
			start = pos
		}
	}

	end := start + maxLength
	if end >= n {
		end = n
	} else {
		// End on the last whitespace that still keeps the match inside the window.
		for i := end; i >= pos+matchLen; i-- {
			if unicode.IsSpace(runes[i]) {
				end = i
				break
			}
		}
	}

	snippet = strings.TrimSpace(string(runes[start:end]))
	if start > 0 {
		snippet = ellipsis + snippet
	}
	if end < n {
		snippet += ellipsis
	}
	return snippet, true
}

func indexRunes(haystack, needle []rune) int {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return -1
	}
outer:
	for i := 0; i+len(needle) <= len(haystack); i++ {
		for j, r := range needle {
			if haystack[i+j] != r {
				continue outer
			}
		}
		return i
	}
	return -1
}
