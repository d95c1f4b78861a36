// Package query provides the tokenizer, relevance scoring, and snippet extraction
// shared by the index builders and the client-side search engine.
package query

import (
	"strings"
	"unicode"

	"github.com/hyperjump/shiori/internal/models"
)

// maxWholeCJKBytes bounds the length of a CJK run that is also kept as one term.
const maxWholeCJKBytes = 20

// Tokenize splits text into lower-cased terms.
//
// Words are split on any non-alphanumeric rune and kept when at least two bytes long.
// Runes from CJK, Kana, and Hangul blocks are then collected into one run, which
// contributes every rune, every adjacent bigram, and (when short) the whole run.
// The result keeps first-occurrence order with duplicates removed.
func Tokenize(text string) []string {
	seen := make(map[string]struct{})
	terms := make([]string, 0)
	add := func(term string) {
		if _, ok := seen[term]; ok {
			return
		}
		seen[term] = struct{}{}
		terms = append(terms, term)
	}

	for _, word := range strings.FieldsFunc(text, func(r rune) bool { return !isAlphanumeric(r) }) {
		if len(word) >= 2 {
			add(strings.ToLower(word))
		}
	}

	var cjk []rune
	for _, r := range text {
		if IsCJK(r) {
			cjk = append(cjk, r)
		}
	}
	if len(cjk) == 0 {
		return terms
	}
	for _, r := range cjk {
		add(string(r))
	}
	for i := 0; i+1 < len(cjk); i++ {
		add(string(cjk[i : i+2]))
	}
	if whole := string(cjk); len(whole) <= maxWholeCJKBytes && len(cjk) >= 2 {
		add(strings.ToLower(whole))
	}
	return terms
}

// Parse tokenizes raw into a SearchQuery. A non-positive limit becomes models.DefaultLimit.
func Parse(raw string, limit int) models.SearchQuery {
	if limit <= 0 {
		limit = models.DefaultLimit
	}
	return models.SearchQuery{
		Raw:   raw,
		Terms: Tokenize(raw),
		Limit: limit,
	}
}

// NormalizeTerm lower-cases and trims a term, e.g. a tag.
func NormalizeTerm(term string) string {
	return strings.ToLower(strings.TrimSpace(term))
}

func isAlphanumeric(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r)
}

// IsCJK reports whether r is a CJK ideograph, Hiragana, Katakana, or Hangul syllable.
func IsCJK(r rune) bool {
	switch {
	case r >= 0x4E00 && r <= 0x9FFF, // unified ideographs
		r >= 0x3400 && r <= 0x4DBF,   // extension A
		r >= 0x20000 && r <= 0x2A6DF, // extension B
		r >= 0x2A700 && r <= 0x2B73F, // extension C
		r >= 0x2B740 && r <= 0x2B81F, // extension D
		r >= 0x2B820 && r <= 0x2CEAF, // extension E
		r >= 0x2CEB0 && r <= 0x2EBEF, // extension F
		r >= 0x30000 && r <= 0x3134F, // extension G
		r >= 0xF900 && r <= 0xFAFF,   // compatibility ideographs
		r >= 0x2F800 && r <= 0x2FA1F, // compatibility supplement
		r >= 0x3040 && r <= 0x309F,   // hiragana
		r >= 0x30A0 && r <= 0x30FF,   // katakana
		r >= 0xAC00 && r <= 0xD7AF:   // hangul syllables
		return true
	}
	return false
}
