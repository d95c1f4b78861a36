package extract

import (
	"strings"

	"github.com/hyperjump/shiori/pkg/utils"
)

// inlineTags do not separate words when stripped.
var inlineTags = map[string]bool{
	"a": true, "abbr": true, "b": true, "bdi": true, "cite": true, "code": true,
	"em": true, "i": true, "kbd": true, "mark": true, "q": true, "s": true,
	"samp": true, "small": true, "span": true, "strong": true, "sub": true,
	"sup": true, "time": true, "u": true, "var": true,
}

var entityReplacer = strings.NewReplacer(
	"&nbsp;", " ",
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", "\"",
	"&#39;", "'",
)

// StripHTML returns the visible text of an HTML fragment.
//
// It is a single linear scan: markup inside <...> is dropped, as is everything inside
// script and style elements. Block-level tags become word breaks. The common entities
// are decoded and runs of whitespace collapse to one space.
func StripHTML(html string) string {
	var b strings.Builder
	b.Grow(len(html))
	inTag, inScript, inStyle := false, false, false
	tagStart := 0

	for i := 0; i < len(html); i++ {
		c := html[i]
		switch {
		case c == '<':
			rest := html[i:]
			switch {
			case hasPrefixFold(rest, "<script"):
				inScript = true
			case hasPrefixFold(rest, "</script"):
				inScript = false
			case hasPrefixFold(rest, "<style"):
				inStyle = true
			case hasPrefixFold(rest, "</style"):
				inStyle = false
			}
			inTag = true
			tagStart = i
		case c == '>' && inTag:
			inTag = false
			if !inScript && !inStyle && !inlineTags[tagName(html[tagStart:i])] {
				b.WriteByte(' ')
			}
		case !inTag && !inScript && !inStyle:
			b.WriteByte(c)
		}
	}
	return utils.CollapseWhitespace(entityReplacer.Replace(b.String()))
}

// tagName returns the lower-cased element name of a tag body such as "</strong" or "<a href".
func tagName(tag string) string {
	tag = strings.TrimPrefix(tag, "<")
	tag = strings.TrimPrefix(tag, "/")
	end := 0
	for end < len(tag) {
		c := tag[end]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			break
		}
		end++
	}
	return strings.ToLower(tag[:end])
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
