package extract

import (
	"bytes"
	"fmt"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/hyperjump/shiori/internal/models"
)

// splitFrontMatter separates a "---" (YAML) or "+++" (TOML) delimited header from the body.
// ok is false when content has no front matter.
func splitFrontMatter(content []byte) (delim string, header, body []byte, ok bool) {
	trimmed := bytes.TrimLeft(content, " \t\r\n\ufeff")
	for _, d := range []string{"---", "+++"} {
		if !bytes.HasPrefix(trimmed, []byte(d)) {
			continue
		}
		rest := trimmed[len(d):]
		end := bytes.Index(rest, []byte("\n"+d))
		if end < 0 {
			return "", nil, content, false
		}
		header = bytes.TrimSpace(rest[:end])
		body = rest[end+1+len(d):]
		return d, header, bytes.TrimLeft(body, "\r\n"), true
	}
	return "", nil, content, false
}

// extractMarkdown reads front matter into the page and keeps the Markdown body as content.
// A file without front matter becomes an untitled page.
func extractMarkdown(content []byte) (*models.Page, error) {
	delim, header, body, ok := splitFrontMatter(content)
	page := &models.Page{}
	if ok {
		var err error
		switch delim {
		case "---":
			err = yaml.Unmarshal(header, page)
		case "+++":
			err = toml.Unmarshal(header, page)
		}
		if err != nil {
			return nil, fmt.Errorf("parse front matter: %w", err)
		}
	}
	page.Content = string(body)
	return page, nil
}
