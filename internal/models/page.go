// Package models defines core data structures for pages, queries, manifests, and search results.
package models

import "time"

// Page is a rendered page handed to the search subsystem by the content pipeline.
// The search subsystem never mutates it.
type Page struct {
	URL         string     `json:"url" yaml:"url" toml:"url"`
	Title       string     `json:"title" yaml:"title" toml:"title"`
	Content     string     `json:"content" yaml:"content" toml:"content"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
	Summary     string     `json:"summary,omitempty" yaml:"summary,omitempty" toml:"summary,omitempty"`
	Lang        string     `json:"lang,omitempty" yaml:"lang,omitempty" toml:"lang,omitempty"`
	Tags        []string   `json:"tags,omitempty" yaml:"tags,omitempty" toml:"tags,omitempty"`
	Date        *time.Time `json:"date,omitempty" yaml:"date,omitempty" toml:"date,omitempty"`
	Draft       bool       `json:"draft,omitempty" yaml:"draft,omitempty" toml:"draft,omitempty"`
}

// Excerpt returns the description, falling back to the summary.
func (p *Page) Excerpt() string {
	if p.Description != "" {
		return p.Description
	}
	return p.Summary
}

// LangOr returns the page language, or fallback when the page has none.
func (p *Page) LangOr(fallback string) string {
	if p.Lang != "" {
		return p.Lang
	}
	return fallback
}
