// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
	"time"
)

// Document is one full-text article handed to the pipeline. The caller
// guarantees Text is non-empty: articles without extractable text are
// filtered out at the issue cache boundary. Per prd001-ingest R4.2.
type Document struct {
	// ID identifies the article within its issue (e.g. a DOI suffix or
	// scraper-assigned slug).
	ID string `json:"id" yaml:"id"`

	// Title is the article title as published.
	Title string `json:"title" yaml:"title"`

	// Text is the article body used for extraction: the full text when the
	// scraper captured one, otherwise the abstract.
	Text string `json:"text" yaml:"text"`
}

// IssueInfo is the human-readable descriptor of one journal issue.
type IssueInfo struct {
	// Journal is the journal name (e.g. "Journal of Applied Hydrology").
	Journal string `json:"journal" yaml:"journal"`

	// Volume and Number identify the issue within the journal.
	Volume string `json:"volume" yaml:"volume"`
	Number string `json:"number" yaml:"number"`

	// Year is the publication year.
	Year int `json:"year" yaml:"year"`
}

// String renders the descriptor the way it appears in synthesis prompts,
// e.g. "Vol. 12, No. 3 (2024)".
func (i IssueInfo) String() string {
	var parts []string
	if i.Volume != "" {
		parts = append(parts, "Vol. "+i.Volume)
	}
	if i.Number != "" {
		parts = append(parts, "No. "+i.Number)
	}
	s := strings.Join(parts, ", ")
	if i.Year > 0 {
		if s != "" {
			s += " "
		}
		s += fmt.Sprintf("(%d)", i.Year)
	}
	return s
}

// Article is a cached article row from the issue cache, prior to filtering.
// Per prd001-ingest R2.1.
type Article struct {
	ID       string `json:"id" yaml:"id"`
	Title    string `json:"title" yaml:"title"`
	FullText string `json:"full_text,omitempty" yaml:"full_text,omitempty"`
	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`
}

// Document converts a cached article to a pipeline document. The boolean
// reports whether the article has any extractable text. Per prd001-ingest R4.1.
func (a Article) Document() (Document, bool) {
	text := a.FullText
	if text == "" {
		text = a.Abstract
	}
	if text == "" {
		return Document{}, false
	}
	return Document{ID: a.ID, Title: a.Title, Text: text}, true
}

// IssueFile is the YAML import format for seeding the issue cache.
// Per prd001-ingest R1.1.
type IssueFile struct {
	ScraperKey string    `json:"scraper_key" yaml:"scraper_key"`
	IssueID    string    `json:"issue_id" yaml:"issue_id"`
	Info       IssueInfo `json:"info" yaml:"info"`
	FetchedAt  time.Time `json:"fetched_at,omitempty" yaml:"fetched_at,omitempty"`
	Articles   []Article `json:"articles" yaml:"articles"`
}
