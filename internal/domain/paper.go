// Package domain holds the data model for the literature-research core:
// papers, validated summaries, hypotheses, branches, and loop state.
package domain

import "strings"

// Author is a single paper author.
type Author struct {
	ID   string
	Name string
}

// PaperRef is a lightweight search result describing a paper.
type PaperRef struct {
	PaperID           string
	Title             string
	Abstract          string
	Authors           []Author
	Year              int
	CitationCount     int
	FieldsOfStudy     []string
	PublicationTypes  []string
	ExternalIDs       map[string]string // e.g. {"DOI": "...", "ArXiv": "..."}
	OpenAccessPDFURL  string
}

// IsPreprint reports whether the paper ID identifies an arXiv preprint
// rather than a canonical bibliographic ID.
func (p PaperRef) IsPreprint() bool {
	return strings.HasPrefix(p.PaperID, "arxiv:")
}

// Validate enforces the PaperRef invariant: paper_id non-empty.
func (p PaperRef) Validate() error {
	if strings.TrimSpace(p.PaperID) == "" {
		return NewInvariantError("PaperRef", "paper_id must be non-empty")
	}
	return nil
}

// PaperDetails extends PaperRef with optionally extracted full text and venue.
type PaperDetails struct {
	PaperRef
	FullText string
	Venue    string
}

// HasContent reports whether there is any text usable for summarization.
func (d PaperDetails) HasContent() bool {
	return d.FullText != "" || d.Abstract != ""
}

// Content returns the best available text for summarization: full text if
// present, otherwise the abstract.
func (d PaperDetails) Content() string {
	if d.FullText != "" {
		return d.FullText
	}
	return d.Abstract
}
