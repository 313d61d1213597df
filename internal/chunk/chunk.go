// Package chunk turns cleaned document text into bounded, section-tagged
// passages with stable identity.
//
// The pipeline is: Clean → section split (heading heuristic) → paragraph
// budgeting → Chunk records carrying provenance (source, page, section,
// fingerprint, chunk ID, location). Chunks are immutable once created.
package chunk

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultSection is the section tag for passages with no preceding heading.
const DefaultSection = "Unknown"

var (
	// ErrEmptyText indicates a chunk was constructed with no text.
	ErrEmptyText = errors.New("chunk text is empty")

	// ErrEmptySource indicates a chunk was constructed with no source document.
	ErrEmptySource = errors.New("chunk source is empty")
)

// Chunk is a bounded passage of extracted document text with provenance
// metadata. Two chunks with equal Hash and equal Source are duplicates.
type Chunk struct {
	Text     string `json:"text"`
	Source   string `json:"source"`
	Page     string `json:"page,omitempty"`    // page or sheet marker, empty when absent
	Section  string `json:"section"`           // nearest preceding heading
	Hash     string `json:"chunk_hash"`        // fingerprint of source|page|text
	ID       string `json:"chunk_id"`          // human-debuggable stable identifier
	Location string `json:"location,omitempty"` // upload path, URL, or cloud pointer
}

// New validates and constructs a Chunk. The fingerprint and ID are
// derived here so callers cannot produce a chunk with mismatched identity.
// ordinal is the passage index within the (source, page) ingest call.
func New(text, source, page, section, location string, ordinal int) (Chunk, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Chunk{}, ErrEmptyText
	}
	if strings.TrimSpace(source) == "" {
		return Chunk{}, ErrEmptySource
	}
	if section == "" {
		section = DefaultSection
	}

	return Chunk{
		Text:     text,
		Source:   source,
		Page:     page,
		Section:  section,
		Hash:     Fingerprint(source, page, text),
		ID:       MakeID(source, page, ordinal),
		Location: location,
	}, nil
}

// MakeID derives the stable, human-debuggable chunk identifier:
// "{source}_p{page}_s{ordinal}" when a page marker exists,
// "{source}_s{ordinal}" otherwise.
func MakeID(source, page string, ordinal int) string {
	if page != "" {
		return fmt.Sprintf("%s_p%s_s%d", source, page, ordinal)
	}
	return fmt.Sprintf("%s_s%d", source, ordinal)
}
