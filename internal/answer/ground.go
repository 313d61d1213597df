package answer

import (
	"strings"

	"github.com/answerdock/answerdock/internal/chunk"
)

// Refusal is the fixed reply when no grounded answer can be produced.
const Refusal = "I don't know. The information is not available in the provided documents."

// refusalPrefix marks a model-produced refusal sentence, which passes
// through grounding without citations.
const refusalPrefix = "I don't know"

// Sentence is one grounded answer sentence. ChunkID is empty for
// refusal sentences.
type Sentence struct {
	Text    string `json:"text"`
	ChunkID string `json:"chunk_id,omitempty"`
}

// Reference describes one cited chunk.
type Reference struct {
	ChunkID string `json:"chunk_id"`
	Source  string `json:"source"`
	Page    string `json:"page,omitempty"`
	Section string `json:"section"`
	Link    string `json:"link,omitempty"`
}

// ground filters model sentences down to those supported by the
// retrieved chunks. Only the first cited chunk_id counts: it must have
// been retrieved this turn, or the sentence is dropped regardless of
// any later ids. A refusal sentence becomes the sole answer item
// immediately. Returns nil when nothing survives.
func ground(out *modelAnswer, retrieved []chunk.Chunk) ([]Sentence, []Reference) {
	byID := make(map[string]chunk.Chunk, len(retrieved))
	for _, c := range retrieved {
		byID[c.ID] = c
	}

	var (
		sentences []Sentence
		refs      []Reference
		cited     = make(map[string]bool)
	)
	for _, sc := range out.Answer {
		text := strings.TrimSpace(sc.Sentence)
		if text == "" {
			continue
		}
		if strings.HasPrefix(text, refusalPrefix) {
			return []Sentence{{Text: text}}, nil
		}
		if len(sc.ChunkIDs) == 0 {
			continue
		}

		id := sc.ChunkIDs[0]
		c, ok := byID[id]
		if !ok {
			continue
		}
		if !cited[id] {
			cited[id] = true
			refs = append(refs, Reference{
				ChunkID: c.ID,
				Source:  c.Source,
				Page:    c.Page,
				Section: c.Section,
				Link:    deriveLink(c.Location),
			})
		}
		sentences = append(sentences, Sentence{Text: text, ChunkID: id})
	}
	if len(sentences) == 0 {
		return nil, nil
	}
	return sentences, refs
}

// deriveLink maps a chunk location to a clickable URL. Drive pointers
// become viewer links, absolute URLs pass through, local paths get no
// link.
func deriveLink(location string) string {
	if id, ok := strings.CutPrefix(location, "gdrive:"); ok && id != "" {
		return "https://drive.google.com/file/d/" + id + "/view"
	}
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return location
	}
	return ""
}
