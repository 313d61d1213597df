package answer

import (
	"testing"

	"github.com/answerdock/answerdock/internal/chunk"
)

func retrievedChunk(t *testing.T, text, source, page, location string, ordinal int) chunk.Chunk {
	t.Helper()
	c, err := chunk.New(text, source, page, "Results", location, ordinal)
	if err != nil {
		t.Fatalf("chunk.New() error = %v", err)
	}
	return c
}

func TestGround(t *testing.T) {
	a := retrievedChunk(t, "alpha passage", "doc.pdf", "3", "gdrive:abc123", 0)
	b := retrievedChunk(t, "beta passage", "doc.pdf", "4", "gdrive:abc123", 0)
	retrieved := []chunk.Chunk{a, b}

	t.Run("cited sentences survive with first-id attribution", func(t *testing.T) {
		out := &modelAnswer{Answer: []sentenceCitation{
			{Sentence: "The trial enrolled 40 patients.", ChunkIDs: []string{a.ID, b.ID}},
		}}

		sentences, refs := ground(out, retrieved)
		if len(sentences) != 1 {
			t.Fatalf("len(sentences) = %d, want 1", len(sentences))
		}
		if sentences[0].ChunkID != a.ID {
			t.Errorf("attributed ChunkID = %q, want first cited %q", sentences[0].ChunkID, a.ID)
		}
		if len(refs) != 1 || refs[0].ChunkID != a.ID {
			t.Errorf("refs = %v, want only the first cited %q", refs, a.ID)
		}
	})

	t.Run("foreign chunk id dropped, sentence collapses", func(t *testing.T) {
		out := &modelAnswer{Answer: []sentenceCitation{
			{Sentence: "Fabricated claim.", ChunkIDs: []string{"other.pdf_s9"}},
		}}

		sentences, refs := ground(out, retrieved)
		if sentences != nil || refs != nil {
			t.Errorf("ground() = %v, %v, want nil, nil", sentences, refs)
		}
	})

	t.Run("foreign first id drops the sentence despite later valid id", func(t *testing.T) {
		out := &modelAnswer{Answer: []sentenceCitation{
			{Sentence: "Claim.", ChunkIDs: []string{"other.pdf_s9", b.ID}},
		}}

		sentences, refs := ground(out, retrieved)
		if sentences != nil || refs != nil {
			t.Errorf("ground() = %v, %v, want nil, nil (first cited id decides)", sentences, refs)
		}
	})

	t.Run("refusal sentence passes through uncited", func(t *testing.T) {
		out := &modelAnswer{Answer: []sentenceCitation{
			{Sentence: Refusal},
		}}

		sentences, refs := ground(out, retrieved)
		if len(sentences) != 1 || sentences[0].Text != Refusal {
			t.Fatalf("sentences = %v, want verbatim refusal", sentences)
		}
		if sentences[0].ChunkID != "" {
			t.Errorf("refusal sentence attributed to %q, want uncited", sentences[0].ChunkID)
		}
		if refs != nil {
			t.Errorf("refs = %v, want nil", refs)
		}
	})

	t.Run("refusal after cited sentences becomes the sole item", func(t *testing.T) {
		out := &modelAnswer{Answer: []sentenceCitation{
			{Sentence: "Cited claim.", ChunkIDs: []string{a.ID}},
			{Sentence: Refusal},
		}}

		sentences, refs := ground(out, retrieved)
		if len(sentences) != 1 || sentences[0].Text != Refusal {
			t.Fatalf("sentences = %v, want the refusal alone", sentences)
		}
		if refs != nil {
			t.Errorf("refs = %v, want nil", refs)
		}
	})

	t.Run("uncited ordinary sentence dropped", func(t *testing.T) {
		out := &modelAnswer{Answer: []sentenceCitation{
			{Sentence: "Cited claim.", ChunkIDs: []string{a.ID}},
			{Sentence: "Free-floating claim."},
		}}

		sentences, _ := ground(out, retrieved)
		if len(sentences) != 1 || sentences[0].Text != "Cited claim." {
			t.Errorf("sentences = %v, want only the cited claim", sentences)
		}
	})

	t.Run("references deduplicated in citation order", func(t *testing.T) {
		out := &modelAnswer{Answer: []sentenceCitation{
			{Sentence: "First claim.", ChunkIDs: []string{b.ID}},
			{Sentence: "Second claim.", ChunkIDs: []string{a.ID, b.ID}},
		}}

		_, refs := ground(out, retrieved)
		if len(refs) != 2 {
			t.Fatalf("len(refs) = %d, want 2", len(refs))
		}
		if refs[0].ChunkID != b.ID || refs[1].ChunkID != a.ID {
			t.Errorf("refs order = %q, %q, want %q, %q", refs[0].ChunkID, refs[1].ChunkID, b.ID, a.ID)
		}
	})

	t.Run("reference carries provenance and link", func(t *testing.T) {
		out := &modelAnswer{Answer: []sentenceCitation{
			{Sentence: "Claim.", ChunkIDs: []string{a.ID}},
		}}

		_, refs := ground(out, retrieved)
		ref := refs[0]
		if ref.Source != "doc.pdf" || ref.Page != "3" || ref.Section != "Results" {
			t.Errorf("ref = %+v, provenance wrong", ref)
		}
		if ref.Link != "https://drive.google.com/file/d/abc123/view" {
			t.Errorf("ref.Link = %q", ref.Link)
		}
	})
}

func TestDeriveLink(t *testing.T) {
	tests := []struct {
		name     string
		location string
		want     string
	}{
		{"drive pointer", "gdrive:abc123", "https://drive.google.com/file/d/abc123/view"},
		{"empty drive id", "gdrive:", ""},
		{"https passthrough", "https://example.com/doc.pdf", "https://example.com/doc.pdf"},
		{"http passthrough", "http://example.com/doc.pdf", "http://example.com/doc.pdf"},
		{"local path", "/uploads/doc.pdf", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := deriveLink(tt.location); got != tt.want {
				t.Errorf("deriveLink(%q) = %q, want %q", tt.location, got, tt.want)
			}
		})
	}
}
