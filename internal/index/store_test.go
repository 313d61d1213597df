package index

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/goleak"

	"github.com/answerdock/answerdock/internal/chunk"
	"github.com/answerdock/answerdock/internal/log"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s := New(filepath.Join(dir, "index.bin"), filepath.Join(dir, "chunks.jsonl"), log.NewNop())
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return s
}

func mustChunk(t *testing.T, text, source string, ordinal int) chunk.Chunk {
	t.Helper()
	c, err := chunk.New(text, source, "", "", "", ordinal)
	if err != nil {
		t.Fatalf("chunk.New(%q) error = %v", text, err)
	}
	return c
}

func TestStoreIngest(t *testing.T) {
	ctx := context.Background()

	t.Run("adds and counts", func(t *testing.T) {
		s := newTestStore(t)
		chunks := []chunk.Chunk{
			mustChunk(t, "first passage", "doc.txt", 0),
			mustChunk(t, "second passage", "doc.txt", 1),
		}
		vectors := [][]float32{{1, 0}, {0, 1}}

		added, err := s.Ingest(ctx, chunks, vectors)
		if err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}
		if added != 2 {
			t.Errorf("Ingest() added = %d, want 2", added)
		}
		if got := s.Count(); got != 2 {
			t.Errorf("Count() = %d, want 2", got)
		}
	})

	t.Run("filter reports only unseen chunks", func(t *testing.T) {
		s := newTestStore(t)
		stored := mustChunk(t, "stored passage", "doc.txt", 0)
		fresh := mustChunk(t, "fresh passage", "doc.txt", 1)

		if _, err := s.Ingest(ctx, []chunk.Chunk{stored}, [][]float32{{1, 0}}); err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}

		got := s.FilterNew([]chunk.Chunk{stored, fresh})
		if len(got) != 1 || got[0].ID != fresh.ID {
			t.Errorf("FilterNew() = %v, want only %q", got, fresh.ID)
		}
		if got := s.FilterNew([]chunk.Chunk{stored}); len(got) != 0 {
			t.Errorf("FilterNew() on stored chunk = %v, want empty", got)
		}
	})

	t.Run("re-ingest is idempotent", func(t *testing.T) {
		s := newTestStore(t)
		chunks := []chunk.Chunk{mustChunk(t, "same passage", "doc.txt", 0)}
		vectors := [][]float32{{1, 0}}

		if _, err := s.Ingest(ctx, chunks, vectors); err != nil {
			t.Fatalf("first Ingest() error = %v", err)
		}
		added, err := s.Ingest(ctx, chunks, vectors)
		if err != nil {
			t.Fatalf("second Ingest() error = %v", err)
		}
		if added != 0 {
			t.Errorf("second Ingest() added = %d, want 0", added)
		}
		if got := s.Count(); got != 1 {
			t.Errorf("Count() = %d, want 1", got)
		}
	})

	t.Run("dedup is scoped per source", func(t *testing.T) {
		s := newTestStore(t)
		a := mustChunk(t, "shared text", "a.txt", 0)
		b := mustChunk(t, "shared text", "b.txt", 0)

		added, err := s.Ingest(ctx, []chunk.Chunk{a, b}, [][]float32{{1, 0}, {1, 0}})
		if err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}
		if added != 2 {
			t.Errorf("Ingest() added = %d, want 2 (same text, different sources)", added)
		}
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		s := newTestStore(t)
		added, err := s.Ingest(ctx, nil, nil)
		if err != nil {
			t.Fatalf("Ingest(nil) error = %v", err)
		}
		if added != 0 {
			t.Errorf("Ingest(nil) added = %d, want 0", added)
		}
		if _, err := os.Stat(s.indexPath); !os.IsNotExist(err) {
			t.Error("empty ingest wrote an index artifact")
		}
	})

	t.Run("count mismatch rejected", func(t *testing.T) {
		s := newTestStore(t)
		chunks := []chunk.Chunk{mustChunk(t, "lonely passage", "doc.txt", 0)}

		_, err := s.Ingest(ctx, chunks, nil)
		if !errors.Is(err, ErrCountMismatch) {
			t.Errorf("Ingest() error = %v, want ErrCountMismatch", err)
		}
	})

	t.Run("dimension mismatch rejected and retryable", func(t *testing.T) {
		s := newTestStore(t)
		c := mustChunk(t, "dimension test passage", "doc.txt", 0)
		if _, err := s.Ingest(ctx, []chunk.Chunk{c}, [][]float32{{1, 0, 0}}); err != nil {
			t.Fatalf("seed Ingest() error = %v", err)
		}

		bad := mustChunk(t, "wrong dimension passage", "doc.txt", 1)
		_, err := s.Ingest(ctx, []chunk.Chunk{bad}, [][]float32{{1, 0}})
		if !errors.Is(err, ErrDimensionMismatch) {
			t.Fatalf("Ingest() error = %v, want ErrDimensionMismatch", err)
		}

		// The failed chunk must not be remembered as ingested.
		added, err := s.Ingest(ctx, []chunk.Chunk{bad}, [][]float32{{0, 1, 0}})
		if err != nil {
			t.Fatalf("retry Ingest() error = %v", err)
		}
		if added != 1 {
			t.Errorf("retry Ingest() added = %d, want 1", added)
		}
	})
}

func TestStoreSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("orders by distance", func(t *testing.T) {
		s := newTestStore(t)
		chunks := []chunk.Chunk{
			mustChunk(t, "far passage", "doc.txt", 0),
			mustChunk(t, "near passage", "doc.txt", 1),
			mustChunk(t, "middle passage", "doc.txt", 2),
		}
		vectors := [][]float32{{-1, 0}, {1, 0}, {0, 1}}
		if _, err := s.Ingest(ctx, chunks, vectors); err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}

		results, err := s.Search(ctx, []float32{1, 0}, 2)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(results) != 2 {
			t.Fatalf("Search() returned %d results, want 2", len(results))
		}
		if results[0].Chunk.Text != "near passage" {
			t.Errorf("closest = %q, want %q", results[0].Chunk.Text, "near passage")
		}
		if results[0].Distance > results[1].Distance {
			t.Errorf("results not sorted: %v then %v", results[0].Distance, results[1].Distance)
		}
	})

	t.Run("empty store is unavailable", func(t *testing.T) {
		s := newTestStore(t)
		_, err := s.Search(ctx, []float32{1, 0}, 3)
		if !errors.Is(err, ErrIndexUnavailable) {
			t.Errorf("Search() error = %v, want ErrIndexUnavailable", err)
		}
	})

	t.Run("query dimension checked", func(t *testing.T) {
		s := newTestStore(t)
		c := mustChunk(t, "resident passage", "doc.txt", 0)
		if _, err := s.Ingest(ctx, []chunk.Chunk{c}, [][]float32{{1, 0, 0}}); err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}

		_, err := s.Search(ctx, []float32{1, 0}, 1)
		if !errors.Is(err, ErrDimensionMismatch) {
			t.Errorf("Search() error = %v, want ErrDimensionMismatch", err)
		}
	})
}

func TestStorePersistence(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip across instances", func(t *testing.T) {
		dir := t.TempDir()
		indexPath := filepath.Join(dir, "index.bin")
		metaPath := filepath.Join(dir, "chunks.jsonl")

		s1 := New(indexPath, metaPath, log.NewNop())
		if err := s1.Load(ctx); err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		chunks := []chunk.Chunk{
			mustChunk(t, "persisted passage one", "doc.txt", 0),
			mustChunk(t, "persisted passage two", "doc.txt", 1),
		}
		if _, err := s1.Ingest(ctx, chunks, [][]float32{{1, 0}, {0, 1}}); err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}

		s2 := New(indexPath, metaPath, log.NewNop())
		if err := s2.Load(ctx); err != nil {
			t.Fatalf("reload Load() error = %v", err)
		}
		if got := s2.Count(); got != 2 {
			t.Fatalf("reloaded Count() = %d, want 2", got)
		}

		// Dedup state survives the reload.
		added, err := s2.Ingest(ctx, chunks[:1], [][]float32{{1, 0}})
		if err != nil {
			t.Fatalf("reloaded Ingest() error = %v", err)
		}
		if added != 0 {
			t.Errorf("reloaded Ingest() added = %d, want 0", added)
		}

		results, err := s2.Search(ctx, []float32{1, 0}, 1)
		if err != nil {
			t.Fatalf("reloaded Search() error = %v", err)
		}
		if results[0].Chunk.Text != "persisted passage one" {
			t.Errorf("reloaded closest = %q, want %q", results[0].Chunk.Text, "persisted passage one")
		}
	})

	t.Run("record count mismatch is corruption", func(t *testing.T) {
		dir := t.TempDir()
		indexPath := filepath.Join(dir, "index.bin")
		metaPath := filepath.Join(dir, "chunks.jsonl")

		s1 := New(indexPath, metaPath, log.NewNop())
		if err := s1.Load(ctx); err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		chunks := []chunk.Chunk{
			mustChunk(t, "passage one", "doc.txt", 0),
			mustChunk(t, "passage two", "doc.txt", 1),
		}
		if _, err := s1.Ingest(ctx, chunks, [][]float32{{1, 0}, {0, 1}}); err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}

		// Drop one metadata record behind the store's back.
		data, err := os.ReadFile(metaPath)
		if err != nil {
			t.Fatalf("ReadFile() error = %v", err)
		}
		lines := splitLines(data)
		if err := os.WriteFile(metaPath, lines[0], 0o644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}

		s2 := New(indexPath, metaPath, log.NewNop())
		if err := s2.Load(ctx); !errors.Is(err, ErrCorrupted) {
			t.Errorf("Load() error = %v, want ErrCorrupted", err)
		}
	})

	t.Run("missing partner artifact is corruption", func(t *testing.T) {
		dir := t.TempDir()
		indexPath := filepath.Join(dir, "index.bin")
		metaPath := filepath.Join(dir, "chunks.jsonl")

		s1 := New(indexPath, metaPath, log.NewNop())
		if err := s1.Load(ctx); err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		c := mustChunk(t, "orphaned passage", "doc.txt", 0)
		if _, err := s1.Ingest(ctx, []chunk.Chunk{c}, [][]float32{{1, 0}}); err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}
		if err := os.Remove(metaPath); err != nil {
			t.Fatalf("Remove() error = %v", err)
		}

		s2 := New(indexPath, metaPath, log.NewNop())
		if err := s2.Load(ctx); !errors.Is(err, ErrCorrupted) {
			t.Errorf("Load() error = %v, want ErrCorrupted", err)
		}
	})

	t.Run("garbage index artifact is corruption", func(t *testing.T) {
		dir := t.TempDir()
		indexPath := filepath.Join(dir, "index.bin")
		metaPath := filepath.Join(dir, "chunks.jsonl")
		if err := os.WriteFile(indexPath, []byte("not an index"), 0o644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		if err := os.WriteFile(metaPath, nil, 0o644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}

		s := New(indexPath, metaPath, log.NewNop())
		if err := s.Load(ctx); !errors.Is(err, ErrCorrupted) {
			t.Errorf("Load() error = %v, want ErrCorrupted", err)
		}
	})
}

// splitLines returns the newline-terminated records of data, terminators
// included.
func splitLines(data []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i, b := range data {
		if b == '\n' {
			lines = append(lines, data[start:i+1])
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, data[start:])
	}
	return lines
}
