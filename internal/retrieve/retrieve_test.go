package retrieve

import (
	"context"
	"errors"
	"testing"

	"github.com/answerdock/answerdock/internal/chunk"
	"github.com/answerdock/answerdock/internal/index"
	"github.com/answerdock/answerdock/internal/log"
)

type fakeEmbedder struct {
	vector []float32
	err    error
}

func (f *fakeEmbedder) EmbedOne(context.Context, string) ([]float32, error) {
	return f.vector, f.err
}

type fakeSearcher struct {
	results []index.Result
	err     error
	gotK    int
}

func (f *fakeSearcher) Search(_ context.Context, _ []float32, k int) ([]index.Result, error) {
	f.gotK = k
	return f.results, f.err
}

func testChunk(t *testing.T, text string) chunk.Chunk {
	t.Helper()
	c, err := chunk.New(text, "doc.txt", "", "", "", 0)
	if err != nil {
		t.Fatalf("chunk.New() error = %v", err)
	}
	return c
}

func TestRetrieve(t *testing.T) {
	ctx := context.Background()

	t.Run("gates on distance", func(t *testing.T) {
		searcher := &fakeSearcher{results: []index.Result{
			{Chunk: testChunk(t, "close passage"), Distance: 0.4},
			{Chunk: testChunk(t, "borderline passage"), Distance: 1.8},
			{Chunk: testChunk(t, "distant passage"), Distance: 2.5},
		}}
		r := New(&fakeEmbedder{vector: []float32{1, 0}}, searcher, log.NewNop())

		got, err := r.Retrieve(ctx, "question", 3)
		if err != nil {
			t.Fatalf("Retrieve() error = %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("len(chunks) = %d, want 2 (gate at exactly 1.8 admits)", len(got))
		}
		if got[0].Text != "close passage" || got[1].Text != "borderline passage" {
			t.Errorf("chunks = %q, %q", got[0].Text, got[1].Text)
		}
	})

	t.Run("all beyond gate returns empty", func(t *testing.T) {
		searcher := &fakeSearcher{results: []index.Result{
			{Chunk: testChunk(t, "distant passage"), Distance: 3.1},
		}}
		r := New(&fakeEmbedder{vector: []float32{1, 0}}, searcher, log.NewNop())

		got, err := r.Retrieve(ctx, "unrelated question", 3)
		if err != nil {
			t.Fatalf("Retrieve() error = %v", err)
		}
		if len(got) != 0 {
			t.Errorf("len(chunks) = %d, want 0", len(got))
		}
	})

	t.Run("empty corpus surfaces ErrIndexUnavailable", func(t *testing.T) {
		searcher := &fakeSearcher{err: index.ErrIndexUnavailable}
		r := New(&fakeEmbedder{vector: []float32{1, 0}}, searcher, log.NewNop())

		_, err := r.Retrieve(ctx, "question", 3)
		if !errors.Is(err, index.ErrIndexUnavailable) {
			t.Errorf("Retrieve() error = %v, want ErrIndexUnavailable", err)
		}
	})

	t.Run("embed failure surfaces", func(t *testing.T) {
		wantErr := errors.New("embedder offline")
		r := New(&fakeEmbedder{err: wantErr}, &fakeSearcher{}, log.NewNop())

		_, err := r.Retrieve(ctx, "question", 3)
		if !errors.Is(err, wantErr) {
			t.Errorf("Retrieve() error = %v, want wrapped %v", err, wantErr)
		}
	})

	t.Run("default k applied", func(t *testing.T) {
		searcher := &fakeSearcher{}
		r := New(&fakeEmbedder{vector: []float32{1, 0}}, searcher, log.NewNop())

		if _, err := r.Retrieve(ctx, "question", 0); err != nil {
			t.Fatalf("Retrieve() error = %v", err)
		}
		if searcher.gotK != DefaultTopK {
			t.Errorf("search k = %d, want %d", searcher.gotK, DefaultTopK)
		}
	})

	t.Run("custom gate", func(t *testing.T) {
		searcher := &fakeSearcher{results: []index.Result{
			{Chunk: testChunk(t, "moderate passage"), Distance: 1.0},
		}}
		r := New(&fakeEmbedder{vector: []float32{1, 0}}, searcher, log.NewNop(),
			WithMaxDistance(0.5))

		got, err := r.Retrieve(ctx, "question", 3)
		if err != nil {
			t.Fatalf("Retrieve() error = %v", err)
		}
		if len(got) != 0 {
			t.Errorf("len(chunks) = %d, want 0 under tightened gate", len(got))
		}
	})
}
