// Package retrieve answers "which passages are relevant to this
// question" by embedding the query, running nearest-neighbor search,
// and gating results on distance.
package retrieve

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/answerdock/answerdock/internal/chunk"
	"github.com/answerdock/answerdock/internal/index"
)

// DefaultTopK is the neighbor count when the caller passes k <= 0.
const DefaultTopK = 8

// DefaultMaxDistance is the relevance gate over squared L2 distance
// between unit-normalized vectors. The metric ranges 0 (identical) to
// 4 (opposite); 1.8 admits moderately related passages and rejects the
// unrelated tail. Calibrate per embedding model via config.
const DefaultMaxDistance = 1.8

// Embedder turns a query into a unit-normalized vector. Satisfied by
// embed.Provider.
type Embedder interface {
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

// Searcher runs nearest-neighbor search over the corpus. Satisfied by
// index.Store.
type Searcher interface {
	Search(ctx context.Context, vector []float32, k int) ([]index.Result, error)
}

// Retriever embeds queries and gates search results on distance. The
// gate is applied per result, trimming the irrelevant tail of a batch
// whose nearest neighbors are relevant; an all-or-nothing check on the
// closest neighbor alone would keep that tail.
type Retriever struct {
	embedder    Embedder
	searcher    Searcher
	maxDistance float64
	logger      *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithMaxDistance overrides the relevance gate. Non-positive values
// are ignored.
func WithMaxDistance(d float64) Option {
	return func(r *Retriever) {
		if d > 0 {
			r.maxDistance = d
		}
	}
}

// New creates a Retriever.
func New(embedder Embedder, searcher Searcher, logger *slog.Logger, opts ...Option) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Retriever{
		embedder:    embedder,
		searcher:    searcher,
		maxDistance: DefaultMaxDistance,
		logger:      logger.With("component", "retrieve"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve returns up to k chunks relevant to the query, closest
// first. Neighbors beyond the distance gate are dropped; a query with
// no relevant passages returns an empty slice, not an error. An empty
// corpus surfaces index.ErrIndexUnavailable.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]chunk.Chunk, error) {
	if k <= 0 {
		k = DefaultTopK
	}

	vector, err := r.embedder.EmbedOne(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := r.searcher.Search(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	chunks := make([]chunk.Chunk, 0, len(results))
	for _, res := range results {
		if res.Distance > r.maxDistance {
			// Results are sorted ascending, the rest are farther still.
			break
		}
		chunks = append(chunks, res.Chunk)
	}
	r.logger.Debug("retrieved chunks",
		"requested", k, "returned", len(results), "within_gate", len(chunks))
	return chunks, nil
}
