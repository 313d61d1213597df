// Package embed orchestrates embedding generation for the ingest and
// query paths. Both paths MUST share one Provider: mixing embedding
// functions silently corrupts relevance ordering in the vector index.
package embed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/firebase/genkit/go/ai"
	"golang.org/x/time/rate"
)

// DefaultTimeout bounds a single embedding call. Embedding depends on
// external or resource-heavy compute and must not block indefinitely.
const DefaultTimeout = 30 * time.Second

var (
	// ErrNoEmbeddings indicates the backend returned no vectors.
	ErrNoEmbeddings = errors.New("embedder returned no embeddings")

	// ErrCountMismatch indicates the backend returned a different number
	// of vectors than texts requested.
	ErrCountMismatch = errors.New("embedding count does not match input count")

	// ErrZeroVector indicates the backend returned an all-zero vector,
	// which cannot be normalized.
	ErrZeroVector = errors.New("embedder returned a zero vector")
)

// Backend is the embedding function consumed by Provider. Genkit's
// ai.Embedder satisfies it; tests provide a deterministic fake.
// Interfaces are defined by the consumer, not the provider.
type Backend interface {
	Embed(ctx context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error)
}

// Provider turns passage text into fixed-size, unit-normalized dense
// vectors. Safe for concurrent use.
type Provider struct {
	backend Backend
	limiter *rate.Limiter
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Provider.
type Option func(*Provider)

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithRateLimiter installs a proactive rate limiter in front of the
// backend call. nil disables limiting.
func WithRateLimiter(l *rate.Limiter) Option {
	return func(p *Provider) { p.limiter = l }
}

// New creates a Provider over the given backend.
func New(backend Backend, logger *slog.Logger, opts ...Option) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Provider{
		backend: backend,
		timeout: DefaultTimeout,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Embed returns one unit-normalized vector per input text, positionally
// aligned. An empty input is a no-op. All vectors in one response share
// a dimensionality; the caller (the index store) enforces consistency
// across calls.
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for embed rate limiter: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	docs := make([]*ai.Document, len(texts))
	for i, t := range texts {
		docs[i] = ai.DocumentFromText(t, nil)
	}

	resp, err := p.backend.Embed(ctx, &ai.EmbedRequest{Input: docs})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("embedding timeout after %s: %w", p.timeout, err)
		}
		return nil, fmt.Errorf("generating embeddings: %w", err)
	}

	if resp == nil || len(resp.Embeddings) == 0 {
		return nil, ErrNoEmbeddings
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrCountMismatch, len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		if e == nil || len(e.Embedding) == 0 {
			return nil, fmt.Errorf("%w: index %d", ErrNoEmbeddings, i)
		}
		v, err := normalize(e.Embedding)
		if err != nil {
			return nil, fmt.Errorf("embedding %d: %w", i, err)
		}
		vectors[i] = v
	}

	p.logger.Debug("embedded texts", "count", len(texts), "dimension", len(vectors[0]))
	return vectors, nil
}

// EmbedOne embeds a single text. Convenience for the query path.
func (p *Provider) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// normalize scales v to unit L2 length. Backends are expected to return
// normalized vectors already; this makes the squared-L2 relevance gate
// hold regardless of backend behavior.
func normalize(v []float32) ([]float32, error) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return nil, ErrZeroVector
	}
	inv := 1 / math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out, nil
}
