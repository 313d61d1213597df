package index

import "errors"

var (
	// ErrIndexUnavailable indicates no index exists yet. Callers should
	// surface an ingest-first message rather than an empty result.
	ErrIndexUnavailable = errors.New("vector index unavailable, ingest documents first")

	// ErrDimensionMismatch indicates a vector's dimensionality differs
	// from the index's. All vectors in one index share one dimension.
	ErrDimensionMismatch = errors.New("vector dimension does not match index dimension")

	// ErrCorrupted indicates the persisted index and metadata artifacts
	// disagree and cannot be trusted.
	ErrCorrupted = errors.New("index artifacts corrupted")

	// ErrCountMismatch indicates an ingest batch's chunks and vectors
	// are not positionally aligned.
	ErrCountMismatch = errors.New("chunk count does not match vector count")
)
