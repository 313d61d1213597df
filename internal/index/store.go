// Package index persists the document corpus as a paired artifact: a
// flat vector index and an ordered metadata log. The two files are
// written together and validated against each other on load; vector
// ordinals are metadata line numbers.
package index

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"github.com/answerdock/answerdock/internal/chunk"
)

// Result pairs a retrieved chunk with its squared L2 distance from the
// query vector.
type Result struct {
	Chunk    chunk.Chunk
	Distance float64
}

// Store owns the resident index and its persisted artifacts. Exactly
// one Store writes a given artifact pair; concurrent processes are
// excluded by an advisory file lock during persist.
type Store struct {
	indexPath string
	metaPath  string
	logger    *slog.Logger

	mu     sync.RWMutex
	flat   flat
	chunks []chunk.Chunk
	seen   map[string]map[string]struct{} // source -> chunk hashes
	loaded bool
}

// New creates a Store over the given artifact paths. Nothing is read
// until Load.
func New(indexPath, metaPath string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		indexPath: indexPath,
		metaPath:  metaPath,
		logger:    logger.With("component", "index"),
		seen:      make(map[string]map[string]struct{}),
	}
}

// Load reads the persisted artifacts into memory. Missing artifacts
// leave the store empty, which is not an error; a metadata log whose
// record count disagrees with the vector count is ErrCorrupted. Load
// is idempotent, later calls are no-ops.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	indexData, indexErr := os.ReadFile(s.indexPath)
	chunks, metaErr := readMetadata(s.metaPath)

	indexMissing := os.IsNotExist(indexErr)
	metaMissing := os.IsNotExist(metaErr)
	switch {
	case indexMissing && metaMissing:
		s.loaded = true
		s.logger.Info("no persisted index, starting empty")
		return nil
	case indexErr != nil && !indexMissing:
		return fmt.Errorf("reading index artifact: %w", indexErr)
	case metaErr != nil && !metaMissing:
		return fmt.Errorf("reading metadata artifact: %w", metaErr)
	case indexMissing != metaMissing:
		return fmt.Errorf("%w: one artifact missing, index=%t metadata=%t",
			ErrCorrupted, !indexMissing, !metaMissing)
	}

	var f flat
	if err := f.UnmarshalBinary(indexData); err != nil {
		return fmt.Errorf("decoding index artifact %s: %w", s.indexPath, err)
	}
	if f.len() != len(chunks) {
		return fmt.Errorf("%w: %d vectors but %d metadata records",
			ErrCorrupted, f.len(), len(chunks))
	}

	s.flat = f
	s.chunks = chunks
	s.seen = make(map[string]map[string]struct{})
	for _, c := range chunks {
		s.markSeen(c)
	}
	s.loaded = true
	s.logger.Info("index loaded", "chunks", len(chunks), "dimension", f.dim)
	return nil
}

// FilterNew returns the chunks not already present for their source
// (by content hash), preserving input order. Callers embed only the
// returned chunks, so re-ingesting an unchanged document costs no
// embedding calls.
func (s *Store) FilterNew(chunks []chunk.Chunk) []chunk.Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fresh := make([]chunk.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if s.isSeen(c) {
			continue
		}
		fresh = append(fresh, c)
	}
	return fresh
}

// Ingest appends new chunks with their vectors and persists both
// artifacts. Chunks already present for the same source (by content
// hash) are skipped, so re-ingesting an unchanged document adds
// nothing. Returns the number of chunks actually added. An empty batch
// is a no-op and does not touch the artifacts.
func (s *Store) Ingest(ctx context.Context, chunks []chunk.Chunk, vectors [][]float32) (int, error) {
	if len(chunks) != len(vectors) {
		return 0, fmt.Errorf("%w: %d chunks, %d vectors", ErrCountMismatch, len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return 0, fmt.Errorf("ingesting: store not loaded")
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var (
		newChunks  []chunk.Chunk
		newVectors [][]float32
	)
	for i, c := range chunks {
		if s.isSeen(c) {
			continue
		}
		newChunks = append(newChunks, c)
		newVectors = append(newVectors, vectors[i])
		s.markSeen(c)
	}
	if len(newChunks) == 0 {
		s.logger.Info("ingest skipped, all chunks already present", "source", chunks[0].Source)
		return 0, nil
	}

	if err := s.flat.add(newVectors); err != nil {
		// Roll back the dedup marks so a corrected retry is not refused.
		for _, c := range newChunks {
			s.unmarkSeen(c)
		}
		return 0, fmt.Errorf("adding vectors: %w", err)
	}
	s.chunks = append(s.chunks, newChunks...)

	if err := s.persist(); err != nil {
		return 0, fmt.Errorf("persisting index: %w", err)
	}
	s.logger.Info("chunks ingested",
		"source", chunks[0].Source, "added", len(newChunks), "skipped", len(chunks)-len(newChunks))
	return len(newChunks), nil
}

// Search returns the k nearest chunks to the query vector, closest
// first. An empty store is ErrIndexUnavailable.
func (s *Store) Search(ctx context.Context, vector []float32, k int) ([]Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.loaded || s.flat.len() == 0 {
		return nil, ErrIndexUnavailable
	}

	hits, err := s.flat.search(vector, k)
	if err != nil {
		return nil, err
	}
	results := make([]Result, len(hits))
	for i, h := range hits {
		results[i] = Result{Chunk: s.chunks[h.ordinal], Distance: h.distance}
	}
	return results, nil
}

// Count returns the number of resident chunks.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// persist writes both artifacts via temp file and rename, under an
// advisory lock so a concurrent process never observes a torn pair.
// Caller holds s.mu.
func (s *Store) persist() error {
	dir := filepath.Dir(s.indexPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}

	lock := flock.New(s.indexPath + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("acquiring artifact lock: %w", err)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			s.logger.Warn("releasing artifact lock failed", "error", err)
		}
	}()

	indexData, err := s.flat.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encoding index: %w", err)
	}
	if err := writeAtomic(s.indexPath, indexData); err != nil {
		return fmt.Errorf("writing index artifact: %w", err)
	}

	metaData, err := encodeMetadata(s.chunks)
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}
	if err := writeAtomic(s.metaPath, metaData); err != nil {
		return fmt.Errorf("writing metadata artifact: %w", err)
	}
	return nil
}

func (s *Store) isSeen(c chunk.Chunk) bool {
	_, ok := s.seen[c.Source][c.Hash]
	return ok
}

func (s *Store) markSeen(c chunk.Chunk) {
	hashes, ok := s.seen[c.Source]
	if !ok {
		hashes = make(map[string]struct{})
		s.seen[c.Source] = hashes
	}
	hashes[c.Hash] = struct{}{}
}

func (s *Store) unmarkSeen(c chunk.Chunk) {
	delete(s.seen[c.Source], c.Hash)
}

// writeAtomic writes data to a sibling temp file and renames it over
// path, so readers see either the old or the new content in full.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// encodeMetadata renders chunks as JSON lines in insertion order.
func encodeMetadata(chunks []chunk.Chunk) ([]byte, error) {
	var buf []byte
	for _, c := range chunks {
		line, err := json.Marshal(c)
		if err != nil {
			return nil, fmt.Errorf("marshaling chunk %s: %w", c.ID, err)
		}
		buf = append(buf, line...)
		buf = append(buf, '\n')
	}
	return buf, nil
}

// readMetadata decodes a JSON-lines metadata log. Blank lines are
// tolerated; a malformed record is ErrCorrupted.
func readMetadata(path string) ([]chunk.Chunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var chunks []chunk.Chunk
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var c chunk.Chunk
		if err := json.Unmarshal(line, &c); err != nil {
			return nil, fmt.Errorf("%w: metadata line %d: %v", ErrCorrupted, lineNo, err)
		}
		chunks = append(chunks, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning metadata: %w", err)
	}
	return chunks, nil
}
