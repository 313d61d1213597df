// Package ingest turns raw document text into indexed chunks: clean,
// split into section-tagged passages, fingerprint, embed, and hand to
// the index store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/answerdock/answerdock/internal/chunk"
)

// ErrNoText indicates a document with no usable text after cleaning.
var ErrNoText = errors.New("document contains no usable text")

// supportedExtensions are the plain-text types directory ingestion
// accepts. Binary formats need an upstream extraction step.
var supportedExtensions = map[string]bool{
	".txt": true,
	".md":  true,
}

// Page is one page or sheet of a multi-part document. Number is a
// label, not necessarily numeric, sheet names appear here for
// spreadsheets.
type Page struct {
	Number string
	Text   string
}

// DirResult summarizes a directory ingestion.
type DirResult struct {
	FilesIngested int
	FilesSkipped  int
	FilesFailed   int
	ChunksAdded   int
}

// Embedder produces unit-normalized vectors for passage texts.
// Satisfied by embed.Provider.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Indexer accepts chunk batches and reports which chunks it has not
// seen before. Satisfied by index.Store.
type Indexer interface {
	FilterNew(chunks []chunk.Chunk) []chunk.Chunk
	Ingest(ctx context.Context, chunks []chunk.Chunk, vectors [][]float32) (int, error)
}

// Service orchestrates the ingestion pipeline.
type Service struct {
	chunker  *chunk.Chunker
	embedder Embedder
	store    Indexer
	logger   *slog.Logger
}

// NewService creates a Service.
func NewService(chunker *chunk.Chunker, embedder Embedder, store Indexer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		chunker:  chunker,
		embedder: embedder,
		store:    store,
		logger:   logger.With("component", "ingest"),
	}
}

// IngestText ingests a single-page document. page may be empty.
// Returns the number of chunks newly added to the index; re-ingesting
// an unchanged document returns 0.
func (s *Service) IngestText(ctx context.Context, text, source, page, location string) (int, error) {
	chunks, err := s.chunkText(text, source, page, location)
	if err != nil {
		return 0, err
	}
	return s.embedAndStore(ctx, chunks)
}

// IngestPages ingests a multi-page document. Chunk ordinals restart on
// each page, so chunk ids stay stable under page-local edits. Pages
// with no usable text are skipped.
func (s *Service) IngestPages(ctx context.Context, pages []Page, source, location string) (int, error) {
	var all []chunk.Chunk
	for _, p := range pages {
		chunks, err := s.chunkText(p.Text, source, p.Number, location)
		if err != nil {
			if errors.Is(err, ErrNoText) {
				continue
			}
			return 0, fmt.Errorf("page %s: %w", p.Number, err)
		}
		all = append(all, chunks...)
	}
	if len(all) == 0 {
		return 0, ErrNoText
	}
	return s.embedAndStore(ctx, all)
}

// IngestDir recursively ingests supported files under dir, respecting
// the directory's .gitignore. Individual file failures are counted,
// not fatal.
func (s *Service) IngestDir(ctx context.Context, dir string) (*DirResult, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving directory: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return nil, fmt.Errorf("opening directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	var gitIgnore *ignore.GitIgnore
	gitignorePath := filepath.Join(absDir, ".gitignore")
	if _, err := os.Stat(gitignorePath); err == nil {
		gitIgnore, err = ignore.CompileIgnoreFile(gitignorePath)
		if err != nil {
			// A malformed .gitignore disables filtering, not ingestion.
			s.logger.Warn("ignoring malformed .gitignore", "path", gitignorePath, "error", err)
			gitIgnore = nil
		}
	}

	result := &DirResult{}
	err = filepath.Walk(absDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			result.FilesFailed++
			return nil
		}
		relPath, err := filepath.Rel(absDir, path)
		if err != nil {
			result.FilesFailed++
			return nil
		}
		if gitIgnore != nil && gitIgnore.MatchesPath(relPath) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			result.FilesSkipped++
			return nil
		}
		if info.IsDir() {
			return nil
		}
		if !supportedExtensions[strings.ToLower(filepath.Ext(path))] {
			result.FilesSkipped++
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("reading file failed", "path", path, "error", err)
			result.FilesFailed++
			return nil
		}

		added, err := s.IngestText(ctx, string(content), relPath, "", path)
		if err != nil {
			if errors.Is(err, ErrNoText) {
				result.FilesSkipped++
				return nil
			}
			s.logger.Warn("ingesting file failed", "path", path, "error", err)
			result.FilesFailed++
			return nil
		}
		result.FilesIngested++
		result.ChunksAdded += added
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}

	s.logger.Info("directory ingested", "dir", dir,
		"files", result.FilesIngested, "skipped", result.FilesSkipped,
		"failed", result.FilesFailed, "chunks", result.ChunksAdded)
	return result, nil
}

// chunkText runs the text pipeline for one page of one source.
func (s *Service) chunkText(text, source, page, location string) ([]chunk.Chunk, error) {
	cleaned := chunk.Clean(text)
	if cleaned == "" {
		return nil, ErrNoText
	}

	passages := s.chunker.Split(cleaned)
	if len(passages) == 0 {
		return nil, ErrNoText
	}

	chunks := make([]chunk.Chunk, 0, len(passages))
	for i, p := range passages {
		c, err := chunk.New(p.Text, source, page, p.Section, location, i)
		if err != nil {
			return nil, fmt.Errorf("building chunk %d of %s: %w", i, source, err)
		}
		chunks = append(chunks, c)
	}
	return chunks, nil
}

// embedAndStore drops chunks the store already holds, embeds the rest,
// and hands the batch to the index store. Previously stored chunks are
// never re-embedded.
func (s *Service) embedAndStore(ctx context.Context, chunks []chunk.Chunk) (int, error) {
	fresh := s.store.FilterNew(chunks)
	if len(fresh) == 0 {
		s.logger.Info("all chunks already indexed", "source", chunks[0].Source)
		return 0, nil
	}

	texts := make([]string, len(fresh))
	for i, c := range fresh {
		texts[i] = c.Text
	}
	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding %d chunks: %w", len(fresh), err)
	}

	added, err := s.store.Ingest(ctx, fresh, vectors)
	if err != nil {
		return 0, err
	}
	return added, nil
}
