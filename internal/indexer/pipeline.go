// Package indexer turns a textbook PDF into the chunk set and search index
// a tutor answers from, reusing a previously archived chunk set when one
// exists for the same bytes and chunking parameters.
package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/mdsalman850/co-teachers-sub003/internal/chunker"
	"github.com/mdsalman850/co-teachers-sub003/internal/library"
	"github.com/mdsalman850/co-teachers-sub003/internal/search"
	"github.com/mdsalman850/co-teachers-sub003/internal/storage"
)

// Extractor produces marked, normalized text and a page count from PDF bytes.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (string, int, error)
}

// Archive stores chunk sets by document key. *storage.QdrantStorage
// satisfies it.
type Archive interface {
	LoadDocument(ctx context.Context, key string) (*storage.Manifest, []chunker.Chunk, error)
	SaveDocument(ctx context.Context, m storage.Manifest, chunks []chunker.Chunk) error
}

// Result is a loaded document ready for search.
type Result struct {
	Key         string
	Name        string
	Pages       int
	Chunks      []chunker.Chunk
	Index       *search.Index
	FromArchive bool
	Duration    time.Duration
}

// Pipeline orchestrates extraction, chunking, indexing and archiving.
type Pipeline struct {
	extractor Extractor
	chunker   *chunker.Chunker
	weights   search.FieldWeights
	archive   Archive
	logger    *slog.Logger
}

// NewPipeline creates a new indexing pipeline with the given components.
// archive may be nil to always extract.
func NewPipeline(
	extractor Extractor,
	chunker *chunker.Chunker,
	weights search.FieldWeights,
	archive Archive,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		extractor: extractor,
		chunker:   chunker,
		weights:   weights,
		archive:   archive,
		logger:    logger,
	}
}

// DocumentKey identifies a document by its bytes and the chunking
// parameters, so changing either produces a different key.
func (p *Pipeline) DocumentKey(data []byte) string {
	h := sha256.New()
	h.Write(data)
	h.Write([]byte("|size=" + strconv.Itoa(p.chunker.Size()) + "|overlap=" + strconv.Itoa(p.chunker.Overlap())))
	return hex.EncodeToString(h.Sum(nil))[:32]
}

// Index loads doc: from the archive when possible, otherwise by extracting
// and chunking it. Extraction and index build errors abort the load.
func (p *Pipeline) Index(ctx context.Context, doc *library.Document) (*Result, error) {
	start := time.Now()
	key := p.DocumentKey(doc.Data)

	if res, ok := p.fromArchive(ctx, key); ok {
		res.Duration = time.Since(start)
		return res, nil
	}

	text, pages, err := p.extractor.Extract(ctx, doc.Data)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	p.logger.Debug("Extracted document", "name", doc.Name, "pages", pages, "chars", len(text))

	res, err := p.build(key, doc.Name, text, pages)
	if err != nil {
		return nil, err
	}

	if p.archive != nil {
		m := storage.Manifest{Key: key, Name: doc.Name, Pages: pages}
		if err := p.archive.SaveDocument(ctx, m, res.Chunks); err != nil {
			p.logger.Warn("Failed to archive document", "name", doc.Name, "error", err)
		}
	}

	res.Duration = time.Since(start)
	p.logger.Info("Indexed document",
		"name", doc.Name,
		"pages", res.Pages,
		"chunks", len(res.Chunks),
		"terms", res.Index.Terms(),
		"duration", res.Duration,
	)
	return res, nil
}

// IndexText chunks and indexes already extracted text. The key is derived
// from the text itself.
func (p *Pipeline) IndexText(name, text string, pages int) (*Result, error) {
	start := time.Now()
	res, err := p.build(p.DocumentKey([]byte(text)), name, text, pages)
	if err != nil {
		return nil, err
	}
	res.Duration = time.Since(start)
	return res, nil
}

func (p *Pipeline) build(key, name, text string, pages int) (*Result, error) {
	chunks := p.chunker.Chunk(text)
	p.logger.Debug("Chunked document", "name", name, "chunks", len(chunks))

	idx, err := search.BuildIndex(chunks, p.weights)
	if err != nil {
		return nil, fmt.Errorf("index: %w", err)
	}

	return &Result{
		Key:    key,
		Name:   name,
		Pages:  pages,
		Chunks: chunks,
		Index:  idx,
	}, nil
}

func (p *Pipeline) fromArchive(ctx context.Context, key string) (*Result, bool) {
	if p.archive == nil {
		return nil, false
	}

	m, chunks, err := p.archive.LoadDocument(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrDocumentNotFound) {
			p.logger.Warn("Archive lookup failed, extracting", "key", key, "error", err)
		}
		return nil, false
	}

	idx, err := search.BuildIndex(chunks, p.weights)
	if err != nil {
		p.logger.Warn("Archived chunks could not be indexed, extracting", "key", key, "error", err)
		return nil, false
	}

	p.logger.Info("Loaded document from archive", "name", m.Name, "chunks", len(chunks))
	return &Result{
		Key:         key,
		Name:        m.Name,
		Pages:       m.Pages,
		Chunks:      chunks,
		Index:       idx,
		FromArchive: true,
	}, true
}
