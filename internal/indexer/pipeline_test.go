package indexer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdsalman850/co-teachers-sub003/internal/chunker"
	"github.com/mdsalman850/co-teachers-sub003/internal/document"
	"github.com/mdsalman850/co-teachers-sub003/internal/library"
	"github.com/mdsalman850/co-teachers-sub003/internal/search"
	"github.com/mdsalman850/co-teachers-sub003/internal/storage"
)

var pages = []string{
	"Chapter 1: Cells. The cell is the basic unit of life. " + strings.Repeat("Cells contain a nucleus and cytoplasm. ", 10),
	"Mitochondria produce ATP. " + strings.Repeat("The membrane surrounds every organelle. ", 10),
	"Chapter 2: Motion. Velocity is the rate of change of position. " + strings.Repeat("Speed and acceleration describe motion. ", 10),
}

type fakeExtractor struct {
	calls int
	err   error
}

func (f *fakeExtractor) Extract(_ context.Context, _ []byte) (string, int, error) {
	f.calls++
	if f.err != nil {
		return "", 0, f.err
	}
	var b strings.Builder
	for i, p := range pages {
		b.WriteString("\n\n" + document.PageMarker(i+1) + "\n" + p)
	}
	return document.Normalize(b.String()), len(pages), nil
}

type memoryArchive struct {
	mu      sync.Mutex
	docs    map[string]storage.Manifest
	chunks  map[string][]chunker.Chunk
	loadErr error
	saveErr error
}

func newMemoryArchive() *memoryArchive {
	return &memoryArchive{
		docs:   make(map[string]storage.Manifest),
		chunks: make(map[string][]chunker.Chunk),
	}
}

func (a *memoryArchive) LoadDocument(_ context.Context, key string) (*storage.Manifest, []chunker.Chunk, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.loadErr != nil {
		return nil, nil, a.loadErr
	}
	m, ok := a.docs[key]
	if !ok {
		return nil, nil, storage.ErrDocumentNotFound
	}
	return &m, append([]chunker.Chunk(nil), a.chunks[key]...), nil
}

func (a *memoryArchive) SaveDocument(_ context.Context, m storage.Manifest, chunks []chunker.Chunk) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.saveErr != nil {
		return a.saveErr
	}
	m.ChunkCount = len(chunks)
	a.docs[m.Key] = m
	a.chunks[m.Key] = append([]chunker.Chunk(nil), chunks...)
	return nil
}

var pdf = &library.Document{Name: "science.pdf", Data: []byte("%PDF-1.4 synthetic")}

func TestIndex_ExtractsThenUsesArchive(t *testing.T) {
	extractor := &fakeExtractor{}
	archive := newMemoryArchive()
	p := NewPipeline(extractor, chunker.New(), search.DefaultFieldWeights(), archive, nil)
	ctx := context.Background()

	first, err := p.Index(ctx, pdf)
	require.NoError(t, err)
	assert.False(t, first.FromArchive)
	assert.Equal(t, 3, first.Pages)
	assert.Equal(t, "science.pdf", first.Name)
	require.GreaterOrEqual(t, len(first.Chunks), 2)
	assert.Equal(t, len(first.Chunks), first.Index.Len())
	assert.Equal(t, 1, extractor.calls)

	second, err := p.Index(ctx, pdf)
	require.NoError(t, err)
	assert.True(t, second.FromArchive)
	assert.Equal(t, first.Key, second.Key)
	assert.Equal(t, first.Chunks, second.Chunks)
	assert.Equal(t, 3, second.Pages)
	assert.Equal(t, 1, extractor.calls, "archived document must not be extracted again")
}

func TestIndex_ArchiveFailuresDoNotAbort(t *testing.T) {
	extractor := &fakeExtractor{}
	archive := newMemoryArchive()
	archive.loadErr = errors.New("qdrant down")
	archive.saveErr = errors.New("qdrant down")
	p := NewPipeline(extractor, chunker.New(), search.DefaultFieldWeights(), archive, nil)

	res, err := p.Index(context.Background(), pdf)
	require.NoError(t, err)
	assert.False(t, res.FromArchive)
	assert.NotEmpty(t, res.Chunks)
}

func TestIndex_ExtractionErrorAborts(t *testing.T) {
	extractor := &fakeExtractor{err: document.ErrExtractionFailed}
	p := NewPipeline(extractor, chunker.New(), search.DefaultFieldWeights(), nil, nil)

	_, err := p.Index(context.Background(), pdf)
	require.Error(t, err)
	assert.ErrorIs(t, err, document.ErrExtractionFailed)
	assert.Contains(t, err.Error(), "extract")
}

func TestIndex_BadWeightsAbort(t *testing.T) {
	p := NewPipeline(&fakeExtractor{}, chunker.New(), search.FieldWeights{Text: -1}, nil, nil)

	_, err := p.Index(context.Background(), pdf)
	assert.ErrorIs(t, err, search.ErrIndexBuild)
}

func TestDocumentKey(t *testing.T) {
	a := NewPipeline(nil, chunker.New(), search.DefaultFieldWeights(), nil, nil)
	b := NewPipeline(nil, chunker.New(chunker.WithOverlap(100)), search.DefaultFieldWeights(), nil, nil)

	key := a.DocumentKey(pdf.Data)
	assert.Len(t, key, 32)
	assert.Equal(t, key, a.DocumentKey(pdf.Data))
	assert.NotEqual(t, key, a.DocumentKey([]byte("other")))
	assert.NotEqual(t, key, b.DocumentKey(pdf.Data), "chunking parameters are part of the key")
}

func TestIndexText(t *testing.T) {
	p := NewPipeline(nil, chunker.New(), search.DefaultFieldWeights(), nil, nil)

	res, err := p.IndexText("notes", "", 0)
	require.NoError(t, err)
	assert.Empty(t, res.Chunks)
	assert.Zero(t, res.Index.Len())
}
