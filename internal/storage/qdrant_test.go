//go:build integration

package storage

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdsalman850/co-teachers-sub003/internal/chunker"
	"github.com/mdsalman850/co-teachers-sub003/internal/vocab"
)

// setupTestStorage creates a test storage instance and ensures collection exists.
// Skips test if Qdrant is not running.
func setupTestStorage(t *testing.T) *QdrantStorage {
	storage, err := NewQdrantStorage(context.Background(), "localhost", 6334, nil)
	if err != nil {
		t.Skipf("Qdrant not available: %v", err)
	}
	t.Cleanup(func() { storage.Close() })

	err = storage.EnsureCollection(context.Background())
	require.NoError(t, err, "Failed to ensure collection")

	return storage
}

func testChunks(n int) []chunker.Chunk {
	chunks := make([]chunker.Chunk, n)
	for i := range chunks {
		chunks[i] = chunker.Chunk{
			ID:        i,
			Text:      fmt.Sprintf("Passage %d about cells and mitochondria.", i),
			PageStart: i + 1,
			PageEnd:   i + 1,
			Position:  i * 800,
			End:       i*800 + 1000,
			Section:   "Chapter 1: Cells",
			Keywords:  []string{"cells", "mitochondria"},
			Topic:     vocab.Biology,
		}
	}
	return chunks
}

func TestDocumentRoundTrip(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	key := uuid.NewString()
	t.Cleanup(func() { storage.DeleteDocument(ctx, key) })

	// More than one upsert batch.
	chunks := testChunks(upsertBatchSize + 17)
	err := storage.SaveDocument(ctx, Manifest{Key: key, Name: "roundtrip.pdf", Pages: 120}, chunks)
	require.NoError(t, err)

	m, got, err := storage.LoadDocument(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "roundtrip.pdf", m.Name)
	assert.Equal(t, 120, m.Pages)
	assert.Equal(t, len(chunks), m.ChunkCount)
	assert.False(t, m.IndexedAt.IsZero())
	assert.Equal(t, chunks, got)
}

func TestSaveDocumentReplaces(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	key := uuid.NewString()
	t.Cleanup(func() { storage.DeleteDocument(ctx, key) })

	require.NoError(t, storage.SaveDocument(ctx, Manifest{Key: key, Name: "a.pdf"}, testChunks(5)))
	require.NoError(t, storage.SaveDocument(ctx, Manifest{Key: key, Name: "a.pdf"}, testChunks(2)))

	_, got, err := storage.LoadDocument(ctx, key)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestDocumentNotFound(t *testing.T) {
	storage := setupTestStorage(t)

	_, _, err := storage.LoadDocument(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestDeleteAndList(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	key := uuid.NewString()
	name := "list-" + key + ".pdf"
	require.NoError(t, storage.SaveDocument(ctx, Manifest{Key: key, Name: name}, testChunks(3)))

	manifests, err := storage.ListDocuments(ctx)
	require.NoError(t, err)
	var names []string
	for _, m := range manifests {
		names = append(names, m.Name)
	}
	assert.Contains(t, names, name)

	count, err := storage.CountDocuments(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, count, uint64(1))

	require.NoError(t, storage.DeleteDocument(ctx, key))
	_, _, err = storage.LoadDocument(ctx, key)
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}
