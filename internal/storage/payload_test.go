package storage

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdsalman850/co-teachers-sub003/internal/chunker"
	"github.com/mdsalman850/co-teachers-sub003/internal/vocab"
)

func TestChunkPayload(t *testing.T) {
	c := chunker.Chunk{
		ID:        4,
		Text:      "Mitochondria produce ATP.",
		PageStart: 2,
		PageEnd:   3,
		Position:  1200,
		End:       2190,
		Section:   "Chapter 1: Cells",
		Keywords:  []string{"mitochondria", "powerhouse"},
		Topic:     vocab.Biology,
	}

	payload := qdrant.NewValueMap(chunkPayload("abc", c))
	assert.Equal(t, typeChunk, payload["type"].GetStringValue())
	assert.Equal(t, "abc", payload["doc_key"].GetStringValue())
	assert.Equal(t, c, chunkFromPayload(payload))

	noKeywords := c
	noKeywords.Keywords = nil
	assert.Nil(t, chunkFromPayload(qdrant.NewValueMap(chunkPayload("abc", noKeywords))).Keywords)
}

func TestManifestPayload(t *testing.T) {
	m := Manifest{
		Key:        "abc",
		Name:       "science-grade7.pdf",
		Pages:      212,
		ChunkCount: 480,
		IndexedAt:  time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	payload := qdrant.NewValueMap(manifestPayload(m))
	assert.Equal(t, typeDocument, payload["type"].GetStringValue())
	assert.Equal(t, m, manifestFromPayload(payload))
}

func TestPointIDs(t *testing.T) {
	id := chunkPointID("abc", 1)
	_, err := uuid.Parse(id)
	require.NoError(t, err)

	assert.Equal(t, id, chunkPointID("abc", 1), "ids are deterministic")
	assert.NotEqual(t, id, chunkPointID("abc", 2))
	assert.NotEqual(t, id, chunkPointID("abd", 1))
	assert.NotEqual(t, manifestPointID("abc"), chunkPointID("abc", 0))
}
