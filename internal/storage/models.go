package storage

import "time"

// Manifest describes one archived textbook. It is stored as its own point
// next to the document's chunks.
type Manifest struct {
	Key        string    // Content hash of the PDF plus chunking parameters
	Name       string    // Display name: file name, URL or library path
	Pages      int       // Page count reported by the extractor
	ChunkCount int       // Number of chunk points written for Key
	IndexedAt  time.Time // When this version was archived
}

// CollectionName is the single Qdrant collection for all archived textbooks.
const CollectionName = "textbook_chunks"

// Point kinds stored in the "type" payload field.
const (
	typeDocument = "document"
	typeChunk    = "chunk"
)

// upsertBatchSize bounds the points sent in one upsert request.
const upsertBatchSize = 100
