package storage

import "errors"

var (
	ErrQdrantUnreachable = errors.New("qdrant server unreachable")
	ErrDocumentNotFound  = errors.New("document not found")
	ErrIncompleteArchive = errors.New("archived document is incomplete")
)
