// Package storage archives chunked textbooks in Qdrant so a document seen
// before can be reloaded without extracting and chunking it again.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/mdsalman850/co-teachers-sub003/internal/chunker"
	"github.com/mdsalman850/co-teachers-sub003/internal/vocab"
)

var archiveNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:textbook-tutor:archive"))

// QdrantStorage wraps the Qdrant client with connection management and health checks.
// Points carry payload only; the collection has no vectors.
type QdrantStorage struct {
	client *qdrant.Client
	host   string
	port   int
	logger *slog.Logger
}

// NewQdrantStorage creates a new Qdrant client with health validation.
// It performs health check with retry on startup and fails fast if Qdrant is unreachable.
func NewQdrantStorage(ctx context.Context, host string, port int, logger *slog.Logger) (*QdrantStorage, error) {
	if logger == nil {
		logger = slog.Default()
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	storage := &QdrantStorage{
		client: client,
		host:   host,
		port:   port,
		logger: logger,
	}

	if err := storage.healthCheckWithRetry(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}

	return storage, nil
}

func newBackOff() *backoff.ExponentialBackOff {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second
	return exponentialBackoff
}

// healthCheckWithRetry performs health check with exponential backoff.
func (s *QdrantStorage) healthCheckWithRetry(ctx context.Context) error {
	return backoff.Retry(func() error {
		return s.Health(ctx)
	}, backoff.WithContext(newBackOff(), ctx))
}

// Health performs a single health check against Qdrant.
func (s *QdrantStorage) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}

	return nil
}

// Addr returns host:port of the Qdrant server.
func (s *QdrantStorage) Addr() string {
	return s.host + ":" + strconv.Itoa(s.port)
}

// EnsureCollection creates the archive collection and its payload indexes
// if they do not exist yet. Idempotent.
func (s *QdrantStorage) EnsureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, CollectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: CollectionName,
		VectorsConfig:  qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	if err := s.createPayloadIndexes(ctx); err != nil {
		return fmt.Errorf("failed to create payload indexes: %w", err)
	}

	s.logger.Info("Created archive collection", "collection", CollectionName)
	return nil
}

func (s *QdrantStorage) createPayloadIndexes(ctx context.Context) error {
	for _, field := range []string{"type", "doc_key"} {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: CollectionName,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil {
			return fmt.Errorf("failed to create index for field %s: %w", field, err)
		}
	}
	return nil
}

// Close closes the Qdrant client connection.
func (s *QdrantStorage) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func (s *QdrantStorage) upsertWithRetry(ctx context.Context, points []*qdrant.PointStruct) error {
	operation := func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: CollectionName,
			Points:         points,
			Wait:           qdrant.PtrOf(true),
		})
		return err
	}

	return backoff.Retry(operation, backoff.WithContext(newBackOff(), ctx))
}

// SaveDocument replaces everything archived under m.Key with chunks and a
// manifest. The manifest is written last so a partial write is never
// mistaken for a complete document.
func (s *QdrantStorage) SaveDocument(ctx context.Context, m Manifest, chunks []chunker.Chunk) error {
	if err := s.DeleteDocument(ctx, m.Key); err != nil {
		return err
	}

	for i := 0; i < len(chunks); i += upsertBatchSize {
		end := min(i+upsertBatchSize, len(chunks))

		points := make([]*qdrant.PointStruct, 0, end-i)
		for _, c := range chunks[i:end] {
			points = append(points, &qdrant.PointStruct{
				Id:      qdrant.NewIDUUID(chunkPointID(m.Key, c.ID)),
				Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{}),
				Payload: qdrant.NewValueMap(chunkPayload(m.Key, c)),
			})
		}

		if err := s.upsertWithRetry(ctx, points); err != nil {
			return fmt.Errorf("failed to upsert batch %d-%d: %w", i, end, err)
		}
	}

	m.ChunkCount = len(chunks)
	if m.IndexedAt.IsZero() {
		m.IndexedAt = time.Now().UTC()
	}
	manifest := &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(manifestPointID(m.Key)),
		Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{}),
		Payload: qdrant.NewValueMap(manifestPayload(m)),
	}
	if err := s.upsertWithRetry(ctx, []*qdrant.PointStruct{manifest}); err != nil {
		return fmt.Errorf("failed to upsert manifest: %w", err)
	}

	s.logger.Debug("Archived document", "key", m.Key, "chunks", m.ChunkCount)
	return nil
}

// LoadDocument returns the manifest and chunks archived under key, in chunk
// order. ErrDocumentNotFound means nothing is archived; ErrIncompleteArchive
// means the chunk count does not match the manifest.
func (s *QdrantStorage) LoadDocument(ctx context.Context, key string) (*Manifest, []chunker.Chunk, error) {
	result, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: CollectionName,
		Ids:            []*qdrant.PointId{qdrant.NewIDUUID(manifestPointID(key))},
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get manifest: %w", err)
	}
	if len(result) == 0 {
		return nil, nil, ErrDocumentNotFound
	}
	m := manifestFromPayload(result[0].Payload)

	var chunks []chunker.Chunk
	var offset *qdrant.PointId
	batchSize := uint32(upsertBatchSize)
	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch("type", typeChunk),
			qdrant.NewMatch("doc_key", key),
		},
	}

	for {
		points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: CollectionName,
			Filter:         filter,
			Limit:          qdrant.PtrOf(batchSize),
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to scroll chunks: %w", err)
		}

		for _, p := range points {
			chunks = append(chunks, chunkFromPayload(p.Payload))
		}

		if uint32(len(points)) < batchSize {
			break
		}
		offset = points[len(points)-1].Id
	}

	if len(chunks) != m.ChunkCount {
		return nil, nil, fmt.Errorf("%w: %s has %d of %d chunks", ErrIncompleteArchive, key, len(chunks), m.ChunkCount)
	}

	sort.Slice(chunks, func(i, j int) bool { return chunks[i].ID < chunks[j].ID })
	return &m, chunks, nil
}

// DeleteDocument removes the manifest and every chunk archived under key.
func (s *QdrantStorage) DeleteDocument(ctx context.Context, key string) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: CollectionName,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("doc_key", key)},
		}),
		Wait: qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("failed to delete document %s: %w", key, err)
	}
	return nil
}

// ListDocuments returns the manifests of all archived textbooks, sorted by name.
func (s *QdrantStorage) ListDocuments(ctx context.Context) ([]Manifest, error) {
	var manifests []Manifest
	var offset *qdrant.PointId
	batchSize := uint32(upsertBatchSize)

	for {
		points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: CollectionName,
			Filter: &qdrant.Filter{
				Must: []*qdrant.Condition{qdrant.NewMatch("type", typeDocument)},
			},
			Limit:       qdrant.PtrOf(batchSize),
			Offset:      offset,
			WithPayload: qdrant.NewWithPayload(true),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scroll documents: %w", err)
		}

		for _, p := range points {
			manifests = append(manifests, manifestFromPayload(p.Payload))
		}

		if uint32(len(points)) < batchSize {
			break
		}
		offset = points[len(points)-1].Id
	}

	sort.Slice(manifests, func(i, j int) bool { return manifests[i].Name < manifests[j].Name })
	return manifests, nil
}

// CountDocuments returns the number of archived textbooks.
func (s *QdrantStorage) CountDocuments(ctx context.Context) (uint64, error) {
	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: CollectionName,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("type", typeDocument)},
		},
		Exact: qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}

func manifestPointID(key string) string {
	return uuid.NewSHA1(archiveNamespace, []byte(key)).String()
}

func chunkPointID(key string, ordinal int) string {
	return uuid.NewSHA1(archiveNamespace, []byte(key+"#"+strconv.Itoa(ordinal))).String()
}

func manifestPayload(m Manifest) map[string]any {
	return map[string]any{
		"type":        typeDocument,
		"doc_key":     m.Key,
		"name":        m.Name,
		"pages":       m.Pages,
		"chunk_count": m.ChunkCount,
		"indexed_at":  m.IndexedAt.Format(time.RFC3339),
	}
}

func manifestFromPayload(payload map[string]*qdrant.Value) Manifest {
	indexedAt, err := time.Parse(time.RFC3339, payload["indexed_at"].GetStringValue())
	if err != nil {
		indexedAt = time.Time{}
	}
	return Manifest{
		Key:        payload["doc_key"].GetStringValue(),
		Name:       payload["name"].GetStringValue(),
		Pages:      int(payload["pages"].GetIntegerValue()),
		ChunkCount: int(payload["chunk_count"].GetIntegerValue()),
		IndexedAt:  indexedAt,
	}
}

func chunkPayload(key string, c chunker.Chunk) map[string]any {
	keywords := make([]any, len(c.Keywords))
	for i, k := range c.Keywords {
		keywords[i] = k
	}
	return map[string]any{
		"type":       typeChunk,
		"doc_key":    key,
		"ordinal":    c.ID,
		"text":       c.Text,
		"page_start": c.PageStart,
		"page_end":   c.PageEnd,
		"position":   c.Position,
		"end":        c.End,
		"section":    c.Section,
		"keywords":   keywords,
		"topic":      string(c.Topic),
	}
}

func chunkFromPayload(payload map[string]*qdrant.Value) chunker.Chunk {
	var keywords []string
	if list := payload["keywords"].GetListValue(); list != nil {
		for _, v := range list.Values {
			keywords = append(keywords, v.GetStringValue())
		}
	}
	return chunker.Chunk{
		ID:        int(payload["ordinal"].GetIntegerValue()),
		Text:      payload["text"].GetStringValue(),
		PageStart: int(payload["page_start"].GetIntegerValue()),
		PageEnd:   int(payload["page_end"].GetIntegerValue()),
		Position:  int(payload["position"].GetIntegerValue()),
		End:       int(payload["end"].GetIntegerValue()),
		Section:   payload["section"].GetStringValue(),
		Keywords:  keywords,
		Topic:     vocab.Topic(payload["topic"].GetStringValue()),
	}
}
