// Package vectorstore stores chunk embeddings in Qdrant.
package vectorstore

import (
	"context"
	"fmt"

	"github.com/liliang-cn/ragdesk/internal/config"
	"github.com/liliang-cn/ragdesk/internal/domain"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
)

// Point is one chunk embedding with the payload used for citations
type Point struct {
	ID           string
	Vector       []float32
	DocumentID   string
	DocumentName string
	ChunkIndex   int
	Text         string
}

// SearchResult is a chunk returned by similarity search
type SearchResult struct {
	ID           string
	Score        float32
	DocumentID   string
	DocumentName string
	ChunkIndex   int
	Text         string
}

// QdrantStore is a vector store backed by a Qdrant collection
type QdrantStore struct {
	client     *qdrant.Client
	collection string
	dimension  int
	logger     *zap.Logger
}

// NewQdrantStore connects to Qdrant over gRPC
func NewQdrantStore(cfg config.QdrantConfig, dimension int, logger *zap.Logger) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &QdrantStore{
		client:     client,
		collection: cfg.Collection,
		dimension:  dimension,
		logger:     logger,
	}, nil
}

// EnsureCollection creates the collection and its document_id index if missing
func (s *QdrantStore) EnsureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("%w: check collection: %v", domain.ErrUpstream, err)
	}

	if exists {
		info, err := s.client.GetCollectionInfo(ctx, s.collection)
		if err != nil {
			return fmt.Errorf("%w: collection info: %v", domain.ErrUpstream, err)
		}
		size := info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
		if size != 0 && int(size) != s.dimension {
			return fmt.Errorf("collection %s has dimension %d, embedding model produces %d", s.collection, size, s.dimension)
		}
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("%w: create collection: %v", domain.ErrUpstream, err)
	}

	_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: s.collection,
		FieldName:      domain.PayloadKeyDocumentID,
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("%w: create payload index: %v", domain.ErrUpstream, err)
	}

	s.logger.Info("Created qdrant collection",
		zap.String("collection", s.collection),
		zap.Int("dimension", s.dimension),
	)
	return nil
}

// Upsert writes points and waits until they are searchable
func (s *QdrantStore) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	structs := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		if len(p.Vector) != s.dimension {
			return fmt.Errorf("point %s has dimension %d, want %d", p.ID, len(p.Vector), s.dimension)
		}
		structs = append(structs, toPointStruct(p))
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         structs,
	})
	if err != nil {
		return fmt.Errorf("%w: upsert: %v", domain.ErrUpstream, err)
	}

	return nil
}

// Search returns the limit closest chunks, optionally restricted to documentIDs
func (s *QdrantStore) Search(ctx context.Context, vector []float32, limit int, documentIDs []string) ([]SearchResult, error) {
	query := &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if len(documentIDs) > 0 {
		query.Filter = documentFilter(documentIDs...)
	}

	points, err := s.client.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", domain.ErrUpstream, err)
	}

	results := make([]SearchResult, 0, len(points))
	for _, p := range points {
		results = append(results, fromScoredPoint(p))
	}

	return results, nil
}

// DeleteByDocument removes every point of a document and returns how many there were
func (s *QdrantStore) DeleteByDocument(ctx context.Context, documentID string) (int, error) {
	n, err := s.Count(ctx, documentID)
	if err != nil {
		return 0, err
	}

	_, err = s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelectorFilter(documentFilter(documentID)),
	})
	if err != nil {
		return 0, fmt.Errorf("%w: delete: %v", domain.ErrUpstream, err)
	}

	return n, nil
}

// Count returns the number of points, for one document when documentID is set
func (s *QdrantStore) Count(ctx context.Context, documentID string) (int, error) {
	req := &qdrant.CountPoints{
		CollectionName: s.collection,
		Exact:          qdrant.PtrOf(true),
	}
	if documentID != "" {
		req.Filter = documentFilter(documentID)
	}

	n, err := s.client.Count(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("%w: count: %v", domain.ErrUpstream, err)
	}

	return int(n), nil
}

// Health checks that Qdrant answers
func (s *QdrantStore) Health(ctx context.Context) error {
	if _, err := s.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("%w: qdrant health: %v", domain.ErrUpstream, err)
	}
	return nil
}

// Close closes the gRPC connection
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

func documentFilter(documentIDs ...string) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatchKeywords(domain.PayloadKeyDocumentID, documentIDs...),
		},
	}
}

func toPointStruct(p Point) *qdrant.PointStruct {
	return &qdrant.PointStruct{
		Id:      qdrant.NewID(p.ID),
		Vectors: qdrant.NewVectors(p.Vector...),
		Payload: qdrant.NewValueMap(map[string]any{
			domain.PayloadKeyDocumentID:   p.DocumentID,
			domain.PayloadKeyDocumentName: p.DocumentName,
			domain.PayloadKeyChunkIndex:   int64(p.ChunkIndex),
			domain.PayloadKeyChunkText:    p.Text,
		}),
	}
}

func fromScoredPoint(p *qdrant.ScoredPoint) SearchResult {
	payload := p.GetPayload()
	return SearchResult{
		ID:           p.GetId().GetUuid(),
		Score:        p.GetScore(),
		DocumentID:   payload[domain.PayloadKeyDocumentID].GetStringValue(),
		DocumentName: payload[domain.PayloadKeyDocumentName].GetStringValue(),
		ChunkIndex:   int(payload[domain.PayloadKeyChunkIndex].GetIntegerValue()),
		Text:         payload[domain.PayloadKeyChunkText].GetStringValue(),
	}
}
