package service

import (
	"context"

	"github.com/liliang-cn/ragdesk/internal/domain"
	"github.com/liliang-cn/ragdesk/internal/llm"
	"github.com/liliang-cn/ragdesk/internal/vectorstore"
)

// Embedder turns text into vectors
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorStore stores and searches chunk embeddings
type VectorStore interface {
	Upsert(ctx context.Context, points []vectorstore.Point) error
	Search(ctx context.Context, vector []float32, limit int, documentIDs []string) ([]vectorstore.SearchResult, error)
	DeleteByDocument(ctx context.Context, documentID string) (int, error)
}

// Completer produces chat completions
type Completer interface {
	Complete(ctx context.Context, messages []llm.Message, opts llm.Options) (string, error)
	Stream(ctx context.Context, messages []llm.Message, opts llm.Options, onDelta func(string) error) (string, error)
}

// HistoryCache caches the recent message window of a session. Fill stores a
// window read from the database unless a write raced it; Append extends a
// cached window.
type HistoryCache interface {
	Get(ctx context.Context, sessionID string) ([]*domain.Message, bool, error)
	Fill(ctx context.Context, sessionID string, messages []*domain.Message) error
	Append(ctx context.Context, sessionID string, msg *domain.Message, window int) error
	Invalidate(ctx context.Context, sessionID string) error
}
