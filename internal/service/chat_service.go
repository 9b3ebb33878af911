package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/liliang-cn/ragdesk/internal/config"
	"github.com/liliang-cn/ragdesk/internal/domain"
	"github.com/liliang-cn/ragdesk/internal/llm"
	"go.uber.org/zap"
)

// ChatService answers questions from retrieved document chunks
type ChatService struct {
	cfg      *config.Config
	memory   *MemoryService
	embedder Embedder
	store    VectorStore
	llm      Completer
	logger   *zap.Logger
}

// NewChatService creates a new chat service
func NewChatService(
	cfg *config.Config,
	memory *MemoryService,
	embedder Embedder,
	store VectorStore,
	completer Completer,
	logger *zap.Logger,
) *ChatService {
	return &ChatService{
		cfg:      cfg,
		memory:   memory,
		embedder: embedder,
		store:    store,
		llm:      completer,
		logger:   logger,
	}
}

// prepare stores the question and builds the prompt for it
func (s *ChatService) prepare(ctx context.Context, req *domain.ChatRequest) ([]llm.Message, []domain.Source, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, nil, fmt.Errorf("%w: question must not be empty", domain.ErrInvalidRequest)
	}
	req.Question = question

	// history before the current question
	history, err := s.memory.Recent(ctx, req.SessionID)
	if err != nil {
		return nil, nil, err
	}

	if _, err := s.memory.Save(ctx, req.SessionID, domain.RoleUser, question); err != nil {
		return nil, nil, err
	}

	sources, err := s.Retrieve(ctx, question, req.TopK, req.DocumentIDs)
	if err != nil {
		return nil, nil, err
	}

	return buildRAGMessages(history, sources, question, s.cfg.RAG.PromptHistory), sources, nil
}

// Retrieve returns the chunks most similar to question
func (s *ChatService) Retrieve(ctx context.Context, question string, topK int, documentIDs []string) ([]domain.Source, error) {
	if topK <= 0 {
		topK = s.cfg.RAG.TopK
	}

	vector, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, err
	}

	results, err := s.store.Search(ctx, vector, topK, documentIDs)
	if err != nil {
		return nil, err
	}

	sources := make([]domain.Source, len(results))
	for i, r := range results {
		sources[i] = domain.Source{
			Text:            r.Text,
			DocumentID:      r.DocumentID,
			DocumentName:    r.DocumentName,
			ChunkIndex:      r.ChunkIndex,
			SimilarityScore: float64(r.Score),
		}
	}
	return sources, nil
}

func (s *ChatService) options() llm.Options {
	return llm.Options{Temperature: s.cfg.LLM.Temperature, MaxTokens: s.cfg.LLM.MaxTokens}
}

// Ask answers a question and records both turns in the session
func (s *ChatService) Ask(ctx context.Context, req *domain.ChatRequest) (*domain.ChatResponse, error) {
	start := time.Now()

	messages, sources, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	answer, err := s.llm.Complete(ctx, messages, s.options())
	if err != nil {
		return nil, err
	}

	if _, err := s.memory.Save(ctx, req.SessionID, domain.RoleAssistant, answer); err != nil {
		return nil, err
	}

	s.logger.Info("Question answered",
		zap.String("session_id", req.SessionID),
		zap.Int("sources", len(sources)),
		zap.Duration("latency", time.Since(start)),
	)

	return &domain.ChatResponse{
		Answer:    answer,
		Sources:   sources,
		SessionID: req.SessionID,
		Timestamp: time.Now().UTC(),
	}, nil
}

// AskStream answers like Ask but delivers sources, content deltas and a
// final done or error chunk on the returned channel
func (s *ChatService) AskStream(ctx context.Context, req *domain.ChatRequest) (<-chan domain.StreamChunk, error) {
	messages, sources, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	ch := make(chan domain.StreamChunk, 16)
	send := func(chunk domain.StreamChunk) error {
		select {
		case ch <- chunk:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	go func() {
		defer close(ch)

		if err := send(domain.StreamChunk{Type: "sources", Sources: sources}); err != nil {
			return
		}

		answer, err := s.llm.Stream(ctx, messages, s.options(), func(delta string) error {
			return send(domain.StreamChunk{Type: "content", Content: delta})
		})
		if err != nil {
			s.logger.Error("Streaming answer failed", zap.String("session_id", req.SessionID), zap.Error(err))
			send(domain.StreamChunk{Type: "error", Content: err.Error()})
			return
		}

		if _, err := s.memory.Save(ctx, req.SessionID, domain.RoleAssistant, answer); err != nil {
			send(domain.StreamChunk{Type: "error", Content: err.Error()})
			return
		}
		send(domain.StreamChunk{Type: "done"})
	}()

	return ch, nil
}
