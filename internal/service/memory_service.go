package service

import (
	"context"
	"fmt"

	"github.com/liliang-cn/ragdesk/internal/domain"
	"github.com/liliang-cn/ragdesk/internal/repository"
	"go.uber.org/zap"
)

// MemoryService keeps per-session conversation history
type MemoryService struct {
	repo   *repository.ConversationRepository
	cache  HistoryCache
	window int
	logger *zap.Logger
}

// NewMemoryService creates a memory service. cache may be nil.
func NewMemoryService(repo *repository.ConversationRepository, cache HistoryCache, window int, logger *zap.Logger) *MemoryService {
	if window <= 0 {
		window = 10
	}
	return &MemoryService{repo: repo, cache: cache, window: window, logger: logger}
}

// Save appends a message to a session
func (s *MemoryService) Save(ctx context.Context, sessionID, role, content string) (*domain.Message, error) {
	msg := &domain.Message{SessionID: sessionID, Role: role, Content: content}
	if err := s.repo.Save(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Append(ctx, sessionID, msg, s.window); err != nil {
			s.logger.Warn("History cache append failed", zap.String("session_id", sessionID), zap.Error(err))
			s.invalidate(ctx, sessionID)
		}
	}
	return msg, nil
}

// Recent returns the last messages of a session, oldest first
func (s *MemoryService) Recent(ctx context.Context, sessionID string) ([]*domain.Message, error) {
	if s.cache != nil {
		msgs, ok, err := s.cache.Get(ctx, sessionID)
		if err != nil {
			s.logger.Warn("History cache read failed", zap.String("session_id", sessionID), zap.Error(err))
		} else if ok {
			return msgs, nil
		}
	}

	msgs, err := s.repo.Recent(ctx, sessionID, s.window)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Fill(ctx, sessionID, msgs); err != nil {
			s.logger.Warn("History cache write failed", zap.String("session_id", sessionID), zap.Error(err))
		}
	}
	return msgs, nil
}

// History returns up to limit messages of a session, oldest first
func (s *MemoryService) History(ctx context.Context, sessionID string, limit int) (*domain.HistoryResponse, error) {
	msgs, err := s.repo.History(ctx, sessionID, limit)
	if err != nil {
		return nil, err
	}
	return &domain.HistoryResponse{SessionID: sessionID, Messages: msgs, Total: len(msgs)}, nil
}

// Clear deletes every message of a session
func (s *MemoryService) Clear(ctx context.Context, sessionID string) (*domain.SuccessResponse, error) {
	n, err := s.repo.DeleteSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, sessionID)

	return &domain.SuccessResponse{
		Message: fmt.Sprintf("Deleted %d messages from session %s", n, sessionID),
		Success: true,
	}, nil
}

// Sessions lists every session that has messages
func (s *MemoryService) Sessions(ctx context.Context) (*domain.SessionListResponse, error) {
	sessions, err := s.repo.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	return &domain.SessionListResponse{Sessions: sessions, Total: len(sessions)}, nil
}

func (s *MemoryService) invalidate(ctx context.Context, sessionID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, sessionID); err != nil {
		s.logger.Warn("History cache invalidation failed", zap.String("session_id", sessionID), zap.Error(err))
	}
}
