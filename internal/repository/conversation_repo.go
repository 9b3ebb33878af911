package repository

import (
	"context"
	"time"

	"github.com/liliang-cn/ragdesk/internal/domain"
)

// ConversationRepository handles chat message persistence
type ConversationRepository struct {
	db *DB
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(db *DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// Save stores a message and fills in its ID and timestamp
func (r *ConversationRepository) Save(ctx context.Context, msg *domain.Message) error {
	msg.Timestamp = time.Now().UTC()

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO conversations (session_id, role, content, timestamp)
		VALUES (?, ?, ?, ?)
	`, msg.SessionID, msg.Role, msg.Content, formatTime(msg.Timestamp))
	if err != nil {
		return err
	}

	msg.ID, err = result.LastInsertId()
	return err
}

// History returns up to limit messages of a session, oldest first
func (r *ConversationRepository) History(ctx context.Context, sessionID string, limit int) ([]*domain.Message, error) {
	return r.query(ctx, `
		SELECT id, session_id, role, content, timestamp
		FROM conversations WHERE session_id = ?
		ORDER BY id ASC
		LIMIT ?
	`, sessionID, limit)
}

// Recent returns the last n messages of a session in chronological order
func (r *ConversationRepository) Recent(ctx context.Context, sessionID string, n int) ([]*domain.Message, error) {
	return r.query(ctx, `
		SELECT id, session_id, role, content, timestamp FROM (
			SELECT id, session_id, role, content, timestamp
			FROM conversations WHERE session_id = ?
			ORDER BY id DESC
			LIMIT ?
		) ORDER BY id ASC
	`, sessionID, n)
}

func (r *ConversationRepository) query(ctx context.Context, q string, args ...any) ([]*domain.Message, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []*domain.Message{}
	for rows.Next() {
		msg := &domain.Message{}
		var ts string
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content, &ts); err != nil {
			return nil, err
		}
		if msg.Timestamp, err = parseTime(ts); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

// DeleteSession removes every message of a session and reports how many
func (r *ConversationRepository) DeleteSession(ctx context.Context, sessionID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM conversations WHERE session_id = ?`, sessionID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ListSessions summarises every session, most recently active first
func (r *ConversationRepository) ListSessions(ctx context.Context) ([]*domain.SessionSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT session_id, COUNT(*), MAX(timestamp)
		FROM conversations
		GROUP BY session_id
		ORDER BY MAX(timestamp) DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []*domain.SessionSummary{}
	for rows.Next() {
		s := &domain.SessionSummary{}
		var last string
		if err := rows.Scan(&s.SessionID, &s.MessageCount, &last); err != nil {
			return nil, err
		}
		if s.LastActivity, err = parseTime(last); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}
