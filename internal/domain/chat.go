package domain

import "time"

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message represents a persisted chat message
type Message struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Source represents a citation source
type Source struct {
	Text            string  `json:"text"`
	DocumentID      string  `json:"document_id"`
	DocumentName    string  `json:"document_name"`
	ChunkIndex      int     `json:"chunk_index"`
	SimilarityScore float64 `json:"similarity_score"`
}

// ChatRequest is the request to ask a question
type ChatRequest struct {
	Question    string   `json:"question" binding:"required,max=2000"`
	SessionID   string   `json:"session_id" binding:"required,max=255"`
	DocumentIDs []string `json:"document_ids,omitempty"`
	TopK        int      `json:"top_k,omitempty" binding:"omitempty,min=1,max=20"`
}

// ChatResponse is the response to a question
type ChatResponse struct {
	Answer    string    `json:"answer"`
	Sources   []Source  `json:"sources"`
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
}

// StreamChunk represents a chunk in SSE stream
type StreamChunk struct {
	Type    string   `json:"type"` // sources, content, done, error
	Content string   `json:"content,omitempty"`
	Sources []Source `json:"sources,omitempty"`
}

// HistoryResponse holds the messages of one session
type HistoryResponse struct {
	SessionID string     `json:"session_id"`
	Messages  []*Message `json:"messages"`
	Total     int        `json:"total"`
}

// SessionSummary describes a session with at least one message
type SessionSummary struct {
	SessionID    string    `json:"session_id"`
	MessageCount int       `json:"message_count"`
	LastActivity time.Time `json:"last_activity"`
}

// SessionListResponse lists known sessions
type SessionListResponse struct {
	Sessions []*SessionSummary `json:"sessions"`
	Total    int               `json:"total"`
}
