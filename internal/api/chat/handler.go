// Package chat serves question answering and conversation history.
package chat

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/liliang-cn/ragdesk/internal/api/params"
	"github.com/liliang-cn/ragdesk/internal/api/response"
	"github.com/liliang-cn/ragdesk/internal/domain"
)

// Answerer answers questions against the ingested documents
type Answerer interface {
	Ask(ctx context.Context, req *domain.ChatRequest) (*domain.ChatResponse, error)
	AskStream(ctx context.Context, req *domain.ChatRequest) (<-chan domain.StreamChunk, error)
}

// History reads and clears conversation history
type History interface {
	History(ctx context.Context, sessionID string, limit int) (*domain.HistoryResponse, error)
	Clear(ctx context.Context, sessionID string) (*domain.SuccessResponse, error)
	Sessions(ctx context.Context) (*domain.SessionListResponse, error)
}

// Handler handles chat API requests
type Handler struct {
	chat    Answerer
	history History
}

// NewHandler creates a new chat handler
func NewHandler(chat Answerer, history History) *Handler {
	return &Handler{chat: chat, history: history}
}

// RegisterRoutes registers chat routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	chat := r.Group("/chat")
	{
		chat.POST("", h.Ask)
		chat.POST("/stream", h.AskStream)
		chat.GET("/history/:session_id", h.GetHistory)
		chat.DELETE("/history/:session_id", h.ClearHistory)
		chat.GET("/sessions", h.ListSessions)
	}
}

// Ask answers a question with citations
func (h *Handler) Ask(c *gin.Context) {
	var req domain.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	resp, err := h.chat.Ask(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// AskStream answers a question as server-sent events: sources, content
// deltas, then done or error
func (h *Handler) AskStream(c *gin.Context) {
	var req domain.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	stream, err := h.chat.AskStream(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.NoWriteDeadline(c)
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	// the producer closes the channel when done or when the client goes away
	for chunk := range stream {
		c.SSEvent(chunk.Type, chunk)
		c.Writer.Flush()
	}
}

func (h *Handler) GetHistory(c *gin.Context) {
	limit, err := params.Int(c, "limit", 50, 1, 500)
	if err != nil {
		response.Error(c, err)
		return
	}

	history, err := h.history.History(c.Request.Context(), c.Param("session_id"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, history)
}

func (h *Handler) ClearHistory(c *gin.Context) {
	resp, err := h.history.Clear(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) ListSessions(c *gin.Context) {
	sessions, err := h.history.Sessions(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, sessions)
}
