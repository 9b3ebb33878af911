// Package booking serves natural-language booking creation and management.
package booking

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/liliang-cn/ragdesk/internal/api/params"
	"github.com/liliang-cn/ragdesk/internal/api/response"
	"github.com/liliang-cn/ragdesk/internal/domain"
)

// Service is the booking functionality the handler needs
type Service interface {
	Create(ctx context.Context, req *domain.CreateBookingRequest) (*domain.BookingResponse, error)
	Get(ctx context.Context, id string) (*domain.Booking, error)
	List(ctx context.Context, f domain.BookingFilter) (*domain.BookingListResponse, error)
	ListBySession(ctx context.Context, sessionID string) (*domain.BookingListResponse, error)
	UpdateStatus(ctx context.Context, id, status string) (*domain.BookingResponse, error)
	Delete(ctx context.Context, id string) (*domain.SuccessResponse, error)
	Upcoming(ctx context.Context, days int) (*domain.BookingListResponse, error)
	Stats(ctx context.Context) (*domain.BookingStats, error)
}

// Handler handles booking API requests
type Handler struct {
	svc Service
}

// NewHandler creates a new booking handler
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers booking routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	booking := r.Group("/booking")
	{
		booking.POST("", h.Create)
		booking.GET("", h.List)
		booking.GET("/stats", h.Stats)
		booking.GET("/upcoming", h.Upcoming)
		booking.GET("/session/:session_id", h.ListBySession)
		booking.GET("/:booking_id", h.Get)
		booking.PATCH("/:booking_id", h.UpdateStatus)
		booking.DELETE("/:booking_id", h.Delete)
	}
}

// Create extracts a booking from a free-text message
func (h *Handler) Create(c *gin.Context) {
	var req domain.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	resp, err := h.svc.Create(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) List(c *gin.Context) {
	skip, limit, err := params.Page(c, 100, 1000)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.svc.List(c.Request.Context(), domain.BookingFilter{
		Status: c.Query("status"),
		Skip:   skip,
		Limit:  limit,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) Get(c *gin.Context) {
	b, err := h.svc.Get(c.Request.Context(), c.Param("booking_id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, domain.BookingResponse{Booking: *b})
}

func (h *Handler) ListBySession(c *gin.Context) {
	result, err := h.svc.ListBySession(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// UpdateStatus sets the status of a booking
func (h *Handler) UpdateStatus(c *gin.Context) {
	var req domain.UpdateBookingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	resp, err := h.svc.UpdateStatus(c.Request.Context(), c.Param("booking_id"), req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) Delete(c *gin.Context) {
	resp, err := h.svc.Delete(c.Request.Context(), c.Param("booking_id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Upcoming lists active bookings within the next days (default 7)
func (h *Handler) Upcoming(c *gin.Context) {
	days, err := params.Int(c, "days", 7, 1, 365)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.svc.Upcoming(c.Request.Context(), days)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
