package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/liliang-cn/ragdesk/internal/domain"
	"github.com/liliang-cn/ragdesk/internal/llm"
	"github.com/liliang-cn/ragdesk/internal/repository"
	"github.com/liliang-cn/ragdesk/internal/validator"
	"go.uber.org/zap"
)

// BookingService creates bookings from free text and manages them
type BookingService struct {
	repo      *repository.BookingRepository
	llm       Completer
	validator *validator.BookingValidator
	now       func() time.Time
	logger    *zap.Logger
}

// NewBookingService creates a new booking service
func NewBookingService(
	repo *repository.BookingRepository,
	completer Completer,
	v *validator.BookingValidator,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		repo:      repo,
		llm:       completer,
		validator: v,
		now:       time.Now,
		logger:    logger,
	}
}

// ExtractFields asks the LLM for name, email, date and time in message
func (s *BookingService) ExtractFields(ctx context.Context, message string) (domain.BookingFields, error) {
	var fields domain.BookingFields

	reply, err := s.llm.Complete(ctx, []llm.Message{
		{Role: domain.RoleSystem, Content: bookingSystemPrompt},
		{Role: domain.RoleUser, Content: bookingExtractionPrompt(message, s.now().Format(domain.BookingDateLayout))},
	}, llm.Options{Temperature: 0.1, MaxTokens: 200})
	if err != nil {
		return fields, err
	}

	if err := json.Unmarshal([]byte(extractJSON(reply)), &fields); err != nil {
		s.logger.Warn("Unparseable booking extraction", zap.String("reply", reply), zap.Error(err))
		return fields, fmt.Errorf("%w: could not extract booking information: %v", domain.ErrUpstream, err)
	}

	return fields, nil
}

// extractJSON strips code fences and any prose around the first JSON object
func extractJSON(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	s = strings.TrimSpace(s)
	if start, end := strings.Index(s, "{"), strings.LastIndex(s, "}"); start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

// Create extracts, validates and stores a booking as pending
func (s *BookingService) Create(ctx context.Context, req *domain.CreateBookingRequest) (*domain.BookingResponse, error) {
	fields, err := s.ExtractFields(ctx, req.Message)
	if err != nil {
		return nil, err
	}

	booking, err := s.validator.Validate(fields)
	if err != nil {
		return nil, err
	}
	booking.SessionID = req.SessionID
	booking.Status = domain.BookingStatusPending

	if err := s.repo.Create(ctx, booking); err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	s.logger.Info("Booking created",
		zap.String("booking_id", booking.ID),
		zap.String("session_id", booking.SessionID),
		zap.String("date", booking.Date),
		zap.String("time", booking.Time),
	)

	return &domain.BookingResponse{Booking: *booking, Message: "Booking created successfully"}, nil
}

// Get retrieves a booking
func (s *BookingService) Get(ctx context.Context, id string) (*domain.Booking, error) {
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, fmt.Errorf("%w: booking with ID '%s' not found", domain.ErrNotFound, id)
	}
	return b, nil
}

// List lists bookings ordered by appointment
func (s *BookingService) List(ctx context.Context, f domain.BookingFilter) (*domain.BookingListResponse, error) {
	if f.Status != "" && !domain.ValidBookingStatus(f.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidRequest, f.Status)
	}
	bookings, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return &domain.BookingListResponse{Bookings: bookings, Total: total, Skip: f.Skip, Limit: f.Limit}, nil
}

// ListBySession lists the bookings of a session, newest first
func (s *BookingService) ListBySession(ctx context.Context, sessionID string) (*domain.BookingListResponse, error) {
	bookings, err := s.repo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &domain.BookingListResponse{Bookings: bookings, Total: len(bookings), Limit: len(bookings)}, nil
}

// UpdateStatus changes the status of a booking
func (s *BookingService) UpdateStatus(ctx context.Context, id, status string) (*domain.BookingResponse, error) {
	if !domain.ValidBookingStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidRequest, status)
	}

	b, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, fmt.Errorf("%w: booking with ID '%s' not found", domain.ErrNotFound, id)
	}

	s.logger.Info("Booking status updated", zap.String("booking_id", id), zap.String("status", status))

	return &domain.BookingResponse{Booking: *b, Message: fmt.Sprintf("Status updated to %s", status)}, nil
}

// Delete removes a booking
func (s *BookingService) Delete(ctx context.Context, id string) (*domain.SuccessResponse, error) {
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, err
	}
	return &domain.SuccessResponse{
		Message: fmt.Sprintf("Booking %s deleted successfully", id),
		Success: true,
	}, nil
}

// Upcoming lists non-cancelled bookings from today through the next days
func (s *BookingService) Upcoming(ctx context.Context, days int) (*domain.BookingListResponse, error) {
	today := s.now()
	from := today.Format(domain.BookingDateLayout)
	to := today.AddDate(0, 0, days).Format(domain.BookingDateLayout)

	bookings, err := s.repo.Upcoming(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return &domain.BookingListResponse{Bookings: bookings, Total: len(bookings), Limit: len(bookings)}, nil
}

// Stats counts bookings per status
func (s *BookingService) Stats(ctx context.Context) (*domain.BookingStats, error) {
	return s.repo.CountByStatus(ctx)
}
