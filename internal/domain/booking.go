package domain

import "time"

// Booking status constants
const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
)

// Booking layouts for the date and time columns
const (
	BookingDateLayout = "2006-01-02"
	BookingTimeLayout = "15:04"
)

// Booking is an appointment created from a free text message
type Booking struct {
	ID        string    `json:"booking_id"`
	SessionID string    `json:"session_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidBookingStatus reports whether s is a known booking status
func ValidBookingStatus(s string) bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCancelled:
		return true
	}
	return false
}

// BookingFields are the values extracted from a message by the LLM.
// Missing values are nil.
type BookingFields struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Date  *string `json:"date"`
	Time  *string `json:"time"`
}

// CreateBookingRequest is the request to create a booking from text
type CreateBookingRequest struct {
	Message   string `json:"message" binding:"required,max=1000"`
	SessionID string `json:"session_id" binding:"required,max=255"`
}

// BookingResponse is a booking with an optional human readable note
type BookingResponse struct {
	Booking
	Message string `json:"message"`
}

// UpdateBookingStatusRequest changes the status of a booking
type UpdateBookingStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending confirmed cancelled"`
}

// BookingListResponse is the response for listing bookings
type BookingListResponse struct {
	Bookings []*Booking `json:"bookings"`
	Total    int        `json:"total"`
	Skip     int        `json:"skip"`
	Limit    int        `json:"limit"`
}

// BookingFilter narrows a booking listing
type BookingFilter struct {
	Status string
	Skip   int
	Limit  int
}

// BookingStats counts bookings per status
type BookingStats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Confirmed int `json:"confirmed"`
	Cancelled int `json:"cancelled"`
}
