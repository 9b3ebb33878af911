// Package validator checks booking fields extracted from free text.
package validator

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/liliang-cn/ragdesk/internal/domain"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// accepted time layouts, tried in order after upper-casing the input
var timeLayouts = []string{"15:04", "3:04 PM", "3:04PM", "3PM", "3 PM", "15:04:05"}

// BookingValidator applies the booking rules against a clock
type BookingValidator struct {
	openHour  int
	closeHour int
	now       func() time.Time
}

// NewBookingValidator creates a validator accepting times in [openHour, closeHour)
func NewBookingValidator(openHour, closeHour int) *BookingValidator {
	return &BookingValidator{openHour: openHour, closeHour: closeHour, now: time.Now}
}

// WithClock returns a copy that uses now instead of the wall clock
func (v *BookingValidator) WithClock(now func() time.Time) *BookingValidator {
	c := *v
	c.now = now
	return &c
}

// ValidEmail reports whether email looks like an address
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ParseDate parses a YYYY-MM-DD date. Month and day may drop their leading
// zero (2025-6-1).
func ParseDate(s string) (time.Time, bool) {
	d, err := time.Parse("2006-1-2", strings.TrimSpace(s))
	return d, err == nil
}

// ParseTime parses the supported time notations (14:30, 2:30 PM, 2PM, 14:30:00)
func ParseTime(s string) (time.Time, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Validate checks the extracted fields and returns a normalized booking.
// All problems are reported together in a *domain.ValidationError.
func (v *BookingValidator) Validate(f domain.BookingFields) (*domain.Booking, error) {
	var problems []string
	b := &domain.Booking{}

	name := trimmed(f.Name)
	if name == "" {
		problems = append(problems, "Name is required")
	}
	b.Name = name

	email := trimmed(f.Email)
	switch {
	case email == "":
		problems = append(problems, "Email is required")
	case !ValidEmail(email):
		problems = append(problems, "Invalid email format")
	}
	b.Email = strings.ToLower(email)

	date := trimmed(f.Date)
	if date == "" {
		problems = append(problems, "Date is required")
	} else if d, ok := ParseDate(date); !ok {
		problems = append(problems, "Invalid date format. Use YYYY-MM-DD")
	} else {
		now := v.now()
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		if !d.After(today) {
			problems = append(problems, "Date must be in the future")
		}
		b.Date = d.Format(domain.BookingDateLayout)
	}

	tm := trimmed(f.Time)
	if tm == "" {
		problems = append(problems, "Time is required")
	} else if t, ok := ParseTime(tm); !ok {
		problems = append(problems, "Invalid time format. Use HH:MM")
	} else {
		if t.Hour() < v.openHour || t.Hour() >= v.closeHour {
			problems = append(problems, fmt.Sprintf("Time must be within business hours (%s - %s)",
				hourLabel(v.openHour), hourLabel(v.closeHour)))
		}
		b.Time = t.Format(domain.BookingTimeLayout)
	}

	if len(problems) > 0 {
		return nil, &domain.ValidationError{Problems: problems}
	}
	return b, nil
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func hourLabel(h int) string {
	switch {
	case h == 0 || h == 24:
		return "12 AM"
	case h == 12:
		return "12 PM"
	case h > 12:
		return fmt.Sprintf("%d PM", h-12)
	default:
		return fmt.Sprintf("%d AM", h)
	}
}
