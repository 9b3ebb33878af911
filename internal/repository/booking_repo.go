package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/liliang-cn/ragdesk/internal/domain"
)

// BookingRepository handles booking persistence
type BookingRepository struct {
	db *DB
}

// NewBookingRepository creates a new booking repository
func NewBookingRepository(db *DB) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `id, session_id, name, email, date, time, status, created_at, updated_at`

func scanBooking(s scanner) (*domain.Booking, error) {
	b := &domain.Booking{}
	var created, updated string
	if err := s.Scan(&b.ID, &b.SessionID, &b.Name, &b.Email, &b.Date, &b.Time,
		&b.Status, &created, &updated); err != nil {
		return nil, err
	}
	var err error
	if b.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if b.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return b, nil
}

// Create creates a new booking
func (r *BookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	if b.Status == "" {
		b.Status = domain.BookingStatusPending
	}
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO bookings (`+bookingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, b.ID, b.SessionID, b.Name, b.Email, b.Date, b.Time, b.Status,
		formatTime(now), formatTime(now))

	return err
}

// Get retrieves a booking by ID
func (r *BookingRepository) Get(ctx context.Context, id string) (*domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return b, nil
}

// List retrieves bookings ordered by appointment, with the total count
func (r *BookingRepository) List(ctx context.Context, f domain.BookingFilter) ([]*domain.Booking, int, error) {
	where := ""
	var args []any
	if f.Status != "" {
		where = " WHERE status = ?"
		args = append(args, f.Status)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	bookings, err := r.query(ctx, `SELECT `+bookingColumns+` FROM bookings`+where+
		` ORDER BY date ASC, time ASC LIMIT ? OFFSET ?`, append(args, f.Limit, f.Skip)...)
	if err != nil {
		return nil, 0, err
	}

	return bookings, total, nil
}

// ListBySession returns the bookings of a session, newest first
func (r *BookingRepository) ListBySession(ctx context.Context, sessionID string) ([]*domain.Booking, error) {
	return r.query(ctx, `SELECT `+bookingColumns+` FROM bookings
		WHERE session_id = ? ORDER BY created_at DESC, rowid DESC`, sessionID)
}

// Upcoming returns non-cancelled bookings with from <= date <= to
func (r *BookingRepository) Upcoming(ctx context.Context, from, to string) ([]*domain.Booking, error) {
	return r.query(ctx, `SELECT `+bookingColumns+` FROM bookings
		WHERE date >= ? AND date <= ? AND status != ?
		ORDER BY date ASC, time ASC`, from, to, domain.BookingStatusCancelled)
}

func (r *BookingRepository) query(ctx context.Context, q string, args ...any) ([]*domain.Booking, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := []*domain.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}

	return bookings, rows.Err()
}

// UpdateStatus changes the status of a booking and returns the updated row
func (r *BookingRepository) UpdateStatus(ctx context.Context, id, status string) (*domain.Booking, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE bookings SET status = ?, updated_at = ? WHERE id = ?
	`, status, formatTime(time.Now()), id)
	if err != nil {
		return nil, err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return nil, fmt.Errorf("booking %s: %w", id, domain.ErrNotFound)
	}

	return r.Get(ctx, id)
}

// Delete deletes a booking
func (r *BookingRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("booking %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// CountByStatus returns booking totals per status
func (r *BookingRepository) CountByStatus(ctx context.Context) (*domain.BookingStats, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM bookings GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := &domain.BookingStats{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		stats.Total += n
		switch strings.ToLower(status) {
		case domain.BookingStatusPending:
			stats.Pending = n
		case domain.BookingStatusConfirmed:
			stats.Confirmed = n
		case domain.BookingStatusCancelled:
			stats.Cancelled = n
		}
	}

	return stats, rows.Err()
}
