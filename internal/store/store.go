// Package store is the authoritative home of bookings. It persists confirmed
// appointments in sqlite and enforces the no-double-booking invariant through
// per-date serialization of reserve/confirm/reschedule.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"clinichat/internal/models"
)

// Store owns booking records and reservation holds.
type Store struct {
	db      *sql.DB
	logger  *zerolog.Logger
	holdTTL time.Duration
	now     func() time.Time

	mu        sync.Mutex
	dateLocks map[string]*sync.Mutex
	holds     map[string]*hold

	rng   *rand.Rand
	rngMu sync.Mutex
}

// New opens the database at path and runs migrations.
func New(path string, holdTTL time.Duration, logger *zerolog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := createTables(db); err != nil {
		return nil, err
	}
	if holdTTL <= 0 {
		holdTTL = 5 * time.Minute
	}
	return &Store{
		db:        db,
		logger:    logger,
		holdTTL:   holdTTL,
		now:       time.Now,
		dateLocks: make(map[string]*sync.Mutex),
		holds:     make(map[string]*hold),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS bookings (
			id TEXT PRIMARY KEY,
			date TEXT NOT NULL,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			appointment_type TEXT NOT NULL,
			patient_name TEXT NOT NULL,
			patient_phone TEXT NOT NULL,
			patient_email TEXT NOT NULL,
			reason TEXT,
			status TEXT NOT NULL DEFAULT 'confirmed',
			confirmation_code TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_bookings_date ON bookings(date, status)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_email ON bookings(patient_email)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks database liveness.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// dateLock returns the mutex serializing mutations for a date.
func (s *Store) dateLock(date string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.dateLocks[date]
	if !ok {
		l = &sync.Mutex{}
		s.dateLocks[date] = l
	}
	return l
}

// ConfirmedByDate returns confirmed bookings for a date, ordered by start time.
func (s *Store) ConfirmedByDate(ctx context.Context, date string) ([]models.Booking, error) {
	return s.queryBookings(ctx,
		`SELECT id, date, start_time, end_time, appointment_type, patient_name,
		        patient_phone, patient_email, reason, status, confirmation_code,
		        created_at, updated_at
		 FROM bookings WHERE date = ? AND status = ? ORDER BY start_time`,
		date, models.StatusConfirmed)
}

// FindByDate returns all bookings for a date regardless of status.
func (s *Store) FindByDate(ctx context.Context, date string) ([]models.Booking, error) {
	return s.queryBookings(ctx,
		`SELECT id, date, start_time, end_time, appointment_type, patient_name,
		        patient_phone, patient_email, reason, status, confirmation_code,
		        created_at, updated_at
		 FROM bookings WHERE date = ? ORDER BY start_time`,
		date)
}

// FindByEmail splits a patient's bookings into upcoming (confirmed, today or
// later, ascending) and past (everything else, descending).
func (s *Store) FindByEmail(ctx context.Context, email string) (upcoming, past []models.Booking, err error) {
	all, err := s.queryBookings(ctx,
		`SELECT id, date, start_time, end_time, appointment_type, patient_name,
		        patient_phone, patient_email, reason, status, confirmation_code,
		        created_at, updated_at
		 FROM bookings WHERE patient_email = ? COLLATE NOCASE
		 ORDER BY date, start_time`,
		email)
	if err != nil {
		return nil, nil, err
	}

	today := s.now().Format("2006-01-02")
	for _, b := range all {
		if b.Date >= today && b.Status == models.StatusConfirmed {
			upcoming = append(upcoming, b)
		} else {
			past = append(past, b)
		}
	}
	// past: most recent first
	for i, j := 0, len(past)-1; i < j; i, j = i+1, j-1 {
		past[i], past[j] = past[j], past[i]
	}
	return upcoming, past, nil
}

// GetBooking fetches one booking by id.
func (s *Store) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	rows, err := s.queryBookings(ctx,
		`SELECT id, date, start_time, end_time, appointment_type, patient_name,
		        patient_phone, patient_email, reason, status, confirmation_code,
		        created_at, updated_at
		 FROM bookings WHERE id = ?`,
		id)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: booking %s", models.ErrNotFound, id)
	}
	return &rows[0], nil
}

// GetByConfirmationCode fetches one booking by its confirmation code.
func (s *Store) GetByConfirmationCode(ctx context.Context, code string) (*models.Booking, error) {
	rows, err := s.queryBookings(ctx,
		`SELECT id, date, start_time, end_time, appointment_type, patient_name,
		        patient_phone, patient_email, reason, status, confirmation_code,
		        created_at, updated_at
		 FROM bookings WHERE confirmation_code = ? COLLATE NOCASE`,
		code)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: confirmation code %s", models.ErrNotFound, code)
	}
	return &rows[0], nil
}

// Cancel flips a booking to cancelled. The row is retained for lookups.
func (s *Store) Cancel(ctx context.Context, id string) error {
	b, err := s.GetBooking(ctx, id)
	if err != nil {
		return err
	}
	if b.Status == models.StatusCancelled {
		return fmt.Errorf("%w: booking %s", models.ErrAlreadyCancelled, id)
	}

	lock := s.dateLock(b.Date)
	lock.Lock()
	defer lock.Unlock()

	_, err = s.db.ExecContext(ctx,
		`UPDATE bookings SET status = ?, updated_at = ? WHERE id = ?`,
		models.StatusCancelled, s.now(), id)
	if err != nil {
		return fmt.Errorf("cancel booking %s: %w", id, err)
	}
	s.logger.Info().Str("booking_id", id).Str("date", b.Date).Msg("booking cancelled")
	return nil
}

// Reschedule atomically moves a booking to a new interval. If the new interval
// is unavailable the original booking is left untouched.
func (s *Store) Reschedule(ctx context.Context, id, newDate, newStart string) (*models.Booking, error) {
	b, err := s.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status != models.StatusConfirmed {
		return nil, fmt.Errorf("%w: booking %s is %s", models.ErrNotFound, id, b.Status)
	}
	newEnd := addMinutes(newStart, int(b.AppointmentType.Duration().Minutes()))

	// Lock both dates in a stable order so concurrent reschedules cannot deadlock.
	first, second := b.Date, newDate
	if second < first {
		first, second = second, first
	}
	firstLock := s.dateLock(first)
	firstLock.Lock()
	defer firstLock.Unlock()
	if second != first {
		secondLock := s.dateLock(second)
		secondLock.Lock()
		defer secondLock.Unlock()
	}

	free, err := s.intervalFree(ctx, newDate, newStart, newEnd, id)
	if err != nil {
		return nil, err
	}
	if !free {
		return nil, fmt.Errorf("%w: %s %s-%s", models.ErrSlotUnavailable, newDate, newStart, newEnd)
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE bookings SET date = ?, start_time = ?, end_time = ?, updated_at = ? WHERE id = ?`,
		newDate, newStart, newEnd, s.now(), id)
	if err != nil {
		return nil, fmt.Errorf("reschedule booking %s: %w", id, err)
	}

	s.logger.Info().
		Str("booking_id", id).
		Str("from", b.Date+" "+b.StartTime).
		Str("to", newDate+" "+newStart).
		Msg("booking rescheduled")

	return s.GetBooking(ctx, id)
}

// MarkCompleted flips a confirmed booking to completed.
func (s *Store) MarkCompleted(ctx context.Context, id string) error {
	b, err := s.GetBooking(ctx, id)
	if err != nil {
		return err
	}
	if b.Status != models.StatusConfirmed {
		return fmt.Errorf("%w: booking %s is %s", models.ErrNotFound, id, b.Status)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE bookings SET status = ?, updated_at = ? WHERE id = ?`,
		models.StatusCompleted, s.now(), id)
	return err
}

// intervalFree checks the interval against confirmed bookings and live holds.
// Callers must hold the date lock.
func (s *Store) intervalFree(ctx context.Context, date, start, end, excludeID string) (bool, error) {
	booked, err := s.ConfirmedByDate(ctx, date)
	if err != nil {
		return false, err
	}
	for _, b := range booked {
		if b.ID == excludeID {
			continue
		}
		if models.Overlaps(start, end, b.StartTime, b.EndTime) {
			return false, nil
		}
	}

	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.holds {
		if h.Date != date || now.After(h.ExpiresAt) {
			continue
		}
		if models.Overlaps(start, end, h.StartTime, h.EndTime) {
			return false, nil
		}
	}
	return true, nil
}

func (s *Store) queryBookings(ctx context.Context, query string, args ...any) ([]models.Booking, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()

	var out []models.Booking
	for rows.Next() {
		var b models.Booking
		var reason sql.NullString
		if err := rows.Scan(&b.ID, &b.Date, &b.StartTime, &b.EndTime, &b.AppointmentType,
			&b.PatientName, &b.PatientPhone, &b.PatientEmail, &reason,
			&b.Status, &b.ConfirmationCode, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		b.Reason = reason.String
		out = append(out, b)
	}
	return out, rows.Err()
}

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func (s *Store) randomCode(n int) string {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = codeAlphabet[s.rng.Intn(len(codeAlphabet))]
	}
	return string(buf)
}

func (s *Store) newBookingID() string {
	return fmt.Sprintf("APPT-%s-%s", s.now().Format("20060102150405"), s.randomCode(3))
}

func addMinutes(clock string, minutes int) string {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return clock
	}
	return t.Add(time.Duration(minutes) * time.Minute).Format("15:04")
}
