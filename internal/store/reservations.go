package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"clinichat/internal/metrics"
	"clinichat/internal/models"
)

// hold is a time-bounded claim on an interval, created by Reserve and
// finalized by Confirm or dropped by Release/expiry.
type hold struct {
	Token     string
	Date      string
	StartTime string
	EndTime   string
	Appt      models.AppointmentType
	Reason    string
	ExpiresAt time.Time
}

// Reserve atomically checks the interval against confirmed bookings and live
// holds and, if free, creates a hold. At most one concurrent Reserve can
// succeed for overlapping intervals on a date: the whole check-and-hold runs
// under that date's lock.
func (s *Store) Reserve(ctx context.Context, date, start, end string, appt models.AppointmentType, reason string) (string, error) {
	if !appt.Valid() {
		return "", fmt.Errorf("%w: unknown appointment type", models.ErrValidationFailed)
	}

	lock := s.dateLock(date)
	lock.Lock()
	defer lock.Unlock()

	free, err := s.intervalFree(ctx, date, start, end, "")
	if err != nil {
		return "", err
	}
	if !free {
		return "", fmt.Errorf("%w: %s %s-%s", models.ErrSlotUnavailable, date, start, end)
	}

	token := uuid.NewString()
	s.mu.Lock()
	s.holds[token] = &hold{
		Token:     token,
		Date:      date,
		StartTime: start,
		EndTime:   end,
		Appt:      appt,
		Reason:    reason,
		ExpiresAt: s.now().Add(s.holdTTL),
	}
	s.mu.Unlock()

	s.logger.Debug().
		Str("token", token).
		Str("slot", date+" "+start+"-"+end).
		Msg("slot reserved")
	return token, nil
}

// Confirm materializes a held reservation into a confirmed booking and
// releases the hold. An expired or unknown token yields ErrReservationExpired.
func (s *Store) Confirm(ctx context.Context, token string, patient models.PatientInfo) (*models.Booking, error) {
	if err := patient.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	h, ok := s.holds[token]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown reservation", models.ErrReservationExpired)
	}
	if s.now().After(h.ExpiresAt) {
		s.Release(token)
		return nil, fmt.Errorf("%w: reservation timed out", models.ErrReservationExpired)
	}

	lock := s.dateLock(h.Date)
	lock.Lock()
	defer lock.Unlock()

	// The hold shields the interval, but re-check against confirmed rows so a
	// store invariant violation can never be written.
	booked, err := s.ConfirmedByDate(ctx, h.Date)
	if err != nil {
		return nil, err
	}
	for _, b := range booked {
		if models.Overlaps(h.StartTime, h.EndTime, b.StartTime, b.EndTime) {
			s.logger.Error().
				Str("token", token).
				Str("conflict", b.ID).
				Msg("hold overlaps a confirmed booking; refusing confirm")
			return nil, fmt.Errorf("%w: interval taken", models.ErrSlotUnavailable)
		}
	}

	now := s.now()
	booking := &models.Booking{
		ID:               s.newBookingID(),
		Date:             h.Date,
		StartTime:        h.StartTime,
		EndTime:          h.EndTime,
		AppointmentType:  h.Appt,
		PatientName:      patient.Name,
		PatientPhone:     patient.Phone,
		PatientEmail:     patient.Email,
		Reason:           h.Reason,
		Status:           models.StatusConfirmed,
		ConfirmationCode: s.randomCode(6),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO bookings (id, date, start_time, end_time, appointment_type,
		   patient_name, patient_phone, patient_email, reason, status,
		   confirmation_code, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		booking.ID, booking.Date, booking.StartTime, booking.EndTime,
		booking.AppointmentType, booking.PatientName, booking.PatientPhone,
		booking.PatientEmail, booking.Reason, booking.Status,
		booking.ConfirmationCode, booking.CreatedAt, booking.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert booking: %w", err)
	}

	s.Release(token)
	s.logger.Info().
		Str("booking_id", booking.ID).
		Str("slot", booking.Date+" "+booking.StartTime).
		Msg("booking confirmed")
	return booking, nil
}

// Release drops a hold, returning its interval to the pool. Unknown tokens
// are ignored: release after expiry is a no-op.
func (s *Store) Release(token string) {
	s.mu.Lock()
	delete(s.holds, token)
	s.mu.Unlock()
}

// HoldInfo describes a live hold, for the engine to re-offer its slot details.
type HoldInfo struct {
	Date      string
	StartTime string
	EndTime   string
	Appt      models.AppointmentType
}

// HoldDetails returns the interval a token holds, if it is still alive.
func (s *Store) HoldDetails(token string) (HoldInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.holds[token]
	if !ok || s.now().After(h.ExpiresAt) {
		return HoldInfo{}, false
	}
	return HoldInfo{Date: h.Date, StartTime: h.StartTime, EndTime: h.EndTime, Appt: h.Appt}, true
}

// ExpireHolds removes holds past their deadline and returns how many were dropped.
func (s *Store) ExpireHolds() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for token, h := range s.holds {
		if now.After(h.ExpiresAt) {
			delete(s.holds, token)
			removed++
		}
	}
	return removed
}

// StartHoldSweeper expires abandoned holds periodically until ctx is done.
func (s *Store) StartHoldSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.ExpireHolds(); n > 0 {
					metrics.HoldsExpiredTotal.Add(float64(n))
					s.logger.Debug().Int("expired", n).Msg("reservation holds expired")
				}
			}
		}
	}()
}
