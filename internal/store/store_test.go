package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinichat/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	logger := zerolog.Nop()
	s, err := New(filepath.Join(t.TempDir(), "test.db"), 5*time.Minute, &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

var testPatient = models.PatientInfo{
	Name:  "Maria Garcia",
	Phone: "555-123-4567",
	Email: "maria@example.com",
}

func mustBook(t *testing.T, s *Store, date, start, end string) *models.Booking {
	t.Helper()
	ctx := context.Background()
	token, err := s.Reserve(ctx, date, start, end, models.GeneralConsultation, "checkup")
	require.NoError(t, err)
	b, err := s.Confirm(ctx, token, testPatient)
	require.NoError(t, err)
	return b
}

func TestReserveAndConfirm(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	token, err := s.Reserve(ctx, "2026-09-01", "10:00", "10:30", models.GeneralConsultation, "checkup")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	b, err := s.Confirm(ctx, token, testPatient)
	require.NoError(t, err)

	assert.Regexp(t, `^APPT-\d{14}-[A-Z0-9]{3}$`, b.ID)
	assert.Len(t, b.ConfirmationCode, 6)
	assert.Equal(t, models.StatusConfirmed, b.Status)
	assert.Equal(t, "2026-09-01", b.Date)
	assert.Equal(t, "checkup", b.Reason)

	// The token is gone after confirm.
	_, err = s.Confirm(ctx, token, testPatient)
	assert.ErrorIs(t, err, models.ErrReservationExpired)
}

func TestReserveConflicts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Reserve(ctx, "2026-09-01", "10:00", "10:30", models.GeneralConsultation, "")
	require.NoError(t, err)

	// Overlapping interval is refused while the hold is alive.
	_, err = s.Reserve(ctx, "2026-09-01", "10:15", "10:45", models.GeneralConsultation, "")
	assert.ErrorIs(t, err, models.ErrSlotUnavailable)

	// Adjacent interval is fine.
	_, err = s.Reserve(ctx, "2026-09-01", "10:30", "11:00", models.GeneralConsultation, "")
	assert.NoError(t, err)

	// Same time on another date is fine.
	_, err = s.Reserve(ctx, "2026-09-02", "10:00", "10:30", models.GeneralConsultation, "")
	assert.NoError(t, err)
}

func TestConcurrentReserveSingleWinner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	const workers = 16
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Reserve(ctx, "2026-09-01", "10:00", "10:30", models.GeneralConsultation, "")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	won, lost := 0, 0
	for err := range results {
		if err == nil {
			won++
		} else {
			assert.ErrorIs(t, err, models.ErrSlotUnavailable)
			lost++
		}
	}
	assert.Equal(t, 1, won, "exactly one reserve must win")
	assert.Equal(t, workers-1, lost)
}

func TestHoldExpiry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	token, err := s.Reserve(ctx, "2026-09-01", "10:00", "10:30", models.GeneralConsultation, "")
	require.NoError(t, err)

	// Jump past the TTL.
	base := time.Now()
	s.now = func() time.Time { return base.Add(10 * time.Minute) }

	_, err = s.Confirm(ctx, token, testPatient)
	assert.ErrorIs(t, err, models.ErrReservationExpired)

	// The interval is reclaimable.
	_, err = s.Reserve(ctx, "2026-09-01", "10:00", "10:30", models.GeneralConsultation, "")
	assert.NoError(t, err)
}

func TestExpireHoldsSweep(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Reserve(ctx, "2026-09-01", "10:00", "10:30", models.GeneralConsultation, "")
	require.NoError(t, err)
	_, err = s.Reserve(ctx, "2026-09-01", "11:00", "11:30", models.GeneralConsultation, "")
	require.NoError(t, err)

	assert.Equal(t, 0, s.ExpireHolds())

	base := time.Now()
	s.now = func() time.Time { return base.Add(10 * time.Minute) }
	assert.Equal(t, 2, s.ExpireHolds())
}

func TestReleaseFreesInterval(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	token, err := s.Reserve(ctx, "2026-09-01", "10:00", "10:30", models.GeneralConsultation, "")
	require.NoError(t, err)
	s.Release(token)

	_, err = s.Reserve(ctx, "2026-09-01", "10:00", "10:30", models.GeneralConsultation, "")
	assert.NoError(t, err)

	// Releasing twice is a no-op.
	s.Release(token)
}

func TestCancelFreesInterval(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	b := mustBook(t, s, "2026-09-01", "10:00", "10:30")

	// Taken while confirmed.
	_, err := s.Reserve(ctx, "2026-09-01", "10:00", "10:30", models.GeneralConsultation, "")
	require.ErrorIs(t, err, models.ErrSlotUnavailable)

	require.NoError(t, s.Cancel(ctx, b.ID))

	// Record survives with cancelled status.
	got, err := s.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)

	// Interval is free again.
	_, err = s.Reserve(ctx, "2026-09-01", "10:00", "10:30", models.GeneralConsultation, "")
	assert.NoError(t, err)

	// Cancelling again reports the state.
	assert.ErrorIs(t, s.Cancel(ctx, b.ID), models.ErrAlreadyCancelled)
}

func TestReschedule(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	b := mustBook(t, s, "2026-09-01", "10:00", "10:30")
	moved, err := s.Reschedule(ctx, b.ID, "2026-09-02", "14:00")
	require.NoError(t, err)

	assert.Equal(t, b.ID, moved.ID)
	assert.Equal(t, b.ConfirmationCode, moved.ConfirmationCode)
	assert.Equal(t, "2026-09-02", moved.Date)
	assert.Equal(t, "14:00", moved.StartTime)
	assert.Equal(t, "14:30", moved.EndTime)

	// Old interval is free, new one is taken.
	_, err = s.Reserve(ctx, "2026-09-01", "10:00", "10:30", models.GeneralConsultation, "")
	assert.NoError(t, err)
	_, err = s.Reserve(ctx, "2026-09-02", "14:00", "14:30", models.GeneralConsultation, "")
	assert.ErrorIs(t, err, models.ErrSlotUnavailable)
}

func TestRescheduleConflictKeepsOriginal(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	b := mustBook(t, s, "2026-09-01", "10:00", "10:30")
	mustBook(t, s, "2026-09-02", "14:00", "14:30")

	_, err := s.Reschedule(ctx, b.ID, "2026-09-02", "14:00")
	require.ErrorIs(t, err, models.ErrSlotUnavailable)

	got, err := s.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "2026-09-01", got.Date)
	assert.Equal(t, "10:00", got.StartTime)
}

func TestRescheduleSameDate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	b := mustBook(t, s, "2026-09-01", "10:00", "10:30")
	moved, err := s.Reschedule(ctx, b.ID, "2026-09-01", "15:00")
	require.NoError(t, err)
	assert.Equal(t, "15:00", moved.StartTime)

	// Moving onto its own old interval works: the booking excludes itself.
	moved, err = s.Reschedule(ctx, b.ID, "2026-09-01", "15:00")
	require.NoError(t, err)
	assert.Equal(t, "15:00", moved.StartTime)
}

func TestGetByConfirmationCode(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	b := mustBook(t, s, "2026-09-01", "10:00", "10:30")

	got, err := s.GetByConfirmationCode(ctx, b.ConfirmationCode)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	_, err = s.GetByConfirmationCode(ctx, "ZZZZZZ")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestFindByEmailSplitsUpcomingAndPast(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	past := mustBook(t, s, "2026-08-28", "10:00", "10:30")
	soon := mustBook(t, s, "2026-09-01", "10:00", "10:30")
	later := mustBook(t, s, "2026-09-03", "10:00", "10:30")
	cancelled := mustBook(t, s, "2026-09-05", "10:00", "10:30")
	require.NoError(t, s.Cancel(ctx, cancelled.ID))

	upcoming, history, err := s.FindByEmail(ctx, "MARIA@example.com") // case-insensitive
	require.NoError(t, err)

	require.Len(t, upcoming, 2)
	assert.Equal(t, soon.ID, upcoming[0].ID, "upcoming sorted ascending")
	assert.Equal(t, later.ID, upcoming[1].ID)

	require.Len(t, history, 2)
	assert.Equal(t, cancelled.ID, history[0].ID, "past sorted most recent first")
	assert.Equal(t, past.ID, history[1].ID)
}

func TestConfirmValidatesPatient(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	token, err := s.Reserve(ctx, "2026-09-01", "10:00", "10:30", models.GeneralConsultation, "")
	require.NoError(t, err)

	bad := testPatient
	bad.Email = "not-an-email"
	_, err = s.Confirm(ctx, token, bad)
	assert.ErrorIs(t, err, models.ErrValidationFailed)

	// The hold survives a validation failure.
	_, err = s.Confirm(ctx, token, testPatient)
	assert.NoError(t, err)
}

func TestMarkCompleted(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	b := mustBook(t, s, "2026-09-01", "10:00", "10:30")
	require.NoError(t, s.MarkCompleted(ctx, b.ID))

	got, err := s.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)

	assert.Error(t, s.MarkCompleted(ctx, b.ID))
}

func TestReserveUnknownType(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Reserve(context.Background(), "2026-09-01", "10:00", "10:30", models.AppointmentType("surgery"), "")
	assert.ErrorIs(t, err, models.ErrValidationFailed)
}
