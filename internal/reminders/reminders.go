// Package reminders notifies patients ahead of their appointments. A periodic
// sweep finds confirmed bookings entering the advance window and dispatches
// one reminder each through a rate-limited sender.
package reminders

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"clinichat/internal/metrics"
	"clinichat/internal/models"
)

// Sender delivers one reminder. Implementations wrap email or SMS gateways.
type Sender interface {
	Send(ctx context.Context, booking models.Booking) error
}

// BookingSource provides bookings for a date.
type BookingSource interface {
	FindByDate(ctx context.Context, date string) ([]models.Booking, error)
}

// Options tunes the reminder service.
type Options struct {
	Advance    time.Duration // how far ahead of the appointment to remind
	Sweep      time.Duration // how often to scan
	RatePerSec float64       // sender rate limit
	Burst      int
}

func (o Options) withDefaults() Options {
	if o.Advance <= 0 {
		o.Advance = 24 * time.Hour
	}
	if o.Sweep <= 0 {
		o.Sweep = 15 * time.Minute
	}
	if o.RatePerSec <= 0 {
		o.RatePerSec = 5
	}
	if o.Burst <= 0 {
		o.Burst = 10
	}
	return o
}

// Service runs the reminder sweep.
type Service struct {
	bookings BookingSource
	sender   Sender
	limiter  *rate.Limiter
	logger   *zerolog.Logger
	opts     Options
	now      func() time.Time

	mu   sync.Mutex
	sent map[string]struct{} // booking ids already reminded
}

// NewService wires a reminder service.
func NewService(bookings BookingSource, sender Sender, logger *zerolog.Logger, opts Options) *Service {
	opts = opts.withDefaults()
	return &Service{
		bookings: bookings,
		sender:   sender,
		limiter:  rate.NewLimiter(rate.Limit(opts.RatePerSec), opts.Burst),
		logger:   logger,
		opts:     opts,
		now:      time.Now,
		sent:     make(map[string]struct{}),
	}
}

// WithClock overrides the wall clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Start runs sweeps until ctx is done.
func (s *Service) Start(ctx context.Context) {
	ticker := time.NewTicker(s.opts.Sweep)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := s.Sweep(ctx); err != nil {
					s.logger.Error().Err(err).Msg("reminder sweep failed")
				} else if n > 0 {
					s.logger.Info().Int("sent", n).Msg("reminders sent")
				}
			}
		}
	}()
}

// Sweep sends reminders for confirmed bookings starting within the advance
// window. Each booking is reminded at most once per process lifetime.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	now := s.now()
	horizon := now.Add(s.opts.Advance)

	sent := 0
	for day := now; !day.After(horizon); day = day.AddDate(0, 0, 1) {
		date := day.Format("2006-01-02")
		bookings, err := s.bookings.FindByDate(ctx, date)
		if err != nil {
			return sent, fmt.Errorf("load bookings for %s: %w", date, err)
		}
		for _, b := range bookings {
			if b.Status != models.StatusConfirmed {
				continue
			}
			startAt, err := time.ParseInLocation("2006-01-02 15:04", b.Date+" "+b.StartTime, now.Location())
			if err != nil || startAt.Before(now) || startAt.After(horizon) {
				continue
			}
			if s.alreadySent(b.ID) {
				continue
			}
			if err := s.limiter.Wait(ctx); err != nil {
				return sent, err
			}
			if err := s.sender.Send(ctx, b); err != nil {
				s.logger.Warn().Err(err).Str("booking_id", b.ID).Msg("reminder send failed")
				continue
			}
			s.markSent(b.ID)
			metrics.RemindersSentTotal.Inc()
			sent++
		}
	}
	return sent, nil
}

func (s *Service) alreadySent(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sent[id]
	return ok
}

func (s *Service) markSent(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent[id] = struct{}{}
}

// LogSender writes reminders to the log. It stands in where no mail or SMS
// gateway is configured.
type LogSender struct {
	Logger *zerolog.Logger
}

// Send logs the reminder.
func (l *LogSender) Send(ctx context.Context, b models.Booking) error {
	l.Logger.Info().
		Str("booking_id", b.ID).
		Str("patient", b.PatientName).
		Str("email", b.PatientEmail).
		Str("slot", b.Date+" "+b.StartTime).
		Msg("appointment reminder")
	return nil
}
