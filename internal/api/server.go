// Package api exposes the chat engine and booking store over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"clinichat/internal/availability"
	"clinichat/internal/engine"
	"clinichat/internal/models"
)

// ChatEngine handles conversation messages.
type ChatEngine interface {
	HandleMessage(ctx context.Context, sessionID, message string) (*engine.Response, error)
}

// BookingService is the slice of the store the API exposes directly.
type BookingService interface {
	Reserve(ctx context.Context, date, start, end string, appt models.AppointmentType, reason string) (string, error)
	Confirm(ctx context.Context, token string, patient models.PatientInfo) (*models.Booking, error)
	Release(token string)
	Cancel(ctx context.Context, id string) error
	Reschedule(ctx context.Context, id, newDate, newStart string) (*models.Booking, error)
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	GetByConfirmationCode(ctx context.Context, code string) (*models.Booking, error)
	FindByDate(ctx context.Context, date string) ([]models.Booking, error)
	FindByEmail(ctx context.Context, email string) (upcoming, past []models.Booking, err error)
}

// SlotSource produces availability.
type SlotSource interface {
	GetAvailableSlots(ctx context.Context, date string, appt models.AppointmentType, pref availability.TimePreference) ([]models.Slot, bool, error)
	AvailableDates(ctx context.Context, daysAhead int, appt models.AppointmentType) ([]availability.DateAvailability, error)
}

// ReportWriter streams schedule workbooks.
type ReportWriter interface {
	Day(ctx context.Context, date string, w io.Writer) error
	Range(ctx context.Context, from, to string, w io.Writer) error
}

// HTTPServer serves the public API.
type HTTPServer struct {
	chat     ChatEngine
	bookings BookingService
	slots    SlotSource
	reports  ReportWriter
	logger   *zerolog.Logger

	lookaheadDays int
}

// NewHTTPServer wires the API handlers.
func NewHTTPServer(chat ChatEngine, bookings BookingService, slots SlotSource, reports ReportWriter, logger *zerolog.Logger, lookaheadDays int) *HTTPServer {
	if lookaheadDays <= 0 {
		lookaheadDays = 14
	}
	return &HTTPServer{
		chat:          chat,
		bookings:      bookings,
		slots:         slots,
		reports:       reports,
		logger:        logger,
		lookaheadDays: lookaheadDays,
	}
}

// Routes registers all handlers on a mux.
func (s *HTTPServer) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", s.handleChat)
	mux.HandleFunc("/api/availability", s.handleAvailability)
	mux.HandleFunc("/api/availability/dates", s.handleAvailableDates)
	mux.HandleFunc("/api/book", s.handleBook)
	mux.HandleFunc("/api/cancel", s.handleCancel)
	mux.HandleFunc("/api/reschedule", s.handleReschedule)
	mux.HandleFunc("/api/appointments", s.handleAppointments)
	mux.HandleFunc("/api/my-appointments", s.handleMyAppointments)
	mux.HandleFunc("/api/reports/day", s.handleDayReport)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps store and session errors to HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrValidationFailed):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, models.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrReservationExpired):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrAlreadyCancelled):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrSessionExpired):
		writeError(w, http.StatusGone, "session expired; start a new conversation")
	case errors.Is(err, models.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
