package api

import (
	"encoding/json"
	"net/http"
	"time"

	"clinichat/internal/models"
)

// BookRequest is the request body for POST /api/book: a direct booking that
// bypasses the conversation.
type BookRequest struct {
	Date            string             `json:"date"`       // YYYY-MM-DD
	StartTime       string             `json:"start_time"` // HH:MM
	AppointmentType string             `json:"appointment_type"`
	Reason          string             `json:"reason,omitempty"`
	Patient         models.PatientInfo `json:"patient"`
}

// handleBook reserves and confirms a slot in one call.
// POST /api/book
func (s *HTTPServer) handleBook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req BookRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		writeError(w, http.StatusBadRequest, "invalid date; expected YYYY-MM-DD")
		return
	}
	if _, err := time.Parse("15:04", req.StartTime); err != nil {
		writeError(w, http.StatusBadRequest, "invalid start_time; expected HH:MM")
		return
	}
	appt, err := models.ParseAppointmentType(req.AppointmentType)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown appointment type")
		return
	}
	if err := req.Patient.Validate(); err != nil {
		writeDomainError(w, err)
		return
	}

	end := endOf(req.StartTime, appt)
	token, err := s.bookings.Reserve(r.Context(), req.Date, req.StartTime, end, appt, req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	booking, err := s.bookings.Confirm(r.Context(), token, req.Patient)
	if err != nil {
		s.bookings.Release(token)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

func endOf(start string, appt models.AppointmentType) string {
	t, err := time.Parse("15:04", start)
	if err != nil {
		return start
	}
	return t.Add(appt.Duration()).Format("15:04")
}

// CancelRequest identifies the booking to cancel.
type CancelRequest struct {
	BookingID        string `json:"booking_id,omitempty"`
	ConfirmationCode string `json:"confirmation_code,omitempty"`
}

// handleCancel cancels a booking by id or confirmation code.
// POST /api/cancel
func (s *HTTPServer) handleCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req CancelRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	booking, err := s.lookup(r, req.BookingID, req.ConfirmationCode)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := s.bookings.Cancel(r.Context(), booking.ID); err != nil {
		writeDomainError(w, err)
		return
	}

	booking, err = s.bookings.GetBooking(r.Context(), booking.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

// RescheduleRequest moves a booking to a new slot.
type RescheduleRequest struct {
	BookingID        string `json:"booking_id,omitempty"`
	ConfirmationCode string `json:"confirmation_code,omitempty"`
	NewDate          string `json:"new_date"`       // YYYY-MM-DD
	NewStartTime     string `json:"new_start_time"` // HH:MM
}

// handleReschedule atomically moves a booking. The id and confirmation code
// are unchanged by the move.
// POST /api/reschedule
func (s *HTTPServer) handleReschedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req RescheduleRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if _, err := time.Parse("2006-01-02", req.NewDate); err != nil {
		writeError(w, http.StatusBadRequest, "invalid new_date; expected YYYY-MM-DD")
		return
	}
	if _, err := time.Parse("15:04", req.NewStartTime); err != nil {
		writeError(w, http.StatusBadRequest, "invalid new_start_time; expected HH:MM")
		return
	}

	booking, err := s.lookup(r, req.BookingID, req.ConfirmationCode)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	moved, err := s.bookings.Reschedule(r.Context(), booking.ID, req.NewDate, req.NewStartTime)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, moved)
}

func (s *HTTPServer) lookup(r *http.Request, id, code string) (*models.Booking, error) {
	if id != "" {
		return s.bookings.GetBooking(r.Context(), id)
	}
	if code != "" {
		return s.bookings.GetByConfirmationCode(r.Context(), code)
	}
	return nil, models.ErrNotFound
}

// handleAppointments lists all bookings on a date, for the front desk.
// GET /api/appointments?date=YYYY-MM-DD
func (s *HTTPServer) handleAppointments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	date := r.URL.Query().Get("date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		writeError(w, http.StatusBadRequest, "invalid date; expected YYYY-MM-DD")
		return
	}

	bookings, err := s.bookings.FindByDate(r.Context(), date)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": date, "appointments": bookings})
}

// MyAppointmentsResponse splits a patient's bookings by time.
type MyAppointmentsResponse struct {
	Upcoming []models.Booking `json:"upcoming"`
	Past     []models.Booking `json:"past"`
}

// handleMyAppointments lists a patient's bookings by email.
// GET /api/my-appointments?email=...
func (s *HTTPServer) handleMyAppointments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	email := r.URL.Query().Get("email")
	if err := models.ValidateEmail(email); err != nil {
		writeError(w, http.StatusBadRequest, "invalid email")
		return
	}

	upcoming, past, err := s.bookings.FindByEmail(r.Context(), email)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if upcoming == nil {
		upcoming = []models.Booking{}
	}
	if past == nil {
		past = []models.Booking{}
	}
	writeJSON(w, http.StatusOK, MyAppointmentsResponse{Upcoming: upcoming, Past: past})
}
