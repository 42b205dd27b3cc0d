package api

import (
	"net/http"
	"strconv"
	"time"

	"clinichat/internal/availability"
	"clinichat/internal/models"
)

// AvailabilityResponse is the response for GET /api/availability.
type AvailabilityResponse struct {
	Date            string                 `json:"date"`
	AppointmentType models.AppointmentType `json:"appointment_type"`
	ExactMatch      bool                   `json:"exact_match"`
	Slots           []models.Slot          `json:"slots"`
}

// handleAvailability returns bookable slots for a date.
// GET /api/availability?date=YYYY-MM-DD&type=consultation&preference=afternoon
func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	date := r.URL.Query().Get("date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		writeError(w, http.StatusBadRequest, "invalid date; expected YYYY-MM-DD")
		return
	}

	appt := models.GeneralConsultation
	if t := r.URL.Query().Get("type"); t != "" {
		parsed, err := models.ParseAppointmentType(t)
		if err != nil {
			writeError(w, http.StatusBadRequest, "unknown appointment type")
			return
		}
		appt = parsed
	}

	pref := availability.TimePreference(r.URL.Query().Get("preference"))
	switch pref {
	case "", availability.PreferenceAny, availability.PreferenceMorning,
		availability.PreferenceAfternoon, availability.PreferenceEvening:
	default:
		writeError(w, http.StatusBadRequest, "unknown time preference")
		return
	}

	slots, exact, err := s.slots.GetAvailableSlots(r.Context(), date, appt, pref)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if slots == nil {
		slots = []models.Slot{}
	}
	writeJSON(w, http.StatusOK, AvailabilityResponse{
		Date:            date,
		AppointmentType: appt,
		ExactMatch:      exact,
		Slots:           slots,
	})
}

// handleAvailableDates summarizes free capacity over the coming days.
// GET /api/availability/dates?days_ahead=14&type=consultation
func (s *HTTPServer) handleAvailableDates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	days := s.lookaheadDays
	if raw := r.URL.Query().Get("days_ahead"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 90 {
			writeError(w, http.StatusBadRequest, "days_ahead must be between 1 and 90")
			return
		}
		days = n
	}

	appt := models.GeneralConsultation
	if t := r.URL.Query().Get("type"); t != "" {
		parsed, err := models.ParseAppointmentType(t)
		if err != nil {
			writeError(w, http.StatusBadRequest, "unknown appointment type")
			return
		}
		appt = parsed
	}

	dates, err := s.slots.AvailableDates(r.Context(), days, appt)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if dates == nil {
		dates = []availability.DateAvailability{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"dates": dates})
}
