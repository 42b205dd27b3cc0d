// Package models defines the core domain types shared across the service.
package models

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Domain errors. Handlers and the dialogue engine branch on these with errors.Is.
var (
	ErrSlotUnavailable     = errors.New("slot unavailable")
	ErrReservationExpired  = errors.New("reservation expired")
	ErrValidationFailed    = errors.New("validation failed")
	ErrNotFound            = errors.New("not found")
	ErrAlreadyCancelled    = errors.New("booking already cancelled")
	ErrSessionExpired      = errors.New("session expired")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// AppointmentType identifies the kind of visit. Each type has a fixed duration.
type AppointmentType string

const (
	GeneralConsultation    AppointmentType = "consultation"
	FollowUp               AppointmentType = "followup"
	PhysicalExam           AppointmentType = "physical"
	SpecialistConsultation AppointmentType = "specialist"
)

var appointmentDurations = map[AppointmentType]int{
	GeneralConsultation:    30,
	FollowUp:               15,
	PhysicalExam:           45,
	SpecialistConsultation: 60,
}

// Duration returns the appointment length in minutes.
func (t AppointmentType) Duration() time.Duration {
	minutes, ok := appointmentDurations[t]
	if !ok {
		minutes = appointmentDurations[GeneralConsultation]
	}
	return time.Duration(minutes) * time.Minute
}

// Valid reports whether t is a known appointment type.
func (t AppointmentType) Valid() bool {
	_, ok := appointmentDurations[t]
	return ok
}

// ParseAppointmentType maps a string to an AppointmentType.
func ParseAppointmentType(s string) (AppointmentType, error) {
	t := AppointmentType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown appointment type %q", ErrValidationFailed, s)
	}
	return t, nil
}

// AppointmentTypes lists all known types in a stable order.
func AppointmentTypes() []AppointmentType {
	return []AppointmentType{GeneralConsultation, FollowUp, PhysicalExam, SpecialistConsultation}
}

// Booking statuses.
const (
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

// Slot is a candidate bookable window. Derived, never persisted.
type Slot struct {
	Date      string `json:"date"`       // YYYY-MM-DD
	StartTime string `json:"start_time"` // HH:MM
	EndTime   string `json:"end_time"`   // HH:MM
	Available bool   `json:"available"`
}

// Booking is a finalized appointment record, owned by the booking store.
type Booking struct {
	ID               string          `json:"booking_id"`
	Date             string          `json:"date"`
	StartTime        string          `json:"start_time"`
	EndTime          string          `json:"end_time"`
	AppointmentType  AppointmentType `json:"appointment_type"`
	PatientName      string          `json:"patient_name"`
	PatientPhone     string          `json:"patient_phone"`
	PatientEmail     string          `json:"patient_email"`
	Reason           string          `json:"reason,omitempty"`
	Status           string          `json:"status"`
	ConfirmationCode string          `json:"confirmation_code"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// PatientInfo holds contact details collected during booking.
type PatientInfo struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

var (
	emailRe = regexp.MustCompile(`^[\w.+-]+@[\w-]+(\.[\w-]+)+$`)
	nameRe  = regexp.MustCompile(`^[\p{L}][\p{L} .'-]+$`)
)

// ValidateName checks a patient name.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if len(name) < 2 || !nameRe.MatchString(name) {
		return fmt.Errorf("%w: invalid name", ErrValidationFailed)
	}
	return nil
}

// ValidatePhone checks a phone number: at least 10 digits after stripping separators.
func ValidatePhone(phone string) error {
	digits := 0
	for _, r := range phone {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+' || r == '-' || r == '(' || r == ')' || r == ' ' || r == '.':
		default:
			return fmt.Errorf("%w: invalid phone", ErrValidationFailed)
		}
	}
	if digits < 10 {
		return fmt.Errorf("%w: phone must contain at least 10 digits", ErrValidationFailed)
	}
	return nil
}

// ValidateEmail checks an email address syntactically.
func ValidateEmail(email string) error {
	if !emailRe.MatchString(strings.TrimSpace(email)) {
		return fmt.Errorf("%w: invalid email", ErrValidationFailed)
	}
	return nil
}

// Validate checks all contact fields.
func (p PatientInfo) Validate() error {
	if err := ValidateName(p.Name); err != nil {
		return err
	}
	if err := ValidatePhone(p.Phone); err != nil {
		return err
	}
	return ValidateEmail(p.Email)
}

// Overlaps reports whether two [start, end) intervals on the same date intersect.
// Times are HH:MM strings; lexicographic comparison matches chronological order.
func Overlaps(start1, end1, start2, end2 string) bool {
	return start1 < end2 && start2 < end1
}
