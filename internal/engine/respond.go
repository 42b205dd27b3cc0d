package engine

import (
	"context"
	"fmt"
	"strings"

	"clinichat/internal/availability"
	"clinichat/internal/models"
	"clinichat/internal/session"
)

// Responder rewrites a templated reply into natural phrasing, typically via an
// external language model. The engine never depends on it for correctness: any
// error keeps the template.
type Responder interface {
	Rephrase(ctx context.Context, in RephraseInput) (string, error)
}

// RephraseInput carries the context a responder needs.
type RephraseInput struct {
	Phase       session.Phase
	UserMessage string
	Reply       string
}

const (
	msgWelcome = "Hello! I can help you schedule an appointment, answer questions about the clinic, or manage an existing booking. What can I do for you?"

	msgAskReason = "I'd be happy to help you book an appointment. What brings you in? For example: a follow-up, an annual physical, or a new concern."

	msgAskPreferences = "When would you like to come in? You can say things like \"tomorrow afternoon\" or give a date."

	msgAskName  = "Great, that slot is held for you. May I have your full name?"
	msgAskPhone = "Thanks! What's the best phone number to reach you?"
	msgAskEmail = "And your email address, for the confirmation?"

	msgFallback = "I'm sorry, I didn't quite catch that. Could you rephrase?"

	msgAskBookingRef = "Sure. Can you give me the confirmation code from your booking, or the email address you booked with?"

	msgFAQUnmatched = "I'm not sure about that one. Please call the front desk at (555) 123-4567 and they'll be able to help."
)

func promptFor(phase session.Phase, s *session.Session) string {
	switch phase {
	case session.PhaseGreeting, session.PhaseIntentClassification:
		return msgWelcome
	case session.PhaseUnderstandingNeeds:
		return msgAskReason
	case session.PhaseCollectingPreferences:
		return msgAskPreferences
	case session.PhaseSlotRecommendation:
		if len(s.Draft.OfferedSlots) > 0 {
			return "Here are the available times:\n" + formatSlotList(s.Draft.OfferedSlots) + "\nWhich one works for you?"
		}
		return msgAskPreferences
	case session.PhaseCollectingInfo:
		return nextInfoPrompt(s.Draft.Patient)
	case session.PhaseConfirmation:
		return formatConfirmationSummary(s)
	case session.PhaseManageLookup:
		return msgAskBookingRef
	case session.PhaseRescheduleDate:
		return "What date would you like to move your appointment to?"
	case session.PhaseRescheduleSlot:
		if len(s.Manage.OfferedSlots) > 0 {
			return "Here are the open times:\n" + formatSlotList(s.Manage.OfferedSlots) + "\nWhich one would you like?"
		}
		return "What date would you like to move your appointment to?"
	default:
		return msgFallback
	}
}

func nextInfoPrompt(p models.PatientInfo) string {
	switch {
	case p.Name == "":
		return msgAskName
	case p.Phone == "":
		return msgAskPhone
	default:
		return msgAskEmail
	}
}

func formatSlotList(slots []models.Slot) string {
	var b strings.Builder
	for i, s := range slots {
		fmt.Fprintf(&b, "  %d. %s at %s\n", i+1, friendlyDate(s.Date), clockTo12h(s.StartTime))
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatConfirmationSummary(s *session.Session) string {
	slot := s.Draft.SelectedSlot
	if slot == nil {
		return msgFallback
	}
	return fmt.Sprintf(
		"Let me confirm the details:\n"+
			"  Visit: %s\n"+
			"  When: %s at %s\n"+
			"  Name: %s\n"+
			"  Phone: %s\n"+
			"  Email: %s\n"+
			"Shall I book it?",
		describeType(s.Draft.AppointmentType),
		friendlyDate(slot.Date), clockTo12h(slot.StartTime),
		s.Draft.Patient.Name, s.Draft.Patient.Phone, s.Draft.Patient.Email)
}

func formatBookingConfirmed(b *models.Booking) string {
	return fmt.Sprintf(
		"You're all set! Your %s is booked for %s at %s.\n"+
			"Booking ID: %s\n"+
			"Confirmation code: %s\n"+
			"Keep the code handy if you ever need to change or cancel. Anything else I can help with?",
		describeType(b.AppointmentType),
		friendlyDate(b.Date), clockTo12h(b.StartTime),
		b.ID, b.ConfirmationCode)
}

func formatAlternativeDates(dates []availability.DateAvailability) string {
	var b strings.Builder
	for _, d := range dates {
		fmt.Fprintf(&b, "  %s (%s): %d open times\n", friendlyDate(d.Date), d.DayName, d.AvailableSlots)
	}
	return strings.TrimRight(b.String(), "\n")
}

func describeType(t models.AppointmentType) string {
	switch t {
	case models.FollowUp:
		return "follow-up visit"
	case models.PhysicalExam:
		return "physical exam"
	case models.SpecialistConsultation:
		return "specialist consultation"
	default:
		return "consultation"
	}
}
