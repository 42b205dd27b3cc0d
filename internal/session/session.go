// Package session models the per-user conversation state machine.
package session

import (
	"time"

	"github.com/google/uuid"

	"clinichat/internal/models"
)

// Phase is the current step of the dialogue state machine.
type Phase string

const (
	PhaseGreeting              Phase = "greeting"
	PhaseIntentClassification  Phase = "intent_classification"
	PhaseUnderstandingNeeds    Phase = "understanding_needs"
	PhaseCollectingPreferences Phase = "collecting_preferences"
	PhaseSlotRecommendation    Phase = "slot_recommendation"
	PhaseCollectingInfo        Phase = "collecting_info"
	PhaseConfirmation          Phase = "confirmation"
	PhaseCompleted             Phase = "completed"
	PhaseFAQ                   Phase = "faq"
	PhaseManageLookup          Phase = "manage_lookup"
	PhaseRescheduleDate        Phase = "reschedule_date"
	PhaseRescheduleSlot        Phase = "reschedule_slot"
)

// BookingDraft accumulates slot-filling data for an in-flight booking.
// It is mutated only by the dialogue engine.
type BookingDraft struct {
	Reason           string                 `json:"reason,omitempty"`
	AppointmentType  models.AppointmentType `json:"appointment_type,omitempty"`
	PreferredDate    string                 `json:"preferred_date,omitempty"`
	TimePreference   string                 `json:"time_preference,omitempty"`
	OfferedSlots     []models.Slot          `json:"offered_slots,omitempty"`
	SelectedSlot     *models.Slot           `json:"selected_slot,omitempty"`
	ReservationToken string                 `json:"reservation_token,omitempty"`
	Patient          models.PatientInfo     `json:"patient,omitempty"`
	BookingID        string                 `json:"booking_id,omitempty"`
	ConfirmationCode string                 `json:"confirmation_code,omitempty"`
}

// ManageDraft tracks a cancel/reschedule flow.
type ManageDraft struct {
	Action       string        `json:"action,omitempty"` // "cancel" or "reschedule"
	BookingID    string        `json:"booking_id,omitempty"`
	NewDate      string        `json:"new_date,omitempty"`
	OfferedSlots []models.Slot `json:"offered_slots,omitempty"`
}

// Session is one user's conversation state.
type Session struct {
	ID         string       `json:"id"`
	Phase      Phase        `json:"phase"`
	SavedPhase Phase        `json:"saved_phase,omitempty"` // depth-1 digression stack
	Draft      BookingDraft `json:"draft"`
	Manage     ManageDraft  `json:"manage"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// New creates a fresh session in the greeting phase.
func New() *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.NewString(),
		Phase:     PhaseGreeting,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch bumps the idle timer.
func (s *Session) Touch() {
	s.UpdatedAt = time.Now()
}

// IsExpired reports whether the session idled past ttl.
func (s *Session) IsExpired(ttl time.Duration) bool {
	return time.Since(s.UpdatedAt) > ttl
}

// PushPhase saves the current phase before an FAQ digression. The stack holds
// one phase: a nested digression keeps the original saved phase.
func (s *Session) PushPhase() {
	if s.SavedPhase == "" && s.Phase != PhaseFAQ {
		s.SavedPhase = s.Phase
	}
	s.Phase = PhaseFAQ
}

// PopPhase resumes the phase saved before the digression. With nothing saved
// the session falls back to intent classification.
func (s *Session) PopPhase() Phase {
	if s.SavedPhase == "" {
		s.Phase = PhaseIntentClassification
		return s.Phase
	}
	s.Phase = s.SavedPhase
	s.SavedPhase = ""
	return s.Phase
}

// ResetDraft clears booking progress after completion or restart.
func (s *Session) ResetDraft() {
	s.Draft = BookingDraft{}
}

// ResetManage clears cancel/reschedule progress.
func (s *Session) ResetManage() {
	s.Manage = ManageDraft{}
}

// FSM validates dialogue phase transitions.
type FSM struct {
	transitions map[Phase][]Phase
}

// NewFSM builds the transition table for the scheduling dialogue.
func NewFSM() *FSM {
	anyPhase := []Phase{
		PhaseGreeting, PhaseIntentClassification, PhaseUnderstandingNeeds,
		PhaseCollectingPreferences, PhaseSlotRecommendation, PhaseCollectingInfo,
		PhaseConfirmation, PhaseCompleted, PhaseManageLookup,
		PhaseRescheduleDate, PhaseRescheduleSlot,
	}
	return &FSM{
		transitions: map[Phase][]Phase{
			PhaseGreeting:              {PhaseIntentClassification, PhaseUnderstandingNeeds, PhaseManageLookup, PhaseFAQ},
			PhaseIntentClassification:  {PhaseIntentClassification, PhaseUnderstandingNeeds, PhaseManageLookup, PhaseFAQ},
			PhaseUnderstandingNeeds:    {PhaseUnderstandingNeeds, PhaseCollectingPreferences, PhaseSlotRecommendation, PhaseFAQ},
			PhaseCollectingPreferences: {PhaseCollectingPreferences, PhaseSlotRecommendation, PhaseFAQ},
			PhaseSlotRecommendation:    {PhaseSlotRecommendation, PhaseCollectingInfo, PhaseFAQ},
			PhaseCollectingInfo:        {PhaseCollectingInfo, PhaseConfirmation, PhaseFAQ},
			PhaseConfirmation:          {PhaseConfirmation, PhaseCompleted, PhaseSlotRecommendation},
			PhaseCompleted:             {PhaseIntentClassification, PhaseUnderstandingNeeds, PhaseManageLookup, PhaseFAQ},
			PhaseManageLookup:          {PhaseManageLookup, PhaseRescheduleDate, PhaseIntentClassification, PhaseCompleted, PhaseFAQ},
			PhaseRescheduleDate:        {PhaseRescheduleDate, PhaseRescheduleSlot, PhaseFAQ},
			PhaseRescheduleSlot:        {PhaseRescheduleSlot, PhaseRescheduleDate, PhaseCompleted, PhaseFAQ},
			// Resuming a digression may land on any phase that was saved.
			PhaseFAQ: append([]Phase{PhaseFAQ}, anyPhase...),
		},
	}
}

// CanTransition checks whether from → to is allowed.
func (f *FSM) CanTransition(from, to Phase) bool {
	allowed, ok := f.transitions[from]
	if !ok {
		return false
	}
	for _, p := range allowed {
		if p == to {
			return true
		}
	}
	return false
}

// Transition moves the session to a new phase if the table allows it.
func (f *FSM) Transition(s *Session, to Phase) bool {
	if !f.CanTransition(s.Phase, to) {
		return false
	}
	s.Phase = to
	s.Touch()
	return true
}
