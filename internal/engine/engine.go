// Package engine drives the scheduling conversation: it classifies each
// message, advances the session phase machine, and talks to the booking store
// and availability generator on the user's behalf.
package engine

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"clinichat/internal/availability"
	"clinichat/internal/faq"
	"clinichat/internal/metrics"
	"clinichat/internal/models"
	"clinichat/internal/session"
)

// BookingStore is the slice of the store the engine drives.
type BookingStore interface {
	Reserve(ctx context.Context, date, start, end string, appt models.AppointmentType, reason string) (string, error)
	Confirm(ctx context.Context, token string, patient models.PatientInfo) (*models.Booking, error)
	Release(token string)
	Cancel(ctx context.Context, id string) error
	Reschedule(ctx context.Context, id, newDate, newStart string) (*models.Booking, error)
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	GetByConfirmationCode(ctx context.Context, code string) (*models.Booking, error)
	FindByEmail(ctx context.Context, email string) (upcoming, past []models.Booking, err error)
}

// SlotSource produces bookable slots and date summaries.
type SlotSource interface {
	GetAvailableSlots(ctx context.Context, date string, appt models.AppointmentType, pref availability.TimePreference) ([]models.Slot, bool, error)
	AvailableDates(ctx context.Context, daysAhead int, appt models.AppointmentType) ([]availability.DateAvailability, error)
}

// Options tunes conversation behavior.
type Options struct {
	MaxOfferedSlots  int // slots listed per reply
	AlternativeDates int // dates suggested when a day is full
	LookaheadDays    int // horizon for alternative-date scans
}

func (o Options) withDefaults() Options {
	if o.MaxOfferedSlots <= 0 {
		o.MaxOfferedSlots = 5
	}
	if o.AlternativeDates <= 0 {
		o.AlternativeDates = 3
	}
	if o.LookaheadDays <= 0 {
		o.LookaheadDays = 14
	}
	return o
}

// Response is the engine's answer to one message.
type Response struct {
	SessionID string         `json:"session_id"`
	Reply     string         `json:"reply"`
	Phase     session.Phase  `json:"phase"`
	Intent    Intent         `json:"intent"`
	Booking   *BookingStatus `json:"booking,omitempty"`
}

// BookingStatus surfaces booking progress alongside the reply.
type BookingStatus struct {
	Status           string `json:"status"` // in_progress or completed
	BookingID        string `json:"booking_id,omitempty"`
	ConfirmationCode string `json:"confirmation_code,omitempty"`
	Date             string `json:"date,omitempty"`
	StartTime        string `json:"start_time,omitempty"`
}

// Engine is the dialogue orchestrator.
type Engine struct {
	sessions   session.Repository
	fsm        *session.FSM
	store      BookingStore
	slots      SlotSource
	classifier Classifier
	rules      *RuleClassifier
	responder  Responder
	answerer   faq.Answerer
	logger     *zerolog.Logger
	opts       Options

	locks sync.Map // session id -> *sync.Mutex
}

// New wires the engine. The rule classifier doubles as the fallback when an
// external classifier errors.
func New(sessions session.Repository, st BookingStore, slots SlotSource, answerer faq.Answerer, logger *zerolog.Logger, opts Options) *Engine {
	rules := NewRuleClassifier(asKeywordAnswerer(answerer))
	return &Engine{
		sessions:   sessions,
		fsm:        session.NewFSM(),
		store:      st,
		slots:      slots,
		classifier: rules,
		rules:      rules,
		answerer:   answerer,
		logger:     logger,
		opts:       opts.withDefaults(),
	}
}

func asKeywordAnswerer(a faq.Answerer) *faq.KeywordAnswerer {
	if k, ok := a.(*faq.KeywordAnswerer); ok {
		return k
	}
	return faq.NewKeywordAnswerer(nil)
}

// WithClassifier swaps in an external classifier.
func (e *Engine) WithClassifier(c Classifier) *Engine {
	e.classifier = c
	return e
}

// WithResponder installs a reply rephraser.
func (e *Engine) WithResponder(r Responder) *Engine {
	e.responder = r
	return e
}

func (e *Engine) lockFor(id string) *sync.Mutex {
	mu, _ := e.locks.LoadOrStore(id, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// HandleMessage processes one user message. An empty sessionID starts a new
// conversation; unknown or expired ids surface their typed error untouched.
func (e *Engine) HandleMessage(ctx context.Context, sessionID, message string) (*Response, error) {
	var s *session.Session
	if sessionID == "" {
		s = session.New()
	} else {
		mu := e.lockFor(sessionID)
		mu.Lock()
		defer mu.Unlock()

		var err error
		s, err = e.sessions.Get(ctx, sessionID)
		if err != nil {
			return nil, err
		}
	}

	intent, ents, err := e.classifier.Classify(ctx, message, s.Phase)
	if err != nil {
		e.logger.Warn().Err(err).Msg("classifier failed, falling back to rules")
		intent, ents, _ = e.rules.Classify(ctx, message, s.Phase)
	}
	metrics.MessagesTotal.WithLabelValues(string(intent)).Inc()

	reply, booking := e.dispatch(ctx, s, message, intent, ents)
	reply = e.rephrase(ctx, s, message, reply, booking)

	s.Touch()
	if err := e.sessions.Save(ctx, s); err != nil {
		e.logger.Error().Err(err).Str("session_id", s.ID).Msg("session save failed")
	}

	return &Response{
		SessionID: s.ID,
		Reply:     reply,
		Phase:     s.Phase,
		Intent:    intent,
		Booking:   booking,
	}, nil
}

// rephrase hands the templated reply to the responder. Replies carrying
// structured booking facts are never rephrased.
func (e *Engine) rephrase(ctx context.Context, s *session.Session, message, reply string, booking *BookingStatus) string {
	if e.responder == nil || booking != nil || s.Phase == session.PhaseConfirmation {
		return reply
	}
	out, err := e.responder.Rephrase(ctx, RephraseInput{Phase: s.Phase, UserMessage: message, Reply: reply})
	if err != nil {
		e.logger.Warn().Err(err).Msg("responder failed, using template reply")
		return reply
	}
	if strings.TrimSpace(out) == "" {
		return reply
	}
	return out
}

func (e *Engine) dispatch(ctx context.Context, s *session.Session, message string, intent Intent, ents Entities) (string, *BookingStatus) {
	// FAQ digressions run from any phase the machine allows, resolve in a
	// single turn, and resume the saved phase.
	if intent == IntentFAQ && e.fsm.CanTransition(s.Phase, session.PhaseFAQ) {
		return e.handleFAQ(ctx, s, message), nil
	}

	// Cancel/reschedule requests open the manage flow from entry phases.
	if intent == IntentCancel || intent == IntentReschedule {
		switch s.Phase {
		case session.PhaseGreeting, session.PhaseIntentClassification, session.PhaseCompleted:
			s.ResetManage()
			if intent == IntentCancel {
				s.Manage.Action = "cancel"
			} else {
				s.Manage.Action = "reschedule"
			}
			e.fsm.Transition(s, session.PhaseManageLookup)
			return msgAskBookingRef, nil
		}
	}

	switch s.Phase {
	case session.PhaseGreeting, session.PhaseIntentClassification, session.PhaseCompleted:
		return e.handleEntry(ctx, s, intent, ents), nil
	case session.PhaseUnderstandingNeeds:
		return e.handleUnderstandingNeeds(ctx, s, message, ents), nil
	case session.PhaseCollectingPreferences:
		return e.handleCollectingPreferences(ctx, s, ents), nil
	case session.PhaseSlotRecommendation:
		return e.handleSlotRecommendation(ctx, s, message, intent, ents)
	case session.PhaseCollectingInfo:
		return e.handleCollectingInfo(s, message)
	case session.PhaseConfirmation:
		return e.handleConfirmation(ctx, s, intent)
	case session.PhaseManageLookup:
		return e.handleManageLookup(ctx, s, message), nil
	case session.PhaseRescheduleDate:
		return e.handleRescheduleDate(ctx, s, ents), nil
	case session.PhaseRescheduleSlot:
		return e.handleRescheduleSlot(ctx, s, message, ents), nil
	default:
		return msgFallback, nil
	}
}

func (e *Engine) handleFAQ(ctx context.Context, s *session.Session, question string) string {
	s.PushPhase()

	answer, ok, err := e.answerer.Answer(ctx, question)
	if err != nil {
		e.logger.Warn().Err(err).Msg("faq answerer failed")
		ok = false
	}
	if !ok {
		answer = msgFAQUnmatched
		metrics.FAQTotal.WithLabelValues("unmatched").Inc()
	} else {
		metrics.FAQTotal.WithLabelValues("answered").Inc()
	}

	resumed := s.PopPhase()
	switch resumed {
	case session.PhaseGreeting, session.PhaseIntentClassification, session.PhaseCompleted:
		return answer + "\n\nIs there anything else I can help you with?"
	default:
		return answer + "\n\nNow, back to where we were. " + promptFor(resumed, s)
	}
}

func (e *Engine) handleEntry(ctx context.Context, s *session.Session, intent Intent, ents Entities) string {
	switch intent {
	case IntentGreeting:
		if s.Phase == session.PhaseGreeting {
			e.fsm.Transition(s, session.PhaseIntentClassification)
		}
		return msgWelcome
	case IntentSchedule:
		s.ResetDraft()
		s.Draft.PreferredDate = ents.Date
		if ents.TimePreference != availability.PreferenceAny {
			s.Draft.TimePreference = string(ents.TimePreference)
		}
		e.fsm.Transition(s, session.PhaseUnderstandingNeeds)
		return msgAskReason
	default:
		if s.Phase == session.PhaseGreeting {
			e.fsm.Transition(s, session.PhaseIntentClassification)
		}
		return msgWelcome
	}
}

func (e *Engine) handleUnderstandingNeeds(ctx context.Context, s *session.Session, message string, ents Entities) string {
	reason := strings.TrimSpace(message)
	if len(reason) < 3 {
		return msgAskReason
	}
	s.Draft.Reason = reason
	s.Draft.AppointmentType = InferAppointmentType(reason)

	if ents.Date != "" {
		s.Draft.PreferredDate = ents.Date
	}
	if ents.TimePreference != availability.PreferenceAny {
		s.Draft.TimePreference = string(ents.TimePreference)
	}

	ack := fmt.Sprintf("Got it, a %s (%d minutes).", describeType(s.Draft.AppointmentType),
		int(s.Draft.AppointmentType.Duration().Minutes()))

	if s.Draft.PreferredDate != "" {
		e.fsm.Transition(s, session.PhaseSlotRecommendation)
		return ack + " " + e.offerSlots(ctx, s, s.Draft.PreferredDate)
	}
	e.fsm.Transition(s, session.PhaseCollectingPreferences)
	return ack + " " + msgAskPreferences
}

func (e *Engine) handleCollectingPreferences(ctx context.Context, s *session.Session, ents Entities) string {
	if ents.TimePreference != availability.PreferenceAny {
		s.Draft.TimePreference = string(ents.TimePreference)
	}
	if ents.Date != "" {
		s.Draft.PreferredDate = ents.Date
	}
	if s.Draft.PreferredDate == "" {
		return msgAskPreferences
	}
	e.fsm.Transition(s, session.PhaseSlotRecommendation)
	return e.offerSlots(ctx, s, s.Draft.PreferredDate)
}

// offerSlots loads availability for the date and fills Draft.OfferedSlots.
// Callers must already have moved the session to slot recommendation.
func (e *Engine) offerSlots(ctx context.Context, s *session.Session, date string) string {
	s.Draft.PreferredDate = date
	pref := availability.TimePreference(s.Draft.TimePreference)

	slots, exact, err := e.slots.GetAvailableSlots(ctx, date, s.Draft.AppointmentType, pref)
	if err != nil {
		e.logger.Error().Err(err).Str("date", date).Msg("availability lookup failed")
		return "I'm having trouble checking the schedule right now. Could you try that again in a moment?"
	}

	if len(slots) == 0 {
		s.Draft.OfferedSlots = nil
		dates, err := e.slots.AvailableDates(ctx, e.opts.LookaheadDays, s.Draft.AppointmentType)
		if err != nil || len(dates) == 0 {
			return fmt.Sprintf("I'm sorry, there is no availability on %s. What other date would work for you?", friendlyDate(date))
		}
		alt := dates
		if len(alt) > e.opts.AlternativeDates {
			alt = alt[:e.opts.AlternativeDates]
		}
		return fmt.Sprintf("I'm sorry, %s is fully booked. The nearest days with openings are:\n%s\nWould any of these work?",
			friendlyDate(date), formatAlternativeDates(alt))
	}

	if len(slots) > e.opts.MaxOfferedSlots {
		slots = slots[:e.opts.MaxOfferedSlots]
	}
	s.Draft.OfferedSlots = slots

	prefix := ""
	if !exact {
		prefix = fmt.Sprintf("Nothing is open in the %s on %s, but here is what's available:\n", s.Draft.TimePreference, friendlyDate(date))
	} else {
		prefix = fmt.Sprintf("Here are the available times on %s:\n", friendlyDate(date))
	}
	return prefix + formatSlotList(slots) + "\nWhich one works for you?"
}

func (e *Engine) handleSlotRecommendation(ctx context.Context, s *session.Session, message string, intent Intent, ents Entities) (string, *BookingStatus) {
	// A new date restarts the offer, as does re-asking after an empty offer.
	if ents.Date != "" && ents.TimeSelection == "" &&
		(ents.Date != s.Draft.PreferredDate || len(s.Draft.OfferedSlots) == 0) {
		if ents.TimePreference != availability.PreferenceAny {
			s.Draft.TimePreference = string(ents.TimePreference)
		}
		return e.offerSlots(ctx, s, ents.Date), nil
	}

	if intent == IntentDecline {
		return "No problem. What other date or time of day would suit you better?", nil
	}

	slot, ok := e.matchOffered(s.Draft.OfferedSlots, message, ents)
	if !ok {
		if len(s.Draft.OfferedSlots) == 0 {
			return msgAskPreferences, nil
		}
		return "That time isn't one of the open slots. Here they are again:\n" +
			formatSlotList(s.Draft.OfferedSlots) + "\nWhich would you like?", nil
	}

	// Drop any earlier hold before taking a new one.
	if s.Draft.ReservationToken != "" {
		e.store.Release(s.Draft.ReservationToken)
		s.Draft.ReservationToken = ""
	}

	token, err := e.store.Reserve(ctx, slot.Date, slot.StartTime, slot.EndTime, s.Draft.AppointmentType, s.Draft.Reason)
	if errors.Is(err, models.ErrSlotUnavailable) {
		return "I'm sorry, that time was just taken. " + e.offerSlots(ctx, s, slot.Date), nil
	}
	if err != nil {
		e.logger.Error().Err(err).Msg("reserve failed")
		return "I couldn't hold that slot just now. Could you try again?", nil
	}

	s.Draft.ReservationToken = token
	s.Draft.SelectedSlot = &slot
	e.fsm.Transition(s, session.PhaseCollectingInfo)
	return msgAskName, e.progressStatus(s)
}

// matchOffered resolves a selection against the offered list, by exact start
// time or by list position.
func (e *Engine) matchOffered(offered []models.Slot, message string, ents Entities) (models.Slot, bool) {
	if ents.TimeSelection != "" {
		for _, slot := range offered {
			if slot.StartTime == ents.TimeSelection {
				return slot, true
			}
		}
		return models.Slot{}, false
	}
	if n, ok := parseOrdinal(message); ok && n >= 1 && n <= len(offered) {
		return offered[n-1], true
	}
	return models.Slot{}, false
}

func (e *Engine) handleCollectingInfo(s *session.Session, message string) (string, *BookingStatus) {
	value := strings.TrimSpace(message)
	p := &s.Draft.Patient

	switch {
	case p.Name == "":
		if err := models.ValidateName(value); err != nil {
			return "That doesn't look like a full name. Could you give me your first and last name?", e.progressStatus(s)
		}
		p.Name = value
		return msgAskPhone, e.progressStatus(s)
	case p.Phone == "":
		if err := models.ValidatePhone(value); err != nil {
			return "That phone number doesn't look right. Please include the area code, at least 10 digits.", e.progressStatus(s)
		}
		p.Phone = value
		return msgAskEmail, e.progressStatus(s)
	default:
		if err := models.ValidateEmail(value); err != nil {
			return "That email address doesn't look valid. Could you double-check it?", e.progressStatus(s)
		}
		p.Email = value
		e.fsm.Transition(s, session.PhaseConfirmation)
		return formatConfirmationSummary(s), e.progressStatus(s)
	}
}

func (e *Engine) handleConfirmation(ctx context.Context, s *session.Session, intent Intent) (string, *BookingStatus) {
	switch intent {
	case IntentConfirm:
		booking, err := e.store.Confirm(ctx, s.Draft.ReservationToken, s.Draft.Patient)
		switch {
		case errors.Is(err, models.ErrReservationExpired), errors.Is(err, models.ErrSlotUnavailable):
			s.Draft.ReservationToken = ""
			s.Draft.SelectedSlot = nil
			e.fsm.Transition(s, session.PhaseSlotRecommendation)
			return "I'm sorry, that hold lapsed before we finished. Let's pick a time again. " +
				e.offerSlots(ctx, s, s.Draft.PreferredDate), nil
		case err != nil:
			e.logger.Error().Err(err).Msg("confirm failed")
			return "Something went wrong while booking. Shall I try again?", e.progressStatus(s)
		}

		metrics.BookingsTotal.WithLabelValues("confirmed").Inc()
		s.Draft.ReservationToken = ""
		s.Draft.BookingID = booking.ID
		s.Draft.ConfirmationCode = booking.ConfirmationCode
		e.fsm.Transition(s, session.PhaseCompleted)
		return formatBookingConfirmed(booking), &BookingStatus{
			Status:           "completed",
			BookingID:        booking.ID,
			ConfirmationCode: booking.ConfirmationCode,
			Date:             booking.Date,
			StartTime:        booking.StartTime,
		}

	case IntentDecline:
		if s.Draft.ReservationToken != "" {
			e.store.Release(s.Draft.ReservationToken)
			s.Draft.ReservationToken = ""
		}
		s.Draft.SelectedSlot = nil
		e.fsm.Transition(s, session.PhaseSlotRecommendation)
		return "No problem, nothing is booked. " + e.offerSlots(ctx, s, s.Draft.PreferredDate), nil

	default:
		return "Just to be sure: shall I book it? A simple yes or no works.\n\n" + formatConfirmationSummary(s), e.progressStatus(s)
	}
}

var (
	bookingIDRe = regexp.MustCompile(`\bAPPT-\d{14}-[A-Z0-9]{3}\b`)
	confCodeRe  = regexp.MustCompile(`\b[A-Z0-9]{6}\b`)
	emailRefRe  = regexp.MustCompile(`[\w.+-]+@[\w-]+(\.[\w-]+)+`)
)

func (e *Engine) handleManageLookup(ctx context.Context, s *session.Session, message string) string {
	booking, reply := e.resolveBooking(ctx, message)
	if booking == nil {
		return reply
	}
	if booking.Status != models.StatusConfirmed {
		e.fsm.Transition(s, session.PhaseIntentClassification)
		return fmt.Sprintf("That booking is already %s. Is there anything else I can help with?", booking.Status)
	}

	s.Manage.BookingID = booking.ID
	if s.Manage.Action == "cancel" {
		if err := e.store.Cancel(ctx, booking.ID); err != nil {
			if errors.Is(err, models.ErrAlreadyCancelled) {
				e.fsm.Transition(s, session.PhaseIntentClassification)
				return "That booking was already cancelled. Anything else I can do?"
			}
			e.logger.Error().Err(err).Str("booking_id", booking.ID).Msg("cancel failed")
			return "I couldn't cancel that just now. Could you try again?"
		}
		metrics.BookingsTotal.WithLabelValues("cancelled").Inc()
		e.fsm.Transition(s, session.PhaseCompleted)
		return fmt.Sprintf("Done. Your %s on %s at %s is cancelled. Is there anything else I can help with?",
			describeType(booking.AppointmentType), friendlyDate(booking.Date), clockTo12h(booking.StartTime))
	}

	e.fsm.Transition(s, session.PhaseRescheduleDate)
	return fmt.Sprintf("I found your %s on %s at %s. What date would you like to move it to?",
		describeType(booking.AppointmentType), friendlyDate(booking.Date), clockTo12h(booking.StartTime))
}

// resolveBooking finds the booking a manage request refers to, by booking id,
// confirmation code, or booked email. A nil booking comes with the reply to send.
func (e *Engine) resolveBooking(ctx context.Context, message string) (*models.Booking, string) {
	upper := strings.ToUpper(message)

	if id := bookingIDRe.FindString(upper); id != "" {
		b, err := e.store.GetBooking(ctx, id)
		if errors.Is(err, models.ErrNotFound) {
			return nil, "I couldn't find a booking with that ID. Could you double-check it?"
		}
		if err != nil {
			return nil, "I'm having trouble looking that up. Could you try again?"
		}
		return b, ""
	}

	if email := emailRefRe.FindString(message); email != "" {
		upcoming, _, err := e.store.FindByEmail(ctx, email)
		if err != nil {
			return nil, "I'm having trouble looking that up. Could you try again?"
		}
		switch len(upcoming) {
		case 0:
			return nil, "I don't see any upcoming appointments under that email. Do you have a confirmation code?"
		case 1:
			return &upcoming[0], ""
		default:
			var b strings.Builder
			for _, u := range upcoming {
				fmt.Fprintf(&b, "  %s at %s (code %s)\n", friendlyDate(u.Date), clockTo12h(u.StartTime), u.ConfirmationCode)
			}
			return nil, "You have several upcoming appointments:\n" + strings.TrimRight(b.String(), "\n") +
				"\nWhich confirmation code should I use?"
		}
	}

	if code := confCodeRe.FindString(upper); code != "" {
		b, err := e.store.GetByConfirmationCode(ctx, code)
		if errors.Is(err, models.ErrNotFound) {
			return nil, "I couldn't find a booking with that confirmation code. Could you double-check it?"
		}
		if err != nil {
			return nil, "I'm having trouble looking that up. Could you try again?"
		}
		return b, ""
	}

	return nil, msgAskBookingRef
}

func (e *Engine) handleRescheduleDate(ctx context.Context, s *session.Session, ents Entities) string {
	if ents.Date == "" {
		return "What date would you like to move your appointment to? You can say \"next Tuesday\" or give a date."
	}

	booking, err := e.store.GetBooking(ctx, s.Manage.BookingID)
	if err != nil {
		e.logger.Error().Err(err).Str("booking_id", s.Manage.BookingID).Msg("reschedule lookup failed")
		return "I'm having trouble with that booking. Could you start over with your confirmation code?"
	}

	slots, _, err := e.slots.GetAvailableSlots(ctx, ents.Date, booking.AppointmentType, ents.TimePreference)
	if err != nil {
		e.logger.Error().Err(err).Str("date", ents.Date).Msg("availability lookup failed")
		return "I'm having trouble checking the schedule right now. Could you try again in a moment?"
	}
	if len(slots) == 0 {
		dates, derr := e.slots.AvailableDates(ctx, e.opts.LookaheadDays, booking.AppointmentType)
		if derr != nil || len(dates) == 0 {
			return fmt.Sprintf("There's no availability on %s. What other date would work?", friendlyDate(ents.Date))
		}
		if len(dates) > e.opts.AlternativeDates {
			dates = dates[:e.opts.AlternativeDates]
		}
		return fmt.Sprintf("%s is fully booked. The nearest days with openings are:\n%s\nWould any of these work?",
			friendlyDate(ents.Date), formatAlternativeDates(dates))
	}

	if len(slots) > e.opts.MaxOfferedSlots {
		slots = slots[:e.opts.MaxOfferedSlots]
	}
	s.Manage.NewDate = ents.Date
	s.Manage.OfferedSlots = slots
	e.fsm.Transition(s, session.PhaseRescheduleSlot)
	return fmt.Sprintf("Here are the open times on %s:\n%s\nWhich one would you like?",
		friendlyDate(ents.Date), formatSlotList(slots))
}

func (e *Engine) handleRescheduleSlot(ctx context.Context, s *session.Session, message string, ents Entities) string {
	if ents.Date != "" && ents.Date != s.Manage.NewDate && ents.TimeSelection == "" {
		e.fsm.Transition(s, session.PhaseRescheduleDate)
		return e.handleRescheduleDate(ctx, s, ents)
	}

	slot, ok := e.matchOffered(s.Manage.OfferedSlots, message, ents)
	if !ok {
		return "That time isn't one of the open slots. Here they are again:\n" +
			formatSlotList(s.Manage.OfferedSlots) + "\nWhich would you like?"
	}

	booking, err := e.store.Reschedule(ctx, s.Manage.BookingID, slot.Date, slot.StartTime)
	if errors.Is(err, models.ErrSlotUnavailable) {
		e.fsm.Transition(s, session.PhaseRescheduleDate)
		return "I'm sorry, that time was just taken. " + e.handleRescheduleDate(ctx, s, Entities{Date: slot.Date})
	}
	if err != nil {
		e.logger.Error().Err(err).Str("booking_id", s.Manage.BookingID).Msg("reschedule failed")
		return "I couldn't move that booking just now. Could you try again?"
	}

	metrics.BookingsTotal.WithLabelValues("rescheduled").Inc()
	s.ResetManage()
	e.fsm.Transition(s, session.PhaseCompleted)
	return fmt.Sprintf("All set! Your %s is now on %s at %s. Your confirmation code %s stays the same. Anything else?",
		describeType(booking.AppointmentType), friendlyDate(booking.Date), clockTo12h(booking.StartTime), booking.ConfirmationCode)
}

func (e *Engine) progressStatus(s *session.Session) *BookingStatus {
	slot := s.Draft.SelectedSlot
	if slot == nil {
		return nil
	}
	return &BookingStatus{
		Status:    "in_progress",
		Date:      slot.Date,
		StartTime: slot.StartTime,
	}
}
