package engine

import (
	"context"
	"regexp"
	"strings"

	"clinichat/internal/availability"
	"clinichat/internal/faq"
	"clinichat/internal/session"
)

// Intent is the classified purpose of an inbound message.
type Intent string

const (
	IntentGreeting    Intent = "greeting"
	IntentSchedule    Intent = "schedule"
	IntentFAQ         Intent = "faq"
	IntentCancel      Intent = "cancel"
	IntentReschedule  Intent = "reschedule"
	IntentProvideInfo Intent = "provide_info"
	IntentSelectSlot  Intent = "select_slot"
	IntentConfirm     Intent = "confirm"
	IntentDecline     Intent = "decline"
	IntentUnknown     Intent = "unknown"
)

// Entities are values extracted alongside the intent.
type Entities struct {
	Date           string // YYYY-MM-DD
	TimePreference availability.TimePreference
	TimeSelection  string // HH:MM
}

// Classifier determines the intent of a message given the current phase.
// A production deployment plugs an external model here; RuleClassifier is the
// default and the fallback when that collaborator is down.
type Classifier interface {
	Classify(ctx context.Context, message string, phase session.Phase) (Intent, Entities, error)
}

var (
	timeSelectionRe = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\s*(am|pm)?\b`)
	hourAmPmRe      = regexp.MustCompile(`\b(\d{1,2})\s*(am|pm)\b`)
)

var (
	greetingWords = []string{"hi", "hello", "hey", "good morning", "good afternoon", "good evening"}
	scheduleWords = []string{"schedule", "book", "appointment", "see the doctor", "need to see", "want to see"}
	confirmWords  = []string{"yes", "yeah", "yep", "confirm", "book it", "sounds good", "perfect", "let's do it", "that works", "correct"}
	declineWords  = []string{"no", "nope", "won't work", "doesn't work", "different time", "none of these", "something else", "changed my mind"}
)

// RuleClassifier classifies messages with keyword and pattern rules.
type RuleClassifier struct {
	faq *faq.KeywordAnswerer
}

// NewRuleClassifier creates the default classifier.
func NewRuleClassifier(answerer *faq.KeywordAnswerer) *RuleClassifier {
	return &RuleClassifier{faq: answerer}
}

// Classify applies the rules in priority order.
func (c *RuleClassifier) Classify(ctx context.Context, message string, phase session.Phase) (Intent, Entities, error) {
	text := strings.ToLower(strings.TrimSpace(message))
	var ents Entities

	for _, g := range greetingWords {
		if text == g || strings.HasPrefix(text, g+" ") || strings.HasPrefix(text, g+",") || strings.HasPrefix(text, g+"!") {
			return IntentGreeting, ents, nil
		}
	}

	// A cancellation request beats the cancellation-policy FAQ.
	if strings.Contains(text, "cancel my") || strings.Contains(text, "cancel the") || strings.Contains(text, "cancel it") {
		return IntentCancel, ents, nil
	}
	if strings.Contains(text, "reschedule") || (strings.Contains(text, "change") && strings.Contains(text, "appointment")) || (strings.Contains(text, "move") && strings.Contains(text, "appointment")) {
		return IntentReschedule, ents, nil
	}
	if c.faq != nil && c.faq.IsLikelyQuestion(message) {
		return IntentFAQ, ents, nil
	}
	if strings.Contains(text, "cancel") && (strings.Contains(text, "my") || strings.Contains(text, "appointment")) {
		return IntentCancel, ents, nil
	}

	// At confirmation a yes/no answer wins over anything else: "book it"
	// must confirm, not restart scheduling.
	if phase == session.PhaseConfirmation {
		for _, w := range confirmWords {
			if containsWord(text, w) {
				return IntentConfirm, ents, nil
			}
		}
		for _, w := range declineWords {
			if containsWord(text, w) {
				return IntentDecline, ents, nil
			}
		}
	}

	for _, w := range scheduleWords {
		if strings.Contains(text, w) {
			if d, ok := ParseDateReference(message, nowFunc()); ok {
				ents.Date = d
			}
			ents.TimePreference = ParseTimePreference(message)
			return IntentSchedule, ents, nil
		}
	}

	// Date or time-of-day preference mid-booking counts as provided info, so
	// "tomorrow morning would be great" is a selection rather than a confirm.
	date, hasDate := ParseDateReference(message, nowFunc())
	pref := ParseTimePreference(message)
	if hasDate || pref != availability.PreferenceAny {
		ents.Date = date
		ents.TimePreference = pref
		switch phase {
		case session.PhaseUnderstandingNeeds, session.PhaseCollectingPreferences,
			session.PhaseSlotRecommendation, session.PhaseRescheduleDate:
			if t, ok := parseTimeToken(text); ok {
				ents.TimeSelection = t
				return IntentSelectSlot, ents, nil
			}
			return IntentProvideInfo, ents, nil
		}
	}

	if t, ok := parseTimeToken(text); ok {
		ents.TimeSelection = t
		return IntentSelectSlot, ents, nil
	}

	if !hasDate {
		for _, w := range confirmWords {
			if containsWord(text, w) {
				return IntentConfirm, ents, nil
			}
		}
	}
	for _, w := range declineWords {
		if containsWord(text, w) {
			return IntentDecline, ents, nil
		}
	}

	switch phase {
	case session.PhaseUnderstandingNeeds, session.PhaseCollectingInfo,
		session.PhaseManageLookup, session.PhaseCollectingPreferences:
		return IntentProvideInfo, ents, nil
	}

	return IntentUnknown, ents, nil
}

// containsWord matches single words on token boundaries so "yes" does not hit
// inside "yesterday"; multi-word phrases match as substrings.
func containsWord(text, word string) bool {
	if strings.ContainsAny(word, " '") {
		return strings.Contains(text, word)
	}
	for _, tok := range strings.FieldsFunc(text, func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	}) {
		if tok == word {
			return true
		}
	}
	return false
}

// parseTimeToken extracts an explicit clock time like "10:00", "2 pm" or
// "10:30 am", normalized to 24-hour HH:MM.
func parseTimeToken(text string) (string, bool) {
	if m := timeSelectionRe.FindStringSubmatch(text); m != nil {
		return normalizeClock(m[1], m[2], m[3]), true
	}
	if m := hourAmPmRe.FindStringSubmatch(text); m != nil {
		return normalizeClock(m[1], "00", m[2]), true
	}
	return "", false
}
