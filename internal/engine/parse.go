package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"clinichat/internal/availability"
	"clinichat/internal/models"
)

// nowFunc is swapped in tests to pin the reference date.
var nowFunc = time.Now

var (
	isoDateRe   = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	slashDateRe = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{4}))?\b`)
	monthDayRe  = regexp.MustCompile(`\b(january|february|march|april|may|june|july|august|september|october|november|december)\s+(\d{1,2})\b`)
	ordinalRe   = regexp.MustCompile(`^(?:option\s*)?(\d)\b`)
)

var monthNumbers = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,
}

var weekdays = map[string]time.Weekday{
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sunday":    time.Sunday,
}

// ParseDateReference resolves a natural date reference ("tomorrow", "next
// friday", "2026-09-03", "9/3") against the reference time. Weekday names
// resolve to the next occurrence; "next <weekday>" skips one week ahead when
// the weekday is still to come this week.
func ParseDateReference(text string, ref time.Time) (string, bool) {
	t := strings.ToLower(text)

	if m := isoDateRe.FindStringSubmatch(t); m != nil {
		if _, err := time.Parse("2006-01-02", m[0]); err == nil {
			return m[0], true
		}
	}
	if m := slashDateRe.FindStringSubmatch(t); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		year := ref.Year()
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
		}
		d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, ref.Location())
		if int(d.Month()) == month && d.Day() == day {
			if m[3] == "" && d.Before(ref.Truncate(24*time.Hour)) {
				d = d.AddDate(1, 0, 0)
			}
			return d.Format("2006-01-02"), true
		}
	}

	if m := monthDayRe.FindStringSubmatch(t); m != nil {
		month := monthNumbers[m[1]]
		day, _ := strconv.Atoi(m[2])
		d := time.Date(ref.Year(), month, day, 0, 0, 0, 0, ref.Location())
		if int(d.Month()) == int(month) && d.Day() == day {
			if d.Before(ref.Truncate(24 * time.Hour)) {
				d = d.AddDate(1, 0, 0)
			}
			return d.Format("2006-01-02"), true
		}
	}

	switch {
	case strings.Contains(t, "day after tomorrow"):
		return ref.AddDate(0, 0, 2).Format("2006-01-02"), true
	case strings.Contains(t, "tomorrow"):
		return ref.AddDate(0, 0, 1).Format("2006-01-02"), true
	case strings.Contains(t, "today"):
		return ref.Format("2006-01-02"), true
	}

	next := strings.Contains(t, "next ")
	for name, wd := range weekdays {
		if !strings.Contains(t, name) {
			continue
		}
		days := int(wd-ref.Weekday()+7) % 7
		if days == 0 {
			days = 7
		}
		if next && days < 7 {
			days += 7
		}
		return ref.AddDate(0, 0, days).Format("2006-01-02"), true
	}

	if strings.Contains(t, "next week") {
		return ref.AddDate(0, 0, 7).Format("2006-01-02"), true
	}
	return "", false
}

// ParseTimePreference reads a time-of-day preference from the message.
func ParseTimePreference(text string) availability.TimePreference {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "morning"):
		return availability.PreferenceMorning
	case strings.Contains(t, "afternoon"), strings.Contains(t, "after lunch"):
		return availability.PreferenceAfternoon
	case strings.Contains(t, "evening"), strings.Contains(t, "after work"):
		return availability.PreferenceEvening
	}
	return availability.PreferenceAny
}

// normalizeClock builds a 24-hour HH:MM from hour/minute strings and an
// optional am/pm marker.
func normalizeClock(hourStr, minStr, ampm string) string {
	hour, _ := strconv.Atoi(hourStr)
	min, _ := strconv.Atoi(minStr)
	switch ampm {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	return fmt.Sprintf("%02d:%02d", hour, min)
}

// parseOrdinal reads a leading option number like "2" or "option 3".
func parseOrdinal(text string) (int, bool) {
	t := strings.TrimSpace(strings.ToLower(text))
	words := map[string]int{"first": 1, "second": 2, "third": 3, "fourth": 4, "fifth": 5}
	for w, n := range words {
		if strings.Contains(t, w) {
			return n, true
		}
	}
	if m := ordinalRe.FindStringSubmatch(t); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil && n >= 1 {
			return n, true
		}
	}
	return 0, false
}

var appointmentTypeKeywords = []struct {
	appt  models.AppointmentType
	words []string
}{
	{models.FollowUp, []string{"follow up", "follow-up", "followup", "results", "medication", "refill", "recheck"}},
	{models.PhysicalExam, []string{"physical", "annual", "checkup", "check-up", "check up", "wellness"}},
	{models.SpecialistConsultation, []string{"specialist", "cardiolog", "dermatolog", "neurolog", "referral", "complex"}},
}

// InferAppointmentType maps a visit reason to an appointment type. Anything
// unrecognized books as a general consultation.
func InferAppointmentType(reason string) models.AppointmentType {
	r := strings.ToLower(reason)
	for _, group := range appointmentTypeKeywords {
		for _, w := range group.words {
			if strings.Contains(r, w) {
				return group.appt
			}
		}
	}
	return models.GeneralConsultation
}

// clockTo12h renders "14:30" as "2:30 PM" for replies.
func clockTo12h(clock string) string {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return clock
	}
	return strings.TrimPrefix(t.Format("3:04 PM"), "0")
}

// friendlyDate renders "2026-09-03" as "Thursday, September 3".
func friendlyDate(date string) string {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return d.Format("Monday, January 2")
}
