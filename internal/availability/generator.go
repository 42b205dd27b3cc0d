// Package availability turns the clinic schedule and existing bookings into
// bookable slots. Generation is a pure read: schedule + booking snapshot + clock.
package availability

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"clinichat/internal/config"
	"clinichat/internal/models"
)

// TimePreference narrows slots to a part of the day.
type TimePreference string

const (
	PreferenceAny       TimePreference = "any"
	PreferenceMorning   TimePreference = "morning"
	PreferenceAfternoon TimePreference = "afternoon"
	PreferenceEvening   TimePreference = "evening"
)

// BookingLookup provides the confirmed bookings for a date.
type BookingLookup interface {
	ConfirmedByDate(ctx context.Context, date string) ([]models.Booking, error)
}

// DateAvailability summarizes free capacity on a date.
type DateAvailability struct {
	Date           string `json:"date"`
	DayName        string `json:"day_name"`
	AvailableSlots int    `json:"available_slots"`
}

// Generator produces slots for a date.
type Generator struct {
	schedule *config.Schedule
	bookings BookingLookup
	now      func() time.Time
}

// NewGenerator creates a slot generator.
func NewGenerator(schedule *config.Schedule, bookings BookingLookup) *Generator {
	return &Generator{schedule: schedule, bookings: bookings, now: time.Now}
}

// WithClock overrides the wall clock, for tests.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// GenerateSlots returns every window of the day in chronological order, each
// flagged available or not. Blocked dates and non-working days yield nil.
func (g *Generator) GenerateSlots(ctx context.Context, date string, appt models.AppointmentType) ([]models.Slot, error) {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date %q", models.ErrValidationFailed, date)
	}
	if g.schedule.IsBlocked(date) {
		return nil, nil
	}
	sched, working := g.schedule.DayFor(day)
	if !working {
		return nil, nil
	}

	duration := appt.Duration()
	hasLunch := sched.LunchStart != ""

	booked, err := g.bookings.ConfirmedByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("load bookings for %s: %w", date, err)
	}

	now := g.now()
	isToday := date == now.Format("2006-01-02")
	nowClock := now.Format("15:04")

	var slots []models.Slot
	for cursor := sched.Start; ; cursor = addMinutes(cursor, int(duration.Minutes())) {
		end := addMinutes(cursor, int(duration.Minutes()))
		if end > sched.End {
			break
		}

		// Windows intersecting the lunch break are dropped entirely.
		if hasLunch && models.Overlaps(cursor, end, sched.LunchStart, sched.LunchEnd) {
			continue
		}

		available := true
		for _, b := range booked {
			if models.Overlaps(cursor, end, b.StartTime, b.EndTime) {
				available = false
				break
			}
		}
		if isToday && cursor <= nowClock {
			available = false
		}

		slots = append(slots, models.Slot{
			Date:      date,
			StartTime: cursor,
			EndTime:   end,
			Available: available,
		})
	}
	return slots, nil
}

// GetAvailableSlots returns the bookable slots for a date, optionally filtered
// by time preference. When the preference filter leaves nothing, the unfiltered
// list is returned with exact=false so the caller can flag "offering
// alternatives" instead of silently dropping the preference.
func (g *Generator) GetAvailableSlots(ctx context.Context, date string, appt models.AppointmentType, pref TimePreference) (slots []models.Slot, exact bool, err error) {
	all, err := g.GenerateSlots(ctx, date, appt)
	if err != nil {
		return nil, false, err
	}

	var free []models.Slot
	for _, s := range all {
		if s.Available {
			free = append(free, s)
		}
	}
	if pref == "" || pref == PreferenceAny {
		return free, true, nil
	}

	filtered := FilterByPreference(free, pref)
	if len(filtered) == 0 {
		return free, false, nil
	}
	return filtered, true, nil
}

// AvailableDates scans the next daysAhead days and reports dates with free slots.
func (g *Generator) AvailableDates(ctx context.Context, daysAhead int, appt models.AppointmentType) ([]DateAvailability, error) {
	var dates []DateAvailability
	start := g.now()
	for i := 0; i < daysAhead; i++ {
		day := start.AddDate(0, 0, i)
		date := day.Format("2006-01-02")
		slots, err := g.GenerateSlots(ctx, date, appt)
		if err != nil {
			return nil, err
		}
		count := 0
		for _, s := range slots {
			if s.Available {
				count++
			}
		}
		if count > 0 {
			dates = append(dates, DateAvailability{
				Date:           date,
				DayName:        day.Weekday().String(),
				AvailableSlots: count,
			})
		}
	}
	return dates, nil
}

// FilterByPreference keeps slots whose start falls in the preferred part of day.
func FilterByPreference(slots []models.Slot, pref TimePreference) []models.Slot {
	if pref == "" || pref == PreferenceAny {
		return slots
	}
	var out []models.Slot
	for _, s := range slots {
		if MatchesPreference(s.StartTime, pref) {
			out = append(out, s)
		}
	}
	return out
}

// MatchesPreference reports whether an HH:MM start falls in the preferred range.
func MatchesPreference(start string, pref TimePreference) bool {
	hour, err := strconv.Atoi(strings.SplitN(start, ":", 2)[0])
	if err != nil {
		return false
	}
	switch pref {
	case PreferenceMorning:
		return hour >= 6 && hour < 12
	case PreferenceAfternoon:
		return hour >= 12 && hour < 18
	case PreferenceEvening:
		return hour >= 17 && hour < 21
	default:
		return true
	}
}

// addMinutes advances an HH:MM time by the given minutes.
func addMinutes(clock string, minutes int) string {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return clock
	}
	return t.Add(time.Duration(minutes) * time.Minute).Format("15:04")
}
