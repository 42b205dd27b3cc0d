package config

import (
	"fmt"
	"strings"
	"time"
)

// DaySchedule holds working hours for one weekday.
type DaySchedule struct {
	Start      string `yaml:"start"`                 // "08:00"
	End        string `yaml:"end"`                   // "18:00"
	LunchStart string `yaml:"lunch_start,omitempty"` // "12:00"
	LunchEnd   string `yaml:"lunch_end,omitempty"`   // "13:00"
}

// Schedule is the clinic's weekly working schedule. Immutable after Load.
type Schedule struct {
	Days         map[string]DaySchedule `yaml:"days"` // keys: monday..sunday
	BlockedDates []string               `yaml:"blocked_dates"`

	blocked map[string]struct{}
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func (s *Schedule) validate() error {
	if len(s.Days) == 0 {
		return fmt.Errorf("no working days defined")
	}
	for name, day := range s.Days {
		if _, ok := weekdayNames[strings.ToLower(name)]; !ok {
			return fmt.Errorf("unknown weekday %q", name)
		}
		if err := validTimeOfDay(day.Start); err != nil {
			return fmt.Errorf("%s start: %w", name, err)
		}
		if err := validTimeOfDay(day.End); err != nil {
			return fmt.Errorf("%s end: %w", name, err)
		}
		if day.Start >= day.End {
			return fmt.Errorf("%s: start %s must be before end %s", name, day.Start, day.End)
		}
		if (day.LunchStart == "") != (day.LunchEnd == "") {
			return fmt.Errorf("%s: lunch_start and lunch_end must be set together", name)
		}
		if day.LunchStart != "" && day.LunchStart >= day.LunchEnd {
			return fmt.Errorf("%s: lunch_start must be before lunch_end", name)
		}
	}
	for _, d := range s.BlockedDates {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			return fmt.Errorf("blocked date %q: expected YYYY-MM-DD", d)
		}
	}
	s.blocked = make(map[string]struct{}, len(s.BlockedDates))
	for _, d := range s.BlockedDates {
		s.blocked[d] = struct{}{}
	}
	return nil
}

// DayFor returns the schedule for a date's weekday, if the clinic works that day.
func (s *Schedule) DayFor(date time.Time) (DaySchedule, bool) {
	for name, day := range s.Days {
		if weekdayNames[strings.ToLower(name)] == date.Weekday() {
			return day, true
		}
	}
	return DaySchedule{}, false
}

// IsBlocked reports whether the date (YYYY-MM-DD) is blocked.
func (s *Schedule) IsBlocked(date string) bool {
	if s.blocked == nil {
		s.blocked = make(map[string]struct{}, len(s.BlockedDates))
		for _, d := range s.BlockedDates {
			s.blocked[d] = struct{}{}
		}
	}
	_, ok := s.blocked[date]
	return ok
}

func validTimeOfDay(v string) error {
	if _, err := time.Parse("15:04", v); err != nil {
		return fmt.Errorf("invalid time %q, expected HH:MM", v)
	}
	return nil
}
