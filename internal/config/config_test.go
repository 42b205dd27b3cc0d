package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
database:
  path: `+filepath.Join(dir, "test.db")+`
schedule:
  days:
    monday: { start: "08:00", end: "18:00" }
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5*time.Minute, cfg.HoldTTL())
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL())
	assert.Equal(t, 14, cfg.LookaheadDays())
	assert.Equal(t, 5, cfg.MaxOfferedSlots())
	assert.Equal(t, 3, cfg.AlternativeDates())
	assert.Equal(t, 24*time.Hour, cfg.ReminderAdvance())
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("TEST_DB_PATH", filepath.Join(t.TempDir(), "env.db"))
	path := writeConfig(t, `
database:
  path: ${TEST_DB_PATH}
schedule:
  days:
    monday: { start: "09:00", end: "17:00" }
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, os.Getenv("TEST_DB_PATH"), cfg.Database.Path)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestScheduleValidation(t *testing.T) {
	tests := []struct {
		name string
		days string
	}{
		{"unknown weekday", `funday: { start: "08:00", end: "18:00" }`},
		{"bad time", `monday: { start: "8am", end: "18:00" }`},
		{"start after end", `monday: { start: "18:00", end: "08:00" }`},
		{"half a lunch", `monday: { start: "08:00", end: "18:00", lunch_start: "12:00" }`},
		{"inverted lunch", `monday: { start: "08:00", end: "18:00", lunch_start: "13:00", lunch_end: "12:00" }`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, `
database:
  path: `+filepath.Join(t.TempDir(), "v.db")+`
schedule:
  days:
    `+tt.days+`
`)
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestScheduleBlockedDates(t *testing.T) {
	path := writeConfig(t, `
database:
  path: `+filepath.Join(t.TempDir(), "b.db")+`
schedule:
  days:
    monday: { start: "08:00", end: "18:00" }
  blocked_dates: ["2026-12-25"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Schedule.IsBlocked("2026-12-25"))
	assert.False(t, cfg.Schedule.IsBlocked("2026-12-24"))
}

func TestScheduleDayFor(t *testing.T) {
	path := writeConfig(t, `
database:
  path: `+filepath.Join(t.TempDir(), "d.db")+`
schedule:
  days:
    monday: { start: "08:00", end: "18:00" }
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	monday := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC) // a Monday
	day, working := cfg.Schedule.DayFor(monday)
	require.True(t, working)
	assert.Equal(t, "08:00", day.Start)

	sunday := monday.AddDate(0, 0, -1)
	_, working = cfg.Schedule.DayFor(sunday)
	assert.False(t, working)
}
