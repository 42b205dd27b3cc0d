// Package config loads the service configuration from YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Booking struct {
		HoldTTLMinutes   int `yaml:"hold_ttl_minutes"`
		LookaheadDays    int `yaml:"lookahead_days"`
		MaxOfferedSlots  int `yaml:"max_offered_slots"`
		AlternativeDates int `yaml:"alternative_dates"`
	} `yaml:"booking"`

	Session struct {
		TTLMinutes             int `yaml:"ttl_minutes"`
		CleanupIntervalMinutes int `yaml:"cleanup_interval_minutes"`
	} `yaml:"session"`

	Reminders struct {
		Enabled        bool    `yaml:"enabled"`
		AdvanceHours   int     `yaml:"advance_hours"`
		SweepMinutes   int     `yaml:"sweep_minutes"`
		SendRatePerSec float64 `yaml:"send_rate_per_sec"`
		SendBurst      int     `yaml:"send_burst"`
	} `yaml:"reminders"`

	Schedule Schedule `yaml:"schedule"`
}

// Load reads the config from path, falling back to configs/config.yaml.
// ${ENV_VAR} placeholders in the file are expanded.
func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/clinichat.db"
	}
	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}
	if err = cfg.Schedule.validate(); err != nil {
		return nil, fmt.Errorf("schedule config: %w", err)
	}

	return &cfg, nil
}

// HoldTTL returns how long a reservation hold stays alive before expiring.
func (c *Config) HoldTTL() time.Duration {
	if c.Booking.HoldTTLMinutes <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.Booking.HoldTTLMinutes) * time.Minute
}

// SessionTTL returns the idle lifetime of a conversation session.
func (c *Config) SessionTTL() time.Duration {
	if c.Session.TTLMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.Session.TTLMinutes) * time.Minute
}

// SessionCleanupInterval returns how often expired sessions are swept.
func (c *Config) SessionCleanupInterval() time.Duration {
	if c.Session.CleanupIntervalMinutes <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.Session.CleanupIntervalMinutes) * time.Minute
}

// LookaheadDays returns how far ahead alternative dates are searched.
func (c *Config) LookaheadDays() int {
	if c.Booking.LookaheadDays <= 0 {
		return 14
	}
	return c.Booking.LookaheadDays
}

// MaxOfferedSlots caps how many slots a single reply offers.
func (c *Config) MaxOfferedSlots() int {
	if c.Booking.MaxOfferedSlots <= 0 {
		return 5
	}
	return c.Booking.MaxOfferedSlots
}

// AlternativeDates caps how many alternative dates are suggested.
func (c *Config) AlternativeDates() int {
	if c.Booking.AlternativeDates <= 0 {
		return 3
	}
	return c.Booking.AlternativeDates
}

// ReminderAdvance returns how far before the appointment a reminder goes out.
func (c *Config) ReminderAdvance() time.Duration {
	if c.Reminders.AdvanceHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Reminders.AdvanceHours) * time.Hour
}

// ReminderSweep returns the reminder scan interval.
func (c *Config) ReminderSweep() time.Duration {
	if c.Reminders.SweepMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(c.Reminders.SweepMinutes) * time.Minute
}
