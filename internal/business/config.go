// Package business holds the per-business configuration and booking rules.
// The configuration is loaded once and treated as an immutable value object.
package business

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Hours is the daily open/close window in canonical HH:MM.
type Hours struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// ServiceDepositRule configures a per-service deposit requirement.
type ServiceDepositRule struct {
	Required    bool `json:"required"`
	AmountCents int  `json:"amount_cents"`
}

// PrimeTimeRule configures the weekend/evening deposit surcharge.
type PrimeTimeRule struct {
	Enabled          bool `json:"enabled"`
	WeekendRequired  bool `json:"weekend_required"`
	EveningRequired  bool `json:"evening_required"`
	EveningStartHour int  `json:"evening_start_hour"`
	AmountCents      int  `json:"amount_cents"`
}

// Config describes one business: identity, calendar shape and deposit rules.
type Config struct {
	Name                string                        `json:"name"`
	Location            string                        `json:"location"`
	Timezone            string                        `json:"timezone"`
	ContactPhone        string                        `json:"contact_phone"`
	BusinessHours       Hours                         `json:"business_hours"`
	SlotDurationMinutes int                           `json:"slot_duration_minutes"`
	SameDayCutoff       string                        `json:"same_day_cutoff"`
	Services            []string                      `json:"services"`
	DepositRules        map[string]ServiceDepositRule `json:"deposit_rules"`
	PrimeTime           PrimeTimeRule                 `json:"prime_time"`
}

// Load reads a business configuration from a JSON file and fills defaults.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("business: read config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("business: parse config: %w", err)
	}
	cfg.applyDefaults()
	if _, err := cfg.LoadLocation(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Timezone == "" {
		c.Timezone = "America/New_York"
	}
	if c.BusinessHours.Start == "" {
		c.BusinessHours.Start = "09:00"
	}
	if c.BusinessHours.End == "" {
		c.BusinessHours.End = "19:00"
	}
	if c.SlotDurationMinutes <= 0 {
		c.SlotDurationMinutes = 30
	}
	if c.SameDayCutoff == "" {
		c.SameDayCutoff = "17:00"
	}
	if c.PrimeTime.EveningStartHour == 0 {
		c.PrimeTime.EveningStartHour = 18
	}
}

// LoadLocation resolves the configured timezone.
func (c *Config) LoadLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("business: bad timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// SlotDuration returns the slot granularity as a duration.
func (c *Config) SlotDuration() time.Duration {
	return time.Duration(c.SlotDurationMinutes) * time.Minute
}
