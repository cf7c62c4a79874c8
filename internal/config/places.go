package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"placestatus/internal/hours"
	"placestatus/internal/status"
)

const dateLayout = "2006-01-02"

// PlaceConfig describes one place and its closures.
type PlaceConfig struct {
	ID             int                `yaml:"id"`
	Name           string             `yaml:"name"`
	Address        string             `yaml:"address,omitempty"`
	OpeningHours   string             `yaml:"opening_hours"`
	ClosedWeekdays []int              `yaml:"closed_weekdays,omitempty"` // 0=Sun, 6=Sat
	ClosedDates    []ClosedDateConfig `yaml:"closed_dates,omitempty"`
	IsActive       bool               `yaml:"is_active"`
}

// ClosedDateConfig is a one-off closure of a single place.
type ClosedDateConfig struct {
	Date string `yaml:"date"` // "2026-01-01"
	Note string `yaml:"note,omitempty"`
}

// HolidayConfig represents a holiday applied to every place.
type HolidayConfig struct {
	Date string `yaml:"date"` // "2026-01-01"
	Name string `yaml:"name"` // "신정"
}

// PlacesConfig is the root configuration for places.yaml.
type PlacesConfig struct {
	Places   []PlaceConfig   `yaml:"places"`
	Holidays []HolidayConfig `yaml:"holidays"`
}

// LoadPlacesConfig loads and validates places configuration from YAML file.
func LoadPlacesConfig(path string) (*PlacesConfig, error) {
	if path == "" {
		path = "configs/places.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read places config: %w", err)
	}

	var cfg PlacesConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse places config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate places config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration for errors. Opening-hours text is free
// form and never rejected; unparseable text surfaces as an unspecified status.
func (c *PlacesConfig) Validate() error {
	if len(c.Places) == 0 {
		return fmt.Errorf("no places defined")
	}

	ids := make(map[int]bool)
	names := make(map[string]bool)

	for i, p := range c.Places {
		if p.ID <= 0 {
			return fmt.Errorf("place[%d]: id must be positive, got %d", i, p.ID)
		}
		if ids[p.ID] {
			return fmt.Errorf("place[%d]: duplicate id %d", i, p.ID)
		}
		ids[p.ID] = true

		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("place[%d]: name is required", i)
		}
		if names[p.Name] {
			return fmt.Errorf("place[%d]: duplicate name '%s'", i, p.Name)
		}
		names[p.Name] = true

		for j, d := range p.ClosedWeekdays {
			if d < 0 || d > 6 {
				return fmt.Errorf("place[%d].closed_weekdays[%d]: invalid day %d, must be 0-6 (0=Sun)", i, j, d)
			}
		}
		for j, d := range p.ClosedDates {
			if _, err := time.ParseInLocation(dateLayout, d.Date, time.Local); err != nil {
				return fmt.Errorf("place[%d].closed_dates[%d]: invalid date format '%s', expected YYYY-MM-DD", i, j, d.Date)
			}
		}
	}

	for i, h := range c.Holidays {
		if h.Date == "" {
			return fmt.Errorf("holiday[%d]: date is required", i)
		}
		if _, err := time.ParseInLocation(dateLayout, h.Date, time.Local); err != nil {
			return fmt.Errorf("holiday[%d]: invalid date format '%s', expected YYYY-MM-DD", i, h.Date)
		}
	}

	return nil
}

// ClosedDays returns the closure rules of p, including global holidays.
func (c *PlacesConfig) ClosedDays(p *PlaceConfig) []status.ClosedDayRule {
	rules := make([]status.ClosedDayRule, 0, len(p.ClosedWeekdays)+len(p.ClosedDates)+len(c.Holidays))
	for _, d := range p.ClosedWeekdays {
		rules = append(rules, status.ClosedOnWeekday(time.Weekday(d), "정기휴무"))
	}
	for _, d := range p.ClosedDates {
		if dt, err := time.ParseInLocation(dateLayout, d.Date, time.Local); err == nil {
			rules = append(rules, status.ClosedOnDate(dt, d.Note))
		}
	}
	for _, h := range c.Holidays {
		if dt, err := time.ParseInLocation(dateLayout, h.Date, time.Local); err == nil {
			rules = append(rules, status.ClosedOnDate(dt, h.Name))
		}
	}
	return rules
}

// GetPlaceByID returns place config by ID.
func (c *PlacesConfig) GetPlaceByID(id int) *PlaceConfig {
	for i := range c.Places {
		if c.Places[i].ID == id {
			return &c.Places[i]
		}
	}
	return nil
}

// GetActivePlaces returns only active places.
func (c *PlacesConfig) GetActivePlaces() []PlaceConfig {
	result := make([]PlaceConfig, 0)
	for _, p := range c.Places {
		if p.IsActive {
			result = append(result, p)
		}
	}
	return result
}

// UnparsedPlaces returns names of places whose hours match no grammar rule on any weekday.
func (c *PlacesConfig) UnparsedPlaces() []string {
	var names []string
	for _, p := range c.Places {
		week := hours.Describe(p.OpeningHours)
		empty := true
		for _, day := range week {
			if !day.IsEmpty() {
				empty = false
				break
			}
		}
		if empty {
			names = append(names, p.Name)
		}
	}
	return names
}

// String returns a summary of the configuration.
func (c *PlacesConfig) String() string {
	active := 0
	for _, p := range c.Places {
		if p.IsActive {
			active++
		}
	}
	return fmt.Sprintf("PlacesConfig: %d places (%d active), %d holidays",
		len(c.Places), active, len(c.Holidays))
}
