// Package schedule computes effective delivery times under the
// appropriate-hours policy and execution priorities for queued tasks.
package schedule

import (
	"fmt"
	"time"
)

// Window is a half-open range of local hours [StartHour, EndHour) during
// which delivery is permitted.
type Window struct {
	StartHour int `mapstructure:"start_hour"`
	EndHour   int `mapstructure:"end_hour"`
}

// Contains reports whether the given local hour falls inside the window.
func (w Window) Contains(hour int) bool {
	return hour >= w.StartHour && hour < w.EndHour
}

// Next returns the effective delivery time for t in the given location.
// A time inside the window is returned unchanged. Outside the window the
// local time-of-day is set to StartHour:00:00, rolling to the next calendar
// day when the local hour is at or past EndHour. Applying Next to its own
// result is a no-op.
func (w Window) Next(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	hour := local.Hour()

	if w.Contains(hour) {
		return t
	}

	if hour >= w.EndHour {
		local = local.AddDate(0, 0, 1)
	}

	return time.Date(local.Year(), local.Month(), local.Day(), w.StartHour, 0, 0, 0, loc)
}

// ParseInZone parses a scheduled time string in the given IANA timezone.
// RFC 3339 strings keep their own offset; zone-less strings in the
// "2006-01-02 15:04:05" layout are interpreted as local time in the zone.
func ParseInZone(value, timezone string) (time.Time, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("load location %q: %w", timezone, err)
	}

	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}

	t, err := time.ParseInLocation(time.DateTime, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse scheduled time %q: %w", value, err)
	}

	return t, nil
}
