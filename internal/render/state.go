// Package render assembles what the station shows and draws it with as
// little flicker as possible.
package render

import (
	"fmt"
	"slices"

	"github.com/i474232898/weather-station/internal/localtime"
	"github.com/i474232898/weather-station/internal/weather"
)

// State is a snapshot of everything visible on the screen. Two states are
// equal only if every field is equal.
type State struct {
	Time        string
	Date        string
	City        string
	Temperature string
	Description string
	Icon        string
	Wind        string
	Humidity    string
	Events      []string
}

// Equal compares every visible field.
func (s State) Equal(o State) bool {
	return s.Time == o.Time &&
		s.Date == o.Date &&
		s.weatherEqual(o) &&
		slices.Equal(s.Events, o.Events)
}

func (s State) weatherEqual(o State) bool {
	return s.City == o.City &&
		s.Temperature == o.Temperature &&
		s.Description == o.Description &&
		s.Icon == o.Icon &&
		s.Wind == o.Wind &&
		s.Humidity == o.Humidity
}

// HasWeather reports whether the weather block has anything to show.
func (s State) HasWeather() bool {
	return s.City != ""
}

// Build assembles a State from the local time, the cached weather record
// (ok is false when nothing has been fetched yet) and the movement events.
// It has no side effects.
func Build(now localtime.LocalTime, rec weather.Record, ok bool, events []string) State {
	s := State{
		Time: now.TimeString(),
		Date: fmt.Sprintf("%s %s", now.DateString(), now.Zone),
	}

	if ok {
		s.City = rec.City
		s.Temperature = FormatTemperature(rec.TemperatureC)
		s.Description = rec.Description
		s.Icon = rec.IconCode
		s.Wind = fmt.Sprintf("W: %.1fm/s", rec.WindSpeedMS)
		s.Humidity = fmt.Sprintf("H: %d%%", rec.HumidityPct)
	}

	if len(events) > 0 {
		s.Events = slices.Clone(events)
	}

	return s
}

// FormatTemperature renders a Celsius value with one decimal, e.g. "21.3°C".
func FormatTemperature(c float64) string {
	return fmt.Sprintf("%.1f°C", c)
}
