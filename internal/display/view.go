// Package display holds the rendered panel: four text regions (water level,
// pump status, mode, alert) plus the alert style, and the surfaces that show
// them.
package display

import (
	"water_pump_monitor/internal/models"
	"water_pump_monitor/internal/telemetry"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Placeholders used when a value is unknown.
const (
	PlaceholderPercent = "--%"
	Placeholder        = "--"
	AlertErrorText     = "Error"
)

// Style is the visual state of the alert region.
type Style string

const (
	StylePositive Style = "positive"
	StyleWarning  Style = "warning"
	StyleDanger   Style = "danger"
	StyleNeutral  Style = "neutral"
)

// Class returns the CSS class list the dashboard markup expects for s.
func (s Style) Class() string {
	switch s {
	case StylePositive:
		return "text-3xl font-bold text-green-600"
	case StyleWarning:
		return "text-3xl font-bold text-yellow-600"
	case StyleDanger:
		return "text-3xl font-bold text-red-600"
	default:
		return "text-3xl font-bold"
	}
}

// Labels are the two fixed pump status texts.
type Labels struct {
	PumpOn  string `json:"pump_on"`
	PumpOff string `json:"pump_off"`
}

// DefaultLabels returns the stock ON/OFF labels.
func DefaultLabels() Labels {
	return Labels{PumpOn: "ON", PumpOff: "OFF"}
}

// View is the full content of the panel at one moment.
type View struct {
	WaterLevel string `json:"water_level"`
	PumpStatus string `json:"pump_status"`
	Mode       string `json:"mode"`
	Alert      string `json:"alert"`
	AlertStyle Style  `json:"alert_style"`
}

// Project renders a decoded snapshot.
func Project(s models.Snapshot, labels Labels) View {
	v := View{
		WaterLevel: PlaceholderPercent,
		PumpStatus: labels.PumpOff,
		Mode:       upper(s.Mode),
		Alert:      s.Alert,
		AlertStyle: StyleWarning,
	}
	if s.HasWaterLevel {
		v.WaterLevel = telemetry.FormatFixed1(s.WaterLevel) + "%"
	}
	if s.PumpOn {
		v.PumpStatus = labels.PumpOn
	}
	// Case-sensitive on purpose: "normal" is not the healthy state.
	if s.Alert == telemetry.DefaultAlert {
		v.AlertStyle = StylePositive
	}
	return v
}

// upper applies full Unicode case mapping, so "ß" becomes "SS". A Caser is
// stateful and cannot be shared between goroutines.
func upper(s string) string {
	return cases.Upper(language.Und).String(s)
}

// ErrorView is shown after a message could not be processed.
func ErrorView() View {
	return View{
		WaterLevel: PlaceholderPercent,
		PumpStatus: Placeholder,
		Mode:       Placeholder,
		Alert:      AlertErrorText,
		AlertStyle: StyleDanger,
	}
}

// InitialView is the content before any telemetry has arrived.
func InitialView() View {
	return View{
		WaterLevel: PlaceholderPercent,
		PumpStatus: Placeholder,
		Mode:       Placeholder,
		Alert:      Placeholder,
		AlertStyle: StyleNeutral,
	}
}
