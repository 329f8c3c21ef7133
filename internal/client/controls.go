package client

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"water_pump_monitor/internal/models"
)

// Control identifiers, matching the buttons of the dashboard markup.
const (
	ControlAutomatic = "autoBtn"
	ControlManual    = "manualBtn"
	ControlPumpOn    = "pumpOnBtn"
	ControlPumpOff   = "pumpOffBtn"
)

var (
	ErrUnknownControl = errors.New("unknown control")
	ErrNotRunning     = errors.New("client is not running")
	ErrAlreadyRunning = errors.New("client already running")
	ErrInvalidUTF8    = errors.New("text frame is not valid utf-8")
)

// Controls lists every control in display order.
func Controls() []string {
	return []string{ControlAutomatic, ControlManual, ControlPumpOn, ControlPumpOff}
}

// CommandFor maps a control to the command it sends.
func CommandFor(control string) (models.Command, error) {
	switch control {
	case ControlAutomatic:
		return models.SetMode(models.ModeAutomatic), nil
	case ControlManual:
		return models.SetMode(models.ModeManual), nil
	case ControlPumpOn:
		return models.SetPump(true), nil
	case ControlPumpOff:
		return models.SetPump(false), nil
	default:
		return models.Command{}, fmt.Errorf("%w: %q", ErrUnknownControl, control)
	}
}

// WebSocketURL derives the telemetry endpoint from the controller's page URL:
// same host, /ws path, ws for http and wss for https.
func WebSocketURL(pageURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(pageURL))
	if err != nil {
		return "", err
	}

	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme: %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("missing host in %q", pageURL)
	}

	u.Path = "/ws"
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	u.User = nil
	return u.String(), nil
}
