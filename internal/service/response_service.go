package service

import (
	"time"

	"water_pump_monitor/internal/display"
)

// LogFilter narrows a journal listing by time range and type.
type LogFilter struct {
	From time.Time // inclusive; zero means no lower bound
	To   time.Time // inclusive; zero means no upper bound
	Type string    // "", "OPEN", "CLOSE", "ERROR", "RELOAD", "COMMAND", "MESSAGE_ERROR"
}

// DisplayState is what GET /api/v1/display returns.
type DisplayState struct {
	Connection string       `json:"connection"`
	Upstream   string       `json:"upstream"`
	Reloads    int64        `json:"reloads"`
	View       display.View `json:"view"`
	AlertClass string       `json:"alert_class"` // CSS class of the alert region
	ObservedAt time.Time    `json:"observed_at"`
}
