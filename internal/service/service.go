package service

import (
	"context"
	"time"

	"water_pump_monitor/internal/client"
	"water_pump_monitor/internal/display"
	"water_pump_monitor/internal/logger"
	"water_pump_monitor/internal/models"
	"water_pump_monitor/internal/repository"
)

// Panel is the live telemetry client as the HTTP layer sees it.
// *client.Controller satisfies it.
type Panel interface {
	Press(ctx context.Context, control string) error
	State() client.State
	Reloads() int64
	URL() string
}

// ViewSource exposes what is currently on screen. *display.Board satisfies it.
type ViewSource interface {
	View() display.View
}

// Controls forwards dashboard control presses to the device.
type Controls interface {
	Press(ctx context.Context, control string) error
	Available() []string
}

// Monitoring exposes the rendered display and connection health.
type Monitoring interface {
	Display(ctx context.Context) (DisplayState, error)
}

// EventLog exposes the client's diagnostics journal with filtering.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.ClientEvent, error)
}

// Retention runs the background journal cleanup. Stop it by cancelling ctx.
type Retention interface {
	Run(ctx context.Context, tick time.Duration)
}

// Service aggregates the sub-services used by the handlers and main.
type Service struct {
	Controls
	Monitoring
	EventLog
	Retention
}

// NewService wires the repositories and the live client into the services.
// journalMaxAge bounds the journal; zero keeps it forever.
func NewService(repos *repository.Repository, panel Panel, board ViewSource, journalMaxAge time.Duration, log *logger.Logger) *Service {
	return &Service{
		Controls:   NewControlsService(panel),
		Monitoring: NewMonitoringService(panel, board),
		EventLog:   NewEventLogService(repos.EventRepo),
		Retention:  NewRetentionService(repos.EventRepo, journalMaxAge, log),
	}
}
