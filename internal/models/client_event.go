package models

import "time"

// Journal event types.
const (
	EventOpen         = "OPEN"
	EventClose        = "CLOSE"
	EventError        = "ERROR"
	EventReload       = "RELOAD"
	EventCommand      = "COMMAND"
	EventMessageError = "MESSAGE_ERROR"
)

// ClientEvent is a single diagnostics journal entry.
type ClientEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`        // OPEN | CLOSE | ERROR | RELOAD | COMMAND | MESSAGE_ERROR
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}
