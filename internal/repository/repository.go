package repository

import (
	"context"
	"database/sql"
	"time"

	"water_pump_monitor/internal/models"
	"water_pump_monitor/internal/repository/db"
)

// EventRepo is the append-only diagnostics journal.
type EventRepo interface {
	Append(ctx context.Context, e models.ClientEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.ClientEvent, error)
	Prune(ctx context.Context, before time.Time) (int64, error)
}

type Repository struct {
	EventRepo EventRepo
}

func NewRepository(conn *sql.DB) *Repository {
	return &Repository{
		EventRepo: NewEventSQLite(conn),
	}
}

// InitDB opens the journal database at path and applies the schema.
func InitDB(path string) (*sql.DB, error) {
	return db.InitDB(path)
}
