package ports

import (
	"context"
	"time"

	"github.com/hearthboard/core/internal/domain/entities"
)

// RemoteEvent is a normalized calendar event as fetched from the remote
// source: all-day records are midnight UTC, timed records carry their
// original offset, malformed timestamps are the zero time.
type RemoteEvent struct {
	ID           string
	CalendarID   string
	CalendarName string
	Title        string
	Start        time.Time
	End          time.Time
	AllDay       bool
	Location     *string
	Description  *string
}

// RemoteChore is a normalized task from the remote chores list. Status is
// always needsAction or completed; the remote source knows nothing about
// the local invisible state.
type RemoteChore struct {
	ID          string
	AssignedTo  string
	Description string
	Status      entities.ChoreStatus
	Due         *string
}

// RemoteSource fetches and mutates data on the external calendar/task API.
//
// FetchEvents must return a complete snapshot for the month: every
// accessible calendar, every page. A partial snapshot would cause
// false-positive deletions downstream, so any failure mid-fetch surfaces
// as an error rather than a truncated result. Callers must treat an error
// as "no data available", never as "all events deleted".
type RemoteSource interface {
	FetchEvents(ctx context.Context, year, month int) ([]RemoteEvent, error)
	// FetchChores returns the tasks of the configured chores list. A missing
	// list yields an empty slice and no error.
	FetchChores(ctx context.Context) ([]RemoteChore, error)
	// CreateChore creates a task on the remote list and returns its
	// remote-assigned id.
	CreateChore(ctx context.Context, title, notes string) (string, error)
	UpdateChoreStatus(ctx context.Context, id string, status entities.ChoreStatus) error
}
