package ports

import (
	"context"

	"github.com/hearthboard/core/internal/domain/entities"
)

// CalendarRepository defines the interface for calendar persistence.
type CalendarRepository interface {
	Upsert(ctx context.Context, calendar *entities.Calendar) error
	GetByID(ctx context.Context, calendarID string) (*entities.Calendar, error)
	List(ctx context.Context) ([]*entities.Calendar, error)
	// NextColor returns the palette color at the persistent cursor position
	// (modulo palette size) and advances the cursor by one. The cursor grows
	// monotonically; the modulo is applied only at lookup time.
	NextColor(ctx context.Context) (string, error)
	// ColorCursor returns the current cursor position without advancing it.
	ColorCursor(ctx context.Context) (int, error)
}

// MonthRepository defines the interface for month partition persistence.
type MonthRepository interface {
	Add(ctx context.Context, month *entities.Month) error
	GetByID(ctx context.Context, id string) (*entities.Month, error)
}

// EventRepository defines the interface for event persistence.
type EventRepository interface {
	// Upsert inserts or replaces the event by id. It reports whether a row
	// was actually written: replaying identical data writes nothing, so the
	// caller's changed signal stays idempotent across repeated syncs.
	Upsert(ctx context.Context, event *entities.Event) (bool, error)
	GetByID(ctx context.Context, id string) (*entities.Event, error)
	// IDsForMonth returns the ids of all events stored under a partition.
	IDsForMonth(ctx context.Context, monthID string) ([]string, error)
	// DeleteNotIn hard-deletes every event in the partition whose id is
	// absent from keep, returning the number of rows removed.
	DeleteNotIn(ctx context.Context, monthID string, keep map[string]struct{}) (int, error)
	// ListOverlappingMonth returns all events overlapping the given month,
	// including those starting before or ending after it, joined with their
	// calendar's display fields and ordered by start time.
	ListOverlappingMonth(ctx context.Context, year, month int) ([]*entities.EventView, error)
}

// ChoreRepository defines the interface for chore persistence.
type ChoreRepository interface {
	// List returns stored chores, filtering out invisible ones unless
	// includeInvisible is set.
	List(ctx context.Context, includeInvisible bool) ([]*entities.Chore, error)
	GetByID(ctx context.Context, id string) (*entities.Chore, error)
	// Upsert inserts or replaces the chore by id, unless the stored row has
	// flipped to invisible since the caller compared it. Reports whether a
	// row was written.
	Upsert(ctx context.Context, chore *entities.Chore) (bool, error)
	Insert(ctx context.Context, chore *entities.Chore) error
	UpdateStatus(ctx context.Context, id string, status entities.ChoreStatus) error
	// Rebind replaces a locally generated surrogate id with the remote id
	// once the chore has round-tripped through the remote task API.
	Rebind(ctx context.Context, oldID, newID string) error
}
