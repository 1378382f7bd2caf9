package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/hearthboard/core/internal/domain/entities"
	"github.com/hearthboard/core/internal/ports"
)

// EventRepositoryImpl implements the EventRepository interface
type EventRepositoryImpl struct {
	db *sqlx.DB
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *sqlx.DB) ports.EventRepository {
	return &EventRepositoryImpl{db: db}
}

// Upsert inserts or replaces the event keyed by its remote id. The update
// branch only fires when a tracked field actually differs, so replaying an
// identical snapshot reports zero rows written.
func (r *EventRepositoryImpl) Upsert(ctx context.Context, event *entities.Event) (bool, error) {
	query := `
		INSERT INTO events (id, calendar_id, month_id, title, start_at, end_at, all_day, location, description)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			calendar_id = excluded.calendar_id,
			month_id = excluded.month_id,
			title = excluded.title,
			start_at = excluded.start_at,
			end_at = excluded.end_at,
			all_day = excluded.all_day,
			location = excluded.location,
			description = excluded.description
		WHERE events.calendar_id IS NOT excluded.calendar_id
			OR events.month_id IS NOT excluded.month_id
			OR events.title IS NOT excluded.title
			OR events.start_at IS NOT excluded.start_at
			OR events.end_at IS NOT excluded.end_at
			OR events.all_day IS NOT excluded.all_day
			OR events.location IS NOT excluded.location
			OR events.description IS NOT excluded.description`

	// Timestamps go in as UTC so the stored text form is stable and
	// lexicographically ordered.
	res, err := r.db.ExecContext(ctx, query,
		event.ID, event.CalendarID, event.MonthID, event.Title,
		event.Start.UTC(), event.End.UTC(), event.AllDay,
		event.Location, event.Description)
	if err != nil {
		return false, fmt.Errorf("upsert event: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("upsert event: rows affected: %w", err)
	}

	return affected > 0, nil
}

func (r *EventRepositoryImpl) GetByID(ctx context.Context, id string) (*entities.Event, error) {
	query := `
		SELECT id, calendar_id, month_id, title, start_at, end_at, all_day, location, description
		FROM events
		WHERE id = ?`

	var event entities.Event
	err := r.db.GetContext(ctx, &event, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrEventNotFound
		}
		return nil, fmt.Errorf("get event by id: %w", err)
	}

	return &event, nil
}

func (r *EventRepositoryImpl) IDsForMonth(ctx context.Context, monthID string) ([]string, error) {
	query := `SELECT id FROM events WHERE month_id = ?`

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, monthID); err != nil {
		return nil, fmt.Errorf("event ids for month: %w", err)
	}

	return ids, nil
}

func (r *EventRepositoryImpl) DeleteNotIn(ctx context.Context, monthID string, keep map[string]struct{}) (int, error) {
	if len(keep) == 0 {
		res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE month_id = ?`, monthID)
		if err != nil {
			return 0, fmt.Errorf("delete stale events: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("delete stale events: rows affected: %w", err)
		}
		return int(affected), nil
	}

	ids := make([]string, 0, len(keep))
	for id := range keep {
		ids = append(ids, id)
	}

	query, args, err := sqlx.In(`DELETE FROM events WHERE month_id = ? AND id NOT IN (?)`, monthID, ids)
	if err != nil {
		return 0, fmt.Errorf("delete stale events: build query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("delete stale events: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete stale events: rows affected: %w", err)
	}

	return int(affected), nil
}

// ListOverlappingMonth returns events overlapping the month: those that
// start in it, end in it, or span across it. Events whose calendar row is
// missing still appear, with fallback display fields.
func (r *EventRepositoryImpl) ListOverlappingMonth(ctx context.Context, year, month int) ([]*entities.EventView, error) {
	monthStart := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0).Add(-time.Second)

	query := `
		SELECT DISTINCT
			ev.id,
			ev.title,
			ev.start_at,
			ev.end_at,
			ev.all_day,
			ev.location,
			ev.description,
			COALESCE(cal.display_name, cal.name, 'Unknown Calendar') AS calendar_name,
			COALESCE(cal.color, '#808080') AS calendar_color
		FROM events ev
		LEFT JOIN calendars cal ON ev.calendar_id = cal.calendar_id
		WHERE ev.start_at <= ? AND ev.end_at >= ?
		ORDER BY ev.start_at`

	var events []*entities.EventView
	if err := r.db.SelectContext(ctx, &events, query, monthEnd, monthStart); err != nil {
		return nil, fmt.Errorf("list events overlapping month: %w", err)
	}

	return events, nil
}
