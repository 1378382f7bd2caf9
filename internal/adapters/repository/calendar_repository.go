package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/hearthboard/core/internal/domain/entities"
	"github.com/hearthboard/core/internal/infrastructure/database"
	"github.com/hearthboard/core/internal/ports"
)

// CalendarRepositoryImpl implements the CalendarRepository interface
type CalendarRepositoryImpl struct {
	db *sqlx.DB
}

// NewCalendarRepository creates a new calendar repository
func NewCalendarRepository(db *sqlx.DB) ports.CalendarRepository {
	return &CalendarRepositoryImpl{db: db}
}

func (r *CalendarRepositoryImpl) Upsert(ctx context.Context, calendar *entities.Calendar) error {
	query := `
		INSERT INTO calendars (calendar_id, name, display_name, color)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(calendar_id) DO UPDATE SET
			name = excluded.name,
			display_name = excluded.display_name,
			color = excluded.color`

	_, err := r.db.ExecContext(ctx, query,
		calendar.CalendarID, calendar.Name, calendar.DisplayName, calendar.Color)
	if err != nil {
		return fmt.Errorf("upsert calendar: %w", err)
	}

	return nil
}

func (r *CalendarRepositoryImpl) GetByID(ctx context.Context, calendarID string) (*entities.Calendar, error) {
	query := `
		SELECT calendar_id, name, display_name, color
		FROM calendars
		WHERE calendar_id = ?`

	var calendar entities.Calendar
	err := r.db.GetContext(ctx, &calendar, query, calendarID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrCalendarNotFound
		}
		return nil, fmt.Errorf("get calendar by id: %w", err)
	}

	return &calendar, nil
}

func (r *CalendarRepositoryImpl) List(ctx context.Context) ([]*entities.Calendar, error) {
	query := `
		SELECT calendar_id, name, display_name, color
		FROM calendars
		ORDER BY display_name`

	var calendars []*entities.Calendar
	if err := r.db.SelectContext(ctx, &calendars, query); err != nil {
		return nil, fmt.Errorf("list calendars: %w", err)
	}

	return calendars, nil
}

// NextColor picks the palette color at (cursor mod palette size) and
// advances the cursor. The cursor grows without wrapping so the history
// of assignments stays recoverable from its raw value.
func (r *CalendarRepositoryImpl) NextColor(ctx context.Context) (string, error) {
	var color string
	err := database.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var cursor int
		if err := tx.GetContext(ctx, &cursor, `SELECT position FROM color_cursor WHERE id = 1`); err != nil {
			return fmt.Errorf("next color: read cursor: %w", err)
		}

		var count int
		if err := tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM palette_colors`); err != nil {
			return fmt.Errorf("next color: count palette: %w", err)
		}
		if count == 0 {
			color = "#000000"
			return nil
		}

		if err := tx.GetContext(ctx, &color,
			`SELECT hex_code FROM palette_colors WHERE position = ?`, cursor%count); err != nil {
			return fmt.Errorf("next color: read palette: %w", err)
		}

		_, err := tx.ExecContext(ctx,
			`UPDATE color_cursor SET position = ? WHERE id = 1`, cursor+1)
		if err != nil {
			return fmt.Errorf("next color: advance cursor: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return color, nil
}

func (r *CalendarRepositoryImpl) ColorCursor(ctx context.Context) (int, error) {
	var cursor int
	if err := r.db.GetContext(ctx, &cursor, `SELECT position FROM color_cursor WHERE id = 1`); err != nil {
		return 0, fmt.Errorf("read color cursor: %w", err)
	}
	return cursor, nil
}
