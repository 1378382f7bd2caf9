package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/hearthboard/core/internal/domain/entities"
	"github.com/hearthboard/core/internal/ports"
)

// MonthRepositoryImpl implements the MonthRepository interface
type MonthRepositoryImpl struct {
	db *sqlx.DB
}

// NewMonthRepository creates a new month repository
func NewMonthRepository(db *sqlx.DB) ports.MonthRepository {
	return &MonthRepositoryImpl{db: db}
}

// Add registers a month partition. Months are immutable once created, so
// re-adding an existing id is a no-op.
func (r *MonthRepositoryImpl) Add(ctx context.Context, month *entities.Month) error {
	query := `
		INSERT INTO months (id, year, month)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING`

	_, err := r.db.ExecContext(ctx, query, month.ID, month.Year, month.Month)
	if err != nil {
		return fmt.Errorf("add month: %w", err)
	}

	return nil
}

func (r *MonthRepositoryImpl) GetByID(ctx context.Context, id string) (*entities.Month, error) {
	query := `SELECT id, year, month FROM months WHERE id = ?`

	var month entities.Month
	err := r.db.GetContext(ctx, &month, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrMonthNotFound
		}
		return nil, fmt.Errorf("get month by id: %w", err)
	}

	return &month, nil
}
