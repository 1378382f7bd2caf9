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

// ChoreRepositoryImpl implements the ChoreRepository interface
type ChoreRepositoryImpl struct {
	db *sqlx.DB
}

// NewChoreRepository creates a new chore repository
func NewChoreRepository(db *sqlx.DB) ports.ChoreRepository {
	return &ChoreRepositoryImpl{db: db}
}

func (r *ChoreRepositoryImpl) List(ctx context.Context, includeInvisible bool) ([]*entities.Chore, error) {
	query := `SELECT id, assigned_to, description, status, due FROM chores`
	args := []interface{}{}

	if !includeInvisible {
		query += ` WHERE status != ?`
		args = append(args, entities.ChoreStatusInvisible)
	}
	query += ` ORDER BY assigned_to, id`

	var chores []*entities.Chore
	if err := r.db.SelectContext(ctx, &chores, query, args...); err != nil {
		return nil, fmt.Errorf("list chores: %w", err)
	}

	return chores, nil
}

func (r *ChoreRepositoryImpl) GetByID(ctx context.Context, id string) (*entities.Chore, error) {
	query := `SELECT id, assigned_to, description, status, due FROM chores WHERE id = ?`

	var chore entities.Chore
	err := r.db.GetContext(ctx, &chore, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrChoreNotFound
		}
		return nil, fmt.Errorf("get chore by id: %w", err)
	}

	return &chore, nil
}

// Upsert inserts or replaces the chore by id. The update branch is guarded
// against rows that have flipped to invisible since the caller compared
// them: local suppression wins even when the flip races the write.
func (r *ChoreRepositoryImpl) Upsert(ctx context.Context, chore *entities.Chore) (bool, error) {
	query := `
		INSERT INTO chores (id, assigned_to, description, status, due)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			assigned_to = excluded.assigned_to,
			description = excluded.description,
			status = excluded.status,
			due = excluded.due
		WHERE chores.status != ?`

	res, err := r.db.ExecContext(ctx, query,
		chore.ID, chore.AssignedTo, chore.Description, chore.Status, chore.Due,
		entities.ChoreStatusInvisible)
	if err != nil {
		return false, fmt.Errorf("upsert chore: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("upsert chore: rows affected: %w", err)
	}

	return affected > 0, nil
}

func (r *ChoreRepositoryImpl) Insert(ctx context.Context, chore *entities.Chore) error {
	query := `
		INSERT INTO chores (id, assigned_to, description, status, due)
		VALUES (?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		chore.ID, chore.AssignedTo, chore.Description, chore.Status, chore.Due)
	if err != nil {
		return fmt.Errorf("insert chore: %w", err)
	}

	return nil
}

func (r *ChoreRepositoryImpl) UpdateStatus(ctx context.Context, id string, status entities.ChoreStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE chores SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("update chore status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update chore status: rows affected: %w", err)
	}
	if affected == 0 {
		return entities.ErrChoreNotFound
	}

	return nil
}

// Rebind swaps a locally generated surrogate id for the remote id assigned
// once the chore round-trips through the remote task API.
func (r *ChoreRepositoryImpl) Rebind(ctx context.Context, oldID, newID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE chores SET id = ? WHERE id = ?`, newID, oldID)
	if err != nil {
		return fmt.Errorf("rebind chore id: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rebind chore id: rows affected: %w", err)
	}
	if affected == 0 {
		return entities.ErrChoreNotFound
	}

	return nil
}
