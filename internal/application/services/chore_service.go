package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hearthboard/core/internal/domain/entities"
	"github.com/hearthboard/core/internal/infrastructure/logger"
	"github.com/hearthboard/core/internal/ports"
)

// ChoreService manages the chore list: reads for the display, writes that
// dual-target the local store and the remote task list.
type ChoreService struct {
	choreRepo ports.ChoreRepository
	remote    ports.RemoteSource
	sync      *SyncService
	logger    *logger.Logger
}

// NewChoreService creates a chore service.
func NewChoreService(
	choreRepo ports.ChoreRepository,
	remote ports.RemoteSource,
	sync *SyncService,
	appLogger *logger.Logger,
) *ChoreService {
	return &ChoreService{
		choreRepo: choreRepo,
		remote:    remote,
		sync:      sync,
		logger:    appLogger.WithComponent("chores"),
	}
}

// List returns the visible chores.
func (s *ChoreService) List(ctx context.Context) ([]*entities.Chore, error) {
	return s.choreRepo.List(ctx, false)
}

// Add creates a chore locally under a surrogate id, then creates it on the
// remote task list and rebinds to the remote id. A remote failure leaves
// the chore local-only under its surrogate id and reports partial success
// rather than an error.
func (s *ChoreService) Add(ctx context.Context, title, notes string) (*ports.AddChoreResponse, error) {
	localID := uuid.NewString()
	chore := &entities.Chore{
		ID:          localID,
		AssignedTo:  title,
		Description: notes,
		Status:      entities.ChoreStatusNeedsAction,
	}
	if err := s.choreRepo.Insert(ctx, chore); err != nil {
		return nil, fmt.Errorf("insert chore: %w", err)
	}

	remoteID, err := s.remote.CreateChore(ctx, title, notes)
	if err != nil || remoteID == "" {
		s.logger.Warnw("Chore created locally but remote sync failed",
			"chore_id", localID, "error", err)
		return &ports.AddChoreResponse{
			Success: true,
			Message: "Chore added locally, but failed to sync with the remote task list. It will retain a local ID.",
			ID:      localID,
		}, nil
	}

	if err := s.choreRepo.Rebind(ctx, localID, remoteID); err != nil {
		s.logger.Errorw("Failed to rebind chore to remote id",
			"local_id", localID, "remote_id", remoteID, "error", err)
		return &ports.AddChoreResponse{
			Success: true,
			Message: "Chore added and synced, but keeps its local ID.",
			ID:      localID,
		}, nil
	}

	return &ports.AddChoreResponse{
		Success: true,
		Message: "Chore added successfully and synced with the remote task list.",
		ID:      remoteID,
	}, nil
}

// UpdateStatus changes a chore's status locally and, unless the new status
// is the local-only invisible state, pushes the change to the remote list.
func (s *ChoreService) UpdateStatus(ctx context.Context, id string, status entities.ChoreStatus) error {
	if !status.IsValid() {
		return entities.ErrInvalidStatus
	}

	if err := s.choreRepo.UpdateStatus(ctx, id, status); err != nil {
		return err
	}

	if status == entities.ChoreStatusInvisible {
		return nil
	}

	if err := s.remote.UpdateChoreStatus(ctx, id, status); err != nil {
		return fmt.Errorf("push status to remote: %w", err)
	}
	return nil
}

// Refresh force-starts a background chores sync, returning whether one was
// started (false means a sync is already running).
func (s *ChoreService) Refresh() bool {
	return s.sync.ForceChoresSync()
}
