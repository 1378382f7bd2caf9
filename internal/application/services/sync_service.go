package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hearthboard/core/internal/domain/entities"
	"github.com/hearthboard/core/internal/infrastructure/logger"
	"github.com/hearthboard/core/internal/infrastructure/metrics"
	"github.com/hearthboard/core/internal/ports"
)

// ChoresPartitionKey is the registry key for the single chores partition.
// Month partitions use entities.MonthID.
const ChoresPartitionKey = "chores"

// SyncService pulls snapshots from the remote source and reconciles them
// into local storage. Events reconcile per month partition with
// delete-by-absence; chores reconcile as a diff-and-stage pass that never
// deletes and never touches invisible rows.
type SyncService struct {
	calendarRepo ports.CalendarRepository
	monthRepo    ports.MonthRepository
	eventRepo    ports.EventRepository
	choreRepo    ports.ChoreRepository
	remote       ports.RemoteSource
	registry     *SyncRegistry
	aliases      map[string]string
	logger       *logger.Logger
	metrics      *metrics.Metrics
}

// NewSyncService creates a sync service. aliases maps remote calendar names
// to display names; metrics may be nil.
func NewSyncService(
	calendarRepo ports.CalendarRepository,
	monthRepo ports.MonthRepository,
	eventRepo ports.EventRepository,
	choreRepo ports.ChoreRepository,
	remote ports.RemoteSource,
	registry *SyncRegistry,
	aliases map[string]string,
	appLogger *logger.Logger,
	m *metrics.Metrics,
) *SyncService {
	return &SyncService{
		calendarRepo: calendarRepo,
		monthRepo:    monthRepo,
		eventRepo:    eventRepo,
		choreRepo:    choreRepo,
		remote:       remote,
		registry:     registry,
		aliases:      aliases,
		logger:       appLogger.WithComponent("sync"),
		metrics:      m,
	}
}

// Registry exposes the sync registry for pollers.
func (s *SyncService) Registry() *SyncRegistry {
	return s.registry
}

// StartMonthSync triggers a background sync of the month partition if the
// registry deems it due. Returns whether a sync was started.
func (s *SyncService) StartMonthSync(year, month int) bool {
	key := entities.MonthID(year, month)
	if !s.registry.ShouldStart(key) {
		return false
	}
	return s.registry.StartAsync(key, func(ctx context.Context) (Outcome, error) {
		return s.SyncMonth(ctx, year, month)
	})
}

// StartChoresSync triggers a background sync of the chores partition if due.
func (s *SyncService) StartChoresSync() bool {
	if !s.registry.ShouldStart(ChoresPartitionKey) {
		return false
	}
	return s.registry.StartAsync(ChoresPartitionKey, func(ctx context.Context) (Outcome, error) {
		return s.SyncChores(ctx)
	})
}

// ForceMonthSync runs a month sync in the background regardless of
// staleness, used by the manual refresh endpoint. Returns false if one is
// already running.
func (s *SyncService) ForceMonthSync(year, month int) bool {
	key := entities.MonthID(year, month)
	return s.registry.StartAsync(key, func(ctx context.Context) (Outcome, error) {
		return s.SyncMonth(ctx, year, month)
	})
}

// ForceChoresSync runs a chores sync in the background regardless of
// staleness.
func (s *SyncService) ForceChoresSync() bool {
	return s.registry.StartAsync(ChoresPartitionKey, func(ctx context.Context) (Outcome, error) {
		return s.SyncChores(ctx)
	})
}

// SyncMonth fetches the month's remote snapshot and reconciles it into the
// partition: upsert every event, then delete whatever the snapshot no
// longer contains. A fetch failure aborts before any write or delete, so a
// flaky remote can never be mistaken for a mass deletion.
func (s *SyncService) SyncMonth(ctx context.Context, year, month int) (Outcome, error) {
	started := time.Now()
	key := entities.MonthID(year, month)
	log := s.logger.WithPartition(key)

	m, err := entities.NewMonth(year, month)
	if err != nil {
		s.observeSync("month", "error", started)
		return Outcome{}, err
	}
	if err := s.monthRepo.Add(ctx, m); err != nil {
		s.observeSync("month", "error", started)
		return Outcome{}, fmt.Errorf("add month partition: %w", err)
	}

	remoteEvents, err := s.remote.FetchEvents(ctx, year, month)
	if err != nil {
		log.Warnw("Remote fetch failed, keeping stored events", "error", err)
		s.observeSync("month", "error", started)
		return Outcome{}, fmt.Errorf("fetch events: %w", err)
	}

	calendarsChanged, err := s.reconcileCalendars(ctx, remoteEvents, log)
	if err != nil {
		s.observeSync("month", "error", started)
		return Outcome{}, err
	}

	changed := calendarsChanged
	written := 0
	keep := make(map[string]struct{}, len(remoteEvents))
	for i := range remoteEvents {
		re := &remoteEvents[i]
		if _, dup := keep[re.ID]; dup {
			continue
		}
		keep[re.ID] = struct{}{}

		event := &entities.Event{
			ID:          re.ID,
			CalendarID:  re.CalendarID,
			MonthID:     m.ID,
			Title:       re.Title,
			Start:       re.Start,
			End:         re.End,
			AllDay:      re.AllDay,
			Location:    re.Location,
			Description: re.Description,
		}

		wrote, err := s.eventRepo.Upsert(ctx, event)
		if err != nil {
			log.Errorw("Event upsert failed, continuing", "event_id", re.ID, "error", err)
			continue
		}
		if wrote {
			changed = true
			written++
		}
	}

	deleted, err := s.eventRepo.DeleteNotIn(ctx, m.ID, keep)
	if err != nil {
		s.observeSync("month", "error", started)
		return Outcome{}, fmt.Errorf("delete absent events: %w", err)
	}
	if deleted > 0 {
		changed = true
	}

	if s.metrics != nil {
		s.metrics.EventsWritten.Add(float64(written))
		s.metrics.EventsDeleted.Add(float64(deleted))
	}
	s.observeSync("month", "success", started)
	log.LogSyncResult(key, changed, false, float64(time.Since(started).Milliseconds()))

	return Outcome{EventsChanged: changed}, nil
}

// reconcileCalendars upserts every calendar seen in the event batch and
// reports whether any row was created or renamed. New calendars draw the
// next palette color; known calendars keep their color but pick up renames.
// First occurrence in the batch wins for the name.
func (s *SyncService) reconcileCalendars(ctx context.Context, events []ports.RemoteEvent, log *logger.Logger) (bool, error) {
	changed := false
	seen := make(map[string]struct{})
	for i := range events {
		re := &events[i]
		if _, ok := seen[re.CalendarID]; ok {
			continue
		}
		seen[re.CalendarID] = struct{}{}

		existing, err := s.calendarRepo.GetByID(ctx, re.CalendarID)
		switch {
		case errors.Is(err, entities.ErrCalendarNotFound):
			color, err := s.calendarRepo.NextColor(ctx)
			if err != nil {
				return changed, fmt.Errorf("assign calendar color: %w", err)
			}
			cal := &entities.Calendar{
				CalendarID:  re.CalendarID,
				Name:        re.CalendarName,
				DisplayName: s.displayName(re.CalendarName),
				Color:       color,
			}
			if err := s.calendarRepo.Upsert(ctx, cal); err != nil {
				return changed, fmt.Errorf("insert calendar: %w", err)
			}
			changed = true
			log.Infow("New calendar registered", "calendar_id", re.CalendarID,
				"name", re.CalendarName, "color", color)
		case err != nil:
			return changed, fmt.Errorf("load calendar: %w", err)
		case existing.Name != re.CalendarName:
			existing.Name = re.CalendarName
			existing.DisplayName = s.displayName(re.CalendarName)
			if err := s.calendarRepo.Upsert(ctx, existing); err != nil {
				return changed, fmt.Errorf("rename calendar: %w", err)
			}
			changed = true
		}
	}
	return changed, nil
}

func (s *SyncService) displayName(name string) string {
	if alias, ok := s.aliases[name]; ok {
		return alias
	}
	return name
}

// SyncChores fetches the remote chores snapshot and stages writes for
// every chore that is new or differs from the stored row. Chores absent
// from the snapshot are left alone, and invisible rows are never
// overwritten by remote data.
func (s *SyncService) SyncChores(ctx context.Context) (Outcome, error) {
	started := time.Now()
	log := s.logger.WithPartition(ChoresPartitionKey)

	remoteChores, err := s.remote.FetchChores(ctx)
	if err != nil {
		log.Warnw("Remote chores fetch failed, keeping stored chores", "error", err)
		s.observeSync("chores", "error", started)
		return Outcome{}, fmt.Errorf("fetch chores: %w", err)
	}

	stored, err := s.choreRepo.List(ctx, true)
	if err != nil {
		s.observeSync("chores", "error", started)
		return Outcome{}, fmt.Errorf("list chores: %w", err)
	}
	byID := make(map[string]*entities.Chore, len(stored))
	for _, c := range stored {
		byID[c.ID] = c
	}

	written := 0
	for _, rc := range remoteChores {
		existing := byID[rc.ID]
		if existing != nil && existing.Status == entities.ChoreStatusInvisible {
			continue
		}

		candidate := &entities.Chore{
			ID:          rc.ID,
			AssignedTo:  rc.AssignedTo,
			Description: rc.Description,
			Status:      rc.Status,
			Due:         rc.Due,
		}
		if existing != nil && existing.ComparisonKey() == candidate.ComparisonKey() {
			continue
		}

		wrote, err := s.choreRepo.Upsert(ctx, candidate)
		if err != nil {
			log.Errorw("Chore upsert failed, continuing", "chore_id", rc.ID, "error", err)
			continue
		}
		if wrote {
			written++
		}
	}

	if s.metrics != nil {
		s.metrics.ChoresWritten.Add(float64(written))
	}
	s.observeSync("chores", "success", started)
	log.LogSyncResult(ChoresPartitionKey, false, written > 0,
		float64(time.Since(started).Milliseconds()))

	return Outcome{ChoresChanged: written > 0}, nil
}

func (s *SyncService) observeSync(kind, result string, started time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.SyncRunsTotal.WithLabelValues(kind, result).Inc()
	s.metrics.SyncDuration.WithLabelValues(kind).Observe(time.Since(started).Seconds())
}
