package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hearthboard/core/internal/domain/entities"
	"github.com/hearthboard/core/internal/infrastructure/logger"
)

// Outcome is what a finished sync pass reports back to the registry.
type Outcome struct {
	EventsChanged bool
	ChoresChanged bool
}

// ChangeReport is the read-and-clear answer to a poller's check. Reading it
// clears the changed flags, so each change is reported exactly once.
type ChangeReport struct {
	Status        entities.SyncStatus
	EventsChanged bool
	ChoresChanged bool
	RefreshNeeded bool
}

type partitionEntry struct {
	status        entities.SyncStatus
	eventsChanged bool
	choresChanged bool
	lastUpdate    time.Time
	startedAt     time.Time
}

// SyncRegistry tracks per-partition background sync state: whether a sync
// is running, when the last one finished, and whether it changed anything.
// Every transition happens under one mutex, which is what makes ShouldStart
// a single-flight claim rather than a racy peek.
type SyncRegistry struct {
	mu       sync.Mutex
	entries  map[string]*partitionEntry
	interval time.Duration
	lease    time.Duration
	now      func() time.Time
	logger   *logger.Logger
}

// NewSyncRegistry creates a registry with the given staleness interval.
// A running sync that outlives three intervals is presumed dead and its
// partition becomes claimable again.
func NewSyncRegistry(interval time.Duration, appLogger *logger.Logger) *SyncRegistry {
	if interval <= 0 {
		interval = 3 * time.Minute
	}
	return &SyncRegistry{
		entries:  make(map[string]*partitionEntry),
		interval: interval,
		lease:    3 * interval,
		now:      time.Now,
		logger:   appLogger.WithComponent("registry"),
	}
}

// ShouldStart reports whether a sync for the partition is due, and if so
// claims it by flipping the state to pending_refresh. Under concurrent
// callers exactly one gets true; the rest see the claim and get false.
func (r *SyncRegistry) ShouldStart(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[key]
	if !ok {
		r.entries[key] = &partitionEntry{
			status:     entities.SyncStatusPendingRefresh,
			lastUpdate: r.now(),
		}
		return true
	}

	switch e.status {
	case entities.SyncStatusPendingRefresh:
		return false
	case entities.SyncStatusRunning:
		// A worker that crashed without reporting would pin the partition
		// forever; reclaim it once the lease expires.
		if r.now().Sub(e.startedAt) > r.lease {
			r.logger.Warnw("Reclaiming stuck sync", "partition", key,
				"started_at", e.startedAt)
			e.status = entities.SyncStatusPendingRefresh
			e.lastUpdate = r.now()
			return true
		}
		return false
	case entities.SyncStatusError:
		// A failed pass should not wait out the staleness interval before
		// it can be retried.
		e.status = entities.SyncStatusPendingRefresh
		e.lastUpdate = r.now()
		return true
	default:
		if r.now().Sub(e.lastUpdate) > r.interval {
			e.status = entities.SyncStatusPendingRefresh
			e.lastUpdate = r.now()
			return true
		}
		return false
	}
}

// StartAsync transitions the partition to running and executes work on a
// new goroutine, reporting its outcome back through Complete or Fail. It
// returns false without starting anything if a sync is already running.
func (r *SyncRegistry) StartAsync(key string, work func(ctx context.Context) (Outcome, error)) bool {
	r.mu.Lock()
	e, ok := r.entries[key]
	if !ok {
		e = &partitionEntry{}
		r.entries[key] = e
	}
	if e.status == entities.SyncStatusRunning {
		r.mu.Unlock()
		return false
	}
	e.status = entities.SyncStatusRunning
	e.startedAt = r.now()
	r.mu.Unlock()

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Errorw("Sync panicked", "partition", key, "panic", rec)
				r.Fail(key, fmt.Errorf("sync panicked: %v", rec))
			}
		}()

		outcome, err := work(context.Background())
		if err != nil {
			r.Fail(key, err)
			return
		}
		r.Complete(key, outcome)
	}()

	return true
}

// Complete records a successful sync. Changed flags accumulate with OR so
// a change is never lost to a later no-op pass before the poller reads it.
func (r *SyncRegistry) Complete(key string, outcome Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[key]
	if !ok {
		e = &partitionEntry{}
		r.entries[key] = e
	}
	e.status = entities.SyncStatusComplete
	e.eventsChanged = e.eventsChanged || outcome.EventsChanged
	e.choresChanged = e.choresChanged || outcome.ChoresChanged
	e.lastUpdate = r.now()
}

// Fail records a failed sync. The changed flags are forced false: a failed
// pass must never tell the display something new arrived.
func (r *SyncRegistry) Fail(key string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[key]
	if !ok {
		e = &partitionEntry{}
		r.entries[key] = e
	}
	e.status = entities.SyncStatusError
	e.eventsChanged = false
	e.choresChanged = false
	e.lastUpdate = r.now()

	r.logger.Errorw("Sync failed", "partition", key, "error", err)
}

// ConsumeChanges returns the partition's status and change flags, clearing
// the flags as it reads them. RefreshNeeded reports staleness without
// claiming the partition; the caller decides whether to trigger.
func (r *SyncRegistry) ConsumeChanges(key string) ChangeReport {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[key]
	if !ok {
		return ChangeReport{
			Status:        entities.SyncStatusNotTracked,
			RefreshNeeded: true,
		}
	}

	report := ChangeReport{
		Status:        e.status,
		EventsChanged: e.eventsChanged,
		ChoresChanged: e.choresChanged,
	}
	e.eventsChanged = false
	e.choresChanged = false

	switch e.status {
	case entities.SyncStatusRunning, entities.SyncStatusPendingRefresh:
		report.RefreshNeeded = false
	default:
		report.RefreshNeeded = r.now().Sub(e.lastUpdate) > r.interval
	}

	return report
}

// Status returns the partition's current sync status without side effects.
func (r *SyncRegistry) Status(key string) entities.SyncStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[key]
	if !ok {
		return entities.SyncStatusNotTracked
	}
	return e.status
}
