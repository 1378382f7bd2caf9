package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hearthboard/core/internal/domain/entities"
	"github.com/hearthboard/core/internal/infrastructure/logger"
)

func newTestRegistry(interval time.Duration) (*SyncRegistry, *time.Time) {
	r := NewSyncRegistry(interval, logger.NewNop())
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }
	return r, &now
}

func TestShouldStartClaimsUntrackedPartition(t *testing.T) {
	r, _ := newTestRegistry(3 * time.Minute)

	if !r.ShouldStart("6.2025") {
		t.Fatal("first caller should claim an untracked partition")
	}
	if r.ShouldStart("6.2025") {
		t.Error("second caller should see the claim and back off")
	}
	if got := r.Status("6.2025"); got != entities.SyncStatusPendingRefresh {
		t.Errorf("status = %q, want pending_refresh", got)
	}
}

func TestShouldStartSingleFlightUnderConcurrency(t *testing.T) {
	r, _ := newTestRegistry(3 * time.Minute)

	var wg sync.WaitGroup
	var mu sync.Mutex
	claims := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r.ShouldStart("6.2025") {
				mu.Lock()
				claims++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if claims != 1 {
		t.Errorf("got %d claims, want exactly 1", claims)
	}
}

func TestShouldStartStaleRetrigger(t *testing.T) {
	r, now := newTestRegistry(3 * time.Minute)

	if !r.ShouldStart("6.2025") {
		t.Fatal("initial claim failed")
	}
	r.Complete("6.2025", Outcome{})

	// Fresh partition: no re-trigger.
	if r.ShouldStart("6.2025") {
		t.Error("fresh partition should not re-trigger")
	}

	// Past the staleness interval: exactly one caller claims again.
	*now = now.Add(4 * time.Minute)
	if !r.ShouldStart("6.2025") {
		t.Fatal("stale partition should re-trigger")
	}
	if r.ShouldStart("6.2025") {
		t.Error("second caller should see the pending_refresh claim")
	}
}

func TestRunningPartitionNotClaimable(t *testing.T) {
	r, now := newTestRegistry(3 * time.Minute)

	block := make(chan struct{})
	started := r.StartAsync("6.2025", func(ctx context.Context) (Outcome, error) {
		<-block
		return Outcome{}, nil
	})
	if !started {
		t.Fatal("StartAsync should start on an idle partition")
	}

	if r.ShouldStart("6.2025") {
		t.Error("running partition must not be claimable")
	}
	if r.StartAsync("6.2025", func(ctx context.Context) (Outcome, error) {
		return Outcome{}, nil
	}) {
		t.Error("StartAsync must refuse while a sync is running")
	}

	// After the lease expires the partition is presumed stuck and reclaimable.
	*now = now.Add(10 * time.Minute)
	if !r.ShouldStart("6.2025") {
		t.Error("partition should be reclaimable after the lease expires")
	}

	close(block)
}

func TestCompleteRecordsChanges(t *testing.T) {
	r, _ := newTestRegistry(3 * time.Minute)

	r.Complete("6.2025", Outcome{EventsChanged: true})
	report := r.ConsumeChanges("6.2025")

	if report.Status != entities.SyncStatusComplete {
		t.Errorf("status = %q, want complete", report.Status)
	}
	if !report.EventsChanged {
		t.Error("events change flag lost")
	}
	if report.ChoresChanged {
		t.Error("chores flag should be unset")
	}
}

func TestConsumeChangesReadsAndClears(t *testing.T) {
	r, _ := newTestRegistry(3 * time.Minute)
	r.Complete("chores", Outcome{ChoresChanged: true})

	first := r.ConsumeChanges("chores")
	if !first.ChoresChanged {
		t.Fatal("first read should report the change")
	}
	second := r.ConsumeChanges("chores")
	if second.ChoresChanged {
		t.Error("second read must not re-report the same change")
	}
}

func TestCompleteAccumulatesFlagsAcrossPasses(t *testing.T) {
	r, _ := newTestRegistry(3 * time.Minute)

	r.Complete("6.2025", Outcome{EventsChanged: true})
	// A later no-op pass must not erase the unread flag.
	r.Complete("6.2025", Outcome{})

	if !r.ConsumeChanges("6.2025").EventsChanged {
		t.Error("unread change flag was lost to a no-op pass")
	}
}

func TestFailForcesFlagsFalse(t *testing.T) {
	r, _ := newTestRegistry(3 * time.Minute)

	r.Complete("6.2025", Outcome{EventsChanged: true})
	r.Fail("6.2025", errors.New("remote unreachable"))

	report := r.ConsumeChanges("6.2025")
	if report.Status != entities.SyncStatusError {
		t.Errorf("status = %q, want error", report.Status)
	}
	if report.EventsChanged || report.ChoresChanged {
		t.Error("a failed sync must never report changes")
	}
}

func TestFailedPartitionRetriesWithoutWaiting(t *testing.T) {
	r, _ := newTestRegistry(3 * time.Minute)

	r.ShouldStart("6.2025")
	r.Fail("6.2025", errors.New("remote unreachable"))

	// No clock advance: a failed pass is retryable right away.
	if !r.ShouldStart("6.2025") {
		t.Fatal("error partition should be claimable immediately")
	}
	if r.ShouldStart("6.2025") {
		t.Error("second caller should see the pending_refresh claim")
	}
}

func TestStartAsyncReportsOutcome(t *testing.T) {
	r, _ := newTestRegistry(3 * time.Minute)

	done := make(chan struct{})
	r.StartAsync("6.2025", func(ctx context.Context) (Outcome, error) {
		defer close(done)
		return Outcome{EventsChanged: true}, nil
	})
	<-done

	waitForStatus(t, r, "6.2025", entities.SyncStatusComplete)
	if !r.ConsumeChanges("6.2025").EventsChanged {
		t.Error("outcome not recorded")
	}
}

func TestStartAsyncErrorRecordsFailure(t *testing.T) {
	r, _ := newTestRegistry(3 * time.Minute)

	done := make(chan struct{})
	r.StartAsync("6.2025", func(ctx context.Context) (Outcome, error) {
		defer close(done)
		return Outcome{}, errors.New("boom")
	})
	<-done

	waitForStatus(t, r, "6.2025", entities.SyncStatusError)
}

func TestStartAsyncRecoversPanic(t *testing.T) {
	r, _ := newTestRegistry(3 * time.Minute)

	r.StartAsync("6.2025", func(ctx context.Context) (Outcome, error) {
		panic("worker bug")
	})

	waitForStatus(t, r, "6.2025", entities.SyncStatusError)
}

func TestConsumeChangesUntracked(t *testing.T) {
	r, _ := newTestRegistry(3 * time.Minute)

	report := r.ConsumeChanges("1.2030")
	if report.Status != entities.SyncStatusNotTracked {
		t.Errorf("status = %q, want not_tracked", report.Status)
	}
	if !report.RefreshNeeded {
		t.Error("untracked partition should need a refresh")
	}
}

func waitForStatus(t *testing.T, r *SyncRegistry, key string, want entities.SyncStatus) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if r.Status(key) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("partition %q never reached status %q (got %q)", key, want, r.Status(key))
}
