package services

import (
	"context"
	"testing"
	"time"

	"github.com/hearthboard/core/internal/domain/entities"
	"github.com/hearthboard/core/internal/infrastructure/logger"
)

func newCalendarFixture() (*syncFixture, *CalendarService) {
	f := newSyncFixture(nil, "#111111")
	svc := NewCalendarService(f.months, f.events, f.chores, f.service, logger.NewNop())
	svc.now = func() time.Time {
		return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	}
	return f, svc
}

// quiesce marks partitions freshly synced so view tests exercise the read
// path without spawning background syncs against the shared fakes.
func quiesce(f *syncFixture, keys ...string) {
	for _, key := range keys {
		f.service.Registry().Complete(key, Outcome{})
		f.service.Registry().ConsumeChanges(key)
	}
}

func TestBuildWeeksGrid(t *testing.T) {
	// June 2025 starts on a Sunday and has 30 days: 5 weeks.
	weeks := buildWeeks(2025, 6, time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC), nil)

	if len(weeks) != 5 {
		t.Fatalf("got %d weeks, want 5", len(weeks))
	}
	for i, week := range weeks {
		if len(week) != 7 {
			t.Errorf("week %d has %d cells, want 7", i, len(week))
		}
	}

	if weeks[0][0].DayNumber != 1 || !weeks[0][0].IsCurrentMonth {
		t.Errorf("first cell = %+v, want day 1", weeks[0][0])
	}
	if weeks[4][0].DayNumber != 29 {
		t.Errorf("last week starts at day %d, want 29", weeks[4][0].DayNumber)
	}
	// 30 days from a Sunday start: the 30th is a Monday, the rest padding.
	if weeks[4][1].DayNumber != 30 {
		t.Errorf("cell = %+v, want day 30", weeks[4][1])
	}
	if weeks[4][2].DayNumber != 0 || weeks[4][2].IsCurrentMonth {
		t.Errorf("padding cell = %+v, want empty", weeks[4][2])
	}
}

func TestBuildWeeksLeadingPadding(t *testing.T) {
	// May 2025 starts on a Thursday: four leading padding cells.
	weeks := buildWeeks(2025, 5, time.Time{}, nil)

	for i := 0; i < 4; i++ {
		if weeks[0][i].DayNumber != 0 {
			t.Errorf("cell %d = %+v, want padding", i, weeks[0][i])
		}
	}
	if weeks[0][4].DayNumber != 1 {
		t.Errorf("first day cell = %+v, want day 1 on Thursday", weeks[0][4])
	}
}

func TestBuildWeeksMarksToday(t *testing.T) {
	today := time.Date(2025, 6, 15, 8, 30, 0, 0, time.UTC)
	weeks := buildWeeks(2025, 6, today, nil)

	found := false
	for _, week := range weeks {
		for _, cell := range week {
			if cell.IsToday {
				found = true
				if cell.DayNumber != 15 {
					t.Errorf("today marked on day %d, want 15", cell.DayNumber)
				}
			}
		}
	}
	if !found {
		t.Error("no cell marked as today")
	}

	// Viewing a different month: nothing is today.
	for _, week := range buildWeeks(2025, 7, today, nil) {
		for _, cell := range week {
			if cell.IsToday {
				t.Error("today must not be marked in another month")
			}
		}
	}
}

func TestEventsForDaySortsAllDayFirst(t *testing.T) {
	d := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	events := []*entities.EventView{
		{ID: "timed-early", Start: d.Add(8 * time.Hour), End: d.Add(9 * time.Hour)},
		{ID: "all-day", Start: d, End: d.Add(24 * time.Hour), AllDay: true},
		{ID: "timed-late", Start: d.Add(18 * time.Hour), End: d.Add(19 * time.Hour)},
	}

	got := eventsForDay(events, d)
	if len(got) != 3 {
		t.Fatalf("got %d events, want 3", len(got))
	}
	wantOrder := []string{"all-day", "timed-early", "timed-late"}
	for i, want := range wantOrder {
		if got[i].ID != want {
			t.Errorf("position %d = %q, want %q", i, got[i].ID, want)
		}
	}
}

func TestMonthViewRejectsInvalidMonth(t *testing.T) {
	_, svc := newCalendarFixture()

	if _, err := svc.MonthView(context.Background(), 2025, 13); err != entities.ErrInvalidMonth {
		t.Errorf("error = %v, want ErrInvalidMonth", err)
	}
	if _, err := svc.MonthView(context.Background(), 2025, 0); err != entities.ErrInvalidMonth {
		t.Errorf("error = %v, want ErrInvalidMonth", err)
	}
}

func TestMonthViewPayload(t *testing.T) {
	f, svc := newCalendarFixture()
	quiesce(f, "6.2025", ChoresPartitionKey)

	start := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	f.events.events["e1"] = &entities.Event{
		ID: "e1", CalendarID: "work", MonthID: "6.2025",
		Title: "Standup", Start: start, End: start.Add(time.Hour),
	}
	f.chores.chores["c1"] = &entities.Chore{
		ID: "c1", AssignedTo: "Sam", Description: "Dishes",
		Status: entities.ChoreStatusNeedsAction,
	}
	f.chores.chores["c2"] = &entities.Chore{
		ID: "c2", AssignedTo: "Alex", Description: "Hidden",
		Status: entities.ChoreStatusInvisible,
	}

	view, err := svc.MonthView(context.Background(), 2025, 6)
	if err != nil {
		t.Fatalf("MonthView: %v", err)
	}

	if view.MonthName != "June" || view.Year != 2025 {
		t.Errorf("header = %s %d", view.MonthName, view.Year)
	}
	if view.Navigation.PrevMonth != 5 || view.Navigation.NextMonth != 7 {
		t.Errorf("navigation = %+v", view.Navigation)
	}
	if len(view.Chores) != 1 || view.Chores[0].ID != "c1" {
		t.Errorf("chores = %+v, invisible must be filtered", view.Chores)
	}
	if len(view.TodayEvents) != 1 || view.TodayEvents[0].ID != "e1" {
		t.Errorf("today events = %+v, want the seeded event", view.TodayEvents)
	}
	if _, err := f.months.GetByID(context.Background(), "6.2025"); err != nil {
		t.Error("viewing a month must register its partition")
	}
}

func TestMonthViewNavigationAcrossYears(t *testing.T) {
	f, svc := newCalendarFixture()
	quiesce(f, "1.2025", "12.2025", ChoresPartitionKey)

	view, err := svc.MonthView(context.Background(), 2025, 1)
	if err != nil {
		t.Fatalf("MonthView: %v", err)
	}
	if view.Navigation.PrevYear != 2024 || view.Navigation.PrevMonth != 12 {
		t.Errorf("navigation = %+v, want previous December 2024", view.Navigation)
	}

	view, err = svc.MonthView(context.Background(), 2025, 12)
	if err != nil {
		t.Fatalf("MonthView: %v", err)
	}
	if view.Navigation.NextYear != 2026 || view.Navigation.NextMonth != 1 {
		t.Errorf("navigation = %+v, want next January 2026", view.Navigation)
	}
}

func TestCheckUpdatesConsumesFlags(t *testing.T) {
	f, svc := newCalendarFixture()
	registry := f.service.Registry()

	registry.Complete("6.2025", Outcome{EventsChanged: true})
	registry.Complete(ChoresPartitionKey, Outcome{ChoresChanged: true})

	resp, err := svc.CheckUpdates(2025, 6)
	if err != nil {
		t.Fatalf("CheckUpdates: %v", err)
	}
	if !resp.UpdatesAvailable || !resp.EventsChanged || !resp.ChoresChanged {
		t.Errorf("first poll = %+v, want all change flags set", resp)
	}

	resp, err = svc.CheckUpdates(2025, 6)
	if err != nil {
		t.Fatalf("second CheckUpdates: %v", err)
	}
	if resp.UpdatesAvailable || resp.EventsChanged || resp.ChoresChanged {
		t.Errorf("second poll = %+v, flags must be consumed by the first", resp)
	}
}

func TestCheckUpdatesInvalidMonth(t *testing.T) {
	_, svc := newCalendarFixture()
	if _, err := svc.CheckUpdates(2025, 13); err != entities.ErrInvalidMonth {
		t.Errorf("error = %v, want ErrInvalidMonth", err)
	}
}

func TestDedupeEventsFirstWins(t *testing.T) {
	events := []*entities.EventView{
		{ID: "e1", Title: "First"},
		{ID: "e2", Title: "Other"},
		{ID: "e1", Title: "Duplicate"},
	}

	got := dedupeEvents(events)
	if len(got) != 2 {
		t.Fatalf("got %d events, want 2", len(got))
	}
	if got[0].Title != "First" {
		t.Errorf("title = %q, first occurrence should win", got[0].Title)
	}
}
