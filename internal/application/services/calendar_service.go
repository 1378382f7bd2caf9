package services

import (
	"context"
	"sort"
	"time"

	"github.com/hearthboard/core/internal/domain/entities"
	"github.com/hearthboard/core/internal/infrastructure/logger"
	"github.com/hearthboard/core/internal/ports"
)

// CalendarService renders month views for the display client and answers
// its update polls. Serving a view also opportunistically triggers
// background syncs, so a display that only ever reads stays fresh.
type CalendarService struct {
	monthRepo ports.MonthRepository
	eventRepo ports.EventRepository
	choreRepo ports.ChoreRepository
	sync      *SyncService
	logger    *logger.Logger
	now       func() time.Time
}

// NewCalendarService creates a calendar service.
func NewCalendarService(
	monthRepo ports.MonthRepository,
	eventRepo ports.EventRepository,
	choreRepo ports.ChoreRepository,
	sync *SyncService,
	appLogger *logger.Logger,
) *CalendarService {
	return &CalendarService{
		monthRepo: monthRepo,
		eventRepo: eventRepo,
		choreRepo: choreRepo,
		sync:      sync,
		logger:    appLogger.WithComponent("calendar"),
		now:       time.Now,
	}
}

// MonthView builds the full month payload: the Sunday-first week grid with
// per-day events, today's events, visible chores, and navigation. It also
// registers the month partition and kicks off background syncs when stale.
func (s *CalendarService) MonthView(ctx context.Context, year, month int) (*ports.MonthViewResponse, error) {
	m, err := entities.NewMonth(year, month)
	if err != nil {
		return nil, err
	}
	if err := s.monthRepo.Add(ctx, m); err != nil {
		return nil, err
	}

	s.sync.StartMonthSync(year, month)
	s.sync.StartChoresSync()

	events, err := s.eventRepo.ListOverlappingMonth(ctx, year, month)
	if err != nil {
		return nil, err
	}
	events = dedupeEvents(events)

	today := s.now().UTC()
	weeks := buildWeeks(year, month, today, events)
	todayEvents := eventsForDay(events, today)

	chores, err := s.choreRepo.List(ctx, false)
	if err != nil {
		return nil, err
	}

	prevYear, prevMonth := entities.PreviousMonth(year, month)
	nextYear, nextMonth := entities.NextMonth(year, month)

	return &ports.MonthViewResponse{
		Year:        year,
		Month:       month,
		MonthName:   time.Month(month).String(),
		Weeks:       weeks,
		TodayEvents: todayEvents,
		Chores:      chores,
		Navigation: ports.MonthNavigation{
			PrevYear:  prevYear,
			PrevMonth: prevMonth,
			NextYear:  nextYear,
			NextMonth: nextMonth,
		},
	}, nil
}

// CheckUpdates reports background sync state for the month and chores
// partitions. Reading consumes the changed flags; a stale calendar
// partition is re-triggered in the background.
func (s *CalendarService) CheckUpdates(year, month int) (*ports.CheckUpdatesResponse, error) {
	if month < 1 || month > 12 {
		return nil, entities.ErrInvalidMonth
	}

	key := entities.MonthID(year, month)
	registry := s.sync.Registry()

	calReport := registry.ConsumeChanges(key)
	choresReport := registry.ConsumeChanges(ChoresPartitionKey)

	triggered := false
	if calReport.RefreshNeeded {
		triggered = s.sync.StartMonthSync(year, month)
		if triggered {
			s.logger.Infow("Triggered background refresh", "partition", key)
		}
	}

	return &ports.CheckUpdatesResponse{
		CalendarStatus:   calReport.Status,
		ChoresStatus:     choresReport.Status,
		UpdatesAvailable: calReport.EventsChanged || choresReport.ChoresChanged,
		EventsChanged:    calReport.EventsChanged,
		ChoresChanged:    choresReport.ChoresChanged,
		RefreshTriggered: triggered,
	}, nil
}

// RefreshMonth force-starts a month sync for the manual refresh endpoint.
// Returns false when a sync is already running.
func (s *CalendarService) RefreshMonth(year, month int) (bool, error) {
	if month < 1 || month > 12 {
		return false, entities.ErrInvalidMonth
	}
	return s.sync.ForceMonthSync(year, month), nil
}

func dedupeEvents(events []*entities.EventView) []*entities.EventView {
	seen := make(map[string]struct{}, len(events))
	out := events[:0]
	for _, ev := range events {
		if _, ok := seen[ev.ID]; ok {
			continue
		}
		seen[ev.ID] = struct{}{}
		out = append(out, ev)
	}
	return out
}

// buildWeeks lays the month out as Sunday-first weeks. Padding cells carry
// a zero day number and no events.
func buildWeeks(year, month int, today time.Time, events []*entities.EventView) [][]ports.DayCell {
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	daysInMonth := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
	offset := int(first.Weekday())

	isToday := func(day int) bool {
		return today.Year() == year && int(today.Month()) == month && today.Day() == day
	}

	var weeks [][]ports.DayCell
	week := make([]ports.DayCell, 0, 7)
	for i := 0; i < offset; i++ {
		week = append(week, ports.DayCell{Events: []*entities.EventView{}})
	}

	for day := 1; day <= daysInMonth; day++ {
		date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		week = append(week, ports.DayCell{
			DayNumber:      day,
			IsCurrentMonth: true,
			IsToday:        isToday(day),
			Events:         eventsForDay(events, date),
		})
		if len(week) == 7 {
			weeks = append(weeks, week)
			week = make([]ports.DayCell, 0, 7)
		}
	}

	if len(week) > 0 {
		for len(week) < 7 {
			week = append(week, ports.DayCell{Events: []*entities.EventView{}})
		}
		weeks = append(weeks, week)
	}

	return weeks
}

// eventsForDay filters events relevant to the given day, all-day events
// first, then by start time.
func eventsForDay(events []*entities.EventView, day time.Time) []*entities.EventView {
	out := make([]*entities.EventView, 0)
	for _, ev := range events {
		if ev.RelevantOn(day) {
			out = append(out, ev)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AllDay != out[j].AllDay {
			return out[i].AllDay
		}
		return out[i].Start.Before(out[j].Start)
	})
	return out
}
