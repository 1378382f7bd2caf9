package ports

import (
	"github.com/hearthboard/core/internal/domain/entities"
)

// DayCell is one day slot in the month grid. Cells padding the first and
// last week carry a zero day number and no events.
type DayCell struct {
	DayNumber      int                   `json:"day_number"`
	IsCurrentMonth bool                  `json:"is_current_month"`
	IsToday        bool                  `json:"is_today"`
	Events         []*entities.EventView `json:"events"`
}

// MonthNavigation carries the adjacent months for client paging.
type MonthNavigation struct {
	PrevYear  int `json:"prev_year"`
	PrevMonth int `json:"prev_month"`
	NextYear  int `json:"next_year"`
	NextMonth int `json:"next_month"`
}

// MonthViewResponse is the rendered month payload for the display client.
type MonthViewResponse struct {
	Year        int                   `json:"year"`
	Month       int                   `json:"month"`
	MonthName   string                `json:"month_name"`
	Weeks       [][]DayCell           `json:"weeks"`
	TodayEvents []*entities.EventView `json:"today_events"`
	Chores      []*entities.Chore     `json:"chores"`
	Navigation  MonthNavigation       `json:"navigation"`
}

// CheckUpdatesResponse reports background sync state to pollers. The
// changed flags are read-and-clear: a second poll will not re-report the
// same change.
type CheckUpdatesResponse struct {
	CalendarStatus   entities.SyncStatus `json:"calendar_status"`
	ChoresStatus     entities.SyncStatus `json:"chores_status"`
	UpdatesAvailable bool                `json:"updates_available"`
	EventsChanged    bool                `json:"events_changed"`
	ChoresChanged    bool                `json:"chores_changed"`
	RefreshTriggered bool                `json:"refresh_triggered"`
}

// AddChoreRequest creates a chore. As on the remote task API, the title
// field names the person assigned and the notes describe the chore.
type AddChoreRequest struct {
	Title string `json:"title" validate:"required"`
	Notes string `json:"notes" validate:"required"`
}

// UpdateChoreStatusRequest changes a chore's status. The invisible status
// is local-only and is never pushed to the remote source.
type UpdateChoreStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=needsAction completed invisible"`
}

// AddChoreResponse reports the outcome of a chore creation, including
// whether the chore was synced to the remote list and its final id (the
// remote id when sync succeeded, a local surrogate otherwise).
type AddChoreResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ID      string `json:"id"`
}
