package entities

import (
	"errors"
	"fmt"
	"time"
)

// Common errors
var (
	ErrCalendarNotFound = errors.New("calendar not found")
	ErrMonthNotFound    = errors.New("month not found")
	ErrEventNotFound    = errors.New("event not found")
	ErrChoreNotFound    = errors.New("chore not found")
	ErrInvalidMonth     = errors.New("month must be between 1 and 12")
	ErrInvalidStatus    = errors.New("invalid chore status")
)

// ChoreStatus is the lifecycle state of a chore. The remote task API only
// ever reports needsAction or completed; invisible is a local-only
// suppression flag that permanently shields the chore from remote overwrites.
type ChoreStatus string

const (
	ChoreStatusNeedsAction ChoreStatus = "needsAction"
	ChoreStatusCompleted   ChoreStatus = "completed"
	ChoreStatusInvisible   ChoreStatus = "invisible"
)

func (cs ChoreStatus) IsValid() bool {
	switch cs {
	case ChoreStatusNeedsAction, ChoreStatusCompleted, ChoreStatusInvisible:
		return true
	default:
		return false
	}
}

// SyncStatus is the state of a background sync partition in the registry.
type SyncStatus string

const (
	SyncStatusNotTracked     SyncStatus = "not_tracked"
	SyncStatusRunning        SyncStatus = "running"
	SyncStatusComplete       SyncStatus = "complete"
	SyncStatusError          SyncStatus = "error"
	SyncStatusPendingRefresh SyncStatus = "pending_refresh"
)

// Calendar represents a remote source calendar. The id is remote-assigned
// and stable; the color is assigned locally on first sight and preserved
// afterwards. DisplayName is the configured alias when one exists, else Name.
type Calendar struct {
	CalendarID  string `json:"calendar_id" db:"calendar_id"`
	Name        string `json:"name" db:"name"`
	DisplayName string `json:"display_name" db:"display_name"`
	Color       string `json:"color" db:"color"`
}

// Month is the partition unit for event storage and reconciliation.
// Its id is a deterministic function of (year, month): "<month>.<year>",
// no zero-padding. External tooling depends on that exact format.
type Month struct {
	ID    string `json:"id" db:"id"`
	Year  int    `json:"year" db:"year"`
	Month int    `json:"month" db:"month"`
}

// NewMonth builds a Month with its derived partition id.
func NewMonth(year, month int) (*Month, error) {
	if month < 1 || month > 12 {
		return nil, ErrInvalidMonth
	}
	return &Month{
		ID:    MonthID(year, month),
		Year:  year,
		Month: month,
	}, nil
}

// MonthID derives the partition key for a (year, month) pair.
func MonthID(year, month int) string {
	return fmt.Sprintf("%d.%d", month, year)
}

// Event represents a calendar event persisted under a month partition.
// Identity is the remote event id; re-syncing the same id is idempotent.
type Event struct {
	ID          string    `json:"id" db:"id"`
	CalendarID  string    `json:"calendar_id" db:"calendar_id"`
	MonthID     string    `json:"month_id" db:"month_id"`
	Title       string    `json:"title" db:"title"`
	Start       time.Time `json:"start" db:"start_at"`
	End         time.Time `json:"end" db:"end_at"`
	AllDay      bool      `json:"all_day" db:"all_day"`
	Location    *string   `json:"location" db:"location"`
	Description *string   `json:"description" db:"description"`
}

// EventView is an event joined with its calendar's presentation fields,
// as returned by the month range query.
type EventView struct {
	ID            string    `json:"id" db:"id"`
	Title         string    `json:"title" db:"title"`
	Start         time.Time `json:"start" db:"start_at"`
	End           time.Time `json:"end" db:"end_at"`
	AllDay        bool      `json:"all_day" db:"all_day"`
	Location      *string   `json:"location" db:"location"`
	Description   *string   `json:"description" db:"description"`
	CalendarName  string    `json:"calendar_name" db:"calendar_name"`
	CalendarColor string    `json:"calendar_color" db:"calendar_color"`
}

// Chore represents a household task. AssignedTo carries the remote task's
// title field (the person responsible); Description its notes.
type Chore struct {
	ID          string      `json:"id" db:"id"`
	AssignedTo  string      `json:"assigned_to" db:"assigned_to"`
	Description string      `json:"description" db:"description"`
	Status      ChoreStatus `json:"status" db:"status"`
	Due         *string     `json:"due" db:"due"`
}

// ComparisonKey returns the normalized tuple used to decide whether a
// remote chore differs from the stored one. Due dates are deliberately
// excluded, matching the remote-diff contract.
func (c *Chore) ComparisonKey() [4]string {
	return [4]string{c.ID, c.AssignedTo, c.Description, string(c.Status)}
}

// IsMidnight reports whether t is exactly 00:00:00 in its own location.
func IsMidnight(t time.Time) bool {
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// RelevantOn reports whether the event belongs on the given calendar day.
// Single-day events match only their own date. Multi-day events match every
// day in [start date, end date] inclusive, except that an event ending at
// exactly midnight is excluded from its end date: the remote source models
// all-day spans with an exclusive end, and we honor that without mutating
// the stored timestamps.
func (e *EventView) RelevantOn(day time.Time) bool {
	start := dateOnly(e.Start)
	end := dateOnly(e.End)
	target := dateOnly(day)

	if start.Equal(end) {
		return target.Equal(start)
	}

	if target.Before(start) || target.After(end) {
		return false
	}
	if target.Equal(end) && IsMidnight(e.End) {
		return false
	}
	return true
}

// PreviousMonth returns the (year, month) pair before the given one.
func PreviousMonth(year, month int) (int, int) {
	if month == 1 {
		return year - 1, 12
	}
	return year, month - 1
}

// NextMonth returns the (year, month) pair after the given one.
func NextMonth(year, month int) (int, int) {
	if month == 12 {
		return year + 1, 1
	}
	return year, month + 1
}
