package remote

import (
	"time"
)

// eventTime is the remote API's date-or-datetime shape: all-day records
// carry only Date ("YYYY-MM-DD"), timed records carry DateTime (RFC3339).
type eventTime struct {
	Date     string `json:"date,omitempty"`
	DateTime string `json:"dateTime,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

// parseEventTime normalizes a remote timestamp. All-day dates become UTC
// midnight. Offset-naive datetime strings are treated as UTC. A malformed
// value yields the zero time rather than an error: one bad record must
// never sink the whole batch. The second return reports all-day semantics.
func parseEventTime(et eventTime) (time.Time, bool) {
	if et.DateTime == "" {
		t, err := time.Parse("2006-01-02", et.Date)
		if err != nil {
			return time.Time{}, true
		}
		return t.UTC(), true
	}

	if t, err := time.Parse(time.RFC3339, et.DateTime); err == nil {
		return t, false
	}

	// Offset-naive fallback: assume UTC.
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", et.DateTime, time.UTC); err == nil {
		return t, false
	}

	return time.Time{}, false
}

// monthWindow returns the inclusive fetch range for a month: first day
// 00:00:00 through last day 23:59:59, both UTC.
func monthWindow(year, month int) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).Add(-time.Second)
	return start, end
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
