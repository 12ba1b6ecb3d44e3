package util

import (
	"strconv"
	"time"
)

// DateLayout is the calendar date format used in logs, keys and chart labels.
const DateLayout = "2006-01-02"

// TruncateToDate drops the time of day, returning midnight UTC of t's UTC calendar date.
func TruncateToDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DateFromMillis converts a unix epoch in milliseconds to its UTC calendar date.
func DateFromMillis(ms int64) time.Time {
	return TruncateToDate(time.UnixMilli(ms))
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// ParseDate parses YYYY-MM-DD, RFC3339 or unix seconds into a calendar date.
func ParseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return TruncateToDate(t), true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return TruncateToDate(time.Unix(ts, 0)), true
	}
	return time.Time{}, false
}
