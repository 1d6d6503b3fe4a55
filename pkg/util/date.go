package util

import "time"

// DateLayout is the calendar-date layout used by snapshots and upstream ranges.
const DateLayout = "2006-01-02"

// DateFromMillis renders an epoch-millisecond timestamp as a UTC calendar date.
func DateFromMillis(ms int64) string {
    return time.UnixMilli(ms).UTC().Format(DateLayout)
}

// FormatDate renders t as a UTC calendar date.
func FormatDate(t time.Time) string {
    return t.UTC().Format(DateLayout)
}

// Lookback returns the [from, to] date range ending at `to` and spanning
// `days` calendar days.
func Lookback(to time.Time, days int) (string, string) {
    to = to.UTC()
    return FormatDate(to.AddDate(0, 0, -days)), FormatDate(to)
}
