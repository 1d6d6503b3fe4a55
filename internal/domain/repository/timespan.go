package repository

// Timespan is the aggregation unit of a bar range.
type Timespan string

const (
	TimespanMinute  Timespan = "minute"
	TimespanHour    Timespan = "hour"
	TimespanDay     Timespan = "day"
	TimespanWeek    Timespan = "week"
	TimespanMonth   Timespan = "month"
	TimespanQuarter Timespan = "quarter"
	TimespanYear    Timespan = "year"
)

// IsValidTimespan returns true if ts is a supported timespan.
func IsValidTimespan(ts Timespan) bool {
	switch ts {
	case TimespanMinute, TimespanHour, TimespanDay, TimespanWeek, TimespanMonth, TimespanQuarter, TimespanYear:
		return true
	default:
		return false
	}
}

// DefaultTimespan returns the default timespan.
func DefaultTimespan() Timespan { return TimespanDay }

// NormalizeTimespan converts a raw string to a valid timespan (or default).
func NormalizeTimespan(s string) Timespan {
	if s == "" {
		return DefaultTimespan()
	}
	ts := Timespan(s)
	if IsValidTimespan(ts) {
		return ts
	}
	return DefaultTimespan()
}
