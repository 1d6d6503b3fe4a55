package scheduler

import (
	"time"

	"github.com/scmhub/calendar"
)

// TradingCalendar decides whether scheduled ingestion runs on a given day.
type TradingCalendar struct {
	cal *calendar.Calendar
	loc *time.Location
}

// NewTradingCalendar loads the exchange calendar for mic, falling back to
// NYSE and then to a plain Monday to Friday week.
func NewTradingCalendar(mic string) *TradingCalendar {
	cal := calendar.GetCalendar(mic)
	if cal == nil {
		cal = calendar.GetCalendar("xnys")
	}
	if cal == nil {
		loc, err := time.LoadLocation("America/New_York")
		if err != nil {
			loc = time.UTC
		}
		return &TradingCalendar{loc: loc}
	}
	return &TradingCalendar{cal: cal, loc: cal.Loc}
}

// IsTradingDay reports whether t falls on an exchange business day.
func (tc *TradingCalendar) IsTradingDay(t time.Time) bool {
	if tc.loc != nil {
		t = t.In(tc.loc)
	}
	if tc.cal == nil {
		wd := t.Weekday()
		return wd != time.Saturday && wd != time.Sunday
	}
	return tc.cal.IsBusinessDay(t)
}
