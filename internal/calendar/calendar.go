// Package calendar decides which dates count as business days. All date math
// in the engine goes through here; every date is normalized to UTC midnight
// before comparison so schedule generation, payment allocation and
// delinquency math agree on which calendar day an instant belongs to.
package calendar

import (
	"time"

	"github.com/collectiva/loan-engine/internal/domain"
)

const dayKeyLayout = "2006-01-02"
const recurringKeyLayout = "01-02"

// Normalize truncates a time to UTC midnight.
func Normalize(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// RollBackWeekend maps Saturday and Sunday to the preceding Friday and leaves
// weekdays untouched. Used when "as of today" falls on a weekend.
func RollBackWeekend(t time.Time) time.Time {
	t = Normalize(t)
	switch t.Weekday() {
	case time.Saturday:
		return t.AddDate(0, 0, -1)
	case time.Sunday:
		return t.AddDate(0, 0, -2)
	}
	return t
}

// Calendar answers business-day queries against a fixed holiday set. Build
// one per operation from the holiday store; it is cheap and immutable.
type Calendar struct {
	exact     map[string]domain.Holiday
	recurring map[string]domain.Holiday
}

func New(holidays []domain.Holiday) *Calendar {
	c := &Calendar{
		exact:     make(map[string]domain.Holiday),
		recurring: make(map[string]domain.Holiday),
	}
	for _, h := range holidays {
		d := Normalize(h.Date)
		if h.Recurring {
			c.recurring[d.Format(recurringKeyLayout)] = h
		} else {
			c.exact[d.Format(dayKeyLayout)] = h
		}
	}
	return c
}

// HolidayOn returns the holiday covering the given date, if any. A recurring
// holiday matches by month and day regardless of year.
func (c *Calendar) HolidayOn(t time.Time) (domain.Holiday, bool) {
	d := Normalize(t)
	if h, ok := c.exact[d.Format(dayKeyLayout)]; ok {
		return h, true
	}
	if h, ok := c.recurring[d.Format(recurringKeyLayout)]; ok {
		return h, true
	}
	return domain.Holiday{}, false
}

// IsBusinessDay reports whether the date is a weekday and not a holiday.
func (c *Calendar) IsBusinessDay(t time.Time) bool {
	d := Normalize(t)
	if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	_, holiday := c.HolidayOn(d)
	return !holiday
}

// NextBusinessDay returns the smallest date strictly after t that is a
// business day.
func (c *Calendar) NextBusinessDay(t time.Time) time.Time {
	d := Normalize(t).AddDate(0, 0, 1)
	for !c.IsBusinessDay(d) {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// CountBusinessDays counts business days in the inclusive range [start, end].
// Returns 0 when end precedes start.
func (c *Calendar) CountBusinessDays(start, end time.Time) int {
	s, e := Normalize(start), Normalize(end)
	if e.Before(s) {
		return 0
	}
	count := 0
	for d := s; !d.After(e); d = d.AddDate(0, 0, 1) {
		if c.IsBusinessDay(d) {
			count++
		}
	}
	return count
}
