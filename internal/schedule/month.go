// Package schedule holds the pure shift-planning rules: the per-day planner, the month loop, the constraint
// checker and the workload aggregator. Nothing here touches storage; callers pass immutable snapshots in.
package schedule

import (
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

// ErrInvalidMonth is returned for a month that is not in YYYY-MM form.
var ErrInvalidMonth = errors.New("invalid month")

// YearMonth identifies a planning period.
type YearMonth struct {
	Year  int
	Month time.Month
}

// ParseYearMonth parses "YYYY-MM".
func ParseYearMonth(s string) (YearMonth, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return YearMonth{}, fmt.Errorf("%w %q: want YYYY-MM", ErrInvalidMonth, s)
	}
	return YearMonth{Year: t.Year(), Month: t.Month()}, nil
}

func (m YearMonth) String() string { return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month)) }

func (m YearMonth) First() civil.Date { return civil.Date{Year: m.Year, Month: m.Month, Day: 1} }

func (m YearMonth) Last() civil.Date {
	return civil.DateOf(time.Date(m.Year, m.Month+1, 0, 0, 0, 0, 0, time.UTC))
}

// Days returns every date of the month in ascending order.
func (m YearMonth) Days() []civil.Date {
	last := m.Last()
	days := make([]civil.Date, 0, last.Day)
	for d := m.First(); !d.After(last); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}

func (m YearMonth) Contains(d civil.Date) bool { return d.Year == m.Year && d.Month == m.Month }

// Weekday of a calendar date.
func Weekday(d civil.Date) time.Weekday { return d.In(time.UTC).Weekday() }
