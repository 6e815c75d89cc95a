package period

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Layout is the calendar-day format used across filters and storage.
const Layout = "2006-01-02"

// Range is an inclusive span of calendar days.
type Range struct {
	Start time.Time
	End   time.Time
}

// New normalises both endpoints to calendar days and validates ordering.
func New(start, end time.Time) (Range, error) {
	r := Range{Start: Day(start), End: Day(end)}
	if r.End.Before(r.Start) {
		return Range{}, fmt.Errorf("range end %s before start %s", r.End.Format(Layout), r.Start.Format(Layout))
	}
	return r, nil
}

// Parse builds a Range from two ISO dates.
func Parse(start, end string) (Range, error) {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	if start == "" || end == "" {
		return Range{}, errors.New("start and end dates are required")
	}
	s, err := time.Parse(Layout, start)
	if err != nil {
		return Range{}, fmt.Errorf("parse start date: %w", err)
	}
	e, err := time.Parse(Layout, end)
	if err != nil {
		return Range{}, fmt.Errorf("parse end date: %w", err)
	}
	return New(s, e)
}

// Trailing returns the range of n days ending on the day of now.
func Trailing(now time.Time, days int) Range {
	if days < 1 {
		days = 1
	}
	end := Day(now)
	return Range{Start: end.AddDate(0, 0, -(days - 1)), End: end}
}

// Days returns the number of calendar days covered, endpoints included.
func (r Range) Days() int {
	return DaysBetween(r.Start, r.End) + 1
}

// Previous returns the equal-length window ending the day before Start.
func (r Range) Previous() Range {
	end := r.Start.AddDate(0, 0, -1)
	return Range{Start: end.AddDate(0, 0, -(r.Days() - 1)), End: end}
}

// YearAgo shifts both endpoints back one calendar year.
func (r Range) YearAgo() Range {
	return Range{Start: r.Start.AddDate(-1, 0, 0), End: r.End.AddDate(-1, 0, 0)}
}

// Comparison selects the comparison window for the requested mode.
func (r Range) Comparison(yearOverYear bool) Range {
	if yearOverYear {
		return r.YearAgo()
	}
	return r.Previous()
}

// Contains reports whether the calendar day of t falls inside the range.
func (r Range) Contains(t time.Time) bool {
	d := Day(t)
	return !d.Before(r.Start) && !d.After(r.End)
}

// IsZero reports whether the range was never set.
func (r Range) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

func (r Range) String() string {
	return r.Start.Format(Layout) + ".." + r.End.Format(Layout)
}

// Day truncates t to its calendar day, expressed at UTC midnight.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween counts calendar days from one date to another; negative when to precedes from.
func DaysBetween(from, to time.Time) int {
	return int(Day(to).Sub(Day(from)).Hours() / 24)
}
