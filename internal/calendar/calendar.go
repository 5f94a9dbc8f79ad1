// Package calendar estimates upcoming US economic release dates from fixed
// rules of thumb. Dates are approximate; agencies occasionally shift them.
package calendar

import (
	"fmt"
	"sort"
	"time"
)

// Event is one expected release.
type Event struct {
	Date       time.Time `json:"-"`
	Day        string    `json:"date"`
	Name       string    `json:"name"`
	Series     string    `json:"series"`
	Importance string    `json:"importance"`
}

// DefaultFOMC lists the 2026 FOMC decision days.
var DefaultFOMC = []string{
	"2026-01-28", "2026-03-18", "2026-04-29", "2026-06-17",
	"2026-07-29", "2026-09-16", "2026-10-28", "2026-12-09",
}

// Calendar produces events for a window of days.
type Calendar struct {
	fomc []time.Time
}

// New creates a calendar with FOMC decision days in YYYY-MM-DD form.
func New(fomc []string) (*Calendar, error) {
	c := &Calendar{fomc: make([]time.Time, 0, len(fomc))}
	for _, s := range fomc {
		d, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return nil, fmt.Errorf("fomc date %q: %w", s, err)
		}
		c.fomc = append(c.fomc, d)
	}
	return c, nil
}

// LastFOMC returns the latest configured FOMC decision day.
func (c *Calendar) LastFOMC() (time.Time, bool) {
	var last time.Time
	for _, d := range c.fomc {
		if d.After(last) {
			last = d
		}
	}
	return last, !last.IsZero()
}

// Upcoming returns events on days in [from, from+days), sorted by date then name.
func (c *Calendar) Upcoming(from time.Time, days int) []Event {
	start := dayOf(from)
	end := start.AddDate(0, 0, days)

	var out []Event
	add := func(d time.Time, name, series, importance string) {
		if d.Before(start) || !d.Before(end) {
			return
		}
		out = append(out, Event{Date: d, Day: d.Format(time.DateOnly), Name: name, Series: series, Importance: importance})
	}

	for m := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC); m.Before(end); m = m.AddDate(0, 1, 0) {
		y, mon := m.Year(), m.Month()
		add(nthWeekday(y, mon, time.Friday, 1), "Employment Situation", "PAYEMS", "high")
		add(nextWeekday(time.Date(y, mon, 13, 0, 0, 0, 0, time.UTC)), "Consumer Price Index", "CPIAUCSL", "high")
		add(nextWeekday(time.Date(y, mon, 15, 0, 0, 0, 0, time.UTC)), "Retail Sales", "RSAFS", "medium")
		switch mon {
		case time.January, time.April, time.July, time.October:
			add(lastWeekday(y, mon, time.Thursday), "GDP (Advance Estimate)", "GDP", "high")
		}
	}
	for _, d := range c.fomc {
		add(d, "FOMC Rate Decision", "FEDFUNDS", "high")
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// nthWeekday returns the n-th (1-based) wd of the month.
func nthWeekday(y int, m time.Month, wd time.Weekday, n int) time.Time {
	d := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(wd) - int(d.Weekday()) + 7) % 7
	return d.AddDate(0, 0, offset+7*(n-1))
}

// lastWeekday returns the last wd of the month.
func lastWeekday(y int, m time.Month, wd time.Weekday) time.Time {
	d := time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC)
	offset := (int(d.Weekday()) - int(wd) + 7) % 7
	return d.AddDate(0, 0, -offset)
}

// nextWeekday moves weekend days forward to Monday.
func nextWeekday(d time.Time) time.Time {
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDate(0, 0, 2)
	case time.Sunday:
		return d.AddDate(0, 0, 1)
	}
	return d
}
