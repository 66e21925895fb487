package forecast

import (
	"strings"
	"time"
)

// Festival is a demand-moving event. Its window runs from Before days ahead
// of Anchor to After days past it, inclusive.
type Festival struct {
	Name   string
	Anchor time.Time
	Before int
	After  int
}

func (f Festival) contains(day time.Time) bool {
	return !day.Before(f.Anchor.AddDate(0, 0, -f.Before)) && !day.After(f.Anchor.AddDate(0, 0, f.After))
}

// Calendar is the festival list used for feature labelling.
type Calendar []Festival

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DefaultCalendar holds the 2025 Bangladeshi festival windows.
func DefaultCalendar() Calendar {
	return Calendar{
		{Name: "eid_fitr", Anchor: date(2025, time.March, 30), Before: 3, After: 3},
		{Name: "eid_adha", Anchor: date(2025, time.June, 7), Before: 4, After: 6},
		{Name: "durga_puja", Anchor: date(2025, time.October, 2), Before: 0, After: 4},
		{Name: "pohela_boishakh", Anchor: date(2025, time.April, 14), Before: 2, After: 2},
	}
}

// Label joins the names of every window containing day, or "none".
func (c Calendar) Label(day time.Time) string {
	day = truncate(day)
	var names []string
	for _, f := range c {
		if f.contains(day) {
			names = append(names, f.Name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ",")
}

// DaysToNext is the distance to the nearest anchor on or after day, -1 when
// every festival has passed.
func (c Calendar) DaysToNext(day time.Time) int {
	day = truncate(day)
	best := -1
	for _, f := range c {
		d := int(f.Anchor.Sub(day).Hours() / 24)
		if d >= 0 && (best < 0 || d < best) {
			best = d
		}
	}
	return best
}

// Features are the calendar columns shared by the training and prediction files.
type Features struct {
	DayOfWeek          int
	IsWeekend          int
	Month              int
	DayOfMonth         int
	Year               int
	Festival           string
	IsFestival         int
	DaysToNextFestival int
}

// Features derives the calendar columns for day. Monday is 0; Friday and
// Saturday are the weekend.
func (c Calendar) Features(day time.Time) Features {
	day = truncate(day)
	dow := (int(day.Weekday()) + 6) % 7
	label := c.Label(day)
	f := Features{
		DayOfWeek:          dow,
		Month:              int(day.Month()),
		DayOfMonth:         day.Day(),
		Year:               day.Year(),
		Festival:           label,
		DaysToNextFestival: c.DaysToNext(day),
	}
	if dow == 4 || dow == 5 {
		f.IsWeekend = 1
	}
	if label != "none" {
		f.IsFestival = 1
	}
	return f
}

func truncate(t time.Time) time.Time {
	return date(t.Year(), t.Month(), t.Day())
}
