// Package nav holds the calendar's view state. Every transition returns a
// new View; none of them touch the occurrence index.
package nav

import (
	"fmt"
	"time"

	"rokcal/internal/model"
)

type Granularity string

const (
	Month Granularity = "month"
	Week  Granularity = "week"
)

func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(s) {
	case Month, Week:
		return Granularity(s), nil
	case "":
		return Month, nil
	default:
		return "", fmt.Errorf("nav: unknown granularity %q", s)
	}
}

// View is the anchor date plus the unit the calendar pages by.
type View struct {
	Anchor      time.Time
	Granularity Granularity
}

// Initial is the month view anchored on now.
func Initial(now time.Time) View {
	return View{Anchor: now, Granularity: Month}
}

func (v View) Previous() View {
	v.Anchor = v.step(-1)
	return v
}

func (v View) Next() View {
	v.Anchor = v.step(1)
	return v
}

func (v View) Today(now time.Time) View {
	v.Anchor = now
	return v
}

func (v View) SetGranularity(g Granularity) View {
	v.Granularity = g
	return v
}

func (v View) JumpTo(date time.Time) View {
	v.Anchor = date
	return v
}

func (v View) step(n int) time.Time {
	if v.Granularity == Week {
		return v.Anchor.AddDate(0, 0, 7*n)
	}
	return model.RepeatMonthly.Shift(v.Anchor, n)
}

// Apply runs a named transition ("prev", "next", "today"). Unknown or
// empty actions leave the view unchanged.
func (v View) Apply(action string, now time.Time) View {
	switch action {
	case "prev", "previous":
		return v.Previous()
	case "next":
		return v.Next()
	case "today":
		return v.Today(now)
	default:
		return v
	}
}

// IsCurrent reports whether the view already shows now.
func (v View) IsCurrent(now time.Time, weekStart time.Weekday) bool {
	start, end := v.Range(weekStart)
	return !now.Before(start) && now.Before(end)
}

// Range returns the half-open [start, end) window the view covers: the
// anchor's calendar month, or the week containing the anchor.
func (v View) Range(weekStart time.Weekday) (time.Time, time.Time) {
	day := model.StartOfDay(v.Anchor)
	if v.Granularity == Week {
		start := model.StartOfWeek(day, weekStart)
		return start, start.AddDate(0, 0, 7)
	}
	start := model.StartOfMonth(day)
	return start, start.AddDate(0, 1, 0)
}

// Days returns the cells of the view's grid. Week views have 7 days; month
// views are padded to whole weeks starting on weekStart.
func (v View) Days(weekStart time.Weekday) []time.Time {
	start, end := v.Range(weekStart)
	if v.Granularity == Month {
		start = model.StartOfWeek(start, weekStart)
		last := end.AddDate(0, 0, -1)
		end = model.StartOfWeek(last, weekStart).AddDate(0, 0, 7)
	}
	var days []time.Time
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}
