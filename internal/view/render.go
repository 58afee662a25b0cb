// Package view renders the month grid, week grid, upcoming panel and the
// event detail page as server-side HTML. It only reads the occurrence
// index; navigation is carried in the query string.
package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"time"

	"rokcal/internal/index"
	"rokcal/internal/model"
	"rokcal/internal/nav"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer paints calendar pages with an explicit locale and zone.
type Renderer struct {
	locale        Locale
	loc           *time.Location
	weekStart     time.Weekday
	upcomingLimit int
	tmpl          *template.Template
}

func NewRenderer(locale Locale, loc *time.Location, weekStart time.Weekday, upcomingLimit int) (*Renderer, error) {
	if loc == nil {
		loc = time.Local
	}
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("view: parsing templates: %w", err)
	}
	return &Renderer{
		locale:        locale,
		loc:           loc,
		weekStart:     weekStart,
		upcomingLimit: upcomingLimit,
		tmpl:          tmpl,
	}, nil
}

type item struct {
	ID            string
	Title         string
	Color         string
	TypeLabel     string
	PriorityLabel string
	PriorityColor string
	IsStart       bool
	IsDuring      bool
	When          string
}

type dayCell struct {
	Label     string
	Weekday   string
	Outside   bool
	IsToday   bool
	IsWeekend bool
	Items     []item
}

type statRow struct {
	Label string
	Count int
}

type calendarPage struct {
	L         Locale
	Month     bool
	View      string
	Title     string
	Subtitle  string
	Anchor    string
	IsCurrent bool
	Headers   []string
	Weeks     [][]dayCell
	InMonth   []item
	Upcoming  []item
	Total     int
	Days      int
	ByType    []statRow
}

// Calendar renders the page for view v. now decides "today" highlighting
// and the upcoming panel.
func (r *Renderer) Calendar(w io.Writer, idx *index.Index, v nav.View, now time.Time) error {
	now = now.In(r.loc)
	v.Anchor = v.Anchor.In(r.loc)
	today := model.DayKey(now)

	start, end := v.Range(r.weekStart)
	page := calendarPage{
		L:         r.locale,
		Month:     v.Granularity == nav.Month,
		View:      string(v.Granularity),
		Anchor:    model.DayKey(v.Anchor),
		IsCurrent: v.IsCurrent(now, r.weekStart),
	}
	if page.Month {
		page.Title = start.Format(r.locale.MonthFormat)
	} else {
		page.Title = start.Format(r.locale.DayMonth) + " → " + end.AddDate(0, 0, -1).Format(r.locale.DayMonth)
	}
	page.Subtitle = start.Format(r.locale.DateFormat) + " - " + end.AddDate(0, 0, -1).Format(r.locale.DateFormat)

	days := v.Days(r.weekStart)
	for i := 0; i < 7 && i < len(days); i++ {
		page.Headers = append(page.Headers, r.locale.WeekdayShort(days[i]))
	}

	var week []dayCell
	for _, d := range days {
		cell := dayCell{
			Label:     d.Format(r.locale.DayMonth),
			Weekday:   r.locale.WeekdayShort(d),
			Outside:   d.Before(start) || !d.Before(end),
			IsToday:   model.DayKey(d) == today,
			IsWeekend: d.Weekday() == time.Saturday || d.Weekday() == time.Sunday,
		}
		if !cell.Outside {
			for _, o := range idx.OnDay(d) {
				it, err := r.item(o)
				if err != nil {
					return err
				}
				cell.Items = append(cell.Items, it)
			}
		}
		week = append(week, cell)
		if len(week) == 7 {
			page.Weeks = append(page.Weeks, week)
			week = nil
		}
	}

	if page.Month {
		for _, o := range idx.InMonth(start.Year(), start.Month()) {
			it, err := r.item(o)
			if err != nil {
				return err
			}
			page.InMonth = append(page.InMonth, it)
		}
		stats := idx.MonthStats(start.Year(), start.Month())
		page.Total, page.Days = stats.Total, stats.Days
		for _, t := range model.EventTypes {
			if n := stats.ByType[t]; n > 0 {
				label, err := r.locale.EventTypeLabel(t)
				if err != nil {
					return err
				}
				page.ByType = append(page.ByType, statRow{Label: label, Count: n})
			}
		}
	}

	for _, o := range idx.Upcoming(now, r.upcomingLimit) {
		it, err := r.item(o)
		if err != nil {
			return err
		}
		page.Upcoming = append(page.Upcoming, it)
	}

	return r.tmpl.ExecuteTemplate(w, "calendar.html", page)
}

type detailPage struct {
	L             Locale
	T             *model.Template
	Color         string
	TypeLabel     string
	PriorityLabel string
	PriorityColor string
	Schedule      []string
	MinPower      string
}

// Detail renders one template's detail panel.
func (r *Renderer) Detail(w io.Writer, tpl *model.Template) error {
	color, err := tpl.DisplayColor()
	if err != nil {
		return err
	}
	typeLabel, err := r.locale.EventTypeLabel(tpl.EventType)
	if err != nil {
		return err
	}
	prioLabel, err := r.locale.PriorityLabel(tpl.Priority)
	if err != nil {
		return err
	}
	prioColor, err := tpl.Priority.Color()
	if err != nil {
		return err
	}

	page := detailPage{
		L:             r.locale,
		T:             tpl,
		Color:         color,
		TypeLabel:     typeLabel,
		PriorityLabel: prioLabel,
		PriorityColor: prioColor,
	}
	if tpl.MinPower > 0 {
		page.MinPower = strconv.FormatInt(tpl.MinPower, 10)
	}
	if len(tpl.Patterns) > 0 {
		for _, p := range tpl.Patterns {
			page.Schedule = append(page.Schedule, fmt.Sprintf("%s · %s · %d",
				p.StartDate.In(r.loc).Format(r.locale.DateFormat), p.Frequency, p.DurationDays))
		}
	} else if !tpl.StartTime.IsZero() {
		layout := r.locale.DateFormat + " " + r.locale.TimeFormat
		s := tpl.StartTime.In(r.loc).Format(layout)
		if !tpl.EndTime.IsZero() {
			s += " → " + tpl.EndTime.In(r.loc).Format(layout)
		}
		if tpl.RepeatPattern != model.RepeatNone {
			s += " · " + string(tpl.RepeatPattern)
		}
		page.Schedule = append(page.Schedule, s)
	}
	return r.tmpl.ExecuteTemplate(w, "detail.html", page)
}

func (r *Renderer) item(o model.Occurrence) (item, error) {
	tpl := o.Template
	color, err := tpl.DisplayColor()
	if err != nil {
		return item{}, err
	}
	typeLabel, err := r.locale.EventTypeLabel(tpl.EventType)
	if err != nil {
		return item{}, err
	}
	prioLabel, err := r.locale.PriorityLabel(tpl.Priority)
	if err != nil {
		return item{}, err
	}
	prioColor, err := tpl.Priority.Color()
	if err != nil {
		return item{}, err
	}

	when := o.Date.In(r.loc).Format(r.locale.DateFormat)
	if o.Pattern < 0 {
		when += " " + o.Date.In(r.loc).Format(r.locale.TimeFormat)
		if !o.End.IsZero() {
			when += " - " + o.End.In(r.loc).Format(r.locale.TimeFormat)
		}
	}
	return item{
		ID:            tpl.ID,
		Title:         tpl.Title,
		Color:         color,
		TypeLabel:     typeLabel,
		PriorityLabel: prioLabel,
		PriorityColor: prioColor,
		IsStart:       o.IsStart,
		IsDuring:      o.IsDuring,
		When:          when,
	}, nil
}
