// Package ics publishes expanded occurrences as an iCalendar feed so the
// event schedule can be subscribed to from any calendar client.
package ics

import (
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"rokcal/internal/model"
)

const defaultProdID = "-//rokcal//event calendar//EN"

// ExportOptions controls feed generation.
type ExportOptions struct {
	ProdID string
	// Name is shown by clients as the calendar title.
	Name string
	// Stamp is written as DTSTAMP on every event. Passing a fixed value
	// keeps the output reproducible.
	Stamp time.Time
}

// Export writes one VEVENT per run (start occurrences only). Pattern runs
// become all-day events spanning their duration; single-run occurrences
// keep their exact start and end.
func Export(occs []model.Occurrence, opts ExportOptions) string {
	if opts.ProdID == "" {
		opts.ProdID = defaultProdID
	}
	if opts.Stamp.IsZero() {
		opts.Stamp = time.Now()
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(opts.ProdID)
	if opts.Name != "" {
		cal.SetName(opts.Name)
		cal.SetXWRCalName(opts.Name)
	}

	for _, o := range occs {
		if !o.IsStart || o.Template == nil {
			continue
		}
		tpl := o.Template
		ev := cal.AddEvent(UID(o))
		ev.SetDtStampTime(opts.Stamp.UTC())
		ev.SetSummary(tpl.Title)
		if desc := describe(tpl); desc != "" {
			ev.SetDescription(desc)
		}
		ev.AddProperty(ical.ComponentPropertyCategories, string(tpl.EventType))
		if color, err := tpl.DisplayColor(); err == nil {
			ev.SetProperty(ical.ComponentProperty("COLOR"), color)
		}

		if o.Pattern >= 0 && o.Pattern < len(tpl.Patterns) {
			days := tpl.Patterns[o.Pattern].DurationDays
			if days < 1 {
				days = 1
			}
			ev.SetAllDayStartAt(o.Date)
			ev.SetAllDayEndAt(o.Date.AddDate(0, 0, days))
			continue
		}

		end := o.End
		if end.IsZero() {
			end = o.Date
		}
		ev.SetStartAt(o.Date)
		ev.SetEndAt(end)
	}
	return cal.Serialize()
}

// UID is the stable identifier of the run an occurrence belongs to.
func UID(o model.Occurrence) string {
	if o.Pattern >= 0 {
		return fmt.Sprintf("%s-p%d-r%d@rokcal", o.Template.ID, o.Pattern, o.Run)
	}
	return fmt.Sprintf("%s-r%d@rokcal", o.Template.ID, o.Run)
}

func describe(tpl *model.Template) string {
	var lines []string
	if tpl.Description != "" {
		lines = append(lines, tpl.Description)
	}
	if len(tpl.Rewards) > 0 {
		lines = append(lines, "Rewards: "+strings.Join(tpl.Rewards, ", "))
	}
	if tpl.Requirements != "" {
		lines = append(lines, "Requirements: "+tpl.Requirements)
	}
	return strings.Join(lines, "\n")
}
