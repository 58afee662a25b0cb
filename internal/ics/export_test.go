package ics_test

import (
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	. "github.com/smartystreets/goconvey/convey"

	"rokcal/internal/ics"
	"rokcal/internal/model"
)

func TestExport(t *testing.T) {
	ark := &model.Template{
		ID: "ark", Title: "Ark of Osiris", EventType: model.EventAlliance, Priority: model.PriorityHigh,
		Description: "Alliance battle", Rewards: []string{"Gems"},
		Patterns: []model.Pattern{{StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), Frequency: model.FrequencyTwoWeeks, DurationDays: 3}},
	}
	start := time.Date(2025, 1, 5, 20, 0, 0, 0, time.UTC)
	osiris := &model.Template{ID: "osiris", Title: "Osiris", EventType: model.EventKingdom, Priority: model.PriorityLow, StartTime: start, EndTime: start.Add(2 * time.Hour)}

	occs := []model.Occurrence{
		{Template: ark, Date: ark.Patterns[0].StartDate, Pattern: 0, Run: 0, IsStart: true},
		{Template: ark, Date: ark.Patterns[0].StartDate.AddDate(0, 0, 1), Pattern: 0, Run: 0, IsDuring: true},
		{Template: osiris, Date: start, End: start.Add(2 * time.Hour), Pattern: -1, Run: 0, IsStart: true},
	}
	stamp := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	Convey("Given start and during occurrences", t, func() {
		body := ics.Export(occs, ics.ExportOptions{Name: "Events", Stamp: stamp})

		Convey("Then the feed parses back with one event per run", func() {
			cal, err := ical.ParseCalendar(strings.NewReader(body))
			So(err, ShouldBeNil)
			events := cal.Events()
			So(len(events), ShouldEqual, 2)
			So(events[0].Id(), ShouldEqual, "ark-p0-r0@rokcal")
			So(events[0].GetProperty(ical.ComponentPropertySummary).Value, ShouldEqual, "Ark of Osiris")
			So(events[1].Id(), ShouldEqual, "osiris-r0@rokcal")
		})

		Convey("And pattern runs are all-day events spanning their duration", func() {
			So(body, ShouldContainSubstring, "DTSTART;VALUE=DATE:20250101")
			So(body, ShouldContainSubstring, "DTEND;VALUE=DATE:20250104")
		})

		Convey("And single runs keep their times", func() {
			So(body, ShouldContainSubstring, "DTSTART:20250105T200000Z")
			So(body, ShouldContainSubstring, "DTEND:20250105T220000Z")
		})

		Convey("And the output is reproducible", func() {
			So(ics.Export(occs, ics.ExportOptions{Name: "Events", Stamp: stamp}), ShouldEqual, body)
		})
	})

	Convey("Given no occurrences", t, func() {
		body := ics.Export(nil, ics.ExportOptions{Stamp: stamp})
		So(body, ShouldContainSubstring, "BEGIN:VCALENDAR")
		So(body, ShouldNotContainSubstring, "BEGIN:VEVENT")
	})
}
