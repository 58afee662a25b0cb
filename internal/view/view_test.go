package view_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"rokcal/internal/index"
	"rokcal/internal/model"
	"rokcal/internal/nav"
	"rokcal/internal/view"
)

func TestLocales(t *testing.T) {
	Convey("Given each supported locale", t, func() {
		for _, code := range []string{"vi", "en"} {
			l, err := view.LocaleFor(code)
			So(err, ShouldBeNil)
			So(l.Code, ShouldEqual, code)

			Convey("Then every event type and priority has a label: "+code, func() {
				for _, et := range model.EventTypes {
					label, err := l.EventTypeLabel(et)
					So(err, ShouldBeNil)
					So(label, ShouldNotBeBlank)
				}
				for _, p := range model.Priorities {
					label, err := l.PriorityLabel(p)
					So(err, ShouldBeNil)
					So(label, ShouldNotBeBlank)
				}
			})

			Convey("And unknown values fail loudly: "+code, func() {
				_, err := l.EventTypeLabel("raid")
				So(errors.Is(err, model.ErrUnknownEventType), ShouldBeTrue)
				_, err = l.PriorityLabel("urgent")
				So(errors.Is(err, model.ErrUnknownPriority), ShouldBeTrue)
			})
		}
	})

	Convey("Given weekday lookups", t, func() {
		vi, _ := view.LocaleFor("vi")
		sunday := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
		So(vi.Weekday(sunday), ShouldEqual, "Chủ Nhật")
		So(vi.WeekdayShort(sunday.AddDate(0, 0, 1)), ShouldEqual, "T2")
	})

	Convey("Given an unsupported locale", t, func() {
		_, err := view.LocaleFor("fr")
		So(err, ShouldNotBeNil)
	})
}

func TestRenderer(t *testing.T) {
	en, _ := view.LocaleFor("en")
	r, err := view.NewRenderer(en, time.UTC, time.Monday, 5)
	if err != nil {
		t.Fatal(err)
	}

	mge := &model.Template{
		ID: "mge", Title: "Mightiest Governor", EventType: model.EventCompetitive, Priority: model.PriorityCritical,
		Rewards: []string{"Commander sculptures"}, MinPower: 15000000,
		StartTime: time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), EndTime: time.Date(2025, 1, 12, 0, 0, 0, 0, time.UTC),
	}
	ark := &model.Template{
		ID: "ark", Title: "Ark of Osiris", EventType: model.EventAlliance, Priority: model.PriorityHigh,
		Patterns: []model.Pattern{{StartDate: time.Date(2025, 1, 4, 0, 0, 0, 0, time.UTC), Frequency: model.FrequencyTwoWeeks, DurationDays: 2}},
	}
	idx := index.New([]model.Occurrence{
		{Template: ark, Date: time.Date(2025, 1, 4, 0, 0, 0, 0, time.UTC), Pattern: 0, IsStart: true},
		{Template: ark, Date: time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC), Pattern: 0, IsDuring: true},
		{Template: mge, Date: mge.StartTime, End: mge.EndTime, Pattern: -1, IsStart: true},
	})
	now := time.Date(2025, 1, 3, 8, 0, 0, 0, time.UTC)

	Convey("Given a month view", t, func() {
		var buf bytes.Buffer
		err := r.Calendar(&buf, idx, nav.Initial(now), now)
		So(err, ShouldBeNil)
		html := buf.String()

		Convey("Then the page signals readiness and shows the month", func() {
			So(html, ShouldContainSubstring, `data-ready="true"`)
			So(html, ShouldContainSubstring, "January 2025")
		})

		Convey("And events are linked to their detail page", func() {
			So(html, ShouldContainSubstring, "/calendar/event?id=ark")
			So(html, ShouldContainSubstring, "Mightiest Governor")
		})

		Convey("And navigation links carry the anchor", func() {
			So(html, ShouldContainSubstring, "anchor=2025-01-03&nav=next")
		})

		Convey("And the month summary counts starts per type", func() {
			So(html, ShouldContainSubstring, en.Text.Total+": 2")
			So(html, ShouldContainSubstring, "Alliance: 1")
		})
	})

	Convey("Given a week view in another month", t, func() {
		var buf bytes.Buffer
		v := nav.View{Anchor: time.Date(2025, 2, 12, 0, 0, 0, 0, time.UTC), Granularity: nav.Week}
		So(r.Calendar(&buf, idx, v, now), ShouldBeNil)

		Convey("Then the week range and the this-week link are shown", func() {
			So(buf.String(), ShouldContainSubstring, "Feb 10")
			So(buf.String(), ShouldContainSubstring, "nav=today")
			So(buf.String(), ShouldNotContainSubstring, en.Text.InMonth)
		})
	})

	Convey("Given no index yet", t, func() {
		var buf bytes.Buffer
		So(r.Calendar(&buf, nil, nav.Initial(now), now), ShouldBeNil)
		So(buf.String(), ShouldContainSubstring, en.Text.NoEvents)
	})

	Convey("Given a template with an unknown type", t, func() {
		bad := &model.Template{ID: "bad", Title: "Bad", EventType: "raid", Priority: model.PriorityLow}
		badIdx := index.New([]model.Occurrence{{Template: bad, Date: now, IsStart: true}})

		var buf bytes.Buffer
		err := r.Calendar(&buf, badIdx, nav.Initial(now), now)
		So(errors.Is(err, model.ErrUnknownEventType), ShouldBeTrue)
	})

	Convey("Given a detail page", t, func() {
		var buf bytes.Buffer
		So(r.Detail(&buf, mge), ShouldBeNil)
		html := buf.String()

		So(html, ShouldContainSubstring, "Mightiest Governor")
		So(html, ShouldContainSubstring, "Commander sculptures")
		So(html, ShouldContainSubstring, "15000000")
		So(html, ShouldContainSubstring, "2025-01-06")
	})
}
