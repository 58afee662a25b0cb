package model_test

import (
	"errors"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"rokcal/internal/model"
)

func TestEnums(t *testing.T) {
	convey.Convey("Given the closed event type set", t, func() {
		convey.So(len(model.EventTypes), convey.ShouldEqual, 23)

		convey.Convey("Then every type has a color", func() {
			for _, et := range model.EventTypes {
				c, err := et.Color()
				convey.So(err, convey.ShouldBeNil)
				convey.So(c, convey.ShouldStartWith, "#")
			}
		})

		convey.Convey("And an unknown type fails loudly", func() {
			_, err := model.EventType("raid").Color()
			convey.So(errors.Is(err, model.ErrUnknownEventType), convey.ShouldBeTrue)

			var et model.EventType
			err = et.UnmarshalText([]byte("raid"))
			convey.So(errors.Is(err, model.ErrUnknownEventType), convey.ShouldBeTrue)
			convey.So(et.UnmarshalText([]byte("alliance_war")), convey.ShouldBeNil)
			convey.So(et, convey.ShouldEqual, model.EventAllianceWar)
		})
	})

	convey.Convey("Given priorities", t, func() {
		for _, p := range model.Priorities {
			_, err := p.Color()
			convey.So(err, convey.ShouldBeNil)
		}
		_, err := model.Priority("urgent").Color()
		convey.So(errors.Is(err, model.ErrUnknownPriority), convey.ShouldBeTrue)
	})

	convey.Convey("Given categories", t, func() {
		convey.So(model.Category("").Valid(), convey.ShouldBeTrue)
		convey.So(model.CategoryKVKSeason.Valid(), convey.ShouldBeTrue)
		var c model.Category
		convey.So(errors.Is(c.UnmarshalText([]byte("hourly")), model.ErrUnknownCategory), convey.ShouldBeTrue)
	})

	convey.Convey("Given a template with its own color", t, func() {
		tpl := &model.Template{EventType: model.EventKVK, Color: "#123456"}
		c, err := tpl.DisplayColor()
		convey.So(err, convey.ShouldBeNil)
		convey.So(c, convey.ShouldEqual, "#123456")

		tpl.Color = ""
		c, err = tpl.DisplayColor()
		convey.So(err, convey.ShouldBeNil)
		want, _ := model.EventKVK.Color()
		convey.So(c, convey.ShouldEqual, want)
	})
}

func TestRepeatShift(t *testing.T) {
	convey.Convey("Given a timestamp on the 31st", t, func() {
		ts := time.Date(2024, 1, 31, 18, 30, 0, 0, time.UTC)

		convey.Convey("Then day and week shifts are exact", func() {
			convey.So(model.RepeatDaily.Shift(ts, 1), convey.ShouldEqual, ts.AddDate(0, 0, 1))
			convey.So(model.RepeatWeekly.Shift(ts, 2), convey.ShouldEqual, ts.AddDate(0, 0, 14))
		})

		convey.Convey("And month shifts clamp to the month end", func() {
			convey.So(model.RepeatMonthly.Shift(ts, 1), convey.ShouldEqual, time.Date(2024, 2, 29, 18, 30, 0, 0, time.UTC))
			convey.So(model.RepeatMonthly.Shift(ts, 3), convey.ShouldEqual, time.Date(2024, 4, 30, 18, 30, 0, 0, time.UTC))
			convey.So(model.RepeatMonthly.Shift(ts, -2), convey.ShouldEqual, time.Date(2023, 11, 30, 18, 30, 0, 0, time.UTC))
		})

		convey.Convey("And a zero shift is the identity", func() {
			convey.So(model.RepeatYearly.Shift(ts, 0), convey.ShouldEqual, ts)
			convey.So(model.RepeatNone.Shift(ts, 5), convey.ShouldEqual, ts)
		})
	})

	convey.Convey("Given frequency strings", t, func() {
		w, ok := model.FrequencyFiveWeeks.CadenceWeeks()
		convey.So(w, convey.ShouldEqual, 5)
		convey.So(ok, convey.ShouldBeTrue)

		w, ok = model.Frequency("monthly").CadenceWeeks()
		convey.So(w, convey.ShouldEqual, model.DefaultCadenceWeeks)
		convey.So(ok, convey.ShouldBeFalse)
	})
}

func TestCalendarHelpers(t *testing.T) {
	convey.Convey("Given a Thursday afternoon", t, func() {
		thu := time.Date(2025, 1, 16, 15, 0, 0, 0, time.UTC)

		convey.So(model.DayKey(thu), convey.ShouldEqual, "2025-01-16")
		convey.So(model.StartOfDay(thu), convey.ShouldEqual, time.Date(2025, 1, 16, 0, 0, 0, 0, time.UTC))
		convey.So(model.StartOfWeek(thu, time.Monday), convey.ShouldEqual, time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC))
		convey.So(model.StartOfWeek(thu, time.Sunday), convey.ShouldEqual, time.Date(2025, 1, 12, 0, 0, 0, 0, time.UTC))
		convey.So(model.StartOfMonth(thu), convey.ShouldEqual, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	})
}
