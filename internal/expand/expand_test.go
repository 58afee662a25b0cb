package expand_test

import (
	"io"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"rokcal/internal/expand"
	appLog "rokcal/internal/log"
	"rokcal/internal/model"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func keys(occs []model.Occurrence, start bool) []string {
	var out []string
	for _, o := range occs {
		if o.IsStart == start {
			out = append(out, model.DayKey(o.Date))
		}
	}
	return out
}

func patternTemplate(id string, start time.Time, freq model.Frequency, dur int) *model.Template {
	return &model.Template{
		ID:        id,
		Title:     id,
		EventType: model.EventSpecial,
		Priority:  model.PriorityMedium,
		Patterns:  []model.Pattern{{StartDate: start, Frequency: freq, DurationDays: dur}},
	}
}

func TestExpandPatterns(t *testing.T) {
	appLog.SetOutput(io.Discard)

	Convey("Given a two-week pattern lasting three days", t, func() {
		tpl := patternTemplate("ark", day(2025, 1, 1), model.FrequencyTwoWeeks, 3)

		Convey("When expanded up to February", func() {
			res, err := expand.Expand([]*model.Template{tpl}, expand.Options{HorizonEnd: day(2025, 2, 1)})
			So(err, ShouldBeNil)

			Convey("Then runs start every fourteen days", func() {
				So(keys(res.Occurrences, true), ShouldResemble, []string{"2025-01-01", "2025-01-15", "2025-01-29"})
			})

			Convey("And every further day of a run is marked during", func() {
				So(keys(res.Occurrences, false), ShouldResemble, []string{
					"2025-01-02", "2025-01-03",
					"2025-01-16", "2025-01-17",
					"2025-01-30", "2025-01-31",
				})
				for _, o := range res.Occurrences {
					So(o.IsStart, ShouldNotEqual, o.IsDuring)
					So(o.Template, ShouldEqual, tpl)
				}
			})

			Convey("And the output is ordered run by run", func() {
				So(res.Occurrences[0].IsStart, ShouldBeTrue)
				So(res.Occurrences[1].IsDuring, ShouldBeTrue)
				So(res.Occurrences[3].Run, ShouldEqual, 1)
				So(res.Warnings, ShouldBeEmpty)
			})
		})

		Convey("When the horizon cuts a run short", func() {
			res, err := expand.Expand([]*model.Template{tpl}, expand.Options{HorizonEnd: day(2025, 1, 30)})
			So(err, ShouldBeNil)

			Convey("Then nothing on or after the horizon is emitted", func() {
				for _, o := range res.Occurrences {
					So(o.Date.Before(day(2025, 1, 30)), ShouldBeTrue)
				}
				So(keys(res.Occurrences, true), ShouldResemble, []string{"2025-01-01", "2025-01-15", "2025-01-29"})
				So(len(res.Occurrences), ShouldEqual, 7)
			})
		})
	})

	Convey("Given a one-day pattern", t, func() {
		tpl := patternTemplate("wheel", day(2025, 3, 3), model.FrequencyOneWeek, 1)
		res, err := expand.Expand([]*model.Template{tpl}, expand.Options{HorizonEnd: day(2025, 3, 24)})
		So(err, ShouldBeNil)

		Convey("Then only start occurrences are produced", func() {
			So(keys(res.Occurrences, true), ShouldResemble, []string{"2025-03-03", "2025-03-10", "2025-03-17"})
			So(keys(res.Occurrences, false), ShouldBeEmpty)
		})
	})

	Convey("Given each known cadence", t, func() {
		cases := map[model.Frequency]int{
			model.FrequencyOneWeek:    7,
			model.FrequencyTwoWeeks:   14,
			model.FrequencyFourWeeks:  28,
			model.FrequencyFiveWeeks:  35,
			model.FrequencyEightWeeks: 56,
		}
		for freq, step := range cases {
			tpl := patternTemplate(string(freq), day(2025, 1, 1), freq, 1)
			res, err := expand.Expand([]*model.Template{tpl}, expand.Options{HorizonEnd: day(2026, 1, 1)})
			So(err, ShouldBeNil)
			So(len(res.Occurrences), ShouldBeGreaterThan, 1)
			So(res.Occurrences[1].Date.Sub(res.Occurrences[0].Date), ShouldEqual, time.Duration(step)*24*time.Hour)
		}
	})

	Convey("Given an unknown frequency", t, func() {
		bogus := patternTemplate("x", day(2025, 1, 1), "bogus", 2)
		four := patternTemplate("x", day(2025, 1, 1), model.FrequencyFourWeeks, 2)
		opts := expand.Options{HorizonEnd: day(2025, 6, 1)}

		got, err := expand.Expand([]*model.Template{bogus}, opts)
		So(err, ShouldBeNil)
		want, err := expand.Expand([]*model.Template{four}, opts)
		So(err, ShouldBeNil)

		Convey("Then it expands like four-weeks", func() {
			So(keys(got.Occurrences, true), ShouldResemble, keys(want.Occurrences, true))
			So(keys(got.Occurrences, false), ShouldResemble, keys(want.Occurrences, false))
		})

		Convey("And a warning names the template", func() {
			So(len(got.Warnings), ShouldEqual, 1)
			So(got.Warnings[0].TemplateID, ShouldEqual, "x")
			So(got.Warnings[0].Pattern, ShouldEqual, 0)
		})
	})

	Convey("Given malformed patterns next to a valid one", t, func() {
		templates := []*model.Template{
			patternTemplate("zero-duration", day(2025, 1, 1), model.FrequencyOneWeek, 0),
			patternTemplate("no-start", time.Time{}, model.FrequencyOneWeek, 2),
			patternTemplate("ok", day(2025, 1, 1), model.FrequencyOneWeek, 1),
		}
		res, err := expand.Expand(templates, expand.Options{HorizonEnd: day(2025, 1, 15)})

		Convey("Then the bad ones are skipped with warnings", func() {
			So(err, ShouldBeNil)
			So(len(res.Warnings), ShouldEqual, 2)
			So(res.Warnings[0].TemplateID, ShouldEqual, "zero-duration")
			So(res.Warnings[1].TemplateID, ShouldEqual, "no-start")
		})

		Convey("And the valid one still expands", func() {
			So(keys(res.Occurrences, true), ShouldResemble, []string{"2025-01-01", "2025-01-08"})
		})
	})

	Convey("Given a template with several patterns", t, func() {
		tpl := &model.Template{
			ID: "multi", Title: "multi", EventType: model.EventKingdom, Priority: model.PriorityLow,
			Patterns: []model.Pattern{
				{StartDate: day(2025, 1, 6), Frequency: model.FrequencyFourWeeks, DurationDays: 1},
				{StartDate: day(2025, 1, 1), Frequency: model.FrequencyFourWeeks, DurationDays: 1},
			},
		}
		res, err := expand.Expand([]*model.Template{tpl}, expand.Options{HorizonEnd: day(2025, 1, 20)})
		So(err, ShouldBeNil)

		Convey("Then patterns expand independently in declaration order", func() {
			So(len(res.Occurrences), ShouldEqual, 2)
			So(res.Occurrences[0].Pattern, ShouldEqual, 0)
			So(model.DayKey(res.Occurrences[0].Date), ShouldEqual, "2025-01-06")
			So(res.Occurrences[1].Pattern, ShouldEqual, 1)
			So(model.DayKey(res.Occurrences[1].Date), ShouldEqual, "2025-01-01")
		})
	})

	Convey("Given a per-template cap", t, func() {
		tpl := patternTemplate("long", day(2025, 1, 1), model.FrequencyOneWeek, 7)
		other := patternTemplate("short", day(2025, 1, 1), model.FrequencyEightWeeks, 1)
		res, err := expand.Expand([]*model.Template{tpl, other}, expand.Options{
			HorizonEnd:     day(2026, 1, 1),
			MaxPerTemplate: 5,
		})
		So(err, ShouldBeNil)

		Convey("Then the template stops at the cap and is reported", func() {
			n := 0
			for _, o := range res.Occurrences {
				if o.Template.ID == "long" {
					n++
				}
			}
			So(n, ShouldEqual, 5)
			So(res.Truncated, ShouldResemble, []string{"long"})
		})

		Convey("And other templates are unaffected", func() {
			So(keys(res.Occurrences, true), ShouldContain, "2025-02-26")
		})
	})
}

func TestExpandSingleRun(t *testing.T) {
	appLog.SetOutput(io.Discard)
	horizon := day(2027, 1, 1)

	Convey("Given a template without repeat", t, func() {
		start := time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC)
		tpl := &model.Template{ID: "once", StartTime: start, EndTime: start.Add(48 * time.Hour)}
		res, err := expand.Expand([]*model.Template{tpl}, expand.Options{HorizonEnd: horizon})

		Convey("Then exactly one start occurrence is produced", func() {
			So(err, ShouldBeNil)
			So(len(res.Occurrences), ShouldEqual, 1)
			o := res.Occurrences[0]
			So(o.Date, ShouldEqual, start)
			So(o.End, ShouldEqual, start.Add(48*time.Hour))
			So(o.IsStart, ShouldBeTrue)
			So(o.Pattern, ShouldEqual, -1)
		})
	})

	Convey("Given a weekly template", t, func() {
		start := time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC)
		tpl := &model.Template{ID: "wk", StartTime: start, EndTime: start.AddDate(0, 0, 2), RepeatPattern: model.RepeatWeekly}
		res, err := expand.Expand([]*model.Template{tpl}, expand.Options{HorizonEnd: horizon, Repetitions: 3})

		Convey("Then both ends shift by one week per run", func() {
			So(err, ShouldBeNil)
			So(keys(res.Occurrences, true), ShouldResemble, []string{"2025-01-07", "2025-01-14", "2025-01-21"})
			So(res.Occurrences[2].End, ShouldEqual, start.AddDate(0, 0, 16))
			So(res.Occurrences[2].Run, ShouldEqual, 2)
		})

		Convey("And no during occurrences are emitted", func() {
			So(keys(res.Occurrences, false), ShouldBeEmpty)
		})
	})

	Convey("Given a monthly template starting on the 31st", t, func() {
		start := time.Date(2025, 1, 31, 12, 0, 0, 0, time.UTC)
		tpl := &model.Template{ID: "mo", StartTime: start, EndTime: start, RepeatPattern: model.RepeatMonthly}
		res, err := expand.Expand([]*model.Template{tpl}, expand.Options{HorizonEnd: horizon, Repetitions: 3})

		Convey("Then short months clamp to their last day", func() {
			So(err, ShouldBeNil)
			So(keys(res.Occurrences, true), ShouldResemble, []string{"2025-01-31", "2025-02-28", "2025-03-31"})
		})
	})

	Convey("Given a template carrying its own repeat count", t, func() {
		start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		tpl := &model.Template{ID: "d", StartTime: start, EndTime: start, RepeatPattern: model.RepeatDaily, RepeatCount: 2}
		res, err := expand.Expand([]*model.Template{tpl}, expand.Options{HorizonEnd: horizon, Repetitions: 10})

		Convey("Then the template count wins", func() {
			So(err, ShouldBeNil)
			So(len(res.Occurrences), ShouldEqual, 2)
		})
	})

	Convey("Given repeats that run past the horizon", t, func() {
		start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		tpl := &model.Template{ID: "y", StartTime: start, EndTime: start, RepeatPattern: model.RepeatYearly}
		res, err := expand.Expand([]*model.Template{tpl}, expand.Options{HorizonEnd: day(2026, 6, 1), Repetitions: 5})

		Convey("Then later runs are clipped", func() {
			So(err, ShouldBeNil)
			So(keys(res.Occurrences, true), ShouldResemble, []string{"2025-01-01", "2026-01-01"})
		})
	})

	Convey("Given invalid single-run templates", t, func() {
		start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		templates := []*model.Template{
			{ID: "no-start"},
			{ID: "backwards", StartTime: start, EndTime: start.Add(-time.Hour)},
			{ID: "odd-repeat", StartTime: start, RepeatPattern: "fortnightly"},
		}
		res, err := expand.Expand(templates, expand.Options{HorizonEnd: horizon})

		Convey("Then each is skipped with a warning", func() {
			So(err, ShouldBeNil)
			So(res.Occurrences, ShouldBeEmpty)
			So(len(res.Warnings), ShouldEqual, 3)
			for _, w := range res.Warnings {
				So(w.Pattern, ShouldEqual, -1)
			}
		})
	})
}

func TestExpandContract(t *testing.T) {
	appLog.SetOutput(io.Discard)

	Convey("Given no horizon", t, func() {
		_, err := expand.Expand(nil, expand.Options{})
		So(err, ShouldEqual, expand.ErrNoHorizon)
	})

	Convey("Given the same input twice", t, func() {
		build := func() []*model.Template {
			return []*model.Template{
				patternTemplate("a", day(2025, 1, 1), model.FrequencyTwoWeeks, 3),
				patternTemplate("b", day(2025, 1, 4), model.FrequencyFiveWeeks, 2),
				{ID: "c", StartTime: day(2025, 1, 2), EndTime: day(2025, 1, 3), RepeatPattern: model.RepeatWeekly},
			}
		}
		tpls := build()
		first, err := expand.Expand(tpls, expand.Options{HorizonEnd: day(2025, 12, 1)})
		So(err, ShouldBeNil)
		second, err := expand.Expand(tpls, expand.Options{HorizonEnd: day(2025, 12, 1)})
		So(err, ShouldBeNil)

		Convey("Then the output is identical", func() {
			So(second.Occurrences, ShouldResemble, first.Occurrences)
		})
	})

	Convey("Given a date near the end of a month", t, func() {
		now := time.Date(2025, 1, 31, 15, 30, 0, 0, time.UTC)

		Convey("Then MonthsAhead clamps and truncates to midnight", func() {
			So(expand.MonthsAhead(now, 1), ShouldEqual, day(2025, 2, 28))
			So(expand.MonthsAhead(now, 12), ShouldEqual, day(2026, 1, 31))
		})

		Convey("And YearsAhead moves whole years", func() {
			So(expand.YearsAhead(now, 1), ShouldEqual, day(2026, 1, 31))
			So(expand.YearsAhead(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), 1), ShouldEqual, day(2025, 2, 28))
		})
	})
}
