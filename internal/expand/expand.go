package expand

import (
	"errors"
	"time"

	"github.com/teambition/rrule-go"

	appLog "rokcal/internal/log"
	"rokcal/internal/model"
)

const (
	// DefaultRepetitions is the "months ahead" count used for repeating
	// single-run templates when the caller does not pick one.
	DefaultRepetitions = 12

	defaultMaxOccurrencesPerTemplate = 5000
)

// ErrNoHorizon is returned when Options.HorizonEnd is zero.
var ErrNoHorizon = errors.New("expand: horizon end is not set")

// Options controls how templates are expanded.
type Options struct {
	// HorizonEnd is exclusive: no occurrence is emitted on or after it.
	HorizonEnd time.Time

	// Repetitions is the number of copies produced for templates with a
	// RepeatPattern and no RepeatCount of their own. If zero,
	// DefaultRepetitions is used.
	Repetitions int

	// MaxPerTemplate is a safety cap on occurrences emitted for a single
	// template. If zero, defaultMaxOccurrencesPerTemplate is used.
	MaxPerTemplate int
}

// Warning records a template (or one of its patterns) that was skipped or
// expanded with a fallback.
type Warning struct {
	TemplateID string
	Pattern    int // -1 for single-run templates
	Reason     string
}

// Result wraps the expanded occurrences plus what went sideways.
type Result struct {
	Occurrences []model.Occurrence
	// Truncated records template IDs that hit Options.MaxPerTemplate.
	Truncated []string
	Warnings  []Warning
}

// Expand converts templates into a flat, deterministic occurrence list.
// Output order follows template order, then pattern order, then run order.
// Malformed templates are skipped with a warning; they never abort the
// expansion.
func Expand(templates []*model.Template, opts Options) (Result, error) {
	var result Result

	if opts.HorizonEnd.IsZero() {
		return result, ErrNoHorizon
	}
	if opts.Repetitions <= 0 {
		opts.Repetitions = DefaultRepetitions
	}
	if opts.MaxPerTemplate <= 0 {
		opts.MaxPerTemplate = defaultMaxOccurrencesPerTemplate
	}

	out := make([]model.Occurrence, 0, len(templates)*opts.Repetitions)

	for _, tpl := range templates {
		if tpl == nil {
			continue
		}
		e := &emitter{tpl: tpl, limit: opts.MaxPerTemplate, out: out}

		switch {
		case len(tpl.Patterns) > 0:
			for i, p := range tpl.Patterns {
				if w := expandPattern(e, i, p, opts.HorizonEnd); w.Reason != "" {
					result.Warnings = append(result.Warnings, w)
				}
				if e.full() {
					break
				}
			}
		default:
			if w := expandSingle(e, opts); w.Reason != "" {
				result.Warnings = append(result.Warnings, w)
			}
		}

		out = e.out
		if e.truncated {
			result.Truncated = append(result.Truncated, tpl.ID)
			appLog.Error("expand: truncated occurrences for template due to cap",
				errors.New("max occurrences reached"),
				"template_id", tpl.ID,
				"cap", opts.MaxPerTemplate,
			)
		}
	}

	for _, w := range result.Warnings {
		appLog.Warn("expand: "+w.Reason, "template_id", w.TemplateID, "pattern", w.Pattern)
	}

	result.Occurrences = out
	return result, nil
}

// emitter appends occurrences for one template and enforces the cap.
type emitter struct {
	tpl       *model.Template
	limit     int
	count     int
	truncated bool
	out       []model.Occurrence
}

func (e *emitter) full() bool {
	return e.truncated
}

func (e *emitter) emit(occ model.Occurrence) bool {
	if e.count >= e.limit {
		e.truncated = true
		return false
	}
	occ.Template = e.tpl
	e.out = append(e.out, occ)
	e.count++
	return true
}

// expandSingle handles templates without patterns: one occurrence at
// StartTime, or Repetitions copies shifted by the repeat unit.
func expandSingle(e *emitter, opts Options) Warning {
	tpl := e.tpl
	warn := Warning{TemplateID: tpl.ID, Pattern: -1}

	if tpl.StartTime.IsZero() {
		warn.Reason = "template has no start time; skipped"
		return warn
	}
	if !tpl.RepeatPattern.Valid() {
		warn.Reason = "unknown repeat pattern " + string(tpl.RepeatPattern) + "; skipped"
		return warn
	}
	end := tpl.EndTime
	if end.IsZero() {
		end = tpl.StartTime
	}
	if end.Before(tpl.StartTime) {
		warn.Reason = "template ends before it starts; skipped"
		return warn
	}

	if tpl.RepeatPattern == model.RepeatNone {
		if tpl.StartTime.Before(opts.HorizonEnd) {
			e.emit(model.Occurrence{Date: tpl.StartTime, End: end, Pattern: -1, IsStart: true})
		}
		return warn
	}

	count := opts.Repetitions
	if tpl.RepeatCount > 0 {
		count = tpl.RepeatCount
	}
	for i := 0; i < count; i++ {
		start := tpl.RepeatPattern.Shift(tpl.StartTime, i)
		if !start.Before(opts.HorizonEnd) {
			break
		}
		occ := model.Occurrence{
			Date:    start,
			End:     tpl.RepeatPattern.Shift(end, i),
			Pattern: -1,
			Run:     i,
			IsStart: true,
		}
		if !e.emit(occ) {
			break
		}
	}
	return warn
}

// expandPattern walks one pattern from its start date to the horizon,
// emitting a start occurrence per run plus one "during" occurrence for
// every further day of the run. The returned warning has an empty Reason
// when the pattern expanded cleanly.
func expandPattern(e *emitter, idx int, p model.Pattern, horizon time.Time) Warning {
	warn := Warning{TemplateID: e.tpl.ID, Pattern: idx}

	if p.StartDate.IsZero() {
		warn.Reason = "pattern has no start date; skipped"
		return warn
	}
	if p.DurationDays <= 0 {
		warn.Reason = "pattern has non-positive duration; skipped"
		return warn
	}

	weeks, known := p.Frequency.CadenceWeeks()
	if !known {
		// Kept for compatibility with catalogs that carry free-form
		// frequency strings.
		warn.Reason = "unknown frequency " + string(p.Frequency) + "; using four-week cadence"
	}

	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:     rrule.WEEKLY,
		Interval: weeks,
		Dtstart:  model.StartOfDay(p.StartDate),
	})
	if err != nil {
		warn.Reason = "cadence rule rejected: " + err.Error()
		return warn
	}

	next := rule.Iterator()
	for run := 0; ; run++ {
		cur, ok := next()
		if !ok || !cur.Before(horizon) {
			break
		}
		if !e.emit(model.Occurrence{Date: cur, Pattern: idx, Run: run, IsStart: true}) {
			break
		}
		for offset := 1; offset < p.DurationDays; offset++ {
			day := cur.AddDate(0, 0, offset)
			if !day.Before(horizon) {
				break
			}
			if !e.emit(model.Occurrence{Date: day, Pattern: idx, Run: run, IsDuring: true}) {
				return warn
			}
		}
	}
	return warn
}

// MonthsAhead returns the start of the day n months after now.
func MonthsAhead(now time.Time, n int) time.Time {
	return model.StartOfDay(model.RepeatMonthly.Shift(now, n))
}

// YearsAhead returns the start of the day n years after now.
func YearsAhead(now time.Time, n int) time.Time {
	return model.StartOfDay(model.RepeatYearly.Shift(now, n))
}
