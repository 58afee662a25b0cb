package model

import "time"

// Template is the source-of-truth definition of a game event before
// recurrence expansion. A template is immutable once loaded; occurrences
// hold a shared pointer to it.
//
// A template uses one of two temporal shapes:
//   - single-run: StartTime/EndTime, optionally repeated by RepeatPattern
//   - pattern-list: one or more independent Patterns
//
// When Patterns is non-empty the single-run fields are ignored.
type Template struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	EventType   EventType `json:"event_type"`
	Category    Category  `json:"category,omitempty"`
	Priority    Priority  `json:"priority"`
	Rewards     []string  `json:"rewards,omitempty"`

	Requirements string `json:"requirements,omitempty"`
	MinPower     int64  `json:"min_power,omitempty"`
	// KingdomLevel gates the event on days since kingdom founding.
	KingdomLevel int    `json:"kingdom_level,omitempty"`
	EventStage   string `json:"event_stage,omitempty"`

	Completed  bool `json:"completed"`
	Repeatable bool `json:"repeatable"`

	// Color is a free-form display color carried by remote catalogs. When
	// empty the EventType color is used.
	Color string `json:"color,omitempty"`

	StartTime     time.Time     `json:"start_time,omitzero"`
	EndTime       time.Time     `json:"end_time,omitzero"`
	RepeatPattern RepeatPattern `json:"repeat_pattern,omitempty"`
	// RepeatCount overrides the caller's repetition count when > 0.
	RepeatCount int `json:"repeat_count,omitempty"`

	Patterns []Pattern `json:"patterns,omitempty"`
}

// Pattern is one independent recurring slot of a pattern-list template.
type Pattern struct {
	// StartDate is the first day of the first run (midnight, display zone).
	StartDate    time.Time `json:"start_date"`
	Frequency    Frequency `json:"frequency"`
	DurationDays int       `json:"duration"`
}

// DisplayColor returns the template's own color, or the EventType color.
func (t *Template) DisplayColor() (string, error) {
	if t.Color != "" {
		return t.Color, nil
	}
	return t.EventType.Color()
}

// Occurrence is one concrete, dated instance of a template. Occurrences are
// derived and rebuilt wholesale whenever the template set changes.
type Occurrence struct {
	// Date is the calendar day (midnight) for pattern runs and the exact
	// start timestamp for single-run templates.
	Date time.Time
	// End is only set for single-run occurrences.
	End time.Time

	Template *Template

	// Pattern is the index into Template.Patterns, or -1 for single-run
	// templates.
	Pattern int
	// Run is the zero-based run index within the owning template (or
	// pattern) that produced this occurrence.
	Run int

	IsStart  bool
	IsDuring bool
}

// DayKey formats t as the YYYY-MM-DD bucket key used by the index.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// StartOfWeek returns midnight of the first day of t's week.
func StartOfWeek(t time.Time, weekStart time.Weekday) time.Time {
	day := StartOfDay(t)
	diff := (int(day.Weekday()) - int(weekStart) + 7) % 7
	return day.AddDate(0, 0, -diff)
}

// StartOfMonth returns midnight of the first day of t's month.
func StartOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}
