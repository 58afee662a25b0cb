package index

import (
	"sort"
	"time"

	"rokcal/internal/model"
)

// Index buckets occurrences by calendar day so that day and month lookups
// cost O(bucket) instead of O(total). An Index is immutable; rebuild it
// when the template set changes.
type Index struct {
	byDay  map[string][]model.Occurrence
	starts []model.Occurrence // IsStart only, ascending by Date
	total  int
}

// New builds an index over occs. Within a day, occurrences are ordered by
// time; ties keep the order in which they appear in occs.
func New(occs []model.Occurrence) *Index {
	idx := &Index{
		byDay: make(map[string][]model.Occurrence),
		total: len(occs),
	}
	for _, o := range occs {
		key := model.DayKey(o.Date)
		idx.byDay[key] = append(idx.byDay[key], o)
		if o.IsStart {
			idx.starts = append(idx.starts, o)
		}
	}
	for _, bucket := range idx.byDay {
		sort.SliceStable(bucket, func(i, j int) bool {
			return bucket[i].Date.Before(bucket[j].Date)
		})
	}
	sort.SliceStable(idx.starts, func(i, j int) bool {
		return idx.starts[i].Date.Before(idx.starts[j].Date)
	})
	return idx
}

// Len returns the number of indexed occurrences.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return x.total
}

// OnDay returns every occurrence (start or during) whose date falls on the
// calendar day of date. Time of day is ignored.
func (x *Index) OnDay(date time.Time) []model.Occurrence {
	if x == nil {
		return nil
	}
	bucket := x.byDay[model.DayKey(date)]
	out := make([]model.Occurrence, len(bucket))
	copy(out, bucket)
	return out
}

// InMonth returns the occurrences of the given month, keeping only the
// first occurrence seen for each title. Iteration runs day by day from the
// first of the month, and by time of day within a day.
//
// Templates that share a title collapse into a single entry.
func (x *Index) InMonth(year int, month time.Month) []model.Occurrence {
	if x == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var out []model.Occurrence
	x.eachDay(year, month, func(_ time.Time, bucket []model.Occurrence) {
		for _, o := range bucket {
			if _, dup := seen[o.Template.Title]; dup {
				continue
			}
			seen[o.Template.Title] = struct{}{}
			out = append(out, o)
		}
	})
	return out
}

// Upcoming returns start occurrences dated on or after from minus one day,
// ascending by date and truncated to limit. A non-positive limit returns
// every match.
func (x *Index) Upcoming(from time.Time, limit int) []model.Occurrence {
	if x == nil {
		return nil
	}
	cutoff := from.AddDate(0, 0, -1)
	i := sort.Search(len(x.starts), func(i int) bool {
		return !x.starts[i].Date.Before(cutoff)
	})
	rest := x.starts[i:]
	if limit > 0 && len(rest) > limit {
		rest = rest[:limit]
	}
	out := make([]model.Occurrence, len(rest))
	copy(out, rest)
	return out
}

// Starts returns every start occurrence, ascending by date.
func (x *Index) Starts() []model.Occurrence {
	if x == nil {
		return nil
	}
	out := make([]model.Occurrence, len(x.starts))
	copy(out, x.starts)
	return out
}

// DaySection is one non-empty day of a month list view.
type DaySection struct {
	Date        time.Time
	Occurrences []model.Occurrence
}

// DaysInMonth groups the month's start occurrences by day, ascending, and
// omits empty days.
func (x *Index) DaysInMonth(year int, month time.Month) []DaySection {
	if x == nil {
		return nil
	}
	var out []DaySection
	x.eachDay(year, month, func(day time.Time, bucket []model.Occurrence) {
		var starts []model.Occurrence
		for _, o := range bucket {
			if o.IsStart {
				starts = append(starts, o)
			}
		}
		if len(starts) > 0 {
			out = append(out, DaySection{Date: day, Occurrences: starts})
		}
	})
	return out
}

// MonthStats summarizes the start occurrences of a month.
type MonthStats struct {
	Total  int
	Days   int
	ByType map[model.EventType]int
}

func (x *Index) MonthStats(year int, month time.Month) MonthStats {
	stats := MonthStats{ByType: make(map[model.EventType]int)}
	for _, sec := range x.DaysInMonth(year, month) {
		stats.Days++
		for _, o := range sec.Occurrences {
			stats.Total++
			stats.ByType[o.Template.EventType]++
		}
	}
	return stats
}

func (x *Index) eachDay(year int, month time.Month, fn func(time.Time, []model.Occurrence)) {
	// Keys carry no zone, so walking the month in UTC is enough.
	day := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	for day.Month() == month {
		if bucket := x.byDay[model.DayKey(day)]; len(bucket) > 0 {
			fn(model.StartOfDay(bucket[0].Date), bucket)
		}
		day = day.AddDate(0, 0, 1)
	}
}
