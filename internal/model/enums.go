package model

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUnknownEventType     = errors.New("unknown event type")
	ErrUnknownPriority      = errors.New("unknown priority")
	ErrUnknownCategory      = errors.New("unknown category")
	ErrUnknownRepeatPattern = errors.New("unknown repeat pattern")
)

// EventType is the closed set of in-game event kinds.
type EventType string

const (
	EventKingdom     EventType = "kingdom"
	EventAlliance    EventType = "alliance"
	EventPersonal    EventType = "personal"
	EventSpecial     EventType = "special"
	EventKVK         EventType = "kvk"
	EventCeremony    EventType = "ceremony"
	EventTraining    EventType = "training"
	EventCompetitive EventType = "competitive"
	EventGathering   EventType = "gathering"
	EventExpedition  EventType = "expedition"
	EventWheel       EventType = "wheel"
	EventCard        EventType = "card"
	EventPower       EventType = "power"
	EventBuilding    EventType = "building"
	EventResearch    EventType = "research"
	EventCommander   EventType = "commander"
	EventTroop       EventType = "troop"
	EventBarbarian   EventType = "barbarian"
	EventFort        EventType = "fort"
	EventResource    EventType = "resource"
	EventVIP         EventType = "vip"
	EventRecharge    EventType = "recharge"
	EventAllianceWar EventType = "alliance_war"
)

// EventTypes lists every EventType in declaration order.
var EventTypes = []EventType{
	EventKingdom, EventAlliance, EventPersonal, EventSpecial, EventKVK,
	EventCeremony, EventTraining, EventCompetitive, EventGathering,
	EventExpedition, EventWheel, EventCard, EventPower, EventBuilding,
	EventResearch, EventCommander, EventTroop, EventBarbarian, EventFort,
	EventResource, EventVIP, EventRecharge, EventAllianceWar,
}

// Colors follow the Ant Design preset palette.
var eventTypeColors = map[EventType]string{
	EventKingdom:     "#1677ff",
	EventAlliance:    "#52c41a",
	EventPersonal:    "#fa8c16",
	EventSpecial:     "#722ed1",
	EventKVK:         "#f5222d",
	EventCeremony:    "#faad14",
	EventTraining:    "#13c2c2",
	EventCompetitive: "#eb2f96",
	EventGathering:   "#a0d911",
	EventExpedition:  "#fa541c",
	EventWheel:       "#2f54eb",
	EventCard:        "#722ed1",
	EventPower:       "#f5222d",
	EventBuilding:    "#fa8c16",
	EventResearch:    "#1677ff",
	EventCommander:   "#13c2c2",
	EventTroop:       "#52c41a",
	EventBarbarian:   "#fa541c",
	EventFort:        "#eb2f96",
	EventResource:    "#a0d911",
	EventVIP:         "#faad14",
	EventRecharge:    "#2f54eb",
	EventAllianceWar: "#f5222d",
}

func (t EventType) Valid() bool {
	_, ok := eventTypeColors[t]
	return ok
}

func (t EventType) Color() (string, error) {
	c, ok := eventTypeColors[t]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownEventType, string(t))
	}
	return c, nil
}

func (t *EventType) UnmarshalText(b []byte) error {
	v := EventType(b)
	if !v.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownEventType, string(b))
	}
	*t = v
	return nil
}

// Priority ranks how important an event is to the player.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

var priorityColors = map[Priority]string{
	PriorityLow:      "#52c41a",
	PriorityMedium:   "#fa8c16",
	PriorityHigh:     "#f5222d",
	PriorityCritical: "#eb2f96",
}

func (p Priority) Valid() bool {
	_, ok := priorityColors[p]
	return ok
}

func (p Priority) Color() (string, error) {
	c, ok := priorityColors[p]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownPriority, string(p))
	}
	return c, nil
}

func (p *Priority) UnmarshalText(b []byte) error {
	v := Priority(b)
	if !v.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownPriority, string(b))
	}
	*p = v
	return nil
}

// Category groups templates by how often they run. It is optional.
type Category string

const (
	CategoryDaily           Category = "daily"
	CategoryWeekly          Category = "weekly"
	CategoryMonthly         Category = "monthly"
	CategorySeasonal        Category = "seasonal"
	CategoryKVKSeason       Category = "kvk_season"
	CategorySpecialOccasion Category = "special_occasion"
	CategoryLimitedTime     Category = "limited_time"
	CategoryPermanent       Category = "permanent"
)

func (c Category) Valid() bool {
	switch c {
	case "", CategoryDaily, CategoryWeekly, CategoryMonthly, CategorySeasonal,
		CategoryKVKSeason, CategorySpecialOccasion, CategoryLimitedTime, CategoryPermanent:
		return true
	}
	return false
}

func (c *Category) UnmarshalText(b []byte) error {
	v := Category(b)
	if !v.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, string(b))
	}
	*c = v
	return nil
}

// RepeatPattern is the calendar unit a single-run template is shifted by.
type RepeatPattern string

const (
	RepeatNone    RepeatPattern = ""
	RepeatDaily   RepeatPattern = "daily"
	RepeatWeekly  RepeatPattern = "weekly"
	RepeatMonthly RepeatPattern = "monthly"
	RepeatYearly  RepeatPattern = "yearly"
)

func (r RepeatPattern) Valid() bool {
	switch r {
	case RepeatNone, RepeatDaily, RepeatWeekly, RepeatMonthly, RepeatYearly:
		return true
	}
	return false
}

func (r *RepeatPattern) UnmarshalText(b []byte) error {
	v := RepeatPattern(b)
	if !v.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownRepeatPattern, string(b))
	}
	*r = v
	return nil
}

// Shift moves t forward by n units of the pattern. Month and year shifts
// clamp to the last day of the target month (Jan 31 + 1 month = Feb 28/29)
// instead of overflowing into the next month.
func (r RepeatPattern) Shift(t time.Time, n int) time.Time {
	switch r {
	case RepeatDaily:
		return t.AddDate(0, 0, n)
	case RepeatWeekly:
		return t.AddDate(0, 0, 7*n)
	case RepeatMonthly:
		return addMonthsClamped(t, n)
	case RepeatYearly:
		return addMonthsClamped(t, 12*n)
	default:
		return t
	}
}

func addMonthsClamped(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := daysIn(first.Year(), first.Month()); d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Frequency is the cadence string carried by remote pattern descriptors.
// Values outside the known set are accepted and expand with the default
// cadence.
type Frequency string

const (
	FrequencyOneWeek    Frequency = "one-week"
	FrequencyTwoWeeks   Frequency = "two-weeks"
	FrequencyFourWeeks  Frequency = "four-weeks"
	FrequencyFiveWeeks  Frequency = "five-weeks"
	FrequencyEightWeeks Frequency = "eight-weeks"
)

// DefaultCadenceWeeks is used for unrecognized frequency strings.
const DefaultCadenceWeeks = 4

// CadenceWeeks returns the step in weeks and whether the frequency is known.
func (f Frequency) CadenceWeeks() (int, bool) {
	switch f {
	case FrequencyOneWeek:
		return 1, true
	case FrequencyTwoWeeks:
		return 2, true
	case FrequencyFourWeeks:
		return 4, true
	case FrequencyFiveWeeks:
		return 5, true
	case FrequencyEightWeeks:
		return 8, true
	default:
		return DefaultCadenceWeeks, false
	}
}
