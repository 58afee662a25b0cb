package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"rokcal/internal/model"
)

// fileCatalog is the on-disk YAML shape of a static catalog.
type fileCatalog struct {
	Templates []fileTemplate `yaml:"templates"`
}

type fileTemplate struct {
	ID            string              `yaml:"id"`
	Title         string              `yaml:"title"`
	Description   string              `yaml:"description"`
	EventType     model.EventType     `yaml:"event_type"`
	Category      model.Category      `yaml:"category"`
	Priority      model.Priority      `yaml:"priority"`
	Rewards       []string            `yaml:"rewards"`
	Requirements  string              `yaml:"requirements"`
	MinPower      int64               `yaml:"min_power"`
	KingdomLevel  int                 `yaml:"kingdom_level"`
	EventStage    string              `yaml:"event_stage"`
	Completed     bool                `yaml:"completed"`
	Repeatable    bool                `yaml:"repeatable"`
	Color         string              `yaml:"color"`
	StartTime     string              `yaml:"start_time"`
	EndTime       string              `yaml:"end_time"`
	RepeatPattern model.RepeatPattern `yaml:"repeat_pattern"`
	RepeatCount   int                 `yaml:"repeat_count"`
	Patterns      []filePattern       `yaml:"patterns"`
}

type filePattern struct {
	StartDate string          `yaml:"start_date"`
	Frequency model.Frequency `yaml:"frequency"`
	Duration  int             `yaml:"duration"`
}

// timeLayouts are tried in order when parsing catalog timestamps.
var timeLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTime parses a catalog timestamp in loc. RFC 3339 values carry their
// own offset and are converted into loc.
func ParseTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty time value")
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

// LoadFile reads a YAML catalog. Enum fields are validated while decoding,
// so an unknown event type or priority fails the whole file.
func LoadFile(path string, loc *time.Location) ([]*model.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseYAML(data, loc)
}

// ParseYAML decodes a YAML catalog held in memory.
func ParseYAML(data []byte, loc *time.Location) ([]*model.Template, error) {
	if loc == nil {
		loc = time.Local
	}
	var fc fileCatalog
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}

	out := make([]*model.Template, 0, len(fc.Templates))
	seen := make(map[string]struct{}, len(fc.Templates))
	for i, ft := range fc.Templates {
		tpl, err := ft.toModel(loc)
		if err != nil {
			return nil, fmt.Errorf("catalog: template %d (%s): %w", i, ft.ID, err)
		}
		if _, dup := seen[tpl.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate template id %q", tpl.ID)
		}
		seen[tpl.ID] = struct{}{}
		out = append(out, tpl)
	}
	return out, nil
}

func (ft fileTemplate) toModel(loc *time.Location) (*model.Template, error) {
	if ft.ID == "" {
		return nil, errors.New("missing id")
	}
	if !ft.EventType.Valid() {
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownEventType, string(ft.EventType))
	}
	if ft.Priority == "" {
		ft.Priority = model.PriorityMedium
	}
	if !ft.Priority.Valid() {
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownPriority, string(ft.Priority))
	}

	tpl := &model.Template{
		ID:            ft.ID,
		Title:         ft.Title,
		Description:   ft.Description,
		EventType:     ft.EventType,
		Category:      ft.Category,
		Priority:      ft.Priority,
		Rewards:       ft.Rewards,
		Requirements:  ft.Requirements,
		MinPower:      ft.MinPower,
		KingdomLevel:  ft.KingdomLevel,
		EventStage:    ft.EventStage,
		Completed:     ft.Completed,
		Repeatable:    ft.Repeatable,
		Color:         ft.Color,
		RepeatPattern: ft.RepeatPattern,
		RepeatCount:   ft.RepeatCount,
	}

	if len(ft.Patterns) > 0 {
		for j, fp := range ft.Patterns {
			start, err := ParseTime(fp.StartDate, loc)
			if err != nil {
				return nil, fmt.Errorf("pattern %d: %w", j, err)
			}
			tpl.Patterns = append(tpl.Patterns, model.Pattern{
				StartDate:    model.StartOfDay(start),
				Frequency:    fp.Frequency,
				DurationDays: fp.Duration,
			})
		}
		return tpl, nil
	}

	start, err := ParseTime(ft.StartTime, loc)
	if err != nil {
		return nil, fmt.Errorf("start_time: %w", err)
	}
	tpl.StartTime = start
	if ft.EndTime != "" {
		end, err := ParseTime(ft.EndTime, loc)
		if err != nil {
			return nil, fmt.Errorf("end_time: %w", err)
		}
		tpl.EndTime = end
	}
	return tpl, nil
}
