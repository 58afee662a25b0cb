package view

import (
	"fmt"
	"time"

	"rokcal/internal/model"
)

// Locale carries every display string and date format. It is passed
// explicitly to the renderer; nothing in the process holds a default.
type Locale struct {
	Code          string
	Weekdays      [7]string // indexed by time.Weekday
	WeekdaysShort [7]string
	DateFormat    string
	DayMonth      string
	MonthFormat   string
	TimeFormat    string

	EventTypes map[model.EventType]string
	Priorities map[model.Priority]string

	Text Strings
}

// Strings are the fixed UI labels.
type Strings struct {
	MonthView, WeekView       string
	PrevMonth, NextMonth      string
	PrevWeek, NextWeek        string
	ThisMonth, ThisWeek       string
	Today, NoEvents, Upcoming string
	InMonth, Rewards          string
	Requirements, MinPower    string
	KingdomAge, Stage         string
	Starts, During            string
	Total, Days               string
}

var vi = Locale{
	Code:          "vi",
	Weekdays:      [7]string{"Chủ Nhật", "Thứ Hai", "Thứ Ba", "Thứ Tư", "Thứ Năm", "Thứ Sáu", "Thứ Bảy"},
	WeekdaysShort: [7]string{"CN", "T2", "T3", "T4", "T5", "T6", "T7"},
	DateFormat:    "02/01/2006",
	DayMonth:      "02/01",
	MonthFormat:   "01/2006",
	TimeFormat:    "15:04",
	EventTypes: map[model.EventType]string{
		model.EventKingdom:     "Toàn Vương Quốc",
		model.EventAlliance:    "Liên Minh",
		model.EventPersonal:    "Cá Nhân",
		model.EventSpecial:     "Đặc Biệt",
		model.EventKVK:         "KVK",
		model.EventCeremony:    "Lễ Hội",
		model.EventTraining:    "Đào Tạo",
		model.EventCompetitive: "Cạnh Tranh",
		model.EventGathering:   "Thu Thập",
		model.EventExpedition:  "Thám Hiểm",
		model.EventWheel:       "Vòng Quay",
		model.EventCard:        "Thẻ Bài",
		model.EventPower:       "Sức Mạnh",
		model.EventBuilding:    "Xây Dựng",
		model.EventResearch:    "Nghiên Cứu",
		model.EventCommander:   "Tướng",
		model.EventTroop:       "Quân Đội",
		model.EventBarbarian:   "Barbarian",
		model.EventFort:        "Pháo Đài",
		model.EventResource:    "Tài Nguyên",
		model.EventVIP:         "VIP",
		model.EventRecharge:    "Nạp",
		model.EventAllianceWar: "Chiến Liên Minh",
	},
	Priorities: map[model.Priority]string{
		model.PriorityLow:      "Thấp",
		model.PriorityMedium:   "Trung bình",
		model.PriorityHigh:     "Cao",
		model.PriorityCritical: "Tối cao",
	},
	Text: Strings{
		MonthView: "Tháng", WeekView: "Tuần",
		PrevMonth: "Tháng trước", NextMonth: "Tháng sau",
		PrevWeek: "Tuần trước", NextWeek: "Tuần sau",
		ThisMonth: "Tháng này", ThisWeek: "Tuần này",
		Today: "Hôm nay", NoEvents: "Không có sự kiện", Upcoming: "Sắp diễn ra",
		InMonth: "Sự kiện trong tháng", Rewards: "Phần thưởng",
		Requirements: "Yêu cầu", MinPower: "Sức mạnh tối thiểu",
		KingdomAge: "Tuổi vương quốc (ngày)", Stage: "Giai đoạn",
		Starts: "Bắt đầu", During: "Đang diễn ra",
		Total: "Tổng sự kiện", Days: "Số ngày có sự kiện",
	},
}

var en = Locale{
	Code:          "en",
	Weekdays:      [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"},
	WeekdaysShort: [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"},
	DateFormat:    "2006-01-02",
	DayMonth:      "Jan 2",
	MonthFormat:   "January 2006",
	TimeFormat:    "15:04",
	EventTypes: map[model.EventType]string{
		model.EventKingdom:     "Kingdom",
		model.EventAlliance:    "Alliance",
		model.EventPersonal:    "Personal",
		model.EventSpecial:     "Special",
		model.EventKVK:         "KvK",
		model.EventCeremony:    "Ceremony",
		model.EventTraining:    "Training",
		model.EventCompetitive: "Competitive",
		model.EventGathering:   "Gathering",
		model.EventExpedition:  "Expedition",
		model.EventWheel:       "Wheel",
		model.EventCard:        "Card",
		model.EventPower:       "Power",
		model.EventBuilding:    "Building",
		model.EventResearch:    "Research",
		model.EventCommander:   "Commander",
		model.EventTroop:       "Troop",
		model.EventBarbarian:   "Barbarian",
		model.EventFort:        "Fort",
		model.EventResource:    "Resource",
		model.EventVIP:         "VIP",
		model.EventRecharge:    "Recharge",
		model.EventAllianceWar: "Alliance War",
	},
	Priorities: map[model.Priority]string{
		model.PriorityLow:      "Low",
		model.PriorityMedium:   "Medium",
		model.PriorityHigh:     "High",
		model.PriorityCritical: "Critical",
	},
	Text: Strings{
		MonthView: "Month", WeekView: "Week",
		PrevMonth: "Previous month", NextMonth: "Next month",
		PrevWeek: "Previous week", NextWeek: "Next week",
		ThisMonth: "This month", ThisWeek: "This week",
		Today: "Today", NoEvents: "No events", Upcoming: "Upcoming",
		InMonth: "Events this month", Rewards: "Rewards",
		Requirements: "Requirements", MinPower: "Minimum power",
		KingdomAge: "Kingdom age (days)", Stage: "Stage",
		Starts: "Starts", During: "In progress",
		Total: "Total events", Days: "Days with events",
	},
}

// LocaleFor returns the locale for code ("vi" or "en").
func LocaleFor(code string) (Locale, error) {
	switch code {
	case "vi":
		return vi, nil
	case "en":
		return en, nil
	default:
		return Locale{}, fmt.Errorf("view: unsupported locale %q", code)
	}
}

func (l Locale) EventTypeLabel(t model.EventType) (string, error) {
	s, ok := l.EventTypes[t]
	if !ok {
		return "", fmt.Errorf("%w: %q", model.ErrUnknownEventType, string(t))
	}
	return s, nil
}

func (l Locale) PriorityLabel(p model.Priority) (string, error) {
	s, ok := l.Priorities[p]
	if !ok {
		return "", fmt.Errorf("%w: %q", model.ErrUnknownPriority, string(p))
	}
	return s, nil
}

func (l Locale) Weekday(t time.Time) string      { return l.Weekdays[t.Weekday()] }
func (l Locale) WeekdayShort(t time.Time) string { return l.WeekdaysShort[t.Weekday()] }
