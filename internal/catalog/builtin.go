package catalog

import (
	"fmt"
	"time"

	"rokcal/internal/model"
)

// anchor identifies which calendar boundary a built-in entry is offset from.
type anchor int

const (
	weekAnchor anchor = iota
	monthAnchor
)

// builtinEntry is a built-in template whose start and end are offsets from
// the start of the current week or month.
type builtinEntry struct {
	tpl        model.Template
	from       anchor
	startDays  int
	endDays    int
	extraHours int
}

var builtinEntries = []builtinEntry{
	{
		tpl: model.Template{
			ID:            "weekly-1",
			Title:         "Lễ Hội Karuak",
			Description:   "Săn quái toàn server, tích lũy điểm cá nhân và liên minh",
			EventType:     model.EventCeremony,
			Category:      model.CategoryWeekly,
			Priority:      model.PriorityHigh,
			Rewards:       []string{"Tượng Vàng", "Tượng Đa Năng", "Tăng tốc Huấn luyện"},
			Requirements:  "Thành phố cấp 16",
			Repeatable:    true,
			RepeatPattern: model.RepeatWeekly,
		},
		from: weekAnchor, startDays: 1, endDays: 3,
	},
	{
		tpl: model.Template{
			ID:            "weekly-2",
			Title:         "Kho Dự Trữ Chiến Lược",
			Description:   "Thu thập và sử dụng tài nguyên để nhận thưởng",
			EventType:     model.EventResource,
			Category:      model.CategoryWeekly,
			Priority:      model.PriorityMedium,
			Rewards:       []string{"Ngọc", "Thẻ Tài nguyên", "Tăng tốc"},
			Requirements:  "Thành phố cấp 12",
			Repeatable:    true,
			RepeatPattern: model.RepeatWeekly,
		},
		from: weekAnchor, startDays: 3, endDays: 5,
	},
	{
		tpl: model.Template{
			ID:            "monthly-1",
			Title:         "Sự Kiện Quân Chủ Vĩ Đại (MGE)",
			Description:   "Cạnh tranh để nhận tướng huyền thoại mới",
			EventType:     model.EventCompetitive,
			Category:      model.CategoryMonthly,
			Priority:      model.PriorityCritical,
			Rewards:       []string{"Tượng Vàng", "Tướng Huyền thoại", "Khung Avatar"},
			Requirements:  "Thành phố cấp 25, Sức mạnh tối thiểu",
			Repeatable:    true,
			RepeatPattern: model.RepeatMonthly,
			MinPower:      5_000_000,
		},
		from: monthAnchor, startDays: 5, endDays: 12,
	},
	{
		tpl: model.Template{
			ID:            "monthly-2",
			Title:         "Vương Quốc Vàng",
			Description:   "Sự kiện cạnh tranh toàn vương quốc với nhiều giai đoạn",
			EventType:     model.EventKingdom,
			Category:      model.CategoryMonthly,
			Priority:      model.PriorityHigh,
			Rewards:       []string{"Tượng Đa Năng", "Ngọc", "Khung Đặc biệt"},
			Requirements:  "Thành phố cấp 20",
			Repeatable:    true,
			RepeatPattern: model.RepeatMonthly,
		},
		from: monthAnchor, startDays: 10, endDays: 17,
	},
	{
		tpl: model.Template{
			ID:            "alliance-1",
			Title:         "Rương Thánh Osiris",
			Description:   "Chiến trường liên minh 30vs30, chiếm và bảo vệ Rương Thánh",
			EventType:     model.EventAllianceWar,
			Category:      model.CategoryWeekly,
			Priority:      model.PriorityHigh,
			Rewards:       []string{"Rương Osiris", "Tượng Tướng", "Vật liệu"},
			Requirements:  "Liên minh cấp 4, 30 thành viên",
			Repeatable:    true,
			RepeatPattern: model.RepeatWeekly,
		},
		from: weekAnchor, startDays: 2, endDays: 2, extraHours: 2,
	},
	{
		tpl: model.Template{
			ID:            "wheel-1",
			Title:         "Vòng Quay Vận Mệnh",
			Description:   "Vòng quay cho tướng mới xuất hiện",
			EventType:     model.EventWheel,
			Category:      model.CategoryMonthly,
			Priority:      model.PriorityHigh,
			Rewards:       []string{"Tướng Mới", "Tượng Vàng", "Ngọc"},
			Requirements:  "Thành phố cấp 16",
			Repeatable:    true,
			RepeatPattern: model.RepeatMonthly,
		},
		from: monthAnchor, startDays: 3, endDays: 10,
	},
	{
		tpl: model.Template{
			ID:            "recharge-1",
			Title:         "Nhiều Hơn Cả Ngọc",
			Description:   "Nạp ngọc nhận thưởng bonus giá trị",
			EventType:     model.EventRecharge,
			Category:      model.CategoryMonthly,
			Priority:      model.PriorityMedium,
			Rewards:       []string{"Ngọc Bonus", "Tượng Tướng", "Tăng tốc"},
			Requirements:  "Nạp ngọc",
			Repeatable:    true,
			RepeatPattern: model.RepeatMonthly,
		},
		from: monthAnchor, startDays: 1, endDays: 4,
	},
	{
		tpl: model.Template{
			ID:            "seasonal-1",
			Title:         "Thế Vận Hội Olympia",
			Description:   "Sự kiện thể thao với nhiều minigame và thử thách",
			EventType:     model.EventSpecial,
			Category:      model.CategorySeasonal,
			Priority:      model.PriorityMedium,
			Rewards:       []string{"Huy chương Olympia", "Avatar Đặc biệt", "Tài nguyên"},
			Requirements:  "Thành phố cấp 10",
			Repeatable:    true,
			RepeatPattern: model.RepeatMonthly,
		},
		from: monthAnchor, startDays: 7, endDays: 14,
	},
}

// kvkSeasons are consecutive 30-day KvK seasons starting on day 15 of the
// anchor month.
var kvkSeasons = []struct {
	title, description, requirements, reward string
}{
	{"KVK Season 1: Tiên Khởi", "Chiến dịch KvK đầu tiên, 8 vương quốc chiến đấu tại Lost Kingdom", "Thành phố cấp 16, Vương quốc đủ 60 ngày", "Vật phẩm đặc biệt"},
	{"KVK Season 2: Vương Giả", "Mùa KvK thứ hai với cơ chế Holy Ground và Crystal", "Thành phố cấp 18, Hoàn thành KvK S1", "Crystal Key"},
	{"KVK Season 3: Đế Vương", "Mùa KvK thứ ba với cơ chế Ark of Osiris nâng cao", "Thành phố cấp 20, Hoàn thành KvK S2", "Vật phẩm Legendary"},
	{"KVK Season 4: Lục Địa Châu Á", "KvK với bản đồ châu Á và cơ chế mới", "Thành phố cấp 22, Hoàn thành KvK S3", "Asian Artifacts"},
	{"KVK Season 5: Vương Triều", "KvK với cơ chế Dynasty và Imperial Conquest", "Thành phố cấp 24, Hoàn thành KvK S4", "Imperial Treasures"},
	{"KVK Season 6: Hỏa Ngục", "KvK với chủ đề Hell và cơ chế Infernal Altars", "Thành phố cấp 25, Hoàn thành KvK S5", "Infernal Rewards"},
	{"KVK Season 7: Thánh Địa", "KvK với cơ chế Holy Sanctuary và Divine Blessings", "Thành phố cấp 25, Hoàn thành KvK S6", "Divine Artifacts"},
	{"KVK Season 8: Tân Thế Giới", "KvK với bản đồ hoàn toàn mới và cơ chế Advanced Warfare", "Thành phố cấp 25, Hoàn thành KvK S7", "Advanced Rewards"},
}

const (
	kvkFirstDay   = 15
	kvkSeasonDays = 30
	// kingdomAgeForKVK is how old a kingdom must be before KvK opens.
	kingdomAgeForKVK = 60
)

// Builtin returns the built-in base catalog with start/end times resolved
// against the week and month containing now. The result is a fresh slice
// of fresh templates on every call.
func Builtin(now time.Time, weekStart time.Weekday) []*model.Template {
	week := model.StartOfWeek(now, weekStart)
	month := model.StartOfMonth(now)

	out := make([]*model.Template, 0, len(builtinEntries)+len(kvkSeasons))
	for _, e := range builtinEntries {
		base := week
		if e.from == monthAnchor {
			base = month
		}
		tpl := e.tpl
		tpl.Rewards = append([]string(nil), e.tpl.Rewards...)
		tpl.StartTime = base.AddDate(0, 0, e.startDays)
		tpl.EndTime = base.AddDate(0, 0, e.endDays).Add(time.Duration(e.extraHours) * time.Hour)
		out = append(out, &tpl)
	}

	for i, s := range kvkSeasons {
		start := kvkFirstDay + i*kvkSeasonDays
		tpl := &model.Template{
			ID:            fmt.Sprintf("kvk-%d", i+1),
			Title:         s.title,
			Description:   s.description,
			EventType:     model.EventKVK,
			Category:      model.CategoryKVKSeason,
			Priority:      model.PriorityCritical,
			Rewards:       []string{"Tướng KvK", "Khung Avatar KvK", s.reward},
			Requirements:  s.requirements,
			Repeatable:    true,
			RepeatPattern: model.RepeatMonthly,
			StartTime:     month.AddDate(0, 0, start),
			EndTime:       month.AddDate(0, 0, start+kvkSeasonDays),
		}
		if i == 0 {
			tpl.KingdomLevel = kingdomAgeForKVK
		}
		out = append(out, tpl)
	}
	return out
}
