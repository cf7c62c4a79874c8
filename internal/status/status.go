package status

import (
	"time"

	"placestatus/internal/hours"
)

// Kind is the operating status of a place at a given moment.
type Kind string

const (
	KindOpen         Kind = "open"
	KindClosingSoon  Kind = "closing_soon"
	KindBreakSoon    Kind = "break_soon"
	KindOnBreak      Kind = "on_break"
	KindOpeningSoon  Kind = "opening_soon"
	KindClosedForDay Kind = "closed_for_day"
	KindUnspecified  Kind = "unspecified"
)

// Kinds lists every status in classification priority order.
var Kinds = []Kind{
	KindOpen, KindClosingSoon, KindBreakSoon, KindOnBreak,
	KindOpeningSoon, KindClosedForDay, KindUnspecified,
}

// IsOpen reports whether customers can be served in this status.
func (k Kind) IsOpen() bool {
	switch k {
	case KindOpen, KindClosingSoon, KindBreakSoon:
		return true
	default:
		return false
	}
}

// ClosedDayRule closes a place on a recurring weekday or on one calendar date.
// Both fields may be set; either one matching closes the day.
type ClosedDayRule struct {
	DayOfWeek    *time.Weekday
	SpecificDate *time.Time
	Note         string
}

// ClosedOnWeekday returns a recurring weekly closure.
func ClosedOnWeekday(d time.Weekday, note string) ClosedDayRule {
	return ClosedDayRule{DayOfWeek: &d, Note: note}
}

// ClosedOnDate returns a one-off closure for the calendar day of date.
func ClosedOnDate(date time.Time, note string) ClosedDayRule {
	return ClosedDayRule{SpecificDate: &date, Note: note}
}

// Matches reports whether the rule closes the calendar day of now.
func (r ClosedDayRule) Matches(now time.Time) bool {
	if r.DayOfWeek != nil && *r.DayOfWeek == now.Weekday() {
		return true
	}
	if r.SpecificDate != nil {
		y1, m1, d1 := r.SpecificDate.Date()
		y2, m2, d2 := now.Date()
		return y1 == y2 && m1 == m2 && d1 == d2
	}
	return false
}

// PlaceStatusInfo is the evaluated status of a place.
type PlaceStatusInfo struct {
	Status       Kind             `json:"status"`
	Message      string           `json:"message"`
	IsOpen       bool             `json:"is_open"`
	NextOpenTime *hours.TimeOfDay `json:"next_open_time,omitempty"`
}

func newInfo(kind Kind, message string, next *hours.TimeOfDay) PlaceStatusInfo {
	return PlaceStatusInfo{
		Status:       kind,
		Message:      message,
		IsOpen:       kind.IsOpen(),
		NextOpenTime: next,
	}
}

var kindLabels = map[Kind]string{
	KindOpen:         "영업 중",
	KindClosingSoon:  "곧 마감",
	KindBreakSoon:    "곧 브레이크",
	KindOnBreak:      "브레이크 타임",
	KindOpeningSoon:  "곧 영업 시작",
	KindClosedForDay: "영업 종료",
	KindUnspecified:  "정보 없음",
}

// Label returns a short human-readable name of the status.
func (k Kind) Label() string {
	if l, ok := kindLabels[k]; ok {
		return l
	}
	return string(k)
}
