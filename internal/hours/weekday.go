package hours

import (
	"strings"
	"time"
)

// weekdayTokens lists the single-character day names indexed by time.Weekday.
var weekdayTokens = [7]string{"일", "월", "화", "수", "목", "금", "토"}

const everydayToken = "매일"

// WeekdayToken returns the single-character name of d.
func WeekdayToken(d time.Weekday) string {
	return weekdayTokens[d%7]
}

func weekdayFromToken(token string) (time.Weekday, bool) {
	for i, t := range weekdayTokens {
		if t == token {
			return time.Weekday(i), true
		}
	}
	return 0, false
}

func containsWeekdayToken(s string) bool {
	for _, t := range weekdayTokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

// WeekdaySet is a bitmask of weekdays.
type WeekdaySet uint8

const allWeekdays WeekdaySet = 1<<7 - 1

// WeekdaySpan returns the days from..to inclusive, wrapping past Saturday
// when to precedes from.
func WeekdaySpan(from, to time.Weekday) WeekdaySet {
	var set WeekdaySet
	for d := from; ; d = (d + 1) % 7 {
		set |= 1 << d
		if d == to {
			break
		}
	}
	return set
}

// Contains reports whether d is in the set.
func (s WeekdaySet) Contains(d time.Weekday) bool {
	return s&(1<<(d%7)) != 0
}

// weekdaySetFromTokens resolves a single day or a day range header.
func weekdaySetFromTokens(from, to string) (WeekdaySet, bool) {
	start, ok := weekdayFromToken(from)
	if !ok {
		return 0, false
	}
	if to == "" {
		return WeekdaySpan(start, start), true
	}
	end, ok := weekdayFromToken(to)
	if !ok {
		return 0, false
	}
	return WeekdaySpan(start, end), true
}
