package status

import (
	"strings"
	"time"

	"placestatus/internal/hours"
)

// Thresholds are the lead times of the "soon" statuses.
type Thresholds struct {
	OpeningSoon time.Duration
	BreakSoon   time.Duration
	ClosingSoon time.Duration
}

// DefaultThresholds returns 30 minutes before opening or a break and 60 before closing.
func DefaultThresholds() Thresholds {
	return Thresholds{
		OpeningSoon: 30 * time.Minute,
		BreakSoon:   30 * time.Minute,
		ClosingSoon: 60 * time.Minute,
	}
}

// Evaluator classifies opening hours. It holds no mutable state and is safe
// for concurrent use.
type Evaluator struct {
	thresholds Thresholds
	rules      []hours.Rule
}

// NewEvaluator creates an evaluator. Non-positive thresholds fall back to defaults.
func NewEvaluator(t Thresholds) *Evaluator {
	def := DefaultThresholds()
	if t.OpeningSoon <= 0 {
		t.OpeningSoon = def.OpeningSoon
	}
	if t.BreakSoon <= 0 {
		t.BreakSoon = def.BreakSoon
	}
	if t.ClosingSoon <= 0 {
		t.ClosingSoon = def.ClosingSoon
	}
	return &Evaluator{thresholds: t, rules: hours.DefaultRules}
}

var defaultEvaluator = NewEvaluator(DefaultThresholds())

// Evaluate classifies openingHours at now with the default thresholds.
func Evaluate(openingHours string, closedDays []ClosedDayRule, now time.Time) PlaceStatusInfo {
	return defaultEvaluator.Evaluate(openingHours, closedDays, now)
}

// Thresholds returns the evaluator's lead times.
func (e *Evaluator) Thresholds() Thresholds {
	return e.thresholds
}

// Evaluate parses openingHours for now's weekday and classifies it. An empty
// string means no hours are known.
func (e *Evaluator) Evaluate(openingHours string, closedDays []ClosedDayRule, now time.Time) PlaceStatusInfo {
	if info, ok := closedToday(closedDays, now); ok {
		return info
	}
	if strings.TrimSpace(openingHours) == "" {
		return newInfo(KindUnspecified, msgNoInfo, nil)
	}

	schedule := hours.ParseWith(e.rules, openingHours, now.Weekday())
	return e.Classify(schedule, openingHours, closedDays, now)
}

// Classify applies the status rules to an already parsed schedule. raw is the
// source text, echoed back when the schedule has nothing for today.
func (e *Evaluator) Classify(schedule hours.DaySchedule, raw string, closedDays []ClosedDayRule, now time.Time) PlaceStatusInfo {
	if info, ok := closedToday(closedDays, now); ok {
		return info
	}
	if schedule.IsEmpty() {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			raw = msgNoInfo
		}
		return newInfo(KindUnspecified, raw, nil)
	}

	clock := hours.At(now)
	n := clock.Minutes()
	ranges := schedule.OpenRanges
	brk := schedule.Break

	next := nextOpenTime(schedule, clock)
	active := -1
	for i, r := range ranges {
		if r.Contains(clock) {
			active = i
			break
		}
	}
	onBreak := brk != nil && brk.Contains(clock)

	if active < 0 && !onBreak && next != nil {
		if until := next.Minutes() - n; until <= minutes(e.thresholds.OpeningSoon) {
			return newInfo(KindOpeningSoon, openingSoonMessage(*next, until), next)
		}
	}

	if onBreak {
		end := brk.End
		return newInfo(KindOnBreak, onBreakMessage(end), &end)
	}

	if active >= 0 {
		r := ranges[active]
		if brk != nil && n < brk.Start.Minutes() {
			if until := brk.Start.Minutes() - n; until <= minutes(e.thresholds.BreakSoon) {
				return newInfo(KindBreakSoon, breakSoonMessage(brk.Start, until), nil)
			}
		}
		if left := r.MinutesUntilClose(clock); left <= minutes(e.thresholds.ClosingSoon) {
			return newInfo(KindClosingSoon, closingSoonMessage(r.Close, left), nil)
		}
		return newInfo(KindOpen, openMessage(ranges[0].Open, ranges[len(ranges)-1].Close), nil)
	}

	// A wrapping last range reports its close time only when nothing opens later today.
	last := ranges[len(ranges)-1]
	switch {
	case !last.Wraps() && last.PastClose(clock):
		return newInfo(KindClosedForDay, closedAfterMessage(last.Close), nil)
	case next != nil:
		return newInfo(KindClosedForDay, opensLaterMessage(*next), next)
	case last.PastClose(clock):
		return newInfo(KindClosedForDay, closedAfterMessage(last.Close), nil)
	default:
		return newInfo(KindClosedForDay, msgClosedForDay, nil)
	}
}

// nextOpenTime is the earliest future range opening or break end today.
func nextOpenTime(schedule hours.DaySchedule, clock hours.TimeOfDay) *hours.TimeOfDay {
	n := clock.Minutes()
	var next *hours.TimeOfDay
	consider := func(t hours.TimeOfDay) {
		if t.Minutes() <= n {
			return
		}
		if next == nil || t.Minutes() < next.Minutes() {
			v := t
			next = &v
		}
	}

	for _, r := range schedule.OpenRanges {
		consider(r.Open)
	}
	if schedule.Break != nil && n < schedule.Break.End.Minutes() {
		consider(schedule.Break.End)
	}
	return next
}

func closedToday(closedDays []ClosedDayRule, now time.Time) (PlaceStatusInfo, bool) {
	for _, rule := range closedDays {
		if rule.Matches(now) {
			return newInfo(KindClosedForDay, closedTodayMessage(rule.Note), nil), true
		}
	}
	return PlaceStatusInfo{}, false
}

func minutes(d time.Duration) int {
	return int(d / time.Minute)
}
