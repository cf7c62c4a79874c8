package hours

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	timeToken  = `(\d{1,2}:\d{2})`
	rangeToken = timeToken + `\s*[-~]\s*` + timeToken
	dayToken   = `([일월화수목금토])`
	breakToken = `\(\s*브레이크\s*(?:타임)?\s*:?\s*` + rangeToken + `\s*\)`
)

var (
	rangeRe         = regexp.MustCompile(rangeToken)
	simpleRe        = regexp.MustCompile(`^(?:매일\s*)?` + rangeToken + `$`)
	trailingBreakRe = regexp.MustCompile(breakToken + `\s*$`)
	anyBreakRe      = regexp.MustCompile(breakToken)
	headerRe        = regexp.MustCompile(dayToken + `\s*(?:[-~]\s*` + dayToken + `\s*)?:`)
	segmentHeadRe   = regexp.MustCompile(`^\s*(?:(매일)\s*:?|` + dayToken + `\s*(?:[-~]\s*` + dayToken + `\s*)?:)`)
	everydayRe      = regexp.MustCompile(`매일\s*:?\s*` + rangeToken)
)

// Rule is one dialect of the opening-hours grammar. Parse reports false when
// the dialect does not apply to raw, letting the next rule try.
type Rule struct {
	Name  string
	Parse func(raw string, today time.Weekday) (DaySchedule, bool)
}

// DefaultRules are the supported dialects in priority order.
var DefaultRules = []Rule{
	{Name: "multi_segment", Parse: parseMultiSegment},
	{Name: "simple", Parse: parseSimple},
	{Name: "weekday", Parse: parseWeekdayClauses},
	{Name: "everyday", Parse: parseEveryday},
}

// ParseForToday returns the schedule that raw defines for today. Input that
// no dialect understands yields an empty schedule.
func ParseForToday(raw string, today time.Weekday) DaySchedule {
	return ParseWith(DefaultRules, raw, today)
}

// ParseWith tries rules in order and returns the first match.
func ParseWith(rules []Rule, raw string, today time.Weekday) DaySchedule {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DaySchedule{}
	}
	for _, rule := range rules {
		if sched, ok := rule.Parse(raw, today); ok {
			return sched
		}
	}
	return DaySchedule{}
}

// MatchingRule returns the name of the rule that claims raw for today, or "".
func MatchingRule(rules []Rule, raw string, today time.Weekday) string {
	raw = strings.TrimSpace(raw)
	for _, rule := range rules {
		if _, ok := rule.Parse(raw, today); ok {
			return rule.Name
		}
	}
	return ""
}

// Describe returns the parsed schedule for every day of the week, indexed by time.Weekday.
func Describe(raw string) [7]DaySchedule {
	var week [7]DaySchedule
	for d := time.Sunday; d <= time.Saturday; d++ {
		week[d] = ParseForToday(raw, d)
	}
	return week
}

// parseMultiSegment handles "D1-D2: ...; D: ..." input. Once a ';' is present
// the dialect owns the input, so no matching segment means an empty schedule.
func parseMultiSegment(raw string, today time.Weekday) (DaySchedule, bool) {
	if !strings.Contains(raw, ";") {
		return DaySchedule{}, false
	}

	for _, segment := range strings.Split(raw, ";") {
		loc := segmentHeadRe.FindStringSubmatchIndex(segment)
		if loc == nil {
			continue
		}

		days := allWeekdays
		if loc[2] < 0 {
			set, ok := weekdaySetFromTokens(submatch(segment, loc, 2), submatch(segment, loc, 3))
			if !ok {
				continue
			}
			days = set
		}
		if !days.Contains(today) {
			continue
		}

		return parseClause(segment[loc[1]:]), true
	}

	return DaySchedule{}, true
}

// parseSimple handles a bare "HH:MM-HH:MM", optionally prefixed by the everyday keyword.
func parseSimple(raw string, _ time.Weekday) (DaySchedule, bool) {
	m := simpleRe.FindStringSubmatch(raw)
	if m == nil {
		return DaySchedule{}, false
	}
	if containsWeekdayToken(strings.TrimPrefix(raw, everydayToken)) {
		return DaySchedule{}, false
	}

	r, ok := parseRange(m[1], m[2])
	if !ok {
		return DaySchedule{}, false
	}
	return DaySchedule{OpenRanges: []OpenRange{r}}, true
}

// parseWeekdayClauses scans every "D:" and "D1-D2:" header. Each clause runs
// until the next header or the everyday keyword, whichever comes first; the
// first clause covering today with at least one time range wins.
func parseWeekdayClauses(raw string, today time.Weekday) (DaySchedule, bool) {
	headers := weekdayHeaders(raw)
	for i, loc := range headers {
		end := len(raw)
		if i+1 < len(headers) {
			end = headers[i+1][0]
		}
		if j := strings.Index(raw[loc[1]:end], everydayToken); j >= 0 {
			end = loc[1] + j
		}

		days, ok := weekdaySetFromTokens(submatch(raw, loc, 1), submatch(raw, loc, 2))
		if !ok || !days.Contains(today) {
			continue
		}

		sched := parseClause(raw[loc[1]:end])
		if sched.IsEmpty() {
			continue
		}
		return sched, true
	}
	return DaySchedule{}, false
}

// parseEveryday is the last resort: "매일 HH:MM-HH:MM" anywhere in the input.
func parseEveryday(raw string, _ time.Weekday) (DaySchedule, bool) {
	m := everydayRe.FindStringSubmatch(raw)
	if m == nil {
		return DaySchedule{}, false
	}

	r, ok := parseRange(m[1], m[2])
	if !ok {
		return DaySchedule{}, false
	}

	sched := DaySchedule{OpenRanges: []OpenRange{r}}
	if b := trailingBreakRe.FindStringSubmatch(raw); b != nil {
		sched.Break = parseBreak(b[1], b[2])
	}
	return sched, true
}

// weekdayHeaders returns submatch indexes of every weekday header, skipping
// the "일" that belongs to the everyday keyword.
func weekdayHeaders(raw string) [][]int {
	all := headerRe.FindAllStringSubmatchIndex(raw, -1)
	headers := all[:0]
	for _, loc := range all {
		if prev, _ := utf8.DecodeLastRuneInString(raw[:loc[0]]); prev == '매' {
			continue
		}
		headers = append(headers, loc)
	}
	return headers
}

// parseClause reads the time list of a segment. Only a break clause anchored
// at the end is honoured; one in the middle is dropped.
func parseClause(body string) DaySchedule {
	body = strings.TrimRight(body, " \t,")

	var sched DaySchedule
	if loc := trailingBreakRe.FindStringSubmatchIndex(body); loc != nil {
		sched.Break = parseBreak(submatch(body, loc, 1), submatch(body, loc, 2))
		body = body[:loc[0]]
	}
	body = anyBreakRe.ReplaceAllString(body, " ")

	for _, m := range rangeRe.FindAllStringSubmatch(body, -1) {
		if r, ok := parseRange(m[1], m[2]); ok {
			sched.OpenRanges = append(sched.OpenRanges, r)
		}
	}
	return sched
}

func parseRange(from, to string) (OpenRange, bool) {
	o, err := ParseTimeOfDay(from)
	if err != nil {
		return OpenRange{}, false
	}
	c, err := ParseTimeOfDay(to)
	if err != nil {
		return OpenRange{}, false
	}
	return OpenRange{Open: o, Close: c}, true
}

func parseBreak(start, end string) *BreakRange {
	r, ok := parseRange(start, end)
	if !ok {
		return nil
	}
	return &BreakRange{Start: r.Open, End: r.Close}
}

func submatch(s string, loc []int, n int) string {
	if 2*n+1 >= len(loc) || loc[2*n] < 0 {
		return ""
	}
	return s[loc[2*n]:loc[2*n+1]]
}
